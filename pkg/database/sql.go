package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"club-space-backend/pkg/booking"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

type dialect int

const (
	dialectPostgres dialect = iota
	dialectSQLite
)

// SQLDatabase database/sql 实现，支持 PostgreSQL 与 SQLite
type SQLDatabase struct {
	db      *sql.DB
	dialect dialect
}

// NewPostgresDatabase 创建PostgreSQL数据库实例
func NewPostgresDatabase(dsn string) (*SQLDatabase, error) {
	// 尝试多种连接策略来解决Vercel Lambda的IPv6问题
	dsn = strings.TrimSpace(dsn)
	strategies := []string{
		addConnectionParams(dsn, "prefer_simple_protocol=true"),
		addConnectionParams(dsn, "prefer_simple_protocol=true&connect_timeout=10"),
		addConnectionParams(dsn, "sslmode=require&prefer_simple_protocol=true"),
		dsn, // 最后尝试原始DSN
	}

	var lastErr error
	for i, strategy := range strategies {
		log := logrus.WithField("strategy", i+1)
		log.Debug("🔄 Trying connection strategy")

		db, err := sql.Open("postgres", strategy)
		if err != nil {
			log.WithError(err).Warn("❌ Strategy failed to open")
			lastErr = err
			continue
		}

		// 设置连接池参数，适合无服务器环境
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = db.PingContext(ctx)
		cancel()
		if err != nil {
			log.WithError(err).Warn("❌ Strategy failed to ping")
			db.Close()
			lastErr = err
			continue
		}

		log.Info("✅ PostgreSQL connection established")
		return &SQLDatabase{db: db, dialect: dialectPostgres}, nil
	}

	return nil, fmt.Errorf("failed to connect to PostgreSQL with all strategies: %w", lastErr)
}

// NewSQLiteDatabase 打开本地 SQLite 数据库并建表；path 为空时使用内存库
func NewSQLiteDatabase(path string) (*SQLDatabase, error) {
	if strings.TrimSpace(path) == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// 单连接：内存库每个连接是独立的数据库，写入也需要串行
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLDatabase{db: db, dialect: dialectSQLite}, nil
}

// addConnectionParams 添加连接参数到DSN
func addConnectionParams(dsn, params string) string {
	if params == "" {
		return dsn
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + params
}

// rebind 将 ? 占位符转换为 PostgreSQL 的 $N
func (d *SQLDatabase) rebind(query string) string {
	if d.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// forUpdate 行锁后缀，SQLite 依赖单写者串行
func (d *SQLDatabase) forUpdate() string {
	if d.dialect == dialectPostgres {
		return " FOR UPDATE"
	}
	return ""
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (d *SQLDatabase) exec(ctx context.Context, q queryer, query string, args ...interface{}) (sql.Result, error) {
	res, err := q.ExecContext(ctx, d.rebind(query), args...)
	return res, invalidIDAsNotFound(err)
}

func (d *SQLDatabase) query(ctx context.Context, q queryer, query string, args ...interface{}) (*sql.Rows, error) {
	rows, err := q.QueryContext(ctx, d.rebind(query), args...)
	return rows, invalidIDAsNotFound(err)
}

func (d *SQLDatabase) queryRow(ctx context.Context, q queryer, query string, args ...interface{}) *sql.Row {
	return q.QueryRowContext(ctx, d.rebind(query), args...)
}

// withTx 在事务中执行 fn，出错时回滚
func (d *SQLDatabase) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logrus.WithError(rbErr).Warn("rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// affectedOne 确认恰好更新了一行，否则返回 notFound
func affectedOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// escapeLike 转义 LIKE 通配符
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// normalizeDate 数据库 DATE 列可能带时间部分；无法识别时原样返回
func normalizeDate(s string) string {
	if d, err := booking.StoredDate(s); err == nil {
		return d
	}
	return s
}

// normalizeTime "09:00:00" -> "09:00"
func normalizeTime(s string) string {
	if c, err := booking.NormalizeClock(s); err == nil {
		return c
	}
	return s
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullString(s sql.NullString) string {
	if s.Valid {
		return s.String
	}
	return ""
}

// HealthCheck 健康检查
func (d *SQLDatabase) HealthCheck(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close 关闭连接
func (d *SQLDatabase) Close() error {
	return d.db.Close()
}
