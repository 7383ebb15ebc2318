package database

import (
	"context"
	"database/sql"
	"fmt"

	"club-space-backend/pkg/models"
)

const spaceColumns = `id, name, COALESCE(location, ''), capacity, hourly_rate, COALESCE(description, ''), COALESCE(image_url, ''), created_at`

func scanSpace(sc interface{ Scan(...interface{}) error }) (*models.Space, error) {
	var s models.Space
	if err := sc.Scan(&s.ID, &s.Name, &s.Location, &s.Capacity, &s.HourlyRate, &s.Description, &s.ImageURL, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSpaces 场地列表
func (d *SQLDatabase) ListSpaces(ctx context.Context) ([]models.Space, error) {
	rows, err := d.query(ctx, d.db, `SELECT `+spaceColumns+` FROM spaces ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}
	defer rows.Close()

	var out []models.Space
	for rows.Next() {
		s, err := scanSpace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan space: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// GetSpace 获取场地
func (d *SQLDatabase) GetSpace(ctx context.Context, id string) (*models.Space, error) {
	s, err := scanSpace(d.queryRow(ctx, d.db, `SELECT `+spaceColumns+` FROM spaces WHERE id = ?`, id))
	if isNoRows(err) {
		return nil, fmt.Errorf("space %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get space: %w", err)
	}
	return s, nil
}

// SeedSpaces 写入场地参考数据（已存在的ID跳过），本地开发与测试使用
func (d *SQLDatabase) SeedSpaces(ctx context.Context, spaces []models.Space) error {
	for _, s := range spaces {
		_, err := d.exec(ctx, d.db, `INSERT INTO spaces (id, name, location, capacity, hourly_rate, description, image_url, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT (id) DO NOTHING`,
			s.ID, s.Name, s.Location, s.Capacity, s.HourlyRate, s.Description, s.ImageURL, s.CreatedAt)
		if err != nil {
			return classify("seed space", err)
		}
	}
	return nil
}

const reservationColumns = `id, space_id, user_id, reservation_date, start_time, end_time, total_amount, status, created_at`

func scanReservation(sc interface{ Scan(...interface{}) error }) (*models.Reservation, error) {
	var r models.Reservation
	var date, start, end string
	if err := sc.Scan(&r.ID, &r.SpaceID, &r.UserID, &date, &start, &end, &r.TotalAmount, &r.Status, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.ReservationDate = normalizeDate(date)
	r.StartTime = normalizeTime(start)
	r.EndTime = normalizeTime(end)
	return &r, nil
}

// ListConfirmedReservations 某场地某日的 confirmed 预约
func (d *SQLDatabase) ListConfirmedReservations(ctx context.Context, spaceID, date string) ([]models.Reservation, error) {
	rows, err := d.query(ctx, d.db, `SELECT `+reservationColumns+` FROM reservations
		WHERE space_id = ? AND reservation_date = ? AND status = 'confirmed'
		ORDER BY start_time`, spaceID, date)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var out []models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// CreateReservation 插入预约；同一事务内再次检查时间段是否被占用
func (d *SQLDatabase) CreateReservation(ctx context.Context, r *models.Reservation) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		var overlapping int
		err := d.queryRow(ctx, tx, `SELECT COUNT(*) FROM reservations
			WHERE space_id = ? AND reservation_date = ? AND status = 'confirmed'
			AND start_time < ? AND end_time > ?`,
			r.SpaceID, r.ReservationDate, r.EndTime, r.StartTime).Scan(&overlapping)
		if err != nil {
			return fmt.Errorf("check overlap: %w", err)
		}
		if overlapping > 0 {
			return ErrSlotTaken
		}

		_, err = d.exec(ctx, tx, `INSERT INTO reservations (`+reservationColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.SpaceID, r.UserID, r.ReservationDate, r.StartTime, r.EndTime, r.TotalAmount, r.Status, r.CreatedAt)
		return classify("create reservation", err)
	})
}

// GetReservation 获取预约
func (d *SQLDatabase) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	r, err := scanReservation(d.queryRow(ctx, d.db, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	if isNoRows(err) {
		return nil, fmt.Errorf("reservation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return r, nil
}

// ListUserReservations 我的预约（含场地名称），日期倒序
func (d *SQLDatabase) ListUserReservations(ctx context.Context, userID string) ([]models.ReservationWithSpace, error) {
	rows, err := d.query(ctx, d.db, `SELECT r.id, r.space_id, r.user_id, r.reservation_date, r.start_time, r.end_time,
			r.total_amount, r.status, r.created_at, COALESCE(s.name, ''), COALESCE(s.location, '')
		FROM reservations r LEFT JOIN spaces s ON s.id = r.space_id
		WHERE r.user_id = ?
		ORDER BY r.reservation_date DESC, r.start_time DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user reservations: %w", err)
	}
	defer rows.Close()

	var out []models.ReservationWithSpace
	for rows.Next() {
		var item models.ReservationWithSpace
		var date, start, end string
		r := &item.Reservation
		if err := rows.Scan(&r.ID, &r.SpaceID, &r.UserID, &date, &start, &end, &r.TotalAmount, &r.Status, &r.CreatedAt,
			&item.SpaceName, &item.SpaceLocation); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		r.ReservationDate = normalizeDate(date)
		r.StartTime = normalizeTime(start)
		r.EndTime = normalizeTime(end)
		out = append(out, item)
	}
	return out, rows.Err()
}

// CancelReservation 条件更新：只取消本人的 confirmed 预约，不删除
func (d *SQLDatabase) CancelReservation(ctx context.Context, id, userID string) error {
	res, err := d.exec(ctx, d.db, `UPDATE reservations SET status = 'cancelled'
		WHERE id = ? AND user_id = ? AND status = 'confirmed'`, id, userID)
	if err != nil {
		return fmt.Errorf("cancel reservation: %w", err)
	}
	return affectedOne(res, fmt.Errorf("confirmed reservation %s: %w", id, ErrNotFound))
}
