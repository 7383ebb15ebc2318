package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyMember = errors.New("already a member of this group")
	ErrSlotTaken     = errors.New("time slot already reserved")
	ErrForbidden     = errors.New("not allowed")
)

// isUniqueViolation 判断驱动返回的错误是否为唯一约束冲突
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// isInvalidID 主键是 UUID 时，非法格式的ID在 Postgres 上报 22P02
func isInvalidID(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "22P02"
}

// isNoRows 查不到记录，或者ID格式根本不可能存在
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || isInvalidID(err)
}

// invalidIDAsNotFound 把 22P02 转成 ErrNotFound，其余错误原样返回
func invalidIDAsNotFound(err error) error {
	if isInvalidID(err) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

// classify 将唯一约束冲突统一为 ErrConflict，其余错误附加操作名
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23P01" {
		// reservations_no_overlap 排他约束
		return fmt.Errorf("%s: %w", op, ErrSlotTaken)
	}
	return fmt.Errorf("%s: %w", op, err)
}
