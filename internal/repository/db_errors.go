package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgUniqueViolation      = "23505"
)

// IsConcurrencyConflict 判断是否为锁竞争/串行化失败（可整体重试）
func IsConcurrencyConflict(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return true
		}
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"database is locked", "database table is locked", "sqlite_busy", "sqlite_locked"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsUniqueViolation 判断是否违反唯一约束，constraint 为空时不校验约束名
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation && (constraint == "" || pgErr.ConstraintName == constraint)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique constraint failed") || strings.Contains(msg, "duplicate key value") {
		return constraint == "" || strings.Contains(msg, strings.ToLower(constraint))
	}
	return false
}
