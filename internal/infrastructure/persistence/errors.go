package persistence

import (
	"errors"
	"strings"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// pgUniqueViolation is the SQLSTATE postgres reports for a unique index violation
const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err was raised by a unique index
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

// notFound maps gorm.ErrRecordNotFound to the shared sentinel
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}

// lockConflict is returned when a versioned update matched no row
func lockConflict(resource string) error {
	return shared.NewDomainError(shared.CodeConcurrencyConflict,
		"The "+resource+" has been modified by another transaction")
}
