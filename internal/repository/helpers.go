package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeUniqueViolation = "23505"
	codeUndefinedTable  = "42P01"
)

var errSchemaMissing = errors.New("gallery schema missing, run cmd/migrate or set DB_AUTO_MIGRATE=true")

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if pgErrorCode(err) == codeUniqueViolation {
		return true
	}

	// pgxmock and wrapped driver errors only carry the message
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, codeUniqueViolation) || strings.Contains(msg, "duplicate key")
}

// wrapQueryError names the missing migration instead of surfacing 42P01
func wrapQueryError(op string, err error) error {
	if pgErrorCode(err) == codeUndefinedTable {
		return fmt.Errorf("%s: %w: %w", op, errSchemaMissing, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
