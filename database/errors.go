package database

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/rpupo63/blog-backend/errs"
)

// SQLSTATE insufficient_privilege, also raised by row-level security.
const pgInsufficientPrivilege = "42501"

func isPermissionDenied(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgInsufficientPrivilege
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "readonly database") ||
		strings.Contains(msg, "permission denied") ||
		strings.Contains(msg, "row-level security")
}

func isDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// readError classifies a failed read.
func readError(operation, entity string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errs.NewNotFound(entity)
	case isPermissionDenied(err):
		return errs.NewPermissionDenied(operation+" "+entity, err)
	default:
		return errs.NewDatabaseError(operation, entity, err)
	}
}

// writeError classifies a failed write. Anything but a missing record is a
// rejected mutation.
func writeError(operation, entity string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound), errs.IsNotFound(err):
		return errs.NewNotFound(entity)
	case isPermissionDenied(err):
		return errs.NewMutationError(operation+" "+entity, errs.NewPermissionDenied(operation+" "+entity, err))
	default:
		return errs.NewMutationError(operation+" "+entity, err)
	}
}
