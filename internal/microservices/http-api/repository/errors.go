package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrForeignKeyViolation is returned when a write references a row that does not exist.
	ErrForeignKeyViolation = errors.New("referenced record does not exist")
	// ErrDuplicateKey is returned when a write collides with a unique index.
	ErrDuplicateKey = errors.New("record already exists")
)

// postgres SQLSTATE codes
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// translateError maps driver errors onto repository sentinels while keeping the
// original error in the chain.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			return errors.Join(ErrForeignKeyViolation, err)
		case pgUniqueViolation:
			return errors.Join(ErrDuplicateKey, err)
		}
	}
	return err
}
