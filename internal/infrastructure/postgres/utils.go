package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jhoicas/inventory-ledger/internal/domain"
)

// Códigos SQLSTATE que se traducen a errores de dominio.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	return pgCode(err) == codeUniqueViolation
}

// mapError traduce errores de PostgreSQL a errores de dominio conservando el original en la cadena.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	switch pgCode(err) {
	case codeUniqueViolation:
		return errors.Join(domain.ErrDuplicate, err)
	case codeForeignKeyViolation:
		return errors.Join(domain.ErrNotFound, err)
	case codeCheckViolation:
		return errors.Join(domain.ErrInvalidInput, err)
	case codeSerializationFailure, codeDeadlockDetected:
		return errors.Join(domain.ErrConcurrencyConflict, err)
	}
	return err
}
