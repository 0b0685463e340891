package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"go-ecoforum/internal/model"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// mapError converts pgx/pgconn errors to domain errors.
// context.DeadlineExceeded and context.Canceled pass through wrapped.
func mapError(err error, entity string, id int64) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %d: %w", entity, id, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", entity, id, model.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s %d: %w", entity, id, model.ErrConflict)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s %d: %w", entity, id, model.ErrNotFound)
		case "23514": // check_violation
			return fmt.Errorf("%s %d: %w", entity, id, model.ErrInvalidInput)
		}
	}

	return fmt.Errorf("%s %d: %w", entity, id, err)
}

func clampLimit(limit int) uint64 {
	if limit <= 0 {
		return uint64(model.DefaultPageLimits.Default)
	}
	return uint64(min(limit, model.HardMaxPageSize))
}
