package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-ecoforum/internal/model"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func TestMapError(t *testing.T) {
	sentinels := []error{
		model.ErrNotFound, model.ErrConflict, model.ErrInvalidInput,
		model.ErrAlreadyFinalized, model.ErrInvalidParent, model.ErrInvalidTarget,
	}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "nil", err: nil, want: nil},
		{name: "no rows", err: pgx.ErrNoRows, want: model.ErrNotFound},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, want: model.ErrConflict},
		{name: "foreign key violation", err: &pgconn.PgError{Code: "23503"}, want: model.ErrNotFound},
		{name: "check violation", err: &pgconn.PgError{Code: "23514"}, want: model.ErrInvalidInput},
		{name: "wrapped unique violation", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), want: model.ErrConflict},
		{name: "deadline", err: context.DeadlineExceeded, want: context.DeadlineExceeded},
		{name: "canceled", err: context.Canceled, want: context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err, "report", 7)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			require.ErrorIs(t, got, tt.want)
			assert.Contains(t, got.Error(), "report 7")
		})
	}

	t.Run("other errors stay storage errors", func(t *testing.T) {
		for _, raw := range []error{errors.New("connection reset"), &pgconn.PgError{Code: "40001"}} {
			got := mapError(raw, "comment", 3)
			require.ErrorIs(t, got, raw)
			for _, sentinel := range sentinels {
				assert.NotErrorIs(t, got, sentinel)
			}
		}
	})
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, uint64(model.DefaultPageLimits.Default), clampLimit(0))
	assert.Equal(t, uint64(model.DefaultPageLimits.Default), clampLimit(-4))
	assert.Equal(t, uint64(7), clampLimit(7))
	assert.Equal(t, uint64(model.HardMaxPageSize), clampLimit(model.HardMaxPageSize+1))
}
