package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-ecoforum/internal/model"
)

var reportRowColumns = []string{
	"id", "target_kind", "target_id", "thread_id", "comment_id", "content_owner_id",
	"reported_by_id", "reason", "description", "status", "resolution_note", "resolved_by",
	"reported_at", "resolved_at",
}

func TestReportRepository_Finalize(t *testing.T) {
	resolvedAt := t0.Add(time.Hour)

	tests := []struct {
		name    string
		setup   func(mock pgxmock.PgxPoolIface)
		wantErr error
	}{
		{
			name: "open report is finalized",
			setup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(reportRowColumns).
					AddRow(int64(5), "comment", int64(30), int64(3), ptr(int64(30)), int64(8),
						int64(6), "spam", "", "resolved", ptr("removed"), ptr(int64(1)),
						t0, &resolvedAt)
				mock.ExpectQuery(`UPDATE reports`).
					WithArgs(int64(5), "resolved", "removed", ptr(int64(1)), resolvedAt).
					WillReturnRows(rows)
			},
		},
		{
			name: "finalized report is left alone",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`UPDATE reports`).
					WithArgs(int64(5), "resolved", "removed", ptr(int64(1)), resolvedAt).
					WillReturnError(pgx.ErrNoRows)
				mock.ExpectQuery(`SELECT EXISTS`).
					WithArgs(int64(5)).
					WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
			},
			wantErr: model.ErrAlreadyFinalized,
		},
		{
			name: "missing report",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`UPDATE reports`).
					WithArgs(int64(5), "resolved", "removed", ptr(int64(1)), resolvedAt).
					WillReturnError(pgx.ErrNoRows)
				mock.ExpectQuery(`SELECT EXISTS`).
					WithArgs(int64(5)).
					WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
			},
			wantErr: model.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockPool(t)
			tt.setup(mock)

			report, err := NewReportRepository(mock).Finalize(context.Background(), 5, model.ReportResolved, ptr(int64(1)), "removed", resolvedAt)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, report.ID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.ReportResolved, report.Status)
			assert.Equal(t, model.TargetComment, report.TargetKind)
			require.NotNil(t, report.ResolutionNote)
			assert.Equal(t, "removed", *report.ResolutionNote)
			require.NotNil(t, report.ResolvedAt)
			assert.Equal(t, resolvedAt, *report.ResolvedAt)
		})
	}

	t.Run("failed existence check is a storage error", func(t *testing.T) {
		mock := newMockPool(t)
		boom := errors.New("connection reset")
		mock.ExpectQuery(`UPDATE reports`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery(`SELECT EXISTS`).WithArgs(int64(5)).WillReturnError(boom)

		_, err := NewReportRepository(mock).Finalize(context.Background(), 5, model.ReportRejected, nil, "", resolvedAt)
		require.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, model.ErrNotFound)
		assert.NotErrorIs(t, err, model.ErrAlreadyFinalized)
	})
}

func TestReportRepository_CountOpen(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM reports`).
		WithArgs("thread", int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	count, err := NewReportRepository(mock).CountOpen(context.Background(), model.TargetThread, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
