package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go-ecoforum/internal/model"
	"go-ecoforum/internal/testutil"
	"go-ecoforum/pkg/apierror"
)

type mockAuditStore struct {
	mock.Mock
}

func (m *mockAuditStore) Log(ctx context.Context, entry model.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockAuditStore) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	args := m.Called(ctx, query)
	entries, _ := args.Get(0).([]model.AuditEntry)
	return entries, args.Get(1).(model.Meta), args.Error(2)
}

func TestAuditService_Log(t *testing.T) {
	store := new(mockAuditStore)
	svc := NewAuditService(store, testutil.NewStubClock(t0))
	actor := model.Actor{UserID: 1, Username: "admin", Role: model.RoleAdmin, IP: "127.0.0.1"}

	store.On("Log", mock.Anything, mock.MatchedBy(func(e model.AuditEntry) bool {
		return e.Action == "report.resolve" &&
			e.OccurredAt == t0.Format(time.RFC3339Nano) &&
			e.Actor == actor &&
			e.Resource == "reports/3"
	})).Return(errors.New("db down")).Once()

	// A failing audit write must not panic or surface.
	svc.Log(context.Background(), "report.resolve", actor, "success", "reports/3", nil, map[string]any{"status": "resolved"}, "")

	store.AssertExpectations(t)

	var nilSvc *AuditService
	nilSvc.Log(context.Background(), "noop", actor, "success", "", nil, nil, "")
}

func TestAuditService_Query(t *testing.T) {
	store := new(mockAuditStore)
	svc := NewAuditService(store, nil)
	ctx := context.Background()

	t.Run("invalid from", func(t *testing.T) {
		_, _, err := svc.Query(ctx, model.AuditQuery{From: "yesterday"})
		var apiErr *apierror.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 400, apiErr.HTTPStatus)
	})

	t.Run("delegates", func(t *testing.T) {
		q := model.AuditQuery{Action: "restore", From: "2026-01-01T00:00:00Z"}
		want := []model.AuditEntry{{Action: "restore"}}
		store.On("Query", ctx, q).Return(want, model.NewMeta(1, 50, 1), nil).Once()

		got, meta, err := svc.Query(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, 1, meta.Total)
		store.AssertExpectations(t)
	})
}
