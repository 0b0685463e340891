package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-ecoforum/internal/model"
	"go-ecoforum/internal/testutil"
)

func TestAuthorizer_Authorize(t *testing.T) {
	store := testutil.NewStore()
	authz := NewAuthorizer(store.Comments(), store.Entities())
	ctx := context.Background()

	store.SeedRow("articles", 42, map[string]any{"title": "A", "author_id": int64(7)})
	comment := store.SeedComment(model.Comment{ThreadID: 1, AuthorID: 8, Body: "hi", PostedAt: t0})

	admin := model.Actor{UserID: 1, Role: model.RoleAdmin}
	moderator := model.Actor{UserID: 2, Role: model.RoleModerator}
	author := model.Actor{UserID: 7, Role: model.RoleMember}
	commenter := model.Actor{UserID: 8, Role: model.RoleMember}
	stranger := model.Actor{UserID: 9, Role: model.RoleMember}

	tests := []struct {
		name   string
		actor  model.Actor
		action Action
		kind   string
		id     int64
		want   bool
	}{
		{"admin restores", admin, ActionRestore, "articles", 42, true},
		{"moderator resolves", moderator, ActionModerate, "", 0, true},
		{"member cannot resolve", stranger, ActionModerate, "", 0, false},
		{"member cannot browse recycle bin", author, ActionViewRecycleBin, "", 0, false},
		{"member cannot read audit log", author, ActionViewAudit, "", 0, false},
		{"author deletes own article", author, ActionDelete, "articles", 42, true},
		{"stranger cannot delete article", stranger, ActionDelete, "articles", 42, false},
		{"commenter deletes own comment", commenter, ActionDelete, TargetComments, comment.ID, true},
		{"author cannot delete other's comment", author, ActionDelete, TargetComments, comment.ID, false},
		{"moderator deletes any comment", moderator, ActionDelete, TargetComments, comment.ID, true},
		{"member reports", stranger, ActionReport, "", 0, true},
		{"member comments", stranger, ActionComment, "", 0, true},
		{"anonymous reports", model.Actor{}, ActionReport, "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := authz.Authorize(ctx, tt.actor, tt.action, tt.kind, tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("missing target surfaces not found", func(t *testing.T) {
		_, err := authz.Authorize(ctx, stranger, ActionDelete, TargetComments, 9999)
		require.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("unknown action", func(t *testing.T) {
		_, err := authz.Authorize(ctx, admin, Action("purge"), "", 0)
		require.Error(t, err)
	})
}
