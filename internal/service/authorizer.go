package service

import (
	"context"
	"fmt"

	"go-ecoforum/internal/model"
)

type Action string

const (
	ActionModerate       Action = "moderate"
	ActionRestore        Action = "restore"
	ActionViewRecycleBin Action = "view_recycle_bin"
	ActionViewAudit      Action = "view_audit"
	ActionDelete         Action = "delete"
	ActionReport         Action = "report"
	ActionComment        Action = "comment"
)

// TargetComments is the target kind Authorize uses for comment ids; any other
// kind is taken as a soft-deletable table name.
const TargetComments = "comments"

type ownerLookup interface {
	AuthorOf(ctx context.Context, table string, id int64) (int64, error)
}

// Authorizer answers "may this actor do this to that target". Staff
// (admins and moderators) may do everything; members may report, comment and
// delete what they authored.
type Authorizer struct {
	comments commentLookup
	entities ownerLookup
}

func NewAuthorizer(comments commentLookup, entities ownerLookup) *Authorizer {
	return &Authorizer{comments: comments, entities: entities}
}

func (a *Authorizer) Authorize(ctx context.Context, actor model.Actor, action Action, targetKind string, targetID int64) (bool, error) {
	if actor.UserID <= 0 {
		return false, nil
	}

	switch action {
	case ActionReport, ActionComment:
		return true, nil
	case ActionModerate, ActionRestore, ActionViewRecycleBin, ActionViewAudit:
		return actor.Role.IsStaff(), nil
	case ActionDelete:
		if actor.Role.IsStaff() {
			return true, nil
		}
		owner, err := a.ownerOf(ctx, targetKind, targetID)
		if err != nil {
			return false, err
		}
		return owner == actor.UserID, nil
	default:
		return false, fmt.Errorf("unknown action %q", action)
	}
}

func (a *Authorizer) ownerOf(ctx context.Context, targetKind string, targetID int64) (int64, error) {
	if targetKind == TargetComments {
		c, err := a.comments.FindByID(ctx, targetID)
		if err != nil {
			return 0, err
		}
		return c.AuthorID, nil
	}
	return a.entities.AuthorOf(ctx, targetKind, targetID)
}
