package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeEntityDeleted  Type = "entity.deleted"
	TypeEntityRestored Type = "entity.restored"
	TypeReportFiled    Type = "report.filed"
	TypeReportResolved Type = "report.resolved"
	TypeReportRejected Type = "report.rejected"
	TypeCommentPosted  Type = "comment.posted"
	TypeCommentDeleted Type = "comment.deleted"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
	ActorID   *int64 `json:"actor_id,omitempty"`
}

// New stamps an event with a fresh id and the given time.
func New(t Type, payload any, actorID *int64, at time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   payload,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
		ActorID:   actorID,
	}
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // channel and unsubscribe function
}
