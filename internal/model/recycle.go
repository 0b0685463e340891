package model

import (
	"encoding/json"
	"time"
)

type RestorationStatus string

const (
	NotRestored RestorationStatus = "not_restored"
	Restored    RestorationStatus = "restored"
)

// RecycleEntry is one deletion event of a soft-deletable row. Snapshot holds the
// encoded field map of the row as it was when deleted.
type RecycleEntry struct {
	ID                int64             `json:"id"`
	SourceTable       string            `json:"source_table"`
	SourceRecordID    int64             `json:"source_record_id"`
	Snapshot          json.RawMessage   `json:"snapshot"`
	DeletedAt         time.Time         `json:"deleted_at"`
	DeletedBy         *int64            `json:"deleted_by,omitempty"`
	RestorationStatus RestorationStatus `json:"restoration_status"`
	RestoredAt        *time.Time        `json:"restored_at,omitempty"`
	RestoredBy        *int64            `json:"restored_by,omitempty"`
}

func (e RecycleEntry) Cursor() Cursor {
	return Cursor{At: e.DeletedAt, ID: e.ID}
}
