package model

import (
	"strings"
	"time"
)

type TargetKind string

const (
	TargetThread  TargetKind = "thread"
	TargetComment TargetKind = "comment"
)

func ParseTargetKind(raw string) (TargetKind, bool) {
	switch TargetKind(strings.ToLower(strings.TrimSpace(raw))) {
	case TargetThread:
		return TargetThread, true
	case TargetComment:
		return TargetComment, true
	default:
		return "", false
	}
}

type ReportStatus string

const (
	ReportReported ReportStatus = "reported"
	ReportResolved ReportStatus = "resolved"
	ReportRejected ReportStatus = "rejected"
)

func ParseReportStatus(raw string) (ReportStatus, bool) {
	switch ReportStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case ReportReported:
		return ReportReported, true
	case ReportResolved:
		return ReportResolved, true
	case ReportRejected:
		return ReportRejected, true
	default:
		return "", false
	}
}

type ReportReason string

const (
	ReasonSpam           ReportReason = "spam"
	ReasonHarassment     ReportReason = "harassment"
	ReasonMisinformation ReportReason = "misinformation"
	ReasonInappropriate  ReportReason = "inappropriate"
	ReasonOffTopic       ReportReason = "off_topic"
	ReasonOther          ReportReason = "other"
)

func (r ReportReason) Valid() bool {
	switch r {
	case ReasonSpam, ReasonHarassment, ReasonMisinformation, ReasonInappropriate, ReasonOffTopic, ReasonOther:
		return true
	default:
		return false
	}
}

// Report is a moderation complaint against a thread or a comment. CommentID is
// set exactly when TargetKind is TargetComment; ThreadID is always set.
type Report struct {
	ID             int64        `json:"id"`
	TargetKind     TargetKind   `json:"target_kind"`
	TargetID       int64        `json:"target_id"`
	ThreadID       int64        `json:"thread_id"`
	CommentID      *int64       `json:"comment_id,omitempty"`
	ContentOwnerID int64        `json:"content_owner_id"`
	ReportedByID   int64        `json:"reported_by_id"`
	Reason         ReportReason `json:"reason"`
	Description    string       `json:"description,omitempty"`
	Status         ReportStatus `json:"status"`
	ResolutionNote *string      `json:"resolution_note,omitempty"`
	ResolvedBy     *int64       `json:"resolved_by,omitempty"`
	ReportedAt     time.Time    `json:"reported_at"`
	ResolvedAt     *time.Time   `json:"resolved_at,omitempty"`
}

func (r Report) Cursor() Cursor {
	return Cursor{At: r.ReportedAt, ID: r.ID}
}

// FileReport carries the arguments of a report filing.
type FileReport struct {
	TargetKind     TargetKind
	TargetID       int64
	ThreadID       int64
	CommentID      *int64
	ContentOwnerID int64
	ReporterID     int64
	Reason         ReportReason
	Description    string
}
