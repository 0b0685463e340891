package model

type FileReportRequest struct {
	TargetKind  string `json:"target_kind"`
	TargetID    int64  `json:"target_id"`
	Reason      string `json:"reason"`
	Description string `json:"description"`
}

type FinalizeReportRequest struct {
	Note string `json:"note"`
}

type PostCommentRequest struct {
	Body            string `json:"body"`
	ParentCommentID *int64 `json:"parent_comment_id"`
}

type CountData struct {
	Count int `json:"count"`
}

type ListData[T any] struct {
	Items []T `json:"items"`
}

type AuditEntry struct {
	Action     string `json:"action"`
	OccurredAt string `json:"occurred_at"`
	Actor      Actor  `json:"actor"`
	Status     string `json:"status"`
	Resource   string `json:"resource,omitempty"`
	Before     any    `json:"before,omitempty"`
	After      any    `json:"after,omitempty"`
	Error      string `json:"error,omitempty"`
}

type AuditQuery struct {
	Action   string
	ActorID  int64
	Status   string
	Resource string
	From     string
	To       string
	Page     int
	Limit    int
}
