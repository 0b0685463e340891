package testutil

import (
	"context"
	"slices"
	"strings"
	"sync"

	"go-ecoforum/internal/model"
)

// AuditLog records audit entries in memory, newest last.
type AuditLog struct {
	mu      sync.Mutex
	entries []model.AuditEntry
}

func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

func (a *AuditLog) Log(_ context.Context, entry model.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

// Query filters on action, actor and status; newest first.
func (a *AuditLog) Query(_ context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	page := model.PageQuery{Page: query.Page, Limit: query.Limit}.Normalize()
	matched := make([]model.AuditEntry, 0)
	for _, e := range slices.Backward(a.entries) {
		if query.Action != "" && !strings.EqualFold(e.Action, query.Action) {
			continue
		}
		if query.ActorID != 0 && e.Actor.UserID != query.ActorID {
			continue
		}
		if query.Status != "" && e.Status != query.Status {
			continue
		}
		matched = append(matched, e)
	}

	return window(matched, page.Limit, page.Offset()), model.NewMeta(page.Page, page.Limit, len(matched)), nil
}

func (a *AuditLog) Entries() []model.AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.entries)
}
