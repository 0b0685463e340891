package service

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"go-ecoforum/internal/event"
	"go-ecoforum/internal/model"
	"go-ecoforum/internal/snapshot"
)

type recycleLedger interface {
	Create(ctx context.Context, entry model.RecycleEntry) (model.RecycleEntry, error)
	MarkRestored(ctx context.Context, table string, recordID int64, actorID *int64, at time.Time) (model.RecycleEntry, error)
	ListOpen(ctx context.Context, table string, after *model.Cursor, limit int) ([]model.RecycleEntry, error)
	Page(ctx context.Context, table string, limit int, offset int) ([]model.RecycleEntry, int, error)
}

// entityStore is the storage gateway for soft-deletable rows.
type entityStore interface {
	Registered(table string) bool
	Fetch(ctx context.Context, table string, id int64) (snapshot.Entity, error)
	Delete(ctx context.Context, table string, id int64) error
	Insert(ctx context.Context, table string, id int64, snap snapshot.Snapshot) error
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// RecycleService archives soft-deletable rows before they are removed and puts
// them back on request. Every archive and every restore runs in a single
// transaction with the row write it accompanies.
type RecycleService struct {
	tx       txManager
	ledger   recycleLedger
	entities entityStore
	bus      event.Bus
	clock    Clock
}

func NewRecycleService(tx txManager, ledger recycleLedger, entities entityStore, bus event.Bus, clock Clock) *RecycleService {
	if bus == nil {
		bus = event.Discard{}
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &RecycleService{tx: tx, ledger: ledger, entities: entities, bus: bus, clock: clock}
}

// RecordDeletion archives the given field map as a not-restored ledger entry.
// Callers that also remove the row must do both inside one RunInTx; the ledger
// write joins the transaction carried by ctx.
func (s *RecycleService) RecordDeletion(ctx context.Context, table string, recordID int64, fields map[string]any, actorID *int64, now time.Time) (model.RecycleEntry, error) {
	snap, err := snapshot.Capture(snapshot.Entity{Table: table, ID: recordID, Fields: fields})
	if err != nil {
		return model.RecycleEntry{}, err
	}

	doc, err := snapshot.Encode(snap)
	if err != nil {
		return model.RecycleEntry{}, err
	}

	return s.ledger.Create(ctx, model.RecycleEntry{
		SourceTable:       table,
		SourceRecordID:    recordID,
		Snapshot:          doc,
		DeletedAt:         now.UTC(),
		DeletedBy:         actorID,
		RestorationStatus: model.NotRestored,
	})
}

// SoftDelete locks the row, archives it and deletes it. Either both the ledger
// entry and the delete commit or neither does.
func (s *RecycleService) SoftDelete(ctx context.Context, table string, recordID int64, actorID *int64) (model.RecycleEntry, error) {
	if !s.entities.Registered(table) {
		return model.RecycleEntry{}, fmt.Errorf("table %q: %w", table, model.ErrUnknownTable)
	}

	now := s.clock.Now()
	var entry model.RecycleEntry

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		entity, err := s.entities.Fetch(ctx, table, recordID)
		if err != nil {
			return err
		}

		entry, err = s.RecordDeletion(ctx, table, recordID, entity.Fields, actorID, now)
		if err != nil {
			return err
		}

		return s.entities.Delete(ctx, table, recordID)
	})
	if err != nil {
		return model.RecycleEntry{}, err
	}

	slog.Info("entity soft-deleted", "table", table, "id", recordID, "entry_id", entry.ID)
	s.bus.Publish(event.New(event.TypeEntityDeleted, entry, actorID, now))
	return entry, nil
}

// Restore puts back the most recently deleted version of a row. It fails with
// model.ErrNotFound when there is no open ledger entry, which is also what a
// second Restore in a row and the loser of two concurrent restores see.
func (s *RecycleService) Restore(ctx context.Context, table string, recordID int64, actorID *int64) (model.RecycleEntry, error) {
	if !s.entities.Registered(table) {
		return model.RecycleEntry{}, fmt.Errorf("table %q: %w", table, model.ErrUnknownTable)
	}

	now := s.clock.Now()
	var entry model.RecycleEntry

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		entry, err = s.ledger.MarkRestored(ctx, table, recordID, actorID, now.UTC())
		if err != nil {
			return err
		}

		snap, err := snapshot.Decode(entry.Snapshot)
		if err != nil {
			return fmt.Errorf("restore %s#%d: %w", table, recordID, err)
		}

		return s.entities.Insert(ctx, table, recordID, snap)
	})
	if err != nil {
		return model.RecycleEntry{}, err
	}

	slog.Info("entity restored", "table", table, "id", recordID, "entry_id", entry.ID)
	s.bus.Publish(event.New(event.TypeEntityRestored, entry, actorID, now))
	return entry, nil
}

// ListDeleted yields the open ledger entries of table, latest deletion first.
// An empty table lists all tables.
func (s *RecycleService) ListDeleted(ctx context.Context, table string, pageSize int) iter.Seq2[model.RecycleEntry, error] {
	if table != "" && !s.entities.Registered(table) {
		return failedSeq[model.RecycleEntry](fmt.Errorf("table %q: %w", table, model.ErrUnknownTable))
	}

	return keysetSeq(ctx, pageSize, func(ctx context.Context, after *model.Cursor, limit int) ([]model.RecycleEntry, error) {
		return s.ledger.ListOpen(ctx, table, after, limit)
	})
}

func (s *RecycleService) ListDeletedPage(ctx context.Context, table string, page model.PageQuery) ([]model.RecycleEntry, model.Meta, error) {
	if table != "" && !s.entities.Registered(table) {
		return nil, model.Meta{}, fmt.Errorf("table %q: %w", table, model.ErrUnknownTable)
	}

	page = page.Normalize()
	entries, total, err := s.ledger.Page(ctx, table, page.Limit, page.Offset())
	if err != nil {
		return nil, model.Meta{}, err
	}
	return entries, model.NewMeta(page.Page, page.Limit, total), nil
}
