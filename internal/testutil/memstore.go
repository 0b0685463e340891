package testutil

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"go-ecoforum/internal/model"
	"go-ecoforum/internal/snapshot"
)

// Store is an in-memory stand-in for the PostgreSQL schema. It keeps the
// conditional-update semantics the services rely on (restore-once, one-shot
// report finalization, at most one open ledger entry) and rolls back every
// write of a failed RunInTx.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	st   state

	tables   []string
	failOnce map[string]error
}

type state struct {
	nextID   int64
	ledger   []model.RecycleEntry
	reports  []model.Report
	comments map[int64]model.Comment
	threads  map[int64]int64
	rows     map[string]map[int64]map[string]any
}

func (s state) clone() state {
	c := state{
		nextID:   s.nextID,
		ledger:   slices.Clone(s.ledger),
		reports:  slices.Clone(s.reports),
		comments: maps.Clone(s.comments),
		threads:  maps.Clone(s.threads),
		rows:     make(map[string]map[int64]map[string]any, len(s.rows)),
	}
	for table, rows := range s.rows {
		c.rows[table] = maps.Clone(rows)
	}
	return c
}

// NewStore registers the given soft-deletable tables.
func NewStore(tables ...string) *Store {
	if len(tables) == 0 {
		tables = []string{"threads", "articles", "tutorials"}
	}
	s := &Store{
		tables:   tables,
		failOnce: map[string]error{},
		st: state{
			comments: map[int64]model.Comment{},
			threads:  map[int64]int64{},
			rows:     map[string]map[int64]map[string]any{},
		},
	}
	for _, table := range tables {
		s.st.rows[table] = map[int64]map[string]any{}
	}
	return s
}

// FailNext makes the next call of op ("entity.delete", "entity.insert",
// "ledger.create", ...) return err.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOnce[op] = err
}

func (s *Store) injected(op string) error {
	if err, ok := s.failOnce[op]; ok {
		delete(s.failOnce, op)
		return err
	}
	return nil
}

func (s *Store) id() int64 {
	s.st.nextID++
	return s.st.nextID
}

type txKey struct{}

// RunInTx serializes transactions and restores the previous state when fn
// fails. Nested calls join the outer transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	saved := s.st.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.st = saved
		s.mu.Unlock()
		return err
	}
	return nil
}

// --- seeding -------------------------------------------------------------

// SeedThread adds a thread row and returns its id. Threads are also visible
// through the entity gateway when "threads" is registered.
func (s *Store) SeedThread(authorID int64, title string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.id()
	s.st.threads[id] = authorID
	if rows, ok := s.st.rows["threads"]; ok {
		rows[id] = map[string]any{"id": id, "author_id": authorID, "title": title, "status": "PUBLISHED"}
	}
	return id
}

// SeedRow puts a row into a soft-deletable table under the given id.
func (s *Store) SeedRow(table string, id int64, fields map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := maps.Clone(fields)
	row["id"] = id
	if s.st.rows[table] == nil {
		s.st.rows[table] = map[int64]map[string]any{}
	}
	s.st.rows[table][id] = row
	if table == "threads" {
		if author, ok := row["author_id"].(int64); ok {
			s.st.threads[id] = author
		}
	}
	if id > s.st.nextID {
		s.st.nextID = id
	}
}

// Row returns a copy of a stored row.
func (s *Store) Row(table string, id int64) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.st.rows[table][id]
	return maps.Clone(row), ok
}

// SeedComment inserts a comment verbatim, including a dangling parent id.
func (s *Store) SeedComment(c model.Comment) model.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == 0 {
		c.ID = s.id()
	} else if c.ID > s.st.nextID {
		s.st.nextID = c.ID
	}
	s.st.comments[c.ID] = c
	return c
}

// LedgerEntries returns every ledger entry ever written, oldest first.
func (s *Store) LedgerEntries() []model.RecycleEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.st.ledger)
}

// --- views ---------------------------------------------------------------

func (s *Store) Ledger() *Ledger     { return &Ledger{s: s} }
func (s *Store) Reports() *Reports   { return &Reports{s: s} }
func (s *Store) Comments() *Comments { return &Comments{s: s} }
func (s *Store) Threads() *Threads   { return &Threads{s: s} }
func (s *Store) Entities() *Entities { return &Entities{s: s} }

// --- recycle ledger ------------------------------------------------------

type Ledger struct{ s *Store }

func (l *Ledger) Create(_ context.Context, entry model.RecycleEntry) (model.RecycleEntry, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	if err := l.s.injected("ledger.create"); err != nil {
		return model.RecycleEntry{}, err
	}
	for _, e := range l.s.st.ledger {
		if e.SourceTable == entry.SourceTable && e.SourceRecordID == entry.SourceRecordID && e.RestorationStatus == model.NotRestored {
			return model.RecycleEntry{}, fmt.Errorf("recycle entry %s %d: %w", entry.SourceTable, entry.SourceRecordID, model.ErrConflict)
		}
	}

	entry.ID = l.s.id()
	entry.RestorationStatus = model.NotRestored
	entry.RestoredAt = nil
	entry.RestoredBy = nil
	l.s.st.ledger = append(l.s.st.ledger, entry)
	return entry, nil
}

func (l *Ledger) MarkRestored(_ context.Context, table string, recordID int64, actorID *int64, at time.Time) (model.RecycleEntry, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	idx := -1
	for i, e := range l.s.st.ledger {
		if e.SourceTable != table || e.SourceRecordID != recordID || e.RestorationStatus != model.NotRestored {
			continue
		}
		if idx < 0 || newerEntry(e, l.s.st.ledger[idx]) {
			idx = i
		}
	}
	if idx < 0 {
		return model.RecycleEntry{}, fmt.Errorf("restore %s#%d: %w", table, recordID, model.ErrNotFound)
	}

	entry := l.s.st.ledger[idx]
	entry.RestorationStatus = model.Restored
	restoredAt := at
	entry.RestoredAt = &restoredAt
	entry.RestoredBy = actorID
	l.s.st.ledger[idx] = entry
	return entry, nil
}

func newerEntry(a, b model.RecycleEntry) bool {
	if !a.DeletedAt.Equal(b.DeletedAt) {
		return a.DeletedAt.After(b.DeletedAt)
	}
	return a.ID > b.ID
}

func (l *Ledger) open(table string) []model.RecycleEntry {
	open := make([]model.RecycleEntry, 0)
	for _, e := range l.s.st.ledger {
		if e.RestorationStatus == model.NotRestored && (table == "" || e.SourceTable == table) {
			open = append(open, e)
		}
	}
	slices.SortFunc(open, func(a, b model.RecycleEntry) int {
		if newerEntry(a, b) {
			return -1
		}
		return 1
	})
	return open
}

func (l *Ledger) ListOpen(_ context.Context, table string, after *model.Cursor, limit int) ([]model.RecycleEntry, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	return pageDesc(l.open(table), after, limit), nil
}

func (l *Ledger) Page(_ context.Context, table string, limit int, offset int) ([]model.RecycleEntry, int, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	open := l.open(table)
	return window(open, limit, offset), len(open), nil
}

func (l *Ledger) CountOpenFor(_ context.Context, table string, recordID int64) (int, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	count := 0
	for _, e := range l.s.st.ledger {
		if e.SourceTable == table && e.SourceRecordID == recordID && e.RestorationStatus == model.NotRestored {
			count++
		}
	}
	return count, nil
}

// --- entity gateway ------------------------------------------------------

type Entities struct{ s *Store }

func (e *Entities) Registered(table string) bool {
	return slices.Contains(e.s.tables, table)
}

func (e *Entities) check(table string) error {
	if !e.Registered(table) {
		return fmt.Errorf("table %q: %w", table, model.ErrUnknownTable)
	}
	return nil
}

func (e *Entities) Fetch(_ context.Context, table string, id int64) (snapshot.Entity, error) {
	if err := e.check(table); err != nil {
		return snapshot.Entity{}, err
	}
	e.s.mu.Lock()
	defer e.s.mu.Unlock()

	row, ok := e.s.st.rows[table][id]
	if !ok {
		return snapshot.Entity{}, fmt.Errorf("%s %d: %w", table, id, model.ErrNotFound)
	}
	return snapshot.Entity{Table: table, ID: id, Fields: maps.Clone(row)}, nil
}

func (e *Entities) Delete(_ context.Context, table string, id int64) error {
	if err := e.check(table); err != nil {
		return err
	}
	e.s.mu.Lock()
	defer e.s.mu.Unlock()

	if err := e.s.injected("entity.delete"); err != nil {
		return err
	}
	if _, ok := e.s.st.rows[table][id]; !ok {
		return fmt.Errorf("%s %d: %w", table, id, model.ErrNotFound)
	}
	delete(e.s.st.rows[table], id)
	if table == "threads" {
		delete(e.s.st.threads, id)
	}
	return nil
}

func (e *Entities) Insert(_ context.Context, table string, id int64, snap snapshot.Snapshot) error {
	if err := e.check(table); err != nil {
		return err
	}
	e.s.mu.Lock()
	defer e.s.mu.Unlock()

	if err := e.s.injected("entity.insert"); err != nil {
		return err
	}
	if _, ok := e.s.st.rows[table][id]; ok {
		return fmt.Errorf("%s %d: %w", table, id, model.ErrConflict)
	}
	e.s.st.rows[table][id] = maps.Clone(map[string]any(snap))
	if table == "threads" {
		if author, ok := snap.Int64("author_id"); ok {
			e.s.st.threads[id] = author
		}
	}
	return nil
}

func (e *Entities) AuthorOf(_ context.Context, table string, id int64) (int64, error) {
	if err := e.check(table); err != nil {
		return 0, err
	}
	e.s.mu.Lock()
	defer e.s.mu.Unlock()

	row, ok := e.s.st.rows[table][id]
	if !ok {
		return 0, fmt.Errorf("%s %d: %w", table, id, model.ErrNotFound)
	}
	author, _ := snapshot.Snapshot(row).Int64("author_id")
	return author, nil
}

// --- threads -------------------------------------------------------------

type Threads struct{ s *Store }

func (t *Threads) Exists(_ context.Context, id int64) (bool, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	_, ok := t.s.st.threads[id]
	return ok, nil
}

func (t *Threads) AuthorOf(_ context.Context, id int64) (int64, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	author, ok := t.s.st.threads[id]
	if !ok {
		return 0, fmt.Errorf("thread %d: %w", id, model.ErrNotFound)
	}
	return author, nil
}

// --- reports -------------------------------------------------------------

type Reports struct{ s *Store }

func (r *Reports) Create(_ context.Context, report model.Report) (model.Report, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if (report.TargetKind == model.TargetComment) != (report.CommentID != nil) {
		return model.Report{}, fmt.Errorf("report: %w", model.ErrInvalidInput)
	}
	report.ID = r.s.id()
	report.Status = model.ReportReported
	report.ResolvedAt = nil
	report.ResolutionNote = nil
	report.ResolvedBy = nil
	r.s.st.reports = append(r.s.st.reports, report)
	return report, nil
}

func (r *Reports) FindByID(_ context.Context, id int64) (model.Report, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, report := range r.s.st.reports {
		if report.ID == id {
			return report, nil
		}
	}
	return model.Report{}, fmt.Errorf("report %d: %w", id, model.ErrNotFound)
}

func (r *Reports) Finalize(_ context.Context, id int64, status model.ReportStatus, resolverID *int64, note string, at time.Time) (model.Report, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i, report := range r.s.st.reports {
		if report.ID != id {
			continue
		}
		if report.Status != model.ReportReported {
			return model.Report{}, fmt.Errorf("report %d: %w", id, model.ErrAlreadyFinalized)
		}
		report.Status = status
		report.ResolutionNote = &note
		report.ResolvedBy = resolverID
		resolvedAt := at
		report.ResolvedAt = &resolvedAt
		r.s.st.reports[i] = report
		return report, nil
	}
	return model.Report{}, fmt.Errorf("report %d: %w", id, model.ErrNotFound)
}

func (r *Reports) CountOpen(_ context.Context, kind model.TargetKind, targetID int64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	count := 0
	for _, report := range r.s.st.reports {
		if report.TargetKind == kind && report.TargetID == targetID && report.Status == model.ReportReported {
			count++
		}
	}
	return count, nil
}

func (r *Reports) filtered(status model.ReportStatus) []model.Report {
	out := make([]model.Report, 0)
	for _, report := range r.s.st.reports {
		if status == "" || report.Status == status {
			out = append(out, report)
		}
	}
	slices.SortFunc(out, func(a, b model.Report) int {
		return -compareCursor(a.Cursor(), b.Cursor())
	})
	return out
}

func (r *Reports) ListByStatus(_ context.Context, status model.ReportStatus, after *model.Cursor, limit int) ([]model.Report, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return pageDesc(r.filtered(status), after, limit), nil
}

func (r *Reports) PageByStatus(_ context.Context, status model.ReportStatus, limit int, offset int) ([]model.Report, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	all := r.filtered(status)
	return window(all, limit, offset), len(all), nil
}

// --- comments ------------------------------------------------------------

type Comments struct{ s *Store }

func (c *Comments) Create(_ context.Context, comment model.Comment) (model.Comment, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	comment.ID = c.s.id()
	comment.RepliesCount = nil
	c.s.st.comments[comment.ID] = comment
	return comment, nil
}

func (c *Comments) FindByID(_ context.Context, id int64) (model.Comment, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	comment, ok := c.s.st.comments[id]
	if !ok {
		return model.Comment{}, fmt.Errorf("comment %d: %w", id, model.ErrNotFound)
	}
	return comment, nil
}

func (c *Comments) Delete(_ context.Context, id int64) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if _, ok := c.s.st.comments[id]; !ok {
		return fmt.Errorf("comment %d: %w", id, model.ErrNotFound)
	}
	delete(c.s.st.comments, id)
	return nil
}

func (c *Comments) children(match func(model.Comment) bool) []model.Comment {
	out := make([]model.Comment, 0)
	for _, comment := range c.s.st.comments {
		if match(comment) {
			out = append(out, comment)
		}
	}
	slices.SortFunc(out, func(a, b model.Comment) int {
		return compareCursor(a.Cursor(), b.Cursor())
	})
	return out
}

func (c *Comments) ListChildren(_ context.Context, parentID int64, after *model.Cursor, limit int) ([]model.Comment, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	all := c.children(func(cm model.Comment) bool {
		return cm.ParentCommentID != nil && *cm.ParentCommentID == parentID
	})
	return pageAsc(all, after, limit), nil
}

func (c *Comments) ListChildrenOf(_ context.Context, parentIDs []int64) ([]model.Comment, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	return c.children(func(cm model.Comment) bool {
		return cm.ParentCommentID != nil && slices.Contains(parentIDs, *cm.ParentCommentID)
	}), nil
}

func (c *Comments) CountChildren(_ context.Context, parentID int64) (int, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	count := 0
	for _, comment := range c.s.st.comments {
		if comment.ParentCommentID != nil && *comment.ParentCommentID == parentID {
			count++
		}
	}
	return count, nil
}

func (c *Comments) ListTopLevel(_ context.Context, threadID int64, after *model.Cursor, limit int) ([]model.Comment, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	roots := pageAsc(c.children(func(cm model.Comment) bool {
		return cm.ThreadID == threadID && cm.ParentCommentID == nil
	}), after, limit)

	for i := range roots {
		count := 0
		for _, comment := range c.s.st.comments {
			if comment.ParentCommentID != nil && *comment.ParentCommentID == roots[i].ID {
				count++
			}
		}
		roots[i].RepliesCount = &count
	}
	return roots, nil
}

// --- paging helpers ------------------------------------------------------

func compareCursor(a, b model.Cursor) int {
	if c := a.At.Compare(b.At); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func limitOf(limit int) int {
	if limit <= 0 {
		return 50
	}
	return min(limit, 500)
}

// pageDesc takes items sorted newest first and returns those strictly after
// the cursor.
func pageDesc[T interface{ Cursor() model.Cursor }](items []T, after *model.Cursor, limit int) []T {
	out := make([]T, 0)
	for _, item := range items {
		if after != nil && compareCursor(item.Cursor(), *after) >= 0 {
			continue
		}
		out = append(out, item)
		if len(out) == limitOf(limit) {
			break
		}
	}
	return out
}

func pageAsc[T interface{ Cursor() model.Cursor }](items []T, after *model.Cursor, limit int) []T {
	out := make([]T, 0)
	for _, item := range items {
		if after != nil && compareCursor(item.Cursor(), *after) <= 0 {
			continue
		}
		out = append(out, item)
		if len(out) == limitOf(limit) {
			break
		}
	}
	return out
}

func window[T any](items []T, limit int, offset int) []T {
	start := min(max(offset, 0), len(items))
	end := min(start+limitOf(limit), len(items))
	return slices.Clone(items[start:end])
}
