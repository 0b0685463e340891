package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"go-ecoforum/internal/database"
	"go-ecoforum/internal/model"
)

const recycleColumns = `id, source_table, source_record_id, snapshot, deleted_at, deleted_by,
	restoration_status, restored_at, restored_by`

type RecycleRepository struct {
	pool database.Querier
}

func NewRecycleRepository(pool database.Querier) *RecycleRepository {
	return &RecycleRepository{pool: pool}
}

// Create stores a new not-restored entry. A second open entry for the same
// (source_table, source_record_id) violates uq_recycle_bin_open_entry and is
// reported as model.ErrConflict.
func (r *RecycleRepository) Create(ctx context.Context, entry model.RecycleEntry) (model.RecycleEntry, error) {
	q := database.QuerierFromCtx(ctx, r.pool)

	row := q.QueryRow(ctx,
		`INSERT INTO recycle_bin_entries
		 (source_table, source_record_id, snapshot, deleted_at, deleted_by, restoration_status)
		 VALUES ($1, $2, $3::jsonb, $4, $5, 'not_restored')
		 RETURNING `+recycleColumns,
		entry.SourceTable, entry.SourceRecordID, []byte(entry.Snapshot), entry.DeletedAt, entry.DeletedBy)

	created, err := scanRecycleEntry(row)
	if err != nil {
		return model.RecycleEntry{}, mapError(err, "recycle entry "+entry.SourceTable, entry.SourceRecordID)
	}
	return created, nil
}

// MarkRestored flips the most recent open entry for (table, recordID) to
// restored. The row is locked and re-checked in the same statement, so of two
// concurrent callers only one gets the entry; the other sees model.ErrNotFound.
func (r *RecycleRepository) MarkRestored(ctx context.Context, table string, recordID int64, actorID *int64, at time.Time) (model.RecycleEntry, error) {
	q := database.QuerierFromCtx(ctx, r.pool)

	row := q.QueryRow(ctx,
		`UPDATE recycle_bin_entries
		 SET restoration_status = 'restored', restored_at = $3, restored_by = $4
		 WHERE id = (
		     SELECT id FROM recycle_bin_entries
		     WHERE source_table = $1 AND source_record_id = $2
		       AND restoration_status = 'not_restored'
		     ORDER BY deleted_at DESC, id DESC
		     LIMIT 1
		     FOR UPDATE
		 )
		 AND restoration_status = 'not_restored'
		 RETURNING `+recycleColumns,
		table, recordID, at, actorID)

	entry, err := scanRecycleEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.RecycleEntry{}, fmt.Errorf("restore %s#%d: %w", table, recordID, model.ErrNotFound)
	}
	if err != nil {
		return model.RecycleEntry{}, fmt.Errorf("mark restored: %w", err)
	}
	return entry, nil
}

// ListOpen returns up to limit not-restored entries after the cursor, newest
// deletion first. An empty table lists every table.
func (r *RecycleRepository) ListOpen(ctx context.Context, table string, after *model.Cursor, limit int) ([]model.RecycleEntry, error) {
	query := openEntries(psql.Select(recycleColumns), table)
	if after != nil {
		query = query.Where("(deleted_at, id) < (?, ?)", after.At, after.ID)
	}
	query = query.OrderBy("deleted_at DESC", "id DESC").Limit(clampLimit(limit))

	return r.list(ctx, query)
}

// Page is the offset-paginated listing used by the HTTP layer.
func (r *RecycleRepository) Page(ctx context.Context, table string, limit int, offset int) ([]model.RecycleEntry, int, error) {
	countSQL, countArgs, err := openEntries(psql.Select("COUNT(*)"), table).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build recycle count: %w", err)
	}

	var total int
	if err := database.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count recycle entries: %w", err)
	}

	query := openEntries(psql.Select(recycleColumns), table).
		OrderBy("deleted_at DESC", "id DESC").
		Limit(clampLimit(limit)).
		Offset(uint64(max(offset, 0)))

	entries, err := r.list(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// CountOpenFor counts the not-restored entries of one record; the partial
// unique index keeps it at 0 or 1.
func (r *RecycleRepository) CountOpenFor(ctx context.Context, table string, recordID int64) (int, error) {
	var count int
	err := database.QuerierFromCtx(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM recycle_bin_entries
		 WHERE source_table = $1 AND source_record_id = $2 AND restoration_status = 'not_restored'`,
		table, recordID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count open recycle entries: %w", err)
	}
	return count, nil
}

func (r *RecycleRepository) list(ctx context.Context, query squirrel.SelectBuilder) ([]model.RecycleEntry, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recycle query: %w", err)
	}

	rows, err := database.QuerierFromCtx(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list recycle entries: %w", err)
	}
	defer rows.Close()

	entries := make([]model.RecycleEntry, 0)
	for rows.Next() {
		entry, err := scanRecycleEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recycle entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func openEntries(query squirrel.SelectBuilder, table string) squirrel.SelectBuilder {
	query = query.From("recycle_bin_entries").
		Where(squirrel.Eq{"restoration_status": string(model.NotRestored)})
	if table != "" {
		query = query.Where(squirrel.Eq{"source_table": table})
	}
	return query
}

func scanRecycleEntry(row pgx.Row) (model.RecycleEntry, error) {
	var entry model.RecycleEntry
	var snapshot []byte
	var status string

	err := row.Scan(
		&entry.ID, &entry.SourceTable, &entry.SourceRecordID, &snapshot,
		&entry.DeletedAt, &entry.DeletedBy,
		&status, &entry.RestoredAt, &entry.RestoredBy,
	)
	if err != nil {
		return model.RecycleEntry{}, err
	}

	entry.Snapshot = snapshot
	entry.RestorationStatus = model.RestorationStatus(status)
	entry.DeletedAt = entry.DeletedAt.UTC()
	if entry.RestoredAt != nil {
		restoredAt := entry.RestoredAt.UTC()
		entry.RestoredAt = &restoredAt
	}
	return entry, nil
}
