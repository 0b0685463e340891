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

const reportColumns = `id, target_kind, target_id, thread_id, comment_id, content_owner_id,
	reported_by_id, reason, description, status, resolution_note, resolved_by,
	reported_at, resolved_at`

type ReportRepository struct {
	pool database.Querier
}

func NewReportRepository(pool database.Querier) *ReportRepository {
	return &ReportRepository{pool: pool}
}

func (r *ReportRepository) Create(ctx context.Context, report model.Report) (model.Report, error) {
	row := database.QuerierFromCtx(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO reports
		 (target_kind, target_id, thread_id, comment_id, content_owner_id, reported_by_id,
		  reason, description, status, reported_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'reported', $9)
		 RETURNING `+reportColumns,
		string(report.TargetKind), report.TargetID, report.ThreadID, report.CommentID,
		report.ContentOwnerID, report.ReportedByID, string(report.Reason), report.Description,
		report.ReportedAt)

	created, err := scanReport(row)
	if err != nil {
		return model.Report{}, mapError(err, "report on "+string(report.TargetKind), report.TargetID)
	}
	return created, nil
}

func (r *ReportRepository) FindByID(ctx context.Context, id int64) (model.Report, error) {
	row := database.QuerierFromCtx(ctx, r.pool).QueryRow(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE id = $1`, id)

	report, err := scanReport(row)
	if err != nil {
		return model.Report{}, mapError(err, "report", id)
	}
	return report, nil
}

// Finalize moves a report out of 'reported'. The status guard is part of the
// UPDATE, so when two finalizers race only one row comes back; the loser gets
// model.ErrAlreadyFinalized and the stored record is left as the winner wrote it.
func (r *ReportRepository) Finalize(ctx context.Context, id int64, status model.ReportStatus, resolverID *int64, note string, at time.Time) (model.Report, error) {
	q := database.QuerierFromCtx(ctx, r.pool)

	row := q.QueryRow(ctx,
		`UPDATE reports
		 SET status = $2, resolution_note = $3, resolved_by = $4, resolved_at = $5
		 WHERE id = $1 AND status = 'reported'
		 RETURNING `+reportColumns,
		id, string(status), note, resolverID, at)

	report, err := scanReport(row)
	if err == nil {
		return report, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Report{}, mapError(err, "report", id)
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reports WHERE id = $1)`, id).Scan(&exists); err != nil {
		return model.Report{}, fmt.Errorf("check report %d: %w", id, err)
	}
	if exists {
		return model.Report{}, fmt.Errorf("report %d: %w", id, model.ErrAlreadyFinalized)
	}
	return model.Report{}, fmt.Errorf("report %d: %w", id, model.ErrNotFound)
}

func (r *ReportRepository) CountOpen(ctx context.Context, kind model.TargetKind, targetID int64) (int, error) {
	var count int
	err := database.QuerierFromCtx(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM reports
		 WHERE target_kind = $1 AND target_id = $2 AND status = 'reported'`,
		string(kind), targetID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count open reports: %w", err)
	}
	return count, nil
}

// ListByStatus returns one keyset page of reports with the given status,
// newest first.
func (r *ReportRepository) ListByStatus(ctx context.Context, status model.ReportStatus, after *model.Cursor, limit int) ([]model.Report, error) {
	query := psql.Select(reportColumns).
		From("reports").
		Where(squirrel.Eq{"status": string(status)})
	if after != nil {
		query = query.Where("(reported_at, id) < (?, ?)", after.At, after.ID)
	}
	query = query.OrderBy("reported_at DESC", "id DESC").Limit(clampLimit(limit))

	return r.list(ctx, query)
}

// PageByStatus is the offset listing behind GET /reports. An empty status
// lists every report.
func (r *ReportRepository) PageByStatus(ctx context.Context, status model.ReportStatus, limit int, offset int) ([]model.Report, int, error) {
	where := squirrel.And{}
	if status != "" {
		where = append(where, squirrel.Eq{"status": string(status)})
	}

	countSQL, countArgs, err := psql.Select("COUNT(*)").From("reports").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build report count: %w", err)
	}
	var total int
	if err := database.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}

	query := psql.Select(reportColumns).
		From("reports").
		Where(where).
		OrderBy("reported_at DESC", "id DESC").
		Limit(clampLimit(limit)).
		Offset(uint64(max(offset, 0)))

	reports, err := r.list(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

func (r *ReportRepository) list(ctx context.Context, query squirrel.SelectBuilder) ([]model.Report, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build report query: %w", err)
	}

	rows, err := database.QuerierFromCtx(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	reports := make([]model.Report, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func scanReport(row pgx.Row) (model.Report, error) {
	var report model.Report
	var kind, reason, status string

	err := row.Scan(
		&report.ID, &kind, &report.TargetID, &report.ThreadID, &report.CommentID,
		&report.ContentOwnerID, &report.ReportedByID, &reason, &report.Description,
		&status, &report.ResolutionNote, &report.ResolvedBy,
		&report.ReportedAt, &report.ResolvedAt,
	)
	if err != nil {
		return model.Report{}, err
	}

	report.TargetKind = model.TargetKind(kind)
	report.Reason = model.ReportReason(reason)
	report.Status = model.ReportStatus(status)
	report.ReportedAt = report.ReportedAt.UTC()
	if report.ResolvedAt != nil {
		resolvedAt := report.ResolvedAt.UTC()
		report.ResolvedAt = &resolvedAt
	}
	return report, nil
}
