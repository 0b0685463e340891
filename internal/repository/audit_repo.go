package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"

	"go-ecoforum/internal/database"
	"go-ecoforum/internal/model"
)

type AuditRepository struct {
	pool database.Querier
}

func NewAuditRepository(pool database.Querier) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Log(ctx context.Context, entry model.AuditEntry) error {
	beforeJSON, err := marshalOptional(entry.Before)
	if err != nil {
		return fmt.Errorf("marshal before data: %w", err)
	}
	afterJSON, err := marshalOptional(entry.After)
	if err != nil {
		return fmt.Errorf("marshal after data: %w", err)
	}

	occurredAt := time.Now().UTC()
	if entry.OccurredAt != "" {
		if parsed, parseErr := time.Parse(time.RFC3339Nano, entry.OccurredAt); parseErr == nil {
			occurredAt = parsed
		}
	}

	_, err = database.QuerierFromCtx(ctx, r.pool).Exec(ctx,
		`INSERT INTO audit_entries
		 (action, occurred_at, actor_user_id, actor_username, actor_role, actor_ip,
		  status, resource, before_data, after_data, error_text)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.Action, occurredAt,
		entry.Actor.Ref(), entry.Actor.Username, string(entry.Actor.Role), entry.Actor.IP,
		entry.Status, entry.Resource, beforeJSON, afterJSON, entry.Error)
	if err != nil {
		return fmt.Errorf("log audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 50
	}
	if query.Limit > 200 {
		query.Limit = 200
	}

	where := squirrel.And{}
	if action := strings.TrimSpace(query.Action); action != "" {
		where = append(where, squirrel.Expr("lower(action) = lower(?)", action))
	}
	if query.ActorID > 0 {
		where = append(where, squirrel.Eq{"actor_user_id": query.ActorID})
	}
	if status := strings.TrimSpace(query.Status); status != "" {
		where = append(where, squirrel.Expr("lower(status) = lower(?)", status))
	}
	if resource := strings.TrimSpace(query.Resource); resource != "" {
		where = append(where, squirrel.ILike{"resource": "%" + resource + "%"})
	}
	if from := strings.TrimSpace(query.From); from != "" {
		where = append(where, squirrel.Expr("occurred_at >= ?::timestamptz", from))
	}
	if to := strings.TrimSpace(query.To); to != "" {
		where = append(where, squirrel.Expr("occurred_at <= ?::timestamptz", to))
	}

	q := database.QuerierFromCtx(ctx, r.pool)

	countSQL, countArgs, err := psql.Select("COUNT(*)").From("audit_entries").Where(where).ToSql()
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("build audit count: %w", err)
	}
	var total int
	if err := q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, model.Meta{}, fmt.Errorf("count audit entries: %w", err)
	}
	meta := model.NewMeta(query.Page, query.Limit, total)

	dataSQL, dataArgs, err := psql.
		Select("action", "occurred_at", "actor_user_id", "actor_username", "actor_role", "actor_ip",
			"status", "resource", "before_data", "after_data", "error_text").
		From("audit_entries").
		Where(where).
		OrderBy("occurred_at DESC", "id DESC").
		Limit(uint64(query.Limit)).
		Offset(uint64((query.Page - 1) * query.Limit)).
		ToSql()
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("build audit query: %w", err)
	}

	rows, err := q.Query(ctx, dataSQL, dataArgs...)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]model.AuditEntry, 0)
	for rows.Next() {
		var e model.AuditEntry
		var occurredAt time.Time
		var actorID *int64
		var role string
		var beforeJSON, afterJSON []byte

		if err := rows.Scan(
			&e.Action, &occurredAt,
			&actorID, &e.Actor.Username, &role, &e.Actor.IP,
			&e.Status, &e.Resource, &beforeJSON, &afterJSON, &e.Error,
		); err != nil {
			return nil, model.Meta{}, fmt.Errorf("scan audit entry: %w", err)
		}

		e.OccurredAt = occurredAt.UTC().Format(time.RFC3339Nano)
		e.Actor.Role = model.Role(role)
		if actorID != nil {
			e.Actor.UserID = *actorID
		}
		e.Before = unmarshalOptional(beforeJSON)
		e.After = unmarshalOptional(afterJSON)

		entries = append(entries, e)
	}

	return entries, meta, rows.Err()
}

func marshalOptional(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func unmarshalOptional(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	return v
}
