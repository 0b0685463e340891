package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"

	"go-ecoforum/internal/database"
	"go-ecoforum/internal/model"
	"go-ecoforum/internal/snapshot"
)

// EntityRepository reads and writes whole rows of the soft-deletable content
// tables. Only tables registered at construction are reachable; comments are
// hard-deleted elsewhere and can never be registered.
type EntityRepository struct {
	pool   database.Querier
	tables []string
}

func NewEntityRepository(pool database.Querier, tables []string) (*EntityRepository, error) {
	registered := make([]string, 0, len(tables))
	for _, table := range tables {
		table = strings.ToLower(strings.TrimSpace(table))
		if table == "" {
			continue
		}
		if table == "comments" {
			return nil, fmt.Errorf("comments cannot be soft-deleted")
		}
		if !slices.Contains(registered, table) {
			registered = append(registered, table)
		}
	}
	return &EntityRepository{pool: pool, tables: registered}, nil
}

func (r *EntityRepository) Tables() []string {
	return slices.Clone(r.tables)
}

func (r *EntityRepository) Registered(table string) bool {
	return slices.Contains(r.tables, table)
}

func (r *EntityRepository) ident(table string) (string, error) {
	if !slices.Contains(r.tables, table) {
		return "", fmt.Errorf("table %q: %w", table, model.ErrUnknownTable)
	}
	return pgx.Identifier{table}.Sanitize(), nil
}

// Fetch locks the row for the rest of the transaction and returns all of its
// columns.
func (r *EntityRepository) Fetch(ctx context.Context, table string, id int64) (snapshot.Entity, error) {
	ident, err := r.ident(table)
	if err != nil {
		return snapshot.Entity{}, err
	}

	var raw []byte
	err = database.QuerierFromCtx(ctx, r.pool).QueryRow(ctx,
		`SELECT to_jsonb(t) FROM `+ident+` t WHERE t.id = $1 FOR UPDATE`, id).Scan(&raw)
	if err != nil {
		return snapshot.Entity{}, mapError(err, table, id)
	}

	fields, err := snapshot.Decode(raw)
	if err != nil {
		return snapshot.Entity{}, fmt.Errorf("%s %d: %w", table, id, err)
	}
	return snapshot.Entity{Table: table, ID: id, Fields: fields}, nil
}

func (r *EntityRepository) Delete(ctx context.Context, table string, id int64) error {
	ident, err := r.ident(table)
	if err != nil {
		return err
	}

	tag, err := database.QuerierFromCtx(ctx, r.pool).Exec(ctx, `DELETE FROM `+ident+` WHERE id = $1`, id)
	if err != nil {
		return mapError(err, table, id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %d: %w", table, id, model.ErrNotFound)
	}
	return nil
}

// Insert re-creates a row from its snapshot. Columns missing from the snapshot
// take NULL; a row with the same id already present is model.ErrConflict.
func (r *EntityRepository) Insert(ctx context.Context, table string, id int64, snap snapshot.Snapshot) error {
	ident, err := r.ident(table)
	if err != nil {
		return err
	}

	doc, err := snapshot.Encode(snap)
	if err != nil {
		return err
	}

	_, err = database.QuerierFromCtx(ctx, r.pool).Exec(ctx,
		`INSERT INTO `+ident+` SELECT * FROM jsonb_populate_record(NULL::`+ident+`, $1::jsonb)`, doc)
	if err != nil {
		return mapError(err, table, id)
	}
	return nil
}

func (r *EntityRepository) Exists(ctx context.Context, table string, id int64) (bool, error) {
	ident, err := r.ident(table)
	if err != nil {
		return false, err
	}

	var exists bool
	err = database.QuerierFromCtx(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+ident+` WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s %d: %w", table, id, err)
	}
	return exists, nil
}

// AuthorOf returns the author_id column, used to let owners delete their own
// content.
func (r *EntityRepository) AuthorOf(ctx context.Context, table string, id int64) (int64, error) {
	ident, err := r.ident(table)
	if err != nil {
		return 0, err
	}

	var authorID int64
	err = database.QuerierFromCtx(ctx, r.pool).QueryRow(ctx,
		`SELECT author_id FROM `+ident+` WHERE id = $1`, id).Scan(&authorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%s %d: %w", table, id, model.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("%s %d: %w", table, id, err)
	}
	return authorID, nil
}
