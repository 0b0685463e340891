package repository

import (
	"context"
	"fmt"

	"go-ecoforum/internal/database"
)

// ThreadRepository is the narrow view of threads the comment and report
// workflows need.
type ThreadRepository struct {
	pool database.Querier
}

func NewThreadRepository(pool database.Querier) *ThreadRepository {
	return &ThreadRepository{pool: pool}
}

func (r *ThreadRepository) Create(ctx context.Context, authorID int64, title string, body string) (int64, error) {
	var id int64
	err := database.QuerierFromCtx(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO threads (author_id, title, body) VALUES ($1, $2, $3) RETURNING id`,
		authorID, title, body).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create thread: %w", err)
	}
	return id, nil
}

func (r *ThreadRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := database.QuerierFromCtx(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM threads WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("thread %d: %w", id, err)
	}
	return exists, nil
}

func (r *ThreadRepository) AuthorOf(ctx context.Context, id int64) (int64, error) {
	var authorID int64
	err := database.QuerierFromCtx(ctx, r.pool).QueryRow(ctx,
		`SELECT author_id FROM threads WHERE id = $1`, id).Scan(&authorID)
	if err != nil {
		return 0, mapError(err, "thread", id)
	}
	return authorID, nil
}
