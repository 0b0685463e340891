package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"go-ecoforum/internal/database"
	"go-ecoforum/internal/model"
)

const commentColumns = `id, thread_id, author_id, body, posted_at, parent_comment_id`

type CommentRepository struct {
	pool database.Querier
}

func NewCommentRepository(pool database.Querier) *CommentRepository {
	return &CommentRepository{pool: pool}
}

func (r *CommentRepository) Create(ctx context.Context, comment model.Comment) (model.Comment, error) {
	row := database.QuerierFromCtx(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO comments (thread_id, author_id, body, posted_at, parent_comment_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+commentColumns,
		comment.ThreadID, comment.AuthorID, comment.Body, comment.PostedAt, comment.ParentCommentID)

	created, err := scanComment(row)
	if err != nil {
		return model.Comment{}, mapError(err, "comment in thread", comment.ThreadID)
	}
	return created, nil
}

func (r *CommentRepository) FindByID(ctx context.Context, id int64) (model.Comment, error) {
	row := database.QuerierFromCtx(ctx, r.pool).QueryRow(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE id = $1`, id)

	comment, err := scanComment(row)
	if err != nil {
		return model.Comment{}, mapError(err, "comment", id)
	}
	return comment, nil
}

// Delete removes exactly one row. Replies are untouched and keep pointing at id.
func (r *CommentRepository) Delete(ctx context.Context, id int64) error {
	tag, err := database.QuerierFromCtx(ctx, r.pool).Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "comment", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("comment %d: %w", id, model.ErrNotFound)
	}
	return nil
}

// ListChildren returns one keyset page of direct replies, oldest first.
func (r *CommentRepository) ListChildren(ctx context.Context, parentID int64, after *model.Cursor, limit int) ([]model.Comment, error) {
	query := psql.Select(commentColumns).
		From("comments").
		Where(squirrel.Eq{"parent_comment_id": parentID})
	if after != nil {
		query = query.Where("(posted_at, id) > (?, ?)", after.At, after.ID)
	}
	query = query.OrderBy("posted_at ASC", "id ASC").Limit(clampLimit(limit))

	return r.list(ctx, query)
}

// ListChildrenOf returns every direct reply of the given parents. Used one
// tree level at a time by breadth-first walks.
func (r *CommentRepository) ListChildrenOf(ctx context.Context, parentIDs []int64) ([]model.Comment, error) {
	if len(parentIDs) == 0 {
		return []model.Comment{}, nil
	}
	query := psql.Select(commentColumns).
		From("comments").
		Where("parent_comment_id = ANY(?)", parentIDs).
		OrderBy("posted_at ASC", "id ASC")

	return r.list(ctx, query)
}

func (r *CommentRepository) CountChildren(ctx context.Context, parentID int64) (int, error) {
	var count int
	err := database.QuerierFromCtx(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM comments WHERE parent_comment_id = $1`, parentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count replies of %d: %w", parentID, err)
	}
	return count, nil
}

// ListTopLevel returns one keyset page of a thread's root comments with a
// freshly counted replies_count.
func (r *CommentRepository) ListTopLevel(ctx context.Context, threadID int64, after *model.Cursor, limit int) ([]model.Comment, error) {
	query := psql.Select(
		"c.id", "c.thread_id", "c.author_id", "c.body", "c.posted_at", "c.parent_comment_id",
		"(SELECT COUNT(*) FROM comments r WHERE r.parent_comment_id = c.id) AS replies_count",
	).
		From("comments c").
		Where(squirrel.Eq{"c.thread_id": threadID}).
		Where("c.parent_comment_id IS NULL")
	if after != nil {
		query = query.Where("(c.posted_at, c.id) > (?, ?)", after.At, after.ID)
	}
	query = query.OrderBy("c.posted_at ASC", "c.id ASC").Limit(clampLimit(limit))

	return r.list(ctx, query)
}

func (r *CommentRepository) list(ctx context.Context, query squirrel.SelectBuilder) ([]model.Comment, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build comment query: %w", err)
	}

	comments := make([]model.Comment, 0)
	if err := pgxscan.Select(ctx, database.QuerierFromCtx(ctx, r.pool), &comments, sql, args...); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	for i := range comments {
		comments[i].PostedAt = comments[i].PostedAt.UTC()
	}
	return comments, nil
}

func scanComment(row pgx.Row) (model.Comment, error) {
	var c model.Comment
	if err := row.Scan(&c.ID, &c.ThreadID, &c.AuthorID, &c.Body, &c.PostedAt, &c.ParentCommentID); err != nil {
		return model.Comment{}, err
	}
	c.PostedAt = c.PostedAt.UTC()
	return c, nil
}
