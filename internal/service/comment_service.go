package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"go-ecoforum/internal/event"
	"go-ecoforum/internal/model"
	"go-ecoforum/internal/util"
)

type commentStore interface {
	Create(ctx context.Context, comment model.Comment) (model.Comment, error)
	FindByID(ctx context.Context, id int64) (model.Comment, error)
	Delete(ctx context.Context, id int64) error
	ListChildren(ctx context.Context, parentID int64, after *model.Cursor, limit int) ([]model.Comment, error)
	ListChildrenOf(ctx context.Context, parentIDs []int64) ([]model.Comment, error)
	CountChildren(ctx context.Context, parentID int64) (int, error)
	ListTopLevel(ctx context.Context, threadID int64, after *model.Cursor, limit int) ([]model.Comment, error)
}

const maxCommentBody = 10000

// CommentService manages the comment forest of each thread. Comments are
// hard-deleted and never go through the recycle ledger; replies of a deleted
// comment stay in place with a dangling parent id.
type CommentService struct {
	comments commentStore
	threads  threadLookup
	bus      event.Bus
	clock    Clock
}

func NewCommentService(comments commentStore, threads threadLookup, bus event.Bus, clock Clock) *CommentService {
	if bus == nil {
		bus = event.Discard{}
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &CommentService{comments: comments, threads: threads, bus: bus, clock: clock}
}

// Post adds a comment to a thread. A parent, when given, must be an existing
// comment of the same thread.
func (s *CommentService) Post(ctx context.Context, threadID int64, authorID int64, body string, parentID *int64) (model.Comment, error) {
	body = util.CleanText(body)
	if body == "" {
		return model.Comment{}, fmt.Errorf("empty comment body: %w", model.ErrInvalidInput)
	}
	if util.RuneLen(body) > maxCommentBody {
		return model.Comment{}, fmt.Errorf("comment body longer than %d characters: %w", maxCommentBody, model.ErrInvalidInput)
	}

	exists, err := s.threads.Exists(ctx, threadID)
	if err != nil {
		return model.Comment{}, err
	}
	if !exists {
		return model.Comment{}, fmt.Errorf("thread %d: %w", threadID, model.ErrNotFound)
	}

	if parentID != nil {
		parent, err := s.comments.FindByID(ctx, *parentID)
		if errors.Is(err, model.ErrNotFound) {
			return model.Comment{}, fmt.Errorf("parent comment %d does not exist: %w", *parentID, model.ErrInvalidParent)
		}
		if err != nil {
			return model.Comment{}, err
		}
		if parent.ThreadID != threadID {
			return model.Comment{}, fmt.Errorf("parent comment %d belongs to thread %d, not %d: %w",
				parent.ID, parent.ThreadID, threadID, model.ErrInvalidParent)
		}
	}

	now := s.clock.Now()
	comment, err := s.comments.Create(ctx, model.Comment{
		ThreadID:        threadID,
		AuthorID:        authorID,
		Body:            body,
		PostedAt:        now.UTC(),
		ParentCommentID: parentID,
	})
	if err != nil {
		return model.Comment{}, err
	}

	slog.Info("comment posted", "comment_id", comment.ID, "thread_id", threadID)
	s.bus.Publish(event.New(event.TypeCommentPosted, comment, &authorID, now))
	return comment, nil
}

// Delete hard-deletes exactly one comment. Its replies are not touched.
func (s *CommentService) Delete(ctx context.Context, commentID int64, actorID *int64) error {
	if err := s.comments.Delete(ctx, commentID); err != nil {
		return err
	}

	slog.Info("comment deleted", "comment_id", commentID)
	s.bus.Publish(event.New(event.TypeCommentDeleted, map[string]int64{"comment_id": commentID}, actorID, s.clock.Now()))
	return nil
}

func (s *CommentService) Get(ctx context.Context, commentID int64) (model.Comment, error) {
	return s.comments.FindByID(ctx, commentID)
}

// ListReplies yields the direct replies of a comment, oldest first. For a
// comment that does not exist the sequence yields a single model.ErrNotFound.
func (s *CommentService) ListReplies(ctx context.Context, commentID int64, pageSize int) iter.Seq2[model.Comment, error] {
	return func(yield func(model.Comment, error) bool) {
		if _, err := s.comments.FindByID(ctx, commentID); err != nil {
			yield(model.Comment{}, err)
			return
		}

		replies := keysetSeq(ctx, pageSize, func(ctx context.Context, after *model.Cursor, limit int) ([]model.Comment, error) {
			return s.comments.ListChildren(ctx, commentID, after, limit)
		})
		for reply, err := range replies {
			if !yield(reply, err) {
				return
			}
		}
	}
}

// CountReplies counts direct replies on every call. Replies of a deleted
// comment are still counted under its id; an id with no row and no replies
// is model.ErrNotFound.
func (s *CommentService) CountReplies(ctx context.Context, commentID int64) (int, error) {
	count, err := s.comments.CountChildren(ctx, commentID)
	if err != nil || count > 0 {
		return count, err
	}
	if _, err := s.comments.FindByID(ctx, commentID); err != nil {
		return 0, err
	}
	return 0, nil
}

// ListThread yields a thread's top-level comments with their reply counts.
func (s *CommentService) ListThread(ctx context.Context, threadID int64, pageSize int) iter.Seq2[model.Comment, error] {
	return func(yield func(model.Comment, error) bool) {
		exists, err := s.threads.Exists(ctx, threadID)
		if err == nil && !exists {
			err = fmt.Errorf("thread %d: %w", threadID, model.ErrNotFound)
		}
		if err != nil {
			yield(model.Comment{}, err)
			return
		}

		roots := keysetSeq(ctx, pageSize, func(ctx context.Context, after *model.Cursor, limit int) ([]model.Comment, error) {
			return s.comments.ListTopLevel(ctx, threadID, after, limit)
		})
		for c, err := range roots {
			if !yield(c, err) {
				return
			}
		}
	}
}

// Subtree returns the root and its descendants in breadth-first order, one
// query per level. maxDepth <= 0 means no limit; the root is depth 0.
func (s *CommentService) Subtree(ctx context.Context, rootID int64, maxDepth int) ([]model.CommentNode, error) {
	root, err := s.comments.FindByID(ctx, rootID)
	if err != nil {
		return nil, err
	}

	nodes := []model.CommentNode{{Comment: root, Depth: 0}}
	err = s.walk(ctx, rootID, maxDepth, func(c model.Comment, depth int) {
		nodes = append(nodes, model.CommentNode{Comment: c, Depth: depth})
	})
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

// CountDescendants counts every comment below rootID, at any depth.
func (s *CommentService) CountDescendants(ctx context.Context, rootID int64) (int, error) {
	count := 0
	err := s.walk(ctx, rootID, 0, func(model.Comment, int) { count++ })
	return count, err
}

// walk visits the descendants of rootID level by level using an explicit
// frontier, so chain depth never grows the call stack. Ids already seen are
// skipped so damaged data cannot loop forever.
func (s *CommentService) walk(ctx context.Context, rootID int64, maxDepth int, visit func(model.Comment, int)) error {
	seen := map[int64]bool{rootID: true}
	frontier := []int64{rootID}

	for depth := 1; len(frontier) > 0; depth++ {
		if maxDepth > 0 && depth > maxDepth {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		children, err := s.comments.ListChildrenOf(ctx, frontier)
		if err != nil {
			return err
		}

		frontier = frontier[:0]
		for _, child := range children {
			if seen[child.ID] {
				continue
			}
			seen[child.ID] = true
			visit(child, depth)
			frontier = append(frontier, child.ID)
		}
	}
	return nil
}
