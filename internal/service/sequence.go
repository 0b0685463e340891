package service

import (
	"context"
	"iter"

	"go-ecoforum/internal/model"
)

type pageFetcher[T any] func(ctx context.Context, after *model.Cursor, limit int) ([]T, error)

// keysetSeq walks a keyset-paginated listing one page at a time. Nothing is
// kept between iterations of the returned sequence: ranging over it again
// starts a fresh walk from the first page. The first error is yielded once and
// ends the walk.
func keysetSeq[T interface{ Cursor() model.Cursor }](ctx context.Context, pageSize int, fetch pageFetcher[T]) iter.Seq2[T, error] {
	if pageSize <= 0 {
		pageSize = model.DefaultPageLimits.Default
	}
	pageSize = min(pageSize, model.HardMaxPageSize)

	return func(yield func(T, error) bool) {
		var after *model.Cursor
		for {
			page, err := fetch(ctx, after, pageSize)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}

			for _, item := range page {
				if !yield(item, nil) {
					return
				}
			}

			if len(page) < pageSize {
				return
			}
			cursor := page[len(page)-1].Cursor()
			after = &cursor
		}
	}
}

func failedSeq[T any](err error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		yield(zero, err)
	}
}

// Collect drains a sequence into a slice, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	items := make([]T, 0)
	for item, err := range seq {
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
