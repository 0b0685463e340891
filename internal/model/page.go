package model

import "time"

// Cursor is a keyset position: the ordering timestamp and id of the last row seen.
type Cursor struct {
	At time.Time
	ID int64
}

// PageLimits bounds listing sizes. Storage never returns more than
// HardMaxPageSize rows per query.
type PageLimits struct {
	Default int
	Max     int
}

const HardMaxPageSize = 500

var DefaultPageLimits = PageLimits{Default: 50, Max: HardMaxPageSize}

type PageQuery struct {
	Page  int
	Limit int
}

// Normalize applies DefaultPageLimits.
func (q PageQuery) Normalize() PageQuery {
	return q.NormalizeWith(DefaultPageLimits)
}

func (q PageQuery) NormalizeWith(limits PageLimits) PageQuery {
	maxLimit := min(limits.Max, HardMaxPageSize)
	if maxLimit <= 0 {
		maxLimit = HardMaxPageSize
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = limits.Default
	}
	if q.Limit <= 0 {
		q.Limit = DefaultPageLimits.Default
	}
	q.Limit = min(q.Limit, maxLimit)
	return q
}

func (q PageQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}
