package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageQuery_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   PageQuery
		want PageQuery
	}{
		{"zero value", PageQuery{}, PageQuery{Page: 1, Limit: 50}},
		{"negative page", PageQuery{Page: -3, Limit: 10}, PageQuery{Page: 1, Limit: 10}},
		{"over max", PageQuery{Page: 2, Limit: 10000}, PageQuery{Page: 2, Limit: 500}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestPageQuery_NormalizeWith(t *testing.T) {
	limits := PageLimits{Default: 20, Max: 100}

	assert.Equal(t, PageQuery{Page: 1, Limit: 20}, PageQuery{}.NormalizeWith(limits))
	assert.Equal(t, PageQuery{Page: 1, Limit: 100}, PageQuery{Limit: 250}.NormalizeWith(limits))
	assert.Equal(t, PageQuery{Page: 1, Limit: 500}, PageQuery{Limit: 9000}.NormalizeWith(PageLimits{Default: 10, Max: 9000}), "storage cap wins")
	assert.Equal(t, 40, PageQuery{Page: 3, Limit: 20}.Offset())
}
