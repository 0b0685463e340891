package snapshot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureRoundTrip(t *testing.T) {
	t.Parallel()

	entity := Entity{
		Table: "articles",
		ID:    42,
		Fields: map[string]any{
			"id":         int64(42),
			"title":      "Sorting glass at home",
			"status":     "PUBLISHED",
			"summary":    nil,
			"price":      12.75,
			"pinned":     true,
			"created_at": "2026-03-01T10:00:00Z",
			"metadata": map[string]any{
				"tags":  []any{"glass", "sorting"},
				"views": 1024,
				"extra": nil,
			},
		},
	}

	snap, err := Capture(entity)
	require.NoError(t, err)

	encoded, err := Encode(snap)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)

	assert.Equal(t, snap, decoded)

	summary, ok := decoded.Get("summary")
	require.True(t, ok, "null field must survive the round trip")
	assert.Nil(t, summary)

	metadata, ok := decoded["metadata"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"glass", "sorting"}, metadata["tags"])
	assert.Equal(t, json.Number("1024"), metadata["views"])
	assert.Contains(t, metadata, "extra")

	id, ok := decoded.Int64("id")
	require.True(t, ok)
	assert.Equal(t, int64(42), id)
}

func TestCaptureKeepsOnlyFields(t *testing.T) {
	t.Parallel()

	snap, err := Capture(Entity{Table: "threads", ID: 3, Fields: map[string]any{"title": "A", "status": "PUBLISHED"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"status", "title"}, snap.Fields())
	assert.Equal(t, Snapshot{"title": "A", "status": "PUBLISHED"}, snap)
}

func TestCaptureIsDeterministic(t *testing.T) {
	t.Parallel()

	first, err := Capture(Entity{Fields: map[string]any{"b": 2, "a": 1, "c": []any{3, nil}}})
	require.NoError(t, err)
	second, err := Capture(Entity{Fields: map[string]any{"c": []any{3, nil}, "a": 1, "b": 2}})
	require.NoError(t, err)

	left, err := Encode(first)
	require.NoError(t, err)
	right, err := Encode(second)
	require.NoError(t, err)

	assert.JSONEq(t, string(left), string(right))
	assert.Equal(t, string(left), string(right))
}

func TestCaptureLargeIntegersStayExact(t *testing.T) {
	t.Parallel()

	snap, err := Capture(Entity{Fields: map[string]any{"id": int64(9007199254740993)}})
	require.NoError(t, err)

	id, ok := snap.Int64("id")
	require.True(t, ok)
	assert.Equal(t, int64(9007199254740993), id)
}

func TestCaptureRejectsUnencodableValues(t *testing.T) {
	t.Parallel()

	_, err := Capture(Entity{Table: "articles", ID: 1, Fields: map[string]any{"ch": make(chan int)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capture articles#1")
}

func TestDecode(t *testing.T) {
	t.Parallel()

	t.Run("null document decodes to empty snapshot", func(t *testing.T) {
		snap, err := Decode([]byte("null"))
		require.NoError(t, err)
		assert.Empty(t, snap)
	})

	t.Run("rejects trailing data", func(t *testing.T) {
		_, err := Decode([]byte(`{"a":1} {"b":2}`))
		require.Error(t, err)
	})

	t.Run("rejects non-object documents", func(t *testing.T) {
		_, err := Decode([]byte(`[1,2,3]`))
		require.Error(t, err)
	})

	t.Run("nil snapshot encodes as empty object", func(t *testing.T) {
		data, err := Encode(nil)
		require.NoError(t, err)
		assert.Equal(t, "{}", string(data))
	})
}
