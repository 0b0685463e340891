// Package snapshot captures the column values of a soft-deletable row as a
// self-describing JSON document and reads such documents back.
//
// A captured Snapshot only holds canonical JSON values: nil, bool, string,
// json.Number, []any and map[string]any. Numbers stay json.Number so integer
// keys and decimal amounts survive a round trip without float rounding.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Entity is one row of a soft-deletable table.
type Entity struct {
	Table  string
	ID     int64
	Fields map[string]any
}

// Snapshot is the archived field map of an entity.
type Snapshot map[string]any

// Capture returns the canonical snapshot of the entity's fields. Table and ID are
// not added to the document; only what is in Fields is recorded.
func Capture(e Entity) (Snapshot, error) {
	fields := e.Fields
	if fields == nil {
		fields = map[string]any{}
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("capture %s#%d: %w", e.Table, e.ID, err)
	}

	return Decode(raw)
}

// Encode serialises the snapshot. Keys are written in sorted order, so equal
// snapshots always encode to identical bytes.
func Encode(s Snapshot) ([]byte, error) {
	if s == nil {
		return []byte("{}"), nil
	}

	data, err := json.Marshal(map[string]any(s))
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	return data, nil
}

// Decode parses a document produced by Encode.
func Decode(data []byte) (Snapshot, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode snapshot: trailing data after document")
	}

	if fields == nil {
		fields = map[string]any{}
	}

	return Snapshot(fields), nil
}

// Fields returns the field names in sorted order.
func (s Snapshot) Fields() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s Snapshot) Get(name string) (any, bool) {
	v, ok := s[name]
	return v, ok
}

// Int64 reads an integer field, accepting json.Number and the native integer kinds.
func (s Snapshot) Int64(name string) (int64, bool) {
	switch v := s[name].(type) {
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case int64:
		return v, true
	case int:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
