package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/ordset/internal/ir"
)

// marshalLabels converts labels to canonical JSON TEXT for storage.
// A nil slice is stored as [] so the column stays NOT NULL.
func marshalLabels(labels []string) (string, error) {
	arr := make(ir.IRArray, len(labels))
	for i, l := range labels {
		arr[i] = ir.IRString(l)
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal labels: %w", err)
	}
	return string(data), nil
}

// unmarshalLabels parses the labels column. An empty array yields nil so
// a round trip of an item without labels is exact.
func unmarshalLabels(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var labels []string
	if err := json.Unmarshal([]byte(data), &labels); err != nil {
		return nil, fmt.Errorf("unmarshal labels: %w", err)
	}
	return labels, nil
}

// formatTime renders t as RFC 3339 UTC with nanoseconds.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

// nullableList stores both nil and "" as NULL.
func nullableList(list *string) sql.NullString {
	if list == nil || *list == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *list, Valid: true}
}
