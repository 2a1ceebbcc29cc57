// Package sanitize guarantees values are representable in the local store's
// JSON format before they are cached or queued. Closed record types are
// encoded with their declared schema; open metadata maps are scrubbed
// recursively, dropping individual fields that cannot be encoded instead of
// failing the whole object.
package sanitize

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"example.com/liftsync/internal/domain"
)

// Record encodes one of the closed record types (Template, Session,
// UserSnapshot, patches). The type's declared fields are the schema, so the
// output never contains unrepresentable values.
func Record(v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return body, nil
}

// User returns a copy of the auth user reduced to the cacheable projection:
// id, email, scrubbed metadata and timestamps.
func User(u *domain.AuthUser) *domain.AuthUser {
	if u == nil {
		return nil
	}
	return &domain.AuthUser{
		ID:        u.ID,
		Email:     u.Email,
		Metadata:  Map(u.Metadata),
		CreatedAt: u.CreatedAt.UTC(),
		UpdatedAt: u.UpdatedAt.UTC(),
	}
}

// Map scrubs an open metadata map. Function values, channels, nil entries and
// anything that fails a probe encode are dropped; date values are
// canonicalized to RFC 3339 UTC strings; nested maps and slices are scrubbed
// recursively.
func Map(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for key, value := range m {
		if clean, ok := Value(value); ok {
			out[key] = clean
		}
	}
	return out
}

// Value scrubs a single value. The second return reports whether the value
// survived.
func Value(v any) (any, bool) {
	if v == nil {
		return nil, false
	}

	switch typed := v.(type) {
	case time.Time:
		return typed.UTC().Format(time.RFC3339), true
	case *time.Time:
		if typed == nil {
			return nil, false
		}
		return typed.UTC().Format(time.RFC3339), true
	case map[string]any:
		return Map(typed), true
	case []any:
		out := make([]any, 0, len(typed))
		for _, item := range typed {
			if clean, ok := Value(item); ok {
				out = append(out, clean)
			}
		}
		return out, true
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return typed, true
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return nil, false
	}

	// Probe-encode anything else; a value that cannot be encoded is dropped
	// on its own rather than aborting the caller's write.
	if _, err := json.Marshal(v); err != nil {
		return nil, false
	}
	return v, true
}
