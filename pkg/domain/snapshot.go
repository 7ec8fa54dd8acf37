package domain

import (
	"slices"
	"time"
)

// Snapshot is the persisted record of one actor.
type Snapshot struct {
	ID        string         `json:"id"`
	State     string         `json:"state"`
	Context   map[string]any `json:"context"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Clone returns a copy whose context map can be modified without affecting s.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Context = CloneContext(s.Context)
	return &out
}

// CloneContext deep-copies a context map. Nested maps and slices are copied so the
// result shares no mutable state with ctx. A nil context becomes an empty map.
func CloneContext(ctx map[string]any) map[string]any {
	if ctx == nil {
		return make(map[string]any)
	}
	return cloneMap(ctx)
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if t == nil {
			return t
		}
		return cloneMap(t)
	case []any:
		if t == nil {
			return t
		}
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return slices.Clone(t)
	case []int:
		return slices.Clone(t)
	case []int64:
		return slices.Clone(t)
	case []float64:
		return slices.Clone(t)
	case []bool:
		return slices.Clone(t)
	default:
		return v
	}
}

// Timestamp normalizes t to the precision every adapter can round-trip: UTC, milliseconds.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
