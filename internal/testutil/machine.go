// Package testutil holds fixtures shared by the engine and adapter tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aretw0/transito/pkg/domain"
	"github.com/stretchr/testify/require"
)

// ErrMissingName is returned by Activate when the payload carries no name.
var ErrMissingName = errors.New("activate: payload has no name")

// Activate increments "count" and copies the payload's "name" into the context.
// The payload must be a map with a string "name"; anything else fails.
func Activate(_ context.Context, current map[string]any, payload any) (map[string]any, error) {
	p, ok := payload.(map[string]any)
	if !ok {
		return nil, ErrMissingName
	}
	name, ok := p["name"].(string)
	if !ok || name == "" {
		return nil, ErrMissingName
	}
	current["count"] = Int(current["count"]) + 1
	current["name"] = name
	return current, nil
}

// ExampleConfig is the count/name machine:
//
//	inactive --activate--> activating --(ok)--> active --deactivate--> inactive
//	                          |
//	                          +--(error)--> failed --retry--> activating
func ExampleConfig(entry domain.Action) domain.Config {
	if entry == nil {
		entry = Activate
	}
	return domain.Config{
		Initial: "inactive",
		States: map[string]domain.StateNode{
			"inactive": {On: map[string]domain.Transition{"activate": {Target: "activating"}}},
			"activating": {
				Entry:     entry,
				OnSuccess: &domain.Transition{Target: "active"},
				OnError:   &domain.Transition{Target: "failed"},
			},
			"active": {On: map[string]domain.Transition{"deactivate": {Target: "inactive"}}},
			"failed": {On: map[string]domain.Transition{"retry": {Target: "activating"}}},
		},
	}
}

// ExampleDefinition builds ExampleConfig with the default Activate action.
func ExampleDefinition(t testing.TB) *domain.Definition {
	t.Helper()
	def, err := domain.NewDefinition(ExampleConfig(nil))
	require.NoError(t, err)
	return def
}

// Int reads a numeric context value regardless of how the backend decoded it.
func Int(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float32:
		return int(n)
	case float64:
		return int(n)
	case nil:
		return 0
	default:
		panic(fmt.Sprintf("testutil.Int: unexpected %T", v))
	}
}
