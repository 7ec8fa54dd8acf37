package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/transito/internal/presentation/graph"
	"github.com/aretw0/transito/internal/testutil"
)

func TestGenerateMermaid(t *testing.T) {
	def := testutil.ExampleDefinition(t)

	tests := []struct {
		name     string
		overlay  *graph.Overlay
		contains []string
		excludes []string
	}{
		{
			name: "Shapes And Edges",
			contains: []string{
				"graph TD\n",
				`inactive(("inactive"))`,
				`activating[["activating"]]`,
				`active["active"]`,
				`inactive -- "activate" --> activating`,
				`activating -- "ok" --> active`,
				`activating -. "error" .-> failed`,
				`failed -- "retry" --> activating`,
			},
			excludes: []string{"classDef"},
		},
		{
			name:    "Overlay",
			overlay: &graph.Overlay{VisitedStates: []string{"inactive", "activating", "inactive"}, CurrentState: "active"},
			contains: []string{
				"classDef visited",
				"class inactive visited;",
				"class activating visited;",
				"class active current;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := graph.GenerateMermaid(def, tt.overlay)
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(out, unwanted) {
					t.Errorf("output should not contain %q:\n%s", unwanted, out)
				}
			}
			if tt.overlay != nil && strings.Count(out, "class inactive visited;") != 1 {
				t.Errorf("visited states must be deduplicated:\n%s", out)
			}
		})
	}
}
