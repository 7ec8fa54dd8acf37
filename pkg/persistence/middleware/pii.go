package middleware

import (
	"context"
	"regexp"
	"time"

	"github.com/aretw0/transito/pkg/domain"
	"github.com/aretw0/transito/pkg/ports"
)

// Mask replaces the value of every masked field.
const Mask = "***"

type piiMiddleware struct {
	passthrough
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks context values whose keys match any
// of the patterns before they reach storage. Nested maps are masked too.
// Masking is one-way: the persisted snapshot, and everything loaded later, carries Mask.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		patterns[i] = re
	}
	return func(next ports.Adapter) ports.Adapter {
		return &piiMiddleware{passthrough: passthrough{next: next}, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Load(ctx context.Context, id string) (*domain.Snapshot, error) {
	return m.next.Load(ctx, id)
}

func (m *piiMiddleware) Create(ctx context.Context, id, state string, data map[string]any) (*domain.Snapshot, error) {
	return m.next.Create(ctx, id, state, m.mask(data))
}

func (m *piiMiddleware) Save(ctx context.Context, snapshot *domain.Snapshot, prevUpdatedAt time.Time) (*domain.Snapshot, error) {
	// Clone so the caller's snapshot keeps the real values.
	masked := snapshot.Clone()
	masked.Context = m.mask(snapshot.Context)
	return m.next.Save(ctx, masked, prevUpdatedAt)
}

func (m *piiMiddleware) mask(data map[string]any) map[string]any {
	out := domain.CloneContext(data)
	maskMap(out, m.patterns)
	return out
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Mask
				break
			}
		}
		if subMap, ok := v.(map[string]any); ok {
			maskMap(subMap, patterns)
		}
	}
}
