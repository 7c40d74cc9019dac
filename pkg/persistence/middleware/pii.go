package middleware

import (
	"context"
	"regexp"

	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/ports"
)

// Mask replaces the value of every masked answer.
const Mask = "***"

type piiMiddleware struct {
	ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks answers whose keys match the
// patterns when a session is inspected. Journeys reading through Session see
// the real values.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{SessionStore: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Snapshot(ctx context.Context, sessionID string) (*ports.SessionSnapshot, error) {
	snap, err := m.SessionStore.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	out := &ports.SessionSnapshot{
		Metadata: snap.Metadata,
		Bags:     make(map[string]domain.JourneyData, len(snap.Bags)),
	}
	for dataKey, bag := range snap.Bags {
		masked := deepCopyMap(bag)
		maskMap(masked, m.patterns)
		out.Bags[dataKey] = masked
	}
	return out, nil
}

// Helpers

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if sub, ok := domain.AsPageData(v); ok {
			out[k] = deepCopyMap(sub)
		} else {
			out[k] = v
		}
	}
	return out
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Mask
				masked = true
				break
			}
		}

		if sub, ok := v.(map[string]any); ok && !masked {
			maskMap(sub, patterns)
		}
	}
}
