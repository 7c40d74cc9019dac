package ports

import (
	"context"

	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
)

// AnswerStore is the session scoped boundary the journey engine reads and writes.
// All answer bags and metadata entries of one user session live behind one AnswerStore.
type AnswerStore interface {
	// Get returns the value stored under key in the bag addressed by dataKey.
	// The boolean is false when the bag or the key does not exist.
	Get(ctx context.Context, dataKey, key string) (any, bool, error)

	// Set merges a single key into the bag addressed by dataKey.
	// Keys not referenced by the write are preserved.
	Set(ctx context.Context, dataKey, key string, value any) error

	// Remove deletes the whole bag addressed by dataKey.
	Remove(ctx context.Context, dataKey string) error

	// GetMetadata resolves a journey identifier.
	// Returns domain.ErrJourneyNotFound if the identifier is unknown.
	GetMetadata(ctx context.Context, journeyID string) (domain.JourneyMetadata, error)

	// SetMetadata stores the metadata for a journey identifier.
	SetMetadata(ctx context.Context, journeyID string, metadata domain.JourneyMetadata) error

	// RemoveMetadata deletes the metadata entry for a journey identifier.
	RemoveMetadata(ctx context.Context, journeyID string) error
}

// SessionSnapshot is a read-only copy of everything stored for one session.
type SessionSnapshot struct {
	Metadata map[string]domain.JourneyMetadata `json:"metadata"`
	Bags     map[string]domain.JourneyData     `json:"bags"`
}

// SessionStore hands out AnswerStores scoped to user sessions.
type SessionStore interface {
	// Session returns the AnswerStore for a session. It never fails; sessions are created lazily on first write.
	Session(sessionID string) AnswerStore

	// List returns the identifiers of sessions holding data.
	List(ctx context.Context) ([]string, error)

	// Delete removes every bag and metadata entry of a session.
	Delete(ctx context.Context, sessionID string) error

	// Snapshot returns a copy of a session's data.
	// Returns domain.ErrSessionNotFound if the session holds no data.
	Snapshot(ctx context.Context, sessionID string) (*SessionSnapshot, error)
}
