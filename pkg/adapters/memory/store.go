package memory

import (
	"context"
	"sync"

	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/ports"
)

type sessionData struct {
	bags     map[string]domain.JourneyData
	metadata map[string]domain.JourneyMetadata
}

func (d *sessionData) empty() bool {
	return len(d.bags) == 0 && len(d.metadata) == 0
}

// Store implements ports.SessionStore in memory.
// Safe for concurrent use.
type Store struct {
	sessions map[string]*sessionData
	mu       sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*sessionData),
	}
}

// Session returns the answer store of a session.
func (s *Store) Session(sessionID string) ports.AnswerStore {
	return &answers{store: s, sessionID: sessionID}
}

// List returns the sessions holding data.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.sessions))
	for id, data := range s.sessions {
		if !data.empty() {
			sessions = append(sessions, id)
		}
	}
	return sessions, nil
}

// Delete removes a session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Snapshot returns a copy of a session's data.
func (s *Store) Snapshot(ctx context.Context, sessionID string) (*ports.SessionSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.sessions[sessionID]
	if !ok || data.empty() {
		return nil, domain.ErrSessionNotFound
	}

	snap := &ports.SessionSnapshot{
		Metadata: make(map[string]domain.JourneyMetadata, len(data.metadata)),
		Bags:     make(map[string]domain.JourneyData, len(data.bags)),
	}
	for id, md := range data.metadata {
		snap.Metadata[id] = md
	}
	for key, bag := range data.bags {
		snap.Bags[key] = deepCopy(bag).(domain.JourneyData)
	}
	return snap, nil
}

// session returns the data of a session, creating it when create is set.
// The caller must hold the lock matching create.
func (s *Store) session(sessionID string, create bool) *sessionData {
	data, ok := s.sessions[sessionID]
	if !ok && create {
		data = &sessionData{
			bags:     make(map[string]domain.JourneyData),
			metadata: make(map[string]domain.JourneyMetadata),
		}
		s.sessions[sessionID] = data
	}
	return data
}

// answers is the AnswerStore of one session.
type answers struct {
	store     *Store
	sessionID string
}

func (a *answers) Get(ctx context.Context, dataKey, key string) (any, bool, error) {
	a.store.mu.RLock()
	defer a.store.mu.RUnlock()

	data := a.store.session(a.sessionID, false)
	if data == nil {
		return nil, false, nil
	}
	value, ok := data.bags[dataKey][key]
	if !ok {
		return nil, false, nil
	}
	// Copy on read so callers can't mutate the store through shared maps
	return deepCopy(value), true, nil
}

func (a *answers) Set(ctx context.Context, dataKey, key string, value any) error {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()

	data := a.store.session(a.sessionID, true)
	bag, ok := data.bags[dataKey]
	if !ok {
		bag = domain.JourneyData{}
		data.bags[dataKey] = bag
	}
	bag[key] = deepCopy(value)
	return nil
}

func (a *answers) Remove(ctx context.Context, dataKey string) error {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()

	if data := a.store.session(a.sessionID, false); data != nil {
		delete(data.bags, dataKey)
	}
	return nil
}

func (a *answers) GetMetadata(ctx context.Context, journeyID string) (domain.JourneyMetadata, error) {
	a.store.mu.RLock()
	defer a.store.mu.RUnlock()

	data := a.store.session(a.sessionID, false)
	if data == nil {
		return domain.JourneyMetadata{}, domain.ErrJourneyNotFound
	}
	md, ok := data.metadata[journeyID]
	if !ok {
		return domain.JourneyMetadata{}, domain.ErrJourneyNotFound
	}
	return md, nil
}

func (a *answers) SetMetadata(ctx context.Context, journeyID string, metadata domain.JourneyMetadata) error {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()

	a.store.session(a.sessionID, true).metadata[journeyID] = metadata
	return nil
}

func (a *answers) RemoveMetadata(ctx context.Context, journeyID string) error {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()

	if data := a.store.session(a.sessionID, false); data != nil {
		delete(data.metadata, journeyID)
	}
	return nil
}

// deepCopy copies the map and slice shapes a form submission can produce.
func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = deepCopy(e)
		}
		return out
	case domain.PageData:
		return domain.PageData(deepCopy(map[string]any(val)).(map[string]any))
	case domain.JourneyData:
		return domain.JourneyData(deepCopy(map[string]any(val)).(map[string]any))
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = deepCopy(e)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}
