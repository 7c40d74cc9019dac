package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/renameio/v2"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/ports"
)

// DefaultBasePath is used when no directory is configured.
var DefaultBasePath = filepath.Join(".prsdb", "sessions")

// Store implements ports.SessionStore using the local filesystem.
// It stores each session as one JSON file in a configured directory and
// replaces the file atomically on every write.
type Store struct {
	BasePath string

	mu sync.Mutex
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to DefaultBasePath.
func New(basePath string) *Store {
	if basePath == "" {
		basePath = DefaultBasePath
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(sessionID string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("sessionID cannot be empty")
	}
	if strings.ContainsAny(sessionID, `/\`) || sessionID == "." || sessionID == ".." {
		return "", fmt.Errorf("invalid sessionID %q", sessionID)
	}
	return filepath.Join(s.BasePath, sessionID+".json"), nil
}

// load reads a session file. A missing file is an empty session.
// The caller must hold s.mu.
func (s *Store) load(sessionID string) (*ports.SessionSnapshot, error) {
	path, err := s.path(sessionID)
	if err != nil {
		return nil, err
	}

	snap := &ports.SessionSnapshot{
		Metadata: map[string]domain.JourneyMetadata{},
		Bags:     map[string]domain.JourneyData{},
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return snap, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if snap.Metadata == nil {
		snap.Metadata = map[string]domain.JourneyMetadata{}
	}
	if snap.Bags == nil {
		snap.Bags = map[string]domain.JourneyData{}
	}
	return snap, nil
}

// save writes a session file atomically, or removes it when the session is empty.
// The caller must hold s.mu.
func (s *Store) save(sessionID string, snap *ports.SessionSnapshot) error {
	path, err := s.path(sessionID)
	if err != nil {
		return err
	}
	if len(snap.Metadata) == 0 && len(snap.Bags) == 0 {
		return s.remove(path)
	}

	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure session directory: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// renameio handles: temp file creation, fsync, atomic rename, cleanup on error
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("create pending session file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace session file: %w", err)
	}
	return nil
}

func (s *Store) remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// update runs a read-modify-write cycle on a session file.
func (s *Store) update(sessionID string, fn func(snap *ports.SessionSnapshot)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(sessionID)
	if err != nil {
		return err
	}
	fn(snap)
	return s.save(sessionID, snap)
}

// Session returns the answer store of a session.
func (s *Store) Session(sessionID string) ports.AnswerStore {
	return &answers{store: s, sessionID: sessionID}
}

// List returns all session IDs with a file on disk.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var sessions []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, ".") {
			continue
		}
		sessions = append(sessions, strings.TrimSuffix(name, ".json"))
	}
	return sessions, nil
}

// Delete removes the session file.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.path(sessionID)
	if err != nil {
		return err
	}
	return s.remove(path)
}

// Snapshot returns a copy of a session's data.
func (s *Store) Snapshot(ctx context.Context, sessionID string) (*ports.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(sessionID)
	if err != nil {
		return nil, err
	}
	if len(snap.Metadata) == 0 && len(snap.Bags) == 0 {
		return nil, domain.ErrSessionNotFound
	}
	return snap, nil
}

// answers is the AnswerStore of one session.
type answers struct {
	store     *Store
	sessionID string
}

func (a *answers) read() (*ports.SessionSnapshot, error) {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	return a.store.load(a.sessionID)
}

func (a *answers) Get(ctx context.Context, dataKey, key string) (any, bool, error) {
	snap, err := a.read()
	if err != nil {
		return nil, false, err
	}
	value, ok := snap.Bags[dataKey][key]
	return value, ok, nil
}

func (a *answers) Set(ctx context.Context, dataKey, key string, value any) error {
	return a.store.update(a.sessionID, func(snap *ports.SessionSnapshot) {
		bag, ok := snap.Bags[dataKey]
		if !ok {
			bag = domain.JourneyData{}
			snap.Bags[dataKey] = bag
		}
		bag[key] = value
	})
}

func (a *answers) Remove(ctx context.Context, dataKey string) error {
	return a.store.update(a.sessionID, func(snap *ports.SessionSnapshot) {
		delete(snap.Bags, dataKey)
	})
}

func (a *answers) GetMetadata(ctx context.Context, journeyID string) (domain.JourneyMetadata, error) {
	snap, err := a.read()
	if err != nil {
		return domain.JourneyMetadata{}, err
	}
	md, ok := snap.Metadata[journeyID]
	if !ok {
		return domain.JourneyMetadata{}, domain.ErrJourneyNotFound
	}
	return md, nil
}

func (a *answers) SetMetadata(ctx context.Context, journeyID string, metadata domain.JourneyMetadata) error {
	return a.store.update(a.sessionID, func(snap *ports.SessionSnapshot) {
		snap.Metadata[journeyID] = metadata
	})
}

func (a *answers) RemoveMetadata(ctx context.Context, journeyID string) error {
	return a.store.update(a.sessionID, func(snap *ports.SessionSnapshot) {
		delete(snap.Metadata, journeyID)
	})
}
