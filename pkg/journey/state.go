package journey

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strconv"
	"sync"

	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/internal/logging"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/ports"
)

// StepDataKey is the reserved bag key under which every step submission is accumulated.
const StepDataKey = "journeyData"

// Initializer seeds the answer bag of a newly created journey.
type Initializer func(ctx context.Context, state *StateService) error

// StateService is the journey answer store for one journey identifier.
// Every read and write resolves the identifier's metadata first and addresses
// the answer bag through its DataKey, so a journey and its sub-journeys share answers.
//
// A service caches what it reads for its lifetime, which is one request.
// Services derived with ForJourney share the cache; writes through any of them
// update it. Writes made to the store behind its back are not seen.
type StateService struct {
	store     ports.AnswerStore
	journeyID string
	logger    *slog.Logger
	cache     *answerCache
}

type cachedValue struct {
	value any
	ok    bool
}

// answerCache holds metadata and bag values read during one request.
// version changes on every write so memoised step results can be dropped.
type answerCache struct {
	mu       sync.Mutex
	version  uint64
	metadata map[string]domain.JourneyMetadata
	values   map[string]map[string]cachedValue
}

func newAnswerCache() *answerCache {
	return &answerCache{
		metadata: map[string]domain.JourneyMetadata{},
		values:   map[string]map[string]cachedValue{},
	}
}

func (c *answerCache) getMetadata(id string) (domain.JourneyMetadata, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	md, ok := c.metadata[id]
	return md, ok
}

func (c *answerCache) putMetadata(id string, md domain.JourneyMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadata[id] = md
}

func (c *answerCache) get(dataKey, key string) (cachedValue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[dataKey][key]
	return v, ok
}

func (c *answerCache) put(dataKey, key string, v cachedValue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bag, ok := c.values[dataKey]
	if !ok {
		bag = map[string]cachedValue{}
		c.values[dataKey] = bag
	}
	bag[key] = v
}

// wrote records a write of key, or of the whole bag when key is "".
func (c *answerCache) wrote(dataKey, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version++
	if key == "" {
		delete(c.values, dataKey)
		return
	}
	delete(c.values[dataKey], key)
}

func (c *answerCache) forget(journeyID, dataKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version++
	delete(c.metadata, journeyID)
	delete(c.values, dataKey)
}

func (c *answerCache) currentVersion() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// StateOption configures a StateService.
type StateOption func(*StateService)

// WithStateLogger configures a logger for the StateService.
func WithStateLogger(logger *slog.Logger) StateOption {
	return func(s *StateService) {
		s.logger = logger
	}
}

// NewStateService scopes a session's answer store to a journey identifier.
// An empty identifier is allowed; it resolves to domain.ErrJourneyNotFound.
func NewStateService(store ports.AnswerStore, journeyID string, opts ...StateOption) *StateService {
	s := &StateService{
		store:     store,
		journeyID: journeyID,
		logger:    logging.NewNop(),
		cache:     newAnswerCache(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// JourneyID returns the identifier the service is scoped to.
func (s *StateService) JourneyID() string {
	return s.journeyID
}

// ForJourney returns a service over the same session scoped to another identifier.
func (s *StateService) ForJourney(journeyID string) *StateService {
	return &StateService{store: s.store, journeyID: journeyID, logger: s.logger, cache: s.cache}
}

// version identifies the state of the answers seen by this service.
func (s *StateService) version() uint64 {
	return s.cache.currentVersion()
}

// Metadata resolves the current journey identifier.
func (s *StateService) Metadata(ctx context.Context) (domain.JourneyMetadata, error) {
	if s.journeyID == "" {
		return domain.JourneyMetadata{}, domain.ErrJourneyNotFound
	}
	if md, ok := s.cache.getMetadata(s.journeyID); ok {
		return md, nil
	}
	md, err := s.store.GetMetadata(ctx, s.journeyID)
	if err != nil {
		if errors.Is(err, domain.ErrJourneyNotFound) {
			return domain.JourneyMetadata{}, fmt.Errorf("journey %q: %w", s.journeyID, err)
		}
		return domain.JourneyMetadata{}, fmt.Errorf("failed to resolve journey %q: %w", s.journeyID, err)
	}
	s.cache.putMetadata(s.journeyID, md)
	return md, nil
}

// GetValue returns the value stored under key. The boolean is false when the key is unset.
func (s *StateService) GetValue(ctx context.Context, key string) (any, bool, error) {
	md, err := s.Metadata(ctx)
	if err != nil {
		return nil, false, err
	}
	if v, ok := s.cache.get(md.DataKey, key); ok {
		return v.value, v.ok, nil
	}
	value, ok, err := s.store.Get(ctx, md.DataKey, key)
	if err != nil {
		return nil, false, err
	}
	s.cache.put(md.DataKey, key, cachedValue{value: value, ok: ok})
	return value, ok, nil
}

// SetValue merges a single key into the journey's answer bag.
func (s *StateService) SetValue(ctx context.Context, key string, value any) error {
	md, err := s.Metadata(ctx)
	if err != nil {
		return err
	}
	err = s.store.Set(ctx, md.DataKey, key, value)
	s.cache.wrote(md.DataKey, key)
	if err != nil {
		return fmt.Errorf("failed to set %q: %w", key, err)
	}
	return nil
}

// SubmittedStepData returns every step submission recorded for the journey, keyed by step.
func (s *StateService) SubmittedStepData(ctx context.Context) (map[string]domain.PageData, error) {
	raw, ok, err := s.GetValue(ctx, StepDataKey)
	if err != nil || !ok {
		return map[string]domain.PageData{}, err
	}
	return stepDataOf(raw), nil
}

// StepData returns the submission recorded for a single step.
func (s *StateService) StepData(ctx context.Context, key string) (domain.PageData, bool, error) {
	all, err := s.SubmittedStepData(ctx)
	if err != nil {
		return nil, false, err
	}
	data, ok := all[key]
	return data, ok, nil
}

// AddSingleStepData records the submission of one step, preserving the others.
func (s *StateService) AddSingleStepData(ctx context.Context, key string, data domain.PageData) error {
	all, err := s.SubmittedStepData(ctx)
	if err != nil {
		return err
	}

	merged := make(map[string]any, len(all)+1)
	for k, v := range all {
		merged[k] = map[string]any(v)
	}
	page := make(map[string]any, len(data))
	for k, v := range data {
		page[k] = v
	}
	merged[key] = page

	return s.SetValue(ctx, StepDataKey, merged)
}

// DeleteState removes the answer bag and the metadata of the current identifier.
// Other identifiers sharing the bag keep their metadata and resolve to an empty bag.
func (s *StateService) DeleteState(ctx context.Context) error {
	md, err := s.Metadata(ctx)
	if err != nil {
		return err
	}
	defer s.cache.forget(s.journeyID, md.DataKey)
	if err := s.store.Remove(ctx, md.DataKey); err != nil {
		return fmt.Errorf("failed to remove journey data: %w", err)
	}
	if err := s.store.RemoveMetadata(ctx, s.journeyID); err != nil {
		return fmt.Errorf("failed to remove journey metadata: %w", err)
	}
	s.logger.Debug("Journey state deleted", "journey_id", s.journeyID)
	return nil
}

// InitializeJourneyWithID creates metadata with a fresh DataKey for id.
// The initializer runs once, against a service scoped to id, only when the
// metadata was actually created. Re-initialising an existing id is a no-op.
func (s *StateService) InitializeJourneyWithID(ctx context.Context, id string, initializer Initializer) error {
	exists, err := s.exists(ctx, id)
	if err != nil || exists {
		return err
	}

	md := domain.NewJourneyMetadata()
	if err := s.store.SetMetadata(ctx, id, md); err != nil {
		return fmt.Errorf("failed to initialise journey %q: %w", id, err)
	}
	s.cache.putMetadata(id, md)
	s.logger.Debug("Journey initialised", "journey_id", id)

	if initializer == nil {
		return nil
	}
	if err := initializer(ctx, s.ForJourney(id)); err != nil {
		return fmt.Errorf("failed to run initialiser for journey %q: %w", id, err)
	}
	return nil
}

// InitializeSubJourney creates metadata for id sharing the current journey's DataKey.
// Re-initialising an existing id is a no-op.
func (s *StateService) InitializeSubJourney(ctx context.Context, id, name string) error {
	current, err := s.Metadata(ctx)
	if err != nil {
		return err
	}

	exists, err := s.exists(ctx, id)
	if err != nil || exists {
		return err
	}

	md := domain.JourneyMetadata{
		DataKey:        current.DataKey,
		BaseJourneyID:  s.journeyID,
		SubJourneyName: name,
	}
	if err := s.store.SetMetadata(ctx, id, md); err != nil {
		return fmt.Errorf("failed to initialise sub-journey %q: %w", id, err)
	}
	s.cache.putMetadata(id, md)
	s.logger.Debug("Sub-journey initialised", "journey_id", id, "base_journey_id", s.journeyID, "name", name)
	return nil
}

// exists reports whether id already has metadata.
func (s *StateService) exists(ctx context.Context, id string) (bool, error) {
	if _, ok := s.cache.getMetadata(id); ok {
		return true, nil
	}
	md, err := s.store.GetMetadata(ctx, id)
	if err == nil {
		s.cache.putMetadata(id, md)
		return true, nil
	}
	if !errors.Is(err, domain.ErrJourneyNotFound) {
		return false, fmt.Errorf("failed to check journey %q: %w", id, err)
	}
	return false, nil
}

// SubJourneyName returns the name of the current sub-journey, or "" for a base journey.
func (s *StateService) SubJourneyName(ctx context.Context) (string, error) {
	md, err := s.Metadata(ctx)
	if err != nil {
		return "", err
	}
	return md.SubJourneyName, nil
}

// URLWithJourneyState attaches a journey identifier to path.
func URLWithJourneyState(path, journeyID string) string {
	return domain.WithJourneyID(path, journeyID)
}

// GenerateJourneyID derives a stable base-36 journey identifier from seed.
func GenerateJourneyID(seed string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	return strconv.FormatUint(uint64(h.Sum32()*111113111&0x7FFFFFFF), 36)
}

func stepDataOf(raw any) map[string]domain.PageData {
	out := map[string]domain.PageData{}
	switch v := raw.(type) {
	case map[string]domain.PageData:
		for k, data := range v {
			out[k] = data
		}
	case map[string]any:
		for k, entry := range v {
			if data, ok := domain.AsPageData(entry); ok {
				out[k] = data
			}
		}
	case domain.JourneyData:
		for k, entry := range v {
			if data, ok := domain.AsPageData(entry); ok {
				out[k] = data
			}
		}
	}
	return out
}
