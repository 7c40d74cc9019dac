package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/ports"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "prsdb:session:"

// Store implements ports.SessionStore using Redis.
//
// Each answer bag is a hash whose fields are the bag keys, so a single key
// merge is one HSET and needs no read-modify-write. Metadata lives in one hash
// per session keyed by journey identifier. Sessions are indexed in a sorted
// set scored by expiry. Every key of a session expires together: each write
// and each successful read extends all of them.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for sessions. Every write extends it.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) bagKey(sessionID, dataKey string) string {
	return s.prefix + sessionID + ":bag:" + dataKey
}

func (s *Store) bagsKey(sessionID string) string {
	return s.prefix + sessionID + ":bags"
}

func (s *Store) metaKey(sessionID string) string {
	return s.prefix + sessionID + ":meta"
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// expireSession sets the expiry of the metadata hash, the bag set and every
// bag listed in the set. KEYS: meta, bags. ARGV: ttl in ms, bag key prefix.
var expireSession = backend.NewScript(`
local ttl = tonumber(ARGV[1])
redis.call('PEXPIRE', KEYS[1], ttl)
redis.call('PEXPIRE', KEYS[2], ttl)
for _, dataKey in ipairs(redis.call('SMEMBERS', KEYS[2])) do
	redis.call('PEXPIRE', ARGV[2] .. dataKey, ttl)
end
return 0
`)

func (s *Store) score() float64 {
	// Score = Now + TTL. If TTL = 0, Score = +Inf (approx).
	if s.ttl == 0 {
		return 4102444800 // 2100-01-01 (Far enough for now)
	}
	return float64(time.Now().Add(s.ttl).Unix())
}

func (s *Store) expire(ctx context.Context, pipe backend.Pipeliner, sessionID string) {
	if s.ttl <= 0 {
		return
	}
	keys := []string{s.metaKey(sessionID), s.bagsKey(sessionID)}
	expireSession.Eval(ctx, pipe, keys, s.ttl.Milliseconds(), s.bagKey(sessionID, ""))
}

// touch queues the index and expiry updates of a write on pipe.
func (s *Store) touch(ctx context.Context, pipe backend.Pipeliner, sessionID string) {
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: s.score(), Member: sessionID})
	s.expire(ctx, pipe, sessionID)
}

// refresh extends a session that was just read. Sessions missing from the
// index are not added back.
func (s *Store) refresh(ctx context.Context, sessionID string) error {
	if s.ttl <= 0 {
		return nil
	}
	pipe := s.client.TxPipeline()
	pipe.ZAddXX(ctx, s.indexKey(), backend.Z{Score: s.score(), Member: sessionID})
	s.expire(ctx, pipe, sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to refresh session expiry: %w", err)
	}
	return nil
}

// Session returns the answer store of a session.
func (s *Store) Session(sessionID string) ports.AnswerStore {
	return &answers{store: s, sessionID: sessionID}
}

// List returns active sessions from the index.
func (s *Store) List(ctx context.Context) ([]string, error) {
	// Lazy Cleanup: Remove expired sessions from Index
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	sessions, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// Delete removes every bag and metadata entry of a session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	dataKeys, err := s.client.SMembers(ctx, s.bagsKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("failed to list answer bags: %w", err)
	}

	pipe := s.client.TxPipeline()
	for _, dataKey := range dataKeys {
		pipe.Del(ctx, s.bagKey(sessionID, dataKey))
	}
	pipe.Del(ctx, s.bagsKey(sessionID), s.metaKey(sessionID))
	pipe.ZRem(ctx, s.indexKey(), sessionID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Snapshot returns a copy of a session's data.
func (s *Store) Snapshot(ctx context.Context, sessionID string) (*ports.SessionSnapshot, error) {
	rawMeta, err := s.client.HGetAll(ctx, s.metaKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	dataKeys, err := s.client.SMembers(ctx, s.bagsKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list answer bags: %w", err)
	}

	snap := &ports.SessionSnapshot{
		Metadata: make(map[string]domain.JourneyMetadata, len(rawMeta)),
		Bags:     make(map[string]domain.JourneyData, len(dataKeys)),
	}
	for journeyID, raw := range rawMeta {
		var md domain.JourneyMetadata
		if err := json.Unmarshal([]byte(raw), &md); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata of %q: %w", journeyID, err)
		}
		snap.Metadata[journeyID] = md
	}
	for _, dataKey := range dataKeys {
		fields, err := s.client.HGetAll(ctx, s.bagKey(sessionID, dataKey)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read answer bag: %w", err)
		}
		if len(fields) == 0 {
			continue // expired
		}
		bag := make(domain.JourneyData, len(fields))
		for key, raw := range fields {
			var value any
			if err := json.Unmarshal([]byte(raw), &value); err != nil {
				return nil, fmt.Errorf("failed to unmarshal %q: %w", key, err)
			}
			bag[key] = value
		}
		snap.Bags[dataKey] = bag
	}

	if len(snap.Metadata) == 0 && len(snap.Bags) == 0 {
		return nil, domain.ErrSessionNotFound
	}
	return snap, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

// answers is the AnswerStore of one session.
type answers struct {
	store     *Store
	sessionID string
}

func (a *answers) Get(ctx context.Context, dataKey, key string) (any, bool, error) {
	raw, err := a.store.client.HGet(ctx, a.store.bagKey(a.sessionID, dataKey), key).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get from redis: %w", err)
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal %q: %w", key, err)
	}
	if err := a.store.refresh(ctx, a.sessionID); err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (a *answers) Set(ctx context.Context, dataKey, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %q: %w", key, err)
	}

	bag := a.store.bagKey(a.sessionID, dataKey)
	bags := a.store.bagsKey(a.sessionID)

	pipe := a.store.client.TxPipeline()
	pipe.HSet(ctx, bag, key, data)
	pipe.SAdd(ctx, bags, dataKey)
	a.store.touch(ctx, pipe, a.sessionID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

func (a *answers) Remove(ctx context.Context, dataKey string) error {
	pipe := a.store.client.TxPipeline()
	pipe.Del(ctx, a.store.bagKey(a.sessionID, dataKey))
	pipe.SRem(ctx, a.store.bagsKey(a.sessionID), dataKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove answer bag: %w", err)
	}
	return nil
}

func (a *answers) GetMetadata(ctx context.Context, journeyID string) (domain.JourneyMetadata, error) {
	raw, err := a.store.client.HGet(ctx, a.store.metaKey(a.sessionID), journeyID).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return domain.JourneyMetadata{}, domain.ErrJourneyNotFound
		}
		return domain.JourneyMetadata{}, fmt.Errorf("failed to get metadata from redis: %w", err)
	}

	var md domain.JourneyMetadata
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		return domain.JourneyMetadata{}, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	if err := a.store.refresh(ctx, a.sessionID); err != nil {
		return domain.JourneyMetadata{}, err
	}
	return md, nil
}

func (a *answers) SetMetadata(ctx context.Context, journeyID string, metadata domain.JourneyMetadata) error {
	data, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	meta := a.store.metaKey(a.sessionID)
	pipe := a.store.client.TxPipeline()
	pipe.HSet(ctx, meta, journeyID, data)
	a.store.touch(ctx, pipe, a.sessionID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save metadata to redis: %w", err)
	}
	return nil
}

func (a *answers) RemoveMetadata(ctx context.Context, journeyID string) error {
	if err := a.store.client.HDel(ctx, a.store.metaKey(a.sessionID), journeyID).Err(); err != nil {
		return fmt.Errorf("failed to remove metadata: %w", err)
	}
	return nil
}
