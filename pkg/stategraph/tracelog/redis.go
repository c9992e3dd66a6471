package tracelog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces every key a RedisStore writes.
const DefaultRedisPrefix = "stategraph:trace:"

// RedisStore persists entries in Redis. Each run is a list of JSON entries;
// a sorted set indexes runs by first append.
type RedisStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisTTL expires a run's entries ttl after its latest append.
// Zero (the default) keeps entries forever.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithRedisPrefix replaces DefaultRedisPrefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore connects to the Redis server at address.
func NewRedisStore(address, password string, db int, opts ...RedisOption) *RedisStore {
	return NewRedisStoreFromClient(backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	}), opts...)
}

// NewRedisStoreFromClient wraps an existing client. Close closes the client.
func NewRedisStoreFromClient(client *backend.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: DefaultRedisPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) runKey(runID string) string {
	return s.prefix + "run:" + runID
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "runs"
}

func (s *RedisStore) seqKey() string {
	return s.prefix + "seq"
}

// Append implements Store.
func (s *RedisStore) Append(ctx context.Context, e Entry) error {
	if err := validate(e); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal trace entry: %w", err)
	}

	seq, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return fmt.Errorf("allocate sequence: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, s.runKey(e.RunID), data)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.runKey(e.RunID), s.ttl)
	}
	// NX keeps the score of the run's first entry.
	pipe.ZAddNX(ctx, s.indexKey(), backend.Z{Score: float64(seq), Member: e.RunID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append trace entry: %w", err)
	}
	return nil
}

// List implements Store.
func (s *RedisStore) List(ctx context.Context, runID string) ([]Entry, error) {
	raw, err := s.client.LRange(ctx, s.runKey(runID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list trace entries: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("unmarshal trace entry: %w", err)
		}
		entries = append(entries, e)
	}
	sortByStep(entries)
	return entries, nil
}

// Runs implements Store. Runs whose entries expired are pruned from the
// index as they are found.
func (s *RedisStore) Runs(ctx context.Context) ([]string, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	if s.ttl == 0 || len(ids) == 0 {
		return ids, nil
	}

	live := ids[:0]
	for _, id := range ids {
		n, err := s.client.Exists(ctx, s.runKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("check run %s: %w", id, err)
		}
		if n == 0 {
			if err := s.client.ZRem(ctx, s.indexKey(), id).Err(); err != nil {
				return nil, fmt.Errorf("prune run %s: %w", id, err)
			}
			continue
		}
		live = append(live, id)
	}
	return live, nil
}

// DeleteRun implements Store.
func (s *RedisStore) DeleteRun(ctx context.Context, runID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.runKey(runID))
	pipe.ZRem(ctx, s.indexKey(), runID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete run entries: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
