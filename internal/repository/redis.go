package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"leadbot/internal/config"
	"leadbot/internal/model"
)

// ErrPreferenceConflict is returned when a session's preferences keep
// changing underneath an update
var ErrPreferenceConflict = errors.New("preference update conflict")

const (
	preferenceKeyPrefix  = "leadbot:prefs:"
	maxUpdateAttempts    = 5
	defaultPreferenceTTL = 24 * time.Hour
)

// NewRedisClient connects to Redis, preferring REDIS_URL over the address fields
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// RedisPreferenceStore keeps each session's preferences as a JSON value
// with a sliding TTL
type RedisPreferenceStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPreferenceStore creates a new store. A non-positive ttl means 24h.
func NewRedisPreferenceStore(client *redis.Client, ttl time.Duration) *RedisPreferenceStore {
	if ttl <= 0 {
		ttl = defaultPreferenceTTL
	}
	return &RedisPreferenceStore{client: client, ttl: ttl}
}

func preferenceKey(sessionID string) string {
	return preferenceKeyPrefix + sessionID
}

// Get returns the session's preferences, empty when unknown
func (s *RedisPreferenceStore) Get(ctx context.Context, sessionID string) (model.PreferenceState, error) {
	return readPreferences(ctx, s.client, preferenceKey(sessionID))
}

// Update applies fn as an optimistic read-merge-write. A concurrent write
// to the same session restarts the cycle.
func (s *RedisPreferenceStore) Update(ctx context.Context, sessionID string, fn func(model.PreferenceState) model.PreferenceState) (model.PreferenceState, error) {
	key := preferenceKey(sessionID)
	var next model.PreferenceState

	txf := func(tx *redis.Tx) error {
		current, err := readPreferences(ctx, tx, key)
		if err != nil {
			return err
		}
		next = fn(current)
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to encode preferences: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return next, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return model.PreferenceState{}, err
	}
	return model.PreferenceState{}, fmt.Errorf("%w: session %s", ErrPreferenceConflict, sessionID)
}

func readPreferences(ctx context.Context, c redis.Cmdable, key string) (model.PreferenceState, error) {
	var prefs model.PreferenceState
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return prefs, nil
	}
	if err != nil {
		return prefs, fmt.Errorf("failed to read preferences: %w", err)
	}
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return model.PreferenceState{}, fmt.Errorf("failed to decode preferences: %w", err)
	}
	return prefs, nil
}

// RedisCache stores JSON values with an expiry
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new cache
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// GetJSON decodes the cached value into dest and reports whether it was found
func (c *RedisCache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get: %w", err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("cache decode: %w", err)
	}
	return true, nil
}

// SetJSON stores value for ttl
func (c *RedisCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
