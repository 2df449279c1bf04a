package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/walidk/tvrelay/internal/model"
)

const (
	signalKeyPrefix = "signal:"
	recentKeyPrefix = "recent:"
	configKeyPrefix = "config:"

	// recentTTL bounds the recent-signals index used by status queries.
	recentTTL = 24 * time.Hour
)

// RedisConfig holds connection and retention settings for the store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// TTL is the idempotency retention window for signal records.
	TTL time.Duration

	// OpTimeout bounds each round trip to Redis.
	OpTimeout time.Duration
}

// RedisStore implements Store on a Redis-compatible server. Reserve maps
// to a single SET NX EX round trip, which is the atomic check-and-set the
// dedup gate requires.
type RedisStore struct {
	client    *redis.Client
	ttl       time.Duration
	opTimeout time.Duration
}

func NewRedisStore(cfg RedisConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = 10 * time.Second
	}

	return &RedisStore{
		client:    client,
		ttl:       cfg.TTL,
		opTimeout: opTimeout,
	}
}

func (s *RedisStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

func (s *RedisStore) Exists(ctx context.Context, signalID string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := s.client.Exists(ctx, signalKeyPrefix+signalID).Result()
	if err != nil {
		return false, fmt.Errorf("%w: exists %s: %v", ErrUnavailable, signalID, err)
	}
	return n > 0, nil
}

func (s *RedisStore) Reserve(ctx context.Context, rec model.StoredSignal) (bool, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("marshal signal %s: %w", rec.SignalID, err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ok, err := s.client.SetNX(ctx, signalKeyPrefix+rec.SignalID, data, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: reserve %s: %v", ErrUnavailable, rec.SignalID, err)
	}
	if !ok {
		return false, nil
	}

	// Index for status queries. Best effort: losing this entry only hides
	// the signal from the recent list, never from the dedup gate.
	recent, err := json.Marshal(map[string]string{
		"signal_id":      rec.SignalID,
		"symbol":         rec.Symbol,
		"timeframe":      rec.Timeframe,
		"created_at_utc": rec.CreatedAtUTC,
	})
	if err == nil {
		s.client.Set(ctx, recentKeyPrefix+rec.SignalID, recent, recentTTL)
	}

	return true, nil
}

func (s *RedisStore) Get(ctx context.Context, signalID string) (*model.StoredSignal, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	data, err := s.client.Get(ctx, signalKeyPrefix+signalID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrUnavailable, signalID, err)
	}

	var rec model.StoredSignal
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal signal %s: %w", signalID, err)
	}
	return &rec, nil
}

func (s *RedisStore) UpdateStatus(ctx context.Context, signalID string, update func(*model.StoredSignal)) error {
	rec, err := s.Get(ctx, signalID)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}

	update(rec)

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal signal %s: %w", signalID, err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.client.Set(ctx, signalKeyPrefix+signalID, data, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("%w: update %s: %v", ErrUnavailable, signalID, err)
	}
	return nil
}

func (s *RedisStore) RecentSignals(ctx context.Context, limit int) ([]model.StoredSignal, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var signals []model.StoredSignal
	iter := s.client.Scan(ctx, 0, recentKeyPrefix+"*", int64(limit)).Iterator()
	for iter.Next(ctx) {
		if len(signals) >= limit {
			break
		}
		signalID := iter.Val()[len(recentKeyPrefix):]
		rec, err := s.Get(ctx, signalID)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			signals = append(signals, *rec)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: scan recent: %v", ErrUnavailable, err)
	}
	return signals, nil
}

func (s *RedisStore) GetConfig(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	data, err := s.client.Get(ctx, configKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get config %s: %v", ErrUnavailable, key, err)
	}
	return data, nil
}

func (s *RedisStore) SetConfig(ctx context.Context, key string, value []byte) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.client.Set(ctx, configKeyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("%w: set config %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %v", ErrUnavailable, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
