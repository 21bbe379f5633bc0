package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "md:depth:"

func Key(symbol string) string { return keyPrefix + symbol }

// Store keeps the latest snapshot per symbol. client may be a
// *redis.Client or a *redis.ClusterClient.
type Store struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewStore builds a store. A zero ttl keeps snapshots until replaced.
func NewStore(client redis.Cmdable, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) Write(ctx context.Context, snap Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", snap.Symbol, err)
	}
	if err := s.client.Set(ctx, Key(snap.Symbol), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("store snapshot %s: %w", snap.Symbol, err)
	}
	return nil
}

// Latest returns nil without error when no snapshot exists.
func (s *Store) Latest(ctx context.Context, symbol string) (*Snapshot, error) {
	b, err := s.client.Get(ctx, Key(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", symbol, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", symbol, err)
	}
	return &snap, nil
}
