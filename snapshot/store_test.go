package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordermatch/domain/orderbook"
)

// memRedis implements the two commands the store uses.
type memRedis struct {
	redis.Cmdable
	data map[string]string
	ttl  map[string]time.Duration
	down bool
}

func newMemRedis() *memRedis {
	return &memRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (m *memRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if m.down {
		return redis.NewStatusResult("", errors.New("connection refused"))
	}
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	m.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *memRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if m.down {
		return redis.NewStringResult("", errors.New("connection refused"))
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func TestWriteAndLatest(t *testing.T) {
	rdb := newMemRedis()
	s := NewStore(rdb, time.Minute)
	at := time.Date(2026, 4, 4, 12, 0, 0, 0, time.UTC)

	snap := New("LNUX", 12,
		[]orderbook.LevelView{{Price: 99, Quantity: 10, Orders: 2}},
		[]orderbook.LevelView{{Price: 101, Quantity: 3, Orders: 1}, {Price: 102, Quantity: 7, Orders: 3}},
		at)
	require.NoError(t, s.Write(context.Background(), snap))
	assert.Contains(t, rdb.data, "md:depth:LNUX")
	assert.Equal(t, time.Minute, rdb.ttl["md:depth:LNUX"])

	got, err := s.Latest(context.Background(), "LNUX")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, snap, *got)
}

func TestLatestMissing(t *testing.T) {
	got, err := NewStore(newMemRedis(), 0).Latest(context.Background(), "NONE")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStoreErrorsAreWrapped(t *testing.T) {
	rdb := newMemRedis()
	rdb.down = true
	s := NewStore(rdb, 0)

	err := s.Write(context.Background(), Snapshot{Symbol: "LNUX"})
	assert.ErrorContains(t, err, "store snapshot LNUX")

	_, err = s.Latest(context.Background(), "LNUX")
	assert.ErrorContains(t, err, "load snapshot LNUX")
}
