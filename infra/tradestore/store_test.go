package tradestore

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore creates a throwaway database. Tests skip when no
// PostgreSQL is reachable.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	admin := os.Getenv("ORDERMATCH_TEST_PG")
	if admin == "" {
		admin = "host=localhost port=5432 user=postgres password=postgres dbname=postgres sslmode=disable"
	}
	adminDB, err := sql.Open("postgres", admin)
	require.NoError(t, err)
	if err := adminDB.Ping(); err != nil {
		adminDB.Close()
		t.Skipf("Skipping test: PostgreSQL is not running or not accessible: %v", err)
	}

	name := fmt.Sprintf("ordermatch_test_%d", rand.Int31())
	_, err = adminDB.Exec("CREATE DATABASE " + name)
	require.NoError(t, err)

	db, err := sql.Open("postgres", admin+" dbname="+name)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
		_, _ = adminDB.Exec("DROP DATABASE IF EXISTS " + name)
		adminDB.Close()
	})

	s := New(db)
	require.NoError(t, s.EnsureSchema(context.Background()))
	return s
}

func TestSaveFillIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

	f := Fill{ExecutionID: 1, Symbol: "LNUX", BuyOrderID: 10, SellOrderID: 11, Price: 10050, Quantity: 3, ExecutedAt: at, EventSeq: 4}
	require.NoError(t, s.SaveFill(ctx, f))
	require.NoError(t, s.SaveFill(ctx, f))
	require.NoError(t, s.SaveFill(ctx, Fill{ExecutionID: 2, Symbol: "LNUX", BuyOrderID: 12, SellOrderID: 11, Price: 10040, Quantity: 1, ExecutedAt: at.Add(time.Second), EventSeq: 6}))
	require.NoError(t, s.SaveFill(ctx, Fill{ExecutionID: 3, Symbol: "ABCD", BuyOrderID: 1, SellOrderID: 2, Price: 1, Quantity: 1, ExecutedAt: at, EventSeq: 7}))

	got, err := s.Fills(ctx, "LNUX", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(2), got[0].ExecutionID)
	assert.Equal(t, uint64(1), got[1].ExecutionID)
	assert.True(t, at.Equal(got[1].ExecutedAt))
	assert.Equal(t, int64(10050), got[1].Price)
}

func TestSaveFillRejectsZeroQuantity(t *testing.T) {
	s := newTestStore(t)
	err := s.SaveFill(context.Background(), Fill{ExecutionID: 9, Symbol: "LNUX", Quantity: 0, ExecutedAt: time.Now()})
	assert.Error(t, err)
}
