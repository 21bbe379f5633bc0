package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"ordermatch/domain/events"
	ob "ordermatch/domain/orderbook"
	"ordermatch/infra/sequence"
)

func TestHaltedBookRejectsMutations(t *testing.T) {
	e, _, _ := newTestEngine("LNUX", "ABCD")
	resting := submit(t, e, limitReq(ob.Buy, 10, 1))

	err := e.halt(e.lookup("LNUX", false), fmt.Errorf("%w: test", ob.ErrInvariantViolation))
	require.ErrorIs(t, err, ob.ErrInvariantViolation)
	require.ErrorIs(t, e.Halted("LNUX"), ob.ErrInvariantViolation)

	res := submit(t, e, limitReq(ob.Sell, 10, 1))
	assert.Equal(t, ob.StatusRejected, res.Status)
	assert.Equal(t, RejectBookHalted, res.Reason)

	cr, err := e.Cancel(context.Background(), resting.OrderID, "LNUX", ob.Buy)
	require.NoError(t, err)
	assert.Equal(t, CancelRejected, cr.Status)

	tr, err := e.Trigger(context.Background(), "LNUX", 1)
	require.NoError(t, err)
	assert.Equal(t, TriggerRejected, tr.Status)

	// reads still work and other books keep trading
	bid, ok := e.BestBid("LNUX")
	assert.True(t, ok)
	assert.Equal(t, int64(10), bid)
	other := submit(t, e, SubmitRequest{Symbol: "ABCD", Side: ob.Buy, Type: ob.Limit, Quantity: 1, LimitPrice: Price(5)})
	assert.Equal(t, ob.StatusNew, other.Status)
	assert.NoError(t, e.Halted("ABCD"))
}

func TestConcurrentSubmitsAcrossSymbols(t *testing.T) {
	symbols := []string{"AAA", "BBB", "CCC", "DDD"}
	sink := &recordingSink{}
	e := NewMatchingEngine(Options{
		Symbols:      symbols,
		OrderIDs:     sequence.New(0),
		ExecutionIDs: sequence.New(0),
		Sink:         sink,
	})

	const perWorker = 200
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				side := ob.Buy
				if (i+w)%2 == 0 {
					side = ob.Sell
				}
				_, err := e.Submit(context.Background(), SubmitRequest{
					Symbol:     symbols[(i+w)%len(symbols)],
					Side:       side,
					Type:       ob.Limit,
					Quantity:   int64(1 + i%5),
					LimitPrice: Price(int64(95 + (i*7+w)%10)),
				})
				assert.NoError(t, err)
				if i%10 == 0 {
					e.BestBid(symbols[i%len(symbols)])
				}
			}
		}(w)
	}
	wg.Wait()

	ids := map[uint64]bool{}
	execs := map[uint64]bool{}
	for _, ev := range sink.take() {
		switch ev := ev.(type) {
		case events.OrderStatusChanged:
			if ev.Status == ob.StatusNew {
				require.False(t, ids[ev.OrderID], "order id %d issued twice", ev.OrderID)
				ids[ev.OrderID] = true
			}
		case events.Fill:
			require.False(t, execs[ev.ExecutionID], "execution id %d issued twice", ev.ExecutionID)
			execs[ev.ExecutionID] = true
		}
	}
	assert.Len(t, ids, 8*perWorker)

	for _, s := range symbols {
		require.NoError(t, e.Halted(s))
		bid, okBid := e.BestBid(s)
		ask, okAsk := e.BestAsk(s)
		if okBid && okAsk {
			assert.Less(t, bid, ask, "symbol %s crossed", s)
		}
	}
}

// orderTrack mirrors what the events say about one order.
type orderTrack struct {
	original int64
	open     int64
	executed int64
	status   ob.Status
}

func TestPropertyConservationAndNoCross(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sink := &recordingSink{}
		e := NewMatchingEngine(Options{
			Symbols:      []string{"LNUX"},
			OrderIDs:     sequence.New(0),
			ExecutionIDs: sequence.New(0),
			Sink:         sink,
		})

		var live []SubmitResult
		sides := map[uint64]ob.Side{}
		tracks := map[uint64]*orderTrack{}

		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if len(live) > 0 && rapid.IntRange(0, 4).Draw(t, "cancel?") == 0 {
				victim := live[rapid.IntRange(0, len(live)-1).Draw(t, "victim")]
				if _, err := e.Cancel(context.Background(), victim.OrderID, "LNUX", sides[victim.OrderID]); err != nil {
					t.Fatalf("cancel: %v", err)
				}
			} else {
				side := ob.Side(rapid.IntRange(1, 2).Draw(t, "side"))
				qty := rapid.Int64Range(1, 50).Draw(t, "qty")
				req := SubmitRequest{Symbol: "LNUX", Side: side, Type: ob.Market, Quantity: qty}
				if rapid.IntRange(0, 3).Draw(t, "limit?") > 0 {
					req.Type = ob.Limit
					req.LimitPrice = Price(rapid.Int64Range(90, 110).Draw(t, "price"))
				}
				res, err := e.Submit(context.Background(), req)
				if err != nil {
					t.Fatalf("submit: %v", err)
				}
				sides[res.OrderID] = side
				tracks[res.OrderID] = &orderTrack{original: qty}
				if res.Rested {
					live = append(live, res)
				}
			}

			bid, okBid := e.BestBid("LNUX")
			ask, okAsk := e.BestAsk("LNUX")
			if okBid && okAsk && bid >= ask {
				t.Fatalf("crossed book after step %d: bid %d ask %d", i, bid, ask)
			}
		}

		terminal := map[uint64]bool{}
		for _, ev := range sink.take() {
			st, ok := ev.(events.OrderStatusChanged)
			if !ok {
				if f := ev.(events.Fill); f.Quantity <= 0 {
					t.Fatalf("fill %d with quantity %d", f.ExecutionID, f.Quantity)
				}
				continue
			}
			if terminal[st.OrderID] {
				t.Fatalf("order %d changed after reaching a terminal status", st.OrderID)
			}
			tr := tracks[st.OrderID]
			if st.OpenQuantity+st.ExecutedQuantity != tr.original {
				t.Fatalf("order %d: open %d + executed %d != %d", st.OrderID, st.OpenQuantity, st.ExecutedQuantity, tr.original)
			}
			if st.ExecutedQuantity < tr.executed {
				t.Fatalf("order %d: executed went down", st.OrderID)
			}
			if (st.Status == ob.StatusFilled) != (st.OpenQuantity == 0) {
				t.Fatalf("order %d: status %s with open %d", st.OrderID, st.Status, st.OpenQuantity)
			}
			tr.open, tr.executed, tr.status = st.OpenQuantity, st.ExecutedQuantity, st.Status
			if st.Status.Terminal() {
				terminal[st.OrderID] = true
			}
		}
		if err := e.Halted("LNUX"); err != nil {
			t.Fatalf("book halted: %v", err)
		}
	})
}

func TestPropertyPriceTimePriority(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e, _, _ := newTestEngine("LNUX")
		price := rapid.Int64Range(1, 1000).Draw(t, "price")
		qa := rapid.Int64Range(2, 100).Draw(t, "qa")
		qb := rapid.Int64Range(2, 100).Draw(t, "qb")
		take := rapid.Int64Range(1, min(qa, qb)-1).Draw(t, "take")

		a, _ := e.Submit(context.Background(), limitReq(ob.Buy, price, qa))
		e.Submit(context.Background(), limitReq(ob.Buy, price, qb))

		res, _ := e.Submit(context.Background(), limitReq(ob.Sell, price, take))
		if len(res.Fills) != 1 || res.Fills[0].BuyOrderID != a.OrderID {
			t.Fatalf("expected one fill against the earlier order %d, got %+v", a.OrderID, res.Fills)
		}
	})
}
