package orderbook

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvariantViolation marks a book whose state can no longer be trusted.
var ErrInvariantViolation = errors.New("order book invariant violated")

// IDSource issues execution ids.
type IDSource interface {
	Next() uint64
}

// Fill is one matched quantity between a buy and a sell order.
type Fill struct {
	ExecutionID uint64
	BuyOrderID  uint64
	SellOrderID uint64
	Symbol      string
	Price       int64
	Quantity    int64
	Timestamp   time.Time
}

// Execution is a fill together with the state both orders reached
// right after it.
type Execution struct {
	Fill  Fill
	Maker OrderState
	Taker OrderState
}

// MatchOutcome is what Insert did with an incoming order.
type MatchOutcome struct {
	Executions []Execution
	Status     Status
	Rested     bool
	Parked     bool
}

func (m MatchOutcome) Fills() []Fill {
	fills := make([]Fill, 0, len(m.Executions))
	for _, e := range m.Executions {
		fills = append(fills, e.Fill)
	}
	return fills
}

// CancelOutcome reports a cancel. Found is false for unknown ids and
// for orders that are no longer open.
type CancelOutcome struct {
	Found bool
	State OrderState
}

// OrderBook holds the open orders of one instrument.
type OrderBook struct {
	symbol string
	bids   *RBTree
	asks   *RBTree

	// resting and parked stop orders by id
	orders map[uint64]*Order
	stops  map[uint64]*Order

	execIDs IDSource
	now     func() time.Time
	seq     uint64
}

func NewOrderBook(symbol string, execIDs IDSource, now func() time.Time) *OrderBook {
	if now == nil {
		now = time.Now
	}
	return &OrderBook{
		symbol:  symbol,
		bids:    NewRBTree(),
		asks:    NewRBTree(),
		orders:  make(map[uint64]*Order),
		stops:   make(map[uint64]*Order),
		execIDs: execIDs,
		now:     now,
	}
}

func (b *OrderBook) Symbol() string { return b.symbol }

// Seq is the priority sequence of the most recently rested order.
func (b *OrderBook) Seq() uint64 { return b.seq }

// Len is the number of resting orders, parked stops excluded.
func (b *OrderBook) Len() int { return len(b.orders) }

// Stops is the number of parked stop orders.
func (b *OrderBook) Stops() int { return len(b.stops) }

// Stop returns the parked stop order id, or nil.
func (b *OrderBook) Stop(id uint64) *Order { return b.stops[id] }

// ---- commands ----

// Insert matches o against the opposite side and rests any GTC limit
// remainder. Untriggered stop orders are parked without matching.
func (b *OrderBook) Insert(o *Order) MatchOutcome {
	if t := o.ActiveType(); t == Stop || t == StopLimit {
		b.stops[o.ID] = o
		return MatchOutcome{Status: o.status, Parked: true}
	}

	var out MatchOutcome
	opposite := b.side(o.Side.Opposite())

	for o.openQty > 0 {
		lvl := b.best(o.Side.Opposite())
		if lvl == nil || !o.marketable(lvl.Price) {
			break
		}

		maker := lvl.Head()
		qty := min(o.openQty, maker.openQty)

		o.fill(qty)
		maker.fill(qty)
		lvl.reduce(qty)

		out.Executions = append(out.Executions, Execution{
			Fill:  b.newFill(o, maker, lvl.Price, qty),
			Maker: maker.State(),
			Taker: o.State(),
		})

		if maker.openQty == 0 {
			lvl.Remove(maker)
			delete(b.orders, maker.ID)
			if lvl.Empty() {
				opposite.Delete(lvl.Price)
			}
		}
	}

	switch {
	case o.openQty == 0:
	case o.ActiveType() == Limit && o.TimeInForce == GTC:
		b.rest(o)
		out.Rested = true
	default:
		o.finish()
	}

	out.Status = o.status
	return out
}

// Trigger activates a parked stop order and inserts it.
func (b *OrderBook) Trigger(id uint64) (MatchOutcome, bool) {
	o, ok := b.stops[id]
	if !ok {
		return MatchOutcome{}, false
	}
	delete(b.stops, id)
	o.activate()
	return b.Insert(o), true
}

// Cancel removes the open order id from the given side.
func (b *OrderBook) Cancel(id uint64, side Side) CancelOutcome {
	if o, ok := b.orders[id]; ok && o.Side == side {
		lvl := o.level
		lvl.Remove(o)
		delete(b.orders, id)
		if lvl.Empty() {
			b.side(side).Delete(lvl.Price)
		}
		o.cancel()
		return CancelOutcome{Found: true, State: o.State()}
	}
	if o, ok := b.stops[id]; ok && o.Side == side {
		delete(b.stops, id)
		o.cancel()
		return CancelOutcome{Found: true, State: o.State()}
	}
	return CancelOutcome{}
}

// ---- queries ----

func (b *OrderBook) BestBid() (int64, bool) {
	if lvl := b.bids.Max(); lvl != nil {
		return lvl.Price, true
	}
	return 0, false
}

func (b *OrderBook) BestAsk() (int64, bool) {
	if lvl := b.asks.Min(); lvl != nil {
		return lvl.Price, true
	}
	return 0, false
}

// LevelView is the aggregate of one price level.
type LevelView struct {
	Price    int64
	Quantity int64
	Orders   int
}

// Depth returns up to levels price levels per side, best first.
// levels <= 0 returns every level.
func (b *OrderBook) Depth(levels int) (bids, asks []LevelView) {
	collect := func(dst *[]LevelView) func(*PriceLevel) bool {
		return func(lvl *PriceLevel) bool {
			*dst = append(*dst, LevelView{Price: lvl.Price, Quantity: lvl.TotalQty, Orders: lvl.OrderCount})
			return levels <= 0 || len(*dst) < levels
		}
	}
	b.bids.Descend(collect(&bids))
	b.asks.Ascend(collect(&asks))
	return bids, asks
}

// ---- invariants ----

// Verify checks the orders touched by one matching pass and that the
// book is not crossed.
func (b *OrderBook) Verify(o *Order, out MatchOutcome) error {
	if err := o.checkQuantities(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvariantViolation, err)
	}
	for _, e := range out.Executions {
		if e.Fill.Quantity <= 0 {
			return fmt.Errorf("%w: execution %d has quantity %d", ErrInvariantViolation, e.Fill.ExecutionID, e.Fill.Quantity)
		}
		if m := e.Maker; m.OpenQty < 0 || (m.Status == StatusFilled) != (m.OpenQty == 0) {
			return fmt.Errorf("%w: maker %d left with open %d status %s", ErrInvariantViolation, m.OrderID, m.OpenQty, m.Status)
		}
	}
	return b.checkUncrossed()
}

// CheckInvariants walks the whole book.
func (b *OrderBook) CheckInvariants() error {
	if err := b.checkUncrossed(); err != nil {
		return err
	}
	count := 0
	check := func(side Side, tree *RBTree) error {
		var err error
		var lastSeq uint64
		tree.Ascend(func(lvl *PriceLevel) bool {
			var total int64
			lastSeq = 0
			for o := lvl.Head(); o != nil; o = o.Next() {
				count++
				switch {
				case o.Side != side:
					err = fmt.Errorf("order %d on wrong side", o.ID)
				case o.openQty <= 0:
					err = fmt.Errorf("order %d rests with open %d", o.ID, o.openQty)
				case o.status != StatusNew && o.status != StatusPartiallyFilled:
					err = fmt.Errorf("order %d rests in status %s", o.ID, o.status)
				case o.Seq <= lastSeq:
					err = fmt.Errorf("order %d out of time order at %d", o.ID, lvl.Price)
				default:
					err = o.checkQuantities()
				}
				if err != nil {
					return false
				}
				lastSeq = o.Seq
				total += o.openQty
			}
			if total != lvl.TotalQty {
				err = fmt.Errorf("level %d total %d, orders sum %d", lvl.Price, lvl.TotalQty, total)
			}
			return err == nil
		})
		return err
	}
	if err := check(Buy, b.bids); err != nil {
		return fmt.Errorf("%w: %v", ErrInvariantViolation, err)
	}
	if err := check(Sell, b.asks); err != nil {
		return fmt.Errorf("%w: %v", ErrInvariantViolation, err)
	}
	if count != len(b.orders) {
		return fmt.Errorf("%w: index holds %d orders, book %d", ErrInvariantViolation, len(b.orders), count)
	}
	return nil
}

func (b *OrderBook) checkUncrossed() error {
	bid, okBid := b.BestBid()
	ask, okAsk := b.BestAsk()
	if okBid && okAsk && bid >= ask {
		return fmt.Errorf("%w: crossed book bid %d >= ask %d", ErrInvariantViolation, bid, ask)
	}
	return nil
}

// ---- helpers ----

func (b *OrderBook) rest(o *Order) {
	b.seq++
	o.Seq = b.seq
	b.side(o.Side).Upsert(o.LimitPrice).Enqueue(o)
	b.orders[o.ID] = o
}

func (b *OrderBook) side(s Side) *RBTree {
	if s == Buy {
		return b.bids
	}
	return b.asks
}

func (b *OrderBook) best(s Side) *PriceLevel {
	if s == Buy {
		return b.bids.Max()
	}
	return b.asks.Min()
}

func (b *OrderBook) newFill(taker, maker *Order, price, qty int64) Fill {
	f := Fill{
		ExecutionID: b.execIDs.Next(),
		Symbol:      b.symbol,
		Price:       price,
		Quantity:    qty,
		Timestamp:   b.now(),
	}
	if taker.Side == Buy {
		f.BuyOrderID, f.SellOrderID = taker.ID, maker.ID
	} else {
		f.BuyOrderID, f.SellOrderID = maker.ID, taker.ID
	}
	return f
}
