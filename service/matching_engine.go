package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"ordermatch/domain/events"
	"ordermatch/domain/orderbook"
	entrywal "ordermatch/infra/wal/entry"
)

// IDSource issues identifiers that never repeat.
type IDSource interface {
	Next() uint64
}

type Options struct {
	// Symbols are created up front. With AllowNewSymbols a book is
	// also created on the first submit for an unseen symbol.
	Symbols         []string
	AllowNewSymbols bool

	OrderIDs     IDSource
	ExecutionIDs IDSource

	Sink    EventSink
	Journal Journal
	Logger  *zap.SugaredLogger
	Clock   func() time.Time
}

// symbolBook is one book and the lock that serializes it. halted is
// set once the book failed an invariant check.
type symbolBook struct {
	mu     sync.RWMutex
	book   *orderbook.OrderBook
	halted error
}

type MatchingEngine struct {
	mu    sync.RWMutex
	books map[string]*symbolBook

	allowNew bool
	orderIDs IDSource
	execIDs  IDSource
	sink     EventSink
	journal  Journal
	log      *zap.SugaredLogger
	now      func() time.Time
}

func NewMatchingEngine(opts Options) *MatchingEngine {
	if opts.OrderIDs == nil || opts.ExecutionIDs == nil {
		panic("service: OrderIDs and ExecutionIDs are required")
	}
	e := &MatchingEngine{
		books:    make(map[string]*symbolBook, len(opts.Symbols)),
		allowNew: opts.AllowNewSymbols,
		orderIDs: opts.OrderIDs,
		execIDs:  opts.ExecutionIDs,
		sink:     opts.Sink,
		journal:  opts.Journal,
		log:      opts.Logger,
		now:      opts.Clock,
	}
	if e.sink == nil {
		e.sink = nopSink{}
	}
	if e.journal == nil {
		e.journal = nopJournal{}
	}
	if e.log == nil {
		e.log = zap.NewNop().Sugar()
	}
	if e.now == nil {
		e.now = time.Now
	}
	for _, s := range opts.Symbols {
		e.books[s] = e.newBook(s)
	}
	return e
}

func (e *MatchingEngine) newBook(symbol string) *symbolBook {
	return &symbolBook{book: orderbook.NewOrderBook(symbol, e.execIDs, e.now)}
}

// ---- commands ----

// Submit validates and matches a new order. The error is non-nil only
// when the book failed an invariant check after matching; the book is
// halted and the result still describes what happened.
func (e *MatchingEngine) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	if reason, ok := validate(req); !ok {
		return e.reject(req, reason), nil
	}

	sb := e.lookup(req.Symbol, e.allowNew)
	if sb == nil {
		return e.reject(req, RejectUnknownSymbol), nil
	}

	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.halted != nil {
		return e.reject(req, RejectBookHalted), nil
	}

	id := e.orderIDs.Next()
	o := newOrder(id, req)
	e.record(entrywal.Command{
		Kind:        entrywal.RecordSubmit,
		OrderID:     id,
		Symbol:      req.Symbol,
		Side:        uint8(req.Side),
		Type:        uint8(req.Type),
		TimeInForce: uint8(req.TimeInForce),
		Quantity:    req.Quantity,
		LimitPrice:  o.LimitPrice,
		StopPrice:   o.StopPrice,
	})

	at := e.now()
	evs := []events.Event{events.StatusFrom(o.State(), at)}

	out := sb.book.Insert(o)
	evs = appendOutcome(evs, o, out, at)
	e.emit(req.Symbol, evs)

	res := SubmitResult{
		OrderID:     id,
		Status:      out.Status,
		Fills:       out.Fills(),
		OpenQty:     o.OpenQty(),
		ExecutedQty: o.ExecutedQty(),
		Rested:      out.Rested,
		Parked:      out.Parked,
	}

	if err := sb.book.Verify(o, out); err != nil {
		return res, e.halt(sb, err)
	}
	return res, nil
}

// Cancel removes an open order. Unknown symbols, unknown ids, orders on
// the other side and orders that are already terminal are NotFound.
func (e *MatchingEngine) Cancel(ctx context.Context, orderID uint64, symbol string, side orderbook.Side) (CancelResult, error) {
	sb := e.lookup(symbol, false)
	if sb == nil {
		return CancelResult{Status: CancelNotFound}, nil
	}

	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.halted != nil {
		return CancelResult{Status: CancelRejected, Reason: RejectBookHalted}, nil
	}

	e.record(entrywal.Command{
		Kind:    entrywal.RecordCancel,
		OrderID: orderID,
		Symbol:  symbol,
		Side:    uint8(side),
	})

	out := sb.book.Cancel(orderID, side)
	if !out.Found {
		return CancelResult{Status: CancelNotFound}, nil
	}
	e.emit(symbol, []events.Event{events.StatusFrom(out.State, e.now())})
	return CancelResult{Status: CancelCanceled, State: out.State}, nil
}

// Trigger activates a parked stop order: Stop becomes Market and
// StopLimit becomes Limit, then it matches like a new arrival.
func (e *MatchingEngine) Trigger(ctx context.Context, symbol string, orderID uint64) (TriggerResult, error) {
	sb := e.lookup(symbol, false)
	if sb == nil {
		return TriggerResult{Status: TriggerNotFound}, nil
	}

	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.halted != nil {
		return TriggerResult{Status: TriggerRejected, Reason: RejectBookHalted}, nil
	}

	e.record(entrywal.Command{
		Kind:    entrywal.RecordTrigger,
		OrderID: orderID,
		Symbol:  symbol,
	})

	out, o, ok := sb.trigger(orderID)
	if !ok {
		return TriggerResult{Status: TriggerNotFound}, nil
	}

	at := e.now()
	e.emit(symbol, appendOutcome(nil, o, out, at))

	res := TriggerResult{
		Status:      TriggerTriggered,
		OrderStatus: out.Status,
		Fills:       out.Fills(),
		OpenQty:     o.OpenQty(),
		ExecutedQty: o.ExecutedQty(),
		Rested:      out.Rested,
	}
	if err := sb.book.Verify(o, out); err != nil {
		return res, e.halt(sb, err)
	}
	return res, nil
}

func (sb *symbolBook) trigger(id uint64) (orderbook.MatchOutcome, *orderbook.Order, bool) {
	o := sb.book.Stop(id)
	if o == nil {
		return orderbook.MatchOutcome{}, nil, false
	}
	out, ok := sb.book.Trigger(id)
	return out, o, ok
}

// ---- queries ----

func (e *MatchingEngine) BestBid(symbol string) (int64, bool) {
	sb := e.lookup(symbol, false)
	if sb == nil {
		return 0, false
	}
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	return sb.book.BestBid()
}

func (e *MatchingEngine) BestAsk(symbol string) (int64, bool) {
	sb := e.lookup(symbol, false)
	if sb == nil {
		return 0, false
	}
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	return sb.book.BestAsk()
}

// Depth is the aggregated book of symbol, best levels first. ok is
// false for unknown symbols.
type Depth struct {
	Symbol string
	Seq    uint64
	Bids   []orderbook.LevelView
	Asks   []orderbook.LevelView
}

func (e *MatchingEngine) Depth(symbol string, levels int) (Depth, bool) {
	sb := e.lookup(symbol, false)
	if sb == nil {
		return Depth{}, false
	}
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	bids, asks := sb.book.Depth(levels)
	return Depth{Symbol: symbol, Seq: sb.book.Seq(), Bids: bids, Asks: asks}, true
}

// Symbols lists known books in name order.
func (e *MatchingEngine) Symbols() []string {
	e.mu.RLock()
	out := make([]string, 0, len(e.books))
	for s := range e.books {
		out = append(out, s)
	}
	e.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Halted returns the invariant failure that stopped symbol's book.
func (e *MatchingEngine) Halted(symbol string) error {
	sb := e.lookup(symbol, false)
	if sb == nil {
		return nil
	}
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	return sb.halted
}

// ---- helpers ----

func (e *MatchingEngine) lookup(symbol string, create bool) *symbolBook {
	if symbol == "" {
		return nil
	}
	e.mu.RLock()
	sb := e.books[symbol]
	e.mu.RUnlock()
	if sb != nil || !create {
		return sb
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if sb = e.books[symbol]; sb == nil {
		sb = e.newBook(symbol)
		e.books[symbol] = sb
		e.log.Infow("book created", "symbol", symbol)
	}
	return sb
}

func (e *MatchingEngine) reject(req SubmitRequest, reason RejectReason) SubmitResult {
	ev := events.OrderStatusChanged{
		Symbol: req.Symbol,
		Status: orderbook.StatusRejected,
		Reason: string(reason),
		Time:   e.now(),
	}
	// out of range enums would not survive the envelope round trip
	if req.Side.Valid() {
		ev.Side = req.Side
	}
	if req.Type.Valid() {
		ev.Type = req.Type
	}
	e.emit(req.Symbol, []events.Event{ev})
	return SubmitResult{Status: orderbook.StatusRejected, Reason: reason}
}

func (e *MatchingEngine) halt(sb *symbolBook, err error) error {
	sb.halted = err
	e.log.Errorw("book halted", "symbol", sb.book.Symbol(), "err", err)
	return fmt.Errorf("symbol %s: %w", sb.book.Symbol(), err)
}

func (e *MatchingEngine) record(c entrywal.Command) {
	if err := e.journal.Append(c); err != nil {
		e.log.Errorw("journal append failed", "kind", c.Kind, "order_id", c.OrderID, "err", err)
	}
}

func (e *MatchingEngine) emit(symbol string, evs []events.Event) {
	if len(evs) == 0 {
		return
	}
	if err := e.sink.Emit(evs); err != nil {
		e.log.Errorw("event sink failed", "symbol", symbol, "events", len(evs), "err", err)
	}
}

// appendOutcome adds the events of one matching pass in the order they
// happened: each fill, the maker's new state, and the incoming order's
// state whenever its status moved. A dropped residual gets a final
// event of its own.
func appendOutcome(evs []events.Event, o *orderbook.Order, out orderbook.MatchOutcome, at time.Time) []events.Event {
	last := orderbook.StatusNew
	for _, x := range out.Executions {
		evs = append(evs, events.FillFrom(x.Fill), events.StatusFrom(x.Maker, at))
		if x.Taker.Status != last {
			evs = append(evs, events.StatusFrom(x.Taker, at))
			last = x.Taker.Status
		}
	}

	dropped := o.Done() && o.OpenQty() > 0
	if o.Status() != last || dropped {
		st := events.StatusFrom(o.State(), at)
		if dropped {
			st.Reason = events.ReasonResidualDropped
		}
		evs = append(evs, st)
	}
	return evs
}
