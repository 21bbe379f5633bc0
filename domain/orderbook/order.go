package orderbook

import "fmt"

// Order is the book's domain entity. Identity and terms are fixed at
// creation; execution state only changes through the book.
type Order struct {
	ID          uint64
	Symbol      string
	Side        Side
	Type        OrderType
	TimeInForce TimeInForce
	LimitPrice  int64
	StopPrice   int64
	OriginalQty int64

	// Seq is the time-priority key, assigned when the order rests.
	Seq uint64

	openQty     int64
	executedQty int64
	status      Status
	triggered   bool
	done        bool

	level *PriceLevel
	next  *Order
	prev  *Order
}

// NewOrder builds an order in status New with its full quantity open.
func NewOrder(id uint64, symbol string, side Side, otype OrderType, tif TimeInForce, limit, stop, qty int64) *Order {
	return &Order{
		ID:          id,
		Symbol:      symbol,
		Side:        side,
		Type:        otype,
		TimeInForce: tif,
		LimitPrice:  limit,
		StopPrice:   stop,
		OriginalQty: qty,
		openQty:     qty,
		status:      StatusNew,
	}
}

func (o *Order) OpenQty() int64     { return o.openQty }
func (o *Order) ExecutedQty() int64 { return o.executedQty }
func (o *Order) Status() Status     { return o.status }

// Triggered reports whether a stop order has been activated.
func (o *Order) Triggered() bool { return o.triggered }

// Done reports whether the order can no longer trade. This is true for
// terminal statuses and for market or IOC orders whose residual was
// dropped instead of rested.
func (o *Order) Done() bool { return o.done || o.status.Terminal() }

// State returns a copy of the order's execution state.
func (o *Order) State() OrderState {
	return OrderState{
		OrderID:     o.ID,
		Symbol:      o.Symbol,
		Side:        o.Side,
		Type:        o.Type,
		Status:      o.status,
		OpenQty:     o.openQty,
		ExecutedQty: o.executedQty,
	}
}

// ---- mutators (book only) ----

func (o *Order) fill(qty int64) {
	o.openQty -= qty
	o.executedQty += qty
	if o.openQty == 0 {
		o.status = StatusFilled
	} else {
		o.status = StatusPartiallyFilled
	}
}

func (o *Order) cancel() {
	o.status = StatusCanceled
	o.done = true
}

// finish drops an unrested residual. An order that never traded ends
// Canceled; one that traded keeps PartiallyFilled as its final status.
func (o *Order) finish() {
	if o.executedQty == 0 {
		o.status = StatusCanceled
	}
	o.done = true
}

// ActiveType is how the order currently trades. A triggered Stop
// trades as Market and a triggered StopLimit as Limit; Type keeps the
// submitted type.
func (o *Order) ActiveType() OrderType {
	if !o.triggered {
		return o.Type
	}
	switch o.Type {
	case Stop:
		return Market
	case StopLimit:
		return Limit
	default:
		return o.Type
	}
}

func (o *Order) activate() { o.triggered = true }

// marketable applies the crossing rule against the best opposite price.
func (o *Order) marketable(best int64) bool {
	switch o.ActiveType() {
	case Market:
		return true
	case Limit:
		if o.Side == Buy {
			return o.LimitPrice >= best
		}
		return o.LimitPrice <= best
	case Stop, StopLimit:
		return false
	default:
		return false
	}
}

func (o *Order) checkQuantities() error {
	if o.openQty+o.executedQty != o.OriginalQty {
		return fmt.Errorf("order %d: open %d + executed %d != original %d",
			o.ID, o.openQty, o.executedQty, o.OriginalQty)
	}
	if (o.status == StatusFilled) != (o.openQty == 0 && o.executedQty > 0) {
		return fmt.Errorf("order %d: status %s with open %d executed %d",
			o.ID, o.status, o.openQty, o.executedQty)
	}
	return nil
}

// OrderState is an immutable view of an order's execution state.
type OrderState struct {
	OrderID     uint64
	Symbol      string
	Side        Side
	Type        OrderType
	Status      Status
	OpenQty     int64
	ExecutedQty int64
}
