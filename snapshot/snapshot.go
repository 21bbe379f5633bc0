package snapshot

import (
	"time"

	"ordermatch/domain/orderbook"
)

// Snapshot is the depth of one book at one point. Seq is the book's
// priority sequence when it was taken, so readers can tell snapshots
// of an unchanged book apart from fresh ones.
type Snapshot struct {
	Symbol  string    `json:"symbol"`
	Seq     uint64    `json:"seq"`
	Created time.Time `json:"created"`
	Bids    []Level   `json:"bids"`
	Asks    []Level   `json:"asks"`
}

type Level struct {
	Price    int64 `json:"price"`
	Quantity int64 `json:"quantity"`
	Orders   int   `json:"orders"`
}

func New(symbol string, seq uint64, bids, asks []orderbook.LevelView, at time.Time) Snapshot {
	return Snapshot{
		Symbol:  symbol,
		Seq:     seq,
		Created: at,
		Bids:    levels(bids),
		Asks:    levels(asks),
	}
}

func levels(in []orderbook.LevelView) []Level {
	out := make([]Level, len(in))
	for i, l := range in {
		out[i] = Level{Price: l.Price, Quantity: l.Quantity, Orders: l.Orders}
	}
	return out
}
