// Package events defines what the matching engine tells the outside
// world: order status changes and fills, and the envelope they travel
// in once they leave the process.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ordermatch/domain/orderbook"
)

type Type string

const (
	TypeOrderStatus Type = "order_status"
	TypeFill        Type = "fill"
)

// Event is either an OrderStatusChanged or a Fill.
type Event interface {
	EventType() Type
	EventSymbol() string
}

// ReasonResidualDropped marks the final event of a market or IOC order
// whose unfilled remainder was not rested.
const ReasonResidualDropped = "RESIDUAL_DROPPED"

// OrderStatusChanged reports one status transition of one order.
// OrderID is zero for requests rejected before an id was issued.
type OrderStatusChanged struct {
	OrderID          uint64              `json:"order_id"`
	Symbol           string              `json:"symbol"`
	Side             orderbook.Side      `json:"side,omitempty"`
	Type             orderbook.OrderType `json:"type,omitempty"`
	Status           orderbook.Status    `json:"status"`
	OpenQuantity     int64               `json:"open_quantity"`
	ExecutedQuantity int64               `json:"executed_quantity"`
	Reason           string              `json:"reason,omitempty"`
	Time             time.Time           `json:"time"`
}

func (OrderStatusChanged) EventType() Type       { return TypeOrderStatus }
func (e OrderStatusChanged) EventSymbol() string { return e.Symbol }

// StatusFrom builds the status event for a book order state.
func StatusFrom(st orderbook.OrderState, at time.Time) OrderStatusChanged {
	return OrderStatusChanged{
		OrderID:          st.OrderID,
		Symbol:           st.Symbol,
		Side:             st.Side,
		Type:             st.Type,
		Status:           st.Status,
		OpenQuantity:     st.OpenQty,
		ExecutedQuantity: st.ExecutedQty,
		Time:             at,
	}
}

type Fill struct {
	ExecutionID uint64    `json:"execution_id"`
	BuyOrderID  uint64    `json:"buy_order_id"`
	SellOrderID uint64    `json:"sell_order_id"`
	Symbol      string    `json:"symbol"`
	Price       int64     `json:"price"`
	Quantity    int64     `json:"quantity"`
	Time        time.Time `json:"time"`
}

func (Fill) EventType() Type       { return TypeFill }
func (e Fill) EventSymbol() string { return e.Symbol }

func FillFrom(f orderbook.Fill) Fill {
	return Fill{
		ExecutionID: f.ExecutionID,
		BuyOrderID:  f.BuyOrderID,
		SellOrderID: f.SellOrderID,
		Symbol:      f.Symbol,
		Price:       f.Price,
		Quantity:    f.Quantity,
		Time:        f.Timestamp,
	}
}

// ---- envelope ----

const EnvelopeVersion = 1

// Envelope is the outbound form of an event.
type Envelope struct {
	V       int             `json:"v"`
	ID      string          `json:"id"`
	Type    Type            `json:"type"`
	Symbol  string          `json:"symbol"`
	Seq     uint64          `json:"seq"`
	Payload json.RawMessage `json:"payload"`
}

// Wrap gives e a fresh envelope id and the sequence seq.
func Wrap(seq uint64, e Event) (Envelope, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s event: %w", e.EventType(), err)
	}
	return Envelope{
		V:       EnvelopeVersion,
		ID:      uuid.NewString(),
		Type:    e.EventType(),
		Symbol:  e.EventSymbol(),
		Seq:     seq,
		Payload: payload,
	}, nil
}

func (env Envelope) Marshal() ([]byte, error) {
	return json.Marshal(env)
}

func UnmarshalEnvelope(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.V != EnvelopeVersion {
		return Envelope{}, fmt.Errorf("unsupported envelope version %d", env.V)
	}
	return env, nil
}

// Event decodes the payload into its concrete type.
func (env Envelope) Event() (Event, error) {
	switch env.Type {
	case TypeOrderStatus:
		var e OrderStatusChanged
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, fmt.Errorf("decode order status: %w", err)
		}
		return e, nil
	case TypeFill:
		var e Fill
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, fmt.Errorf("decode fill: %w", err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
}
