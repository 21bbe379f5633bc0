package grpcserver

import "time"

// Prices are decimal strings on the wire, e.g. "101.25". An empty
// string means the price is absent.

type SubmitRequest struct {
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	TimeInForce string `json:"time_in_force,omitempty"`
	Quantity    int64  `json:"quantity"`
	LimitPrice  string `json:"limit_price,omitempty"`
	StopPrice   string `json:"stop_price,omitempty"`
}

type SubmitResponse struct {
	OrderID          uint64 `json:"order_id"`
	Status           string `json:"status"`
	Reason           string `json:"reason,omitempty"`
	OpenQuantity     int64  `json:"open_quantity"`
	ExecutedQuantity int64  `json:"executed_quantity"`
	Fills            []Fill `json:"fills,omitempty"`
}

type Fill struct {
	ExecutionID uint64    `json:"execution_id"`
	BuyOrderID  uint64    `json:"buy_order_id"`
	SellOrderID uint64    `json:"sell_order_id"`
	Price       string    `json:"price"`
	Quantity    int64     `json:"quantity"`
	Time        time.Time `json:"time"`
}

type CancelRequest struct {
	OrderID uint64 `json:"order_id"`
	Symbol  string `json:"symbol"`
	Side    string `json:"side"`
}

type CancelResponse struct {
	Status           string `json:"status"`
	Reason           string `json:"reason,omitempty"`
	OpenQuantity     int64  `json:"open_quantity"`
	ExecutedQuantity int64  `json:"executed_quantity"`
}

type TriggerRequest struct {
	Symbol  string `json:"symbol"`
	OrderID uint64 `json:"order_id"`
}

type TriggerResponse struct {
	Status           string `json:"status"`
	Reason           string `json:"reason,omitempty"`
	OrderStatus      string `json:"order_status,omitempty"`
	OpenQuantity     int64  `json:"open_quantity"`
	ExecutedQuantity int64  `json:"executed_quantity"`
	Fills            []Fill `json:"fills,omitempty"`
}

type QuoteRequest struct {
	Symbol string `json:"symbol"`
}

// QuoteResponse leaves Bid or Ask empty when that side has no orders.
type QuoteResponse struct {
	Symbol string `json:"symbol"`
	Bid    string `json:"bid,omitempty"`
	Ask    string `json:"ask,omitempty"`
}

type DepthRequest struct {
	Symbol string `json:"symbol"`
	Levels int    `json:"levels"`
}

type DepthResponse struct {
	Symbol string  `json:"symbol"`
	Seq    uint64  `json:"seq"`
	Bids   []Level `json:"bids"`
	Asks   []Level `json:"asks"`
}

type Level struct {
	Price    string `json:"price"`
	Quantity int64  `json:"quantity"`
	Orders   int    `json:"orders"`
}
