package service

import "ordermatch/domain/orderbook"

// RejectReason is a machine readable validation code.
type RejectReason string

const (
	RejectUnknownSymbol        RejectReason = "UNKNOWN_SYMBOL"
	RejectInvalidSide          RejectReason = "INVALID_SIDE"
	RejectInvalidType          RejectReason = "INVALID_TYPE"
	RejectInvalidTimeInForce   RejectReason = "INVALID_TIME_IN_FORCE"
	RejectInvalidQuantity      RejectReason = "INVALID_QUANTITY"
	RejectMissingLimitPrice    RejectReason = "MISSING_LIMIT_PRICE"
	RejectMissingStopPrice     RejectReason = "MISSING_STOP_PRICE"
	RejectUnexpectedLimitPrice RejectReason = "UNEXPECTED_LIMIT_PRICE"
	RejectUnexpectedStopPrice  RejectReason = "UNEXPECTED_STOP_PRICE"
	RejectInvalidPrice         RejectReason = "INVALID_PRICE"
	RejectBookHalted           RejectReason = "BOOK_HALTED"
)

// SubmitRequest is a new order as received from a gateway. Prices are
// integer ticks; nil means the field was not supplied.
type SubmitRequest struct {
	Symbol      string
	Side        orderbook.Side
	Type        orderbook.OrderType
	TimeInForce orderbook.TimeInForce
	Quantity    int64
	LimitPrice  *int64
	StopPrice   *int64
}

type SubmitResult struct {
	// OrderID is zero for rejected requests.
	OrderID uint64
	Status  orderbook.Status
	Reason  RejectReason
	Fills   []orderbook.Fill

	OpenQty     int64
	ExecutedQty int64
	// Rested reports that a remainder now rests in the book, Parked
	// that a stop order waits for its trigger.
	Rested bool
	Parked bool
}

type CancelStatus uint8

const (
	CancelCanceled CancelStatus = iota + 1
	CancelNotFound
	CancelRejected
)

func (s CancelStatus) String() string {
	switch s {
	case CancelCanceled:
		return "CANCELED"
	case CancelNotFound:
		return "NOT_FOUND"
	case CancelRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

type CancelResult struct {
	Status CancelStatus
	Reason RejectReason
	State  orderbook.OrderState
}

type TriggerStatus uint8

const (
	TriggerTriggered TriggerStatus = iota + 1
	TriggerNotFound
	TriggerRejected
)

func (s TriggerStatus) String() string {
	switch s {
	case TriggerTriggered:
		return "TRIGGERED"
	case TriggerNotFound:
		return "NOT_FOUND"
	case TriggerRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

type TriggerResult struct {
	Status      TriggerStatus
	Reason      RejectReason
	OrderStatus orderbook.Status
	Fills       []orderbook.Fill
	OpenQty     int64
	ExecutedQty int64
	Rested      bool
}

func Price(p int64) *int64 { return &p }
