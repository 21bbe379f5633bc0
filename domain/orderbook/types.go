package orderbook

import (
	"fmt"
	"strings"
)

type Side uint8
type OrderType uint8
type TimeInForce uint8
type Status uint8

const (
	Buy Side = iota + 1
	Sell
)

const (
	Market OrderType = iota + 1
	Limit
	Stop
	StopLimit
)

const (
	GTC TimeInForce = iota
	IOC
)

const (
	StatusNew Status = iota + 1
	StatusPartiallyFilled
	StatusFilled
	StatusCanceled
	StatusRejected
)

// ---- Side ----

func (s Side) Valid() bool { return s == Buy || s == Sell }

func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Side) UnmarshalText(b []byte) error {
	v, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func ParseSide(v string) (Side, error) {
	switch strings.ToUpper(v) {
	case "BUY":
		return Buy, nil
	case "SELL":
		return Sell, nil
	default:
		return 0, fmt.Errorf("unknown side %q", v)
	}
}

// ---- OrderType ----

func (t OrderType) Valid() bool { return t >= Market && t <= StopLimit }

// HasLimitPrice reports whether orders of this type carry a limit price.
func (t OrderType) HasLimitPrice() bool { return t == Limit || t == StopLimit }

// HasStopPrice reports whether orders of this type carry a stop price.
func (t OrderType) HasStopPrice() bool { return t == Stop || t == StopLimit }

func (t OrderType) String() string {
	switch t {
	case Market:
		return "MARKET"
	case Limit:
		return "LIMIT"
	case Stop:
		return "STOP"
	case StopLimit:
		return "STOP_LIMIT"
	default:
		return "UNKNOWN"
	}
}

func (t OrderType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *OrderType) UnmarshalText(b []byte) error {
	v, err := ParseOrderType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func ParseOrderType(v string) (OrderType, error) {
	switch strings.ToUpper(v) {
	case "MARKET":
		return Market, nil
	case "LIMIT":
		return Limit, nil
	case "STOP":
		return Stop, nil
	case "STOP_LIMIT":
		return StopLimit, nil
	default:
		return 0, fmt.Errorf("unknown order type %q", v)
	}
}

// ---- TimeInForce ----

func (f TimeInForce) Valid() bool { return f == GTC || f == IOC }

func (f TimeInForce) String() string {
	switch f {
	case GTC:
		return "GTC"
	case IOC:
		return "IOC"
	default:
		return "UNKNOWN"
	}
}

func (f TimeInForce) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *TimeInForce) UnmarshalText(b []byte) error {
	v, err := ParseTimeInForce(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// ParseTimeInForce maps an empty string to GTC.
func ParseTimeInForce(v string) (TimeInForce, error) {
	switch strings.ToUpper(v) {
	case "", "GTC":
		return GTC, nil
	case "IOC":
		return IOC, nil
	default:
		return 0, fmt.Errorf("unknown time in force %q", v)
	}
}

// ---- Status ----

// Terminal reports whether no further fill or cancel can change an
// order in this status.
func (s Status) Terminal() bool {
	return s == StatusFilled || s == StatusCanceled || s == StatusRejected
}

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "NEW"
	case StatusPartiallyFilled:
		return "PARTIALLY_FILLED"
	case StatusFilled:
		return "FILLED"
	case StatusCanceled:
		return "CANCELED"
	case StatusRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "NEW":
		*s = StatusNew
	case "PARTIALLY_FILLED":
		*s = StatusPartiallyFilled
	case "FILLED":
		*s = StatusFilled
	case "CANCELED":
		*s = StatusCanceled
	case "REJECTED":
		*s = StatusRejected
	default:
		return fmt.Errorf("unknown status %q", string(b))
	}
	return nil
}
