package service

import "ordermatch/domain/orderbook"

// validate checks a request on its own; symbol policy is checked by
// the engine.
func validate(r SubmitRequest) (RejectReason, bool) {
	switch {
	case !r.Side.Valid():
		return RejectInvalidSide, false
	case !r.Type.Valid():
		return RejectInvalidType, false
	case !r.TimeInForce.Valid():
		return RejectInvalidTimeInForce, false
	case r.Quantity <= 0:
		return RejectInvalidQuantity, false
	}

	if r.Type.HasLimitPrice() {
		if r.LimitPrice == nil {
			return RejectMissingLimitPrice, false
		}
		if *r.LimitPrice <= 0 {
			return RejectInvalidPrice, false
		}
	} else if r.LimitPrice != nil {
		return RejectUnexpectedLimitPrice, false
	}

	if r.Type.HasStopPrice() {
		if r.StopPrice == nil {
			return RejectMissingStopPrice, false
		}
		if *r.StopPrice <= 0 {
			return RejectInvalidPrice, false
		}
	} else if r.StopPrice != nil {
		return RejectUnexpectedStopPrice, false
	}
	return "", true
}

func deref(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

func newOrder(id uint64, r SubmitRequest) *orderbook.Order {
	return orderbook.NewOrder(id, r.Symbol, r.Side, r.Type, r.TimeInForce, deref(r.LimitPrice), deref(r.StopPrice), r.Quantity)
}
