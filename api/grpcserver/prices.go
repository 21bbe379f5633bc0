package grpcserver

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Ticks converts between decimal prices and integer ticks. With scale
// 2 one tick is 0.01.
type Ticks struct {
	scale int32
}

func NewTicks(scale int32) Ticks { return Ticks{scale: scale} }

// Parse returns nil for an empty string. Prices that fall between two
// ticks or overflow are errors.
func (t Ticks) Parse(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("price %q: %w", s, err)
	}
	shifted := d.Shift(t.scale)
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("price %q is finer than the tick size %s", s, t.Format(1))
	}
	if !shifted.BigInt().IsInt64() {
		return nil, fmt.Errorf("price %q out of range", s)
	}
	v := shifted.IntPart()
	return &v, nil
}

func (t Ticks) Format(ticks int64) string {
	return decimal.New(ticks, -t.scale).StringFixed(t.scale)
}
