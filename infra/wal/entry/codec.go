package entry

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Command is the journaled form of one engine request. Prices are
// ticks; zero means absent.
type Command struct {
	Kind        RecordType
	OrderID     uint64
	Symbol      string
	Side        uint8
	Type        uint8
	TimeInForce uint8
	Quantity    int64
	LimitPrice  int64
	StopPrice   int64
}

// protobuf field numbers
const (
	fieldOrderID     protowire.Number = 1
	fieldSymbol      protowire.Number = 2
	fieldSide        protowire.Number = 3
	fieldType        protowire.Number = 4
	fieldTimeInForce protowire.Number = 5
	fieldQuantity    protowire.Number = 6
	fieldLimitPrice  protowire.Number = 7
	fieldStopPrice   protowire.Number = 8
)

var errTruncated = errors.New("truncated command")

// MarshalCommand encodes c as a protobuf message. Kind travels in the
// frame header, not in the payload.
func MarshalCommand(c Command) []byte {
	b := make([]byte, 0, 32+len(c.Symbol))
	b = appendVarint(b, fieldOrderID, c.OrderID)
	if c.Symbol != "" {
		b = protowire.AppendTag(b, fieldSymbol, protowire.BytesType)
		b = protowire.AppendString(b, c.Symbol)
	}
	b = appendVarint(b, fieldSide, uint64(c.Side))
	b = appendVarint(b, fieldType, uint64(c.Type))
	b = appendVarint(b, fieldTimeInForce, uint64(c.TimeInForce))
	b = appendVarint(b, fieldQuantity, uint64(c.Quantity))
	b = appendVarint(b, fieldLimitPrice, uint64(c.LimitPrice))
	b = appendVarint(b, fieldStopPrice, uint64(c.StopPrice))
	return b
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// UnmarshalCommand decodes a payload written by MarshalCommand.
// Unknown fields are skipped.
func UnmarshalCommand(kind RecordType, b []byte) (Command, error) {
	c := Command{Kind: kind}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Command{}, fmt.Errorf("%w: %v", errTruncated, protowire.ParseError(n))
		}
		b = b[n:]

		if num == fieldSymbol && typ == protowire.BytesType {
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return Command{}, fmt.Errorf("%w: %v", errTruncated, protowire.ParseError(n))
			}
			c.Symbol = s
			b = b[n:]
			continue
		}
		if typ != protowire.VarintType {
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Command{}, fmt.Errorf("%w: %v", errTruncated, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return Command{}, fmt.Errorf("%w: %v", errTruncated, protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldOrderID:
			c.OrderID = v
		case fieldSide:
			c.Side = uint8(v)
		case fieldType:
			c.Type = uint8(v)
		case fieldTimeInForce:
			c.TimeInForce = uint8(v)
		case fieldQuantity:
			c.Quantity = int64(v)
		case fieldLimitPrice:
			c.LimitPrice = int64(v)
		case fieldStopPrice:
			c.StopPrice = int64(v)
		}
	}
	return c, nil
}
