package broadcaster

import (
	"context"

	"ordermatch/domain/events"
	"ordermatch/infra/kafka"
	"ordermatch/infra/tradestore"
)

// KafkaSink publishes the raw envelope keyed by symbol.
type KafkaSink struct {
	pub kafka.Publisher
}

func NewKafkaSink(pub kafka.Publisher) *KafkaSink {
	return &KafkaSink{pub: pub}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Deliver(ctx context.Context, env events.Envelope, raw []byte) error {
	return s.pub.Send(ctx, []byte(env.Symbol), raw)
}

// FillStore persists fills.
type FillStore interface {
	SaveFill(ctx context.Context, f tradestore.Fill) error
}

// TradeSink writes fill events to the trade store and ignores the rest.
type TradeSink struct {
	store FillStore
}

func NewTradeSink(store FillStore) *TradeSink {
	return &TradeSink{store: store}
}

func (s *TradeSink) Name() string { return "tradestore" }

func (s *TradeSink) Deliver(ctx context.Context, env events.Envelope, _ []byte) error {
	if env.Type != events.TypeFill {
		return nil
	}
	ev, err := env.Event()
	if err != nil {
		return err
	}
	f := ev.(events.Fill)
	return s.store.SaveFill(ctx, tradestore.Fill{
		ExecutionID: f.ExecutionID,
		Symbol:      f.Symbol,
		BuyOrderID:  f.BuyOrderID,
		SellOrderID: f.SellOrderID,
		Price:       f.Price,
		Quantity:    f.Quantity,
		ExecutedAt:  f.Time,
		EventSeq:    env.Seq,
	})
}
