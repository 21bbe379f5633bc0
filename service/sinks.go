package service

import (
	"fmt"

	"ordermatch/domain/events"
	"ordermatch/infra/sequence"
	entrywal "ordermatch/infra/wal/entry"
)

// EventSink receives the events of one engine call, in order. It runs
// under the symbol lock, so per-symbol order is the emission order.
type EventSink interface {
	Emit(evs []events.Event) error
}

// Journal records accepted commands.
type Journal interface {
	Append(c entrywal.Command) error
}

type nopSink struct{}

func (nopSink) Emit([]events.Event) error { return nil }

type nopJournal struct{}

func (nopJournal) Append(entrywal.Command) error { return nil }

// Outbox is where OutboxSink parks envelopes.
type Outbox interface {
	Put(seq uint64, payload []byte) error
}

// OutboxSink wraps each event in an envelope with the next global
// event sequence and stores it for the broadcaster.
type OutboxSink struct {
	outbox Outbox
	seq    *sequence.Sequencer
}

// NewOutboxSink continues numbering after lastSeq.
func NewOutboxSink(outbox Outbox, lastSeq uint64) *OutboxSink {
	return &OutboxSink{outbox: outbox, seq: sequence.New(lastSeq)}
}

func (s *OutboxSink) Emit(evs []events.Event) error {
	for _, e := range evs {
		seq := s.seq.Next()
		env, err := events.Wrap(seq, e)
		if err != nil {
			return err
		}
		raw, err := env.Marshal()
		if err != nil {
			return fmt.Errorf("encode envelope %d: %w", seq, err)
		}
		if err := s.outbox.Put(seq, raw); err != nil {
			return fmt.Errorf("outbox put %d: %w", seq, err)
		}
	}
	return nil
}

// MultiSink emits to every sink and reports the first failure after
// all of them ran.
type MultiSink []EventSink

func (m MultiSink) Emit(evs []events.Event) error {
	var first error
	for _, s := range m {
		if err := s.Emit(evs); err != nil && first == nil {
			first = err
		}
	}
	return first
}
