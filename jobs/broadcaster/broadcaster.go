// Package broadcaster drains the event outbox into the configured sinks.
//
// Delivery is at least once and in sequence order: a record that fails
// on any sink stops the pass, and the next tick starts again from it.
// Delivered records are marked acked, then purged at the end of the
// pass; an acked record left behind by a crash is never resent.
package broadcaster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"ordermatch/domain/events"
	exitwal "ordermatch/infra/wal/exit"
)

// Sink receives every envelope. It must tolerate duplicates.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, env events.Envelope, raw []byte) error
}

// Outbox is the part of the exit WAL the broadcaster drives.
type Outbox interface {
	ScanPending(fn func(seq uint64, rec exitwal.ExitRecord) error) error
	ScanByState(state exitwal.ExitState, fn func(seq uint64, rec exitwal.ExitRecord) error) error
	MarkSent(seq uint64) error
	MarkAcked(seq uint64) error
	MarkFailed(seq uint64) error
	Delete(seq uint64) error
}

type Broadcaster struct {
	outbox   Outbox
	sinks    []Sink
	interval time.Duration
	log      *zap.SugaredLogger
}

func New(outbox Outbox, interval time.Duration, log *zap.SugaredLogger, sinks ...Sink) *Broadcaster {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Broadcaster{
		outbox:   outbox,
		sinks:    sinks,
		interval: interval,
		log:      log,
	}
}

// Run ticks until ctx is done, then makes one last pass.
func (b *Broadcaster) Run(ctx context.Context) {
	b.log.Infow("broadcaster started", "sinks", len(b.sinks), "interval", b.interval)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if _, err := b.Flush(flushCtx); err != nil {
				b.log.Warnw("final flush incomplete", "err", err)
			}
			cancel()
			b.log.Info("broadcaster stopped")
			return

		case <-ticker.C:
			if _, err := b.Flush(ctx); err != nil && !errors.Is(err, context.Canceled) {
				b.log.Warnw("delivery pass stopped", "err", err)
			}
		}
	}
}

// Flush delivers pending records in order and returns how many were
// delivered.
func (b *Broadcaster) Flush(ctx context.Context) (int, error) {
	delivered := 0
	err := b.outbox.ScanPending(func(seq uint64, rec exitwal.ExitRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		env, err := events.UnmarshalEnvelope(rec.Payload)
		if err != nil {
			// unreadable records can never be delivered
			b.log.Errorw("dropping undecodable outbox record", "seq", seq, "err", err)
			return b.outbox.Delete(seq)
		}

		if err := b.outbox.MarkSent(seq); err != nil {
			return err
		}

		for _, s := range b.sinks {
			if err := s.Deliver(ctx, env, rec.Payload); err != nil {
				if mErr := b.outbox.MarkFailed(seq); mErr != nil {
					b.log.Errorw("mark failed", "seq", seq, "err", mErr)
				}
				return fmt.Errorf("sink %s seq %d (attempt %d): %w", s.Name(), seq, rec.Retries+1, err)
			}
		}

		if err := b.outbox.MarkAcked(seq); err != nil {
			return err
		}
		delivered++
		return nil
	})

	if pErr := b.purge(); pErr != nil {
		err = multierror.Append(err, pErr).ErrorOrNil()
	}
	return delivered, err
}

// purge removes acked records.
func (b *Broadcaster) purge() error {
	return b.outbox.ScanByState(exitwal.StateAcked, func(seq uint64, _ exitwal.ExitRecord) error {
		return b.outbox.Delete(seq)
	})
}
