package service

import (
	"context"
	"time"

	"ordermatch/snapshot"
)

// SnapshotWriter stores depth snapshots.
type SnapshotWriter interface {
	Write(ctx context.Context, snap snapshot.Snapshot) error
}

// PublishSnapshots writes the top depth levels of every book once and
// returns how many books were written.
func (e *MatchingEngine) PublishSnapshots(ctx context.Context, w SnapshotWriter, depth int) (int, error) {
	n := 0
	for _, sym := range e.Symbols() {
		d, ok := e.Depth(sym, depth)
		if !ok {
			continue
		}
		if err := w.Write(ctx, snapshot.New(sym, d.Seq, d.Bids, d.Asks, e.now())); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// RunSnapshotJob publishes snapshots every interval until ctx is done.
func (e *MatchingEngine) RunSnapshotJob(ctx context.Context, w SnapshotWriter, interval time.Duration, depth int) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := e.PublishSnapshots(ctx, w, depth); err != nil && ctx.Err() == nil {
				e.log.Warnw("snapshot publish failed", "err", err)
			}
		}
	}
}
