// Package retention trims the request journal to its newest records.
package retention

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Journal is the part of the journal WAL retention drives.
type Journal interface {
	LastSeq() uint64
	TruncateBefore(seq uint64) error
}

type Job struct {
	journal  Journal
	keep     uint64
	interval time.Duration
	log      *zap.SugaredLogger
}

// New keeps the newest keep records. Whole closed segments are the
// unit of removal, so up to one segment more than keep may survive.
func New(journal Journal, keep uint64, interval time.Duration, log *zap.SugaredLogger) *Job {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Job{journal: journal, keep: keep, interval: interval, log: log}
}

// Once truncates up to the cutoff and returns it. Zero means nothing
// was old enough.
func (j *Job) Once() (uint64, error) {
	last := j.journal.LastSeq()
	if j.keep == 0 || last <= j.keep {
		return 0, nil
	}
	cutoff := last - j.keep
	return cutoff, j.journal.TruncateBefore(cutoff)
}

// Run trims every interval until ctx is done.
func (j *Job) Run(ctx context.Context) {
	if j.keep == 0 || j.interval <= 0 {
		return
	}
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff, err := j.Once()
			if err != nil {
				j.log.Warnw("journal truncate", "cutoff", cutoff, "err", err)
				continue
			}
			if cutoff > 0 {
				j.log.Debugw("journal truncated", "cutoff", cutoff)
			}
		}
	}
}
