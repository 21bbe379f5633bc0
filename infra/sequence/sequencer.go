package sequence

import "sync/atomic"

// Sequencer issues strictly increasing ids. Next is safe for concurrent
// use; concurrent callers never receive the same value.
type Sequencer struct {
	last atomic.Uint64
}

// New creates a sequencer whose first id is start+1.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.last.Store(start)
	return s
}

func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

// Current returns the last issued id.
func (s *Sequencer) Current() uint64 {
	return s.last.Load()
}
