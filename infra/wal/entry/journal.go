package entry

import "sync"

// Journal hands out journal sequence numbers and appends commands.
type Journal struct {
	mu  sync.Mutex
	wal *WAL
	seq uint64
}

func NewJournal(w *WAL) *Journal {
	return &Journal{wal: w, seq: w.LastSeq()}
}

// Append journals c under the next sequence number.
func (j *Journal) Append(c Command) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	rec := NewRecord(c.Kind, j.seq+1, MarshalCommand(c))
	err := j.wal.Append(rec)
	// a failed rotation still wrote the record
	j.seq = j.wal.LastSeq()
	return err
}

func (j *Journal) Sync() error  { return j.wal.Sync() }
func (j *Journal) Close() error { return j.wal.Close() }
