// Package exit is the event outbox: envelopes the engine emitted that
// have not yet been acknowledged by every sink. Records live in pebble
// keyed by event sequence so a scan yields them in emission order.
package exit

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
)

type ExitState uint8

const (
	StateNew ExitState = iota
	StateSent
	StateAcked
	StateFailed
)

func (s ExitState) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// ExitRecord is one outbox entry. Payload is the encoded envelope.
type ExitRecord struct {
	State       ExitState
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

const recordHeader = 1 + 4 + 8

var ErrNotFound = errors.New("outbox record not found")

// [state:1][retries:4][lastAttempt:8][payload]
func encodeRecord(r ExitRecord) []byte {
	buf := make([]byte, recordHeader+len(r.Payload))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	copy(buf[recordHeader:], r.Payload)
	return buf
}

func decodeRecord(b []byte) (ExitRecord, error) {
	if len(b) < recordHeader {
		return ExitRecord{}, errors.New("invalid exit record length")
	}
	payload := make([]byte, len(b)-recordHeader)
	copy(payload, b[recordHeader:])
	return ExitRecord{
		State:       ExitState(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     payload,
	}, nil
}

type ExitWAL struct {
	db *pebble.DB

	mu   sync.Mutex
	last uint64
}

func Open(dir string) (*ExitWAL, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	w := &ExitWAL{db: db}
	if w.last, err = w.loadLastSeq(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("read last seq: %w", err)
	}
	return w, nil
}

func (w *ExitWAL) Close() error {
	return w.db.Close()
}

// Put stores a new envelope under its event sequence and advances the
// stored high-water mark in the same batch.
func (w *ExitWAL) Put(seq uint64, payload []byte) error {
	rec := ExitRecord{State: StateNew, Payload: payload}

	w.mu.Lock()
	defer w.mu.Unlock()

	b := w.db.NewBatch()
	defer b.Close()
	if err := b.Set(keyFor(seq), encodeRecord(rec), nil); err != nil {
		return err
	}
	if seq > w.last {
		var mark [8]byte
		binary.BigEndian.PutUint64(mark[:], seq)
		if err := b.Set(lastSeqKey, mark[:], nil); err != nil {
			return err
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return err
	}
	w.last = max(w.last, seq)
	return nil
}

func (w *ExitWAL) MarkSent(seq uint64) error {
	return w.update(seq, func(r *ExitRecord) {
		r.State = StateSent
		r.LastAttempt = time.Now().UnixNano()
	})
}

func (w *ExitWAL) MarkAcked(seq uint64) error {
	return w.update(seq, func(r *ExitRecord) { r.State = StateAcked })
}

// MarkFailed puts the record back in line for another attempt.
func (w *ExitWAL) MarkFailed(seq uint64) error {
	return w.update(seq, func(r *ExitRecord) {
		r.State = StateFailed
		r.Retries++
		r.LastAttempt = time.Now().UnixNano()
	})
}

func (w *ExitWAL) update(seq uint64, fn func(*ExitRecord)) error {
	rec, err := w.Get(seq)
	if err != nil {
		return err
	}
	fn(&rec)
	return w.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync)
}

// Delete removes an acknowledged record.
func (w *ExitWAL) Delete(seq uint64) error {
	return w.db.Delete(keyFor(seq), pebble.Sync)
}

func (w *ExitWAL) Get(seq uint64) (ExitRecord, error) {
	val, closer, err := w.db.Get(keyFor(seq))
	if errors.Is(err, pebble.ErrNotFound) {
		return ExitRecord{}, fmt.Errorf("%w: seq %d", ErrNotFound, seq)
	}
	if err != nil {
		return ExitRecord{}, err
	}
	defer closer.Close()

	return decodeRecord(val)
}

// LastSeq is the highest sequence ever stored, acknowledged records
// included, or zero for a fresh outbox.
func (w *ExitWAL) LastSeq() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

func (w *ExitWAL) loadLastSeq() (uint64, error) {
	val, closer, err := w.db.Get(lastSeqKey)
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer closer.Close()

	if len(val) != 8 {
		return 0, errors.New("invalid last seq mark")
	}
	return binary.BigEndian.Uint64(val), nil
}

// ScanByState visits records in the given state in sequence order.
func (w *ExitWAL) ScanByState(state ExitState, fn func(seq uint64, rec ExitRecord) error) error {
	return w.scan(func(s ExitState) bool { return s == state }, fn)
}

// ScanPending visits every record not yet acknowledged, in sequence
// order. Sent records are included since a crash may have interrupted
// their delivery.
func (w *ExitWAL) ScanPending(fn func(seq uint64, rec ExitRecord) error) error {
	return w.scan(func(s ExitState) bool { return s != StateAcked }, fn)
}

func (w *ExitWAL) scan(match func(ExitState) bool, fn func(uint64, ExitRecord) error) error {
	iter, err := w.db.NewIter(bounds())
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		rec, err := decodeRecord(iter.Value())
		if err != nil {
			return err
		}
		if !match(rec.State) {
			continue
		}

		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		if err := fn(seq, rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

const keyPrefix = "event/"

var lastSeqKey = []byte("meta/last_seq")

func bounds() *pebble.IterOptions {
	return &pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte("event/~"),
	}
}

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf(keyPrefix+"%020d", seq))
}

func parseKey(b []byte) (uint64, error) {
	var seq uint64
	_, err := fmt.Sscanf(string(bytes.TrimPrefix(b, []byte(keyPrefix))), "%d", &seq)
	return seq, err
}
