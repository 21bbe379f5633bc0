package entry

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"ordermatch/infra/memory"
)

const (
	headerSize = 1 + 8 + 8 + 4
	crcSize    = 4
	maxPayload = 1 << 20

	defaultSegmentSize = 64 << 20
)

var ErrClosed = errors.New("journal closed")

type Config struct {
	Dir             string
	SegmentSize     int64
	SegmentDuration time.Duration
}

type WAL struct {
	mu sync.Mutex

	dir        string
	segSize    int64
	segDur     time.Duration
	current    *segment
	segIndex   int
	lastRotate time.Time
	lastSeq    uint64
	closed     bool

	bufs *memory.Pool[[]byte]
}

// Open resumes the newest segment in cfg.Dir, or starts segment 0.
// A torn frame at the tail of the newest segment is cut off.
func Open(cfg Config) (*WAL, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	if cfg.SegmentSize <= 0 {
		cfg.SegmentSize = defaultSegmentSize
	}

	files, err := segmentFiles(cfg.Dir)
	if err != nil {
		return nil, err
	}

	w := &WAL{
		dir:     cfg.Dir,
		segSize: cfg.SegmentSize,
		segDur:  cfg.SegmentDuration,
		bufs:    memory.NewBufferPool(4096),
	}

	if n := len(files); n > 0 {
		last := files[n-1]
		idx, err := segmentIndex(last)
		if err != nil {
			return nil, fmt.Errorf("segment name %s: %w", last, err)
		}
		seq, good, err := validPrefix(last)
		if err != nil {
			return nil, err
		}
		if err := os.Truncate(last, good); err != nil {
			return nil, err
		}
		if seq == 0 && n > 1 {
			// newest segment is empty, the last seq lives in the one before
			if seq, err = maxSeqInSegment(files[n-2]); err != nil {
				return nil, err
			}
		}
		w.segIndex = idx
		w.lastSeq = seq
	}

	seg, err := openSegment(cfg.Dir, w.segIndex)
	if err != nil {
		return nil, err
	}
	w.current = seg
	w.lastRotate = time.Now()
	return w, nil
}

// LastSeq is the sequence of the newest record on disk.
func (w *WAL) LastSeq() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeq
}

// Append writes one frame:
// [type:1][seq:8][time:8][len:4][payload][crc:4]
func (w *WAL) Append(r *Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.appendLocked(r)
}

func (w *WAL) appendLocked(r *Record) error {
	if w.closed {
		return ErrClosed
	}
	if r.Seq <= w.lastSeq {
		return fmt.Errorf("non-monotonic seq %d after %d", r.Seq, w.lastSeq)
	}

	if len(r.Data) > maxPayload {
		return fmt.Errorf("payload of %d bytes exceeds %d", len(r.Data), maxPayload)
	}
	payloadLen := uint32(len(r.Data))
	size := headerSize + int(payloadLen) + crcSize

	bp := w.bufs.Get()
	defer w.bufs.Put(bp)
	if cap(*bp) < size {
		*bp = make([]byte, 0, size)
	}
	buf := (*bp)[:size]

	buf[0] = byte(r.Type)
	binary.BigEndian.PutUint64(buf[1:9], r.Seq)
	binary.BigEndian.PutUint64(buf[9:17], uint64(r.Time))
	binary.BigEndian.PutUint32(buf[17:21], payloadLen)
	copy(buf[headerSize:], r.Data)

	crc := CRC32(buf[:headerSize+int(payloadLen)])
	binary.BigEndian.PutUint32(buf[headerSize+int(payloadLen):], crc)

	if err := w.current.append(buf); err != nil {
		return err
	}
	w.lastSeq = r.Seq

	if w.current.offset >= w.segSize || (w.segDur > 0 && time.Since(w.lastRotate) >= w.segDur) {
		return w.rotate()
	}
	return nil
}

// rotate opens the next segment before retiring the current one, so a
// failed open leaves the log appendable and the next append retries.
func (w *WAL) rotate() error {
	if err := w.current.sync(); err != nil {
		return err
	}

	seg, err := openSegment(w.dir, w.segIndex+1)
	if err != nil {
		return fmt.Errorf("rotate segment: %w", err)
	}

	old := w.current
	w.current = seg
	w.segIndex++
	w.lastRotate = time.Now()
	return old.close()
}

func (w *WAL) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	return w.current.sync()
}

func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.current.sync(); err != nil {
		_ = w.current.close()
		return err
	}
	return w.current.close()
}

// TruncateBefore removes closed segments whose records all have
// seq <= seq. The active segment is never removed. Segments that can't
// be read are kept and reported in the returned error.
func (w *WAL) TruncateBefore(seq uint64) error {
	w.mu.Lock()
	active := segmentPath(w.dir, w.segIndex)
	w.mu.Unlock()

	files, err := segmentFiles(w.dir)
	if err != nil {
		return err
	}

	var merr *multierror.Error
	for _, path := range files {
		if path == active {
			continue
		}
		maxSeq, err := maxSeqInSegment(path)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("scan %s: %w", filepath.Base(path), err))
			continue
		}
		if maxSeq <= seq {
			if err := os.Remove(path); err != nil {
				return err
			}
		}
	}
	return merr.ErrorOrNil()
}

func segmentFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, segmentGlob))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
