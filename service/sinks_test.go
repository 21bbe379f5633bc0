package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordermatch/domain/events"
	ob "ordermatch/domain/orderbook"
	"ordermatch/infra/sequence"
	entrywal "ordermatch/infra/wal/entry"
	exitwal "ordermatch/infra/wal/exit"
	"ordermatch/snapshot"
)

func TestOutboxSinkAndJournal(t *testing.T) {
	outbox, err := exitwal.Open(t.TempDir())
	require.NoError(t, err)
	defer outbox.Close()

	journalDir := t.TempDir()
	w, err := entrywal.Open(entrywal.Config{Dir: journalDir})
	require.NoError(t, err)
	journal := entrywal.NewJournal(w)

	e := NewMatchingEngine(Options{
		Symbols:      []string{"LNUX"},
		OrderIDs:     sequence.New(0),
		ExecutionIDs: sequence.New(0),
		Sink:         NewOutboxSink(outbox, outbox.LastSeq()),
		Journal:      journal,
	})

	submit(t, e, limitReq(ob.Sell, 100, 5))
	buy := submit(t, e, limitReq(ob.Buy, 100, 5))
	require.Len(t, buy.Fills, 1)
	require.NoError(t, journal.Close())

	var got []events.Envelope
	require.NoError(t, outbox.ScanPending(func(seq uint64, rec exitwal.ExitRecord) error {
		env, err := events.UnmarshalEnvelope(rec.Payload)
		require.NoError(t, err)
		assert.Equal(t, seq, env.Seq)
		got = append(got, env)
		return nil
	}))
	// New(sell), New(buy), Fill, maker Filled, taker Filled
	require.Len(t, got, 5)
	assert.Equal(t, events.TypeFill, got[2].Type)
	assert.Equal(t, uint64(5), outbox.LastSeq())

	var cmds []entrywal.Command
	_, err = entrywal.Replay(journalDir, func(r *entrywal.Record) error {
		c, err := entrywal.UnmarshalCommand(r.Type, r.Data)
		cmds = append(cmds, c)
		return err
	})
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	assert.Equal(t, buy.OrderID, cmds[1].OrderID)
	assert.Equal(t, int64(100), cmds[1].LimitPrice)
	assert.Equal(t, uint8(ob.Buy), cmds[1].Side)
}

type failingSink struct{}

func (failingSink) Emit([]events.Event) error { return errors.New("disk full") }

func TestSinkFailureDoesNotFailRequest(t *testing.T) {
	rec := &recordingSink{}
	e := NewMatchingEngine(Options{
		Symbols:      []string{"LNUX"},
		OrderIDs:     sequence.New(0),
		ExecutionIDs: sequence.New(0),
		Sink:         MultiSink{failingSink{}, rec},
	})
	res := submit(t, e, limitReq(ob.Buy, 10, 1))
	assert.Equal(t, ob.StatusNew, res.Status)
	assert.Len(t, rec.take(), 1)
}

type snapshotRecorder struct {
	snaps []snapshot.Snapshot
}

func (r *snapshotRecorder) Write(_ context.Context, s snapshot.Snapshot) error {
	r.snaps = append(r.snaps, s)
	return nil
}

func TestPublishSnapshots(t *testing.T) {
	e, _, _ := newTestEngine("LNUX", "ABCD")
	submit(t, e, limitReq(ob.Buy, 99, 3))
	submit(t, e, limitReq(ob.Buy, 98, 1))
	submit(t, e, limitReq(ob.Sell, 101, 2))

	rec := &snapshotRecorder{}
	n, err := e.PublishSnapshots(context.Background(), rec, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, rec.snaps, 2)

	lnux := rec.snaps[1]
	assert.Equal(t, "LNUX", lnux.Symbol)
	assert.Equal(t, []snapshot.Level{{Price: 99, Quantity: 3, Orders: 1}}, lnux.Bids)
	assert.Equal(t, []snapshot.Level{{Price: 101, Quantity: 2, Orders: 1}}, lnux.Asks)
	assert.Equal(t, testTime, lnux.Created)
	assert.Empty(t, rec.snaps[0].Bids)
}

func TestRunSnapshotJobStops(t *testing.T) {
	e, _, _ := newTestEngine("LNUX")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.RunSnapshotJob(ctx, &snapshotRecorder{}, time.Millisecond, 5)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("snapshot job did not stop")
	}
}
