package grpcserver

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"ordermatch/infra/sequence"
	"ordermatch/service"
)

func newTestClient(t *testing.T) *OrderEntryClient {
	t.Helper()

	engine := service.NewMatchingEngine(service.Options{
		Symbols:      []string{"LNUX"},
		OrderIDs:     sequence.New(0),
		ExecutionIDs: sequence.New(0),
	})
	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer(NewServer(engine, NewTicks(2), nil))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewOrderEntryClient(conn)
}

func TestSubmitMatchAndQuote(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	buy, err := c.Submit(ctx, &SubmitRequest{Symbol: "LNUX", Side: "BUY", Type: "LIMIT", Quantity: 5, LimitPrice: "101.00"})
	require.NoError(t, err)
	assert.Equal(t, "NEW", buy.Status)
	assert.NotZero(t, buy.OrderID)

	sell, err := c.Submit(ctx, &SubmitRequest{Symbol: "LNUX", Side: "sell", Type: "limit", Quantity: 10, LimitPrice: "100"})
	require.NoError(t, err)
	assert.Equal(t, "PARTIALLY_FILLED", sell.Status)
	require.Len(t, sell.Fills, 1)
	assert.Equal(t, "101.00", sell.Fills[0].Price)
	assert.Equal(t, int64(5), sell.Fills[0].Quantity)
	assert.Equal(t, buy.OrderID, sell.Fills[0].BuyOrderID)

	q, err := c.Quote(ctx, &QuoteRequest{Symbol: "LNUX"})
	require.NoError(t, err)
	assert.Empty(t, q.Bid)
	assert.Equal(t, "100.00", q.Ask)

	d, err := c.Depth(ctx, &DepthRequest{Symbol: "LNUX", Levels: 5})
	require.NoError(t, err)
	assert.Empty(t, d.Bids)
	assert.Equal(t, []Level{{Price: "100.00", Quantity: 5, Orders: 1}}, d.Asks)
}

func TestSubmitRejectedIsAResult(t *testing.T) {
	c := newTestClient(t)
	res, err := c.Submit(context.Background(), &SubmitRequest{Symbol: "LNUX", Side: "BUY", Type: "LIMIT", Quantity: 10})
	require.NoError(t, err)
	assert.Equal(t, "REJECTED", res.Status)
	assert.Equal(t, "MISSING_LIMIT_PRICE", res.Reason)
}

func TestSubmitBadWireValues(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.Submit(ctx, &SubmitRequest{Symbol: "LNUX", Side: "BUY", Type: "LIMIT", Quantity: 1, LimitPrice: "100.001"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = c.Submit(ctx, &SubmitRequest{Symbol: "LNUX", Side: "HOLD", Type: "LIMIT", Quantity: 1, LimitPrice: "1"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = c.Submit(ctx, &SubmitRequest{Symbol: "LNUX", Side: "BUY", Type: "LIMIT", TimeInForce: "FOK", Quantity: 1, LimitPrice: "1"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestCancelAndTrigger(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	o, err := c.Submit(ctx, &SubmitRequest{Symbol: "LNUX", Side: "BUY", Type: "LIMIT", Quantity: 3, LimitPrice: "99.50"})
	require.NoError(t, err)

	res, err := c.Cancel(ctx, &CancelRequest{OrderID: o.OrderID, Symbol: "LNUX", Side: "BUY"})
	require.NoError(t, err)
	assert.Equal(t, "CANCELED", res.Status)
	assert.Equal(t, int64(3), res.OpenQuantity)

	res, err = c.Cancel(ctx, &CancelRequest{OrderID: o.OrderID, Symbol: "LNUX", Side: "BUY"})
	require.NoError(t, err)
	assert.Equal(t, "NOT_FOUND", res.Status)

	stop, err := c.Submit(ctx, &SubmitRequest{Symbol: "LNUX", Side: "SELL", Type: "STOP_LIMIT", Quantity: 2, LimitPrice: "98", StopPrice: "98.5"})
	require.NoError(t, err)
	assert.Equal(t, "NEW", stop.Status)

	tr, err := c.Trigger(ctx, &TriggerRequest{Symbol: "LNUX", OrderID: stop.OrderID})
	require.NoError(t, err)
	assert.Equal(t, "TRIGGERED", tr.Status)
	assert.Equal(t, "NEW", tr.OrderStatus)

	q, err := c.Quote(ctx, &QuoteRequest{Symbol: "LNUX"})
	require.NoError(t, err)
	assert.Equal(t, "98.00", q.Ask)
}

func TestUnknownSymbolQueries(t *testing.T) {
	c := newTestClient(t)
	_, err := c.Quote(context.Background(), &QuoteRequest{Symbol: "NOPE"})
	assert.Equal(t, codes.NotFound, status.Code(err))
	_, err = c.Depth(context.Background(), &DepthRequest{Symbol: "NOPE"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestTicks(t *testing.T) {
	ticks := NewTicks(2)

	p, err := ticks.Parse("101.25")
	require.NoError(t, err)
	assert.Equal(t, int64(10125), *p)

	p, err = ticks.Parse("")
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = ticks.Parse("1.005")
	assert.Error(t, err)
	_, err = ticks.Parse("abc")
	assert.Error(t, err)
	_, err = ticks.Parse("100000000000000000000")
	assert.Error(t, err)

	assert.Equal(t, "0.07", ticks.Format(7))
	assert.Equal(t, "-1.50", ticks.Format(-150))
	assert.Equal(t, "42", NewTicks(0).Format(42))
}
