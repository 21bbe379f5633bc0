package grpcserver

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"ordermatch/domain/orderbook"
	"ordermatch/service"
)

// Engine is the part of the matching engine the gateway drives.
type Engine interface {
	Submit(ctx context.Context, req service.SubmitRequest) (service.SubmitResult, error)
	Cancel(ctx context.Context, orderID uint64, symbol string, side orderbook.Side) (service.CancelResult, error)
	Trigger(ctx context.Context, symbol string, orderID uint64) (service.TriggerResult, error)
	BestBid(symbol string) (int64, bool)
	BestAsk(symbol string) (int64, bool)
	Depth(symbol string, levels int) (service.Depth, bool)
	Symbols() []string
}

// Server adapts the matching engine to gRPC.
type Server struct {
	engine Engine
	ticks  Ticks
	log    *zap.SugaredLogger
}

func NewServer(engine Engine, ticks Ticks, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Server{engine: engine, ticks: ticks, log: log}
}

// NewGRPCServer builds a grpc.Server with the order entry service and
// request logging installed.
func NewGRPCServer(srv *Server, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(LoggingInterceptor(srv.log)))
	s := grpc.NewServer(opts...)
	RegisterOrderEntryServer(s, srv)
	return s
}

// -------------------- Commands --------------------

func (s *Server) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResponse, error) {
	limit, err := s.ticks.Parse(req.LimitPrice)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	stop, err := s.ticks.Parse(req.StopPrice)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	side, err := orderbook.ParseSide(req.Side)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	otype, err := orderbook.ParseOrderType(req.Type)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	tif, err := orderbook.ParseTimeInForce(req.TimeInForce)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	res, err := s.engine.Submit(ctx, service.SubmitRequest{
		Symbol:      req.Symbol,
		Side:        side,
		Type:        otype,
		TimeInForce: tif,
		Quantity:    req.Quantity,
		LimitPrice:  limit,
		StopPrice:   stop,
	})
	if err != nil {
		return nil, internal(err)
	}

	return &SubmitResponse{
		OrderID:          res.OrderID,
		Status:           res.Status.String(),
		Reason:           string(res.Reason),
		OpenQuantity:     res.OpenQty,
		ExecutedQuantity: res.ExecutedQty,
		Fills:            s.fills(res.Fills),
	}, nil
}

func (s *Server) Cancel(ctx context.Context, req *CancelRequest) (*CancelResponse, error) {
	side, err := orderbook.ParseSide(req.Side)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	res, err := s.engine.Cancel(ctx, req.OrderID, req.Symbol, side)
	if err != nil {
		return nil, internal(err)
	}
	return &CancelResponse{
		Status:           res.Status.String(),
		Reason:           string(res.Reason),
		OpenQuantity:     res.State.OpenQty,
		ExecutedQuantity: res.State.ExecutedQty,
	}, nil
}

func (s *Server) Trigger(ctx context.Context, req *TriggerRequest) (*TriggerResponse, error) {
	res, err := s.engine.Trigger(ctx, req.Symbol, req.OrderID)
	if err != nil {
		return nil, internal(err)
	}
	out := &TriggerResponse{
		Status:           res.Status.String(),
		Reason:           string(res.Reason),
		OpenQuantity:     res.OpenQty,
		ExecutedQuantity: res.ExecutedQty,
		Fills:            s.fills(res.Fills),
	}
	if res.Status == service.TriggerTriggered {
		out.OrderStatus = res.OrderStatus.String()
	}
	return out, nil
}

// -------------------- Queries --------------------

func (s *Server) Quote(ctx context.Context, req *QuoteRequest) (*QuoteResponse, error) {
	if !s.known(req.Symbol) {
		return nil, status.Errorf(codes.NotFound, "unknown symbol %q", req.Symbol)
	}
	out := &QuoteResponse{Symbol: req.Symbol}
	if bid, ok := s.engine.BestBid(req.Symbol); ok {
		out.Bid = s.ticks.Format(bid)
	}
	if ask, ok := s.engine.BestAsk(req.Symbol); ok {
		out.Ask = s.ticks.Format(ask)
	}
	return out, nil
}

func (s *Server) Depth(ctx context.Context, req *DepthRequest) (*DepthResponse, error) {
	if req.Levels < 0 {
		return nil, status.Error(codes.InvalidArgument, "levels must not be negative")
	}
	d, ok := s.engine.Depth(req.Symbol, req.Levels)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "unknown symbol %q", req.Symbol)
	}
	return &DepthResponse{
		Symbol: d.Symbol,
		Seq:    d.Seq,
		Bids:   s.levels(d.Bids),
		Asks:   s.levels(d.Asks),
	}, nil
}

// -------------------- Converters --------------------

func (s *Server) known(symbol string) bool {
	for _, sym := range s.engine.Symbols() {
		if sym == symbol {
			return true
		}
	}
	return false
}

func (s *Server) fills(in []orderbook.Fill) []Fill {
	if len(in) == 0 {
		return nil
	}
	out := make([]Fill, len(in))
	for i, f := range in {
		out[i] = Fill{
			ExecutionID: f.ExecutionID,
			BuyOrderID:  f.BuyOrderID,
			SellOrderID: f.SellOrderID,
			Price:       s.ticks.Format(f.Price),
			Quantity:    f.Quantity,
			Time:        f.Timestamp,
		}
	}
	return out
}

func (s *Server) levels(in []orderbook.LevelView) []Level {
	out := make([]Level, len(in))
	for i, l := range in {
		out[i] = Level{Price: s.ticks.Format(l.Price), Quantity: l.Quantity, Orders: l.Orders}
	}
	return out
}

func internal(err error) error {
	if errors.Is(err, orderbook.ErrInvariantViolation) {
		return status.Error(codes.Internal, "order book halted")
	}
	return status.Error(codes.Internal, err.Error())
}

// LoggingInterceptor logs every call with its status code and latency.
func LoggingInterceptor(log *zap.SugaredLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		if code == codes.Internal || code == codes.Unknown {
			log.Errorw("rpc", "method", info.FullMethod, "code", code, "took", time.Since(start), "err", err)
		} else {
			log.Debugw("rpc", "method", info.FullMethod, "code", code, "took", time.Since(start))
		}
		return resp, err
	}
}
