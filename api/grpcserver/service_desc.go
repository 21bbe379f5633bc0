package grpcserver

import (
	"context"

	"google.golang.org/grpc"
)

const serviceName = "ordermatch.v1.OrderEntry"

// OrderEntryServer is the order entry service.
type OrderEntryServer interface {
	Submit(context.Context, *SubmitRequest) (*SubmitResponse, error)
	Cancel(context.Context, *CancelRequest) (*CancelResponse, error)
	Trigger(context.Context, *TriggerRequest) (*TriggerResponse, error)
	Quote(context.Context, *QuoteRequest) (*QuoteResponse, error)
	Depth(context.Context, *DepthRequest) (*DepthResponse, error)
}

var OrderEntryServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*OrderEntryServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Submit", OrderEntryServer.Submit),
		unary("Cancel", OrderEntryServer.Cancel),
		unary("Trigger", OrderEntryServer.Trigger),
		unary("Quote", OrderEntryServer.Quote),
		unary("Depth", OrderEntryServer.Depth),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ordermatch/v1/order_entry",
}

func RegisterOrderEntryServer(s grpc.ServiceRegistrar, srv OrderEntryServer) {
	s.RegisterService(&OrderEntryServiceDesc, srv)
}

func unary[Req, Resp any](method string, call func(OrderEntryServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + serviceName + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(OrderEntryServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(OrderEntryServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// OrderEntryClient calls the service over the JSON codec.
type OrderEntryClient struct {
	cc grpc.ClientConnInterface
}

func NewOrderEntryClient(cc grpc.ClientConnInterface) *OrderEntryClient {
	return &OrderEntryClient{cc: cc}
}

func (c *OrderEntryClient) Submit(ctx context.Context, in *SubmitRequest, opts ...grpc.CallOption) (*SubmitResponse, error) {
	return invoke[SubmitResponse](ctx, c.cc, "Submit", in, opts)
}

func (c *OrderEntryClient) Cancel(ctx context.Context, in *CancelRequest, opts ...grpc.CallOption) (*CancelResponse, error) {
	return invoke[CancelResponse](ctx, c.cc, "Cancel", in, opts)
}

func (c *OrderEntryClient) Trigger(ctx context.Context, in *TriggerRequest, opts ...grpc.CallOption) (*TriggerResponse, error) {
	return invoke[TriggerResponse](ctx, c.cc, "Trigger", in, opts)
}

func (c *OrderEntryClient) Quote(ctx context.Context, in *QuoteRequest, opts ...grpc.CallOption) (*QuoteResponse, error) {
	return invoke[QuoteResponse](ctx, c.cc, "Quote", in, opts)
}

func (c *OrderEntryClient) Depth(ctx context.Context, in *DepthRequest, opts ...grpc.CallOption) (*DepthResponse, error) {
	return invoke[DepthResponse](ctx, c.cc, "Depth", in, opts)
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
