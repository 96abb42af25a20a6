package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "finance.v1.Ledger"

const (
	methodListTransactions = "/" + ServiceName + "/ListTransactions"
	methodGetSummary       = "/" + ServiceName + "/GetSummary"
	methodInvalidate       = "/" + ServiceName + "/Invalidate"
)

type LedgerServer interface {
	ListTransactions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSummary(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Invalidate(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
}

var LedgerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListTransactions", Handler: listTransactionsHandler},
		{MethodName: "GetSummary", Handler: getSummaryHandler},
		{MethodName: "Invalidate", Handler: invalidateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "finance/v1/ledger.proto",
}

func RegisterLedgerServer(s grpc.ServiceRegistrar, srv LedgerServer) {
	s.RegisterService(&LedgerServiceDesc, srv)
}

func listTransactionsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LedgerServer).ListTransactions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodListTransactions}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LedgerServer).ListTransactions(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getSummaryHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LedgerServer).GetSummary(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetSummary}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LedgerServer).GetSummary(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func invalidateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LedgerServer).Invalidate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodInvalidate}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LedgerServer).Invalidate(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

type LedgerClient struct {
	cc grpc.ClientConnInterface
}

func NewLedgerClient(cc grpc.ClientConnInterface) *LedgerClient {
	return &LedgerClient{cc: cc}
}

func (c *LedgerClient) ListTransactions(ctx context.Context, force bool, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"force": force})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodListTransactions, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerClient) GetSummary(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetSummary, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerClient) Invalidate(ctx context.Context, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, methodInvalidate, &emptypb.Empty{}, new(emptypb.Empty), opts...)
}
