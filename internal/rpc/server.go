package rpc

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"finance_tracker/internal/breaker"
	"finance_tracker/internal/identity"
	"finance_tracker/internal/ledger"
	"finance_tracker/internal/obs"
	"finance_tracker/internal/store"
	"finance_tracker/internal/tracker"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

type userKey struct{}

type ledgerServer struct {
	tracker *tracker.Service
}

func NewServer(svc *tracker.Service, provider *identity.Provider, metrics *obs.Metrics, opts ...grpc.ServerOption) (*grpc.Server, error) {
	if svc == nil {
		return nil, errors.New("tracker service is required")
	}
	if provider == nil {
		return nil, errors.New("identity provider is required")
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(authInterceptor(provider, metrics)))
	srv := grpc.NewServer(opts...)
	RegisterLedgerServer(srv, &ledgerServer{tracker: svc})
	healthpb.RegisterHealthServer(srv, health.NewServer())
	return srv, nil
}

func authInterceptor(provider *identity.Provider, metrics *obs.Metrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !strings.HasPrefix(info.FullMethod, "/"+ServiceName+"/") {
			return handler(ctx, req)
		}
		start := time.Now()
		method := path.Base(info.FullMethod)
		resp, err := authorize(ctx, provider, req, handler)
		code := status.Code(err)
		metrics.RecordRPC(method, code.String())
		zap.L().Debug("rpc", zap.String("method", method), zap.String("code", code.String()), zap.Duration("took", time.Since(start)))
		return resp, err
	}
}

func authorize(ctx context.Context, provider *identity.Provider, req any, handler grpc.UnaryHandler) (any, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get("authorization")
	if len(values) == 0 {
		return nil, status.Error(codes.Unauthenticated, "authorization metadata required")
	}
	parts := strings.Fields(values[0])
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, status.Error(codes.Unauthenticated, "bearer token required")
	}
	user, err := provider.Authenticate(parts[1])
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
	return handler(context.WithValue(ctx, userKey{}, user), req)
}

func userFrom(ctx context.Context) (identity.User, error) {
	user, ok := ctx.Value(userKey{}).(identity.User)
	if !ok {
		return identity.User{}, status.Error(codes.Unauthenticated, "no session")
	}
	return user, nil
}

func (s *ledgerServer) ListTransactions(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	user, err := userFrom(ctx)
	if err != nil {
		return nil, err
	}
	force := in.GetFields()["force"].GetBoolValue()
	txs, err := s.tracker.Transactions(ctx, user.ID, force)
	if err != nil {
		return nil, toStatus(err)
	}
	items := make([]any, 0, len(txs))
	for _, tx := range txs {
		items = append(items, transactionFields(tx))
	}
	out, err := structpb.NewStruct(map[string]any{"transactions": items, "count": len(txs)})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *ledgerServer) GetSummary(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	user, err := userFrom(ctx)
	if err != nil {
		return nil, err
	}
	dashboard, err := s.tracker.Dashboard(ctx, user.ID, false)
	if err != nil {
		return nil, toStatus(err)
	}
	sum := dashboard.Summary
	out, err := structpb.NewStruct(map[string]any{
		"currency":      dashboard.Currency,
		"total_income":  sum.TotalIncome.StringFixed(2),
		"total_expense": sum.TotalExpense.StringFixed(2),
		"balance":       dashboard.Balance,
		"month_income":  dashboard.MonthIncome,
		"month_expense": dashboard.MonthExpense,
		"count":         sum.Count,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *ledgerServer) Invalidate(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	user, err := userFrom(ctx)
	if err != nil {
		return nil, err
	}
	s.tracker.Refresh(user.ID)
	return &emptypb.Empty{}, nil
}

func transactionFields(tx ledger.Transaction) map[string]any {
	return map[string]any{
		"id":          tx.ID,
		"description": tx.Description,
		"amount":      tx.Amount.String(),
		"type":        string(tx.Type),
		"category":    tx.Category,
		"date":        tx.Date,
		"created_at":  tx.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toStatus(err error) error {
	var verrs ledger.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return status.Error(codes.InvalidArgument, verrs.Error())
	case errors.Is(err, store.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, breaker.ErrOpen):
		return status.Error(codes.Unavailable, "transaction store unavailable")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
