package rpc

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"finance_tracker/internal/cache"
	"finance_tracker/internal/identity"
	"finance_tracker/internal/ledger"
	"finance_tracker/internal/obs"
	"finance_tracker/internal/store"
	"finance_tracker/internal/tracker"

	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type rpcEnv struct {
	client  *LedgerClient
	svc     *tracker.Service
	metrics *obs.Metrics
	token   string
	userID  string
}

func newRPCEnv(t *testing.T) *rpcEnv {
	t.Helper()
	metrics := obs.NewMetrics()
	mem := store.NewMemory()
	svc, err := tracker.NewService(tracker.Options{
		Store: mem,
		Cache: cache.NewCache(cache.NewTransactionCache(cache.DefaultTTL), mem, metrics),
	})
	if err != nil {
		t.Fatalf("tracker: %v", err)
	}
	provider, err := identity.NewProvider(identity.Config{Secret: []byte("rpc-secret"), BcryptCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	provider.OnSignUp(svc.OnSignUp)
	session, err := provider.SignUp(context.Background(), "Alice", "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	srv, err := NewServer(svc, provider, metrics)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return &rpcEnv{
		client:  NewLedgerClient(conn),
		svc:     svc,
		metrics: metrics,
		token:   session.Token,
		userID:  session.User.ID,
	}
}

func (e *rpcEnv) ctx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+e.token)
}

func TestLedgerRequiresSession(t *testing.T) {
	env := newRPCEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := env.client.GetSummary(ctx)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	badCtx := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer nope")
	if _, err := env.client.ListTransactions(badCtx, false); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected unauthenticated for bad token, got %v", err)
	}
}

func TestListTransactionsAndSummary(t *testing.T) {
	env := newRPCEnv(t)
	for _, in := range []ledger.TransactionInput{
		{Description: "Salary", Amount: "1000", Type: "income", Category: "Salary", Date: "2024-03-01"},
		{Description: "Lunch", Amount: "12.5", Type: "expense", Category: "Food", Date: "2024-03-02"},
	} {
		if _, err := env.svc.AddTransaction(context.Background(), env.userID, in); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	out, err := env.client.ListTransactions(env.ctx(t), false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := out.GetFields()["count"].GetNumberValue(); got != 2 {
		t.Fatalf("expected 2 transactions, got %v", got)
	}
	first := out.GetFields()["transactions"].GetListValue().GetValues()[0].GetStructValue().GetFields()
	if first["description"].GetStringValue() != "Lunch" || first["amount"].GetStringValue() != "-12.5" {
		t.Fatalf("unexpected first transaction %v", first)
	}

	summary, err := env.client.GetSummary(env.ctx(t))
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	fields := summary.GetFields()
	if fields["balance"].GetStringValue() != "987.50" || fields["currency"].GetStringValue() != "USD" {
		t.Fatalf("unexpected summary %v", fields)
	}
	if fields["total_expense"].GetStringValue() != "12.50" {
		t.Fatalf("unexpected expense %v", fields["total_expense"])
	}
}

func TestInvalidateForcesReload(t *testing.T) {
	env := newRPCEnv(t)
	if _, err := env.client.ListTransactions(env.ctx(t), false); err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, err := env.client.ListTransactions(env.ctx(t), false); err != nil {
		t.Fatalf("list: %v", err)
	}
	if err := env.client.Invalidate(env.ctx(t)); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := env.client.ListTransactions(env.ctx(t), true); err != nil {
		t.Fatalf("forced list: %v", err)
	}

	text := scrapeMetrics(t, env.metrics)
	for _, want := range []string{
		`finance_transaction_cache_events_total{event="hit"} 1`,
		`finance_transaction_cache_events_total{event="miss"} 2`,
		`finance_transaction_cache_events_total{event="invalidate"} 1`,
		`finance_grpc_requests_total{code="OK",method="ListTransactions"} 3`,
		`finance_grpc_requests_total{code="OK",method="Invalidate"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("metrics missing %q", want)
		}
	}
}

func TestNewServerRequiresCollaborators(t *testing.T) {
	if _, err := NewServer(nil, nil, nil); err == nil {
		t.Fatalf("expected error without tracker")
	}
}
