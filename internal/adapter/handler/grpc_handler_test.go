package handler

import (
	"context"
	"net"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func newTestClient(t *testing.T) (*SaleClient, *testEnv) {
	t.Helper()
	env := newTestEnv(t)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterSaleServiceServer(srv, NewGRPCHandler(env.sales, env.stats, zap.NewNop()))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewSaleClient(conn), env
}

func TestGRPC_RecordSale(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	tx, err := client.RecordSale(ctx, &SaleRequest{CustomerID: "cust-1", ItemID: "laptop", Quantity: 5})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("6499.95").Equal(tx.TotalPrice))

	got, err := client.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, got.ID)
	assert.Equal(t, 5, got.Quantity)
}

func TestGRPC_ErrorCodes(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *SaleRequest
		code codes.Code
	}{
		{"validation", &SaleRequest{CustomerID: "cust-1", ItemID: "laptop", Quantity: -1}, codes.InvalidArgument},
		{"not found", &SaleRequest{CustomerID: "cust-1", ItemID: "ghost", Quantity: 1}, codes.NotFound},
		{"insufficient", &SaleRequest{CustomerID: "cust-1", ItemID: "hub", Quantity: 6}, codes.FailedPrecondition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.RecordSale(ctx, tt.req)
			assert.Equal(t, tt.code, status.Code(err))
		})
	}

	req := &SaleRequest{CustomerID: "cust-1", ItemID: "hub", Quantity: 1, RequestID: "grpc-1"}
	_, err := client.RecordSale(ctx, req)
	require.NoError(t, err)
	_, err = client.RecordSale(ctx, req)
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	_, err = client.GetTransaction(ctx, "missing")
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestGRPC_ListTransactionsAndStats(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	for _, item := range []string{"laptop", "hub", "laptop"} {
		_, err := client.RecordSale(ctx, &SaleRequest{CustomerID: "cust-1", ItemID: item, Quantity: 1})
		require.NoError(t, err)
	}

	all, err := client.ListTransactions(ctx, &ListTransactionsRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	laptops, err := client.ListTransactions(ctx, &ListTransactionsRequest{ItemID: "laptop"})
	require.NoError(t, err)
	assert.Len(t, laptops, 2)

	stats, err := client.GetStats(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TransactionCount)
	assert.Equal(t, 1, stats.LowStockCount)
	assert.True(t, decimal.RequireFromString("2679.97").Equal(stats.TotalRevenue))
}
