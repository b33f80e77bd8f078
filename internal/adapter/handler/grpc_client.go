package handler

import (
	"context"
	"errors"
	"io"

	"google.golang.org/grpc"

	"github.com/rl1809/inventory-pos/internal/core/domain"
)

// SaleClient calls inventory.v1.SaleService over any gRPC connection.
type SaleClient struct {
	cc grpc.ClientConnInterface
}

func NewSaleClient(cc grpc.ClientConnInterface) *SaleClient {
	return &SaleClient{cc: cc}
}

func method(name string) string {
	return "/" + saleServiceName + "/" + name
}

func (c *SaleClient) RecordSale(ctx context.Context, req *SaleRequest, opts ...grpc.CallOption) (*TransactionResponse, error) {
	out := new(TransactionResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, method("RecordSale"), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SaleClient) GetTransaction(ctx context.Context, id string, opts ...grpc.CallOption) (*TransactionResponse, error) {
	out := new(TransactionResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, method("GetTransaction"), &GetTransactionRequest{ID: id}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SaleClient) GetStats(ctx context.Context, threshold int, opts ...grpc.CallOption) (*domain.Stats, error) {
	out := new(domain.Stats)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, method("GetStats"), &StatsRequest{Threshold: threshold}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTransactions drains the server stream into a slice.
func (c *SaleClient) ListTransactions(ctx context.Context, req *ListTransactionsRequest, opts ...grpc.CallOption) ([]TransactionResponse, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &saleServiceDesc.Streams[0], method("ListTransactions"), opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}

	var out []TransactionResponse
	for {
		var resp TransactionResponse
		err := stream.RecvMsg(&resp)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
}
