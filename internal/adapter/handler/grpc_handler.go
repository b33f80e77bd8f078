package handler

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"

	"github.com/rl1809/inventory-pos/internal/core/domain"
	"github.com/rl1809/inventory-pos/internal/core/service"
)

const saleServiceName = "inventory.v1.SaleService"

type GetTransactionRequest struct {
	ID string `json:"id"`
}

type ListTransactionsRequest struct {
	CustomerID string `json:"customerId,omitempty"`
	ItemID     string `json:"itemId,omitempty"`
}

type StatsRequest struct {
	Threshold int `json:"threshold,omitempty"`
}

// SaleServiceServer is the server side of inventory.v1.SaleService.
type SaleServiceServer interface {
	RecordSale(context.Context, *SaleRequest) (*TransactionResponse, error)
	GetTransaction(context.Context, *GetTransactionRequest) (*TransactionResponse, error)
	GetStats(context.Context, *StatsRequest) (*domain.Stats, error)
	ListTransactions(*ListTransactionsRequest, grpc.ServerStream) error
}

type GRPCHandler struct {
	sales  *service.SaleService
	stats  *service.StatsService
	logger *zap.Logger
}

var _ SaleServiceServer = (*GRPCHandler)(nil)

func NewGRPCHandler(sales *service.SaleService, stats *service.StatsService, logger *zap.Logger) *GRPCHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GRPCHandler{sales: sales, stats: stats, logger: logger}
}

func (h *GRPCHandler) RecordSale(ctx context.Context, req *SaleRequest) (*TransactionResponse, error) {
	entry, err := h.sales.RecordSale(ctx, domain.SaleRequest{
		CustomerID: req.CustomerID,
		ItemID:     req.ItemID,
		Quantity:   req.Quantity,
		RequestID:  req.RequestID,
	})
	if err != nil {
		return nil, h.status(err)
	}
	resp := toTransactionResponse(*entry)
	return &resp, nil
}

func (h *GRPCHandler) GetTransaction(ctx context.Context, req *GetTransactionRequest) (*TransactionResponse, error) {
	entry, err := h.sales.GetByID(ctx, req.ID)
	if err != nil {
		return nil, h.status(err)
	}
	resp := toTransactionResponse(*entry)
	return &resp, nil
}

func (h *GRPCHandler) GetStats(ctx context.Context, req *StatsRequest) (*domain.Stats, error) {
	stats, err := h.stats.Stats(ctx, req.Threshold)
	if err != nil {
		return nil, h.status(err)
	}
	return stats, nil
}

// ListTransactions streams matching entries straight from the ledger sequence.
func (h *GRPCHandler) ListTransactions(req *ListTransactionsRequest, stream grpc.ServerStream) error {
	ctx := stream.Context()
	seq := h.sales.All(ctx)
	switch {
	case req.CustomerID != "":
		seq = h.sales.ByCustomer(ctx, req.CustomerID)
	case req.ItemID != "":
		seq = h.sales.ByItem(ctx, req.ItemID)
	}

	for entry, err := range seq {
		if err != nil {
			return h.status(err)
		}
		resp := toTransactionResponse(entry)
		if err := stream.SendMsg(&resp); err != nil {
			return err
		}
	}
	return nil
}

func (h *GRPCHandler) status(err error) error {
	if grpcCode(err) == codes.Internal {
		h.logger.Error("rpc failed", zap.Error(err))
	}
	return toStatus(err)
}

// RegisterSaleServiceServer is the hand-written counterpart of a generated registration func.
func RegisterSaleServiceServer(s grpc.ServiceRegistrar, srv SaleServiceServer) {
	s.RegisterService(&saleServiceDesc, srv)
}

func unaryHandler[Req any](method string, call func(SaleServiceServer, context.Context, *Req) (any, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SaleServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + saleServiceName + "/" + method,
			}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(SaleServiceServer), ctx, req.(*Req))
			})
		},
	}
}

var saleServiceDesc = grpc.ServiceDesc{
	ServiceName: saleServiceName,
	HandlerType: (*SaleServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("RecordSale", func(s SaleServiceServer, ctx context.Context, req *SaleRequest) (any, error) {
			return s.RecordSale(ctx, req)
		}),
		unaryHandler("GetTransaction", func(s SaleServiceServer, ctx context.Context, req *GetTransactionRequest) (any, error) {
			return s.GetTransaction(ctx, req)
		}),
		unaryHandler("GetStats", func(s SaleServiceServer, ctx context.Context, req *StatsRequest) (any, error) {
			return s.GetStats(ctx, req)
		}),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "ListTransactions",
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(ListTransactionsRequest)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(SaleServiceServer).ListTransactions(in, stream)
			},
		},
	},
}
