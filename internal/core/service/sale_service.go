package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/inventory-pos/internal/core/domain"
	"github.com/rl1809/inventory-pos/internal/port"
)

// errLockWait means the per-item lock was not acquired within LockTimeout.
var errLockWait = errors.New("item lock wait expired")

type SaleOptions struct {
	// LockTimeout bounds each wait for an item's lock.
	LockTimeout time.Duration

	// MaxRetries is how many extra attempts a sale gets after a lock timeout or a
	// storage write conflict before ConcurrencyTimeoutError is returned.
	MaxRetries int

	RetryBackoff time.Duration
}

func DefaultSaleOptions() SaleOptions {
	return SaleOptions{
		LockTimeout:  2 * time.Second,
		MaxRetries:   3,
		RetryBackoff: 25 * time.Millisecond,
	}
}

// SaleService records sales: it validates a request, decrements stock and appends the
// ledger entry as one unit of work, serialized per item.
type SaleService struct {
	store  port.Store
	cache  port.CacheRepository
	locks  *itemLocker
	opts   SaleOptions
	logger *zap.Logger
}

func NewSaleService(store port.Store, cache port.CacheRepository, opts SaleOptions, logger *zap.Logger) *SaleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SaleService{
		store:  store,
		cache:  cache,
		locks:  newItemLocker(),
		opts:   opts,
		logger: logger,
	}
}

// RecordSale sells req.Quantity units of req.ItemID to req.CustomerID and returns the
// ledger entry. Failed sales leave stock and ledger untouched.
func (s *SaleService) RecordSale(ctx context.Context, req domain.SaleRequest) (*domain.LedgerEntry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Identity lookups happen before the critical section; the item is checked again
	// by the conditional decrement inside it.
	if _, err := s.store.GetCustomer(ctx, req.CustomerID); err != nil {
		return nil, fmt.Errorf("resolve customer: %w", err)
	}
	if _, err := s.store.GetItem(ctx, req.ItemID); err != nil {
		return nil, fmt.Errorf("resolve item: %w", err)
	}

	if req.RequestID != "" && s.cache != nil {
		ok, err := s.cache.SetIdempotency(ctx, req.RequestID)
		if err != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return nil, domain.ErrDuplicateRequest
		}
	}

	entry, err := s.commit(ctx, req)
	if err != nil {
		if req.RequestID != "" && s.cache != nil && !errors.Is(err, domain.ErrDuplicateRequest) {
			if relErr := s.cache.ReleaseIdempotency(context.WithoutCancel(ctx), req.RequestID); relErr != nil {
				s.logger.Warn("failed to release idempotency key",
					zap.String("requestId", req.RequestID), zap.Error(relErr))
			}
		}
		level := zap.WarnLevel
		if domain.IsClientError(err) {
			level = zap.InfoLevel
		}
		s.logger.Log(level, "sale rejected",
			zap.String("itemId", req.ItemID),
			zap.String("customerId", req.CustomerID),
			zap.Int("quantity", req.Quantity),
			zap.Error(err))
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateStats(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to invalidate stats cache", zap.Error(err))
		}
	}

	s.logger.Info("sale recorded",
		zap.String("transactionId", entry.ID),
		zap.String("itemId", entry.ItemID),
		zap.Int("quantity", entry.Quantity),
		zap.String("totalPrice", entry.TotalPrice.StringFixed(2)))

	return entry, nil
}

func (s *SaleService) commit(ctx context.Context, req domain.SaleRequest) (*domain.LedgerEntry, error) {
	for attempt := 1; ; attempt++ {
		entry, err := s.attempt(ctx, req)
		if err == nil {
			return entry, nil
		}
		if !errors.Is(err, errLockWait) && !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		if attempt > s.opts.MaxRetries {
			return nil, &domain.ConcurrencyTimeoutError{ItemID: req.ItemID, Attempts: attempt}
		}

		s.logger.Debug("retrying sale",
			zap.String("itemId", req.ItemID), zap.Int("attempt", attempt), zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.opts.RetryBackoff * time.Duration(attempt)):
		}
	}
}

func (s *SaleService) attempt(ctx context.Context, req domain.SaleRequest) (*domain.LedgerEntry, error) {
	release, err := s.locks.acquire(ctx, req.ItemID, s.opts.LockTimeout)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errLockWait
	}
	defer release()

	entry := &domain.LedgerEntry{
		CustomerID: req.CustomerID,
		ItemID:     req.ItemID,
		Quantity:   req.Quantity,
		RequestID:  req.RequestID,
	}

	err = s.store.WithSale(ctx, req.ItemID, func(unit port.SaleUnit) error {
		_, price, err := unit.TryDecrement(ctx, req.ItemID, req.Quantity)
		if err != nil {
			return err
		}
		entry.UnitPrice = price
		entry.TotalPrice = domain.LineTotal(price, req.Quantity)
		return unit.AppendEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *SaleService) GetByID(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	return s.store.GetEntry(ctx, id)
}

// All yields every ledger entry, most recent first. Each range re-reads the store.
func (s *SaleService) All(ctx context.Context) iter.Seq2[domain.LedgerEntry, error] {
	return s.store.Entries(ctx, domain.EntryFilter{NewestFirst: true})
}

func (s *SaleService) ByCustomer(ctx context.Context, customerID string) iter.Seq2[domain.LedgerEntry, error] {
	return s.store.Entries(ctx, domain.EntryFilter{CustomerID: customerID})
}

func (s *SaleService) ByItem(ctx context.Context, itemID string) iter.Seq2[domain.LedgerEntry, error] {
	return s.store.Entries(ctx, domain.EntryFilter{ItemID: itemID})
}

// Between yields entries created in [from, to], oldest first.
func (s *SaleService) Between(ctx context.Context, from, to time.Time) (iter.Seq2[domain.LedgerEntry, error], error) {
	if to.Before(from) {
		return nil, &domain.ValidationError{Field: "to", Reason: "must not be before from"}
	}
	return s.store.Entries(ctx, domain.EntryFilter{From: from, To: to}), nil
}

func (s *SaleService) TotalRevenue(ctx context.Context) (decimal.Decimal, error) {
	return s.store.TotalRevenue(ctx)
}

// CollectEntries drains seq into a slice, stopping at the first error.
func CollectEntries(seq iter.Seq2[domain.LedgerEntry, error]) ([]domain.LedgerEntry, error) {
	entries := []domain.LedgerEntry{}
	for e, err := range seq {
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
