package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/inventory-pos/internal/core/domain"
	"github.com/rl1809/inventory-pos/internal/port"
)

// StatsService derives dashboard figures from the stores. It never writes to them.
type StatsService struct {
	store            port.Store
	cache            port.CacheRepository
	defaultThreshold int
	logger           *zap.Logger
}

func NewStatsService(store port.Store, cache port.CacheRepository, defaultThreshold int, logger *zap.Logger) *StatsService {
	if defaultThreshold <= 0 {
		defaultThreshold = domain.DefaultLowStockThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{
		store:            store,
		cache:            cache,
		defaultThreshold: defaultThreshold,
		logger:           logger,
	}
}

// Stats returns counts, low-stock count and total revenue. threshold <= 0 selects the
// configured default. A cached value may be slightly stale but each field was read
// in a single consistent step.
func (s *StatsService) Stats(ctx context.Context, threshold int) (*domain.Stats, error) {
	if threshold <= 0 {
		threshold = s.defaultThreshold
	}

	var (
		generation int64
		cacheable  bool
	)
	if s.cache != nil {
		cached, err := s.cache.GetStats(ctx, threshold)
		if err != nil {
			s.logger.Warn("stats cache read failed", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}

		// Taken before the reads so a sale committed while they run makes SetStats a no-op.
		generation, err = s.cache.StatsGeneration(ctx)
		if err != nil {
			s.logger.Warn("stats cache generation read failed", zap.Error(err))
		} else {
			cacheable = true
		}
	}

	stats := domain.Stats{LowStockThreshold: threshold, TotalRevenue: decimal.Zero}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.StaffCount, err = s.store.CountStaff(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.CustomerCount, err = s.store.CountCustomers(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.ItemCount, err = s.store.CountItems(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.TransactionCount, err = s.store.CountEntries(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.LowStockCount, err = s.store.CountLowStock(gctx, threshold)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalRevenue, err = s.store.TotalRevenue(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("compute stats: %w", err)
	}

	if cacheable {
		stored, err := s.cache.SetStats(ctx, threshold, generation, stats)
		if err != nil {
			s.logger.Warn("stats cache write failed", zap.Error(err))
		} else if !stored {
			s.logger.Debug("stats invalidated while computing, not cached", zap.Int("threshold", threshold))
		}
	}
	return &stats, nil
}

func (s *StatsService) LowStockCount(ctx context.Context, threshold int) (int, error) {
	if threshold <= 0 {
		threshold = s.defaultThreshold
	}
	return s.store.CountLowStock(ctx, threshold)
}

func (s *StatsService) TotalRevenue(ctx context.Context) (decimal.Decimal, error) {
	return s.store.TotalRevenue(ctx)
}
