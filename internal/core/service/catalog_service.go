package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/inventory-pos/internal/core/domain"
	"github.com/rl1809/inventory-pos/internal/port"
)

// CatalogService manages stock items outside of sales: creation, edits, restocking.
type CatalogService struct {
	stock            port.StockRepository
	cache            port.CacheRepository
	defaultThreshold int
	logger           *zap.Logger
}

func NewCatalogService(stock port.StockRepository, cache port.CacheRepository, defaultThreshold int, logger *zap.Logger) *CatalogService {
	if defaultThreshold <= 0 {
		defaultThreshold = domain.DefaultLowStockThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		stock:            stock,
		cache:            cache,
		defaultThreshold: defaultThreshold,
		logger:           logger,
	}
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateStats(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("failed to invalidate stats cache", zap.Error(err))
	}
}

// CreateItem assigns an id and stores item. Prices are kept to the cent.
func (s *CatalogService) CreateItem(ctx context.Context, item domain.StockItem) (*domain.StockItem, error) {
	item.ID = uuid.NewString()
	item.Price = item.Price.Round(2)
	item.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	if err := item.Validate(); err != nil {
		return nil, err
	}

	if err := s.stock.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	s.invalidate(ctx)

	s.logger.Info("item created", zap.String("itemId", item.ID), zap.String("name", item.Name))
	return &item, nil
}

func (s *CatalogService) UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) (*domain.StockItem, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if patch.Price != nil {
		rounded := patch.Price.Round(2)
		patch.Price = &rounded
	}

	item, err := s.stock.UpdateItem(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return item, nil
}

func (s *CatalogService) DeleteItem(ctx context.Context, id string) error {
	if err := s.stock.DeleteItem(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *CatalogService) GetItem(ctx context.Context, id string) (*domain.StockItem, error) {
	return s.stock.GetItem(ctx, id)
}

func (s *CatalogService) ListItems(ctx context.Context, filter domain.ItemFilter) ([]domain.StockItem, error) {
	return s.stock.ListItems(ctx, filter)
}

func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	return s.stock.Categories(ctx)
}

// LowStockItems lists items with quantity strictly below threshold (default when <= 0).
func (s *CatalogService) LowStockItems(ctx context.Context, threshold int) ([]domain.StockItem, error) {
	if threshold <= 0 {
		threshold = s.defaultThreshold
	}
	items, err := s.stock.ListItems(ctx, domain.ItemFilter{})
	if err != nil {
		return nil, err
	}
	low := []domain.StockItem{}
	for _, item := range items {
		if item.IsLowStock(threshold) {
			low = append(low, item)
		}
	}
	return low, nil
}

// Restock adds amount units. Increments can't break the non-negative invariant, so
// this does not go through the per-item sale lock. The store rejects an amount that
// would overflow the item's quantity.
func (s *CatalogService) Restock(ctx context.Context, id string, amount int) (int, error) {
	if err := domain.CheckRestock(0, amount); err != nil {
		return 0, err
	}
	quantity, err := s.stock.Restock(ctx, id, amount)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx)

	s.logger.Info("item restocked",
		zap.String("itemId", id), zap.Int("amount", amount), zap.Int("quantity", quantity))
	return quantity, nil
}
