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

// DirectoryService registers and resolves customers and staff. Profile management
// lives elsewhere; this is only what sales and the dashboard need.
type DirectoryService struct {
	repo   port.DirectoryRepository
	stock  port.StockRepository
	cache  port.CacheRepository
	logger *zap.Logger
}

func NewDirectoryService(repo port.DirectoryRepository, stock port.StockRepository, cache port.CacheRepository, logger *zap.Logger) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryService{repo: repo, stock: stock, cache: cache, logger: logger}
}

func (s *DirectoryService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateStats(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("failed to invalidate stats cache", zap.Error(err))
	}
}

func (s *DirectoryService) RegisterCustomer(ctx context.Context, name, email string) (*domain.Customer, error) {
	c := domain.Customer{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.CreateCustomer(ctx, c); err != nil {
		return nil, fmt.Errorf("register customer: %w", err)
	}
	s.invalidate(ctx)
	return &c, nil
}

func (s *DirectoryService) RegisterStaff(ctx context.Context, name, email, designation string) (*domain.Staff, error) {
	st := domain.Staff{
		ID:          uuid.NewString(),
		Name:        name,
		Email:       email,
		Designation: designation,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := st.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.CreateStaff(ctx, st); err != nil {
		return nil, fmt.Errorf("register staff: %w", err)
	}
	s.invalidate(ctx)
	return &st, nil
}

func (s *DirectoryService) ResolveCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

func (s *DirectoryService) ResolveItem(ctx context.Context, id string) (*domain.StockItem, error) {
	return s.stock.GetItem(ctx, id)
}
