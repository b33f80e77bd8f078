package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rl1809/inventory-pos/internal/adapter/handler"
	"github.com/rl1809/inventory-pos/internal/adapter/storage"
	"github.com/rl1809/inventory-pos/internal/config"
	"github.com/rl1809/inventory-pos/internal/core/service"
	"github.com/rl1809/inventory-pos/internal/logger"
	"github.com/rl1809/inventory-pos/internal/port"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "HTTP listen address")
	flag.StringVar(&cfg.GRPCAddr, "grpc", cfg.GRPCAddr, "gRPC listen address")
	flag.StringVar(&cfg.StoreDriver, "driver", cfg.StoreDriver, "store driver: sqlite, mysql, postgres or memory")
	flag.StringVar(&cfg.DatabaseDSN, "dsn", cfg.DatabaseDSN, "database DSN (sqlite: file path)")
	flag.BoolVar(&cfg.SeedData, "seed", cfg.SeedData, "load demo data into an empty catalog")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize store
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	log.Info("store ready", zap.String("driver", cfg.StoreDriver))

	// Initialize cache
	var cache port.CacheRepository
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		cache = storage.NewRedisAdapter(rdb, cfg.StatsTTL)
		log.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	} else {
		cache = storage.NewMemoryCache(cfg.StatsTTL)
	}

	// Initialize services
	sales := service.NewSaleService(store, cache, service.SaleOptions{
		LockTimeout:  cfg.LockTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, log.Named("sales"))
	stats := service.NewStatsService(store, cache, cfg.LowStock, log.Named("stats"))
	catalog := service.NewCatalogService(store, cache, cfg.LowStock, log.Named("catalog"))
	directory := service.NewDirectoryService(store, store, cache, log.Named("directory"))

	if cfg.SeedData {
		if err := service.SeedDemoData(ctx, catalog, directory); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
		log.Info("demo data ready")
	}

	// Start gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterSaleServiceServer(grpcServer, handler.NewGRPCHandler(sales, stats, log.Named("grpc")))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	// Start HTTP server
	httpHandler := handler.NewHTTPHandler(sales, stats, catalog, directory, log.Named("http"))
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpHandler.Router(cfg.CORSOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case serveErr = <-errCh:
		log.Error("server failed, shutting down", zap.Error(serveErr))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown", zap.Error(err))
	}
	log.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	log.Info("gRPC server stopped")

	return serveErr
}

func openStore(ctx context.Context, cfg *config.Config) (port.Store, error) {
	if cfg.StoreDriver == "memory" {
		return storage.NewMemoryStore(), nil
	}
	store, err := storage.OpenSQL(ctx, cfg.StoreDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return store, nil
}
