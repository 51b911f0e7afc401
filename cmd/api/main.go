package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storefront/internal/backend"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/filterstate"
	"storefront/internal/httpserver"
	"storefront/internal/logging"
	"storefront/internal/migrate"
	"storefront/internal/repository/slot"
	accountsvc "storefront/internal/service/account"
	cartsvc "storefront/internal/service/cart"
	categorysvc "storefront/internal/service/category"
	checkoutsvc "storefront/internal/service/checkout"
	productsvc "storefront/internal/service/product"
	sessionsvc "storefront/internal/service/session"
	"storefront/internal/store"
)

const (
	redisSlotTTL  = 30 * 24 * time.Hour
	sweepInterval = time.Minute
)

func main() {
	cfg := config.Load()
	logger, err := logging.New(cfg.LogEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	if cfg.LogEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	slots, closeSlots, err := openSlots(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open slot store", zap.String("backend", cfg.SlotBackend), zap.Error(err))
	}
	defer closeSlots()

	client := backend.New(backend.Config{
		BaseURL: cfg.BackendURL,
		Timeout: cfg.BackendTimeout,
	}, logger.Named("backend"))

	sessions := sessionsvc.New(slots, logger.Named("session"))
	registry := store.NewRegistry(slots, store.RegistryConfig{
		IdleTimeout: cfg.SessionIdle,
		ToastTTL:    cfg.ToastTTL,
	}, logger.Named("registry"))
	defer registry.Close()

	productService := productsvc.New(client, logger.Named("product"))
	categoryService := categorysvc.New(client, logger.Named("category"))
	persister := filterstate.NewPersister(filterstate.Config{
		Namespace: cfg.FilterNamespace,
		Debounce:  cfg.FilterDebounce,
	}, logger.Named("filterstate"))
	browser := productsvc.NewBrowser(productService, categoryService, persister, logger.Named("browser"))
	accountService := accountsvc.New(client, logger.Named("account"))
	checkoutService := checkoutsvc.New(client, accountService, cfg.PaymentPublicKey, logger.Named("checkout"))

	registry.OnEvict(browser.Release)
	registry.OnEvict(sessions.Forget)
	go registry.Run(ctx, sweepInterval)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, httpserver.Deps{
		Slots:      slots,
		Sessions:   sessions,
		Registry:   registry,
		Products:   productService,
		Browser:    browser,
		Categories: categoryService,
		Cart:       cartsvc.New(productService),
		Accounts:   accountService,
		Checkout:   checkoutService,
	}, httpserver.Options{
		BasePath:       cfg.BasePath,
		CORSOrigins:    cfg.CORSOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", zap.String("addr", cfg.HTTPAddr), zap.String("backend", cfg.BackendURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("server stopped")
	}
	stop()
}

// openSlots builds the slot store named by SLOT_BACKEND.
func openSlots(ctx context.Context, cfg config.Config, logger *zap.Logger) (slot.Repository, func(), error) {
	switch cfg.SlotBackend {
	case config.SlotMemory:
		logger.Warn("using in-memory slot store; state is lost on restart")
		return slot.NewMemory(), func() {}, nil
	case config.SlotRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return slot.NewRedis(rdb, redisSlotTTL, logger.Named("slots")), func() { rdb.Close() }, nil
	case config.SlotPostgres:
		pool, err := db.Connect(ctx, cfg.DBConnString, db.PoolOptions{
			MaxConns:        int32(cfg.DBMaxConns),
			MaxConnIdleTime: cfg.DBMaxConnIdle,
			MaxConnLifetime: cfg.DBMaxConnLife,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := migrate.Apply(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("apply migrations: %w", err)
		}
		return slot.NewPostgres(pool, logger.Named("slots")), closePool(pool), nil
	}
	return nil, nil, fmt.Errorf("unknown slot backend %q", cfg.SlotBackend)
}

func closePool(pool *pgxpool.Pool) func() {
	return func() { pool.Close() }
}
