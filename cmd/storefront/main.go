package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"storefront-api/internal/config"
	"storefront-api/internal/database"
	"storefront-api/internal/handler"
	"storefront-api/internal/infrastructure/broker"
	"storefront-api/internal/infrastructure/ratelimit"
	"storefront-api/internal/logging"
	"storefront-api/internal/repo"
	"storefront-api/internal/service"
	"storefront-api/internal/telemetry"
	"storefront-api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)
	telemetry.InitPropagation()
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("storefront stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	conn, err := database.NewPostgres(ctx, cfg.DB)
	if err != nil {
		return err
	}
	db := database.New(conn, cfg.DB.Database, log)
	defer db.Close()
	log.Info("connected to database", "database", cfg.DB.Database, "host", cfg.DB.Host)

	if err := database.Migrate(ctx, db.DB()); err != nil {
		return err
	}

	metrics := telemetry.NewMetrics()
	store := repo.NewStore(db.DB())
	pricing := service.NewPricing(cfg.VATRate, cfg.PriceTolerance)

	limiter, closeLimiter := newLimiter(ctx, cfg, log)
	defer closeLimiter()

	publisher := newPublisher(cfg, log)
	defer publisher.Close()

	relay := worker.NewOutboxRelay(store, publisher, cfg.OutboxInterval, cfg.OutboxBatchSize, cfg.OutboxMaxRetries, metrics, log)
	stopRelay := relay.Start(ctx)
	defer stopRelay()

	router := handler.NewRouter(handler.Deps{
		Log:                log,
		Metrics:            metrics,
		DB:                 db,
		Orders:             service.NewOrderService(store, pricing, cfg.DefaultCountry, metrics, log),
		Catalog:            service.NewCatalogService(store, log),
		Carts:              service.NewCartService(store, pricing),
		Limiter:            limiter,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		TrustedProxies:     cfg.TrustedProxies,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       time.Minute,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http listening", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("storefront shutdown complete")
	return nil
}

// newLimiter uses Redis when configured so limits hold across replicas.
func newLimiter(ctx context.Context, cfg config.Config, log *slog.Logger) (ratelimit.Limiter, func()) {
	if cfg.RedisAddr == "" {
		mem := ratelimit.NewMemoryLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
		go mem.Run(ctx)
		log.Info("rate limiter", "backend", "memory", "limit", cfg.RateLimitRequests, "window", cfg.RateLimitWindow)
		return mem, func() {}
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable, limiter will fail open until it recovers", "addr", cfg.RedisAddr, "err", err)
	}
	log.Info("rate limiter", "backend", "redis", "addr", cfg.RedisAddr, "limit", cfg.RateLimitRequests, "window", cfg.RateLimitWindow)
	closeRedis := func() {
		if err := rdb.Close(); err != nil {
			log.Warn("redis close failed", "err", err)
		}
	}
	return ratelimit.NewRedisLimiter(rdb, cfg.RateLimitRequests, cfg.RateLimitWindow), closeRedis
}

func newPublisher(cfg config.Config, log *slog.Logger) broker.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		log.Info("event publisher", "backend", "log")
		return broker.NewLogPublisher(log)
	}
	log.Info("event publisher", "backend", "kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.OrderEventsTopic)
	return broker.NewKafkaPublisher(broker.NewKafkaWriter(cfg.KafkaBrokers), cfg.OrderEventsTopic)
}
