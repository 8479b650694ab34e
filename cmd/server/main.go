// Package main is the entry point for the wallet service.
// It builds every dependency explicitly, starts the HTTP server and the
// reconciliation sweep, and shuts both down on SIGINT/SIGTERM.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"propwallet/internal/config"
	"propwallet/internal/events"
	"propwallet/internal/handlers"
	"propwallet/internal/lock"
	"propwallet/internal/logger"
	"propwallet/internal/metrics"
	"propwallet/internal/middleware"
	"propwallet/internal/repositories"
	"propwallet/internal/repositories/cache"
	"propwallet/internal/routes"
	"propwallet/internal/services/payment"
	"propwallet/internal/services/wallet"
	"propwallet/internal/utils/crypto"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	cfg := config.MustLoad()
	log := logger.Must(cfg.Env)
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	// Postgres
	db, err := repositories.Open(cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := repositories.Close(db); err != nil {
			log.Warn("failed to close database connection", zap.Error(err))
		}
	}()
	if err := repositories.Migrate(db); err != nil {
		return err
	}
	store := repositories.NewLedgerStore(db)
	log.Info("database connected", zap.String("host", cfg.Database.Host), zap.String("name", cfg.Database.Name))

	// Redis lock quorum; the first node also holds the webhook dedup set.
	redisClients := cache.NewRedisClients(cfg.Redis)
	defer func() {
		if err := cache.CloseAll(redisClients); err != nil {
			log.Warn("failed to close redis connections", zap.Error(err))
		}
	}()
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := cache.PingAll(pingCtx, redisClients); err != nil {
		log.Warn("redis node unreachable, locks need a majority", zap.Error(err))
	}
	cancel()
	locker := lock.NewManager(cache.Universal(redisClients), lock.Options{
		TTL:         cfg.Lock.TTL,
		Retries:     cfg.Lock.Retries,
		RetryDelay:  cfg.Lock.RetryDelay,
		RetryJitter: cfg.Lock.RetryJitter,
		DriftFactor: cfg.Lock.DriftFactor,
	}, log.Named("lock"))
	eventLog := cache.NewCacheService(redisClients[0], cache.EventTTL)
	log.Info("redis connected", zap.Strings("addrs", cfg.Redis.Addrs))

	gateway := payment.NewStripeGateway(payment.StripeConfig{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		Currency:      cfg.Wallet.Currency,
	}, log.Named("stripe"))

	encrypter, err := crypto.NewXChaCha(cfg.EncryptionSecret)
	if err != nil {
		return err
	}

	publisher := events.New(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("failed to close event publisher", zap.Error(err))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	walletMetrics := metrics.NewPrometheus(registry)

	walletService := wallet.NewService(wallet.Dependencies{
		Store:     store,
		Locker:    locker,
		Gateway:   gateway,
		Encrypter: encrypter,
		Publisher: publisher,
		EventLog:  eventLog,
		Metrics:   walletMetrics,
		Logger:    log,
	}, wallet.WalletConfig{
		Currency:       cfg.Wallet.Currency,
		MaxAmount:      cfg.Wallet.MaxAmountDecimal(),
		LockTTL:        cfg.Lock.TTL,
		ReconcileBatch: cfg.Reconcile.Batch,
		PublishTimeout: cfg.Kafka.PublishTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reconciler := wallet.NewReconciler(walletService, cfg.Reconcile.Interval, cfg.Reconcile.Age, log)
	reconcilerDone := make(chan struct{})
	go func() {
		defer close(reconcilerDone)
		reconciler.Run(ctx)
	}()

	app := fiber.New(fiber.Config{
		AppName:      "propwallet",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigin,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowCredentials: true,
	}))
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use("/api", limiter.New(limiter.Config{
		Max:        60,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	}))

	routes.SetupRoutes(app, routes.Deps{
		Wallet: walletService,
		Auth:   middleware.NewAuthMiddleware(cfg.JWTSecret, log),
		Health: handlers.NewHealthHandler(version, map[string]handlers.Checker{
			"database": store.Ping,
			"redis":    eventLog.HealthCheck,
		}),
		Gatherer: registry,
		Logger:   log,
	})

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		serveErr <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-serveErr:
		stop()
		<-reconcilerDone
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		log.Warn("http shutdown incomplete", zap.Error(err))
	}
	<-reconcilerDone
	return nil
}
