package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/fjod/go_quote/internal/config"
	"github.com/fjod/go_quote/internal/consumer"
	h "github.com/fjod/go_quote/internal/http"
	"github.com/fjod/go_quote/internal/pricing"
	"github.com/fjod/go_quote/internal/publisher"
	"github.com/fjod/go_quote/internal/repository"
	"github.com/fjod/go_quote/internal/service"
	"github.com/fjod/go_quote/internal/session"
	"github.com/fjod/go_quote/pkg/logger"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		panic(err)
	}

	log, err := logger.New(logger.Config{Mode: cfg.LogMode, File: cfg.LogFile})
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	repo, err := repository.NewRepository(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal("failed to connect to database", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	defer repo.Close()

	if err := repo.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}
	log.Info("database ready", zap.String("driver", cfg.DBDriver))

	var (
		drafts  session.DraftCache = session.NopCache{}
		limiter h.Limiter          = h.NewMemoryLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatal("failed to connect to redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		drafts = session.NewRedisCache(redisClient, cfg.DraftTTL)
		limiter = h.NewRedisLimiter(redisClient, cfg.RateLimitMax, cfg.RateLimitWindow)
		log.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	}

	store := session.NewMemoryStore(cfg.SessionTTL, log)
	defer store.Close()

	calc := pricing.NewCalculator(nil, pricing.WithLogger(log), pricing.WithStrict(cfg.PricingStrict))
	svc := service.NewQuoteService(store, drafts, repo, calc, log, service.WithSubmitWorkers(cfg.SubmitWorkers))

	cleaner, err := publisher.NewOutboxCleaner(repo, cfg.OutboxCleanupSchedule, cfg.OutboxRetention, log)
	if err != nil {
		log.Fatal("failed to schedule outbox cleanup", zap.Error(err))
	}
	cleaner.Start()
	defer cleaner.Stop()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if len(cfg.KafkaBrokers) > 0 {
		poller := publisher.NewOutboxPoller(repo, publisher.NewKafkaWriter(cfg.KafkaBrokers...), log)
		defer poller.Close()
		go poller.Run(ctx)
		log.Info("outbox poller started", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", publisher.Topic))

		if cfg.ConsumeDevis {
			c := consumer.NewConsumer(repo, consumer.NewKafkaReader(cfg.KafkaBrokers...), log)
			defer c.Close()
			go c.Run(ctx)
		}
	} else {
		log.Warn("KAFKA_BROKERS not set, devis events stay in the outbox")
	}

	handler := h.NewQuoteHandler(svc, cfg.RequestTimeout, log)
	router := h.NewRouter(handler, h.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		CORSOrigins:    cfg.CORSOrigins,
		Limiter:        limiter,
	}, log)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "quote-api"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("quote api starting", zap.String("port", cfg.HTTPPort), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	// let in-flight submissions reach the database before closing it
	svc.Close()
	stop()

	log.Info("server exited")
}
