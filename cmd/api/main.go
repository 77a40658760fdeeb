package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"example.com/activities/internal/api"
	"example.com/activities/internal/config"
	"example.com/activities/internal/domain"
	"example.com/activities/internal/eventbus"
	"example.com/activities/internal/observability"
	persistence "example.com/activities/internal/persistence/postgres"
	redisstore "example.com/activities/internal/persistence/redis"
	"example.com/activities/internal/registry"
	"example.com/activities/internal/seed"
	httptransport "example.com/activities/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "activity-registry: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracing, err := observability.SetupTracing(ctx, observability.TracingConfig{
		Exporter:     cfg.TracingExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		ServiceName:  "activity-registry",
	})
	if err != nil {
		return err
	}

	activities, err := seed.Load(cfg.SeedFile)
	if err != nil {
		return err
	}

	store, closeStore, err := buildStore(ctx, cfg, activities, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	opts := []domain.Option{domain.WithLogger(logger)}
	var dispatcher *eventbus.Dispatcher
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()
	if cfg.PublishingEnabled() {
		producer := eventbus.NewKafkaProducer(eventbus.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			BatchTimeout: cfg.KafkaBatchWait,
		})
		defer producer.Close()

		publisher := eventbus.NewPublisher(producer, cfg.RosterTopic, cfg.PublishTimeout)
		dispatcher = eventbus.NewDispatcher(publisher, cfg.PublishBuffer, logger)
		go dispatcher.Start(dispatchCtx)
		opts = append(opts, domain.WithPublisher(dispatcher))
		logger.Info("roster events enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.RosterTopic))
	}

	service := domain.NewService(store, opts...)
	// Primes the roster size gauge.
	if _, err := service.ListActivities(ctx); err != nil {
		return err
	}

	handler := api.NewHandler(service, logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	api.RegisterStatic(mux, cfg.StaticDir)
	mux.Handle("GET /metrics", promhttp.Handler())

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}, httptransport.Chain(mux,
		httptransport.Recover(logger),
		httptransport.RequestLogger(logger),
		httptransport.CORS(cfg.CORSOrigin),
	), logger)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("activity-registry listening",
			zap.String("address", cfg.HTTPAddress),
			zap.String("backend", cfg.StoreBackend),
			zap.Int("activities", len(activities)),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-shutdownCh:
		logger.Info("shutdown requested")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
	if dispatcher != nil {
		stopDispatch()
		dispatcher.Wait()
	}
	if err := tracing.Shutdown(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown failed", zap.Error(err))
	}
	return nil
}

func buildStore(ctx context.Context, cfg config.Config, activities []domain.Activity, logger *zap.Logger) (domain.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		repo := persistence.NewRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		if err := repo.Seed(ctx, activities); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("seed postgres: %w", err)
		}
		logger.Info("using postgres registry")
		return repo, pool.Close, nil

	case config.BackendRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping failed: %w", err)
		}
		store := redisstore.NewStore(client, cfg.RedisPrefix)
		if err := store.Seed(ctx, activities); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		logger.Info("using redis registry", zap.String("address", cfg.RedisAddress))
		return store, func() { _ = client.Close() }, nil

	default:
		logger.Info("using in-memory registry; sign-ups are lost on restart")
		return registry.NewInMemoryRegistry(activities), func() {}, nil
	}
}
