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

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/civicdesk/grievance/internal/auth"
	"github.com/civicdesk/grievance/internal/classifier"
	"github.com/civicdesk/grievance/internal/complaint"
	"github.com/civicdesk/grievance/internal/config"
	"github.com/civicdesk/grievance/internal/db"
	"github.com/civicdesk/grievance/internal/events"
	internalhttp "github.com/civicdesk/grievance/internal/http"
	"github.com/civicdesk/grievance/internal/metrics"
	"github.com/civicdesk/grievance/internal/notify"
	"github.com/civicdesk/grievance/internal/repo"
	"github.com/civicdesk/grievance/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api exited with error")
	}
}

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	checks := map[string]internalhttp.Check{
		"db": pool.Ping,
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL)
	registry := metrics.New()

	hub := notify.NewHub(log.With().Str("component", "notify").Logger())
	defer hub.Close()
	registry.TrackConnections(hub.Len)

	var notifier notify.Notifier = hub
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis parse: %w", err)
		}
		redisClient := redis.NewClient(redisOpts)
		defer redisClient.Close()

		relay := notify.NewRedisRelay(redisClient, hub, log.With().Str("component", "relay").Logger())
		notifier = relay
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }

		go func() {
			if err := relay.Run(ctx); err != nil {
				log.Error().Err(err).Msg("notification relay stopped")
			}
		}()
	}

	producer := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log.With().Str("component", "events").Logger())
	defer func() {
		if err := producer.Close(); err != nil {
			log.Warn().Err(err).Msg("kafka writer close")
		}
	}()

	store := complaint.NewRepository(pool)
	serviceLogger := log.With().Str("component", "service").Logger()

	intake := service.NewIntakeService(
		jwtManager,
		repo.New(pool),
		classifier.NewClient(cfg.Classifier.URL, cfg.Classifier.Timeout),
		store,
		producer,
		registry,
		serviceLogger,
	)
	status := service.NewStatusService(jwtManager, store, notifier, producer, registry, serviceLogger).
		WithDepartmentScope(cfg.StaffDepartmentScope)

	handler := internalhttp.NewRouter(internalhttp.Deps{
		Config:        cfg,
		Verifier:      jwtManager,
		Intake:        intake,
		Status:        status,
		Complaints:    service.NewQueryService(store),
		Notifications: notify.NewEndpoint(hub, jwtManager, cfg.WSAllowedOrigins, log.With().Str("component", "ws").Logger()),
		Metrics:       registry.Handler(),
		Checks:        checks,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("api listening on :%d", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Shutdown does not track hijacked connections; the hub closes them
	hub.Close()
	return srv.Shutdown(shutdownCtx)
}
