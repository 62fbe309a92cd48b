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

	"seatrail/pkg/bus"
	"seatrail/pkg/config"
	"seatrail/pkg/db"
	gos3 "seatrail/pkg/s3"
	"seatrail/pkg/telemetry"
	"seatrail/services/api"
	"seatrail/services/audit"
	"seatrail/services/marketplace"
	"seatrail/services/media"
)

const serviceName = "marketplace-api"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.RequireDB(); err != nil {
		return err
	}

	shutdownTelemetry, middleware, logger, err := telemetry.Init(ctx, telemetry.Options{
		ServiceName:  serviceName,
		OTLPEndpoint: cfg.OTLPEndpoint,
		LogLevel:     cfg.LogLevel,
		LogFormat:    cfg.LogFormat,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("telemetry shutdown")
		}
	}()

	pool, err := db.Open(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer pool.Close()

	if cfg.MigrateOnStart {
		results, err := db.Migrate(ctx, pool)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Int("applied", len(results)).Msg("migrations applied")
	}

	orm, err := db.OpenORM(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("open orm: %w", err)
	}
	defer func() {
		if err := db.CloseORM(orm); err != nil {
			logger.Error().Err(err).Msg("close orm")
		}
	}()

	store, err := marketplace.NewGormStore(orm)
	if err != nil {
		return err
	}

	var pub bus.Publisher
	if cfg.NATSURL != "" {
		b, err := bus.Open(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("connect bus: %w", err)
		}
		defer b.Close()
		pub = b
	} else {
		logger.Warn().Msg("NATS_URL not set, events will not be published")
	}

	svc, err := api.NewServices(store, pub, logger)
	if err != nil {
		return err
	}
	if svc.Audit, err = audit.NewPGStore(pool); err != nil {
		return err
	}
	if cfg.MediaBucket != "" {
		objects, err := gos3.NewClientFromEnv()
		if err != nil {
			return fmt.Errorf("s3 client: %w", err)
		}
		uploader, err := media.NewUploader(objects, media.Bucket{Name: cfg.MediaBucket, PublicURL: cfg.MediaPublicURL}, svc.Tours, logger)
		if err != nil {
			return err
		}
		svc.Uploader = uploader
	}

	a, err := api.New(svc, api.Config{
		AllowedOrigins: cfg.AllowedOrigins,
		RequestsPerMin: cfg.RequestsPerMin,
		RequestTimeout: cfg.RequestTimeout,
	}, func(ctx context.Context) error { return db.Ping(ctx, pool) }, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.Routes(middleware),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server shutdown")
		}
	}()

	logger.Info().Str("addr", server.Addr).Msg("listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
