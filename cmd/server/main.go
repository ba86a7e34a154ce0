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

	"github.com/nandanugg/apadbandhan/config"
	"github.com/nandanugg/apadbandhan/module/tracking"
	"github.com/nandanugg/apadbandhan/module/tracking/domain"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := config.NewLogger(os.Stderr, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.NewPostgres(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	amqpConn, err := config.NewRabbitMQ(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = amqpConn.Close() }()

	mqttClient, err := config.NewMQTT(cfg)
	if err != nil {
		return err
	}
	defer mqttClient.Disconnect(250)

	trackingModule, err := tracking.Build(ctx, db, amqpConn, mqttClient, tracking.Options{
		PollInterval:          cfg.PollInterval,
		ResponderRadiusMeters: cfg.ResponderRadiusMeters,
		DefaultCenter:         domain.Coordinate{Lat: cfg.DefaultCenterLat, Lon: cfg.DefaultCenterLon},
		GeocoderURL:           cfg.GeocoderURL,
		GeocoderUserAgent:     cfg.GeocoderUserAgent,
		GeocoderRate:          cfg.GeocoderRatePerSecond,
		Logger:                logger,
	})
	if err != nil {
		return err
	}
	defer trackingModule.Shutdown()

	if err := trackingModule.StartSubscribers(); err != nil {
		return err
	}

	r := gin.New()
	r.Use(gin.Recovery())

	health := config.NewHealthChecker(db, amqpConn, mqttClient, trackingModule.Views)
	health.Register(r)

	trackingModule.RegisterRoutes(&r.RouterGroup)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
