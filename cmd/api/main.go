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

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/bryanwahyu/ayursense/internal/application"
	"github.com/bryanwahyu/ayursense/internal/application/ingest"
	"github.com/bryanwahyu/ayursense/internal/config"
	"github.com/bryanwahyu/ayursense/internal/domain/reading"
	"github.com/bryanwahyu/ayursense/internal/infra/cache"
	"github.com/bryanwahyu/ayursense/internal/infra/httpserver"
	"github.com/bryanwahyu/ayursense/internal/infra/mqtt"
	"github.com/bryanwahyu/ayursense/internal/infra/serial"
	"github.com/bryanwahyu/ayursense/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("config load error", "path", path, "err", err)
		os.Exit(1)
	}

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      cfg.LogLevel(),
		TimeFormat: time.TimeOnly,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	channel := reading.Channel(cfg.Device.Channel)

	// init metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// init cache
	readings := cache.NewMemory()

	// init mirror
	var publisher reading.Publisher
	if cfg.MQTT.Broker != "" {
		pub, err := mqtt.NewPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Topic)
		if err != nil {
			logger.Warn("mqtt mirror disabled", "broker", cfg.MQTT.Broker, "err", err)
		} else {
			defer pub.Close()
			publisher = pub
			logger.Info("mqtt mirror enabled", "broker", cfg.MQTT.Broker, "topic", cfg.MQTT.Topic)
		}
	}

	// init ingestion
	ingestSvc := &ingest.Service{
		Opener:    serial.NewPort(cfg.Device.Path, cfg.Device.BaudRate),
		Cache:     readings,
		Channel:   channel,
		Clock:     application.SystemClock{},
		Publisher: publisher,
		Metrics:   ingest.NewMetrics(reg),
		Logger:    logger,
	}
	go func() {
		err := ingestSvc.Run(ctx)
		switch {
		case err == nil, errors.Is(err, context.Canceled):
		case errors.Is(err, ingest.ErrDeviceOpen):
			logger.Error("device unavailable, bridge will serve null", "err", err)
		default:
			logger.Error("device stream ended", "err", err)
		}
	}()

	// init rate limiter
	var limiter *middleware.RateLimiter
	if cfg.Server.RateLimit.Capacity > 0 {
		limiter = middleware.NewRateLimiter(cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.RefillPerSecond)
		go limiter.Run(ctx)
	}

	// init router
	handler := httpserver.NewRouter(httpserver.Options{
		Cache:   readings,
		Channel: channel,
		Checks:  map[string]middleware.HealthChecker{"device": ingestSvc},
		Metrics: middleware.NewMetrics(reg),
		Limiter: limiter,
		Logger:  logger,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "channel", channel, "device", cfg.Device.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			stop()
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	logger.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("shutdown error", "err", err)
	}
}
