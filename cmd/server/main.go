package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/parleychat/parley/internal/config"
	"github.com/parleychat/parley/internal/metrics"
	"github.com/parleychat/parley/internal/server"
	"github.com/parleychat/parley/internal/sink"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	var reg *prometheus.Registry
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		m = metrics.New(reg)
	}

	snk, err := buildSink(cfg, logger)
	if err != nil {
		logger.Error("failed to connect message sink", "error", err)
		os.Exit(1)
	}

	hub := server.NewHub(cfg, logger, m, snk)
	go hub.Run()

	mux := server.SetupRoutes(hub, reg)
	httpServer := server.CreateServer(cfg.Port, mux)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	}

	if err := server.ShutdownServer(httpServer, shutdownTimeout); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	if err := hub.Shutdown(shutdownTimeout); err != nil {
		logger.Error("hub shutdown error", "error", err)
	}
	if err := snk.Close(); err != nil {
		logger.Error("sink close error", "error", err)
	}
	logger.Info("shutdown complete")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.FromEnv()
		return cfg, cfg.Validate()
	}
	return config.LoadAndValidate(path)
}

func buildSink(cfg *config.Config, logger *slog.Logger) (sink.Sink, error) {
	if cfg.Sink.URL == "" {
		return sink.Discard{}, nil
	}
	logger.Info("connecting message sink", "url", cfg.Sink.URL, "subjectPrefix", cfg.Sink.SubjectPrefix)
	return sink.ConnectNATS(cfg.Sink.URL, cfg.Sink.SubjectPrefix)
}
