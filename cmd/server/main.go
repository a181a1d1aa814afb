package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"webhook-tester/internal/audit"
	"webhook-tester/internal/config"
	"webhook-tester/internal/engine"
	"webhook-tester/internal/history"
	"webhook-tester/internal/instrument"
	"webhook-tester/internal/logging"
	"webhook-tester/internal/stream"
)

const shutdownTimeout = 5 * time.Second

var configFile string

var rootCmd = &cobra.Command{
	Use:           "webhook-tester",
	Short:         "Capture incoming webhooks and stream them to a live viewer",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServer,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&configFile, "config", "", "config file (default is ./app.yaml)")
	flags.Int("port", 0, "listen port (overrides PORT)")
	flags.Int("capacity", 0, "number of recent webhooks kept in memory")
	flags.String("audit-path", "", "audit log file")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error")

	for key, name := range map[string]string{
		"server.port":      "port",
		"history.capacity": "capacity",
		"audit.path":       "audit-path",
		"log.level":        "log-level",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	}

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Logger
	logger := logging.New(cfg.Log)
	logger.Info().
		Int("port", cfg.Server.Port).
		Int("history_capacity", cfg.History.Capacity).
		Bool("audit_enabled", cfg.Audit.Enabled).
		Msg("Config loaded")

	// 3. In-memory state
	counters := instrument.NewCounters()
	buf := history.New(cfg.History.Capacity)
	reg := stream.NewRegistry(
		stream.WithSendTimeout(cfg.Stream.SendTimeout()),
		stream.WithBufferSize(cfg.Stream.BufferSize),
		stream.WithLogger(&logger),
		stream.WithMetrics(counters),
	)

	// 4. Audit log
	auditLog, err := audit.Open(cfg.Audit, &logger, counters)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer func() {
		if err := auditLog.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close audit log")
		}
	}()

	// 5. Ingestion and HTTP handlers
	ing := engine.NewIngestor(buf, reg, auditLog, counters, &logger)
	h := engine.NewHandler(ing, buf, reg, counters, cfg.Stream.HeartbeatInterval())

	app := engine.NewApp(&logger)
	engine.RegisterRoutes(app, h)
	engine.RegisterStatic(app, cfg.Static.Dir)

	// 6. Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("Webhook tester listening")
		serveErr <- app.Listener(ln)
	}()

	select {
	case err := <-serveErr:
		reg.Close()
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	// 7. Graceful shutdown: end the event streams first so open SSE
	// responses complete, then drain the HTTP server.
	logger.Info().Msg("Shutting down")
	reg.Close()
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}
	logger.Info().
		Interface("counters", counters.Snapshot()).
		Msg("Server stopped")
	return nil
}
