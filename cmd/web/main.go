// Command web runs the SaaS Pulse KPI dashboard server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"saaspulse/internal/app"
	"saaspulse/internal/config"
	"saaspulse/internal/infrastructure"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "saaspulse: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	logger.Info("configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Logging.Level),
		slog.Int("upload_max_rows", cfg.Upload.MaxRows))

	return app.New(cfg, logger).Run(context.Background())
}
