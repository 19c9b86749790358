package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kozaktomas/plant-doctor/internal/config"
	"github.com/kozaktomas/plant-doctor/internal/database/postgres"
)

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

// openHistory connects the run history store when DATABASE_URL is set. The returned
// function closes it. A connection failure only disables history.
func openHistory(cfg *config.DatabaseConfig, logger *slog.Logger) func() {
	if cfg.URL == "" {
		return func() {}
	}
	if err := postgres.Initialize(cfg); err != nil {
		logger.Warn("run history disabled", "error", err)
		return func() {}
	}
	return func() {
		if err := postgres.Shutdown(); err != nil {
			logger.Warn("failed to close database", "error", err)
		}
	}
}
