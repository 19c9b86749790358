package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/plant-doctor/internal/config"
	"github.com/kozaktomas/plant-doctor/internal/logging"
	"github.com/kozaktomas/plant-doctor/internal/pipeline"
	"github.com/kozaktomas/plant-doctor/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Plant Doctor API server.
The classifier posts low-confidence images to /api/v1/submissions and
reviewers trigger /api/v1/compare to regroup them into cluster folders.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (default from WEB_PORT or 8080)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from WEB_HOST or 0.0.0.0)")
	addClusterFlags(serveCmd)
}

// resolveServeHostPort lets flags override the configured listen address.
func resolveServeHostPort(cmd *cobra.Command, cfg *config.WebConfig) {
	if cmd.Flags().Changed("port") {
		cfg.Port = mustGetInt(cmd, "port")
	}
	if cmd.Flags().Changed("host") {
		cfg.Host = mustGetString(cmd, "host")
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyClusterFlags(cmd, &cfg.Cluster)
	resolveServeHostPort(cmd, &cfg.Web)
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := logging.Configure(cfg.Log)

	opts, err := pipeline.OptionsFromConfig(cfg.Cluster)
	if err != nil {
		return err
	}
	comparator, err := pipeline.New(opts, logger)
	if err != nil {
		return err
	}

	closeHistory := openHistory(&cfg.Database, logger)
	defer closeHistory()

	server := web.NewServer(cfg, comparator, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during shutdown", "error", err)
		}
	}()

	fmt.Printf("Starting Plant Doctor API on http://%s\n", server.Addr())
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
