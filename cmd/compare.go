package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/kozaktomas/plant-doctor/internal/config"
	"github.com/kozaktomas/plant-doctor/internal/database"
	"github.com/kozaktomas/plant-doctor/internal/logging"
	"github.com/kozaktomas/plant-doctor/internal/pipeline"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Cluster the source images into similarity folders",
	Long: `Fingerprint every image in the source directory, cluster the fingerprints
with DBSCAN over normalized Hamming distance and rebuild the destination
directory with one cluster_<label> folder per group. Unclustered images
get a folder of their own, or share cluster_-1 with --shared-noise.

The destination directory is deleted and recreated on every run.

Examples:
  plant-doctor compare
  plant-doctor compare --source ./uploads --dest ./clusters --eps 0.2
  plant-doctor compare --hash dhash --min-samples 2 --json`,
	Args: cobra.NoArgs,
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
	addClusterFlags(compareCmd)
	compareCmd.Flags().Bool("json", false, "Output as JSON")
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyClusterFlags(cmd, &cfg.Cluster)
	if err := cfg.Validate(); err != nil {
		return err
	}
	jsonOutput := mustGetBool(cmd, "json")
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

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Fingerprinting"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
		comparator.SetProgress(func(done, total int) {
			if bar.GetMax() != total {
				bar.ChangeMax(total)
			}
			_ = bar.Set(done)
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := comparator.Run(ctx)
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}

	if writer, err := database.GetRunWriter(ctx); err == nil {
		if err := writer.Save(ctx, database.FromResult(result)); err != nil {
			logger.Warn("failed to save run history", "run_id", result.RunID, "error", err)
		}
	}

	if jsonOutput {
		return outputJSON(result)
	}
	printResult(result)
	return nil
}

func printResult(result *pipeline.Result) {
	fmt.Println(result.Message)
	if result.Summary != nil {
		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CLUSTER\tIMAGES")
		for _, name := range result.Summary.Names() {
			fmt.Fprintf(w, "%s\t%d\n", name, result.Summary[name])
		}
		w.Flush()
	}

	if len(result.Skipped) > 0 {
		fmt.Printf("\nSkipped: %d\n", len(result.Skipped))
		for _, s := range result.Skipped {
			fmt.Printf("  - %s (%s): %s\n", s.Name, s.Stage, s.Reason)
		}
	}

	fmt.Printf("\nRun:      %s\n", result.RunID)
	fmt.Printf("Output:   %s\n", result.DestDir)
	fmt.Printf("Duration: %s\n", formatDuration(result.Duration()))
}
