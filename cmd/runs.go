package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/plant-doctor/internal/config"
	"github.com/kozaktomas/plant-doctor/internal/constants"
	"github.com/kozaktomas/plant-doctor/internal/database"
	"github.com/kozaktomas/plant-doctor/internal/database/postgres"
	"github.com/kozaktomas/plant-doctor/internal/logging"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List or prune stored comparison runs",
	Long: `List the most recent comparison runs saved in PostgreSQL.
With --prune N, delete all but the N newest runs instead.
Requires DATABASE_URL.`,
	Args: cobra.NoArgs,
	RunE: runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().Int("limit", constants.DefaultRunListLimit, "Maximum number of runs to show")
	runsCmd.Flags().Bool("json", false, "Output as JSON")
	runsCmd.Flags().Int("prune", -1, "Delete all but the N newest runs")
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Configure(cfg.Log)

	limit := mustGetInt(cmd, "limit")
	if limit < 1 {
		return errors.New("--limit must be a positive integer")
	}
	jsonOutput := mustGetBool(cmd, "json")
	prune := mustGetInt(cmd, "prune")
	if cmd.Flags().Changed("prune") && prune < 0 {
		return errors.New("--prune must not be negative")
	}

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	if err := postgres.Initialize(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer postgres.Shutdown()

	ctx := context.Background()
	if cmd.Flags().Changed("prune") {
		return pruneRuns(ctx, prune)
	}

	reader, err := database.GetRunReader(ctx)
	if err != nil {
		return err
	}
	runs, err := reader.List(ctx, limit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	if jsonOutput {
		if runs == nil {
			runs = []database.RunRecord{}
		}
		return outputJSON(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tOUTCOME\tIMAGES\tCLUSTERS\tEPS\tHASH\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.2f\t%s\t%s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Outcome,
			r.Images, r.Clusters, r.Eps, r.Algorithm, formatDuration(r.Duration()))
	}
	return w.Flush()
}

func pruneRuns(ctx context.Context, keep int) error {
	writer, err := database.GetRunWriter(ctx)
	if err != nil {
		return err
	}
	before, err := writer.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting runs: %w", err)
	}
	removed, err := writer.Prune(ctx, keep)
	if err != nil {
		return fmt.Errorf("pruning runs: %w", err)
	}
	fmt.Printf("Removed %d of %d runs, kept %d.\n", removed, before, before-removed)
	return nil
}
