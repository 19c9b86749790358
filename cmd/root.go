package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "plant-doctor",
	Short: "Group low-confidence plant photos by visual similarity",
	Long: `Plant Doctor collects plant photos the disease classifier was unsure about
and groups visually similar ones into cluster folders using perceptual hashes
and density-based clustering, so they can be reviewed and labelled together.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
