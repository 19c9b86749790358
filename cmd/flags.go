package cmd

import (
	"fmt"

	"github.com/kozaktomas/plant-doctor/internal/config"
	"github.com/spf13/cobra"
)

// mustGetBool gets a bool flag value or panics if the flag doesn't exist.
// This is appropriate for flags defined in init() - errors indicate programming bugs.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetInt gets an int flag value or panics if the flag doesn't exist.
func mustGetInt(cmd *cobra.Command, name string) int {
	val, err := cmd.Flags().GetInt(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetString gets a string flag value or panics if the flag doesn't exist.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetFloat64 gets a float64 flag value or panics if the flag doesn't exist.
func mustGetFloat64(cmd *cobra.Command, name string) float64 {
	val, err := cmd.Flags().GetFloat64(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// addClusterFlags registers the clustering flags shared by commands that run comparisons.
// Defaults are left empty so config and environment values apply unless a flag is set.
func addClusterFlags(cmd *cobra.Command) {
	cmd.Flags().String("source", "", "Directory with images to compare (default from CLUSTER_SOURCE_DIR)")
	cmd.Flags().String("dest", "", "Directory rebuilt with one folder per cluster (default from CLUSTER_DEST_DIR)")
	cmd.Flags().Float64("eps", 0, "Neighborhood radius as a fraction of differing hash bits, 0 to 1")
	cmd.Flags().Int("min-samples", 0, "Neighbors, the image included, needed to start a cluster")
	cmd.Flags().Int("workers", 0, "Number of images fingerprinted in parallel")
	cmd.Flags().String("hash", "", "Fingerprint algorithm: phash, dhash or ahash")
	cmd.Flags().Bool("shared-noise", false, "Put all unclustered images into one cluster_-1 folder")
}

// applyClusterFlags overrides cfg with the flags the user actually set.
func applyClusterFlags(cmd *cobra.Command, cfg *config.ClusterConfig) {
	if cmd.Flags().Changed("source") {
		cfg.SourceDir = mustGetString(cmd, "source")
	}
	if cmd.Flags().Changed("dest") {
		cfg.DestDir = mustGetString(cmd, "dest")
	}
	if cmd.Flags().Changed("eps") {
		cfg.Eps = mustGetFloat64(cmd, "eps")
	}
	if cmd.Flags().Changed("min-samples") {
		cfg.MinSamples = mustGetInt(cmd, "min-samples")
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = mustGetInt(cmd, "workers")
	}
	if cmd.Flags().Changed("hash") {
		cfg.Hash = mustGetString(cmd, "hash")
	}
	if cmd.Flags().Changed("shared-noise") {
		cfg.SharedNoise = mustGetBool(cmd, "shared-noise")
	}
}
