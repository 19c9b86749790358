package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/kozaktomas/plant-doctor/internal/fingerprint"
	"github.com/spf13/cobra"
)

var hashCmd = &cobra.Command{
	Use:   "hash FILE...",
	Short: "Print image fingerprints and their pairwise distances",
	Long: `Compute the perceptual fingerprint of each file and print the normalized
Hamming distance between every pair. Pairs at or below --eps end up in the
same cluster, so this is a quick way to tune eps on known images.

Examples:
  plant-doctor hash leaf1.jpg leaf2.jpg
  plant-doctor hash --hash dhash --json uploads/*.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHash,
}

func init() {
	rootCmd.AddCommand(hashCmd)
	hashCmd.Flags().String("hash", string(fingerprint.PHash), "Fingerprint algorithm: phash, dhash or ahash")
	hashCmd.Flags().Bool("json", false, "Output as JSON")
}

// FileHash is the fingerprint of one file
type FileHash struct {
	File string `json:"file"`
	Hash string `json:"hash"`
}

// PairDistance is the distance between two fingerprinted files
type PairDistance struct {
	A        string  `json:"a"`
	B        string  `json:"b"`
	Bits     int     `json:"bits"`
	Distance float64 `json:"distance"`
}

// HashOutput is the JSON output of the hash command
type HashOutput struct {
	Algorithm fingerprint.Algorithm `json:"algorithm"`
	Files     []FileHash            `json:"files"`
	Pairs     []PairDistance        `json:"pairs"`
}

func runHash(cmd *cobra.Command, args []string) error {
	alg, err := fingerprint.ParseAlgorithm(mustGetString(cmd, "hash"))
	if err != nil {
		return err
	}
	jsonOutput := mustGetBool(cmd, "json")

	out := HashOutput{Algorithm: alg, Files: []FileHash{}, Pairs: []PairDistance{}}
	bits := make([]uint64, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		h, err := fingerprint.Compute(data, alg)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		out.Files = append(out.Files, FileHash{File: path, Hash: h.Hash})
		bits = append(bits, h.Bits)
	}

	for i := range bits {
		for j := i + 1; j < len(bits); j++ {
			out.Pairs = append(out.Pairs, PairDistance{
				A:        out.Files[i].File,
				B:        out.Files[j].File,
				Bits:     fingerprint.HammingDistance(bits[i], bits[j]),
				Distance: fingerprint.NormalizedDistance(bits[i], bits[j]),
			})
		}
	}

	if jsonOutput {
		return outputJSON(out)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "FILE\t%s\n", alg)
	for _, f := range out.Files {
		fmt.Fprintf(w, "%s\t%s\n", filepath.Base(f.File), f.Hash)
	}
	w.Flush()

	if len(out.Pairs) > 0 {
		fmt.Println()
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "A\tB\tBITS\tDISTANCE")
		for _, p := range out.Pairs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%.4f\n", filepath.Base(p.A), filepath.Base(p.B), p.Bits, p.Distance)
		}
		w.Flush()
	}
	return nil
}
