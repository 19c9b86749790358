package fingerprint

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Failure records a file that could not be fingerprinted.
type Failure struct {
	Name string
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Name, f.Err)
}

// ScanOptions configures ScanDir.
type ScanOptions struct {
	Hash    HashFunc // defaults to pHash
	Workers int      // defaults to 1
	Logger  *slog.Logger

	// Progress is called once per processed file with the number of files done so far
	// and the total. It may be called from several goroutines.
	Progress func(done, total int)
}

// ScanResult holds the fingerprints of a directory. Names[i] is the file behind Hashes[i].
type ScanResult struct {
	Names    []string
	Hashes   []uint64
	Failures []Failure
}

// ListFiles returns the regular files of dir in lexical order. Sub-directories are skipped.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading source directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// ScanDir fingerprints every file of dir. Files that cannot be decoded are logged and
// reported in Failures; they never abort the scan. Only an unreadable directory or a
// cancelled context return an error.
func ScanDir(ctx context.Context, dir string, opts ScanOptions) (*ScanResult, error) {
	names, err := ListFiles(dir)
	if err != nil {
		return nil, err
	}

	hash := opts.Hash
	if hash == nil {
		hash = PHash.HashFunc()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Results go into index slots so the output order never depends on scheduling.
	hashes := make([]uint64, len(names))
	errs := make([]error, len(names))

	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			hashes[i], errs[i] = hashFile(filepath.Join(dir, name), hash)
			if opts.Progress != nil {
				opts.Progress(int(done.Add(1)), len(names))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &ScanResult{
		Names:  make([]string, 0, len(names)),
		Hashes: make([]uint64, 0, len(names)),
	}
	for i, name := range names {
		if errs[i] != nil {
			logger.Error("error processing image", "file", name, "error", errs[i])
			result.Failures = append(result.Failures, Failure{Name: name, Err: errs[i]})
			continue
		}
		logger.Debug("image fingerprinted", "file", name, "hash", fmt.Sprintf("%016x", hashes[i]))
		result.Names = append(result.Names, name)
		result.Hashes = append(result.Hashes, hashes[i])
	}

	return result, nil
}

func hashFile(path string, hash HashFunc) (uint64, error) {
	f, err := os.Open(path) //nolint:gosec // path is built from a directory listing
	if err != nil {
		return 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	img, err := Decode(f)
	if err != nil {
		return 0, err
	}
	return hash(img)
}
