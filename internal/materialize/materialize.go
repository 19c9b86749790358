// Package materialize turns cluster labels into a folder tree of copied images.
//
// The destination tree is rebuilt from scratch on every run: Reset removes it and
// Materialize writes one cluster_<label> folder per distinct label holding copies
// of the member images. Source files are never moved or modified.
package materialize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/kozaktomas/plant-doctor/internal/cluster"
	"golang.org/x/sync/errgroup"
)

// NamePrefix starts every cluster folder name.
const NamePrefix = "cluster_"

// ErrUnsafeDestination is returned when resetting the destination would delete the source.
var ErrUnsafeDestination = errors.New("unsafe destination directory")

// LabelToName returns the folder name of a cluster label, e.g. cluster_0 or cluster_-1.
func LabelToName(label int) string {
	return NamePrefix + strconv.Itoa(label)
}

// NameToLabel parses a folder name produced by LabelToName.
func NameToLabel(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, NamePrefix)
	if !ok {
		return 0, false
	}
	label, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return label, true
}

// Summary maps a cluster folder name to the number of images copied into it.
type Summary map[string]int

// Total returns the number of copied images.
func (s Summary) Total() int {
	total := 0
	for _, n := range s {
		total += n
	}
	return total
}

// Names returns the cluster names ordered by label.
func (s Summary) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	slices.SortFunc(names, compareNames)
	return names
}

func compareNames(a, b string) int {
	la, okA := NameToLabel(a)
	lb, okB := NameToLabel(b)
	if okA && okB {
		return la - lb
	}
	return strings.Compare(a, b)
}

// Failure records an image that could not be copied.
type Failure struct {
	Name    string
	Cluster string
	Err     error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s -> %s: %v", f.Name, f.Cluster, f.Err)
}

// Reset deletes dest with everything in it and recreates it empty.
// It refuses to touch a destination that is empty, equal to source or an ancestor of source.
func Reset(dest, source string) error {
	if strings.TrimSpace(dest) == "" {
		return fmt.Errorf("%w: destination is empty", ErrUnsafeDestination)
	}

	absDest, err := filepath.Abs(dest)
	if err != nil {
		return fmt.Errorf("resolving destination: %w", err)
	}
	if source != "" {
		absSource, err := filepath.Abs(source)
		if err != nil {
			return fmt.Errorf("resolving source: %w", err)
		}
		if rel, err := filepath.Rel(absDest, absSource); err == nil && !escapes(rel) {
			return fmt.Errorf("%w: %s contains the source directory %s", ErrUnsafeDestination, dest, source)
		}
	}

	if err := os.RemoveAll(absDest); err != nil {
		return fmt.Errorf("removing destination: %w", err)
	}
	if err := os.MkdirAll(absDest, 0o755); err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}
	return nil
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Materializer copies clustered images from a source directory into a destination tree.
type Materializer struct {
	source  string
	dest    string
	workers int
	logger  *slog.Logger
}

// New creates a Materializer. Workers bounds the number of clusters copied concurrently.
func New(source, dest string, workers int, logger *slog.Logger) *Materializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Materializer{
		source:  source,
		dest:    dest,
		workers: max(workers, 1),
		logger:  logger,
	}
}

// Materialize copies names[i] into the folder of labels[i]. The destination is expected
// to have been Reset. Copy failures are logged and reported without aborting; failing to
// create a cluster folder is fatal.
func (m *Materializer) Materialize(ctx context.Context, names []string, labels []int) (Summary, []Failure, error) {
	if len(names) != len(labels) {
		return nil, nil, fmt.Errorf("got %d images but %d labels", len(names), len(labels))
	}

	groups := cluster.Groups(labels)
	distinct := cluster.Distinct(labels)

	// All folders exist before any copy starts; a mkdir failure aborts the run.
	for _, label := range distinct {
		dir := filepath.Join(m.dest, LabelToName(label))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating cluster folder %s: %w", dir, err)
		}
	}

	copied := make([]int, len(distinct))
	failures := make([][]Failure, len(distinct))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for slot, label := range distinct {
		g.Go(func() error {
			name := LabelToName(label)
			for _, idx := range groups[label] {
				if err := gctx.Err(); err != nil {
					return err
				}
				src := filepath.Join(m.source, names[idx])
				dst := filepath.Join(m.dest, name, names[idx])
				if err := copyFile(src, dst); err != nil {
					m.logger.Error("error copying image", "file", names[idx], "cluster", name, "error", err)
					failures[slot] = append(failures[slot], Failure{Name: names[idx], Cluster: name, Err: err})
					continue
				}
				copied[slot]++
			}
			m.logger.Debug("cluster materialized", "cluster", name, "images", copied[slot])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	summary := make(Summary, len(distinct))
	var all []Failure
	for slot, label := range distinct {
		summary[LabelToName(label)] = copied[slot]
		all = append(all, failures[slot]...)
	}
	return summary, all, nil
}

// copyFile copies src to dst keeping the permission bits and modification time.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src) //nolint:gosec // path is built from a directory listing
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer sourceFile.Close()

	info, err := sourceFile.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source file: %w", err)
	}

	destinationFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}

	if _, err := io.Copy(destinationFile, sourceFile); err != nil {
		destinationFile.Close()
		return fmt.Errorf("failed to copy file content: %w", err)
	}
	if err := destinationFile.Close(); err != nil {
		return fmt.Errorf("failed to close destination file: %w", err)
	}

	// OpenFile applies the umask; set the bits explicitly.
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("failed to set modification time: %w", err)
	}
	return nil
}

// List returns the image names stored in each cluster folder of dest, sorted by name.
// Entries that are not cluster folders are ignored. A missing dest yields an empty map.
func List(dest string) (map[string][]string, error) {
	entries, err := os.ReadDir(dest)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string][]string{}, nil
		}
		return nil, fmt.Errorf("reading destination directory: %w", err)
	}

	out := make(map[string][]string)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, ok := NameToLabel(e.Name()); !ok {
			continue
		}
		files, err := os.ReadDir(filepath.Join(dest, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading cluster folder %s: %w", e.Name(), err)
		}
		names := make([]string, 0, len(files))
		for _, f := range files {
			if !f.IsDir() {
				names = append(names, f.Name())
			}
		}
		out[e.Name()] = names
	}
	return out, nil
}
