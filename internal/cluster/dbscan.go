// Package cluster groups binary feature vectors with density-based clustering
// (DBSCAN) over normalized Hamming distance.
package cluster

import (
	"errors"
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/kozaktomas/plant-doctor/internal/constants"
	"github.com/kozaktomas/plant-doctor/internal/features"
)

// Noise labels a point that is not density-reachable from any core point.
const Noise = -1

// ErrInvalidParams is returned for eps outside [0,1] (NaN included) or min_samples below 1.
var ErrInvalidParams = errors.New("invalid clustering parameters")

// Params are the DBSCAN tuning knobs.
type Params struct {
	// Eps is the neighborhood radius as a fraction of differing bits.
	Eps float64 `json:"eps"`
	// MinSamples is the neighborhood size, the point itself included, that makes a point core.
	MinSamples int `json:"min_samples"`
}

// DefaultParams returns the operational defaults (eps 0.25, min_samples 1).
func DefaultParams() Params {
	return Params{Eps: constants.DefaultEps, MinSamples: constants.DefaultMinSamples}
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	// Written so NaN fails too.
	if !(p.Eps >= 0 && p.Eps <= 1) {
		return fmt.Errorf("%w: eps %v is outside [0,1]", ErrInvalidParams, p.Eps)
	}
	if p.MinSamples < 1 {
		return fmt.Errorf("%w: min_samples %d is below 1", ErrInvalidParams, p.MinSamples)
	}
	return nil
}

// DBSCAN assigns a cluster label to every row of m. Labels are 0,1,2... in order of
// discovery, scanning rows by index; points that belong to no dense region get Noise.
// A border point reachable from several clusters joins the first one that reaches it.
// For a fixed matrix and params the result is fully deterministic.
func DBSCAN(m *features.Matrix, p Params) ([]int, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	n := m.Rows()
	neighbors := neighborhoods(m, p.Eps)

	core := roaring.New()
	for i, nb := range neighbors {
		if nb.GetCardinality() >= uint64(p.MinSamples) {
			core.Add(uint32(i))
		}
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
	}

	next := 0
	for i := range n {
		if labels[i] != Noise || !core.Contains(uint32(i)) {
			continue
		}

		label := next
		next++
		labels[i] = label

		queue := []uint32{uint32(i)}
		for len(queue) > 0 {
			q := queue[0]
			queue = queue[1:]

			it := neighbors[q].Iterator()
			for it.HasNext() {
				nb := it.Next()
				if labels[nb] != Noise {
					continue
				}
				labels[nb] = label
				// Border points join the cluster but do not extend it.
				if core.Contains(nb) {
					queue = append(queue, nb)
				}
			}
		}
	}

	return labels, nil
}

// neighborhoods returns, for every row, the set of rows within eps (the row itself included).
func neighborhoods(m *features.Matrix, eps float64) []*roaring.Bitmap {
	n := m.Rows()
	out := make([]*roaring.Bitmap, n)
	for i := range n {
		out[i] = roaring.BitmapOf(uint32(i))
	}
	for i := range n {
		for j := i + 1; j < n; j++ {
			if m.NormalizedHamming(i, j) <= eps {
				out[i].Add(uint32(j))
				out[j].Add(uint32(i))
			}
		}
	}
	return out
}

// Count returns the number of distinct labels. Noise counts as one label, matching
// how the materializer turns it into a single folder.
func Count(labels []int) int {
	seen := make(map[int]struct{}, len(labels))
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	return len(seen)
}

// Distinct returns the distinct labels in ascending order.
func Distinct(labels []int) []int {
	out := slices.Clone(labels)
	slices.Sort(out)
	return slices.Compact(out)
}

// Groups maps each label to the indices carrying it, in ascending index order.
func Groups(labels []int) map[int][]int {
	groups := make(map[int][]int)
	for i, l := range labels {
		groups[l] = append(groups[l], i)
	}
	return groups
}

// SplitNoise returns a copy of labels where every noise point gets a fresh label of its own,
// numbered after the largest existing label in index order.
func SplitNoise(labels []int) []int {
	out := slices.Clone(labels)
	next := 0
	for _, l := range labels {
		if l >= next {
			next = l + 1
		}
	}
	for i, l := range out {
		if l == Noise {
			out[i] = next
			next++
		}
	}
	return out
}
