// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Clustering constants
const (
	// DefaultEps is the maximum normalized Hamming distance for two images
	// to be direct neighbors. Tuned empirically on leaf photos.
	DefaultEps = 0.25

	// DefaultMinSamples is the minimum neighborhood size (including the point itself)
	// for a point to seed a cluster. With 1 every image is a core point.
	DefaultMinSamples = 1

	// DefaultHashAlgorithm is the perceptual hash used for fingerprints
	DefaultHashAlgorithm = "phash"
)

// Directory constants
const (
	// DefaultSourceDir holds submitted images waiting to be clustered
	DefaultSourceDir = "./uploads"

	// DefaultDestDir is rebuilt from scratch on every comparison run
	DefaultDestDir = "./clusters"
)

// Processing constants
const (
	// WorkerPoolSize is the default number of parallel workers for fingerprinting and copying
	WorkerPoolSize = 4

	// MaxImageSize is the maximum dimension (width or height) of a stored submission
	MaxImageSize = 1920
)

// Intake constants
const (
	// DefaultConfidenceThreshold is the classifier confidence below which a
	// submission is kept for clustering review
	DefaultConfidenceThreshold = 0.7

	// MaxUploadSize is the maximum file upload size in bytes (100MB)
	MaxUploadSize = 100 << 20
)

// History constants
const (
	// DefaultRunListLimit is the default number of stored runs returned by listings
	DefaultRunListLimit = 20
)
