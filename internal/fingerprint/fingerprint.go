package fingerprint

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"strings"

	"github.com/corona10/goimagehash"
	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Bits is the fingerprint length. Hashes are laid out as an 8x8 bit matrix, MSB first.
const Bits = 64

// Algorithm selects the perceptual hash used for fingerprints.
type Algorithm string

const (
	PHash Algorithm = "phash" // DCT based, the default
	DHash Algorithm = "dhash" // gradient based
	AHash Algorithm = "ahash" // mean based
)

// ParseAlgorithm validates an algorithm name.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch alg := Algorithm(strings.ToLower(strings.TrimSpace(name))); alg {
	case PHash, DHash, AHash:
		return alg, nil
	case "":
		return PHash, nil
	default:
		return "", fmt.Errorf("unknown hash algorithm %q (want phash, dhash or ahash)", name)
	}
}

// HashFunc computes a 64-bit fingerprint of a decoded image.
type HashFunc func(img image.Image) (uint64, error)

// HashFunc returns the implementation of the algorithm. Unknown values fall back to pHash.
func (a Algorithm) HashFunc() HashFunc {
	switch a {
	case DHash:
		return wrap(goimagehash.DifferenceHash)
	case AHash:
		return wrap(goimagehash.AverageHash)
	default:
		return wrap(goimagehash.PerceptionHash)
	}
}

func wrap(fn func(image.Image) (*goimagehash.ImageHash, error)) HashFunc {
	return func(img image.Image) (uint64, error) {
		h, err := fn(img)
		if err != nil {
			return 0, fmt.Errorf("failed to hash image: %w", err)
		}
		return h.GetHash(), nil
	}
}

// HashResult contains a computed fingerprint.
type HashResult struct {
	Algorithm Algorithm `json:"algorithm"`
	Hash      string    `json:"hash"` // 64-bit hash as hex string
	Bits      uint64    `json:"-"`    // Raw hash for comparison
}

// Decode decodes JPEG, PNG, GIF, BMP, TIFF and WebP images, applying the EXIF orientation tag
// so rotated camera shots fingerprint like their upright copies.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Compute decodes image data and computes its fingerprint.
func Compute(imageData []byte, alg Algorithm) (*HashResult, error) {
	img, err := Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, err
	}

	bits, err := alg.HashFunc()(img)
	if err != nil {
		return nil, err
	}

	if alg == "" {
		alg = PHash
	}
	return &HashResult{
		Algorithm: alg,
		Hash:      fmt.Sprintf("%016x", bits),
		Bits:      bits,
	}, nil
}

// HammingDistance computes the Hamming distance between two 64-bit hashes.
func HammingDistance(hash1, hash2 uint64) int {
	xor := hash1 ^ hash2
	distance := 0
	for xor != 0 {
		distance++
		xor &= xor - 1 // Clear lowest set bit
	}
	return distance
}

// NormalizedDistance is the fraction of differing bits, in [0,1].
func NormalizedDistance(hash1, hash2 uint64) float64 {
	return float64(HammingDistance(hash1, hash2)) / Bits
}

// Similar returns true if two hashes are within the given threshold.
// A threshold of 10 is typically used for near-duplicate detection.
func Similar(hash1, hash2 uint64, threshold int) bool {
	return HammingDistance(hash1, hash2) <= threshold
}

// ResizeImage resizes an image to fit within maxSize while keeping aspect ratio.
// Returns JPEG-encoded bytes. Images already within bounds are re-encoded as-is.
func ResizeImage(data []byte, maxSize int) ([]byte, error) {
	img, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	dst := img
	if width > maxSize || height > maxSize {
		var newWidth, newHeight int
		if width > height {
			newWidth = maxSize
			newHeight = max(1, int(float64(height)*float64(maxSize)/float64(width)))
		} else {
			newHeight = maxSize
			newWidth = max(1, int(float64(width)*float64(maxSize)/float64(height)))
		}

		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.BiLinear.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		dst = resized
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode resized image: %w", err)
	}

	return buf.Bytes(), nil
}
