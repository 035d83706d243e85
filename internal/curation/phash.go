package curation

import (
	"fmt"
	"image"
	"strconv"

	"github.com/corona10/goimagehash"
)

// HashLength is the number of hex characters in a perceptual hash.
const HashLength = 16

// PerceptualHash returns the 64-bit DCT perceptual hash of img as 16 lowercase hex chars.
func PerceptualHash(img image.Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("nil image")
	}
	h, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.GetHash()), nil
}

// HammingDistance returns the number of differing bits between two hashes
// produced by PerceptualHash. Near-duplicates have a small distance.
func HammingDistance(a, b string) (int, error) {
	ha, err := parseHash(a)
	if err != nil {
		return 0, err
	}
	hb, err := parseHash(b)
	if err != nil {
		return 0, err
	}
	return ha.Distance(hb)
}

func parseHash(s string) (*goimagehash.ImageHash, error) {
	if len(s) != HashLength {
		return nil, fmt.Errorf("perceptual hash must be %d hex chars, got %d", HashLength, len(s))
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid perceptual hash %q: %w", s, err)
	}
	return goimagehash.NewImageHash(v, goimagehash.PHash), nil
}
