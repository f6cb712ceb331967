// Package hasher computes fixed-length perceptual hashes of images. It is a
// pure function of pixels in, bytes out: it never touches the similarity
// index, so the same hash bytes work as both an mvp point value and an
// mvp_distance input regardless of which Hasher produced them.
package hasher

import (
	"errors"
	"fmt"
	"image"
	"math/bits"
)

// Hasher computes a perceptual hash of an image.
type Hasher interface {
	Hash(img image.Image) ([]byte, error)
}

// ErrLengthMismatch is returned by Distance when its two arguments are not
// the same length.
var ErrLengthMismatch = errors.New("hasher: hash lengths differ")

// Distance computes the Hamming distance between two equal-length hashes.
// It is the metric registered with pkg/mvp's Distance Oracle.
func Distance(a, b []byte) (uint32, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(a), len(b))
	}
	var d uint32
	for i := range a {
		d += uint32(bits.OnesCount8(a[i] ^ b[i]))
	}
	return d, nil
}
