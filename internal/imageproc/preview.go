package imageproc

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

const MaxPreviewSize = 1024

// Preview fits the result into a size x size box keeping aspect ratio and transparency.
// Images already smaller than the box are encoded as is.
func Preview(img image.Image, size int) ([]byte, error) {
	if img == nil {
		return nil, errors.New("nil image provided to Preview")
	}
	if size <= 0 || size > MaxPreviewSize {
		return nil, fmt.Errorf("preview size must be in 1..%d, got %d", MaxPreviewSize, size)
	}

	thumb := imaging.Fit(img, size, size, imaging.Lanczos)
	return EncodePNG(thumb)
}
