package segment

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// InputSize - сторона входа всех моделей семейства U2-Net
const InputSize = 320

var (
	imageNetMean = [3]float32{0.485, 0.456, 0.406}
	imageNetStd  = [3]float32{0.229, 0.224, 0.225}
)

// toTensor prepares an image for U2-Net input: NCHW float32, scaled by the max channel value, then normalized.
func toTensor(img image.Image) []float32 {
	resized := imaging.Resize(img, InputSize, InputSize, imaging.Lanczos)

	plane := InputSize * InputSize
	out := make([]float32, 3*plane)

	var maxVal uint8
	for i := 0; i < len(resized.Pix); i += 4 {
		maxVal = max(maxVal, resized.Pix[i], resized.Pix[i+1], resized.Pix[i+2])
	}
	scale := float32(max(maxVal, 1))

	for p := range plane {
		i := p * 4
		for c := range 3 {
			v := float32(resized.Pix[i+c]) / scale
			out[c*plane+p] = (v - imageNetMean[c]) / imageNetStd[c]
		}
	}
	return out
}

// maskFromPrediction min-max normalizes a raw prediction map into an 8-bit mask.
func maskFromPrediction(pred []float32, w, h int) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, w, h))
	if len(pred) < w*h {
		return mask
	}
	pred = pred[:w*h]

	lo, hi := pred[0], pred[0]
	for _, v := range pred {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	span := hi - lo
	if span <= 0 {
		// плоская карта - маски нет
		return mask
	}

	for i, v := range pred {
		mask.Pix[i] = uint8((v - lo) / span * 255)
	}
	return mask
}

// resizeMask scales the model-sized mask back to the source image bounds.
func resizeMask(mask *image.Gray, bounds image.Rectangle) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.CatmullRom.Scale(dst, dst.Bounds(), mask, mask.Bounds(), draw.Src, nil)
	return dst
}

// cutout applies the mask as alpha, keeping source colors and multiplying with any existing alpha.
func cutout(img image.Image, mask *image.Gray) *image.NRGBA {
	src := imaging.Clone(img)
	b := src.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	for y := range b.Dy() {
		for x := range b.Dx() {
			i := y*src.Stride + x*4
			a := uint16(src.Pix[i+3]) * uint16(mask.GrayAt(x, y).Y) / 255
			out.SetNRGBA(x, y, color.NRGBA{R: src.Pix[i], G: src.Pix[i+1], B: src.Pix[i+2], A: uint8(a)})
		}
	}
	return out
}
