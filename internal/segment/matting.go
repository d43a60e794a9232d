package segment

import (
	"image"

	"github.com/disintegration/imaging"
)

const (
	fgThreshold = 240
	bgThreshold = 10
	erodeSize   = 10
	edgeSigma   = 2.0
)

// refineAlpha smooths the mask edges: pixels that stay certain after erosion keep 0/255,
// the unknown band in between takes a blurred mask value.
func refineAlpha(mask *image.Gray) *image.Gray {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return mask
	}

	fg := make([]bool, w*h)
	bg := make([]bool, w*h)
	for y := range h {
		for x := range w {
			v := mask.GrayAt(b.Min.X+x, b.Min.Y+y).Y
			fg[y*w+x] = v > fgThreshold
			bg[y*w+x] = v < bgThreshold
		}
	}
	fg = erode(fg, w, h, erodeSize)
	bg = erode(bg, w, h, erodeSize)

	blurred := imaging.Blur(mask, edgeSigma)

	out := image.NewGray(image.Rect(0, 0, w, h))
	for i := range fg {
		switch {
		case fg[i]:
			out.Pix[i] = 255
		case bg[i]:
			out.Pix[i] = 0
		default:
			// NRGBA после Blur, серое значение лежит в любом из каналов
			out.Pix[i] = blurred.Pix[i*4]
		}
	}
	return out
}

// erode is a binary erosion with a size x size square, done as two 1-D passes over prefix sums.
func erode(bits []bool, w, h, size int) []bool {
	r := size / 2
	tmp := make([]bool, len(bits))
	out := make([]bool, len(bits))

	prefix := make([]int, max(w, h)+1)
	for y := range h {
		for x := range w {
			prefix[x+1] = prefix[x] + boolToInt(bits[y*w+x])
		}
		for x := range w {
			lo, hi := max(x-r, 0), min(x+r, w-1)
			tmp[y*w+x] = prefix[hi+1]-prefix[lo] == hi-lo+1 && x-r >= 0 && x+r < w
		}
	}
	for x := range w {
		for y := range h {
			prefix[y+1] = prefix[y] + boolToInt(tmp[y*w+x])
		}
		for y := range h {
			lo, hi := max(y-r, 0), min(y+r, h-1)
			out[y*w+x] = prefix[hi+1]-prefix[lo] == hi-lo+1 && y-r >= 0 && y+r < h
		}
	}
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
