package imageproc

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

func mustDecode(t *testing.T, data []byte) image.Image {
	t.Helper()

	img, err := imaging.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.NotNil(t, img)

	return img
}

func TestPreview(t *testing.T) {
	transparent := image.NewNRGBA(image.Rect(0, 0, 300, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 300; x++ {
			if x < 150 {
				transparent.Set(x, y, color.NRGBA{R: 100, G: 100, B: 200, A: 255})
			}
		}
	}

	tests := []struct {
		name         string
		img          image.Image
		size         int
		wantW, wantH int
		wantErr      bool
	}{
		{name: "OK landscape", img: transparent, size: 150, wantW: 150, wantH: 100},
		{name: "smaller than box", img: transparent, size: 600, wantW: 300, wantH: 200},
		{name: "nil image", img: nil, size: 100, wantErr: true},
		{name: "zero size", img: transparent, size: 0, wantErr: true},
		{name: "too big", img: transparent, size: MaxPreviewSize + 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Preview(tt.img, tt.size)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			img := mustDecode(t, data)
			require.Equal(t, tt.wantW, img.Bounds().Dx())
			require.Equal(t, tt.wantH, img.Bounds().Dy())

			// прозрачная половина остается прозрачной
			_, _, _, a := img.At(img.Bounds().Dx()-1, 0).RGBA()
			require.Zero(t, a)
		})
	}
}
