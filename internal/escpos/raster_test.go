package escpos

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitmapPacksMSBFirst(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 2))
	for x := 0; x < 10; x++ {
		img.SetGray(x, 0, color.Gray{Y: 255})
		img.SetGray(x, 1, color.Gray{Y: 255})
	}
	img.SetGray(0, 0, color.Gray{Y: 0})
	img.SetGray(9, 1, color.Gray{Y: 0})

	bitmap := Bitmap(img)
	assert.Equal(t, []byte{0x80, 0x00, 0x00, 0x40}, bitmap)
}

func TestBitmapTransparentIsWhite(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 1))
	assert.Equal(t, []byte{0x00}, Bitmap(img))
}

func TestPrintImageBands(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 16, 300))

	e := NewEncoder()
	e.PrintImage(img)
	out := e.GetBytes()

	// two bands: 256 rows then 44 rows, 2 bytes per row
	require.Len(t, out, 8+256*2+8+44*2)
	assert.Equal(t, []byte{GS, 'v', '0', 0, 2, 0, 0, 1}, out[:8])
	second := out[8+256*2:]
	assert.Equal(t, []byte{GS, 'v', '0', 0, 2, 0, 44, 0}, second[:8])
}

func TestEncodeImageEndsWithPartialCut(t *testing.T) {
	out := EncodeImage(image.NewGray(image.Rect(0, 0, 8, 8)))
	assert.Equal(t, []byte{ESC, '@'}, out[:2])
	assert.Equal(t, []byte{GS, 'V', 1}, out[len(out)-3:])
}
