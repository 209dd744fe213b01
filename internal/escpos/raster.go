package escpos

import (
	"image"
)

// rasterBandHeight keeps each GS v 0 block within printer buffer limits
const rasterBandHeight = 256

// PrintImage appends img as GS v 0 raster bands. Pixels darker than 50%
// print black.
func (e *Encoder) PrintImage(img image.Image) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 {
		return
	}

	bitmap := Bitmap(img)
	bytesPerLine := (width + 7) / 8

	for top := 0; top < height; top += rasterBandHeight {
		rows := min(rasterBandHeight, height-top)

		// GS v 0 m xL xH yL yH d1...dk
		e.buffer.Write([]byte{
			GS, 'v', '0', 0,
			byte(bytesPerLine), byte(bytesPerLine >> 8),
			byte(rows), byte(rows >> 8),
		})
		e.buffer.Write(bitmap[top*bytesPerLine : (top+rows)*bytesPerLine])
	}
}

// Bitmap packs img into 1-bit rows, MSB first, set bits black
func Bitmap(img image.Image) []byte {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	bytesPerLine := (width + 7) / 8
	bitmap := make([]byte, bytesPerLine*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, a := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			// Transparent pixels are paper
			if a < 0x8000 {
				continue
			}
			if (r+g+b)/3 < 0x8000 {
				bitmap[y*bytesPerLine+x/8] |= 0x80 >> (x % 8)
			}
		}
	}

	return bitmap
}

// EncodeImage wraps img in a complete printable job ending with a partial cut
func EncodeImage(img image.Image) []byte {
	e := NewEncoder()
	e.Initialize()
	e.SetAlignment("center")
	e.PrintImage(img)
	e.Feed(3)
	e.PartialCut()
	return e.GetBytes()
}
