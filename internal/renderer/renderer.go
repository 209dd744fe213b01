// Package renderer draws PNG previews of receipts
package renderer

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/uttammasala/billprint/internal/receipt"
)

const margin = 8

// Renderer converts receipt preview lines to images. Render calls are
// serialized.
type Renderer struct {
	mu     sync.Mutex
	width  int // Paper width in pixels
	height int // Current canvas height
	ctx    *gg.Context
	y      float64 // Current Y position
	fonts  fontSet
	logo   image.Image
}

// Option configures a Renderer
type Option func(*Renderer) error

// New creates a new renderer for "58mm" or "80mm" paper
func New(paperWidth string, opts ...Option) (*Renderer, error) {
	r := &Renderer{
		width: paperWidthToPixels(paperWidth),
		fonts: findFonts(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.reset()
	return r, nil
}

// Width returns the canvas width in pixels
func (r *Renderer) Width() int {
	return r.width
}

// Render draws lines followed by an optional bill-number barcode and an
// optional QR code
func (r *Renderer) Render(lines []receipt.PreviewLine, barcodeValue, qrValue string) (image.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reset()

	if r.logo != nil {
		r.drawCentered(r.logo)
	}

	for _, line := range lines {
		if isRule(line.Text) {
			r.renderDivider()
			continue
		}
		if err := r.renderText(line); err != nil {
			return nil, fmt.Errorf("rendering line %q: %w", line.Text, err)
		}
	}

	if barcodeValue != "" {
		if err := r.renderBarcode(barcodeValue); err != nil {
			return nil, fmt.Errorf("rendering barcode: %w", err)
		}
	}
	if qrValue != "" {
		if err := r.renderQRCode(qrValue); err != nil {
			return nil, fmt.Errorf("rendering QR code: %w", err)
		}
	}

	return r.cropToContent(), nil
}

// EncodePNG writes img as PNG
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

func (r *Renderer) reset() {
	r.height = 1000
	r.ctx = gg.NewContext(r.width, r.height)
	r.ctx.SetColor(color.White)
	r.ctx.Clear()
	r.ctx.SetColor(color.Black)
	r.y = margin
}

func (r *Renderer) cropToContent() image.Image {
	finalHeight := min(int(r.y)+margin*3, r.height)
	return imaging.Crop(r.ctx.Image(), image.Rect(0, 0, r.width, finalHeight))
}

func (r *Renderer) ensureHeight(neededHeight int) {
	if int(r.y)+neededHeight <= r.height {
		return
	}

	newHeight := r.height * 2
	if newHeight < int(r.y)+neededHeight {
		newHeight = int(r.y) + neededHeight + 1000
	}

	newCtx := gg.NewContext(r.width, newHeight)
	newCtx.SetColor(color.White)
	newCtx.Clear()
	newCtx.DrawImage(r.ctx.Image(), 0, 0)
	newCtx.SetColor(color.Black)

	r.ctx = newCtx
	r.height = newHeight
}

func isRule(text string) bool {
	return len(text) > 3 && strings.Trim(text, "-") == ""
}

func paperWidthToPixels(width string) int {
	switch width {
	case "58mm":
		return 384
	case "80mm":
		return 576
	default:
		return 576
	}
}
