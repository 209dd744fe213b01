package renderer

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// WithLogo draws the image at path above the header, scaled to half the
// paper width and converted to grayscale. An empty path is ignored.
func WithLogo(path string) Option {
	return func(r *Renderer) error {
		if path == "" {
			return nil
		}
		img, err := imaging.Open(path)
		if err != nil {
			return fmt.Errorf("loading logo: %w", err)
		}
		r.logo = prepareLogo(img, r.width/2)
		return nil
	}
}

func prepareLogo(img image.Image, maxWidth int) image.Image {
	if img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}
	return imaging.Grayscale(img)
}

func (r *Renderer) drawCentered(img image.Image) {
	imgHeight := img.Bounds().Dy()
	r.ensureHeight(imgHeight + 10)
	x := (r.width - img.Bounds().Dx()) / 2
	r.ctx.DrawImage(img, x, int(r.y))
	r.y += float64(imgHeight) + 10
}
