package renderer

import (
	"fmt"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/skip2/go-qrcode"
)

const barcodeHeight = 60

func (r *Renderer) renderBarcode(value string) error {
	code, err := code128.Encode(value)
	if err != nil {
		return err
	}

	targetWidth := r.width - 40
	natural := code.Bounds().Dx()
	if natural > targetWidth {
		return fmt.Errorf("barcode for %q needs %d px, paper has %d", value, natural, targetWidth)
	}
	// Whole multiples of the module width stay scannable
	targetWidth = natural * max(1, min(3, targetWidth/natural))

	scaled, err := barcode.Scale(code, targetWidth, barcodeHeight)
	if err != nil {
		return err
	}

	r.y += 10
	imgHeight := scaled.Bounds().Dy()
	r.ensureHeight(imgHeight + 20)
	x := (r.width - scaled.Bounds().Dx()) / 2
	r.ctx.DrawImage(scaled, x, int(r.y))
	r.y += float64(imgHeight) + 10

	return nil
}

func (r *Renderer) renderQRCode(value string) error {
	qr, err := qrcode.New(value, qrcode.Medium)
	if err != nil {
		return err
	}

	qrSize := min(r.width/2, 256)
	qrImg := qr.Image(qrSize)

	imgHeight := qrImg.Bounds().Dy()
	r.ensureHeight(imgHeight + 20)
	x := (r.width - qrImg.Bounds().Dx()) / 2
	r.ctx.DrawImage(qrImg, x, int(r.y))
	r.y += float64(imgHeight) + 10

	return nil
}
