package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/uttammasala/billprint/internal/receipt"
	"github.com/uttammasala/billprint/internal/renderer"
	"github.com/uttammasala/billprint/pkg/bill"
)

// Render formats accepted by the render command
const (
	formatText    = "text"
	formatPOS     = "pos"
	formatHTML    = "html"
	formatPreview = "preview"
	formatShare   = "share"
)

// renderOptions configure an offline render
type renderOptions struct {
	ShopPath string
	Paper    string
	Timezone string
	CodePage string
	Phone    string
}

// newFormatter builds a formatter from the local shop file
func newFormatter(opts renderOptions) (*receipt.Formatter, error) {
	business, err := bill.LoadBusiness(opts.ShopPath)
	if err != nil {
		return nil, err
	}

	cp, err := receipt.ParseCodePage(opts.CodePage)
	if err != nil {
		return nil, err
	}

	return receipt.NewFormatter(business,
		receipt.WithLocation(receipt.LoadLocation(opts.Timezone)),
		receipt.WithPaperWidth(opts.Paper),
		receipt.WithCodePage(cp),
	), nil
}

// renderBill writes b in the given format to w
func renderBill(w io.Writer, format string, b *bill.Bill, opts renderOptions) error {
	f, err := newFormatter(opts)
	if err != nil {
		return err
	}

	phone := opts.Phone
	if phone == "" {
		phone = b.PhoneNumber
	}

	switch format {
	case formatText:
		_, err = io.WriteString(w, receipt.IntentURI(f.FormatText(b))+"\n")
	case formatPOS:
		_, err = w.Write(f.FormatPOS(b))
	case formatHTML:
		var html string
		if html, err = f.RenderHTML(b); err == nil {
			_, err = io.WriteString(w, html)
		}
	case formatPreview:
		var rendererOpts []renderer.Option
		if logo := f.Business().Logo; logo != "" {
			rendererOpts = append(rendererOpts, renderer.WithLogo(logo))
		}
		r, err := renderer.New(opts.Paper, rendererOpts...)
		if err != nil {
			return err
		}
		img, err := r.Render(f.PreviewLines(b), b.Number(), f.ShareLink(b, phone))
		if err != nil {
			return err
		}
		return renderer.EncodePNG(w, img)
	case formatShare:
		_, err = io.WriteString(w, f.ShareLink(b, phone)+"\n")
	default:
		return fmt.Errorf("unknown render format: %s", format)
	}
	return err
}

// writeOutput renders to path, or to stdout when path is empty
func writeOutput(path, format string, b *bill.Bill, opts renderOptions) error {
	if path == "" {
		return renderBill(os.Stdout, format, b, opts)
	}

	var buf bytes.Buffer
	if err := renderBill(&buf, format, b, opts); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
