package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Document is an HTML page to print
type Document struct {
	Name string
	HTML string
}

// Surface is a transient rendering surface, such as a browser tab
type Surface interface {
	// Load injects the document and returns once the page reports ready
	Load(ctx context.Context, doc Document) error
	// Print runs the print step. It returns ErrPrintCancelled when the
	// user backs out.
	Print(ctx context.Context) error
	Close() error
}

// SurfaceOpener opens a fresh surface for each document
type SurfaceOpener func(ctx context.Context) (Surface, error)

// DialogOptions tunes the surface lifecycle
type DialogOptions struct {
	// Settle is an extra wait between load and print. Zero relies on the
	// surface's ready signal alone.
	Settle time.Duration
	// CloseDelay keeps the surface open briefly after printing
	CloseDelay time.Duration
}

// Dialog is the print-dialog transport
type Dialog struct {
	open    SurfaceOpener
	options DialogOptions
	logger  *slog.Logger
}

// NewDialog creates a print-dialog transport
func NewDialog(open SurfaceOpener, options DialogOptions, logger *slog.Logger) *Dialog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dialog{open: open, options: options, logger: logger}
}

// Print opens a surface, loads doc, prints it and closes the surface. A
// cancelled print is not an error.
func (d *Dialog) Print(ctx context.Context, doc Document) error {
	if d.open == nil {
		return errors.New("no print surface configured")
	}

	surface, err := d.open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open print surface: %w", err)
	}
	defer d.close(surface)

	if err := surface.Load(ctx, doc); err != nil {
		return fmt.Errorf("failed to load receipt: %w", err)
	}

	if d.options.Settle > 0 {
		select {
		case <-time.After(d.options.Settle):
		case <-ctx.Done():
			d.logger.Info("print dialog cancelled", "bill", doc.Name)
			return nil
		}
	}

	if err := surface.Print(ctx); err != nil {
		if errors.Is(err, ErrPrintCancelled) {
			d.logger.Info("print dialog cancelled", "bill", doc.Name)
			return nil
		}
		return fmt.Errorf("failed to print receipt: %w", err)
	}

	d.logger.Info("receipt printed", "bill", doc.Name)
	return nil
}

func (d *Dialog) close(surface Surface) {
	closeNow := func() {
		if err := surface.Close(); err != nil {
			d.logger.Warn("failed to close print surface", "err", err)
		}
	}

	if d.options.CloseDelay <= 0 {
		closeNow()
		return
	}
	time.AfterFunc(d.options.CloseDelay, closeNow)
}
