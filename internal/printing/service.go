// Package printing turns a bill and an explicit printer choice into a
// delivered receipt
package printing

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/uttammasala/billprint/internal/escpos"
	"github.com/uttammasala/billprint/internal/printer"
	"github.com/uttammasala/billprint/internal/receipt"
	"github.com/uttammasala/billprint/internal/transport"
	"github.com/uttammasala/billprint/pkg/bill"
)

var (
	// ErrPrinterNotFound is returned when Request.PrinterID is not a detected printer
	ErrPrinterNotFound = errors.New("printer not found")
	// ErrRawUnavailable is returned for raw-printer requests without a job queue
	ErrRawUnavailable = errors.New("raw printing is not configured")
	// ErrRasterNeedsPrinter is returned when Raster is set without a PrinterID
	ErrRasterNeedsPrinter = errors.New("raster output requires a printer id")
)

// IntentSender hands a URI to the OS
type IntentSender interface {
	Send(uri string) error
}

// BluetoothSender writes a payload over GATT, or stores it for download
type BluetoothSender interface {
	Send(ctx context.Context, label string, payload []byte) (*transport.Delivery, error)
}

// DialogPrinter prints an HTML document through a print surface
type DialogPrinter interface {
	Print(ctx context.Context, doc transport.Document) error
}

// Enqueuer accepts raw jobs for attached printers
type Enqueuer interface {
	Enqueue(printerID, label string, payload []byte) string
}

// PrinterLookup resolves detected printers
type PrinterLookup interface {
	GetPrinter(id string) *printer.Printer
}

// Rasterizer draws preview lines as an image
type Rasterizer interface {
	Render(lines []receipt.PreviewLine, barcodeValue, qrValue string) (image.Image, error)
}

// Transports are the delivery paths available to the service. Any may be nil.
type Transports struct {
	Intent    IntentSender
	Bluetooth BluetoothSender
	Dialog    DialogPrinter
	Queue     Enqueuer
	Printers  PrinterLookup
	Renderer  Rasterizer
}

// Request is one print request
type Request struct {
	Bill   *bill.Bill
	Choice Choice
	// PrinterID routes pos output to an attached printer instead of Bluetooth
	PrinterID string
	// Raster prints the preview image instead of text, for printers without ₹
	Raster bool
}

// Result reports what was produced and where it went
type Result struct {
	Choice Choice `json:"choice"`
	// IntentURI is set for thermal. When Navigated is false the caller
	// must open it.
	IntentURI string              `json:"intent_uri,omitempty"`
	Navigated bool                `json:"navigated,omitempty"`
	Delivery  *transport.Delivery `json:"delivery,omitempty"`
	JobID     string              `json:"job_id,omitempty"`
	// Printed is set once every Bluetooth chunk was written
	Printed bool `json:"printed,omitempty"`
}

// Service dispatches bills to the formatter and transport for a choice
type Service struct {
	formatter  *receipt.Formatter
	transports Transports
	logger     *slog.Logger
}

// NewService creates a printing service
func NewService(formatter *receipt.Formatter, transports Transports, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{formatter: formatter, transports: transports, logger: logger}
}

// Formatter returns the formatter used for every choice
func (s *Service) Formatter() *receipt.Formatter {
	return s.formatter
}

// PrintReceipt formats req.Bill for req.Choice and delivers it
func (s *Service) PrintReceipt(ctx context.Context, req Request) (*Result, error) {
	if req.Bill == nil {
		return nil, bill.ErrNilBill
	}
	if req.Raster && req.PrinterID == "" {
		return nil, ErrRasterNeedsPrinter
	}

	choice := req.Choice
	if req.PrinterID != "" {
		// Attached printers only take ESC/POS
		choice = ChoicePOS
	}
	label := req.Bill.Number()

	var (
		result *Result
		err    error
	)
	switch choice {
	case ChoiceThermal:
		result, err = s.printThermal(req.Bill)
	case ChoicePOS:
		if req.PrinterID != "" {
			result, err = s.printRaw(req, label)
		} else {
			result, err = s.printBluetooth(ctx, req.Bill, label)
		}
	case ChoiceHTML:
		result, err = s.printHTML(ctx, req.Bill, label)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownChoice, choice)
	}
	if err != nil {
		s.logger.Error("print failed", "bill", label, "choice", choice, "err", err)
		return nil, err
	}

	result.Choice = choice
	return result, nil
}

func (s *Service) printThermal(b *bill.Bill) (*Result, error) {
	uri := receipt.IntentURI(s.formatter.FormatText(b))
	result := &Result{IntentURI: uri}

	if s.transports.Intent == nil {
		return result, nil
	}
	err := s.transports.Intent.Send(uri)
	switch {
	case errors.Is(err, transport.ErrNoNavigator):
		return result, nil
	case err != nil:
		return nil, fmt.Errorf("launching print intent: %w", err)
	}

	result.Navigated = true
	s.logger.Info("receipt handed to intent", "bill", b.Number())
	return result, nil
}

func (s *Service) printBluetooth(ctx context.Context, b *bill.Bill, label string) (*Result, error) {
	if s.transports.Bluetooth == nil {
		return nil, transport.ErrBluetoothUnavailable
	}

	delivery, err := s.transports.Bluetooth.Send(ctx, label, s.formatter.FormatPOS(b))
	if err != nil {
		return nil, err
	}
	return &Result{Delivery: delivery, Printed: delivery.Method == transport.MethodBluetooth}, nil
}

func (s *Service) printRaw(req Request, label string) (*Result, error) {
	if s.transports.Queue == nil || s.transports.Printers == nil {
		return nil, ErrRawUnavailable
	}
	if s.transports.Printers.GetPrinter(req.PrinterID) == nil {
		return nil, fmt.Errorf("%w: %s", ErrPrinterNotFound, req.PrinterID)
	}

	var payload []byte
	if req.Raster {
		if s.transports.Renderer == nil {
			return nil, errors.New("raster output requires a renderer")
		}
		img, err := s.transports.Renderer.Render(s.formatter.PreviewLines(req.Bill), "", "")
		if err != nil {
			return nil, fmt.Errorf("rendering receipt: %w", err)
		}
		payload = escpos.EncodeImage(img)
	} else {
		payload = s.formatter.FormatPOS(req.Bill)
	}

	jobID := s.transports.Queue.Enqueue(req.PrinterID, label, payload)
	s.logger.Info("receipt queued", "bill", label, "printer", req.PrinterID, "job", jobID)
	return &Result{JobID: jobID}, nil
}

func (s *Service) printHTML(ctx context.Context, b *bill.Bill, label string) (*Result, error) {
	if s.transports.Dialog == nil {
		return nil, errors.New("no print dialog configured")
	}

	html, err := s.formatter.RenderHTML(b)
	if err != nil {
		return nil, fmt.Errorf("rendering receipt: %w", err)
	}

	// A cancelled dialog also returns nil
	if err := s.transports.Dialog.Print(ctx, transport.Document{Name: label, HTML: html}); err != nil {
		return nil, err
	}
	return &Result{}, nil
}
