// Package transport delivers rendered receipts: an intent URI handed to the
// OS, ESC/POS bytes written to a Bluetooth GATT characteristic, or an HTML
// page sent through a print surface.
package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrBluetoothUnavailable means the runtime has no usable Bluetooth
	// adapter. GATT.Send answers it with a downloadable artifact.
	ErrBluetoothUnavailable = errors.New("bluetooth is not available")
	// ErrDeviceSelectionCancelled means the user dismissed the device
	// picker. It is not a hardware failure.
	ErrDeviceSelectionCancelled = errors.New("device selection cancelled")
	// ErrConnectionRejected means pairing or connection was refused.
	ErrConnectionRejected = errors.New("connection rejected")
	// ErrPrintCancelled is returned by a Surface when the user closes the
	// print dialog. Dialog.Print swallows it.
	ErrPrintCancelled = errors.New("print cancelled")
	// ErrNoNavigator means no intent launcher is configured.
	ErrNoNavigator = errors.New("no intent navigator configured")
)

// WriteError aggregates a failed chunked write. Chunks before Chunk were
// delivered and may already be on paper.
type WriteError struct {
	Chunk   int // zero-based index of the failed chunk
	Total   int
	Written int // bytes delivered before the failure
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write chunk %d/%d failed after %d bytes: %v", e.Chunk+1, e.Total, e.Written, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
