package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Common service and characteristic of BLE thermal printers
const (
	DefaultServiceUUID        = "000018f0-0000-1000-8000-00805f9b34fb"
	DefaultCharacteristicUUID = "00002af1-0000-1000-8000-00805f9b34fb"
	DefaultChunkSize          = 512

	// attHeader is subtracted from a negotiated MTU to get the payload size
	attHeader = 3
)

// Delivery methods
const (
	MethodBluetooth = "bluetooth"
	MethodDownload  = "download"
)

// Adapter is the runtime's Bluetooth stack
type Adapter interface {
	// Enable fails when the runtime has no Bluetooth
	Enable() error
	// RequestDevice selects and connects a device advertising service. It
	// returns ErrDeviceSelectionCancelled when the user backs out and
	// ErrConnectionRejected when the connection is refused.
	RequestDevice(ctx context.Context, service string) (Device, error)
}

// Device is a connected peripheral
type Device interface {
	Characteristic(ctx context.Context, service, characteristic string) (Characteristic, error)
	Disconnect() error
}

// Characteristic is a writable GATT characteristic. Write returns after the
// stack accepted the bytes.
type Characteristic interface {
	Write(p []byte) (int, error)
}

// MTUReporter is implemented by characteristics that know the negotiated MTU
type MTUReporter interface {
	MTU() (int, error)
}

// GATTConfig selects the printer service and write size
type GATTConfig struct {
	ServiceUUID        string
	CharacteristicUUID string
	ChunkSize          int
}

// Delivery describes how a payload left the agent
type Delivery struct {
	Method   string `json:"method"`
	Chunks   int    `json:"chunks,omitempty"`
	Bytes    int    `json:"bytes"`
	Artifact string `json:"artifact,omitempty"`
	Reason   string `json:"reason,omitempty"` // why Bluetooth was skipped
}

// GATT writes ESC/POS payloads to a Bluetooth printer
type GATT struct {
	adapter   Adapter
	caps      Capabilities
	artifacts ArtifactStore
	config    GATTConfig
	logger    *slog.Logger
}

// NewGATT creates a GATT transport. A nil adapter behaves like a runtime
// without Bluetooth.
func NewGATT(adapter Adapter, caps Capabilities, artifacts ArtifactStore, config GATTConfig, logger *slog.Logger) *GATT {
	if config.ServiceUUID == "" {
		config.ServiceUUID = DefaultServiceUUID
	}
	if config.CharacteristicUUID == "" {
		config.CharacteristicUUID = DefaultCharacteristicUUID
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &GATT{
		adapter:   adapter,
		caps:      caps,
		artifacts: artifacts,
		config:    config,
		logger:    logger,
	}
}

// Send writes payload to the first device advertising the printer
// service. Without Bluetooth it stores payload as a downloadable artifact
// named after label and reports that in the Delivery instead of failing.
func (g *GATT) Send(ctx context.Context, label string, payload []byte) (*Delivery, error) {
	if g.adapter == nil || (g.caps != nil && !g.caps.BluetoothAvailable()) {
		return g.fallback(label, payload, ErrBluetoothUnavailable)
	}

	if err := g.adapter.Enable(); err != nil {
		if !errors.Is(err, ErrBluetoothUnavailable) {
			err = fmt.Errorf("%w: %v", ErrBluetoothUnavailable, err)
		}
		return g.fallback(label, payload, err)
	}

	device, err := g.adapter.RequestDevice(ctx, g.config.ServiceUUID)
	if err != nil {
		if errors.Is(err, ErrDeviceSelectionCancelled) {
			g.logger.Info("device selection cancelled", "bill", label)
		}
		return nil, err
	}
	defer func() {
		if err := device.Disconnect(); err != nil {
			g.logger.Warn("disconnect failed", "err", err)
		}
	}()

	char, err := device.Characteristic(ctx, g.config.ServiceUUID, g.config.CharacteristicUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve printer characteristic: %w", err)
	}

	size := g.chunkSize(char)
	if err := WriteChunks(ctx, char, payload, size); err != nil {
		g.logger.Error("bluetooth write aborted", "bill", label, "err", err)
		return nil, err
	}

	chunks := chunkCount(len(payload), size)
	g.logger.Info("receipt sent over bluetooth", "bill", label, "bytes", len(payload), "chunks", chunks)

	return &Delivery{
		Method: MethodBluetooth,
		Chunks: chunks,
		Bytes:  len(payload),
	}, nil
}

func (g *GATT) fallback(label string, payload []byte, reason error) (*Delivery, error) {
	if g.artifacts == nil {
		return nil, fmt.Errorf("%w and no artifact store is configured", reason)
	}

	name, err := g.artifacts.Save(ArtifactName(label), payload)
	if err != nil {
		return nil, fmt.Errorf("%w; fallback failed: %w", reason, err)
	}

	g.logger.Warn("bluetooth unavailable, stored receipt for download", "artifact", name, "err", reason)

	return &Delivery{
		Method:   MethodDownload,
		Bytes:    len(payload),
		Artifact: name,
		Reason:   reason.Error(),
	}, nil
}

// chunkSize prefers the negotiated MTU when the characteristic reports one
func (g *GATT) chunkSize(char Characteristic) int {
	size := g.config.ChunkSize

	if reporter, ok := char.(MTUReporter); ok {
		if mtu, err := reporter.MTU(); err == nil && mtu-attHeader > 0 && mtu-attHeader < size {
			size = mtu - attHeader
		}
	}

	return size
}

// WriteChunks writes payload in pieces of at most size bytes. A chunk is
// issued only after the previous Write returned. The first failure stops
// the remaining chunks and is returned as a *WriteError.
func WriteChunks(ctx context.Context, w Characteristic, payload []byte, size int) error {
	if size <= 0 {
		size = DefaultChunkSize
	}
	total := chunkCount(len(payload), size)

	for i, offset := 0, 0; offset < len(payload); i, offset = i+1, offset+size {
		if err := ctx.Err(); err != nil {
			return &WriteError{Chunk: i, Total: total, Written: offset, Err: err}
		}

		end := offset + size
		if end > len(payload) {
			end = len(payload)
		}

		n, err := w.Write(payload[offset:end])
		if err == nil && n < end-offset {
			err = io.ErrShortWrite
		}
		if err != nil {
			return &WriteError{Chunk: i, Total: total, Written: offset, Err: err}
		}
	}

	return nil
}

func chunkCount(length, size int) int {
	return (length + size - 1) / size
}
