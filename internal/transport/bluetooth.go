package transport

import (
	"context"
	"fmt"
	"time"

	"tinygo.org/x/bluetooth"
)

// BluetoothAdapter drives the host Bluetooth stack (BlueZ, CoreBluetooth
// or WinRT). RequestDevice picks the first printer that advertises the
// service; cancelling ctx stands in for dismissing a picker.
type BluetoothAdapter struct {
	adapter     *bluetooth.Adapter
	ScanTimeout time.Duration
}

// NewBluetoothAdapter wraps the default host adapter
func NewBluetoothAdapter(scanTimeout time.Duration) *BluetoothAdapter {
	if scanTimeout <= 0 {
		scanTimeout = 15 * time.Second
	}
	return &BluetoothAdapter{adapter: bluetooth.DefaultAdapter, ScanTimeout: scanTimeout}
}

// Enable implements Adapter
func (a *BluetoothAdapter) Enable() error {
	if err := a.adapter.Enable(); err != nil {
		return fmt.Errorf("%w: %v", ErrBluetoothUnavailable, err)
	}
	return nil
}

// RequestDevice implements Adapter
func (a *BluetoothAdapter) RequestDevice(ctx context.Context, service string) (Device, error) {
	uuid, err := bluetooth.ParseUUID(service)
	if err != nil {
		return nil, fmt.Errorf("invalid service uuid %q: %w", service, err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.ScanTimeout)
	defer cancel()

	found := make(chan bluetooth.ScanResult, 1)
	scanDone := make(chan error, 1)
	go func() {
		scanDone <- a.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if !result.HasServiceUUID(uuid) {
				return
			}
			select {
			case found <- result:
			default:
			}
			adapter.StopScan()
		})
	}()

	select {
	case <-ctx.Done():
		a.adapter.StopScan()
		<-scanDone
		return nil, fmt.Errorf("%w: %v", ErrDeviceSelectionCancelled, ctx.Err())
	case err := <-scanDone:
		select {
		case result := <-found:
			return a.connect(result)
		default:
		}
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		return nil, fmt.Errorf("%w: no printer found", ErrDeviceSelectionCancelled)
	case result := <-found:
		<-scanDone
		return a.connect(result)
	}
}

func (a *BluetoothAdapter) connect(result bluetooth.ScanResult) (Device, error) {
	dev, err := a.adapter.Connect(result.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConnectionRejected, result.LocalName(), err)
	}
	return &bluetoothDevice{device: dev}, nil
}

// peripheral is the part of bluetooth.Device used here
type peripheral interface {
	DiscoverServices(uuids []bluetooth.UUID) ([]bluetooth.DeviceService, error)
	Disconnect() error
}

type bluetoothDevice struct {
	device peripheral
}

func (d *bluetoothDevice) Characteristic(ctx context.Context, service, characteristic string) (Characteristic, error) {
	serviceUUID, err := bluetooth.ParseUUID(service)
	if err != nil {
		return nil, fmt.Errorf("invalid service uuid %q: %w", service, err)
	}
	charUUID, err := bluetooth.ParseUUID(characteristic)
	if err != nil {
		return nil, fmt.Errorf("invalid characteristic uuid %q: %w", characteristic, err)
	}

	services, err := d.device.DiscoverServices([]bluetooth.UUID{serviceUUID})
	if err != nil || len(services) == 0 {
		return nil, fmt.Errorf("printer service %s not found: %v", service, err)
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{charUUID})
	if err != nil || len(chars) == 0 {
		return nil, fmt.Errorf("printer characteristic %s not found: %v", characteristic, err)
	}

	return &bluetoothCharacteristic{char: chars[0]}, nil
}

func (d *bluetoothDevice) Disconnect() error {
	return d.device.Disconnect()
}

type bluetoothCharacteristic struct {
	char bluetooth.DeviceCharacteristic
}

// Write sends one chunk. The stack returns once the chunk is queued,
// so chunks stay in order.
func (c *bluetoothCharacteristic) Write(p []byte) (int, error) {
	return c.char.WriteWithoutResponse(p)
}

// MTU reports the negotiated ATT MTU.
func (c *bluetoothCharacteristic) MTU() (int, error) {
	m, err := c.char.GetMTU()
	return int(m), err
}
