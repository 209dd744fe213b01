package printer

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotConnected is returned when writing to a printer without an open connection
var ErrNotConnected = errors.New("printer not connected")

// PrinterConnection is a unified interface for all printer types
type PrinterConnection interface {
	Write(data []byte) (int, error)
	Close() error
}

// Connector opens a connection to a printer
type Connector func(printer *Printer) (PrinterConnection, error)

// ConnectionPool manages connections to printers
type ConnectionPool struct {
	connections map[string]PrinterConnection
	connect     Connector
	mu          sync.RWMutex
}

// NewConnectionPool creates a new connection pool. A nil connector dials
// the real device for the printer's type.
func NewConnectionPool(connect Connector) *ConnectionPool {
	if connect == nil {
		connect = Dial
	}
	return &ConnectionPool{
		connections: make(map[string]PrinterConnection),
		connect:     connect,
	}
}

// Dial opens the device behind a printer
func Dial(printer *Printer) (PrinterConnection, error) {
	switch printer.Type {
	case TypeUSB:
		return ConnectUSB(printer.VID, printer.PID)
	case TypeSerial:
		return ConnectSerial(printer.Device, printer.Baud)
	case TypeNetwork:
		return ConnectNetwork(printer.Host, printer.Port)
	default:
		return nil, fmt.Errorf("unsupported printer type: %s", printer.Type)
	}
}

// Connect establishes a connection to a printer
func (p *ConnectionPool) Connect(printer *Printer) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.connections[printer.ID]; exists {
		return nil
	}

	conn, err := p.connect(printer)
	if err != nil {
		return err
	}

	p.connections[printer.ID] = conn
	return nil
}

// Write sends raw bytes to a connected printer. Short writes are errors.
func (p *ConnectionPool) Write(printerID string, data []byte) error {
	p.mu.RLock()
	conn, exists := p.connections[printerID]
	p.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrNotConnected, printerID)
	}

	n, err := conn.Write(data)
	if err != nil {
		return fmt.Errorf("writing to printer %s: %w", printerID, err)
	}
	if n < len(data) {
		return fmt.Errorf("writing to printer %s: short write %d/%d bytes", printerID, n, len(data))
	}
	return nil
}

// Disconnect closes a printer connection
func (p *ConnectionPool) Disconnect(printerID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	conn, exists := p.connections[printerID]
	if !exists {
		return nil
	}

	err := conn.Close()
	delete(p.connections, printerID)

	return err
}

// DisconnectAll closes all connections
func (p *ConnectionPool) DisconnectAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, conn := range p.connections {
		conn.Close()
		delete(p.connections, id)
	}
}

// IsConnected checks if a printer is connected
func (p *ConnectionPool) IsConnected(printerID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, exists := p.connections[printerID]
	return exists
}
