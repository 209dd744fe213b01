package printer

import (
	"fmt"
	"sync"
	"time"

	"github.com/tarm/serial"
)

// DefaultBaud suits most thermal printers and Bluetooth SPP bridges
const DefaultBaud = 9600

// SerialConnection represents a serial printer connection
type SerialConnection struct {
	port *serial.Port
	mu   sync.Mutex
}

// ConnectSerial connects to a serial printer
func ConnectSerial(device string, baud int) (*SerialConnection, error) {
	if baud == 0 {
		baud = DefaultBaud
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: 500 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", device, err)
	}

	return &SerialConnection{port: port}, nil
}

// Write sends data to the serial printer
func (c *SerialConnection) Write(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.port.Write(data)
}

// Close closes the serial connection
func (c *SerialConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port == nil {
		return nil
	}
	err := c.port.Close()
	c.port = nil
	return err
}
