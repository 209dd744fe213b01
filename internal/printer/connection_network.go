package printer

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"
)

// DefaultNetworkPort is the raw printing port used by networked ESC/POS printers
const DefaultNetworkPort = 9100

const networkTimeout = 5 * time.Second

// NetworkConnection represents a network printer connection
type NetworkConnection struct {
	conn net.Conn
	mu   sync.Mutex
}

// ConnectNetwork connects to a network printer
func ConnectNetwork(host string, port int) (*NetworkConnection, error) {
	if port == 0 {
		port = DefaultNetworkPort
	}
	address := net.JoinHostPort(host, strconv.Itoa(port))

	conn, err := net.DialTimeout("tcp", address, networkTimeout)
	if err != nil {
		return nil, fmt.Errorf("connecting to network printer %s: %w", address, err)
	}

	return &NetworkConnection{conn: conn}, nil
}

// Write sends data to the network printer
func (c *NetworkConnection) Write(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(networkTimeout))
	return c.conn.Write(data)
}

// Close closes the network connection
func (c *NetworkConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
