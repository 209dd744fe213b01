package transport

import "regexp"

// Capabilities reports what the runtime environment can do
type Capabilities interface {
	BluetoothAvailable() bool
	Mobile() bool
}

// StaticCapabilities is a fixed answer, used by the agent and in tests
type StaticCapabilities struct {
	Bluetooth bool
	IsMobile  bool
}

// BluetoothAvailable implements Capabilities
func (c StaticCapabilities) BluetoothAvailable() bool { return c.Bluetooth }

// Mobile implements Capabilities
func (c StaticCapabilities) Mobile() bool { return c.IsMobile }

var mobileAgent = regexp.MustCompile(`(?i)Android|webOS|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini`)

// FromUserAgent classifies a browser by its User-Agent header
func FromUserAgent(userAgent string, bluetooth bool) StaticCapabilities {
	return StaticCapabilities{
		Bluetooth: bluetooth,
		IsMobile:  mobileAgent.MatchString(userAgent),
	}
}
