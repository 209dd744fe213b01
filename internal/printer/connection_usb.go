package printer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/gousb"
)

var errNoOutEndpoint = errors.New("no OUT endpoint")

// USBConnection represents a USB printer connection
type USBConnection struct {
	ctx      *gousb.Context
	device   *gousb.Device
	release  func()
	endpoint *gousb.OutEndpoint
	mu       sync.Mutex
}

// ConnectUSB connects to a USB printer. Requires libusb.
func ConnectUSB(vid, pid uint16) (*USBConnection, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("opening USB device %04X:%04X: %w", vid, pid, err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("USB device not found: %04X:%04X", vid, pid)
	}
	dev.SetAutoDetach(true)

	conn := &USBConnection{ctx: ctx, device: dev}

	// Most printers expose the bulk OUT endpoint on interface 0
	if iface, done, err := dev.DefaultInterface(); err == nil {
		if ep, err := outEndpoint(iface); err == nil {
			conn.release, conn.endpoint = done, ep
			return conn, nil
		}
		done()
	}

	var lastErr error = errNoOutEndpoint
	for _, cfgDesc := range dev.Desc.Configs {
		cfg, err := dev.Config(cfgDesc.Number)
		if err != nil {
			lastErr = fmt.Errorf("setting config %d: %w", cfgDesc.Number, err)
			continue
		}

		for _, ifaceDesc := range cfgDesc.Interfaces {
			iface, err := cfg.Interface(ifaceDesc.Number, 0)
			if err != nil {
				lastErr = fmt.Errorf("claiming interface %d: %w", ifaceDesc.Number, err)
				continue
			}
			ep, err := outEndpoint(iface)
			if err != nil {
				iface.Close()
				lastErr = err
				continue
			}
			conn.endpoint = ep
			conn.release = func() {
				iface.Close()
				cfg.Close()
			}
			return conn, nil
		}
		cfg.Close()
	}

	dev.Close()
	ctx.Close()
	return nil, fmt.Errorf("connecting to USB printer %04X:%04X: %w", vid, pid, lastErr)
}

func outEndpoint(iface *gousb.Interface) (*gousb.OutEndpoint, error) {
	for _, epDesc := range iface.Setting.Endpoints {
		if epDesc.Direction != gousb.EndpointDirectionOut {
			continue
		}
		if ep, err := iface.OutEndpoint(epDesc.Number); err == nil {
			return ep, nil
		}
	}
	return nil, errNoOutEndpoint
}

// Write sends data to the USB printer
func (c *USBConnection) Write(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.endpoint.Write(data)
}

// Close closes the USB connection
func (c *USBConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.release != nil {
		c.release()
		c.release = nil
	}
	var err error
	if c.device != nil {
		err = c.device.Close()
		c.device = nil
	}
	if c.ctx != nil {
		c.ctx.Close()
		c.ctx = nil
	}
	return err
}
