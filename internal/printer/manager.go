// Package printer handles raw printer detection, connection and the print
// job queue used when a bill is sent straight to an attached printer
package printer

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/gousb"
	bugserial "go.bug.st/serial"

	"github.com/uttammasala/billprint/internal/registry"
)

// Printer types
const (
	TypeUSB     = "usb"
	TypeSerial  = "serial"
	TypeNetwork = "network"
)

// Manager handles printer detection and management
type Manager struct {
	registry  *registry.Registry
	logger    *slog.Logger
	detectors []Detector
	printers  map[string]*Printer
	mu        sync.RWMutex

	onPrinterAdded   func(*Printer)
	onPrinterRemoved func(string)
}

// Printer represents a detected printer
type Printer struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Device      string `json:"device,omitempty"`
	Baud        int    `json:"baud,omitempty"`
	VID         uint16 `json:"vid,omitempty"`
	PID         uint16 `json:"pid,omitempty"`
	Host        string `json:"host,omitempty"`
	Port        int    `json:"port,omitempty"`
	Name        string `json:"name,omitempty"`
}

// DisplayName returns the custom name, or the description when unnamed
func (p *Printer) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Description
}

// Detector enumerates one class of attached printers
type Detector func() ([]registry.PrinterInfo, error)

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithDetectors replaces the default USB and serial detectors
func WithDetectors(detectors ...Detector) ManagerOption {
	return func(m *Manager) {
		m.detectors = detectors
	}
}

// NewManager creates a new printer manager backed by reg
func NewManager(reg *registry.Registry, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		registry:  reg,
		logger:    logger,
		detectors: []Detector{DetectUSB, DetectSerial},
		printers:  make(map[string]*Printer),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DetectPrinters scans for all available printers. Network printers added
// earlier are kept.
func (m *Manager) DetectPrinters() ([]*Printer, error) {
	var found []registry.PrinterInfo
	for _, detect := range m.detectors {
		infos, err := detect()
		if err != nil {
			m.logger.Warn("printer detection failed", "err", err)
			continue
		}
		found = append(found, infos...)
	}

	entries, err := m.registry.GetAll()
	if err != nil {
		return nil, fmt.Errorf("loading registry: %w", err)
	}
	for _, entry := range entries {
		if entry.Type == TypeNetwork {
			found = append(found, registry.PrinterInfo{
				Type:        entry.Type,
				Host:        entry.Host,
				Port:        entry.Port,
				Description: entry.Description,
			})
		}
	}

	printers := make([]*Printer, 0, len(found))
	current := make(map[string]*Printer, len(found))
	for _, info := range found {
		p, err := m.resolve(info)
		if err != nil {
			return nil, err
		}
		if _, dup := current[p.ID]; dup {
			continue
		}
		current[p.ID] = p
		printers = append(printers, p)
	}

	m.mu.Lock()
	m.printers = current
	m.mu.Unlock()

	return printers, nil
}

// GetPrinter returns a printer by ID
func (m *Manager) GetPrinter(id string) *Printer {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.printers[id]
}

// GetAllPrinters returns all detected printers
func (m *Manager) GetAllPrinters() []*Printer {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Printer, 0, len(m.printers))
	for _, p := range m.printers {
		result = append(result, p)
	}
	return result
}

// SetPrinterName sets a custom name for a printer
func (m *Manager) SetPrinterName(id string, name string) error {
	if err := m.registry.SetPrinterName(id, name); err != nil {
		return err
	}

	m.mu.Lock()
	if printer, exists := m.printers[id]; exists {
		printer.Name = name
	}
	m.mu.Unlock()

	return nil
}

// AddNetworkPrinter manually adds a network printer
func (m *Manager) AddNetworkPrinter(host string, port int, description string) (string, error) {
	if port == 0 {
		port = DefaultNetworkPort
	}
	if description == "" {
		description = fmt.Sprintf("Network: %s:%d", host, port)
	}

	p, err := m.resolve(registry.PrinterInfo{
		Type:        TypeNetwork,
		Host:        host,
		Port:        port,
		Description: description,
	})
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	_, existed := m.printers[p.ID]
	m.printers[p.ID] = p
	added := m.onPrinterAdded
	m.mu.Unlock()

	if !existed && added != nil {
		added(p)
	}
	return p.ID, nil
}

// OnPrinterAdded sets a callback for when a printer is added
func (m *Manager) OnPrinterAdded(callback func(*Printer)) {
	m.mu.Lock()
	m.onPrinterAdded = callback
	m.mu.Unlock()
}

// OnPrinterRemoved sets a callback for when a printer is removed
func (m *Manager) OnPrinterRemoved(callback func(string)) {
	m.mu.Lock()
	m.onPrinterRemoved = callback
	m.mu.Unlock()
}

func (m *Manager) callbacks() (func(*Printer), func(string)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.onPrinterAdded, m.onPrinterRemoved
}

func (m *Manager) resolve(info registry.PrinterInfo) (*Printer, error) {
	id, err := m.registry.GetPrinterID(info)
	if err != nil {
		return nil, fmt.Errorf("registering printer: %w", err)
	}
	return &Printer{
		ID:          id,
		Type:        info.Type,
		Description: info.Description,
		Device:      info.Device,
		VID:         info.VID,
		PID:         info.PID,
		Host:        info.Host,
		Port:        info.Port,
		Name:        m.registry.GetPrinterName(id),
	}, nil
}

// DetectUSB finds USB printer-class devices using libusb
func DetectUSB() ([]registry.PrinterInfo, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	devices, err := ctx.OpenDevices(isPrinterClass)
	// OpenDevices may return devices alongside an error for ones it could not open
	defer func() {
		for _, dev := range devices {
			dev.Close()
		}
	}()
	if err != nil && len(devices) == 0 {
		return nil, fmt.Errorf("enumerating USB devices: %w", err)
	}

	infos := make([]registry.PrinterInfo, 0, len(devices))
	for _, dev := range devices {
		desc := dev.Desc
		manufacturer, _ := dev.Manufacturer()
		product, _ := dev.Product()

		description := fmt.Sprintf("USB: %04X:%04X", uint16(desc.Vendor), uint16(desc.Product))
		if manufacturer != "" || product != "" {
			description = fmt.Sprintf("USB: %s (%04X:%04X)",
				strings.TrimSpace(manufacturer+" "+product), uint16(desc.Vendor), uint16(desc.Product))
		}

		infos = append(infos, registry.PrinterInfo{
			Type:        TypeUSB,
			VID:         uint16(desc.Vendor),
			PID:         uint16(desc.Product),
			Description: description,
		})
	}
	return infos, nil
}

func isPrinterClass(desc *gousb.DeviceDesc) bool {
	if desc.Class == gousb.ClassPrinter {
		return true
	}
	for _, cfg := range desc.Configs {
		for _, iface := range cfg.Interfaces {
			for _, alt := range iface.AltSettings {
				if alt.Class == gousb.ClassPrinter {
					return true
				}
			}
		}
	}
	return false
}

// serialSkip lists port names that are never printers
var serialSkip = []string{"Bluetooth-Incoming", "Modem", "DialIn", "Callout", "KeySerial", "debug-console", "wlan-debug"}

// DetectSerial lists serial ports that could carry a printer, including
// paired Bluetooth SPP printers exposed as rfcomm or cu.* ports
func DetectSerial() ([]registry.PrinterInfo, error) {
	ports, err := bugserial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("listing serial ports: %w", err)
	}
	return serialInfos(ports), nil
}

func serialInfos(ports []string) []registry.PrinterInfo {
	infos := make([]registry.PrinterInfo, 0, len(ports))
	for _, port := range ports {
		if skipSerial(port) {
			continue
		}
		infos = append(infos, registry.PrinterInfo{
			Type:        TypeSerial,
			Device:      port,
			Description: fmt.Sprintf("Serial: %s", filepath.Base(port)),
		})
	}
	return infos
}

func skipSerial(port string) bool {
	// The tty.* twin of each cu.* port blocks on open on macOS
	if strings.HasPrefix(port, "/dev/tty.") {
		return true
	}
	for _, pattern := range serialSkip {
		if strings.Contains(port, pattern) {
			return true
		}
	}
	return false
}
