package registry

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTemp(t *testing.T) (*Registry, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.db")
	reg, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open registry: %v", err)
	}
	t.Cleanup(func() { reg.Close() })
	return reg, path
}

func TestOpen(t *testing.T) {
	reg, _ := openTemp(t)
	if reg == nil {
		t.Fatal("Registry is nil")
	}
}

func TestGetPrinterID_USB(t *testing.T) {
	reg, _ := openTemp(t)

	info := PrinterInfo{
		Type:        "usb",
		VID:         0x0416,
		PID:         0x5011,
		Description: "POS-58 Thermal",
	}

	id1, err := reg.GetPrinterID(info)
	if err != nil {
		t.Fatalf("GetPrinterID: %v", err)
	}
	if id1 == "" {
		t.Error("Expected non-empty printer ID")
	}

	id2, _ := reg.GetPrinterID(info)
	if id1 != id2 {
		t.Errorf("Expected same ID for same printer: %s != %s", id1, id2)
	}
}

func TestGetPrinterID_SerialAndNetwork(t *testing.T) {
	reg, _ := openTemp(t)

	serialID, _ := reg.GetPrinterID(PrinterInfo{Type: "serial", Device: "/dev/rfcomm0", Description: "BT Serial"})
	netID, _ := reg.GetPrinterID(PrinterInfo{Type: "network", Host: "192.168.1.50", Port: 9100, Description: "Counter"})

	if serialID == "" || netID == "" {
		t.Fatal("Expected non-empty printer IDs")
	}
	if serialID == netID {
		t.Error("Expected distinct IDs for distinct printers")
	}
}

func TestGetPrinterID_DescriptionFallback(t *testing.T) {
	reg, _ := openTemp(t)

	a, _ := reg.GetPrinterID(PrinterInfo{Type: "usb", Description: "Unknown A"})
	b, _ := reg.GetPrinterID(PrinterInfo{Type: "usb", Description: "Unknown B"})
	again, _ := reg.GetPrinterID(PrinterInfo{Type: "usb", Description: "Unknown A"})

	if a == b {
		t.Error("Expected different IDs for different descriptions")
	}
	if a != again {
		t.Error("Expected stable ID for same description")
	}
}

func TestSetAndGetPrinterName(t *testing.T) {
	reg, _ := openTemp(t)

	id, _ := reg.GetPrinterID(PrinterInfo{Type: "usb", VID: 0x04B8, PID: 0x0E15, Description: "Test Printer"})

	if err := reg.SetPrinterName(id, "Billing Counter"); err != nil {
		t.Fatalf("SetPrinterName: %v", err)
	}

	if name := reg.GetPrinterName(id); name != "Billing Counter" {
		t.Errorf("Expected 'Billing Counter', got '%s'", name)
	}
}

func TestSetPrinterName_Unknown(t *testing.T) {
	reg, _ := openTemp(t)

	err := reg.SetPrinterName("missing", "x")
	if !errors.Is(err, ErrPrinterNotFound) {
		t.Errorf("Expected ErrPrinterNotFound, got %v", err)
	}
	if name := reg.GetPrinterName("missing"); name != "" {
		t.Errorf("Expected empty name, got '%s'", name)
	}
}

func TestGetPrinterInfo(t *testing.T) {
	reg, _ := openTemp(t)

	id, _ := reg.GetPrinterID(PrinterInfo{Type: "usb", VID: 0x04B8, PID: 0x0E15, Description: "Test Printer"})
	reg.SetPrinterName(id, "Front Counter")

	entry := reg.GetPrinterInfo(id)
	if entry == nil {
		t.Fatal("Expected printer info, got nil")
	}
	if entry.Type != "usb" {
		t.Errorf("Expected type 'usb', got '%s'", entry.Type)
	}
	if entry.VID != 0x04B8 {
		t.Errorf("Expected VID 0x04B8, got 0x%04X", entry.VID)
	}
	if entry.Name != "Front Counter" {
		t.Errorf("Expected name 'Front Counter', got '%s'", entry.Name)
	}
}

func TestRemovePrinter(t *testing.T) {
	reg, _ := openTemp(t)

	id, _ := reg.GetPrinterID(PrinterInfo{Type: "usb", VID: 0x1234, PID: 0x5678, Description: "Test"})

	if err := reg.RemovePrinter(id); err != nil {
		t.Fatalf("RemovePrinter: %v", err)
	}
	if entry := reg.GetPrinterInfo(id); entry != nil {
		t.Error("Expected nil after removal")
	}
	if err := reg.RemovePrinter(id); !errors.Is(err, ErrPrinterNotFound) {
		t.Errorf("Expected ErrPrinterNotFound on second removal, got %v", err)
	}
}

func TestPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")

	reg1, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	info := PrinterInfo{Type: "usb", VID: 0xAAAA, PID: 0xBBBB, Description: "Persistent Printer"}
	id1, _ := reg1.GetPrinterID(info)
	reg1.SetPrinterName(id1, "Persistent Name")
	reg1.SetPreferredChoice("pos")
	reg1.Close()

	// Reopen, as after an app restart
	reg2, err := Open(path)
	if err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	defer reg2.Close()

	id2, _ := reg2.GetPrinterID(info)
	if id1 != id2 {
		t.Errorf("Expected same ID after reload: %s != %s", id1, id2)
	}
	if name := reg2.GetPrinterName(id2); name != "Persistent Name" {
		t.Errorf("Expected name to persist, got '%s'", name)
	}
	if choice, _ := reg2.PreferredChoice(); choice != "pos" {
		t.Errorf("Expected choice 'pos' to persist, got '%s'", choice)
	}
}

func TestGetAll(t *testing.T) {
	reg, _ := openTemp(t)

	reg.GetPrinterID(PrinterInfo{Type: "usb", VID: 0x1111, PID: 0x2222, Description: "Printer 1"})
	reg.GetPrinterID(PrinterInfo{Type: "serial", Device: "/dev/tty1", Description: "Printer 2"})

	all, err := reg.GetAll()
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 printers, got %d", len(all))
	}
	if _, ok := all["serial:/dev/tty1"]; !ok {
		t.Error("Expected serial printer keyed by device")
	}
}

func TestPreferredChoice_Unset(t *testing.T) {
	reg, _ := openTemp(t)

	choice, err := reg.PreferredChoice()
	if err != nil {
		t.Fatalf("PreferredChoice: %v", err)
	}
	if choice != "" {
		t.Errorf("Expected empty choice, got '%s'", choice)
	}
}
