// Package registry persists printer identities, custom names and the
// preferred printer choice
package registry

import (
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const (
	printersBucket = "printers"
	settingsBucket = "settings"

	choiceKey = "printer_choice"
)

// ErrPrinterNotFound is returned for an unknown printer ID
var ErrPrinterNotFound = errors.New("printer not found")

// Registry manages printer identities and settings in a bbolt file
type Registry struct {
	db *bbolt.DB
}

// PrinterEntry stores persistent information about a printer
type PrinterEntry struct {
	ID          string `json:"id"`
	IdentityKey string `json:"identity_key"`
	Type        string `json:"type"` // usb, serial, network
	VID         uint16 `json:"vid,omitempty"`
	PID         uint16 `json:"pid,omitempty"`
	Device      string `json:"device,omitempty"`
	Host        string `json:"host,omitempty"`
	Port        int    `json:"port,omitempty"`
	Description string `json:"description"`
	Name        string `json:"name,omitempty"` // Custom user-set name
}

// PrinterInfo represents basic printer information for detection
type PrinterInfo struct {
	Type        string
	Description string
	Device      string
	VID         uint16
	PID         uint16
	Host        string
	Port        int
}

// Open opens or creates the registry database
func Open(path string) (*Registry, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening registry: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{printersBucket, settingsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Registry{db: db}, nil
}

// Close closes the database
func (r *Registry) Close() error {
	return r.db.Close()
}

// GetPrinterID gets or creates a persistent ID for a printer
func (r *Registry) GetPrinterID(info PrinterInfo) (string, error) {
	key := []byte(generateIdentityKey(info))
	var id string

	err := r.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(printersBucket))

		if data := bucket.Get(key); data != nil {
			var entry PrinterEntry
			if err := json.Unmarshal(data, &entry); err != nil {
				return fmt.Errorf("unmarshaling printer: %w", err)
			}
			id = entry.ID
			return nil
		}

		entry := PrinterEntry{
			ID:          uuid.New().String(),
			IdentityKey: string(key),
			Type:        info.Type,
			VID:         info.VID,
			PID:         info.PID,
			Device:      info.Device,
			Host:        info.Host,
			Port:        info.Port,
			Description: info.Description,
		}
		id = entry.ID

		return putEntry(bucket, &entry)
	})
	if err != nil {
		return "", err
	}

	return id, nil
}

// GetPrinterName gets the custom name for a printer, or empty string if not set
func (r *Registry) GetPrinterName(printerID string) string {
	if entry := r.GetPrinterInfo(printerID); entry != nil {
		return entry.Name
	}
	return ""
}

// SetPrinterName sets a custom name for a printer
func (r *Registry) SetPrinterName(printerID string, name string) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(printersBucket))

		entry, err := findByID(bucket, printerID)
		if err != nil {
			return err
		}

		entry.Name = name
		return putEntry(bucket, entry)
	})
}

// GetPrinterInfo gets all stored information for a printer
func (r *Registry) GetPrinterInfo(printerID string) *PrinterEntry {
	var entry *PrinterEntry
	err := r.db.View(func(tx *bbolt.Tx) error {
		var err error
		entry, err = findByID(tx.Bucket([]byte(printersBucket)), printerID)
		return err
	})
	if err != nil {
		return nil
	}
	return entry
}

// RemovePrinter removes a printer from the registry
func (r *Registry) RemovePrinter(printerID string) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(printersBucket))

		entry, err := findByID(bucket, printerID)
		if err != nil {
			return err
		}
		return bucket.Delete([]byte(entry.IdentityKey))
	})
}

// GetAll returns all registered printers keyed by identity key
func (r *Registry) GetAll() (map[string]*PrinterEntry, error) {
	result := make(map[string]*PrinterEntry)
	err := r.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(printersBucket)).ForEach(func(k, v []byte) error {
			var entry PrinterEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("unmarshaling printer: %w", err)
			}
			result[string(k)] = &entry
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PreferredChoice returns the stored printer choice, or "" when unset
func (r *Registry) PreferredChoice() (string, error) {
	var choice string
	err := r.db.View(func(tx *bbolt.Tx) error {
		choice = string(tx.Bucket([]byte(settingsBucket)).Get([]byte(choiceKey)))
		return nil
	})
	return choice, err
}

// SetPreferredChoice stores the printer choice
func (r *Registry) SetPreferredChoice(choice string) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(settingsBucket)).Put([]byte(choiceKey), []byte(choice))
	})
}

func findByID(bucket *bbolt.Bucket, printerID string) (*PrinterEntry, error) {
	var found *PrinterEntry
	err := bucket.ForEach(func(k, v []byte) error {
		if found != nil {
			return nil
		}
		var entry PrinterEntry
		if err := json.Unmarshal(v, &entry); err != nil {
			return fmt.Errorf("unmarshaling printer: %w", err)
		}
		if entry.ID == printerID {
			found = &entry
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrPrinterNotFound, printerID)
	}
	return found, nil
}

func putEntry(bucket *bbolt.Bucket, entry *PrinterEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling printer: %w", err)
	}
	return bucket.Put([]byte(entry.IdentityKey), data)
}

// generateIdentityKey creates a unique key for a printer based on its characteristics
func generateIdentityKey(info PrinterInfo) string {
	switch info.Type {
	case "usb":
		if info.VID != 0 && info.PID != 0 {
			return fmt.Sprintf("usb:%04X:%04X", info.VID, info.PID)
		}
	case "serial":
		if info.Device != "" {
			return fmt.Sprintf("serial:%s", info.Device)
		}
	case "network":
		if info.Host != "" {
			return fmt.Sprintf("network:%s:%d", info.Host, info.Port)
		}
	}

	// Fallback: hash the description
	hash := md5.Sum([]byte(info.Description))
	return fmt.Sprintf("hash:%x", hash)
}
