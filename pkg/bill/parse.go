package bill

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrMalformed is returned when bill JSON cannot be decoded
var ErrMalformed = errors.New("malformed bill")

// Parse parses a bill from JSON
func Parse(data []byte) (*Bill, error) {
	var b Bill
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if err := Validate(&b); err != nil {
		return nil, err
	}

	return &b, nil
}

// ParseFile parses a bill JSON file from disk
func ParseFile(path string) (*Bill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bill file: %w", err)
	}

	return Parse(data)
}

// ToJSON converts a Bill to indented JSON
func (b *Bill) ToJSON() ([]byte, error) {
	return json.MarshalIndent(b, "", "  ")
}
