package bill

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Business is the shop identity printed on every receipt
type Business struct {
	Name        string `toml:"name" json:"name"`
	Address     string `toml:"address" json:"address"` // may span several lines
	Phone       string `toml:"phone" json:"phone"`
	Website     string `toml:"website" json:"website,omitempty"`
	Currency    string `toml:"currency" json:"currency"`
	CountryCode string `toml:"country_code" json:"country_code"` // dialing prefix for share links
	Logo        string `toml:"logo" json:"logo,omitempty"`        // image path for previews
}

// DefaultBusiness returns the built-in shop identity
func DefaultBusiness() Business {
	return Business{
		Name:        "Uttam Masala",
		Address:     "Ahmedabad-Kalol Highway\nShertha, Gandhinagar-382423",
		Phone:       "M-98980 70258",
		Currency:    "₹",
		CountryCode: "91",
	}
}

// LoadBusiness reads a TOML file over the defaults. Keys missing from the
// file keep their default value.
func LoadBusiness(path string) (Business, error) {
	b := DefaultBusiness()
	if path == "" {
		return b, nil
	}

	if _, err := toml.DecodeFile(path, &b); err != nil {
		return Business{}, fmt.Errorf("failed to load business config: %w", err)
	}

	return b, nil
}

// AddressLines splits Address into its non-empty lines
func (b Business) AddressLines() []string {
	var lines []string
	for _, line := range strings.Split(b.Address, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
