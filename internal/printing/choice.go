package printing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/uttammasala/billprint/internal/transport"
)

// Choice selects a formatter and transport pair
type Choice string

const (
	// ChoiceThermal sends the text stream to the RawBT app through an intent URI
	ChoiceThermal Choice = "thermal"
	// ChoicePOS sends ESC/POS bytes over Bluetooth GATT, or to a raw printer
	ChoicePOS Choice = "pos"
	// ChoiceHTML prints the HTML receipt through a print dialog
	ChoiceHTML Choice = "html"
)

// ErrUnknownChoice is returned for a choice outside thermal, pos and html
var ErrUnknownChoice = errors.New("unknown printer choice")

// Choices lists every valid choice
func Choices() []Choice {
	return []Choice{ChoiceThermal, ChoicePOS, ChoiceHTML}
}

// ParseChoice accepts a choice name in any case
func ParseChoice(s string) (Choice, error) {
	c := Choice(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case ChoiceThermal, ChoicePOS, ChoiceHTML:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownChoice, s)
}

// DefaultChoice is thermal on mobile devices and html elsewhere
func DefaultChoice(caps transport.Capabilities) Choice {
	if caps != nil && caps.Mobile() {
		return ChoiceThermal
	}
	return ChoiceHTML
}

// Resolve returns stored when it parses, otherwise the default for caps
func Resolve(stored string, caps transport.Capabilities) Choice {
	if c, err := ParseChoice(stored); err == nil {
		return c
	}
	return DefaultChoice(caps)
}
