// Package receipt renders a bill into the three printable encodings: the
// percent-encoded control text handed to RawBT, raw ESC/POS bytes for
// Bluetooth POS printers, and an HTML page for the browser print dialog.
//
// Formatters are pure. Every call reads the clock once and shares no
// mutable state, so a Formatter may be used from many goroutines.
package receipt

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"

	"github.com/uttammasala/billprint/pkg/bill"
)

const (
	// DefaultDateLayout matches the en-IN locale rendering, e.g. "16/10/2026, 3:04:05 pm".
	DefaultDateLayout = "2/1/2006, 3:04:05 pm"
	// DefaultTimezone is where the shop is.
	DefaultTimezone = "Asia/Kolkata"
	// DefaultPaperWidth is the narrow thermal roll.
	DefaultPaperWidth = "58mm"
)

// Formatter renders bills for a single business identity
type Formatter struct {
	business   bill.Business
	now        func() time.Time
	location   *time.Location
	dateLayout string
	paperWidth string
	codePage   *CodePage
}

// Option configures a Formatter
type Option func(*Formatter)

// WithClock replaces time.Now. Freeze it to get byte-identical output.
func WithClock(now func() time.Time) Option {
	return func(f *Formatter) {
		if now != nil {
			f.now = now
		}
	}
}

// WithLocation sets the zone the render timestamp is shown in
func WithLocation(loc *time.Location) Option {
	return func(f *Formatter) {
		if loc != nil {
			f.location = loc
		}
	}
}

// WithDateLayout sets the time.Format layout of the render timestamp
func WithDateLayout(layout string) Option {
	return func(f *Formatter) {
		if layout != "" {
			f.dateLayout = layout
		}
	}
}

// WithPaperWidth sets the HTML page width ("58mm" or "80mm")
func WithPaperWidth(width string) Option {
	return func(f *Formatter) {
		if width != "" {
			f.paperWidth = width
		}
	}
}

// WithCodePage makes FormatPOS select a printer code table and transcode
// text into it. Nil keeps UTF-8.
func WithCodePage(cp *CodePage) Option {
	return func(f *Formatter) {
		f.codePage = cp
	}
}

// NewFormatter creates a formatter for the given business
func NewFormatter(business bill.Business, opts ...Option) *Formatter {
	if business.Currency == "" {
		business.Currency = bill.DefaultBusiness().Currency
	}

	f := &Formatter{
		business:   business,
		now:        time.Now,
		location:   LoadLocation(DefaultTimezone),
		dateLayout: DefaultDateLayout,
		paperWidth: DefaultPaperWidth,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Business returns the identity this formatter prints
func (f *Formatter) Business() bill.Business {
	return f.business
}

// LoadLocation resolves a zone name, falling back to IST when the zone
// database is not installed.
func LoadLocation(name string) *time.Location {
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	return time.FixedZone("IST", 5*60*60+30*60)
}

// timestamp is the print-moment time; reprints show a new time.
func (f *Formatter) timestamp() string {
	return f.now().In(f.location).Format(f.dateLayout)
}

// money renders an amount with the currency sign and fixed places
func (f *Formatter) money(d decimal.Decimal, places int32) string {
	return f.business.Currency + d.StringFixed(places)
}

// CodePage is a printer character table reachable with ESC t
type CodePage struct {
	Name    string
	Table   byte
	Charmap *charmap.Charmap
}

var codePages = map[string]*CodePage{
	"cp437":  {Name: "cp437", Table: 0, Charmap: charmap.CodePage437},
	"cp850":  {Name: "cp850", Table: 2, Charmap: charmap.CodePage850},
	"cp858":  {Name: "cp858", Table: 19, Charmap: charmap.CodePage858},
	"cp1252": {Name: "cp1252", Table: 16, Charmap: charmap.Windows1252},
}

// ParseCodePage looks up a code page by name. The empty name and "utf8"
// mean no transcoding and return nil.
func ParseCodePage(name string) (*CodePage, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "utf8" || name == "utf-8" {
		return nil, nil
	}

	cp, ok := codePages[name]
	if !ok {
		return nil, fmt.Errorf("unsupported code page: %s (must be cp437, cp850, cp858 or cp1252)", name)
	}
	return cp, nil
}
