package receipt

import (
	"fmt"

	"github.com/uttammasala/billprint/internal/escpos"
	"github.com/uttammasala/billprint/pkg/bill"
)

// textWidth is the separator width of the RawBT receipt.
const textWidth = 30

// FormatText renders the RawBT receipt and percent-encodes it for an
// intent URI.
func (f *Formatter) FormatText(b *bill.Bill) string {
	return EncodeURIComponent(string(f.TextCommands(b)))
}

// TextCommands is the RawBT receipt before percent-encoding
func (f *Formatter) TextCommands(b *bill.Bill) []byte {
	if b == nil {
		b = &bill.Bill{}
	}
	sep := separator(textWidth)

	e := escpos.NewEncoder()
	e.Initialize()
	e.SetAlignment("center")
	e.SetPrintMode(escpos.ModeDoubleHeight)
	e.WriteText(f.business.Name + "\n\n")

	e.SetPrintMode(escpos.ModeSmall)
	for _, line := range f.business.AddressLines() {
		e.WriteLine(line)
	}
	if f.business.Phone != "" {
		e.WriteLine(f.business.Phone)
	}

	e.WriteLine(sep)
	e.SetPrintMode(escpos.ModeBold)
	e.WriteLine("Bill No. " + b.Number() + " ")
	e.SetPrintMode(escpos.ModeNormal)
	e.WriteLine(sep)
	e.WriteLine("Date: " + f.timestamp())
	e.WriteLine(sep)

	if b.CustomerName != "" {
		e.WriteLine("Name: " + b.CustomerName)
	}
	if b.PhoneNumber != "" {
		e.WriteLine("Phone: " + b.PhoneNumber)
	}
	if b.CustomerName != "" || b.PhoneNumber != "" {
		e.WriteLine(sep)
	}

	e.SetPrintMode(escpos.ModeBold)
	e.WriteText("Items:\n\n")
	e.SetPrintMode(escpos.ModeNormal)

	for i, item := range b.Items {
		e.WriteLine(f.textRow(i, item))
		// a short blank line between rows
		e.SetPrintMode(escpos.ModeSmall)
		e.LineFeed()
		e.SetPrintMode(escpos.ModeNormal)
	}

	e.SetAlignment("center")
	e.SetPrintMode(escpos.ModeNormal)
	e.WriteLine(sep)
	e.SetPrintMode(escpos.ModeDoubleHeight)
	e.WriteLine("Total: " + f.money(b.Total, 2))
	e.SetPrintMode(escpos.ModeNormal)
	e.WriteLine(sep)
	e.WriteLine("Thank You! 😊")
	e.WriteText(sep + "\n\n")

	return e.GetBytes()
}

// textRow lays out "1.   Methi        ₹150 x    2 Kg = ₹300.00    "
func (f *Formatter) textRow(index int, item bill.LineItem) string {
	return fmt.Sprintf("%s  %s %s x %s = %s    ",
		padRight(fmt.Sprintf("%d.", index+1), 3),
		abbreviate(item.Name, 12),
		padLeft(f.business.Currency+item.Price.String(), 4),
		padLeft(item.Weight.String()+" Kg", 7),
		padLeft(f.money(item.Total, 2), 6),
	)
}
