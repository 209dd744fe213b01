package receipt

import (
	"fmt"

	"golang.org/x/text/encoding"

	"github.com/uttammasala/billprint/internal/escpos"
	"github.com/uttammasala/billprint/pkg/bill"
)

// posWidth is the separator width of the 42-column POS receipt.
const posWidth = 42

// FormatPOS renders raw ESC/POS bytes for a Bluetooth POS printer. Item
// amounts print without decimals; the total keeps two.
func (f *Formatter) FormatPOS(b *bill.Bill) []byte {
	if b == nil {
		b = &bill.Bill{}
	}
	sep := separator(posWidth)

	e := escpos.NewEncoder()
	e.Initialize()
	if f.codePage != nil {
		e.SelectCodeTable(f.codePage.Table)
		e.SetTextEncoding(encoding.ReplaceUnsupported(f.codePage.Charmap.NewEncoder()))
	}

	e.SetAlignment("center")
	e.SetBold(true)
	e.SetTextSize(2, 2)
	e.WriteLine(f.business.Name)
	e.LineFeed()

	e.SetTextSize(1, 1)
	e.SetBold(false)
	for _, line := range f.business.AddressLines() {
		e.WriteLine(line)
	}
	if f.business.Phone != "" {
		e.WriteLine(f.business.Phone)
	}
	if f.business.Website != "" {
		e.WriteLine(f.business.Website)
	}
	e.WriteLine(sep)

	e.SetAlignment("left")
	e.SetBold(true)
	e.WriteLine("Bill No: " + b.Number())
	e.SetBold(false)
	e.WriteLine("Date: " + f.timestamp())
	if b.CustomerName != "" {
		e.WriteLine("Customer: " + b.CustomerName)
	}
	if b.PhoneNumber != "" {
		e.WriteLine("Phone: " + b.PhoneNumber)
	}

	e.WriteLine(sep)
	e.SetBold(true)
	e.WriteLine(posColumns("Item", "Price", "Qty", "Amount"))
	e.SetBold(false)
	e.WriteLine(sep)

	for _, item := range b.Items {
		e.WriteLine(f.posRow(item))
	}

	e.WriteLine(sep)
	e.SetAlignment("right")
	e.SetBold(true)
	e.SetTextSize(1, 2)
	e.WriteLine("TOTAL: " + f.money(b.Total, 2))
	e.SetTextSize(1, 1)
	e.SetBold(false)

	e.SetAlignment("center")
	e.WriteLine(sep)
	e.WriteLine("Thank you for shopping with us!")
	e.WriteLine(f.business.Name)
	e.Feed(2)
	e.PartialCut()

	return e.GetBytes()
}

func (f *Formatter) posRow(item bill.LineItem) string {
	return posColumns(
		fitColumn(item.Name, 12),
		f.business.Currency+item.Price.String(),
		item.Weight.String()+"Kg",
		f.money(item.Total, 0),
	)
}

func posColumns(name, price, qty, amount string) string {
	return fmt.Sprintf("%s %s %s %s",
		padRight(name, 12),
		padRight(price, 6),
		padRight(qty, 6),
		padRight(amount, 8),
	)
}
