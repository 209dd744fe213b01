package receipt

import "github.com/uttammasala/billprint/pkg/bill"

// PreviewLine is one printed line of the POS layout, for image previews
type PreviewLine struct {
	Text  string
	Align string // left, center, right
	Bold  bool
	Scale float64
}

// PreviewLines mirrors the line structure of FormatPOS without control
// bytes.
func (f *Formatter) PreviewLines(b *bill.Bill) []PreviewLine {
	if b == nil {
		b = &bill.Bill{}
	}
	sep := separator(posWidth)

	lines := []PreviewLine{
		{Text: f.business.Name, Align: "center", Bold: true, Scale: 2},
		{Align: "center"},
	}
	add := func(text, align string, bold bool) {
		lines = append(lines, PreviewLine{Text: text, Align: align, Bold: bold, Scale: 1})
	}

	for _, line := range f.business.AddressLines() {
		add(line, "center", false)
	}
	if f.business.Phone != "" {
		add(f.business.Phone, "center", false)
	}
	if f.business.Website != "" {
		add(f.business.Website, "center", false)
	}
	add(sep, "center", false)

	add("Bill No: "+b.Number(), "left", true)
	add("Date: "+f.timestamp(), "left", false)
	if b.CustomerName != "" {
		add("Customer: "+b.CustomerName, "left", false)
	}
	if b.PhoneNumber != "" {
		add("Phone: "+b.PhoneNumber, "left", false)
	}

	add(sep, "left", false)
	add(posColumns("Item", "Price", "Qty", "Amount"), "left", true)
	add(sep, "left", false)
	for _, item := range b.Items {
		add(f.posRow(item), "left", false)
	}
	add(sep, "left", false)

	lines = append(lines, PreviewLine{Text: "TOTAL: " + f.money(b.Total, 2), Align: "right", Bold: true, Scale: 1.5})
	add(sep, "center", false)
	add("Thank you for shopping with us!", "center", false)
	add(f.business.Name, "center", false)

	return lines
}
