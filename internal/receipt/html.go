package receipt

import (
	_ "embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/uttammasala/billprint/pkg/bill"
)

//go:embed receipt.html.tmpl
var receiptHTML string

var receiptTemplate = template.Must(template.New("receipt").Parse(receiptHTML))

type htmlView struct {
	Business     bill.Business
	AddressLines []string
	Number       string
	Date         string
	CustomerName string
	PhoneNumber  string
	Items        []htmlRow
	Total        string
	PaperWidth   string
}

type htmlRow struct {
	Name   string
	Qty    string
	Rate   string
	Amount string
}

// RenderHTML renders a full HTML document for the browser print dialog.
// All interpolated text is escaped by html/template. Amounts and the
// total print without decimals.
func (f *Formatter) RenderHTML(b *bill.Bill) (string, error) {
	if b == nil {
		b = &bill.Bill{}
	}

	view := htmlView{
		Business:     f.business,
		AddressLines: f.business.AddressLines(),
		Number:       b.Number(),
		Date:         f.timestamp(),
		CustomerName: b.CustomerName,
		PhoneNumber:  b.PhoneNumber,
		Items:        make([]htmlRow, 0, len(b.Items)),
		Total:        f.money(b.Total, 0),
		PaperWidth:   f.paperWidth,
	}

	for _, item := range b.Items {
		view.Items = append(view.Items, htmlRow{
			Name:   item.Name,
			Qty:    item.Weight.String() + "Kg",
			Rate:   f.business.Currency + item.Price.String(),
			Amount: f.money(item.Total, 0),
		})
	}

	var sb strings.Builder
	if err := receiptTemplate.Execute(&sb, view); err != nil {
		return "", fmt.Errorf("failed to render receipt html: %w", err)
	}

	return sb.String(), nil
}
