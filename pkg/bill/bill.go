// Package bill defines the bill model consumed by the receipt formatters
package bill

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MissingNumber is printed when a bill carries no number.
const MissingNumber = "N/A"

// Bill is one completed bill. Formatters treat it as read-only.
type Bill struct {
	BillNumber   BillNumber      `json:"billNumber,omitempty"`
	Items        []LineItem      `json:"items"`
	Total        decimal.Decimal `json:"total"`
	CustomerName string          `json:"customerName,omitempty"`
	PhoneNumber  string          `json:"phoneNumber,omitempty"`
}

// LineItem is a single weighed sale. Total is carried, not recomputed.
type LineItem struct {
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Weight decimal.Decimal `json:"weight"`
	Total  decimal.Decimal `json:"total"`
}

// BillNumber accepts either a JSON string or a JSON number.
type BillNumber string

// UnmarshalJSON implements json.Unmarshaler
func (n *BillNumber) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*n = BillNumber(s)
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("billNumber must be a string or number: %w", err)
	}
	*n = BillNumber(num.String())
	return nil
}

// Number returns the display bill number, defaulting to "N/A".
func (b *Bill) Number() string {
	if b == nil {
		return MissingNumber
	}
	n := strings.TrimSpace(string(b.BillNumber))
	if n == "" {
		return MissingNumber
	}
	return n
}

// NewItem builds a line item whose total is price * weight.
func NewItem(name string, price, weight decimal.Decimal) LineItem {
	return LineItem{
		Name:   name,
		Price:  price,
		Weight: weight,
		Total:  price.Mul(weight),
	}
}

// Sum adds up the line item totals. Formatters print Total as given;
// Sum is for callers assembling a bill.
func (b *Bill) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range b.Items {
		sum = sum.Add(item.Total)
	}
	return sum
}
