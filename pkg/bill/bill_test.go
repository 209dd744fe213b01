package bill

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParse_NumericBillNumber(t *testing.T) {
	b, err := Parse([]byte(`{"billNumber": 7, "items": [{"name": "Methi", "price": 150, "weight": 2, "total": 300}], "total": 300}`))
	if err != nil {
		t.Fatalf("Expected valid bill, got error: %v", err)
	}

	if b.Number() != "7" {
		t.Errorf("Expected bill number 7, got %q", b.Number())
	}

	if len(b.Items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(b.Items))
	}

	if !b.Items[0].Total.Equal(decimal.NewFromInt(300)) {
		t.Errorf("Expected item total 300, got %s", b.Items[0].Total)
	}
}

func TestParse_StringBillNumber(t *testing.T) {
	b, err := Parse([]byte(`{"billNumber": "UM-0042", "items": [], "total": "0"}`))
	if err != nil {
		t.Fatalf("Expected valid bill, got error: %v", err)
	}

	if b.Number() != "UM-0042" {
		t.Errorf("Expected bill number UM-0042, got %q", b.Number())
	}
}

func TestNumber_Defaults(t *testing.T) {
	tests := []struct {
		name string
		bill *Bill
	}{
		{"nil bill", nil},
		{"empty number", &Bill{}},
		{"blank number", &Bill{BillNumber: "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.bill.Number(); got != MissingNumber {
				t.Errorf("Expected %q, got %q", MissingNumber, got)
			}
		})
	}
}

func TestParse_NullFields(t *testing.T) {
	b, err := Parse([]byte(`{"billNumber": null, "items": [], "total": 0, "customerName": null, "phoneNumber": null}`))
	if err != nil {
		t.Fatalf("Expected valid bill, got error: %v", err)
	}

	if b.CustomerName != "" || b.PhoneNumber != "" {
		t.Errorf("Expected empty customer fields, got %q / %q", b.CustomerName, b.PhoneNumber)
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	if _, err := Parse([]byte(`{"items": [`)); err == nil {
		t.Error("Expected error for truncated JSON")
	}
}

func TestParse_BadBillNumber(t *testing.T) {
	if _, err := Parse([]byte(`{"billNumber": {"x": 1}, "items": []}`)); err == nil {
		t.Error("Expected error for object bill number")
	}
}

func TestValidate_NegativeAmounts(t *testing.T) {
	tests := []struct {
		name string
		bill *Bill
	}{
		{"negative total", &Bill{Total: decimal.NewFromInt(-1)}},
		{"negative price", &Bill{Items: []LineItem{{Name: "Jeera", Price: decimal.NewFromInt(-5)}}}},
		{"negative weight", &Bill{Items: []LineItem{{Name: "Jeera", Weight: decimal.NewFromInt(-1)}}}},
		{"negative item total", &Bill{Items: []LineItem{{Name: "Jeera", Total: decimal.NewFromInt(-1)}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.bill)
			if !errors.Is(err, ErrNegativeAmount) {
				t.Errorf("Expected ErrNegativeAmount, got %v", err)
			}
		})
	}
}

func TestValidate_Nil(t *testing.T) {
	if err := Validate(nil); !errors.Is(err, ErrNilBill) {
		t.Errorf("Expected ErrNilBill, got %v", err)
	}
}

func TestValidate_MismatchedTotalAccepted(t *testing.T) {
	b := &Bill{
		Items: []LineItem{NewItem("Haldi", decimal.NewFromInt(200), decimal.NewFromFloat(0.5))},
		Total: decimal.NewFromInt(999),
	}

	if err := Validate(b); err != nil {
		t.Errorf("Expected mismatched total to be accepted, got %v", err)
	}
}

func TestNewItemAndSum(t *testing.T) {
	b := &Bill{Items: []LineItem{
		NewItem("Methi", decimal.NewFromInt(150), decimal.NewFromInt(2)),
		NewItem("Haldi", decimal.NewFromInt(200), decimal.NewFromFloat(0.5)),
	}}

	if !b.Sum().Equal(decimal.NewFromInt(400)) {
		t.Errorf("Expected sum 400, got %s", b.Sum())
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bill.json")
	if err := os.WriteFile(path, []byte(`{"billNumber": 12, "items": [], "total": 0}`), 0644); err != nil {
		t.Fatalf("Failed to write bill: %v", err)
	}

	b, err := ParseFile(path)
	if err != nil {
		t.Fatalf("Failed to parse bill file: %v", err)
	}
	if b.Number() != "12" {
		t.Errorf("Expected bill number 12, got %q", b.Number())
	}

	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadBusiness(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shop.toml")
	config := `name = "Test Spices"
website = "example.in"
address = """
Line One
Line Two
"""
`
	if err := os.WriteFile(path, []byte(config), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	b, err := LoadBusiness(path)
	if err != nil {
		t.Fatalf("Failed to load business: %v", err)
	}

	if b.Name != "Test Spices" {
		t.Errorf("Expected name from file, got %q", b.Name)
	}
	if b.Phone != DefaultBusiness().Phone {
		t.Errorf("Expected default phone to survive, got %q", b.Phone)
	}
	if b.Currency != "₹" {
		t.Errorf("Expected default currency, got %q", b.Currency)
	}

	lines := b.AddressLines()
	if len(lines) != 2 || lines[0] != "Line One" || lines[1] != "Line Two" {
		t.Errorf("Unexpected address lines: %v", lines)
	}
}

func TestLoadBusiness_EmptyPath(t *testing.T) {
	b, err := LoadBusiness("")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if b != DefaultBusiness() {
		t.Errorf("Expected defaults, got %+v", b)
	}
}
