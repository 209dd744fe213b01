package bill

import (
	"errors"
	"fmt"
)

var (
	// ErrNilBill is returned when no bill was supplied.
	ErrNilBill = errors.New("bill is required")
	// ErrNegativeAmount is returned for a negative price, weight or total.
	ErrNegativeAmount = errors.New("amount must not be negative")
)

// Validate checks a bill at the ingestion boundary. It rejects only what
// cannot be printed sensibly; empty items, a missing number and a total
// that differs from the item sum are all accepted.
func Validate(b *Bill) error {
	if b == nil {
		return ErrNilBill
	}

	if b.Total.IsNegative() {
		return fmt.Errorf("total: %w", ErrNegativeAmount)
	}

	for i, item := range b.Items {
		if item.Price.IsNegative() {
			return fmt.Errorf("items[%d] '%s': price: %w", i, item.Name, ErrNegativeAmount)
		}
		if item.Weight.IsNegative() {
			return fmt.Errorf("items[%d] '%s': weight: %w", i, item.Name, ErrNegativeAmount)
		}
		if item.Total.IsNegative() {
			return fmt.Errorf("items[%d] '%s': total: %w", i, item.Name, ErrNegativeAmount)
		}
	}

	return nil
}
