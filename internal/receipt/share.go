package receipt

import (
	"fmt"
	"strings"

	"github.com/uttammasala/billprint/pkg/bill"
)

// ShareLink builds a wa.me link carrying a plain-text bill. A ten digit
// phone gets the business country code prepended.
func (f *Formatter) ShareLink(b *bill.Bill, phone string) string {
	if b == nil {
		b = &bill.Bill{}
	}

	var msg strings.Builder
	msg.WriteString("🧾 *Your Bill* \n")
	for i, item := range b.Items {
		fmt.Fprintf(&msg, "%d. %s%s x %s Kg = %s\n",
			i+1, f.business.Currency, item.Price.String(), item.Weight.String(), f.money(item.Total, 2))
	}
	fmt.Fprintf(&msg, "\n💰 *Total: %s*", f.money(b.Total, 2))

	return "https://wa.me/" + f.sharePhone(phone) + "?text=" + EncodeURIComponent(msg.String())
}

func (f *Formatter) sharePhone(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)

	if len(digits) == 10 {
		return f.business.CountryCode + digits
	}
	return digits
}
