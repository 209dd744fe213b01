package receipt

import "strings"

const (
	// IntentScheme is the scheme RawBT registers for print payloads.
	IntentScheme = "rawbt"
	// IntentPackage is the RawBT driver app.
	IntentPackage = "ru.a402d.rawbtprinter"
)

const upperhex = "0123456789ABCDEF"

// EncodeURIComponent percent-encodes every byte except the unreserved set
// A-Z a-z 0-9 - _ . ! ~ * ' ( ), the same output a browser produces. Control
// bytes and multi-byte UTF-8 sequences are escaped byte by byte.
func EncodeURIComponent(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) * 3)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(upperhex[c>>4])
		sb.WriteByte(upperhex[c&0x0F])
	}

	return sb.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}

// IntentURI wraps an encoded payload in an Android intent URI that
// resolves to the RawBT app.
func IntentURI(payload string) string {
	return "intent:" + payload + "#Intent;scheme=" + IntentScheme + ";package=" + IntentPackage + ";end;"
}
