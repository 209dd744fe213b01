package receipt

import (
	"strings"
	"unicode/utf8"
)

// Widths are in runes, so the rupee sign and Devanagari names count once
// per code point.

func padRight(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

func padLeft(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return strings.Repeat(" ", width-n) + s
}

// truncate keeps at most width runes
func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	return string([]rune(s)[:width])
}

// fitColumn truncates or pads s to exactly width runes
func fitColumn(s string, width int) string {
	return padRight(truncate(s, width), width)
}

// abbreviate shortens names longer than width-1 to width-1 runes plus ".",
// and pads shorter names to width.
func abbreviate(s string, width int) string {
	if utf8.RuneCountInString(s) > width-1 {
		return truncate(s, width-1) + "."
	}
	return padRight(s, width)
}

func separator(width int) string {
	return strings.Repeat("-", width)
}
