// Package escpos builds ESC/POS command streams
package escpos

import (
	"bytes"

	"golang.org/x/text/encoding"
)

// ESC/POS commands
const (
	ESC byte = 0x1B
	GS  byte = 0x1D
	LF  byte = 0x0A
)

// Print mode bits for ESC !
const (
	ModeNormal       byte = 0x00
	ModeSmall        byte = 0x01 // font B
	ModeBold         byte = 0x08
	ModeDoubleHeight byte = 0x10
	ModeDoubleWidth  byte = 0x20
)

// Encoder accumulates ESC/POS commands and text
type Encoder struct {
	buffer *bytes.Buffer
	text   *encoding.Encoder
}

// NewEncoder creates a new ESC/POS encoder that writes text as UTF-8
func NewEncoder() *Encoder {
	return &Encoder{
		buffer: new(bytes.Buffer),
	}
}

// SetTextEncoding transcodes subsequent text through enc. A nil enc
// restores raw UTF-8.
func (e *Encoder) SetTextEncoding(enc *encoding.Encoder) {
	e.text = enc
}

// Initialize sends ESC @
func (e *Encoder) Initialize() {
	e.buffer.WriteByte(ESC)
	e.buffer.WriteByte('@')
}

// SelectCodeTable sends ESC t n
func (e *Encoder) SelectCodeTable(n byte) {
	e.buffer.WriteByte(ESC)
	e.buffer.WriteByte('t')
	e.buffer.WriteByte(n)
}

// Cut sends a full paper cut
func (e *Encoder) Cut() {
	e.buffer.WriteByte(GS)
	e.buffer.WriteByte('V')
	e.buffer.WriteByte(0)
}

// PartialCut sends a partial paper cut
func (e *Encoder) PartialCut() {
	e.buffer.WriteByte(GS)
	e.buffer.WriteByte('V')
	e.buffer.WriteByte(1)
}

// LineFeed sends line feed
func (e *Encoder) LineFeed() {
	e.buffer.WriteByte(LF)
}

// Feed sends multiple line feeds
func (e *Encoder) Feed(lines int) {
	for i := 0; i < lines; i++ {
		e.LineFeed()
	}
}

// SetAlignment sets justification: "left", "center" or "right"
func (e *Encoder) SetAlignment(align string) {
	e.buffer.WriteByte(ESC)
	e.buffer.WriteByte('a')

	switch align {
	case "center":
		e.buffer.WriteByte(1)
	case "right":
		e.buffer.WriteByte(2)
	default:
		e.buffer.WriteByte(0)
	}
}

// SetPrintMode sends ESC ! with a combination of Mode* bits
func (e *Encoder) SetPrintMode(mode byte) {
	e.buffer.WriteByte(ESC)
	e.buffer.WriteByte('!')
	e.buffer.WriteByte(mode)
}

// SetTextSize sets the character magnification, 1 to 8 in each direction
func (e *Encoder) SetTextSize(width, height int) {
	width = clamp(width, 1, 8)
	height = clamp(height, 1, 8)

	e.buffer.WriteByte(GS)
	e.buffer.WriteByte('!')
	e.buffer.WriteByte(byte(((width - 1) << 4) | (height - 1)))
}

// SetBold enables or disables emphasis
func (e *Encoder) SetBold(enabled bool) {
	e.buffer.WriteByte(ESC)
	e.buffer.WriteByte('E')
	if enabled {
		e.buffer.WriteByte(1)
	} else {
		e.buffer.WriteByte(0)
	}
}

// WriteText writes text
func (e *Encoder) WriteText(text string) {
	if e.text != nil {
		if encoded, err := e.text.String(text); err == nil {
			e.buffer.WriteString(encoded)
			return
		}
	}
	e.buffer.WriteString(text)
}

// WriteLine writes text followed by a line feed
func (e *Encoder) WriteLine(text string) {
	e.WriteText(text)
	e.LineFeed()
}

// GetBytes returns the generated commands
func (e *Encoder) GetBytes() []byte {
	return e.buffer.Bytes()
}

// Reset clears the buffer
func (e *Encoder) Reset() {
	e.buffer.Reset()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
