package renderer

import (
	"os"

	"github.com/uttammasala/billprint/internal/receipt"
)

// Columns are laid out in characters, so only monospaced faces keep them aligned
var (
	regularFonts = []string{
		"/usr/share/fonts/truetype/dejavu/DejaVuSansMono.ttf",
		"/usr/share/fonts/truetype/liberation/LiberationMono-Regular.ttf",
		"/usr/share/fonts/TTF/DejaVuSansMono.ttf",
		"/Library/Fonts/Courier New.ttf",
		`C:\Windows\Fonts\consola.ttf`,
	}
	boldFonts = []string{
		"/usr/share/fonts/truetype/dejavu/DejaVuSansMono-Bold.ttf",
		"/usr/share/fonts/truetype/liberation/LiberationMono-Bold.ttf",
		"/usr/share/fonts/TTF/DejaVuSansMono-Bold.ttf",
		"/Library/Fonts/Courier New Bold.ttf",
		`C:\Windows\Fonts\consolab.ttf`,
	}
)

// monoAdvance approximates a monospaced glyph advance in ems
const monoAdvance = 0.6

// receiptColumns is the character width of the POS layout
const receiptColumns = 42

type fontSet struct {
	regular string
	bold    string
}

func findFonts() fontSet {
	fonts := fontSet{regular: firstExisting(regularFonts)}
	fonts.bold = firstExisting(boldFonts)
	if fonts.bold == "" {
		fonts.bold = fonts.regular
	}
	return fonts
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// baseSize fits receiptColumns characters across the printable width
func (r *Renderer) baseSize() float64 {
	return float64(r.width-2*margin) / (receiptColumns * monoAdvance)
}

// setFace loads a face for the line. Without a TrueType font gg keeps its
// built-in bitmap face, which cannot scale.
func (r *Renderer) setFace(bold bool, scale float64) (loaded bool) {
	path := r.fonts.regular
	if bold {
		path = r.fonts.bold
	}
	if path == "" {
		return false
	}
	if scale <= 0 {
		scale = 1
	}
	return r.ctx.LoadFontFace(path, r.baseSize()*scale) == nil
}

func (r *Renderer) renderText(line receipt.PreviewLine) error {
	// Growing the canvas replaces the context and drops its face
	r.ensureHeight(int(r.baseSize()*max(line.Scale, 1)*2) + 20)
	loaded := r.setFace(line.Bold, line.Scale)

	textWidth, textHeight := r.ctx.MeasureString(line.Text)
	if line.Text == "" {
		textHeight = r.ctx.FontHeight()
	}

	avail := float64(r.width - 2*margin)
	if loaded && textWidth > avail {
		r.setFace(line.Bold, line.Scale*avail/textWidth)
		textWidth, textHeight = r.ctx.MeasureString(line.Text)
	}

	var x float64
	switch line.Align {
	case "center":
		x = float64(r.width)/2 - textWidth/2
	case "right":
		x = float64(r.width) - textWidth - margin
	default:
		x = margin
	}

	r.ctx.DrawString(line.Text, x, r.y+textHeight)
	if line.Bold && !loaded {
		// Fake emphasis for the bitmap face
		r.ctx.DrawString(line.Text, x+1, r.y+textHeight)
	}

	r.y += textHeight + textHeight*0.4

	return nil
}
