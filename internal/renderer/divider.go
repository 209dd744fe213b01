package renderer

// renderDivider draws a dashed rule in place of a row of dashes
func (r *Renderer) renderDivider() {
	r.ensureHeight(15)

	y := r.y + 7
	x1 := float64(margin)
	x2 := float64(r.width - margin)

	r.ctx.SetLineWidth(2)

	const dashLength, gapLength = 10.0, 5.0
	for x := x1; x < x2; x += dashLength + gapLength {
		r.ctx.DrawLine(x, y, min(x+dashLength, x2), y)
		r.ctx.Stroke()
	}

	r.y += 15
}
