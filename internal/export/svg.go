// Package export renders profile plots as standalone SVG documents.
package export

import (
	"fmt"
	"strings"

	"github.com/okeanlab/mocsim/internal/viz"
)

// ProfileSVG draws values on a braille canvas and converts it to SVG.
func ProfileSVG(values []float64, scale float64) string {
	c := viz.NewCanvas(80, 20)
	c.DrawSeries(values)
	return CanvasSVG(c, scale)
}

// CanvasSVG converts each lit braille sub-pixel into an SVG dot.
func CanvasSVG(c *viz.Canvas, scale float64) string {
	if c == nil {
		return ""
	}
	width := float64(c.Width) * scale * 2
	height := float64(c.Height) * scale * 4

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0b1020"/>
<g fill="#4fc3f7">
`, width, height, width, height))

	pixelMap := [4][2]rune{
		{0x01, 0x08},
		{0x02, 0x10},
		{0x04, 0x20},
		{0x40, 0x80},
	}
	radius := scale * 0.4

	for row := 0; row < c.Height; row++ {
		for col := 0; col < c.Width; col++ {
			pattern := c.Grid[row][col] - 0x2800
			if pattern <= 0 {
				continue
			}
			baseX := float64(col) * scale * 2
			baseY := float64(row) * scale * 4
			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					if pattern&pixelMap[dy][dx] == 0 {
						continue
					}
					cx := baseX + float64(dx)*scale + scale/2
					cy := baseY + float64(dy)*scale + scale/2
					sb.WriteString(fmt.Sprintf("<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, radius))
				}
			}
		}
	}
	sb.WriteString("</g>\n</svg>\n")
	return sb.String()
}
