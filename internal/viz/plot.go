// Package viz renders profiles for the terminal: asciigraph line
// plots for quick inspection and a braille canvas for SVG export.
package viz

import "github.com/guptarohit/asciigraph"

// Profile plots values against their grid index.
func Profile(values []float64, caption string) string {
	return asciigraph.Plot(values,
		asciigraph.Height(12),
		asciigraph.Width(72),
		asciigraph.Caption(caption),
	)
}
