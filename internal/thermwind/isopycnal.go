package thermwind

import (
	"fmt"
	"math"

	"github.com/okeanlab/mocsim/internal/grid"
)

// DefaultBins is the isopycnal axis resolution used when the coupling
// layer asks for transport profiles without choosing one.
const DefaultBins = 500

// IsopycnalTransport maps the depth-space overturning into buoyancy
// space. The axis spans the joint min/max of both profiles in nBins
// uniform levels. Each depth cell's flux −ΔΨ is spread evenly over the
// axis bins straddled by the upwind column's buoyancy across that cell
// (b1 when the flux is non-negative, b2 otherwise); a cell thinner
// than one bin puts its whole flux in the bin nearest its midpoint
// buoyancy, so no transport is dropped. Returned is the cumulative
// transport from the lightest class upward, with a leading zero.
func (t *Thermwind) IsopycnalTransport(nBins int) ([]float64, error) {
	if t.psi == nil {
		return nil, ErrNotSolved
	}
	if nBins < 2 {
		return nil, fmt.Errorf("thermwind: need at least 2 buoyancy bins, got %d", nBins)
	}

	b1, b2 := t.Buoyancies()
	bmin, bmax := b1[0], b1[0]
	for _, b := range [][]float64{b1, b2} {
		for _, v := range b {
			bmin = math.Min(bmin, v)
			bmax = math.Max(bmax, v)
		}
	}

	axis := make([]float64, nBins)
	step := (bmax - bmin) / float64(nBins-1)
	for i := range axis {
		axis[i] = bmin + float64(i)*step
	}
	t.bAxis = axis

	mid := make([]float64, nBins-1)
	for i := range mid {
		mid[i] = 0.5 * (axis[i] + axis[i+1])
	}

	trans := make([]float64, nBins-1)
	for i := 0; i < t.z.Len()-1; i++ {
		flux := -(t.psi[i+1] - t.psi[i])
		col := b1
		if flux < 0 {
			col = b2
		}
		below, above := col[i], col[i+1]

		count := 0
		for _, m := range mid {
			if m >= below && m <= above {
				count++
			}
		}
		w := -flux
		if count > 0 {
			share := w / float64(count)
			for j, m := range mid {
				if m >= below && m <= above {
					trans[j] += share
				}
			}
			continue
		}
		// cell thinner than one bin: nearest bin takes it all
		cellMid := 0.5 * (below + above)
		nearest := 0
		best := math.Abs(mid[0] - cellMid)
		for j := 1; j < len(mid); j++ {
			if d := math.Abs(mid[j] - cellMid); d < best {
				best, nearest = d, j
			}
		}
		trans[nearest] += w
	}

	cum := make([]float64, nBins)
	for j := 0; j < nBins-1; j++ {
		cum[j+1] = cum[j] + trans[j]
	}
	return cum, nil
}

// TransportProfiles maps the isopycnal transport back onto each
// column's own depth grid with the default axis resolution. This is
// the coupler output consumed by neighboring basins.
func (t *Thermwind) TransportProfiles() ([][]float64, error) {
	return t.TransportProfilesN(DefaultBins)
}

// TransportProfilesN first estimates the depth of every axis level in
// each column, then interpolates the transport in depth. Going through
// depth rather than interpolating buoyancy against buoyancy directly
// keeps the mapping stable where a column's buoyancy is not monotonic
// across bins.
func (t *Thermwind) TransportProfilesN(nBins int) ([][]float64, error) {
	psib, err := t.IsopycnalTransport(nBins)
	if err != nil {
		return nil, err
	}
	b1, b2 := t.Buoyancies()

	z1 := grid.InterpSlice(t.bAxis, b1, t.z)
	z2 := grid.InterpSlice(t.bAxis, b2, t.z)
	p1 := grid.InterpSlice(t.z, z1, psib)
	p2 := grid.InterpSlice(t.z, z2, psib)
	return [][]float64{p1, p2}, nil
}
