package grid

import (
	"errors"
	"fmt"
)

var (
	// ErrGrid indicates a missing, short, or non-monotonic vertical grid.
	ErrGrid = errors.New("grid: invalid vertical grid")

	// ErrInvalidSpec indicates a buoyancy specification of an unsupported kind.
	ErrInvalidSpec = errors.New("grid: unsupported buoyancy specification")
)

// Grid is an ordered, strictly monotonic sequence of depth levels. Its
// orientation (deepest-first or surface-first) is fixed at construction
// and shared by every profile and streamfunction array aligned to it.
// A Grid must not be mutated after construction.
type Grid []float64

func New(levels []float64) (Grid, error) {
	if len(levels) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 levels, got %d", ErrGrid, len(levels))
	}
	up := levels[1] > levels[0]
	for i := 1; i < len(levels); i++ {
		if up && levels[i] <= levels[i-1] || !up && levels[i] >= levels[i-1] {
			return nil, fmt.Errorf("%w: levels must be strictly monotonic", ErrGrid)
		}
	}
	g := make(Grid, len(levels))
	copy(g, levels)
	return g, nil
}

// Uniform returns n evenly spaced levels from lo to hi inclusive.
func Uniform(lo, hi float64, n int) (Grid, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 levels, got %d", ErrGrid, n)
	}
	g := make(Grid, n)
	step := (hi - lo) / float64(n-1)
	for i := range g {
		g[i] = lo + float64(i)*step
	}
	g[n-1] = hi
	return g, nil
}

func (g Grid) Len() int { return len(g) }

func (g Grid) Ascending() bool { return g[len(g)-1] > g[0] }

// Interp evaluates the piecewise-linear interpolant through (xp, fp) at
// x, clamping to the end values outside the domain. xp must be
// non-decreasing.
func Interp(x float64, xp, fp []float64) float64 {
	n := len(xp)
	if x <= xp[0] {
		return fp[0]
	}
	if x >= xp[n-1] {
		return fp[n-1]
	}
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if xp[mid] <= x {
			lo = mid
		} else {
			hi = mid
		}
	}
	t := (x - xp[lo]) / (xp[hi] - xp[lo])
	return fp[lo] + t*(fp[hi]-fp[lo])
}

// InterpSlice evaluates the interpolant at every point of xs.
func InterpSlice(xs, xp, fp []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = Interp(x, xp, fp)
	}
	return out
}
