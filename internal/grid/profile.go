package grid

import "fmt"

// Func is a buoyancy profile as a pure function of depth.
type Func func(z float64) float64

// ToFunc normalizes a buoyancy specification into callable form.
// Scalars become constant functions, sampled arrays are interpolated
// linearly over g, and functions pass through unchanged. Arrays must
// match the grid length.
func ToFunc(spec any, g Grid) (Func, error) {
	switch v := spec.(type) {
	case Func:
		return v, nil
	case func(float64) float64:
		return v, nil
	case []float64:
		if len(v) != g.Len() {
			return nil, fmt.Errorf("%w: array length %d does not match grid length %d",
				ErrInvalidSpec, len(v), g.Len())
		}
		xp := make([]float64, g.Len())
		fp := make([]float64, g.Len())
		if g.Ascending() {
			copy(xp, g)
			copy(fp, v)
		} else {
			for i := range xp {
				xp[i] = g[g.Len()-1-i]
				fp[i] = v[g.Len()-1-i]
			}
		}
		return func(z float64) float64 { return Interp(z, xp, fp) }, nil
	case float64:
		return func(float64) float64 { return v }, nil
	case int:
		c := float64(v)
		return func(float64) float64 { return c }, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidSpec, spec)
	}
}

// ToArray materializes a buoyancy specification on g. Arrays pass
// through as a copy, functions are sampled at the grid levels, and
// scalars broadcast.
func ToArray(spec any, g Grid) ([]float64, error) {
	switch v := spec.(type) {
	case []float64:
		if len(v) != g.Len() {
			return nil, fmt.Errorf("%w: array length %d does not match grid length %d",
				ErrInvalidSpec, len(v), g.Len())
		}
		out := make([]float64, len(v))
		copy(out, v)
		return out, nil
	case Func:
		return sample(v, g), nil
	case func(float64) float64:
		return sample(v, g), nil
	case float64:
		return broadcast(v, g), nil
	case int:
		return broadcast(float64(v), g), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidSpec, spec)
	}
}

func sample(f Func, g Grid) []float64 {
	out := make([]float64, g.Len())
	for i, z := range g {
		out[i] = f(z)
	}
	return out
}

func broadcast(v float64, g Grid) []float64 {
	out := make([]float64, g.Len())
	for i := range out {
		out[i] = v
	}
	return out
}
