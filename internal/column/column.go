// Package column provides the reference basin modules driven through
// the moc capability contract: an advective-diffusive water column and
// a surface mixed layer. Couplers see only their buoyancy accessors
// and timestep entry points.
package column

import (
	"errors"
	"fmt"
	"math"

	"github.com/okeanlab/mocsim/internal/grid"
	"github.com/okeanlab/mocsim/internal/moc"
)

var (
	// ErrConfig indicates invalid column parameters.
	ErrConfig = errors.New("column: invalid configuration")

	// ErrUnstable indicates the buoyancy profile diverged (NaN/Inf).
	ErrUnstable = errors.New("column: buoyancy profile diverged")
)

type Config struct {
	Z     []float64
	Kappa any     // vertical diffusivity, m²/s: scalar, array, or grid.Func
	Area  float64 // horizontal area of the basin, m²
	B     any     // initial buoyancy profile
	Bs    float64 // surface buoyancy, Dirichlet
	BBot  float64 // bottom buoyancy, Dirichlet

	DoConv bool    // convectively adjust statically unstable layers
	N2Min  float64 // minimum stratification, 1/s²
}

// Column is a horizontally averaged advective-diffusive basin,
//
//	b_t = −w b_z + (κ b_z)_z,  w = wA / Area
//
// forced by the net vertical volume flux wA imposed by neighboring
// couplers. The grid is ordered bottom to surface.
type Column struct {
	z     grid.Grid
	b     []float64
	kappa []float64
	area  float64
	bs    float64
	bbot  float64

	doConv bool
	n2min  float64
}

func New(cfg Config) (*Column, error) {
	if cfg.Z == nil {
		return nil, fmt.Errorf("%w: column requires grid levels", grid.ErrGrid)
	}
	z, err := grid.New(cfg.Z)
	if err != nil {
		return nil, err
	}
	if !z.Ascending() {
		return nil, fmt.Errorf("%w: grid must run bottom to surface", ErrConfig)
	}
	if cfg.Area <= 0 {
		return nil, fmt.Errorf("%w: area must be positive, got %g", ErrConfig, cfg.Area)
	}
	if cfg.Kappa == nil {
		return nil, fmt.Errorf("%w: diffusivity is required", ErrConfig)
	}

	c := &Column{
		z:      z,
		area:   cfg.Area,
		bs:     cfg.Bs,
		bbot:   cfg.BBot,
		doConv: cfg.DoConv,
		n2min:  cfg.N2Min,
	}
	if c.kappa, err = grid.ToArray(cfg.Kappa, z); err != nil {
		return nil, fmt.Errorf("column: kappa: %w", err)
	}
	if cfg.B == nil {
		cfg.B = cfg.BBot
	}
	if c.b, err = grid.ToArray(cfg.B, z); err != nil {
		return nil, fmt.Errorf("column: b: %w", err)
	}
	return c, nil
}

func (c *Column) Kind() moc.Kind { return moc.KindBasin }

func (c *Column) Z() grid.Grid { return c.z }

// Buoyancy returns the live vertical profile, bottom to surface.
func (c *Column) Buoyancy() []float64 { return c.b }

// Timestep advances the profile by dt seconds given the net advective
// forcing profile in m³/s. A single-element flux broadcasts. Upwind
// differencing for the advection, flux form for the diffusion.
func (c *Column) Timestep(flux []float64, dt float64) error {
	n := c.z.Len()
	db := make([]float64, n)
	for i := 1; i < n-1; i++ {
		f := 0.0
		switch {
		case len(flux) == 1:
			f = flux[0]
		case i < len(flux):
			f = flux[i]
		}
		w := f / c.area

		dzm := c.z[i] - c.z[i-1]
		dzp := c.z[i+1] - c.z[i]

		var adv float64
		if w > 0 {
			adv = -w * (c.b[i] - c.b[i-1]) / dzm
		} else {
			adv = -w * (c.b[i+1] - c.b[i]) / dzp
		}

		kp := 0.5 * (c.kappa[i+1] + c.kappa[i])
		km := 0.5 * (c.kappa[i] + c.kappa[i-1])
		diff := (kp*(c.b[i+1]-c.b[i])/dzp - km*(c.b[i]-c.b[i-1])/dzm) / (0.5 * (dzp + dzm))

		db[i] = dt * (adv + diff)
	}
	for i := 1; i < n-1; i++ {
		c.b[i] += db[i]
	}

	if c.doConv {
		c.convect()
	}
	if c.n2min > 0 {
		for i := 0; i < n-1; i++ {
			if floor := c.b[i] + c.n2min*(c.z[i+1]-c.z[i]); c.b[i+1] < floor {
				c.b[i+1] = floor
			}
		}
	}
	c.b[0] = c.bbot
	c.b[n-1] = c.bs

	for _, v := range c.b {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w at dt=%g", ErrUnstable, dt)
		}
	}
	return nil
}

// convect homogenizes statically unstable layer pairs, weighting by
// layer thickness, until buoyancy is non-decreasing upward.
func (c *Column) convect() {
	n := c.z.Len()
	for changed := true; changed; {
		changed = false
		for i := 0; i < n-1; i++ {
			if c.b[i] <= c.b[i+1] {
				continue
			}
			tl := c.thickness(i)
			tu := c.thickness(i + 1)
			mix := (c.b[i]*tl + c.b[i+1]*tu) / (tl + tu)
			c.b[i], c.b[i+1] = mix, mix
			changed = true
		}
	}
}

func (c *Column) thickness(i int) float64 {
	n := c.z.Len()
	switch i {
	case 0:
		return c.z[1] - c.z[0]
	case n - 1:
		return c.z[n-1] - c.z[n-2]
	}
	return 0.5 * (c.z[i+1] - c.z[i-1])
}
