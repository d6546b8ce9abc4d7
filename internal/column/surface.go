package column

import (
	"fmt"
	"math"

	"github.com/okeanlab/mocsim/internal/grid"
	"github.com/okeanlab/mocsim/internal/moc"
)

type SurfaceConfig struct {
	Y     []float64 // meridional axis, m, southernmost first
	Bs    any       // initial surface buoyancy over Y
	BRest any       // restoring target over Y

	H     float64 // mixed layer depth, m
	L     float64 // zonal extent, m
	Ks    float64 // horizontal diffusivity, m²/s
	VPist float64 // piston restoring velocity, m/s
}

// SurfaceLayer is a surface mixed layer on a meridional axis. It is a
// basin in the contract sense, but a surface one: the orchestrator
// steps it with the summed transport of all downstream couplers on a
// shared buoyancy axis, which the layer turns into a meridional
// advection of its surface buoyancy, alongside horizontal diffusion
// and piston-velocity restoring.
type SurfaceLayer struct {
	y    grid.Grid
	bs   []float64
	rest []float64

	h, l, ks, vPist float64
}

func NewSurface(cfg SurfaceConfig) (*SurfaceLayer, error) {
	if cfg.Y == nil {
		return nil, fmt.Errorf("%w: surface layer requires a meridional axis", grid.ErrGrid)
	}
	y, err := grid.New(cfg.Y)
	if err != nil {
		return nil, err
	}
	if !y.Ascending() {
		return nil, fmt.Errorf("%w: meridional axis must ascend northward", ErrConfig)
	}
	if cfg.H <= 0 || cfg.L <= 0 {
		return nil, fmt.Errorf("%w: layer depth and zonal extent must be positive", ErrConfig)
	}

	s := &SurfaceLayer{y: y, h: cfg.H, l: cfg.L, ks: cfg.Ks, vPist: cfg.VPist}
	if cfg.Bs == nil {
		cfg.Bs = 0.0
	}
	if s.bs, err = grid.ToArray(cfg.Bs, y); err != nil {
		return nil, fmt.Errorf("column: surface bs: %w", err)
	}
	if cfg.BRest == nil {
		cfg.BRest = 0.0
	}
	if s.rest, err = grid.ToArray(cfg.BRest, y); err != nil {
		return nil, fmt.Errorf("column: surface restoring target: %w", err)
	}
	return s, nil
}

func (s *SurfaceLayer) Kind() moc.Kind { return moc.KindBasin }

func (s *SurfaceLayer) Y() grid.Grid { return s.y }

// SurfaceBuoyancy returns the live surface buoyancy samples.
func (s *SurfaceLayer) SurfaceBuoyancy() []float64 { return s.bs }

// TimestepProfile advances the surface buoyancy by dt. psi is the
// summed downstream transport, in Sv, on the universal buoyancy axis;
// the transport through each sample's buoyancy class sets the local
// meridional velocity v = Ψ/(h·L) that advects buoyancy upwind.
func (s *SurfaceLayer) TimestepProfile(psi, axis []float64, dt float64) error {
	n := s.y.Len()
	if len(psi) != len(axis) || len(axis) == 0 {
		return fmt.Errorf("%w: transport and axis lengths differ", ErrConfig)
	}

	db := make([]float64, n)
	for i := 1; i < n-1; i++ {
		v := grid.Interp(s.bs[i], axis, psi) * 1e6 / (s.h * s.l)

		dym := s.y[i] - s.y[i-1]
		dyp := s.y[i+1] - s.y[i]

		var adv float64
		if v > 0 {
			adv = -v * (s.bs[i] - s.bs[i-1]) / dym
		} else {
			adv = -v * (s.bs[i+1] - s.bs[i]) / dyp
		}

		diff := s.ks * ((s.bs[i+1]-s.bs[i])/dyp - (s.bs[i]-s.bs[i-1])/dym) / (0.5 * (dyp + dym))
		db[i] = dt * (adv + diff)
	}
	for i := range s.bs {
		s.bs[i] += db[i] + dt*s.vPist/s.h*(s.rest[i]-s.bs[i])
	}

	for _, v := range s.bs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w in surface layer", ErrUnstable)
		}
	}
	return nil
}
