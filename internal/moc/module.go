// Package moc couples physical modules into a time-stepped network.
// Modules are either basins, with time-evolving buoyancy profiles, or
// couplers, whose streamfunctions maintain the dynamical balance
// between two neighboring basins. Wrappers bind modules into a
// directed neighbor graph; the Model drives basin micro-steps and
// periodic coupler re-solves over that graph.
package moc

import "fmt"

// Kind tags a physical module as a basin or a coupler.
type Kind int

const (
	KindBasin Kind = iota + 1
	KindCoupler
)

func (k Kind) String() string {
	switch k {
	case KindBasin:
		return "basin"
	case KindCoupler:
		return "coupler"
	}
	return "unknown"
}

// Module is the minimal capability every physical module exposes.
type Module interface {
	Kind() Kind
}

// Basin holds a vertical buoyancy profile and advances it given the
// net advective forcing profile from neighboring couplers, in m³/s.
type Basin interface {
	Module
	Buoyancy() []float64
	Timestep(flux []float64, dt float64) error
}

// SurfaceBasin is a mixed-layer basin that balances transport from
// several downstream couplers at once. It is stepped with a summed
// transport profile on a shared buoyancy axis instead of a flux
// profile on its own grid.
type SurfaceBasin interface {
	Module
	SurfaceBuoyancy() []float64
	TimestepProfile(psi, axis []float64, dt float64) error
}

// Coupler computes an overturning transport from the buoyancy state of
// its left and right neighbors. Update replaces the boundary inputs
// without recomputation; Solve refreshes the streamfunction.
type Coupler interface {
	Module
	Update(left, right any) error
	Solve() error
	Streamfunction() []float64
}

// SurfaceCoupler is a coupler restored toward a surface buoyancy
// field; its update distinguishes the surface field from the interior
// boundary profile.
type SurfaceCoupler interface {
	Module
	UpdateSurface(surface, boundary any) error
	Solve() error
	Streamfunction() []float64
}

// IsopycnalRemapper is implemented by couplers that can map their
// transport onto each neighboring column's own depth grid.
type IsopycnalRemapper interface {
	TransportProfiles() ([][]float64, error)
}

// Role is the closed enumeration of orchestration behaviors, decided
// once when a module is wrapped.
type Role int

const (
	RoleBasin Role = iota + 1
	RoleSurfaceBasin
	RoleCoupler
	RoleSurfaceCoupler
)

func (r Role) String() string {
	switch r {
	case RoleBasin:
		return "basin"
	case RoleSurfaceBasin:
		return "surface basin"
	case RoleCoupler:
		return "coupler"
	case RoleSurfaceCoupler:
		return "surface coupler"
	}
	return "unknown"
}

func (r Role) kind() Kind {
	if r == RoleCoupler || r == RoleSurfaceCoupler {
		return KindCoupler
	}
	return KindBasin
}

// roleOf resolves the module's role from its kind tag and capability
// set. The richer surface capabilities win when both are present.
func roleOf(m Module) (Role, error) {
	switch m.Kind() {
	case KindBasin:
		if _, ok := m.(SurfaceBasin); ok {
			return RoleSurfaceBasin, nil
		}
		if _, ok := m.(Basin); ok {
			return RoleBasin, nil
		}
	case KindCoupler:
		if _, ok := m.(SurfaceCoupler); ok {
			return RoleSurfaceCoupler, nil
		}
		if _, ok := m.(Coupler); ok {
			return RoleCoupler, nil
		}
	}
	return 0, fmt.Errorf("moc: module %T satisfies no capability set for kind %q", m, m.Kind())
}
