package moc

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/okeanlab/mocsim/internal/grid"
)

// svFactor converts transports stored in Sv to m³/s.
const svFactor = 1e6

// minAxisResolution floors the universal buoyancy axis spacing so a
// pair of nearly identical samples cannot blow the axis up.
const minAxisResolution = 1e-6

// Wrapper binds one physical module into the coupling graph and
// carries its communication state. By convention geographic north and
// east are "right", south and west are "left": couplers mediate
// exactly two basins, one per side, while a basin may face several
// couplers across a shared boundary.
type Wrapper struct {
	name   string
	key    string
	module Module
	role   Role

	// psi is the transport buffer read by neighboring basins, one
	// profile per boundary side, in Sv. It starts neutral and is
	// refreshed by UpdateCoupler.
	psi [][]float64

	left  []*Wrapper
	right []*Wrapper
}

// Wrap builds a graph node for the module. The lookup key is the name
// with spaces replaced by underscores, lower-cased and trimmed.
func Wrap(name string, m Module) (*Wrapper, error) {
	role, err := roleOf(m)
	if err != nil {
		return nil, err
	}
	return &Wrapper{
		name:   name,
		key:    Key(name),
		module: m,
		role:   role,
		psi:    [][]float64{{0}, {0}},
	}, nil
}

// Key normalizes a display name into a registry key.
func Key(name string) string {
	return strings.Trim(strings.ToLower(strings.ReplaceAll(name, " ", "_")), "_")
}

func (w *Wrapper) Name() string   { return w.name }
func (w *Wrapper) Key() string    { return w.key }
func (w *Wrapper) Module() Module { return w.module }
func (w *Wrapper) Role() Role     { return w.role }
func (w *Wrapper) Kind() Kind     { return w.role.kind() }

// Psi returns the current transport buffer, in Sv.
func (w *Wrapper) Psi() [][]float64 { return w.psi }

func (w *Wrapper) Left() []*Wrapper  { return w.left }
func (w *Wrapper) Right() []*Wrapper { return w.right }

// Neighbors returns all neighbors, the left list first, each in
// insertion order.
func (w *Wrapper) Neighbors() []*Wrapper {
	out := make([]*Wrapper, 0, len(w.left)+len(w.right))
	out = append(out, w.left...)
	return append(out, w.right...)
}

type side int

const (
	leftSide side = iota
	rightSide
)

func (s side) opposite() side {
	if s == leftSide {
		return rightSide
	}
	return leftSide
}

// AddLeft links n to the left of w and w to the right of n.
func (w *Wrapper) AddLeft(n *Wrapper) error { return connect(w, n, leftSide) }

// AddRight links n to the right of w and w to the left of n.
func (w *Wrapper) AddRight(n *Wrapper) error { return connect(w, n, rightSide) }

// AddNeighbors applies the single-edge insertions in list order.
func (w *Wrapper) AddNeighbors(lefts, rights []*Wrapper) error {
	for _, n := range lefts {
		if err := w.AddLeft(n); err != nil {
			return err
		}
	}
	for _, n := range rights {
		if err := w.AddRight(n); err != nil {
			return err
		}
	}
	return nil
}

// connect inserts n on the given side of w together with the symmetric
// backlink on the opposite side of n. Both endpoints are validated
// before either adjacency list is touched, so a rejected edge leaves
// the graph unchanged.
func connect(w, n *Wrapper, s side) error {
	if w.adjacent(n) || n.adjacent(w) {
		return fmt.Errorf("%w: %s and %s", ErrDuplicateEdge, n.name, w.name)
	}
	if err := w.vacancy(s); err != nil {
		return err
	}
	if err := n.vacancy(s.opposite()); err != nil {
		return err
	}
	if s == leftSide {
		w.left = append(w.left, n)
		n.right = append(n.right, w)
	} else {
		w.right = append(w.right, n)
		n.left = append(n.left, w)
	}
	return nil
}

func (w *Wrapper) adjacent(n *Wrapper) bool {
	for _, x := range w.left {
		if x == n {
			return true
		}
	}
	for _, x := range w.right {
		if x == n {
			return true
		}
	}
	return false
}

// vacancy enforces the coupler cardinality rule: a coupler mediates
// exactly two basins, at most one neighbor per side.
func (w *Wrapper) vacancy(s side) error {
	if w.Kind() != KindCoupler {
		return nil
	}
	if s == leftSide && len(w.left) > 0 || s == rightSide && len(w.right) > 0 {
		return fmt.Errorf("%w: %s", ErrCardinality, w.name)
	}
	return nil
}

// Buoyancy returns the buoyancy field seen by neighboring couplers:
// the vertical profile for basins, the surface field for mixed-layer
// basins, nil for couplers.
func (w *Wrapper) Buoyancy() []float64 {
	switch w.role {
	case RoleBasin:
		return w.module.(Basin).Buoyancy()
	case RoleSurfaceBasin:
		return w.module.(SurfaceBasin).SurfaceBuoyancy()
	}
	return nil
}

// TimestepBasin advances the wrapped basin by dt using the transports
// computed during the last coupler update.
func (w *Wrapper) TimestepBasin(dt float64) error {
	switch w.role {
	case RoleBasin:
		return w.module.(Basin).Timestep(w.netFlux(), dt)
	case RoleSurfaceBasin:
		psi, axis, err := w.universalTransport()
		if err != nil {
			return err
		}
		return w.module.(SurfaceBasin).TimestepProfile(psi, axis, dt)
	}
	return fmt.Errorf("%w: cannot timestep %s", ErrNotBasin, w.name)
}

// netFlux accumulates neighbor transports into the net advective
// forcing profile, in m³/s. A coupler's first transport profile enters
// the basin on its right; its last profile leaves the basin on its
// left.
func (w *Wrapper) netFlux() []float64 {
	n := len(w.module.(Basin).Buoyancy())
	for _, nb := range w.right {
		if len(nb.psi[0]) > n {
			n = len(nb.psi[0])
		}
	}
	for _, nb := range w.left {
		if last := nb.psi[len(nb.psi)-1]; len(last) > n {
			n = len(last)
		}
	}
	flux := make([]float64, n)
	for _, nb := range w.right {
		addScaled(flux, nb.psi[0], svFactor)
	}
	for _, nb := range w.left {
		addScaled(flux, nb.psi[len(nb.psi)-1], -svFactor)
	}
	return flux
}

// addScaled adds s*p to dst elementwise; a single-element profile (the
// neutral buffer) broadcasts.
func addScaled(dst, p []float64, s float64) {
	if len(p) == 1 {
		v := s * p[0]
		for i := range dst {
			dst[i] += v
		}
		return
	}
	for i := 0; i < len(dst) && i < len(p); i++ {
		dst[i] += s * p[i]
	}
}

// universalTransport builds a shared buoyancy axis spanning the
// buoyancy ranges of the basins downstream of every right-neighbor
// coupler, then interpolates and sums each coupler's transport onto
// it. The axis resolution is the smallest nonzero gap between sorted
// unique buoyancy samples, floored at minAxisResolution.
func (w *Wrapper) universalTransport() ([]float64, []float64, error) {
	type branch struct{ b, psi []float64 }
	var branches []branch
	var samples []float64
	for _, c := range w.right {
		if len(c.right) == 0 {
			return nil, nil, fmt.Errorf("moc: coupler %s has no downstream basin", c.name)
		}
		b := c.right[0].Buoyancy()
		if len(b) == 0 {
			return nil, nil, fmt.Errorf("moc: downstream basin of %s exposes no buoyancy", c.name)
		}
		samples = append(samples, b...)
		branches = append(branches, branch{b: b, psi: c.psi[0]})
	}
	if len(branches) == 0 {
		return nil, nil, fmt.Errorf("%w: %s has no right-neighbor couplers", ErrDegenerateAxis, w.name)
	}

	sort.Float64s(samples)
	bmin, bmax := samples[0], samples[len(samples)-1]
	if bmax <= bmin {
		return nil, nil, fmt.Errorf("%w: all samples at %g", ErrDegenerateAxis, bmin)
	}
	db := bmax - bmin
	for i := 1; i < len(samples); i++ {
		if gap := samples[i] - samples[i-1]; gap > 0 && gap < db {
			db = gap
		}
	}
	if db < minAxisResolution {
		db = minAxisResolution
	}

	n := int(math.Floor((bmax-bmin)/db)) + 1
	axis := make([]float64, n)
	for i := range axis {
		axis[i] = bmin + float64(i)*db
	}
	psi := make([]float64, n)
	for _, br := range branches {
		if len(br.psi) == 1 {
			for i := range psi {
				psi[i] += br.psi[0]
			}
			continue
		}
		for i, bv := range axis {
			psi[i] += grid.Interp(bv, br.b, br.psi)
		}
	}
	return psi, axis, nil
}

// UpdateCoupler feeds the latest neighbor buoyancy to the wrapped
// coupler, re-solves it, and refreshes the transport buffer. Surface
// couplers receive the right-neighbor field as the surface input and
// the left-neighbor field as the interior boundary.
func (w *Wrapper) UpdateCoupler() error {
	var left, right any
	if len(w.left) > 0 {
		if b := w.left[0].Buoyancy(); b != nil {
			left = b
		}
	}
	if len(w.right) > 0 {
		if b := w.right[0].Buoyancy(); b != nil {
			right = b
		}
	}

	switch w.role {
	case RoleCoupler:
		c := w.module.(Coupler)
		if err := c.Update(left, right); err != nil {
			return fmt.Errorf("moc: update %s: %w", w.name, err)
		}
		if err := c.Solve(); err != nil {
			return fmt.Errorf("moc: solve %s: %w", w.name, err)
		}
		return w.refreshTransport(c.Streamfunction())
	case RoleSurfaceCoupler:
		c := w.module.(SurfaceCoupler)
		if err := c.UpdateSurface(right, left); err != nil {
			return fmt.Errorf("moc: update %s: %w", w.name, err)
		}
		if err := c.Solve(); err != nil {
			return fmt.Errorf("moc: solve %s: %w", w.name, err)
		}
		return w.refreshTransport(c.Streamfunction())
	}
	return fmt.Errorf("%w: cannot update %s", ErrNotCoupler, w.name)
}

// refreshTransport stores the per-side isopycnal profiles when the
// module can remap, otherwise the single depth-space streamfunction.
func (w *Wrapper) refreshTransport(psi []float64) error {
	if r, ok := w.module.(IsopycnalRemapper); ok {
		profiles, err := r.TransportProfiles()
		if err != nil {
			return fmt.Errorf("moc: remap %s: %w", w.name, err)
		}
		w.psi = profiles
		return nil
	}
	w.psi = [][]float64{psi}
	return nil
}
