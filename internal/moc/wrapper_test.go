package moc

import (
	"errors"
	"math"
	"testing"
)

type fakeBasin struct {
	b     []float64
	flux  []float64
	steps int
	err   error
}

func (f *fakeBasin) Kind() Kind          { return KindBasin }
func (f *fakeBasin) Buoyancy() []float64 { return f.b }
func (f *fakeBasin) Timestep(flux []float64, dt float64) error {
	f.steps++
	f.flux = flux
	return f.err
}

type fakeSurface struct {
	b     []float64
	psi   []float64
	axis  []float64
	steps int
}

func (f *fakeSurface) Kind() Kind                 { return KindBasin }
func (f *fakeSurface) SurfaceBuoyancy() []float64 { return f.b }
func (f *fakeSurface) TimestepProfile(psi, axis []float64, dt float64) error {
	f.steps++
	f.psi, f.axis = psi, axis
	return nil
}

type fakeCoupler struct {
	psi         []float64
	left, right any
	solves      int
	solveErr    error
}

func (f *fakeCoupler) Kind() Kind { return KindCoupler }
func (f *fakeCoupler) Update(left, right any) error {
	f.left, f.right = left, right
	return nil
}
func (f *fakeCoupler) Solve() error {
	f.solves++
	return f.solveErr
}
func (f *fakeCoupler) Streamfunction() []float64 { return f.psi }

type fakeRemapCoupler struct {
	fakeCoupler
	profiles [][]float64
	remapErr error
}

func (f *fakeRemapCoupler) TransportProfiles() ([][]float64, error) {
	return f.profiles, f.remapErr
}

type fakeSurfaceCoupler struct {
	psi               []float64
	surface, boundary any
	solves            int
}

func (f *fakeSurfaceCoupler) Kind() Kind { return KindCoupler }
func (f *fakeSurfaceCoupler) UpdateSurface(surface, boundary any) error {
	f.surface, f.boundary = surface, boundary
	return nil
}
func (f *fakeSurfaceCoupler) Solve() error {
	f.solves++
	return nil
}
func (f *fakeSurfaceCoupler) Streamfunction() []float64 { return f.psi }

// bareModule has a kind tag but no capability set.
type bareModule struct{}

func (bareModule) Kind() Kind { return KindBasin }

func wrap(t *testing.T, name string, m Module) *Wrapper {
	t.Helper()
	w, err := Wrap(name, m)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func TestKey(t *testing.T) {
	cases := map[string]string{
		"Atlantic Basin": "atlantic_basin",
		" AMOC ":         "amoc",
		"north":          "north",
	}
	for in, want := range cases {
		if got := Key(in); got != want {
			t.Errorf("Key(%q) = %q, expected %q", in, got, want)
		}
	}
}

func TestWrapRoles(t *testing.T) {
	cases := []struct {
		m    Module
		role Role
		kind Kind
	}{
		{&fakeBasin{}, RoleBasin, KindBasin},
		{&fakeSurface{}, RoleSurfaceBasin, KindBasin},
		{&fakeCoupler{}, RoleCoupler, KindCoupler},
		{&fakeRemapCoupler{}, RoleCoupler, KindCoupler},
		{&fakeSurfaceCoupler{}, RoleSurfaceCoupler, KindCoupler},
	}
	for _, c := range cases {
		w := wrap(t, "m", c.m)
		if w.Role() != c.role || w.Kind() != c.kind {
			t.Errorf("%T: role %v kind %v, expected %v/%v", c.m, w.Role(), w.Kind(), c.role, c.kind)
		}
	}

	if _, err := Wrap("bare", bareModule{}); err == nil {
		t.Error("expected error for module with no capability set")
	}
}

func TestNeutralBuffer(t *testing.T) {
	w := wrap(t, "amoc", &fakeCoupler{})
	psi := w.Psi()
	if len(psi) != 2 || len(psi[0]) != 1 || psi[0][0] != 0 || psi[1][0] != 0 {
		t.Errorf("fresh buffer not neutral: %v", psi)
	}
}

func TestConnectSymmetry(t *testing.T) {
	d := wrap(t, "basin", &fakeBasin{})
	c := wrap(t, "amoc", &fakeCoupler{})

	if err := c.AddLeft(d); err != nil {
		t.Fatal(err)
	}
	if len(c.Left()) != 1 || c.Left()[0] != d {
		t.Error("left link missing")
	}
	if len(d.Right()) != 1 || d.Right()[0] != c {
		t.Error("backlink missing")
	}

	nb := c.Neighbors()
	if len(nb) != 1 || nb[0] != d {
		t.Errorf("unexpected neighbor list: %v", nb)
	}
}

func TestConnectDuplicateEdge(t *testing.T) {
	d := wrap(t, "basin", &fakeBasin{})
	c := wrap(t, "amoc", &fakeCoupler{})
	if err := c.AddLeft(d); err != nil {
		t.Fatal(err)
	}

	if err := c.AddLeft(d); !errors.Is(err, ErrDuplicateEdge) {
		t.Errorf("expected ErrDuplicateEdge, got %v", err)
	}
	// the mirrored insertion is the same edge
	if err := d.AddRight(c); !errors.Is(err, ErrDuplicateEdge) {
		t.Errorf("expected ErrDuplicateEdge via backlink, got %v", err)
	}
	if len(c.Left()) != 1 || len(d.Right()) != 1 {
		t.Error("rejected edge mutated the graph")
	}
}

func TestCouplerCardinality(t *testing.T) {
	c := wrap(t, "amoc", &fakeCoupler{})
	d1 := wrap(t, "south", &fakeBasin{})
	d2 := wrap(t, "deep", &fakeBasin{})

	if err := c.AddLeft(d1); err != nil {
		t.Fatal(err)
	}
	if err := c.AddLeft(d2); !errors.Is(err, ErrCardinality) {
		t.Errorf("expected ErrCardinality, got %v", err)
	}
	if len(d2.Right()) != 0 {
		t.Error("failed edge left a dangling backlink")
	}

	// same rule when the full side is reached through the backlink
	d3 := wrap(t, "north", &fakeBasin{})
	if err := d3.AddRight(c); !errors.Is(err, ErrCardinality) {
		t.Errorf("expected ErrCardinality via backlink, got %v", err)
	}
	if len(d3.Right()) != 0 || len(c.Left()) != 1 {
		t.Error("failed edge mutated the graph")
	}
}

func TestBasinHoldsManyCouplers(t *testing.T) {
	d := wrap(t, "basin", &fakeBasin{})
	for _, name := range []string{"a", "b", "c"} {
		if err := d.AddRight(wrap(t, name, &fakeCoupler{})); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
	}
	if len(d.Right()) != 3 {
		t.Errorf("expected 3 couplers on one boundary, got %d", len(d.Right()))
	}
}

func TestDispatchErrors(t *testing.T) {
	d := wrap(t, "basin", &fakeBasin{b: []float64{0}})
	c := wrap(t, "amoc", &fakeCoupler{})

	if err := d.UpdateCoupler(); !errors.Is(err, ErrNotCoupler) {
		t.Errorf("expected ErrNotCoupler, got %v", err)
	}
	if err := c.TimestepBasin(1); !errors.Is(err, ErrNotBasin) {
		t.Errorf("expected ErrNotBasin, got %v", err)
	}
}

func TestNetFlux(t *testing.T) {
	fb := &fakeBasin{b: []float64{1, 2, 3}}
	d := wrap(t, "basin", fb)
	cr := wrap(t, "east", &fakeCoupler{})
	cl := wrap(t, "west", &fakeCoupler{})
	if err := d.AddRight(cr); err != nil {
		t.Fatal(err)
	}
	if err := d.AddLeft(cl); err != nil {
		t.Fatal(err)
	}

	// inflow reads the first profile, outflow the last
	cr.psi = [][]float64{{1, 1, 1}, {9, 9, 9}}
	cl.psi = [][]float64{{9, 9, 9}, {2, 2, 2}}

	if err := d.TimestepBasin(10); err != nil {
		t.Fatal(err)
	}
	if len(fb.flux) != 3 {
		t.Fatalf("expected flux on the basin grid, got %d points", len(fb.flux))
	}
	for i, v := range fb.flux {
		if math.Abs(v-(-1e6)) > 1e-6 {
			t.Errorf("flux[%d] = %g, expected -1e6", i, v)
		}
	}
}

func TestNetFluxNeutralBroadcast(t *testing.T) {
	fb := &fakeBasin{b: []float64{1, 2, 3}}
	d := wrap(t, "basin", fb)
	if err := d.AddRight(wrap(t, "east", &fakeCoupler{})); err != nil {
		t.Fatal(err)
	}

	if err := d.TimestepBasin(10); err != nil {
		t.Fatal(err)
	}
	for i, v := range fb.flux {
		if v != 0 {
			t.Errorf("neutral buffer must broadcast zero, got %g at %d", v, i)
		}
	}
}

func TestUpdateCoupler(t *testing.T) {
	fc := &fakeCoupler{psi: []float64{0, 5, 0}}
	c := wrap(t, "amoc", fc)
	lb := &fakeBasin{b: []float64{1, 2}}
	rb := &fakeBasin{b: []float64{3, 4}}
	if err := c.AddLeft(wrap(t, "south", lb)); err != nil {
		t.Fatal(err)
	}
	if err := c.AddRight(wrap(t, "north", rb)); err != nil {
		t.Fatal(err)
	}

	if err := c.UpdateCoupler(); err != nil {
		t.Fatal(err)
	}
	if fc.solves != 1 {
		t.Errorf("expected one solve, got %d", fc.solves)
	}
	if got, ok := fc.left.([]float64); !ok || got[0] != 1 {
		t.Errorf("left boundary not bound: %v", fc.left)
	}
	if got, ok := fc.right.([]float64); !ok || got[0] != 3 {
		t.Errorf("right boundary not bound: %v", fc.right)
	}

	psi := c.Psi()
	if len(psi) != 1 || len(psi[0]) != 3 || psi[0][1] != 5 {
		t.Errorf("buffer not refreshed from the streamfunction: %v", psi)
	}
}

func TestUpdateCouplerRemap(t *testing.T) {
	fc := &fakeRemapCoupler{profiles: [][]float64{{1, 2}, {3, 4}}}
	c := wrap(t, "amoc", fc)

	if err := c.UpdateCoupler(); err != nil {
		t.Fatal(err)
	}
	psi := c.Psi()
	if len(psi) != 2 || psi[0][1] != 2 || psi[1][0] != 3 {
		t.Errorf("buffer should hold the remapped profiles: %v", psi)
	}

	fc.remapErr = errors.New("empty axis")
	if err := c.UpdateCoupler(); err == nil {
		t.Error("remap failure must propagate")
	}
}

func TestUpdateSurfaceCoupler(t *testing.T) {
	fc := &fakeSurfaceCoupler{psi: []float64{0, 1, 0}}
	c := wrap(t, "mixed layer", fc)
	boundary := &fakeBasin{b: []float64{0.02}}
	surface := &fakeSurface{b: []float64{0.01}}
	if err := c.AddLeft(wrap(t, "interior", boundary)); err != nil {
		t.Fatal(err)
	}
	if err := c.AddRight(wrap(t, "surface", surface)); err != nil {
		t.Fatal(err)
	}

	if err := c.UpdateCoupler(); err != nil {
		t.Fatal(err)
	}
	if got, ok := fc.surface.([]float64); !ok || got[0] != 0.01 {
		t.Errorf("surface input should come from the right neighbor: %v", fc.surface)
	}
	if got, ok := fc.boundary.([]float64); !ok || got[0] != 0.02 {
		t.Errorf("boundary input should come from the left neighbor: %v", fc.boundary)
	}
	if fc.solves != 1 {
		t.Errorf("expected one solve, got %d", fc.solves)
	}
}

func TestUniversalTransport(t *testing.T) {
	fs := &fakeSurface{b: []float64{0.1}}
	d := wrap(t, "surface", fs)
	c1 := wrap(t, "east", &fakeCoupler{})
	c2 := wrap(t, "west", &fakeCoupler{})
	d1 := wrap(t, "deep east", &fakeBasin{b: []float64{0, 0.25, 0.5}})
	d2 := wrap(t, "deep west", &fakeBasin{b: []float64{0.125, 0.375, 0.625}})

	for _, err := range []error{
		d.AddRight(c1), d.AddRight(c2),
		c1.AddRight(d1), c2.AddRight(d2),
	} {
		if err != nil {
			t.Fatal(err)
		}
	}
	c1.psi = [][]float64{{0, 1, 0}, {0, 1, 0}}
	c2.psi = [][]float64{{0, 2, 0}, {0, 2, 0}}

	if err := d.TimestepBasin(10); err != nil {
		t.Fatal(err)
	}

	// joint samples are spaced 0.125 apart, so the shared axis has 6
	// levels from 0 to 0.625
	if len(fs.axis) != 6 {
		t.Fatalf("expected 6 axis levels, got %d", len(fs.axis))
	}
	if fs.axis[0] != 0 || fs.axis[5] != 0.625 {
		t.Errorf("axis endpoints %g..%g, expected 0..0.625", fs.axis[0], fs.axis[5])
	}
	// at b = 0.25 the east branch peaks (1) and the west branch is
	// halfway up its own peak (1)
	if math.Abs(fs.psi[2]-2) > 1e-12 {
		t.Errorf("summed transport at axis[2] = %g, expected 2", fs.psi[2])
	}
	if fs.psi[0] != 0 {
		t.Errorf("expected zero transport at the light end, got %g", fs.psi[0])
	}
}

func TestUniversalTransportDegenerate(t *testing.T) {
	d := wrap(t, "surface", &fakeSurface{b: []float64{0.1}})
	if err := d.TimestepBasin(10); !errors.Is(err, ErrDegenerateAxis) {
		t.Errorf("expected ErrDegenerateAxis without couplers, got %v", err)
	}

	c := wrap(t, "east", &fakeCoupler{})
	flat := wrap(t, "deep", &fakeBasin{b: []float64{0.5, 0.5, 0.5}})
	if err := d.AddRight(c); err != nil {
		t.Fatal(err)
	}
	if err := c.AddRight(flat); err != nil {
		t.Fatal(err)
	}
	if err := d.TimestepBasin(10); !errors.Is(err, ErrDegenerateAxis) {
		t.Errorf("expected ErrDegenerateAxis for flat samples, got %v", err)
	}
}

func TestBuoyancyAccessor(t *testing.T) {
	if b := wrap(t, "basin", &fakeBasin{b: []float64{7}}).Buoyancy(); b[0] != 7 {
		t.Errorf("basin buoyancy not exposed: %v", b)
	}
	if b := wrap(t, "surface", &fakeSurface{b: []float64{8}}).Buoyancy(); b[0] != 8 {
		t.Errorf("surface buoyancy not exposed: %v", b)
	}
	if b := wrap(t, "amoc", &fakeCoupler{}).Buoyancy(); b != nil {
		t.Errorf("couplers expose no buoyancy, got %v", b)
	}
}
