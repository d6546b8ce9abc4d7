package column

import (
	"errors"
	"math"
	"testing"

	"github.com/okeanlab/mocsim/internal/grid"
)

func levels(t *testing.T, n int) []float64 {
	t.Helper()
	z, err := grid.Uniform(-100, 0, n)
	if err != nil {
		t.Fatal(err)
	}
	return z
}

func ramp(n int, lo, hi float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	return out
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{Area: 1e12, Kappa: 2e-5}); !errors.Is(err, grid.ErrGrid) {
		t.Errorf("expected ErrGrid without levels, got %v", err)
	}
	if _, err := New(Config{Z: []float64{0, -50, -100}, Area: 1e12, Kappa: 2e-5}); !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrConfig for top-down grid, got %v", err)
	}
	if _, err := New(Config{Z: levels(t, 5), Kappa: 2e-5}); !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrConfig for missing area, got %v", err)
	}
	if _, err := New(Config{Z: levels(t, 5), Area: 1e12}); !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrConfig for missing diffusivity, got %v", err)
	}
	if _, err := New(Config{Z: levels(t, 5), Area: 1e12, Kappa: "thick"}); !errors.Is(err, grid.ErrInvalidSpec) {
		t.Errorf("expected ErrInvalidSpec for bad kappa, got %v", err)
	}
}

func TestNewDefaultProfile(t *testing.T) {
	c, err := New(Config{Z: levels(t, 5), Area: 1e12, Kappa: 2e-5, BBot: 0.01})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range c.Buoyancy() {
		if v != 0.01 {
			t.Errorf("expected bottom value everywhere, got %g at %d", v, i)
		}
	}
}

func TestTimestepPinsBoundaries(t *testing.T) {
	c, err := New(Config{
		Z: levels(t, 11), Area: 1e12, Kappa: 2e-5,
		B: ramp(11, 0.005, 0.02), Bs: 0.03, BBot: 0.001,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Timestep([]float64{0}, 86400); err != nil {
		t.Fatal(err)
	}
	b := c.Buoyancy()
	if b[0] != 0.001 || b[10] != 0.03 {
		t.Errorf("Dirichlet values not pinned: %g, %g", b[0], b[10])
	}
}

func TestDiffusionSpreadsSpike(t *testing.T) {
	n := 11
	init := make([]float64, n)
	init[5] = 1

	c, err := New(Config{Z: levels(t, n), Area: 1e12, Kappa: 2e-5, B: init})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Timestep([]float64{0}, 86400); err != nil {
		t.Fatal(err)
	}

	b := c.Buoyancy()
	if b[5] >= 1 {
		t.Errorf("spike should decay, got %g", b[5])
	}
	if b[4] <= 0 || b[6] <= 0 {
		t.Errorf("spike should spread to its neighbors: %g, %g", b[4], b[6])
	}
	if math.Abs(b[4]-b[6]) > 1e-15 {
		t.Errorf("symmetric spike spread asymmetrically: %g vs %g", b[4], b[6])
	}
	// flux-form diffusion on a uniform grid conserves the interior sum
	sum := 0.0
	for _, v := range b {
		sum += v
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("diffusion lost buoyancy: sum %g", sum)
	}
}

func TestUpwindAdvection(t *testing.T) {
	n := 11
	init := ramp(n, 0, 0.03)
	area := 1e12
	w := 1e-6 // upwelling

	c, err := New(Config{Z: levels(t, n), Area: area, Kappa: 0.0, B: init, Bs: 0.03})
	if err != nil {
		t.Fatal(err)
	}
	dt := 86400.0
	if err := c.Timestep([]float64{area * w}, dt); err != nil {
		t.Fatal(err)
	}

	z := c.Z()
	b := c.Buoyancy()
	for i := 1; i < n-1; i++ {
		want := init[i] - dt*w*(init[i]-init[i-1])/(z[i]-z[i-1])
		if math.Abs(b[i]-want) > 1e-15 {
			t.Errorf("b[%d] = %g, expected %g", i, b[i], want)
		}
	}
}

func TestConvectiveAdjustment(t *testing.T) {
	c, err := New(Config{
		Z:      []float64{-300, -200, -100, 0},
		Area:   1e12,
		Kappa:  2e-5,
		B:      []float64{0, 0.03, 0.01, 0.03},
		Bs:     0.03,
		BBot:   0,
		DoConv: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Timestep([]float64{0}, 86400); err != nil {
		t.Fatal(err)
	}

	b := c.Buoyancy()
	for i := 0; i < len(b)-1; i++ {
		if b[i] > b[i+1]+1e-12 {
			t.Fatalf("profile still unstable at %d: %g > %g", i, b[i], b[i+1])
		}
	}
	// equal-thickness layers homogenize to their mean
	if math.Abs(b[1]-0.02) > 2e-3 || math.Abs(b[2]-0.02) > 2e-3 {
		t.Errorf("mixed pair should sit near 0.02: %g, %g", b[1], b[2])
	}
}

func TestStratificationFloor(t *testing.T) {
	n := 5
	c, err := New(Config{
		Z: levels(t, n), Area: 1e12, Kappa: 2e-5,
		B: 0.0, Bs: 0.03, N2Min: 1e-8,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Timestep([]float64{0}, 86400); err != nil {
		t.Fatal(err)
	}

	z := c.Z()
	b := c.Buoyancy()
	for i := 0; i < n-2; i++ {
		if gap := b[i+1] - b[i]; gap < 1e-8*(z[i+1]-z[i])-1e-15 {
			t.Errorf("stratification below floor at %d: %g", i, gap)
		}
	}
}

func TestTimestepDiverged(t *testing.T) {
	c, err := New(Config{Z: levels(t, 5), Area: 1e12, Kappa: 2e-5, B: []float64{0, math.NaN(), 0, 0, 0}})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Timestep([]float64{0}, 86400); !errors.Is(err, ErrUnstable) {
		t.Errorf("expected ErrUnstable, got %v", err)
	}
}

func TestNewSurfaceValidation(t *testing.T) {
	if _, err := NewSurface(SurfaceConfig{H: 50, L: 1e6}); !errors.Is(err, grid.ErrGrid) {
		t.Errorf("expected ErrGrid without axis, got %v", err)
	}
	if _, err := NewSurface(SurfaceConfig{Y: []float64{2e6, 1e6, 0}, H: 50, L: 1e6}); !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrConfig for southward axis, got %v", err)
	}
	if _, err := NewSurface(SurfaceConfig{Y: []float64{0, 1e6}, L: 1e6}); !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrConfig for missing depth, got %v", err)
	}
	if _, err := NewSurface(SurfaceConfig{Y: []float64{0, 1e6}, H: 50}); !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrConfig for missing zonal extent, got %v", err)
	}
}

func TestSurfaceRestoring(t *testing.T) {
	h, vPist, dt := 50.0, 2e-6, 86400.0
	s, err := NewSurface(SurfaceConfig{
		Y: []float64{0, 1e6, 2e6}, Bs: 0.01, BRest: 0.02,
		H: h, L: 1e6, VPist: vPist,
	})
	if err != nil {
		t.Fatal(err)
	}

	// no transport, no diffusion: restoring acts alone
	if err := s.TimestepProfile([]float64{0, 0}, []float64{0, 0.03}, dt); err != nil {
		t.Fatal(err)
	}
	want := 0.01 + dt*vPist/h*(0.02-0.01)
	for i, v := range s.SurfaceBuoyancy() {
		if math.Abs(v-want) > 1e-15 {
			t.Errorf("bs[%d] = %g, expected %g", i, v, want)
		}
	}
}

func TestSurfaceAdvection(t *testing.T) {
	h, l, dt := 50.0, 1e6, 86400.0
	init := []float64{0, 0.01, 0.02}
	s, err := NewSurface(SurfaceConfig{
		Y: []float64{0, 1e5, 2e5}, Bs: append([]float64(nil), init...), BRest: 0.0,
		H: h, L: l,
	})
	if err != nil {
		t.Fatal(err)
	}

	// constant 2 Sv northward through every buoyancy class
	if err := s.TimestepProfile([]float64{2, 2}, []float64{0, 0.02}, dt); err != nil {
		t.Fatal(err)
	}

	v := 2 * 1e6 / (h * l)
	want := init[1] - dt*v*(init[1]-init[0])/1e5
	bs := s.SurfaceBuoyancy()
	if math.Abs(bs[1]-want) > 1e-15 {
		t.Errorf("bs[1] = %g, expected %g", bs[1], want)
	}
	if bs[0] != init[0] || bs[2] != init[2] {
		t.Errorf("advection should leave the boundary samples alone: %g, %g", bs[0], bs[2])
	}
}

func TestSurfaceAxisMismatch(t *testing.T) {
	s, err := NewSurface(SurfaceConfig{Y: []float64{0, 1e6}, H: 50, L: 1e6})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.TimestepProfile([]float64{0, 0}, []float64{0, 0.01, 0.02}, 86400); !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrConfig for mismatched axis, got %v", err)
	}
}
