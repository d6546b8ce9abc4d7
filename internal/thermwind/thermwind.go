// Package thermwind computes the overturning circulation between two
// columns from their buoyancy profiles, assuming a thermal-wind
// balance as in Nikurashin and Vallis (2012):
//
//	d²Ψ/dz² = (b2 − b1) / f
//
// solved subject to Ψ(0) = Ψ(−H) = 0. The closed-circulation boundary
// conditions at both ends differ from NV2012, which pins only one. An
// upwind isopycnal mapping converts the depth-space transport into
// buoyancy space.
package thermwind

import (
	"errors"
	"fmt"

	"github.com/okeanlab/mocsim/internal/bvp"
	"github.com/okeanlab/mocsim/internal/grid"
	"github.com/okeanlab/mocsim/internal/moc"
)

// Sv is the display transport unit, m³/s per Sverdrup.
const Sv = 1e6

// ErrNotSolved indicates transport output requested before Solve.
var ErrNotSolved = errors.New("thermwind: streamfunction not solved yet")

type Config struct {
	F  float64 // Coriolis parameter, 1/s
	Z  []float64
	B1 any // buoyancy in the basin: scalar, array, or grid.Func
	B2 any // buoyancy in the deep water formation region

	// SolInit optionally seeds the BVP iteration with a 2×len(Z)
	// state (value row, slope row). Defaults to all zero.
	SolInit [][]float64
}

// Thermwind is a coupler in the sense of the moc contract: its
// streamfunction balances the two basins whose buoyancy it is updated
// with.
type Thermwind struct {
	f  float64
	z  grid.Grid
	b1 grid.Func
	b2 grid.Func

	solInit [][]float64
	solver  *bvp.Solver

	psi   []float64 // last solved streamfunction on z, in Sv
	bAxis []float64 // buoyancy axis of the last isopycnal remap
}

func New(cfg Config) (*Thermwind, error) {
	if cfg.Z == nil {
		return nil, fmt.Errorf("%w: thermwind requires grid levels", grid.ErrGrid)
	}
	z, err := grid.New(cfg.Z)
	if err != nil {
		return nil, err
	}
	if cfg.F == 0 {
		cfg.F = 1.2e-4
	}
	if cfg.B2 == nil {
		cfg.B2 = 0.0
	}

	t := &Thermwind{f: cfg.F, z: z, solver: bvp.NewSolver()}
	if t.b1, err = grid.ToFunc(cfg.B1, z); err != nil {
		return nil, fmt.Errorf("thermwind: b1: %w", err)
	}
	if t.b2, err = grid.ToFunc(cfg.B2, z); err != nil {
		return nil, fmt.Errorf("thermwind: b2: %w", err)
	}

	if cfg.SolInit != nil {
		if len(cfg.SolInit) != 2 || len(cfg.SolInit[0]) != z.Len() || len(cfg.SolInit[1]) != z.Len() {
			return nil, fmt.Errorf("thermwind: sol_init must be 2×%d", z.Len())
		}
		t.solInit = cfg.SolInit
	} else {
		t.solInit = [][]float64{make([]float64, z.Len()), make([]float64, z.Len())}
	}
	return t, nil
}

func (t *Thermwind) Kind() moc.Kind { return moc.KindCoupler }

func (t *Thermwind) Z() grid.Grid { return t.z }

func (t *Thermwind) F() float64 { return t.f }

// Streamfunction returns the last solved Ψ on the vertical grid, in
// Sv; nil until Solve has run.
func (t *Thermwind) Streamfunction() []float64 { return t.psi }

// BAxis returns the buoyancy axis of the last isopycnal remap.
func (t *Thermwind) BAxis() []float64 { return t.bAxis }

// Buoyancies samples both profiles on the grid.
func (t *Thermwind) Buoyancies() (b1, b2 []float64) {
	b1, _ = grid.ToArray(t.b1, t.z)
	b2, _ = grid.ToArray(t.b2, t.z)
	return b1, b2
}

// Solve runs the boundary value problem and stores the streamfunction
// evaluated on the original grid, scaled to Sv. Non-convergence of the
// shooting iteration propagates; it is never accepted silently.
func (t *Thermwind) Solve() error {
	rhs := func(z, _, _ float64) float64 {
		return (t.b2(z) - t.b1(z)) / t.f
	}
	y, _, err := t.solver.Solve(rhs, t.z, 0, 0, t.solInit)
	if err != nil {
		return fmt.Errorf("thermwind: %w", err)
	}
	psi := make([]float64, len(y))
	for i, v := range y {
		psi[i] = v / Sv
	}
	t.psi = psi
	return nil
}

// Update replaces either buoyancy profile in place. It does not
// re-solve; callers decide when the BVP is recomputed.
func (t *Thermwind) Update(b1, b2 any) error {
	if b1 != nil {
		fn, err := grid.ToFunc(b1, t.z)
		if err != nil {
			return fmt.Errorf("thermwind: b1: %w", err)
		}
		t.b1 = fn
	}
	if b2 != nil {
		fn, err := grid.ToFunc(b2, t.z)
		if err != nil {
			return fmt.Errorf("thermwind: b2: %w", err)
		}
		t.b2 = fn
	}
	return nil
}
