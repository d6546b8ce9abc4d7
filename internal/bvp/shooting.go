// Package bvp solves second-order two-point boundary value problems by
// shooting: the unknown initial slope is iterated with the secant
// method until the far boundary condition is met, each trial solved as
// an initial value problem with fixed-step RK4.
package bvp

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoConvergence indicates the shooting iteration failed to satisfy
// the far boundary condition within the configured tolerance.
var ErrNoConvergence = errors.New("bvp: shooting iteration did not converge")

// RHS is the second derivative y'' = f(z, y, y').
type RHS func(z, y, dy float64) float64

type Solver struct {
	MaxIter  int
	Tol      float64 // relative residual tolerance at the far boundary
	Substeps int     // RK4 substeps per grid interval
}

func NewSolver() *Solver {
	return &Solver{MaxIter: 25, Tol: 1e-8, Substeps: 4}
}

// Solve integrates y'' = f over the nodes of z subject to y(z[0]) = a
// and y(z[n-1]) = b, returning y and y' at the nodes. init seeds the
// slope iteration: when non-nil it is a 2-row state whose second row's
// first element is the initial slope guess. Linear problems converge in
// a single secant step; anything that exhausts MaxIter surfaces as
// ErrNoConvergence carrying the final residual.
func (s *Solver) Solve(f RHS, z []float64, a, b float64, init [][]float64) ([]float64, []float64, error) {
	n := len(z)
	if n < 2 {
		return nil, nil, fmt.Errorf("bvp: grid needs at least 2 nodes, got %d", n)
	}

	s0 := 0.0
	if len(init) > 1 && len(init[1]) > 0 {
		s0 = init[1][0]
	}

	y0, dy0 := s.integrate(f, z, a, s0)
	r0 := y0[n-1] - b
	if s.converged(r0, y0) {
		return y0, dy0, nil
	}

	s1 := s0 + 1 + math.Abs(s0)
	y1, dy1 := s.integrate(f, z, a, s1)
	r1 := y1[n-1] - b
	if s.converged(r1, y1) {
		return y1, dy1, nil
	}

	for i := 0; i < s.MaxIter; i++ {
		if r1 == r0 {
			break
		}
		s2 := s1 - r1*(s1-s0)/(r1-r0)
		y2, dy2 := s.integrate(f, z, a, s2)
		r2 := y2[n-1] - b
		if s.converged(r2, y2) {
			return y2, dy2, nil
		}
		s0, r0 = s1, r1
		s1, r1, y1, dy1 = s2, r2, y2, dy2
	}
	return nil, nil, fmt.Errorf("%w: residual %.3e after %d iterations",
		ErrNoConvergence, math.Abs(r1), s.MaxIter)
}

func (s *Solver) converged(r float64, y []float64) bool {
	scale := 1.0
	for _, v := range y {
		if a := math.Abs(v); a > scale {
			scale = a
		}
	}
	return math.Abs(r) <= s.Tol*scale
}

// integrate advances the first-order system (y, y') from z[0] with the
// given initial slope, recording the state at every grid node.
func (s *Solver) integrate(f RHS, z []float64, a, slope float64) ([]float64, []float64) {
	n := len(z)
	y := make([]float64, n)
	dy := make([]float64, n)
	y[0], dy[0] = a, slope

	yi, di := a, slope
	for i := 0; i < n-1; i++ {
		h := (z[i+1] - z[i]) / float64(s.Substeps)
		zi := z[i]
		for k := 0; k < s.Substeps; k++ {
			k1y := di
			k1d := f(zi, yi, di)
			k2y := di + 0.5*h*k1d
			k2d := f(zi+0.5*h, yi+0.5*h*k1y, di+0.5*h*k1d)
			k3y := di + 0.5*h*k2d
			k3d := f(zi+0.5*h, yi+0.5*h*k2y, di+0.5*h*k2d)
			k4y := di + h*k3d
			k4d := f(zi+h, yi+h*k3y, di+h*k3d)
			h6 := h / 6.0
			yi += h6 * (k1y + 2*k2y + 2*k3y + k4y)
			di += h6 * (k1d + 2*k2d + 2*k3d + k4d)
			zi += h
		}
		y[i+1], dy[i+1] = yi, di
	}
	return y, dy
}
