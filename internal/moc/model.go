package moc

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Model owns the registry of wrapped modules and drives the staggered
// time-stepping discipline: basins integrate every micro-step against
// the transports from the previous coupler solve, and couplers
// re-solve on a coarser cadence from the updated basin buoyancy.
type Model struct {
	wrappers map[string]*Wrapper
	order    []*Wrapper
	log      *zap.Logger
}

func NewModel(log *zap.Logger) *Model {
	if log == nil {
		log = zap.NewNop()
	}
	return &Model{wrappers: make(map[string]*Wrapper), log: log}
}

// Add wraps mod, registers it under the normalized key, and links it
// to the given existing neighbors. The returned wrapper is the graph
// node for later linking and inspection.
func (m *Model) Add(name string, mod Module, lefts, rights []*Wrapper) (*Wrapper, error) {
	w, err := Wrap(name, mod)
	if err != nil {
		return nil, err
	}
	if _, ok := m.wrappers[w.key]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, w.key)
	}
	if err := w.AddNeighbors(lefts, rights); err != nil {
		return nil, err
	}
	m.wrappers[w.key] = w
	m.order = append(m.order, w)
	m.log.Debug("module registered",
		zap.String("name", name),
		zap.String("key", w.key),
		zap.Stringer("role", w.role))
	return w, nil
}

// Get looks a wrapper up by display name or normalized key.
func (m *Model) Get(name string) (*Wrapper, error) {
	w, ok := m.wrappers[Key(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModule, name)
	}
	return w, nil
}

// Modules returns the wrappers in registration order.
func (m *Model) Modules() []*Wrapper {
	return append([]*Wrapper(nil), m.order...)
}

type RunConfig struct {
	Dt           float64 // basin timestep, seconds
	CouplerEvery int     // basin steps per coupler re-solve
	Steps        int

	// Snapshot, when set, runs after every completed step. A non-nil
	// return aborts the run.
	Snapshot func(step int) error
}

// Run advances the whole network. Couplers are primed once before the
// first basin step so no basin integrates against the neutral
// transport buffer; after that, every step advances all basins in
// registration order and every CouplerEvery-th step re-solves all
// couplers. The first error aborts the run and propagates.
func (m *Model) Run(ctx context.Context, cfg RunConfig) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("moc: dt must be positive, got %g", cfg.Dt)
	}
	if cfg.CouplerEvery <= 0 {
		return fmt.Errorf("moc: coupler cadence must be positive, got %d", cfg.CouplerEvery)
	}
	if cfg.Steps <= 0 {
		return fmt.Errorf("moc: steps must be positive, got %d", cfg.Steps)
	}

	if err := m.updateCouplers(); err != nil {
		return err
	}

	logEvery := cfg.Steps / 10
	if logEvery == 0 {
		logEvery = 1
	}

	for step := 1; step <= cfg.Steps; step++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		for _, w := range m.order {
			if w.Kind() != KindBasin {
				continue
			}
			if err := w.TimestepBasin(cfg.Dt); err != nil {
				return fmt.Errorf("moc: step %d: %w", step, err)
			}
		}
		if step%cfg.CouplerEvery == 0 {
			if err := m.updateCouplers(); err != nil {
				return fmt.Errorf("moc: step %d: %w", step, err)
			}
		}
		if cfg.Snapshot != nil {
			if err := cfg.Snapshot(step); err != nil {
				return fmt.Errorf("moc: snapshot at step %d: %w", step, err)
			}
		}
		if step%logEvery == 0 {
			m.log.Debug("run progress", zap.Int("step", step), zap.Int("of", cfg.Steps))
		}
	}

	m.log.Info("run complete",
		zap.Int("steps", cfg.Steps),
		zap.Float64("dt", cfg.Dt),
		zap.Int("coupler_every", cfg.CouplerEvery))
	return nil
}

func (m *Model) updateCouplers() error {
	for _, w := range m.order {
		if w.Kind() != KindCoupler {
			continue
		}
		if err := w.UpdateCoupler(); err != nil {
			return err
		}
	}
	return nil
}
