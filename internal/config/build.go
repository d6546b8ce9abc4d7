package config

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/okeanlab/mocsim/internal/column"
	"github.com/okeanlab/mocsim/internal/grid"
	"github.com/okeanlab/mocsim/internal/moc"
	"github.com/okeanlab/mocsim/internal/thermwind"
)

// Build assembles the scenario into a coupled model. Modules are
// registered in declaration order; neighbor references must point at
// modules declared earlier in the list.
func Build(sc *Scenario, log *zap.Logger) (*moc.Model, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	z, err := grid.Uniform(sc.Grid.Bottom, sc.Grid.Top, sc.Grid.Levels)
	if err != nil {
		return nil, err
	}

	m := moc.NewModel(log)
	for _, mc := range sc.Modules {
		lefts, err := resolve(m, mc.Left)
		if err != nil {
			return nil, fmt.Errorf("config: module %q: %w", mc.Name, err)
		}
		rights, err := resolve(m, mc.Right)
		if err != nil {
			return nil, fmt.Errorf("config: module %q: %w", mc.Name, err)
		}

		mod, err := newModule(mc, z, lefts, rights)
		if err != nil {
			return nil, err
		}
		if _, err := m.Add(mc.Name, mod, lefts, rights); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func resolve(m *moc.Model, names []string) ([]*moc.Wrapper, error) {
	out := make([]*moc.Wrapper, 0, len(names))
	for _, name := range names {
		w, err := m.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

func newModule(mc ModuleConfig, z grid.Grid, lefts, rights []*moc.Wrapper) (moc.Module, error) {
	switch mc.Type {
	case "column":
		return column.New(column.Config{
			Z:      z,
			Kappa:  orDefault(mc.Params.Kappa, DefaultKappa),
			Area:   mc.Params.Area,
			B:      grid.Func(mc.Params.InitProfile()),
			Bs:     mc.Params.Bs,
			BBot:   mc.Params.BBot,
			DoConv: mc.Params.DoConv,
			N2Min:  mc.Params.N2Min,
		})
	case "thermwind":
		// seed the coupler with the neighbors' initial state; the run
		// driver replaces both profiles before the first solve anyway
		cfg := thermwind.Config{
			F: orDefault(mc.Params.F, DefaultCoriolis),
			Z: z,
		}
		if len(lefts) > 0 && lefts[0].Buoyancy() != nil {
			cfg.B1 = lefts[0].Buoyancy()
		} else {
			cfg.B1 = 0.0
		}
		if len(rights) > 0 && rights[0].Buoyancy() != nil {
			cfg.B2 = rights[0].Buoyancy()
		}
		return thermwind.New(cfg)
	}
	return nil, fmt.Errorf("config: unknown module type %q", mc.Type)
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
