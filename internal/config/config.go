package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt           = 86400 * 30 // one month of seconds per basin step
	DefaultCouplerEvery = 24         // two years per coupler re-solve at the default dt
	DefaultSteps        = 1200
	DefaultKappa        = 2e-5
	DefaultCoriolis     = 1e-4
)

type Scenario struct {
	Name    string         `yaml:"name"`
	Grid    GridConfig     `yaml:"grid"`
	Run     RunConfig      `yaml:"run"`
	Modules []ModuleConfig `yaml:"modules"`
}

type GridConfig struct {
	Bottom float64 `yaml:"bottom"`
	Top    float64 `yaml:"top"`
	Levels int     `yaml:"levels"`
}

type RunConfig struct {
	Dt           float64 `yaml:"dt"`
	CouplerEvery int     `yaml:"coupler_every"`
	Steps        int     `yaml:"steps"`
}

type ModuleConfig struct {
	Name   string   `yaml:"name"`
	Type   string   `yaml:"type"` // column or thermwind
	Left   []string `yaml:"left"` // names of already-declared modules
	Right  []string `yaml:"right"`
	Params Params   `yaml:"params"`
}

type Params struct {
	F     float64 `yaml:"f"`
	Kappa float64 `yaml:"kappa"`
	Area  float64 `yaml:"area"`
	Bs    float64 `yaml:"bs"`
	BBot  float64 `yaml:"bbot"`

	// Initial profile b(z) = surface · exp(z / e_folding).
	BInit BInit `yaml:"b_init"`

	DoConv bool    `yaml:"do_conv"`
	N2Min  float64 `yaml:"n2_min"`
}

type BInit struct {
	Surface  float64 `yaml:"surface"`
	EFolding float64 `yaml:"e_folding"`
}

// Default is the two-column North Atlantic setup: an adv-diff basin
// and a deep water formation column mediated by a thermal-wind
// overturning.
func Default() *Scenario {
	return &Scenario{
		Name: "two-column AMOC",
		Grid: GridConfig{Bottom: -4000, Top: 0, Levels: 80},
		Run:  RunConfig{Dt: DefaultDt, CouplerEvery: DefaultCouplerEvery, Steps: DefaultSteps},
		Modules: []ModuleConfig{
			{
				Name: "Atlantic Basin",
				Type: "column",
				Params: Params{
					Kappa: DefaultKappa,
					Area:  6e13,
					Bs:    0.03,
					BInit: BInit{Surface: 0.03, EFolding: 300},
				},
			},
			{
				Name:   "AMOC",
				Type:   "thermwind",
				Left:   []string{"Atlantic Basin"},
				Params: Params{F: DefaultCoriolis},
			},
			{
				Name: "North Atlantic",
				Type: "column",
				Left: []string{"AMOC"},
				Params: Params{
					Kappa:  DefaultKappa,
					Area:   6e13 / 50,
					Bs:     0.004,
					BInit:  BInit{Surface: 3e-5, EFolding: 300},
					DoConv: true,
				},
			},
		},
	}
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc := Default()
	if err := yaml.Unmarshal(data, sc); err != nil {
		return nil, err
	}
	return sc, sc.Validate()
}

func Save(path string, sc *Scenario) error {
	data, err := yaml.Marshal(sc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (sc *Scenario) Validate() error {
	if sc.Grid.Levels < 2 {
		return fmt.Errorf("config: grid needs at least 2 levels, got %d", sc.Grid.Levels)
	}
	if sc.Grid.Bottom >= sc.Grid.Top {
		return fmt.Errorf("config: grid bottom %g must lie below top %g", sc.Grid.Bottom, sc.Grid.Top)
	}
	if sc.Run.Dt <= 0 {
		return fmt.Errorf("config: dt must be positive, got %g", sc.Run.Dt)
	}
	if sc.Run.CouplerEvery <= 0 {
		return fmt.Errorf("config: coupler_every must be positive, got %d", sc.Run.CouplerEvery)
	}
	if sc.Run.Steps <= 0 {
		return fmt.Errorf("config: steps must be positive, got %d", sc.Run.Steps)
	}
	if len(sc.Modules) == 0 {
		return fmt.Errorf("config: scenario declares no modules")
	}
	for _, mc := range sc.Modules {
		if mc.Name == "" {
			return fmt.Errorf("config: module of type %q has no name", mc.Type)
		}
		if mc.Type == "column" && mc.Params.BInit.Surface != 0 && mc.Params.BInit.EFolding == 0 {
			return fmt.Errorf("config: module %q: b_init needs a nonzero e_folding", mc.Name)
		}
	}
	return nil
}

// InitProfile returns the initial buoyancy function for a column.
func (p Params) InitProfile() func(float64) float64 {
	if p.BInit.EFolding == 0 {
		v := p.BBot
		return func(float64) float64 { return v }
	}
	return func(z float64) float64 {
		return p.BInit.Surface * math.Exp(z/p.BInit.EFolding)
	}
}
