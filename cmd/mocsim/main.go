package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/okeanlab/mocsim/internal/config"
	"github.com/okeanlab/mocsim/internal/export"
	"github.com/okeanlab/mocsim/internal/grid"
	"github.com/okeanlab/mocsim/internal/moc"
	"github.com/okeanlab/mocsim/internal/storage"
	"github.com/okeanlab/mocsim/internal/thermwind"
	"github.com/okeanlab/mocsim/internal/viz"
)

var (
	dataDir string
	verbose bool

	// solve flags
	coriolis float64
	depth    float64
	levels   int
	b1Surf   float64
	b2Surf   float64
	eFolding float64
	bins     int

	// export flags
	columnName string
	outPath    string
	svgScale   float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mocsim",
		Short: "meridional overturning circulation lab",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".mocsim", "data directory")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging")

	solveCmd := &cobra.Command{
		Use:   "solve",
		Short: "solve a single thermal-wind overturning",
		RunE:  solveOnce,
	}
	solveCmd.Flags().Float64Var(&coriolis, "f", 1e-4, "Coriolis parameter")
	solveCmd.Flags().Float64Var(&depth, "depth", 4000, "basin depth (m)")
	solveCmd.Flags().IntVar(&levels, "levels", 80, "vertical grid levels")
	solveCmd.Flags().Float64Var(&b1Surf, "b1", 0.03, "surface buoyancy, basin column")
	solveCmd.Flags().Float64Var(&b2Surf, "b2", 0.004, "surface buoyancy, formation column")
	solveCmd.Flags().Float64Var(&eFolding, "efold", 300, "buoyancy e-folding depth (m), 0 for uniform")
	solveCmd.Flags().IntVar(&bins, "bins", thermwind.DefaultBins, "isopycnal bins")

	runCmd := &cobra.Command{
		Use:   "run [scenario.yaml]",
		Short: "run a coupled scenario",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScenario,
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write the default scenario file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Save(args[0], config.Default())
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run's profiles",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored profile as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&columnName, "column", "", "profile column to export")
	exportCmd.Flags().StringVar(&outPath, "out", "profile.svg", "output path")
	exportCmd.Flags().Float64Var(&svgScale, "scale", 6, "SVG dot scale")

	rootCmd.AddCommand(solveCmd, runCmd, initCmd, listCmd, plotCmd, exportCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, viz.ErrStyle.Render(err.Error()))
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func profile(surface float64) grid.Func {
	if eFolding == 0 {
		return func(float64) float64 { return surface }
	}
	return func(z float64) float64 { return surface * math.Exp(z/eFolding) }
}

func solveOnce(cmd *cobra.Command, args []string) error {
	z, err := grid.Uniform(-depth, 0, levels)
	if err != nil {
		return err
	}
	tw, err := thermwind.New(thermwind.Config{
		F:  coriolis,
		Z:  z,
		B1: profile(b1Surf),
		B2: profile(b2Surf),
	})
	if err != nil {
		return err
	}
	if err := tw.Solve(); err != nil {
		return err
	}

	psi := tw.Streamfunction()
	psib, err := tw.IsopycnalTransport(bins)
	if err != nil {
		return err
	}

	maxPsi := 0.0
	for _, v := range psi {
		if math.Abs(v) > math.Abs(maxPsi) {
			maxPsi = v
		}
	}

	fmt.Println(viz.Title.Render("thermal-wind overturning"))
	fmt.Printf("f = %g 1/s, %d levels over %g m, peak Ψ = %s Sv\n\n",
		coriolis, levels, depth, viz.Value.Render(fmt.Sprintf("%.3f", maxPsi)))
	fmt.Println(viz.Profile(psi, "Ψ(z), Sv (bottom → surface)"))
	fmt.Println()
	fmt.Println(viz.Profile(psib, "cumulative isopycnal transport, Sv (light → dense axis)"))
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc := config.Default()
	if len(args) == 1 {
		var err error
		if sc, err = config.Load(args[0]); err != nil {
			return err
		}
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	model, err := config.Build(sc, log)
	if err != nil {
		return err
	}

	runCfg := moc.RunConfig{
		Dt:           sc.Run.Dt,
		CouplerEvery: sc.Run.CouplerEvery,
		Steps:        sc.Run.Steps,
	}
	if err := model.Run(context.Background(), runCfg); err != nil {
		return err
	}

	store := storage.New(dataDir)
	if err := store.Init(); err != nil {
		return err
	}
	runID, err := store.Save(sc.Name, runCfg, model)
	if err != nil {
		return err
	}

	fmt.Println(viz.Title.Render(sc.Name))
	fmt.Printf("saved as %s\n\n", viz.Value.Render(runID))
	for _, w := range model.Modules() {
		if b := w.Buoyancy(); b != nil {
			fmt.Println(viz.Profile(b, w.Name()+": buoyancy"))
		} else if psi := w.Psi()[0]; len(psi) > 1 {
			fmt.Println(viz.Profile(psi, w.Name()+": transport, Sv"))
		}
		fmt.Println()
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tSTEPS\tDT\tWHEN")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.0f\t%s\n",
			r.ID, r.Scenario, r.Steps, r.Dt, r.Timestamp.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	header, cols, err := storage.New(dataDir).LoadProfiles(args[0])
	if err != nil {
		return err
	}
	for i, name := range header {
		if len(cols[i]) < 2 {
			continue
		}
		fmt.Println(viz.Profile(cols[i], name))
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	header, cols, err := storage.New(dataDir).LoadProfiles(args[0])
	if err != nil {
		return err
	}
	for i, name := range header {
		if name != columnName {
			continue
		}
		if err := os.WriteFile(outPath, []byte(export.ProfileSVG(cols[i], svgScale)), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", outPath)
		return nil
	}
	return fmt.Errorf("no profile column %q in run %s (have %v)", columnName, args[0], header)
}
