package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/san-kum/raddecay/internal/config"
	"github.com/san-kum/raddecay/internal/engine"
	"github.com/san-kum/raddecay/internal/integrators"
	"github.com/san-kum/raddecay/internal/inventory"
	"github.com/san-kum/raddecay/internal/logging"
	"github.com/san-kum/raddecay/internal/nucdata"
	"github.com/san-kum/raddecay/internal/storage"
)

var (
	dataDir      string
	configFile   string
	preset       string
	logLevel     string
	logFormat    string
	atTime       float64
	unit         string
	showActivity bool
	showMetrics  bool
	method       string
	verifyTol    float64
	nuclideCol   string
	exportFormat string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "raddecay",
		Short:        "radioactive decay chain calculator",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".raddecay", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "decay the configured inventory over its time grid and save the run",
		Args:  cobra.NoArgs,
		RunE:  runSeries,
	}
	runCmd.Flags().BoolVar(&showActivity, "activity", false, "show activities (Bq per unit quantity)")
	runCmd.Flags().BoolVar(&showMetrics, "metrics", false, "print engine metrics to stderr")

	decayCmd := &cobra.Command{
		Use:   "decay [nuclide=quantity]...",
		Short: "decay an inventory to a single time",
		Args:  cobra.MinimumNArgs(1),
		RunE:  decayOnce,
	}
	decayCmd.Flags().Float64Var(&atTime, "time", 1, "decay time")
	decayCmd.Flags().StringVar(&unit, "unit", "d", "time unit (s, m, h, d, y)")
	decayCmd.Flags().BoolVar(&showActivity, "activity", false, "show activities (Bq per unit quantity)")

	chainCmd := &cobra.Command{
		Use:   "chain [nuclide]",
		Short: "show the decay paths from a nuclide",
		Args:  cobra.ExactArgs(1),
		RunE:  showChain,
	}

	nuclideCmd := &cobra.Command{
		Use:   "nuclide [nuclide]",
		Short: "show nuclide data, or list the dataset",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showNuclide,
	}

	verifyCmd := &cobra.Command{
		Use:   "verify [nuclide]",
		Short: "compare the analytic solution with numerical integration",
		Args:  cobra.ExactArgs(1),
		RunE:  verifyChain,
	}
	verifyCmd.Flags().Float64Var(&atTime, "time", 1, "decay time")
	verifyCmd.Flags().StringVar(&unit, "unit", "d", "time unit (s, m, h, d, y)")
	verifyCmd.Flags().StringVar(&method, "method", "rk45", "integrator (rk45, rk4, euler)")
	verifyCmd.Flags().Float64Var(&verifyTol, "tol", 1e-6, "accepted relative deviation")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&nuclideCol, "nuclide", "", "plot only this nuclide")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata (json) or series (csv)",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "output format (json, csv)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PRESET\tINVENTORY\tTIMES")
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				times := cfg.TimesSeconds()
				end := times[len(times)-1] / cfg.UnitSeconds()
				fmt.Fprintf(w, "%s\t%s\t%d points to %g %s\n", name, formatContents(cfg.Contents()), len(times), end, cfg.TimeUnit)
			}
			return w.Flush()
		},
	}

	rootCmd.AddCommand(runCmd, decayCmd, chainCmd, nuclideCmd, verifyCmd, listCmd, plotCmd, exportCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		cfg, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, nil
	}
	if preset != "" {
		cfg := config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		return cfg, nil
	}
	return config.DefaultConfig(), nil
}

// newEngine builds the engine for cfg. reg may be nil.
func newEngine(cfg *config.Config, reg prometheus.Registerer) (*engine.Engine, error) {
	p, err := cfg.Provider()
	if err != nil {
		return nil, err
	}

	level, format := cfg.LogLevel, cfg.LogFormat
	if logLevel != "" {
		level = logLevel
	}
	if logFormat != "" {
		format = logFormat
	}

	opts := []engine.Option{
		engine.WithConfig(cfg.EngineConfig()),
		engine.WithLogger(logging.New(level, format, os.Stderr)),
	}
	if reg != nil {
		opts = append(opts, engine.WithMetrics(engine.NewMetrics(reg)))
	}
	return engine.New(p, opts...)
}

func runSeries(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	eng, err := newEngine(cfg, reg)
	if err != nil {
		return err
	}

	inv, err := eng.NewInventory(cfg.Contents())
	if err != nil {
		return err
	}
	times := cfg.TimesSeconds()

	fmt.Printf("decaying %s over %d points...\n", formatContents(cfg.Contents()), len(times))
	start := time.Now()
	series, err := eng.Series(inv, times)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(storage.RunMetadata{
		Dataset:   eng.Provider().Name(),
		TimeUnit:  cfg.TimeUnit,
		Initial:   cfg.Inventory,
		Threshold: eng.Config().Threshold,
	}, storage.NewSeries(times, series))
	if err != nil {
		return err
	}

	last := series[len(series)-1]
	fmt.Println(field("run id", runID))
	fmt.Println(field("completed in", elapsed.String()))
	fmt.Println(field("final time", fmt.Sprintf("%g %s", times[len(times)-1]/cfg.UnitSeconds(), cfg.TimeUnit)))
	fmt.Println()
	if err := printInventory(os.Stdout, last, eng.Provider(), showActivity); err != nil {
		return err
	}

	if showMetrics {
		return writeMetrics(os.Stderr, reg)
	}
	return nil
}

func decayOnce(cmd *cobra.Command, args []string) error {
	contents, err := parseContents(args)
	if err != nil {
		return err
	}
	secs, err := config.ParseUnit(unit)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, err := newEngine(cfg, nil)
	if err != nil {
		return err
	}

	inv, err := eng.NewInventory(contents)
	if err != nil {
		return err
	}
	out, err := inv.Decay(atTime * secs)
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("%s after %g %s", formatContents(contents), atTime, unit)))
	return printInventory(os.Stdout, out, eng.Provider(), showActivity)
}

func showChain(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, err := newEngine(cfg, nil)
	if err != nil {
		return err
	}

	ch, coeffs, err := eng.Coefficients(nucdata.ID(args[0]))
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("chain %s", ch.Root())))
	fmt.Println(field("paths", strconv.Itoa(ch.Len())))
	fmt.Println(field("nuclides", strconv.Itoa(len(ch.Targets()))))
	fmt.Println(field("depth", strconv.Itoa(ch.Depth())))
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TARGET\tBRANCHING\tMODE\tPATH")
	for i, p := range ch.Paths() {
		mode := subtle.Render("fast")
		if coeffs[i].Precise() {
			mode = preciseStyle.Render("precise")
		}
		fmt.Fprintf(w, "%s\t%g\t%s\t%s\n", p.Target(), p.Branching(), mode, strings.Join(idStrings(p.Nuclides()), " → "))
	}
	return w.Flush()
}

func showNuclide(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	table, err := cfg.Provider()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NUCLIDE\tKIND\tHALF-LIFE (s)\tPROGENY")
		for _, id := range table.IDs() {
			n, err := table.Lookup(id)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s\t%g\t%s\n", id, n.Kind(), n.HalfLife(), strings.Join(idStrings(n.Progeny()), ", "))
		}
		return w.Flush()
	}

	id := nucdata.ID(args[0])
	n, err := table.Lookup(id)
	if err != nil {
		return err
	}
	desc, err := nucdata.Describe(table, id)
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render(desc))
	fmt.Println(field("kind", n.Kind().String()))
	fmt.Println(field("half-life (s)", num(n.HalfLife())))
	fmt.Println(field("lambda (1/s)", num(n.Lambda())))
	for _, b := range n.Branches() {
		fmt.Println(field("progeny", fmt.Sprintf("%s  %g  %s", b.ID, b.Fraction, b.Mode)))
	}
	return nil
}

func verifyChain(cmd *cobra.Command, args []string) error {
	root := nucdata.ID(args[0])
	secs, err := config.ParseUnit(unit)
	if err != nil {
		return err
	}
	t := atTime * secs

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, err := newEngine(cfg, nil)
	if err != nil {
		return err
	}

	ch, err := eng.BuildChain(root)
	if err != nil {
		return err
	}
	sys, err := integrators.NewDecaySystem(eng.Provider(), ch)
	if err != nil {
		return err
	}
	analytic, err := eng.Evolve([]nucdata.ID{root}, t)
	if err != nil {
		return err
	}

	start := time.Now()
	x, err := integrate(sys, root, t)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	numeric := sys.Quantities(x)

	fmt.Println(headerStyle.Render(fmt.Sprintf("%s after %g %s: analytic vs %s", root, atTime, unit, method)))
	fmt.Println(field("integration", elapsed.String()))
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NUCLIDE\tANALYTIC\tNUMERIC\tREL. DIFF")
	worst := 0.0
	for _, id := range sys.Nuclides() {
		a, n := analytic[0][id], numeric[id]
		rel := 0.0
		if a > 1e-12 {
			rel = math.Abs(n-a) / a
			worst = math.Max(worst, rel)
		}
		fmt.Fprintf(w, "%s\t%.10g\t%.10g\t%.2e\n", id, a, n, rel)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	if worst > verifyTol {
		fmt.Println(failStyle.Render(fmt.Sprintf("max relative deviation %.2e exceeds %.1e", worst, verifyTol)))
		return fmt.Errorf("verification failed for %s", root)
	}
	fmt.Println(okStyle.Render(fmt.Sprintf("max relative deviation %.2e", worst)))
	return nil
}

// maxFixedSteps bounds fixed-step integration in verify; stiff chains need
// the adaptive method or a shorter time.
const maxFixedSteps = 10_000_000

func integrate(sys *integrators.DecaySystem, root nucdata.ID, t float64) (integrators.State, error) {
	x0 := sys.Initial(root, 1)
	dt := 0.05 / sys.MaxLambda()
	if math.IsInf(dt, 1) || dt > t/100 {
		dt = t / 100
	}

	switch method {
	case "rk45":
		x, _, err := integrators.NewRK45().Solve(sys, x0, 0, t, dt, 1e-10)
		if errors.Is(err, integrators.ErrTooManySteps) {
			return nil, fmt.Errorf("%w: chain too stiff for %g s", err, t)
		}
		return x, err
	case "rk4", "euler":
		if t/dt > maxFixedSteps {
			return nil, fmt.Errorf("%s needs more than %d steps for this chain; use rk45 or a shorter time", method, maxFixedSteps)
		}
		var integ integrators.Integrator = integrators.NewRK4()
		if method == "euler" {
			integ = integrators.NewEuler()
		}
		return integrators.Integrate(integ, sys, x0, 0, t, dt)
	default:
		return nil, fmt.Errorf("unknown method: %s (available: rk45, rk4, euler)", method)
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATASET\tTIME\tINVENTORY\tPOINTS\tEND")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%gs\n",
			run.ID,
			run.Dataset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			formatInitial(run.Initial),
			run.Points,
			run.End,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	series, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}
	if len(series.Times) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Println(field("run", meta.ID))
	fmt.Println(field("dataset", meta.Dataset))
	fmt.Println(field("samples", strconv.Itoa(len(series.Times))))
	fmt.Println()

	ids := series.Nuclides
	if nuclideCol != "" {
		ids = []nucdata.ID{nucdata.ID(nuclideCol)}
	}
	const maxPlots = 6
	if len(ids) > maxPlots {
		ids = largestFinal(series, maxPlots)
	}

	end := series.Times[len(series.Times)-1]
	for _, id := range ids {
		data := series.Column(id)
		if data == nil {
			return fmt.Errorf("%s not in run %s", id, runID)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("%s, 0 to %g s", id, end)),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)

	switch exportFormat {
	case "json":
		meta, err := st.Load(runID)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	case "csv":
		series, err := st.LoadSeries(runID)
		if err != nil {
			return err
		}
		return storage.WriteCSV(os.Stdout, series)
	default:
		return fmt.Errorf("unknown format: %s (available: json, csv)", exportFormat)
	}
}

func printInventory(out io.Writer, inv *inventory.Inventory, p nucdata.Provider, activity bool) error {
	var acts map[nucdata.ID]float64
	if activity {
		var err error
		if acts, err = inv.Activities(p); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if activity {
		fmt.Fprintln(w, "NUCLIDE\tQUANTITY\tACTIVITY")
	} else {
		fmt.Fprintln(w, "NUCLIDE\tQUANTITY")
	}
	ids := inv.Nuclides()
	for i, q := range inv.Quantities() {
		if activity {
			fmt.Fprintf(w, "%s\t%.10g\t%.10g\n", ids[i], q, acts[ids[i]])
		} else {
			fmt.Fprintf(w, "%s\t%.10g\n", ids[i], q)
		}
	}
	return w.Flush()
}

func writeMetrics(out io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(out, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

// parseContents reads "Rn-222=10" arguments; a bare ID means one unit.
func parseContents(args []string) (map[nucdata.ID]float64, error) {
	out := make(map[nucdata.ID]float64, len(args))
	for _, arg := range args {
		id, qs, found := strings.Cut(arg, "=")
		q := 1.0
		if found {
			var err error
			if q, err = strconv.ParseFloat(qs, 64); err != nil {
				return nil, fmt.Errorf("invalid quantity in %q: %w", arg, err)
			}
		}
		out[nucdata.ID(id)] += q
	}
	return out, nil
}

func formatContents(c map[nucdata.ID]float64) string {
	m := make(map[string]float64, len(c))
	for id, q := range c {
		m[string(id)] = q
	}
	return formatInitial(m)
}

func formatInitial(c map[string]float64) string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%g", k, c[k])
	}
	return strings.Join(parts, " ")
}

func idStrings(ids []nucdata.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

// largestFinal picks the n columns with the largest final value.
func largestFinal(s storage.Series, n int) []nucdata.ID {
	last := s.Values[len(s.Values)-1]
	idx := make([]int, len(s.Nuclides))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return last[idx[a]] > last[idx[b]] })
	ids := make([]nucdata.ID, 0, n)
	for _, i := range idx[:n] {
		ids = append(ids, s.Nuclides[i])
	}
	return ids
}
