package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/raddecay/internal/engine"
	"github.com/san-kum/raddecay/internal/nucdata"
)

const (
	DefaultTimeUnit = "d"
	DefaultPoints   = 50
	DefaultLogLevel = "info"
	DefaultOutput   = "runs"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

// unitSeconds maps the time units accepted in configuration files to seconds.
var unitSeconds = map[string]float64{
	"s": 1,
	"m": 60,
	"h": 3600,
	"d": 86400,
	"y": 365.2422 * 86400,
}

type Config struct {
	LogLevel  string             `yaml:"log_level"`
	LogFormat string             `yaml:"log_format"`
	OutputDir string             `yaml:"output_dir"`
	Engine    EngineConfig       `yaml:"engine"`
	Dataset   DatasetConfig      `yaml:"dataset"`
	Inventory map[string]float64 `yaml:"inventory"`
	TimeUnit  string             `yaml:"time_unit"`
	Times     []float64          `yaml:"times,omitempty"`
	Grid      GridConfig         `yaml:"grid"`
}

type EngineConfig struct {
	DegeneracyThreshold float64 `yaml:"degeneracy_threshold"`
	PrecisionBits       uint    `yaml:"precision_bits"`
	BranchTolerance     float64 `yaml:"branch_tolerance"`
	MaxDepth            int     `yaml:"max_depth"`
	PruneBelow          float64 `yaml:"prune_below"`
	NegativeTolerance   float64 `yaml:"negative_tolerance"`
	CacheSize           int     `yaml:"cache_size"`
	Workers             int     `yaml:"workers"`
}

// DatasetConfig describes a nuclide table inline. An empty nuclide list
// selects the built-in sample table.
type DatasetConfig struct {
	Name     string          `yaml:"name"`
	Nuclides []NuclideConfig `yaml:"nuclides,omitempty"`
}

type NuclideConfig struct {
	ID       string         `yaml:"id"`
	HalfLife float64        `yaml:"half_life"`
	Stable   bool           `yaml:"stable,omitempty"`
	Progeny  []BranchConfig `yaml:"progeny,omitempty"`
}

type BranchConfig struct {
	ID       string  `yaml:"id"`
	Fraction float64 `yaml:"fraction"`
	Mode     string  `yaml:"mode,omitempty"`
}

// GridConfig spans End in Points evenly spaced steps from zero. It is used
// when Times is empty.
type GridConfig struct {
	End    float64 `yaml:"end"`
	Points int     `yaml:"points"`
}

func DefaultConfig() *Config {
	d := engine.DefaultConfig()
	return &Config{
		LogLevel:  DefaultLogLevel,
		LogFormat: "text",
		OutputDir: DefaultOutput,
		Engine: EngineConfig{
			DegeneracyThreshold: d.Threshold,
			PrecisionBits:       d.PrecisionBits,
			BranchTolerance:     d.BranchTolerance,
			MaxDepth:            d.MaxDepth,
			PruneBelow:          d.PruneBelow,
			NegativeTolerance:   d.NegativeTolerance,
			CacheSize:           d.CacheSize,
		},
		Dataset:   DatasetConfig{Name: "sample"},
		Inventory: map[string]float64{"Rn-222": 10},
		TimeUnit:  DefaultTimeUnit,
		Grid:      GridConfig{End: 30, Points: DefaultPoints},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	// yaml merges into non-nil maps; the file's inventory replaces the default.
	defaults := cfg.Inventory
	cfg.Inventory = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.Inventory == nil {
		cfg.Inventory = defaults
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if _, ok := unitSeconds[c.TimeUnit]; !ok {
		return fmt.Errorf("%w: unknown time unit %q", ErrInvalidConfig, c.TimeUnit)
	}
	if len(c.Inventory) == 0 {
		return fmt.Errorf("%w: empty inventory", ErrInvalidConfig)
	}
	for _, t := range c.Times {
		if t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("%w: time %g", ErrInvalidConfig, t)
		}
	}
	if len(c.Times) == 0 && (c.Grid.End <= 0 || c.Grid.Points < 2) {
		return fmt.Errorf("%w: need times or a grid with end > 0 and at least 2 points", ErrInvalidConfig)
	}
	return nil
}

// EngineConfig converts the engine section. Workers left at zero use the
// engine default.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		Threshold:         c.Engine.DegeneracyThreshold,
		PrecisionBits:     c.Engine.PrecisionBits,
		BranchTolerance:   c.Engine.BranchTolerance,
		MaxDepth:          c.Engine.MaxDepth,
		PruneBelow:        c.Engine.PruneBelow,
		NegativeTolerance: c.Engine.NegativeTolerance,
		CacheSize:         c.Engine.CacheSize,
		Workers:           c.Engine.Workers,
	}
}

// Provider builds the configured nuclide table.
func (c *Config) Provider() (*nucdata.Table, error) {
	if len(c.Dataset.Nuclides) == 0 {
		return nucdata.Sample(), nil
	}
	name := c.Dataset.Name
	if name == "" {
		name = "custom"
	}

	nuclides := make([]nucdata.Nuclide, 0, len(c.Dataset.Nuclides))
	for _, nc := range c.Dataset.Nuclides {
		id := nucdata.ID(nc.ID)
		if nc.Stable {
			nuclides = append(nuclides, nucdata.NewStable(id))
			continue
		}
		branches := make([]nucdata.Branch, len(nc.Progeny))
		for i, b := range nc.Progeny {
			branches[i] = nucdata.Branch{ID: nucdata.ID(b.ID), Fraction: b.Fraction, Mode: b.Mode}
		}
		nuclides = append(nuclides, nucdata.NewUnstable(id, nc.HalfLife, branches...))
	}
	return nucdata.NewTable(name, nuclides...)
}

func (c *Config) Contents() map[nucdata.ID]float64 {
	out := make(map[nucdata.ID]float64, len(c.Inventory))
	for id, q := range c.Inventory {
		out[nucdata.ID(id)] = q
	}
	return out
}

// UnitSeconds returns the length of the configured time unit in seconds.
func (c *Config) UnitSeconds() float64 {
	if s, ok := unitSeconds[c.TimeUnit]; ok {
		return s
	}
	return unitSeconds[DefaultTimeUnit]
}

// TimesSeconds returns the evaluation times in seconds, sorted.
func (c *Config) TimesSeconds() []float64 {
	unit := c.UnitSeconds()
	var times []float64
	if len(c.Times) > 0 {
		times = make([]float64, len(c.Times))
		for i, t := range c.Times {
			times[i] = t * unit
		}
		sort.Float64s(times)
		return times
	}

	n := c.Grid.Points
	times = make([]float64, n)
	for i := range times {
		times[i] = c.Grid.End * unit * float64(i) / float64(n-1)
	}
	return times
}

// ParseUnit reports the seconds in a time unit accepted by configuration files.
func ParseUnit(u string) (float64, error) {
	s, ok := unitSeconds[u]
	if !ok {
		return 0, fmt.Errorf("%w: unknown time unit %q", ErrInvalidConfig, u)
	}
	return s, nil
}
