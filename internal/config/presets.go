package config

import "sort"

// Presets are ready-made runs against the sample dataset.
var Presets = map[string]*Config{
	"radon": {
		Inventory: map[string]float64{"Rn-222": 10},
		TimeUnit:  "d", Grid: GridConfig{End: 30, Points: 61},
	},
	"radon-progeny": {
		Inventory: map[string]float64{"Rn-222": 1, "Po-218": 1, "Pb-214": 1, "Bi-214": 1},
		TimeUnit:  "h", Grid: GridConfig{End: 6, Points: 73},
	},
	"lead-210": {
		Inventory: map[string]float64{"Pb-210": 1},
		TimeUnit:  "y", Grid: GridConfig{End: 100, Points: 101},
	},
	"potassium": {
		Inventory: map[string]float64{"K-40": 1},
		TimeUnit:  "y", Times: []float64{0, 1e8, 1e9, 1.251e9, 5e9},
	},
	"fission": {
		Inventory: map[string]float64{"Cs-137": 1, "Sr-90": 1},
		TimeUnit:  "y", Grid: GridConfig{End: 100, Points: 101},
	},
	"tritium": {
		Inventory: map[string]float64{"H-3": 1},
		TimeUnit:  "y", Grid: GridConfig{End: 50, Points: 51},
	},
	"carbon": {
		Inventory: map[string]float64{"C-14": 1},
		TimeUnit:  "y", Times: []float64{0, 1000, 5700, 11400, 50000},
	},
}

// GetPreset returns the named preset over the default configuration, or
// nil if there is no such preset.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Inventory = make(map[string]float64, len(p.Inventory))
	for id, q := range p.Inventory {
		cfg.Inventory[id] = q
	}
	cfg.TimeUnit = p.TimeUnit
	cfg.Times = append([]float64(nil), p.Times...)
	if p.Grid.Points > 0 {
		cfg.Grid = p.Grid
	}
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
