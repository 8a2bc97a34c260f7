package engine

import (
	"runtime"

	"github.com/san-kum/raddecay/internal/bateman"
	"github.com/san-kum/raddecay/internal/chain"
	"github.com/san-kum/raddecay/internal/inventory"
	"github.com/san-kum/raddecay/internal/precise"
)

// Config holds the numerical policy of an Engine. Zero fields fall back to
// the package defaults.
type Config struct {
	Threshold         float64
	PrecisionBits     uint
	BranchTolerance   float64
	MaxDepth          int
	PruneBelow        float64
	NegativeTolerance float64
	CacheSize         int
	Workers           int
}

func DefaultConfig() Config {
	return Config{
		Threshold:         bateman.DefaultThreshold,
		PrecisionBits:     precise.DefaultPrec,
		BranchTolerance:   chain.DefaultBranchTolerance,
		MaxDepth:          chain.DefaultMaxDepth,
		PruneBelow:        inventory.DefaultPruneBelow,
		NegativeTolerance: inventory.DefaultNegativeTolerance,
		CacheSize:         chain.DefaultCacheSize,
		Workers:           runtime.GOMAXPROCS(0),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Threshold <= 0 {
		c.Threshold = d.Threshold
	}
	if c.PrecisionBits == 0 {
		c.PrecisionBits = d.PrecisionBits
	}
	if c.BranchTolerance <= 0 {
		c.BranchTolerance = d.BranchTolerance
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = d.MaxDepth
	}
	if c.PruneBelow < 0 {
		c.PruneBelow = d.PruneBelow
	}
	if c.NegativeTolerance < 0 {
		c.NegativeTolerance = d.NegativeTolerance
	}
	if c.CacheSize <= 0 {
		c.CacheSize = d.CacheSize
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	return c
}
