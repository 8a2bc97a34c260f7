// Package engine ties the nuclide data, chain builder and Bateman solver
// together behind a single decay API.
//
// An Engine caches built chains and their solved coefficients by root
// nuclide. Both caches are bounded and safe for concurrent use, so one
// Engine can serve any number of goroutines.
package engine

import (
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/san-kum/raddecay/internal/bateman"
	"github.com/san-kum/raddecay/internal/chain"
	"github.com/san-kum/raddecay/internal/inventory"
	"github.com/san-kum/raddecay/internal/logging"
	"github.com/san-kum/raddecay/internal/nucdata"
)

type Option func(*Engine)

func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithChainCache shares a chain cache between engines on the same provider.
func WithChainCache(c *chain.Cache) Option {
	return func(e *Engine) { e.chains = c }
}

// solved is a chain with coefficients aligned to its paths.
type solved struct {
	chain  *chain.Chain
	coeffs []bateman.Coefficients
}

type Engine struct {
	provider nucdata.Provider
	cfg      Config
	log      *slog.Logger
	metrics  *Metrics

	chains  *chain.Cache
	builder *chain.Builder
	solver  *bateman.Solver

	solved *lru.Cache[nucdata.ID, *solved]
	flight singleflight.Group
}

func New(p nucdata.Provider, opts ...Option) (*Engine, error) {
	e := &Engine{
		provider: p,
		cfg:      DefaultConfig(),
		log:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.cfg = e.cfg.withDefaults()

	if e.chains == nil {
		c, err := chain.NewCache(e.cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("engine: chain cache: %w", err)
		}
		e.chains = c
	}
	s, err := lru.New[nucdata.ID, *solved](e.cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("engine: solved cache: %w", err)
	}
	e.solved = s

	e.builder = chain.NewBuilder(p,
		chain.WithMaxDepth(e.cfg.MaxDepth),
		chain.WithBranchTolerance(e.cfg.BranchTolerance),
		chain.WithCache(e.chains),
	)
	e.solver = bateman.NewSolver(
		bateman.WithThreshold(e.cfg.Threshold),
		bateman.WithPrecision(e.cfg.PrecisionBits),
	)
	e.metrics.watchChainCache(e.chains)
	return e, nil
}

func (e *Engine) Provider() nucdata.Provider { return e.provider }
func (e *Engine) Config() Config             { return e.cfg }

// ChainCacheStats returns cumulative chain cache hits and misses.
func (e *Engine) ChainCacheStats() (hits, misses int64) { return e.chains.Stats() }

// Decay returns the contents of an inventory after t seconds.
func (e *Engine) Decay(contents map[nucdata.ID]float64, t float64) (map[nucdata.ID]float64, error) {
	inv, err := e.NewInventory(contents)
	if err != nil {
		return nil, err
	}
	out, err := inv.Decay(t)
	if err != nil {
		return nil, err
	}
	return out.Contents(), nil
}

// NewInventory resolves every nuclide through the provider and returns an
// inventory that decays through e.
func (e *Engine) NewInventory(contents map[nucdata.ID]float64) (*inventory.Inventory, error) {
	for id := range contents {
		if _, err := e.provider.Lookup(id); err != nil {
			return nil, err
		}
	}
	return inventory.New(contents,
		inventory.WithEvolver(e),
		inventory.WithDataset(e.provider.Name()),
		inventory.WithPruneBelow(e.cfg.PruneBelow),
		inventory.WithNegativeTolerance(e.cfg.NegativeTolerance),
	)
}

func (e *Engine) BuildChain(root nucdata.ID) (*chain.Chain, error) {
	return e.builder.Build(root)
}

// Coefficients returns the solved chain of root with one coefficient set
// per path.
func (e *Engine) Coefficients(root nucdata.ID) (*chain.Chain, []bateman.Coefficients, error) {
	s, err := e.solve(root)
	if err != nil {
		return nil, nil, err
	}
	return s.chain, s.coeffs, nil
}

// Evolve evaluates the chain of every id at t for one unit of the root. Roots
// are solved in parallel, bounded by Config.Workers; each result slot is
// written by exactly one worker so the output does not depend on scheduling.
func (e *Engine) Evolve(ids []nucdata.ID, t float64) ([]map[nucdata.ID]float64, error) {
	out := make([]map[nucdata.ID]float64, len(ids))

	var g errgroup.Group
	g.SetLimit(e.cfg.Workers)
	for i, id := range ids {
		g.Go(func() error {
			s, err := e.solve(id)
			if err != nil {
				return err
			}
			out[i] = s.eval(t)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	e.metrics.evaluated(len(ids))
	return out, nil
}

// Series decays inv to each of times. Coefficients are solved once and
// reused for every time point.
func (e *Engine) Series(inv *inventory.Inventory, times []float64) ([]*inventory.Inventory, error) {
	out := make([]*inventory.Inventory, len(times))
	for i, t := range times {
		d, err := inv.Decay(t)
		if err != nil {
			return nil, fmt.Errorf("engine: series at t=%g: %w", t, err)
		}
		out[i] = d
	}
	return out, nil
}

func (s *solved) eval(t float64) map[nucdata.ID]float64 {
	res := make(map[nucdata.ID]float64, len(s.coeffs))
	for i, c := range s.coeffs {
		res[s.chain.Path(i).Target()] += c.Eval(t)
	}
	return res
}

func (e *Engine) solve(root nucdata.ID) (*solved, error) {
	if s, ok := e.solved.Get(root); ok {
		e.metrics.lookup(true)
		return s, nil
	}
	e.metrics.lookup(false)

	v, err, _ := e.flight.Do(string(root), func() (any, error) {
		ch, err := e.builder.Build(root)
		if err != nil {
			e.metrics.failed()
			e.log.Debug("chain build failed", "root", root, "dataset", e.provider.Name(), "error", err)
			return nil, err
		}

		coeffs := e.solver.SolveChain(ch)
		escalated := 0
		for i, c := range coeffs {
			e.metrics.pathSolved(c.Precise())
			if c.Precise() {
				escalated++
				e.log.Debug("precision escalated", "root", root, "path", ch.Path(i).String())
			}
		}
		e.log.Debug("chain solved",
			"root", root,
			"paths", ch.Len(),
			"targets", len(ch.Targets()),
			"depth", ch.Depth(),
			"escalated", escalated,
		)

		s := &solved{chain: ch, coeffs: coeffs}
		e.solved.Add(root, s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*solved), nil
}
