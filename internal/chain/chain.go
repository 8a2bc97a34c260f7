package chain

import (
	"fmt"
	"strings"

	"github.com/san-kum/raddecay/internal/nucdata"
)

// Path is one decay route from a chain root to a target nuclide. The same
// target may be reached by several paths; each carries its own decay
// constants and cumulative branching fraction.
type Path struct {
	nuclides  []nucdata.ID
	lambdas   []float64
	branching float64
}

// NewPath builds a path directly. Used by callers that solve synthetic
// paths without a dataset.
func NewPath(nuclides []nucdata.ID, lambdas []float64, branching float64) Path {
	if len(nuclides) != len(lambdas) {
		panic("chain: nuclides and lambdas differ in length")
	}
	p := Path{
		nuclides:  make([]nucdata.ID, len(nuclides)),
		lambdas:   make([]float64, len(lambdas)),
		branching: branching,
	}
	copy(p.nuclides, nuclides)
	copy(p.lambdas, lambdas)
	return p
}

func (p Path) Len() int             { return len(p.nuclides) }
func (p Path) Root() nucdata.ID     { return p.nuclides[0] }
func (p Path) Target() nucdata.ID   { return p.nuclides[len(p.nuclides)-1] }
func (p Path) Branching() float64   { return p.branching }
func (p Path) Lambda(i int) float64 { return p.lambdas[i] }

func (p Path) Nuclides() []nucdata.ID {
	out := make([]nucdata.ID, len(p.nuclides))
	copy(out, p.nuclides)
	return out
}

func (p Path) Lambdas() []float64 {
	out := make([]float64, len(p.lambdas))
	copy(out, p.lambdas)
	return out
}

func (p Path) contains(id nucdata.ID) bool {
	for _, n := range p.nuclides {
		if n == id {
			return true
		}
	}
	return false
}

func (p Path) extend(n nucdata.Nuclide, fraction float64) Path {
	next := Path{
		nuclides:  make([]nucdata.ID, len(p.nuclides), len(p.nuclides)+1),
		lambdas:   make([]float64, len(p.lambdas), len(p.lambdas)+1),
		branching: p.branching * fraction,
	}
	copy(next.nuclides, p.nuclides)
	copy(next.lambdas, p.lambdas)
	next.nuclides = append(next.nuclides, n.ID())
	next.lambdas = append(next.lambdas, n.Lambda())
	return next
}

func (p Path) String() string {
	parts := make([]string, len(p.nuclides))
	for i, id := range p.nuclides {
		parts[i] = string(id)
	}
	return fmt.Sprintf("%s (B=%g)", strings.Join(parts, " → "), p.branching)
}

// Chain is every decay path reachable from a root nuclide, in depth-first
// discovery order. Paths()[0] is always the root on its own. A Chain is
// immutable and may be shared between goroutines.
type Chain struct {
	root  nucdata.ID
	paths []Path
}

func (c *Chain) Root() nucdata.ID { return c.root }
func (c *Chain) Len() int         { return len(c.paths) }
func (c *Chain) Path(i int) Path  { return c.paths[i] }

func (c *Chain) Paths() []Path {
	out := make([]Path, len(c.paths))
	copy(out, c.paths)
	return out
}

// Targets returns the distinct nuclides reachable from the root, including
// the root, in discovery order.
func (c *Chain) Targets() []nucdata.ID {
	seen := make(map[nucdata.ID]bool, len(c.paths))
	out := make([]nucdata.ID, 0, len(c.paths))
	for _, p := range c.paths {
		t := p.Target()
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// PathsTo returns the paths ending at target.
func (c *Chain) PathsTo(target nucdata.ID) []Path {
	var out []Path
	for _, p := range c.paths {
		if p.Target() == target {
			out = append(out, p)
		}
	}
	return out
}

// Depth is the length of the longest path.
func (c *Chain) Depth() int {
	d := 0
	for _, p := range c.paths {
		if p.Len() > d {
			d = p.Len()
		}
	}
	return d
}
