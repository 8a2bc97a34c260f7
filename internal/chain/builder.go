package chain

import (
	"fmt"

	"github.com/san-kum/raddecay/internal/nucdata"
)

const (
	DefaultMaxDepth        = 64
	DefaultBranchTolerance = 1e-9
)

type Option func(*Builder)

// WithMaxDepth bounds the number of nuclides on a single path.
func WithMaxDepth(depth int) Option {
	return func(b *Builder) {
		if depth > 0 {
			b.maxDepth = depth
		}
	}
}

// WithBranchTolerance sets the allowed deviation of branching sums from one.
func WithBranchTolerance(tol float64) Option {
	return func(b *Builder) {
		if tol > 0 {
			b.tol = tol
		}
	}
}

// WithCache memoises chains across Build calls.
func WithCache(c *Cache) Option {
	return func(b *Builder) { b.cache = c }
}

// Builder expands decay graphs into chains. The traversal state lives in a
// single Build call, so one Builder may serve concurrent callers.
type Builder struct {
	provider nucdata.Provider
	maxDepth int
	tol      float64
	cache    *Cache
}

func NewBuilder(p nucdata.Provider, opts ...Option) *Builder {
	b := &Builder{
		provider: p,
		maxDepth: DefaultMaxDepth,
		tol:      DefaultBranchTolerance,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) Provider() nucdata.Provider { return b.provider }

// Build returns the chain rooted at root, from the cache when one is set.
func (b *Builder) Build(root nucdata.ID) (*Chain, error) {
	if b.cache == nil {
		return b.expand(root)
	}
	return b.cache.getOrBuild(root, func() (*Chain, error) {
		return b.expand(root)
	})
}

// expand walks the decay graph depth-first with an explicit stack. Each
// frame owns its path, so a nuclide on the current path can be detected
// as a cycle while the same nuclide reached through a sibling branch is a
// separate, legitimate path.
func (b *Builder) expand(root nucdata.ID) (*Chain, error) {
	validated := make(map[nucdata.ID]nucdata.Nuclide)
	lookup := func(id nucdata.ID) (nucdata.Nuclide, error) {
		if n, ok := validated[id]; ok {
			return n, nil
		}
		n, err := b.provider.Lookup(id)
		if err != nil {
			return nucdata.Nuclide{}, err
		}
		if err := nucdata.Validate(n, b.tol); err != nil {
			return nucdata.Nuclide{}, err
		}
		validated[id] = n
		return n, nil
	}

	rootNuclide, err := lookup(root)
	if err != nil {
		return nil, err
	}

	ch := &Chain{root: root}
	stack := []Path{NewPath([]nucdata.ID{root}, []float64{rootNuclide.Lambda()}, 1.0)}

	for len(stack) > 0 {
		path := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		ch.paths = append(ch.paths, path)

		parent := validated[path.Target()]
		if parent.Kind() == nucdata.Stable {
			continue
		}

		branches := parent.Branches()
		// Push in reverse so the dominant branch is expanded first.
		for i := len(branches) - 1; i >= 0; i-- {
			br := branches[i]
			if br.Fraction == 0 {
				continue
			}
			if path.contains(br.ID) {
				return nil, &CyclicChainError{Path: append(path.Nuclides(), br.ID)}
			}
			if path.Len()+1 > b.maxDepth {
				return nil, &nucdata.DataIntegrityError{
					ID:      root,
					Reason:  fmt.Sprintf("path longer than %d nuclides", b.maxDepth),
					Wrapped: ErrMaxDepth,
				}
			}

			child, err := lookup(br.ID)
			if err != nil {
				return nil, err
			}
			stack = append(stack, path.extend(child, br.Fraction))
		}
	}

	return ch, nil
}
