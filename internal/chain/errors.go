package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/san-kum/raddecay/internal/nucdata"
)

var (
	// ErrCyclicChain indicates decay data that feeds a nuclide back into one
	// of its own ancestors.
	ErrCyclicChain = errors.New("chain: cyclic decay chain")

	// ErrMaxDepth indicates a path longer than the configured safety bound.
	ErrMaxDepth = errors.New("chain: maximum chain depth exceeded")
)

// CyclicChainError carries the offending path, ending with the repeated nuclide.
type CyclicChainError struct {
	Path []nucdata.ID
}

func (e *CyclicChainError) Error() string {
	parts := make([]string, len(e.Path))
	for i, id := range e.Path {
		parts[i] = string(id)
	}
	return fmt.Sprintf("%v: %s", ErrCyclicChain, strings.Join(parts, " → "))
}

func (e *CyclicChainError) Unwrap() error { return ErrCyclicChain }
