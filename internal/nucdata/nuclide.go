package nucdata

import (
	"fmt"
	"math"
	"sort"
)

// ID is a canonical nuclide identifier such as "Rn-222" or "Tc-99m".
type ID string

// Kind tags a nuclide as stable or unstable.
type Kind int

const (
	Stable Kind = iota
	Unstable
)

func (k Kind) String() string {
	if k == Stable {
		return "stable"
	}
	return "unstable"
}

// Branch is one decay mode of a parent: the progeny it feeds and the
// fraction of decays that take this route.
type Branch struct {
	ID       ID
	Fraction float64
	Mode     string
}

// Nuclide holds the decay data of a single nuclide. Values are immutable
// once built; accessors hand out copies.
type Nuclide struct {
	id       ID
	halfLife float64
	lambda   float64
	progeny  []Branch
}

// NewStable returns a nuclide that does not decay.
func NewStable(id ID) Nuclide {
	return Nuclide{id: id, halfLife: math.Inf(1)}
}

// NewUnstable returns a nuclide with the given half-life in seconds. The
// branches are stored ordered by decreasing fraction.
func NewUnstable(id ID, halfLife float64, progeny ...Branch) Nuclide {
	branches := make([]Branch, len(progeny))
	copy(branches, progeny)
	sort.SliceStable(branches, func(i, j int) bool {
		return branches[i].Fraction > branches[j].Fraction
	})

	return Nuclide{
		id:       id,
		halfLife: halfLife,
		lambda:   math.Ln2 / halfLife,
		progeny:  branches,
	}
}

func (n Nuclide) ID() ID { return n.id }

func (n Nuclide) Kind() Kind {
	if n.lambda == 0 {
		return Stable
	}
	return Unstable
}

// Lambda is the decay constant in s⁻¹; zero for stable nuclides.
func (n Nuclide) Lambda() float64 { return n.lambda }

// HalfLife is in seconds; +Inf for stable nuclides.
func (n Nuclide) HalfLife() float64 { return n.halfLife }

// Branches returns the decay branches ordered by decreasing fraction.
func (n Nuclide) Branches() []Branch {
	out := make([]Branch, len(n.progeny))
	copy(out, n.progeny)
	return out
}

// Progeny returns the direct progeny ordered by decreasing branching fraction.
func (n Nuclide) Progeny() []ID {
	ids := make([]ID, len(n.progeny))
	for i, b := range n.progeny {
		ids[i] = b.ID
	}
	return ids
}

func (n Nuclide) BranchingFractions() []float64 {
	fs := make([]float64, len(n.progeny))
	for i, b := range n.progeny {
		fs[i] = b.Fraction
	}
	return fs
}

// DecayModes returns the decay mode labels as recorded in the dataset.
// A mode label does not necessarily list every emitted particle.
func (n Nuclide) DecayModes() []string {
	modes := make([]string, len(n.progeny))
	for i, b := range n.progeny {
		modes[i] = b.Mode
	}
	return modes
}

func (n Nuclide) String() string {
	if n.Kind() == Stable {
		return fmt.Sprintf("%s (stable)", n.id)
	}
	return fmt.Sprintf("%s (t½=%gs)", n.id, n.halfLife)
}

// Validate checks the branching data of n. Fractions of an unstable nuclide
// must sum to one within tol; they are never renormalised. Loops, including
// a nuclide listing itself, are reported by the chain builder.
func Validate(n Nuclide, tol float64) error {
	if n.Kind() == Stable {
		if len(n.progeny) > 0 {
			return &DataIntegrityError{ID: n.id, Reason: "stable nuclide lists progeny"}
		}
		return nil
	}

	if math.IsNaN(n.halfLife) || n.halfLife <= 0 {
		return &DataIntegrityError{ID: n.id, Reason: fmt.Sprintf("invalid half-life %g", n.halfLife)}
	}
	if len(n.progeny) == 0 {
		return &DataIntegrityError{ID: n.id, Reason: "unstable nuclide has no progeny"}
	}

	sum := 0.0
	for _, b := range n.progeny {
		if b.Fraction < 0 || b.Fraction > 1 || math.IsNaN(b.Fraction) {
			return &DataIntegrityError{ID: n.id, Reason: fmt.Sprintf("branching fraction %g to %s out of range", b.Fraction, b.ID)}
		}
		sum += b.Fraction
	}
	if math.Abs(sum-1) > tol {
		return &DataIntegrityError{ID: n.id, Reason: fmt.Sprintf("branching fractions sum to %.12g", sum)}
	}
	return nil
}
