package inventory

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/raddecay/internal/nucdata"
)

const (
	// DefaultPruneBelow drops decay products smaller than this from decay
	// results. This is a deliberate approximation that keeps inventories of
	// long chains with very short-lived members bounded.
	DefaultPruneBelow = 1e-30

	// DefaultNegativeTolerance is the relative noise accepted by Subtract
	// before a negative result is reported.
	DefaultNegativeTolerance = 1e-9
)

// Evolver produces, for each source nuclide, the amounts of every nuclide
// in its chain at time t per unit of the source at t = 0. Results are
// indexed like ids.
type Evolver interface {
	Evolve(ids []nucdata.ID, t float64) ([]map[nucdata.ID]float64, error)
}

type Option func(*Inventory)

func WithEvolver(e Evolver) Option {
	return func(inv *Inventory) { inv.evolver = e }
}

// WithDataset labels the inventory with the dataset its nuclides come from.
func WithDataset(name string) Option {
	return func(inv *Inventory) { inv.dataset = name }
}

// WithPruneBelow sets the decay-result pruning threshold; zero keeps everything.
func WithPruneBelow(v float64) Option {
	return func(inv *Inventory) {
		if v >= 0 {
			inv.pruneBelow = v
		}
	}
}

func WithNegativeTolerance(v float64) Option {
	return func(inv *Inventory) {
		if v >= 0 {
			inv.negTol = v
		}
	}
}

// Inventory maps nuclides to quantities. It is never modified after New;
// every operation returns a new Inventory, so values may be shared freely
// between goroutines.
type Inventory struct {
	contents   map[nucdata.ID]float64
	evolver    Evolver
	dataset    string
	pruneBelow float64
	negTol     float64
}

func New(contents map[nucdata.ID]float64, opts ...Option) (*Inventory, error) {
	inv := &Inventory{
		contents:   make(map[nucdata.ID]float64, len(contents)),
		pruneBelow: DefaultPruneBelow,
		negTol:     DefaultNegativeTolerance,
	}
	for _, opt := range opts {
		opt(inv)
	}
	for id, q := range contents {
		if q < 0 || math.IsNaN(q) || math.IsInf(q, 0) {
			return nil, fmt.Errorf("%w: %s = %g", ErrInvalidQuantity, id, q)
		}
		inv.contents[id] = q
	}
	return inv, nil
}

// derive returns an empty inventory sharing the receiver's settings.
func (inv *Inventory) derive(size int) *Inventory {
	return &Inventory{
		contents:   make(map[nucdata.ID]float64, size),
		evolver:    inv.evolver,
		dataset:    inv.dataset,
		pruneBelow: inv.pruneBelow,
		negTol:     inv.negTol,
	}
}

func (inv *Inventory) Dataset() string { return inv.dataset }
func (inv *Inventory) Len() int        { return len(inv.contents) }

// Nuclides returns the held nuclides in sorted order.
func (inv *Inventory) Nuclides() []nucdata.ID {
	ids := make([]nucdata.ID, 0, len(inv.contents))
	for id := range inv.contents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Quantities returns quantities in the order of Nuclides.
func (inv *Inventory) Quantities() []float64 {
	ids := inv.Nuclides()
	qs := make([]float64, len(ids))
	for i, id := range ids {
		qs[i] = inv.contents[id]
	}
	return qs
}

func (inv *Inventory) Quantity(id nucdata.ID) (float64, bool) {
	q, ok := inv.contents[id]
	return q, ok
}

func (inv *Inventory) Contents() map[nucdata.ID]float64 {
	out := make(map[nucdata.ID]float64, len(inv.contents))
	for id, q := range inv.contents {
		out[id] = q
	}
	return out
}

func (inv *Inventory) Total() float64 {
	sum := 0.0
	for _, q := range inv.Quantities() {
		sum += q
	}
	return sum
}

// Activities converts quantities (number of atoms) to activities, λ·N.
func (inv *Inventory) Activities(p nucdata.Provider) (map[nucdata.ID]float64, error) {
	out := make(map[nucdata.ID]float64, len(inv.contents))
	for id, q := range inv.contents {
		n, err := p.Lookup(id)
		if err != nil {
			return nil, err
		}
		out[id] = n.Lambda() * q
	}
	return out, nil
}

// Decay returns the inventory after t seconds. Contributions of every
// source nuclide are summed in sorted source order, so the result does not
// depend on map iteration. Float noise below zero is clamped and products
// below the prune threshold are dropped.
func (inv *Inventory) Decay(t float64) (*Inventory, error) {
	if t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return nil, &InvalidTimeError{T: t}
	}
	if t == 0 {
		return inv.clone(), nil
	}
	if inv.evolver == nil {
		return nil, ErrNoEvolver
	}

	ids := inv.Nuclides()
	responses, err := inv.evolver.Evolve(ids, t)
	if err != nil {
		return nil, err
	}
	if len(responses) != len(ids) {
		return nil, fmt.Errorf("%w: %d for %d nuclides", ErrEvolverMismatched, len(responses), len(ids))
	}

	acc := make(map[nucdata.ID]float64)
	for i, id := range ids {
		q := inv.contents[id]
		for target, unit := range responses[i] {
			acc[target] += q * unit
		}
	}

	out := inv.derive(len(acc))
	for id, q := range acc {
		if q < 0 {
			q = 0
		}
		if inv.pruneBelow > 0 && q < inv.pruneBelow {
			continue
		}
		out.contents[id] = q
	}
	return out, nil
}

func (inv *Inventory) clone() *Inventory {
	out := inv.derive(len(inv.contents))
	for id, q := range inv.contents {
		out.contents[id] = q
	}
	return out
}

func (inv *Inventory) compatible(other *Inventory) error {
	if inv.dataset != "" && other.dataset != "" && inv.dataset != other.dataset {
		return fmt.Errorf("%w: %s and %s", ErrDatasetMismatch, inv.dataset, other.dataset)
	}
	return nil
}

// Merge adds quantities key by key over the union of both inventories.
func (inv *Inventory) Merge(other *Inventory) (*Inventory, error) {
	if err := inv.compatible(other); err != nil {
		return nil, err
	}
	out := inv.clone()
	if out.dataset == "" {
		out.dataset = other.dataset
	}
	for id, q := range other.contents {
		out.contents[id] += q
	}
	return out, nil
}

// Subtract removes other's quantities. The result has exactly the receiver's
// nuclides: a nuclide absent from the receiver may appear in other only at
// zero. Results that are negative by no more than the relative noise
// tolerance become zero and stay in the inventory.
func (inv *Inventory) Subtract(other *Inventory) (*Inventory, error) {
	if err := inv.compatible(other); err != nil {
		return nil, err
	}
	out := inv.clone()
	for _, id := range other.Nuclides() {
		a, ok := inv.contents[id]
		b := other.contents[id]
		if !ok && b == 0 {
			continue
		}
		v := a - b
		if v < 0 {
			if -v > inv.negTol*math.Max(a, b) {
				return nil, &NegativeQuantityError{ID: id, Value: v}
			}
			v = 0
		}
		out.contents[id] = v
	}
	return out, nil
}

func (inv *Inventory) Scale(f float64) (*Inventory, error) {
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %g", ErrInvalidFactor, f)
	}
	out := inv.derive(len(inv.contents))
	for id, q := range inv.contents {
		out.contents[id] = q * f
	}
	return out, nil
}

func (inv *Inventory) Divide(f float64) (*Inventory, error) {
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %g", ErrInvalidFactor, f)
	}
	out := inv.derive(len(inv.contents))
	for id, q := range inv.contents {
		out.contents[id] = q / f
	}
	return out, nil
}

// Remove drops the given nuclides. Every id must be present.
func (inv *Inventory) Remove(ids ...nucdata.ID) (*Inventory, error) {
	for _, id := range ids {
		if _, ok := inv.contents[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotPresent, id)
		}
	}
	out := inv.clone()
	for _, id := range ids {
		delete(out.contents, id)
	}
	return out, nil
}

func (inv *Inventory) String() string {
	var sb strings.Builder
	sb.WriteString("Inventory: {")
	for i, id := range inv.Nuclides() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(string(id))
		sb.WriteString(": ")
		sb.WriteString(strconv.FormatFloat(inv.contents[id], 'g', -1, 64))
	}
	sb.WriteString("}")
	if inv.dataset != "" {
		sb.WriteString(", dataset: ")
		sb.WriteString(inv.dataset)
	}
	return sb.String()
}
