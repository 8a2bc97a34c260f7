package nucdata

import (
	"fmt"
	"sort"
)

// Provider is the lookup contract the engine consumes. Implementations must
// be safe for concurrent reads.
type Provider interface {
	Lookup(id ID) (Nuclide, error)
	Name() string
}

// Table is an in-memory Provider. It is read-only after construction.
type Table struct {
	name     string
	nuclides map[ID]Nuclide
}

func NewTable(name string, nuclides ...Nuclide) (*Table, error) {
	t := &Table{
		name:     name,
		nuclides: make(map[ID]Nuclide, len(nuclides)),
	}
	for _, n := range nuclides {
		if _, ok := t.nuclides[n.ID()]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNuclide, n.ID())
		}
		t.nuclides[n.ID()] = n
	}
	return t, nil
}

func (t *Table) Name() string { return t.name }

func (t *Table) Lookup(id ID) (Nuclide, error) {
	n, ok := t.nuclides[id]
	if !ok {
		return Nuclide{}, &UnknownNuclideError{ID: id, Dataset: t.name}
	}
	return n, nil
}

func (t *Table) Len() int { return len(t.nuclides) }

// IDs returns every nuclide in the table, sorted.
func (t *Table) IDs() []ID {
	ids := make([]ID, 0, len(t.nuclides))
	for id := range t.nuclides {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Describe renders a nuclide the way dataset-aware callers print it.
func Describe(p Provider, id ID) (string, error) {
	if _, err := p.Lookup(id); err != nil {
		return "", err
	}
	return fmt.Sprintf("Nuclide: %s, dataset: %s", id, p.Name()), nil
}
