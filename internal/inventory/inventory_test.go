package inventory

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/raddecay/internal/nucdata"
)

// halfEvolver halves every unstable source into a stable "X-0" daughter.
type halfEvolver struct {
	stable map[nucdata.ID]bool
	calls  int
}

func (h *halfEvolver) Evolve(ids []nucdata.ID, t float64) ([]map[nucdata.ID]float64, error) {
	h.calls++
	out := make([]map[nucdata.ID]float64, len(ids))
	for i, id := range ids {
		if h.stable[id] {
			out[i] = map[nucdata.ID]float64{id: 1}
			continue
		}
		out[i] = map[nucdata.ID]float64{id: 0.5, "X-0": 0.5}
	}
	return out, nil
}

type failingEvolver struct{}

func (failingEvolver) Evolve([]nucdata.ID, float64) ([]map[nucdata.ID]float64, error) {
	return nil, nucdata.ErrUnknownNuclide
}

func mustNew(t *testing.T, c map[nucdata.ID]float64, opts ...Option) *Inventory {
	t.Helper()
	inv, err := New(c, opts...)
	if err != nil {
		t.Fatalf("New(%v): %v", c, err)
	}
	return inv
}

func TestNewRejectsBadQuantities(t *testing.T) {
	for _, q := range []float64{-1, math.NaN(), math.Inf(1)} {
		if _, err := New(map[nucdata.ID]float64{"H-3": q}); !errors.Is(err, ErrInvalidQuantity) {
			t.Errorf("q=%v: err = %v", q, err)
		}
	}
}

func TestNewCopiesInput(t *testing.T) {
	src := map[nucdata.ID]float64{"H-3": 1}
	inv := mustNew(t, src)
	src["H-3"] = 99
	if q, _ := inv.Quantity("H-3"); q != 1 {
		t.Errorf("inventory aliased caller map: %v", q)
	}
	inv.Contents()["H-3"] = 42
	if q, _ := inv.Quantity("H-3"); q != 1 {
		t.Errorf("Contents leaked internal map: %v", q)
	}
}

func TestDecayZeroIsIdentity(t *testing.T) {
	ev := &halfEvolver{}
	inv := mustNew(t, map[nucdata.ID]float64{"H-3": 1e-40, "C-14": 3}, WithEvolver(ev))
	out, err := inv.Decay(0)
	if err != nil {
		t.Fatal(err)
	}
	if ev.calls != 0 {
		t.Error("Decay(0) consulted the evolver")
	}
	if out == inv {
		t.Error("Decay(0) returned the receiver")
	}
	if out.String() != inv.String() {
		t.Errorf("got %s want %s", out, inv)
	}
}

func TestDecayInvalidTime(t *testing.T) {
	inv := mustNew(t, map[nucdata.ID]float64{"H-3": 1}, WithEvolver(&halfEvolver{}))
	for _, tt := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := inv.Decay(tt)
		var ite *InvalidTimeError
		if !errors.As(err, &ite) || !errors.Is(err, ErrInvalidTime) {
			t.Errorf("t=%v: err = %v", tt, err)
		}
	}
}

func TestDecaySumsContributions(t *testing.T) {
	ev := &halfEvolver{stable: map[nucdata.ID]bool{"X-0": true}}
	inv := mustNew(t, map[nucdata.ID]float64{"A-1": 4, "B-1": 2, "X-0": 1}, WithEvolver(ev), WithDataset("toy"))

	out, err := inv.Decay(10)
	if err != nil {
		t.Fatal(err)
	}
	want := map[nucdata.ID]float64{"A-1": 2, "B-1": 1, "X-0": 4}
	for id, w := range want {
		if got, _ := out.Quantity(id); got != w {
			t.Errorf("%s = %v, want %v", id, got, w)
		}
	}
	if out.Dataset() != "toy" {
		t.Errorf("dataset not carried: %q", out.Dataset())
	}
	if q, _ := inv.Quantity("A-1"); q != 4 {
		t.Error("Decay mutated the receiver")
	}
}

func TestDecayPrunes(t *testing.T) {
	ev := &halfEvolver{}
	inv := mustNew(t, map[nucdata.ID]float64{"A-1": 1e-30}, WithEvolver(ev))
	out, err := inv.Decay(1)
	if err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Errorf("expected everything pruned, got %s", out)
	}

	keep := mustNew(t, map[nucdata.ID]float64{"A-1": 1e-30}, WithEvolver(ev), WithPruneBelow(0))
	out, err = keep.Decay(1)
	if err != nil {
		t.Fatal(err)
	}
	if out.Len() != 2 {
		t.Errorf("pruning disabled but got %s", out)
	}
}

func TestDecayErrors(t *testing.T) {
	inv := mustNew(t, map[nucdata.ID]float64{"A-1": 1})
	if _, err := inv.Decay(1); !errors.Is(err, ErrNoEvolver) {
		t.Errorf("err = %v", err)
	}
	inv = mustNew(t, map[nucdata.ID]float64{"A-1": 1}, WithEvolver(failingEvolver{}))
	if _, err := inv.Decay(1); !errors.Is(err, nucdata.ErrUnknownNuclide) {
		t.Errorf("evolver error not propagated: %v", err)
	}
}

func TestMergeAndSubtract(t *testing.T) {
	a := mustNew(t, map[nucdata.ID]float64{"H-3": 1, "C-14": 2}, WithDataset("sample"))
	b := mustNew(t, map[nucdata.ID]float64{"C-14": 0.5, "K-40": 3}, WithDataset("sample"))

	sum, err := a.Merge(b)
	if err != nil {
		t.Fatal(err)
	}
	if got := sum.String(); got != "Inventory: {C-14: 2.5, H-3: 1, K-40: 3}, dataset: sample" {
		t.Errorf("merge = %s", got)
	}

	back, err := sum.Subtract(b)
	if err != nil {
		t.Fatal(err)
	}
	if q, _ := back.Quantity("C-14"); q != 2 {
		t.Errorf("C-14 = %v", q)
	}
	if q, ok := back.Quantity("K-40"); !ok || q != 0 {
		t.Errorf("K-40 should remain at zero, got %v %v", q, ok)
	}

	if _, err := a.Subtract(b); !errors.Is(err, ErrNegativeQuantity) {
		t.Errorf("subtracting absent nuclide: %v", err)
	}

	other := mustNew(t, map[nucdata.ID]float64{"H-3": 1}, WithDataset("other"))
	if _, err := a.Merge(other); !errors.Is(err, ErrDatasetMismatch) {
		t.Errorf("merge across datasets: %v", err)
	}
	if _, err := a.Subtract(other); !errors.Is(err, ErrDatasetMismatch) {
		t.Errorf("subtract across datasets: %v", err)
	}
}

func TestSubtractKeepsReceiverNuclides(t *testing.T) {
	a := mustNew(t, map[nucdata.ID]float64{"H-3": 1})
	zero := mustNew(t, map[nucdata.ID]float64{"C-14": 0, "H-3": 0.25})

	out, err := a.Subtract(zero)
	if err != nil {
		t.Fatal(err)
	}
	if out.Len() != 1 {
		t.Errorf("subtract added nuclides: %s", out)
	}
	if _, ok := out.Quantity("C-14"); ok {
		t.Error("C-14 should not appear")
	}
	if q, _ := out.Quantity("H-3"); q != 0.75 {
		t.Errorf("H-3 = %v", q)
	}
}

func TestSubtractClampsNoise(t *testing.T) {
	a := mustNew(t, map[nucdata.ID]float64{"H-3": 0.1 + 0.2})
	b := mustNew(t, map[nucdata.ID]float64{"H-3": 0.3 + 1e-12})
	out, err := a.Subtract(b)
	if err != nil {
		t.Fatal(err)
	}
	if q, _ := out.Quantity("H-3"); q != 0 {
		t.Errorf("noise not clamped: %v", q)
	}

	c := mustNew(t, map[nucdata.ID]float64{"H-3": 0.3 + 1e-3})
	var nqe *NegativeQuantityError
	if _, err := a.Subtract(c); !errors.As(err, &nqe) || nqe.ID != "H-3" {
		t.Errorf("err = %v", err)
	}
}

func TestScaleDivide(t *testing.T) {
	inv := mustNew(t, map[nucdata.ID]float64{"H-3": 2, "C-14": 4})

	s, err := inv.Scale(1.5)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Quantities(); got[0] != 6 || got[1] != 3 {
		t.Errorf("scale = %v", got)
	}

	d, err := inv.Divide(4)
	if err != nil {
		t.Fatal(err)
	}
	if got := d.Quantities(); got[0] != 1 || got[1] != 0.5 {
		t.Errorf("divide = %v", got)
	}

	for _, f := range []float64{-1, math.NaN()} {
		if _, err := inv.Scale(f); !errors.Is(err, ErrInvalidFactor) {
			t.Errorf("Scale(%v): %v", f, err)
		}
	}
	if _, err := inv.Divide(0); !errors.Is(err, ErrInvalidFactor) {
		t.Errorf("Divide(0): %v", err)
	}
}

func TestRemove(t *testing.T) {
	inv := mustNew(t, map[nucdata.ID]float64{"H-3": 1, "C-14": 2, "K-40": 3})
	out, err := inv.Remove("H-3", "K-40")
	if err != nil {
		t.Fatal(err)
	}
	if ids := out.Nuclides(); len(ids) != 1 || ids[0] != "C-14" {
		t.Errorf("remaining = %v", ids)
	}
	if inv.Len() != 3 {
		t.Error("Remove mutated the receiver")
	}
	if _, err := inv.Remove("Cs-137"); !errors.Is(err, ErrNotPresent) {
		t.Errorf("err = %v", err)
	}
}

func TestListingSortedAndTotal(t *testing.T) {
	inv := mustNew(t, map[nucdata.ID]float64{"K-40": 3, "C-14": 2, "H-3": 1})
	ids := inv.Nuclides()
	want := []nucdata.ID{"C-14", "H-3", "K-40"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("Nuclides() = %v", ids)
		}
	}
	if inv.Total() != 6 {
		t.Errorf("Total = %v", inv.Total())
	}
}

func TestActivities(t *testing.T) {
	data := nucdata.Sample()
	inv := mustNew(t, map[nucdata.ID]float64{"Rn-222": 10, "Pb-206": 5})
	act, err := inv.Activities(data)
	if err != nil {
		t.Fatal(err)
	}
	if act["Pb-206"] != 0 {
		t.Errorf("stable activity = %v", act["Pb-206"])
	}
	if want := 10 * 2.0982180755947176e-06; act["Rn-222"] != want {
		t.Errorf("Rn-222 activity = %v want %v", act["Rn-222"], want)
	}

	bad := mustNew(t, map[nucdata.ID]float64{"Xx-1": 1})
	if _, err := bad.Activities(data); !errors.Is(err, nucdata.ErrUnknownNuclide) {
		t.Errorf("err = %v", err)
	}
}
