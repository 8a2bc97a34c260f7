package chain

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/san-kum/raddecay/internal/nucdata"
)

func mustTable(t *testing.T, nuclides ...nucdata.Nuclide) *nucdata.Table {
	t.Helper()
	table, err := nucdata.NewTable("test", nuclides...)
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	return table
}

func TestBuildStable(t *testing.T) {
	b := NewBuilder(nucdata.Sample())
	ch, err := b.Build("Pb-206")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if ch.Len() != 1 {
		t.Fatalf("expected 1 path, got %d", ch.Len())
	}
	p := ch.Path(0)
	if p.Target() != "Pb-206" || p.Branching() != 1 || p.Lambda(0) != 0 {
		t.Errorf("unexpected root path %v", p)
	}
}

func TestBuildRadonSeries(t *testing.T) {
	b := NewBuilder(nucdata.Sample())
	ch, err := b.Build("Rn-222")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if ch.Root() != "Rn-222" {
		t.Errorf("root = %s", ch.Root())
	}
	if ch.Len() != 42 {
		t.Errorf("expected 42 paths, got %d", ch.Len())
	}
	if got := len(ch.Targets()); got != 13 {
		t.Errorf("expected 13 targets, got %d: %v", got, ch.Targets())
	}
	if ch.Depth() != 9 {
		t.Errorf("expected depth 9, got %d", ch.Depth())
	}

	order := []nucdata.ID{"Rn-222", "Po-218", "Pb-214", "Bi-214", "Po-214"}
	for i, want := range order {
		if got := ch.Path(i).Target(); got != want {
			t.Errorf("path %d target = %s, want %s", i, got, want)
		}
	}

	sum := 0.0
	for _, p := range ch.PathsTo("Pb-206") {
		sum += p.Branching()
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("branching into Pb-206 sums to %.15f", sum)
	}

	for _, p := range ch.PathsTo("At-218") {
		if math.Abs(p.Branching()-0.0002) > 1e-15 {
			t.Errorf("At-218 branching = %v", p.Branching())
		}
		lambdas := p.Lambdas()
		if len(lambdas) != 3 || lambdas[0] != 2.0982180755947176e-06 {
			t.Errorf("At-218 path lambdas = %v", lambdas)
		}
	}
}

func TestBuildBranching(t *testing.T) {
	table := mustTable(t,
		nucdata.NewUnstable("A-1", 10, nucdata.Branch{ID: "B-1", Fraction: 0.7}, nucdata.Branch{ID: "C-1", Fraction: 0.3}),
		nucdata.NewStable("B-1"),
		nucdata.NewStable("C-1"),
	)
	ch, err := NewBuilder(table).Build("A-1")
	if err != nil {
		t.Fatal(err)
	}
	if ch.Len() != 3 {
		t.Fatalf("expected 3 paths, got %d", ch.Len())
	}
	if b := ch.PathsTo("B-1")[0].Branching(); b != 0.7 {
		t.Errorf("B branching = %v", b)
	}
	if b := ch.PathsTo("C-1")[0].Branching(); b != 0.3 {
		t.Errorf("C branching = %v", b)
	}
}

func TestBuildSkipsZeroBranches(t *testing.T) {
	table := mustTable(t,
		nucdata.NewUnstable("A-1", 10, nucdata.Branch{ID: "B-1", Fraction: 1}, nucdata.Branch{ID: "A-1m", Fraction: 0}),
		nucdata.NewUnstable("A-1m", 10, nucdata.Branch{ID: "A-1", Fraction: 1}),
		nucdata.NewStable("B-1"),
	)
	ch, err := NewBuilder(table).Build("A-1")
	if err != nil {
		t.Fatalf("zero-fraction back edge should not be a cycle: %v", err)
	}
	if ch.Len() != 2 {
		t.Errorf("expected 2 paths, got %d", ch.Len())
	}
}

func TestBuildCycle(t *testing.T) {
	table := mustTable(t,
		nucdata.NewUnstable("X-1", 10, nucdata.Branch{ID: "Y-1", Fraction: 1}),
		nucdata.NewUnstable("Y-1", 5, nucdata.Branch{ID: "X-1", Fraction: 1}),
	)
	_, err := NewBuilder(table).Build("X-1")
	if !errors.Is(err, ErrCyclicChain) {
		t.Fatalf("expected ErrCyclicChain, got %v", err)
	}
	var cyc *CyclicChainError
	if !errors.As(err, &cyc) {
		t.Fatalf("expected CyclicChainError, got %T", err)
	}
	want := []nucdata.ID{"X-1", "Y-1", "X-1"}
	if len(cyc.Path) != len(want) {
		t.Fatalf("path = %v", cyc.Path)
	}
	for i := range want {
		if cyc.Path[i] != want[i] {
			t.Errorf("path = %v, want %v", cyc.Path, want)
			break
		}
	}
}

func TestBuildSelfBranch(t *testing.T) {
	tests := []struct {
		name      string
		fraction  float64
		wantCycle bool
	}{
		{"feeds back", 0.5, true},
		{"zero fraction", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := mustTable(t,
				nucdata.NewUnstable("X-1", 10,
					nucdata.Branch{ID: "X-1", Fraction: tt.fraction},
					nucdata.Branch{ID: "Y-1", Fraction: 1 - tt.fraction},
				),
				nucdata.NewStable("Y-1"),
			)
			ch, err := NewBuilder(table).Build("X-1")
			if !tt.wantCycle {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if ch.Len() != 2 {
					t.Errorf("expected 2 paths, got %d", ch.Len())
				}
				return
			}

			var cyc *CyclicChainError
			if !errors.As(err, &cyc) {
				t.Fatalf("expected CyclicChainError, got %v", err)
			}
			if !errors.Is(err, ErrCyclicChain) || errors.Is(err, nucdata.ErrDataIntegrity) {
				t.Errorf("wrong classification: %v", err)
			}
			if len(cyc.Path) != 2 || cyc.Path[0] != "X-1" || cyc.Path[1] != "X-1" {
				t.Errorf("path = %v", cyc.Path)
			}
		})
	}
}

func TestBuildErrors(t *testing.T) {
	table := mustTable(t,
		nucdata.NewUnstable("A-1", 10, nucdata.Branch{ID: "Missing-1", Fraction: 1}),
		nucdata.NewUnstable("B-1", 10, nucdata.Branch{ID: "C-1", Fraction: 0.5}),
		nucdata.NewStable("C-1"),
		nucdata.NewUnstable("D-1", 10, nucdata.Branch{ID: "B-1", Fraction: 1}),
	)
	b := NewBuilder(table)

	tests := []struct {
		root nucdata.ID
		want error
	}{
		{"Nope-1", nucdata.ErrUnknownNuclide},
		{"A-1", nucdata.ErrUnknownNuclide},
		{"B-1", nucdata.ErrDataIntegrity},
		{"D-1", nucdata.ErrDataIntegrity},
	}

	for _, tt := range tests {
		t.Run(string(tt.root), func(t *testing.T) {
			_, err := b.Build(tt.root)
			if !errors.Is(err, tt.want) {
				t.Errorf("Build(%s) error = %v, want %v", tt.root, err, tt.want)
			}
		})
	}

	// A broken chain does not poison an unrelated one.
	if _, err := b.Build("C-1"); err != nil {
		t.Errorf("unrelated chain failed: %v", err)
	}
}

func TestBuildMaxDepth(t *testing.T) {
	table := mustTable(t,
		nucdata.NewUnstable("A-1", 1, nucdata.Branch{ID: "A-2", Fraction: 1}),
		nucdata.NewUnstable("A-2", 1, nucdata.Branch{ID: "A-3", Fraction: 1}),
		nucdata.NewUnstable("A-3", 1, nucdata.Branch{ID: "A-4", Fraction: 1}),
		nucdata.NewStable("A-4"),
	)

	_, err := NewBuilder(table, WithMaxDepth(3)).Build("A-1")
	if !errors.Is(err, ErrMaxDepth) || !errors.Is(err, nucdata.ErrDataIntegrity) {
		t.Fatalf("expected max depth data integrity error, got %v", err)
	}

	ch, err := NewBuilder(table, WithMaxDepth(4)).Build("A-1")
	if err != nil {
		t.Fatalf("depth 4 should fit: %v", err)
	}
	if ch.Depth() != 4 {
		t.Errorf("depth = %d", ch.Depth())
	}
}

func TestBuildCached(t *testing.T) {
	cache, err := NewCache(8)
	if err != nil {
		t.Fatal(err)
	}
	b := NewBuilder(nucdata.Sample(), WithCache(cache))

	var wg sync.WaitGroup
	chains := make([]*Chain, 8)
	for i := range chains {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			ch, err := b.Build("Rn-222")
			if err != nil {
				t.Errorf("build failed: %v", err)
				return
			}
			chains[idx] = ch
		}(i)
	}
	wg.Wait()

	if cache.Len() != 1 {
		t.Errorf("expected 1 cached chain, got %d", cache.Len())
	}

	again, err := b.Build("Rn-222")
	if err != nil {
		t.Fatal(err)
	}
	if again.Len() != chains[0].Len() {
		t.Error("cached chain differs")
	}
	hits, _ := cache.Stats()
	if hits < 1 {
		t.Errorf("expected at least one hit, got %d", hits)
	}
}

func TestBuildErrorsNotCached(t *testing.T) {
	cache, _ := NewCache(8)
	table := mustTable(t,
		nucdata.NewUnstable("X-1", 10, nucdata.Branch{ID: "Y-1", Fraction: 1}),
		nucdata.NewUnstable("Y-1", 5, nucdata.Branch{ID: "X-1", Fraction: 1}),
	)
	b := NewBuilder(table, WithCache(cache))
	if _, err := b.Build("X-1"); err == nil {
		t.Fatal("expected error")
	}
	if cache.Len() != 0 {
		t.Errorf("failed build was cached")
	}
}

func TestPathAccessorsCopy(t *testing.T) {
	p := NewPath([]nucdata.ID{"A-1", "B-1"}, []float64{1, 0}, 0.5)
	ids := p.Nuclides()
	ids[0] = "Z-1"
	if p.Root() != "A-1" {
		t.Error("Nuclides exposed internal slice")
	}
	ls := p.Lambdas()
	ls[0] = 9
	if p.Lambda(0) != 1 {
		t.Error("Lambdas exposed internal slice")
	}
	if p.String() != "A-1 → B-1 (B=0.5)" {
		t.Errorf("String() = %q", p.String())
	}
}
