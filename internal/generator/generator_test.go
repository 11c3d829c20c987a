package generator

import (
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"sort"
	"testing"

	"github.com/pv/algoviz-go/internal/listing"
	"github.com/pv/algoviz-go/internal/storage/memstore"
	"github.com/pv/algoviz-go/internal/trace"
)

type step struct {
	values []int
	marks  map[int]trace.Role
	line   int
}

func steps(tr trace.Trace) []step {
	out := make([]step, 0, tr.Len())
	for _, s := range tr.Snapshots() {
		marks := s.Marks
		if len(marks) == 0 {
			marks = nil
		}
		out = append(out, step{values: s.Values, marks: marks, line: s.Line})
	}
	return out
}

func marks(role trace.Role, idx ...int) map[int]trace.Role {
	m := make(map[int]trace.Role, len(idx))
	for _, i := range idx {
		m[i] = role
	}
	return m
}

func sortedAll(n int) map[int]trace.Role {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return marks(trace.RoleSorted, idx...)
}

func generate(t *testing.T, alg listing.Algorithm, values ...int) trace.Trace {
	t.Helper()
	tr, err := NewRegistry(nil).Generate(alg, values)
	if err != nil {
		t.Fatalf("Generate(%s, %v) returned error: %v", alg, values, err)
	}
	if err := tr.Validate(); err != nil {
		t.Fatalf("Generate(%s, %v) produced invalid trace: %v", alg, values, err)
	}
	return tr
}

func TestBubbleSortScenario(t *testing.T) {
	tr := generate(t, listing.Bubble, 5, 3, 8, 6, 2)
	last, _ := tr.Last()
	if !reflect.DeepEqual(last.Values, []int{2, 3, 5, 6, 8}) {
		t.Fatalf("terminal values = %v", last.Values)
	}
	if !reflect.DeepEqual(last.Marks, sortedAll(5)) || !last.Terminal || last.HasLine() {
		t.Fatalf("terminal snapshot = %+v", last)
	}
}

func TestBubbleSortAlreadySorted(t *testing.T) {
	tr := generate(t, listing.Bubble, 1, 2, 3)
	compareLine, _ := listing.Default().Line(listing.Bubble, "compare")
	want := []step{
		{values: []int{1, 2, 3}, marks: marks(trace.RoleComparing, 0, 1), line: compareLine},
		{values: []int{1, 2, 3}, marks: marks(trace.RoleComparing, 1, 2), line: compareLine},
		{values: []int{1, 2, 3}, marks: marks(trace.RoleComparing, 0, 1), line: compareLine},
		{values: []int{1, 2, 3}, marks: sortedAll(3)},
	}
	if got := steps(tr); !reflect.DeepEqual(got, want) {
		t.Fatalf("bubble steps = %+v", got)
	}
	for i, s := range tr.Snapshots() {
		if len(s.MarkedIndices(trace.RoleSwapping)) != 0 {
			t.Fatalf("snapshot %d has swapping marks", i)
		}
	}
}

func TestBubbleSortSwapSteps(t *testing.T) {
	tr := generate(t, listing.Bubble, 2, 1)
	want := []step{
		{values: []int{2, 1}, marks: marks(trace.RoleComparing, 0, 1), line: 3},
		{values: []int{2, 1}, line: 5},
		{values: []int{1, 2}, marks: marks(trace.RoleSwapping, 0, 1), line: 7},
		{values: []int{1, 2}, marks: sortedAll(2)},
	}
	if got := steps(tr); !reflect.DeepEqual(got, want) {
		t.Fatalf("bubble steps = %+v", got)
	}
}

func TestInsertionSortSteps(t *testing.T) {
	tr := generate(t, listing.Insertion, 2, 1)
	want := []step{
		{values: []int{2, 1}, marks: marks(trace.RoleComparing, 1), line: 2},
		{values: []int{2, 1}, marks: marks(trace.RoleComparing, 0, 1), line: 4},
		{values: []int{2, 2}, marks: marks(trace.RoleSwapping, 1), line: 5},
		{values: []int{1, 2}, marks: marks(trace.RoleSwapping, 0), line: 8},
		{values: []int{1, 2}, marks: sortedAll(2)},
	}
	if got := steps(tr); !reflect.DeepEqual(got, want) {
		t.Fatalf("insertion steps = %+v", got)
	}
}

func TestQuickSortLomutoSteps(t *testing.T) {
	tr := generate(t, listing.Quick, 3, 1, 2)
	want := []step{
		{values: []int{3, 1, 2}, marks: marks(trace.RoleComparing, 0, 2), line: 12},
		{values: []int{3, 1, 2}, marks: marks(trace.RoleComparing, 1, 2), line: 12},
		{values: []int{1, 3, 2}, marks: marks(trace.RoleSwapping, 0, 1), line: 14},
		{values: []int{1, 2, 3}, marks: marks(trace.RoleSwapping, 1, 2), line: 17},
		{values: []int{1, 2, 3}, marks: sortedAll(3)},
	}
	if got := steps(tr); !reflect.DeepEqual(got, want) {
		t.Fatalf("quick steps = %+v", got)
	}
}

func TestMergeSortSteps(t *testing.T) {
	tr := generate(t, listing.Merge, 2, 1)
	want := []step{
		{values: []int{2, 1}, marks: marks(trace.RoleComparing, 0, 1), line: 20},
		{values: []int{1, 1}, marks: marks(trace.RoleSwapping, 0), line: 24},
		{values: []int{1, 2}, marks: marks(trace.RoleSwapping, 1), line: 30},
		{values: []int{1, 2}, marks: sortedAll(2)},
	}
	if got := steps(tr); !reflect.DeepEqual(got, want) {
		t.Fatalf("merge steps = %+v", got)
	}
}

func TestEqualValuesAreNeverSwapped(t *testing.T) {
	for _, alg := range []listing.Algorithm{listing.Bubble, listing.Insertion} {
		tr := generate(t, alg, 4, 4, 4)
		for i, s := range tr.Snapshots() {
			if !reflect.DeepEqual(s.Values, []int{4, 4, 4}) {
				t.Fatalf("%s snapshot %d changed values: %v", alg, i, s.Values)
			}
			if s.Line == 5 && alg == listing.Bubble {
				t.Fatalf("%s snapshot %d is a pre-swap step", alg, i)
			}
		}
	}
}

func TestShortInputsYieldTerminalOnly(t *testing.T) {
	for _, alg := range listing.SortingAlgorithms() {
		for _, values := range [][]int{{}, {7}} {
			tr := generate(t, alg, values...)
			if tr.Len() != 1 {
				t.Fatalf("%s(%v) trace length = %d, want 1", alg, values, tr.Len())
			}
			last, _ := tr.Last()
			if !last.Terminal || fmt.Sprint(last.Values) != fmt.Sprint(values) {
				t.Fatalf("%s(%v) terminal = %+v", alg, values, last)
			}
		}
	}
}

func TestAllAlgorithmsSortAndPreserveValues(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	inputs := [][]int{
		{5, 3, 8, 6, 2},
		{1, 2, 3, 4},
		{4, 3, 2, 1},
		{-5, 0, -5, 9223372036854775807, -9223372036854775808, 3},
		{2, 2, 1, 1},
	}
	for n := 2; n < 14; n++ {
		in := make([]int, n)
		for i := range in {
			in[i] = rng.Intn(21) - 10
		}
		inputs = append(inputs, in)
	}

	for _, alg := range listing.SortingAlgorithms() {
		for _, in := range inputs {
			orig := append([]int(nil), in...)
			tr := generate(t, alg, in...)
			if !reflect.DeepEqual(in, orig) {
				t.Fatalf("%s mutated its input: %v", alg, in)
			}
			want := append([]int(nil), in...)
			sort.Ints(want)
			last, _ := tr.Last()
			if !reflect.DeepEqual(last.Values, want) {
				t.Fatalf("%s(%v) terminal values = %v, want %v", alg, in, last.Values, want)
			}
			for i := 0; i < tr.Len()-1; i++ {
				s, _ := tr.At(i)
				if !s.HasLine() {
					t.Fatalf("%s(%v) snapshot %d has no source line", alg, in, i)
				}
			}
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	reg := NewRegistry(nil)
	for _, alg := range listing.SortingAlgorithms() {
		a, err := reg.Generate(alg, []int{9, -1, 4, 4, 0, 12})
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		b, _ := reg.Generate(alg, []int{9, -1, 4, 4, 0, 12})
		if !reflect.DeepEqual(a.Snapshots(), b.Snapshots()) || a.Algorithm() != b.Algorithm() {
			t.Fatalf("%s traces differ between runs", alg)
		}
	}
}

func TestGenerateSource(t *testing.T) {
	tr := NewRegistry(nil).GenerateSource("int x = 1;\n  print(x);")
	if err := tr.Validate(); err != nil {
		t.Fatalf("invalid trace: %v", err)
	}
	if tr.Len() != 3 || tr.Algorithm() != string(listing.Code) {
		t.Fatalf("unexpected trace: len=%d alg=%s", tr.Len(), tr.Algorithm())
	}
	second, _ := tr.At(1)
	if second.Line != 2 || second.Description != "Executing line 2: print(x);" || len(second.Marks) != 0 {
		t.Fatalf("second step = %+v", second)
	}
	empty := NewRegistry(nil).GenerateSource("")
	if empty.Len() != 1 {
		t.Fatalf("empty source trace length = %d", empty.Len())
	}
}

func TestRegistryErrors(t *testing.T) {
	reg := NewRegistry(nil)
	if _, err := reg.Generate(listing.Code, []int{1}); !errors.Is(err, ErrNotSorting) {
		t.Fatalf("expected ErrNotSorting, got %v", err)
	}
	if _, err := reg.Generate(listing.Algorithm("heap-sort"), []int{1}); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Fatalf("expected ErrUnknownAlgorithm, got %v", err)
	}
}

func TestRegistryUsesStore(t *testing.T) {
	store := memstore.New(8)
	var calls, cachedCalls int
	reg := NewRegistry(nil, WithStore(store), WithObserver(func(_ listing.Algorithm, _ trace.Trace, cached bool) {
		calls++
		if cached {
			cachedCalls++
		}
	}))
	first, _ := reg.Generate(listing.Merge, []int{3, 2, 1})
	second, _ := reg.Generate(listing.Merge, []int{3, 2, 1})
	_, _ = reg.Generate(listing.Quick, []int{3, 2, 1})
	reg.GenerateSource("x")
	reg.GenerateSource("x")

	if calls != 5 || cachedCalls != 2 {
		t.Fatalf("observer calls=%d cached=%d", calls, cachedCalls)
	}
	if store.Len() != 3 {
		t.Fatalf("store has %d traces, want 3", store.Len())
	}
	if !reflect.DeepEqual(first.Snapshots(), second.Snapshots()) {
		t.Fatalf("cached trace differs")
	}
}
