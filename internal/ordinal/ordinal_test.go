package ordinal

import (
	"strconv"
	"testing"

	"exportgen/internal/diag"
	"exportgen/internal/loader"
	"exportgen/internal/metadata"
	"exportgen/internal/scan"
)

var testModule = &loader.Module{
	Path:  "M.dll",
	Image: &metadata.Image{Identity: metadata.AssemblyName{Name: "M"}},
}

func cand(name string, ord uint16) *scan.Candidate {
	return &scan.Candidate{
		Module:  testModule,
		Method:  &metadata.Method{Name: name},
		Name:    name,
		Ordinal: ord,
	}
}

func assertMap(t *testing.T, tab *Table, want map[string]uint16) {
	t.Helper()
	if tab.Len() != len(want) {
		t.Fatalf("len = %d, want %d", tab.Len(), len(want))
	}
	for name, ord := range want {
		got, ok := tab.Ordinal(name)
		if !ok || got != ord {
			t.Errorf("%s = %d (%v), want %d", name, got, ok, ord)
		}
		back, ok := tab.Name(ord)
		if !ok || back != name {
			t.Errorf("ordinal %d -> %q (%v), want %q", ord, back, ok, name)
		}
	}
}

func TestAllocate_Sequential(t *testing.T) {
	tab, err := Allocate([]*scan.Candidate{cand("A", 0), cand("B", 0), cand("C", 0)})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	assertMap(t, tab, map[string]uint16{"A": 1, "B": 2, "C": 3})
}

func TestAllocate_ExplicitReservedFirst(t *testing.T) {
	tab, err := Allocate([]*scan.Candidate{cand("A", 0), cand("X", 2), cand("B", 0), cand("C", 0)})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	assertMap(t, tab, map[string]uint16{"A": 1, "X": 2, "B": 3, "C": 4})

	entries := tab.Entries()
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Ordinal >= entries[i].Ordinal {
			t.Fatalf("entries not in ordinal order: %+v", entries)
		}
	}
}

func TestAllocate_ExplicitAfterAutoRange(t *testing.T) {
	// A gap below an explicit ordinal is filled, the cursor then hops over it.
	tab, err := Allocate([]*scan.Candidate{cand("Hi", 3), cand("A", 0), cand("B", 0), cand("C", 0), cand("D", 0)})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	assertMap(t, tab, map[string]uint16{"A": 1, "B": 2, "Hi": 3, "C": 4, "D": 5})
}

func TestAllocate_DuplicateExplicit(t *testing.T) {
	_, err := Allocate([]*scan.Candidate{cand("A", 7), cand("B", 7)})
	if diag.CodeOf(err) != diag.DupOrdinal {
		t.Fatalf("expected DupOrdinal, got %v", err)
	}
}

func TestAllocate_Exhausted(t *testing.T) {
	cs := []*scan.Candidate{cand("Top", 65535)}
	for i := 1; i < 65535; i++ {
		cs = append(cs, cand("f"+strconv.Itoa(i), uint16(i)))
	}
	cs = append(cs, cand("Extra", 0))
	_, err := Allocate(cs)
	if diag.CodeOf(err) != diag.DupOrdinalsSpent {
		t.Fatalf("expected DupOrdinalsSpent, got %v", err)
	}
}

func TestAllocate_Deterministic(t *testing.T) {
	in := []*scan.Candidate{cand("b", 0), cand("a", 5), cand("c", 0), cand("d", 1)}
	first, err := Allocate(in)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Allocate(in)
		if err != nil {
			t.Fatalf("allocate: %v", err)
		}
		a, b := first.Map(), again.Map()
		for k, v := range a {
			if b[k] != v {
				t.Fatalf("run differs at %d: %q vs %q", k, v, b[k])
			}
		}
	}
	assertMap(t, first, map[string]uint16{"d": 1, "b": 2, "c": 3, "a": 5})
}

func TestTable_Empty(t *testing.T) {
	tab, err := Allocate(nil)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if tab.Len() != 0 || len(tab.Map()) != 0 {
		t.Fatalf("expected empty table")
	}
	if _, ok := tab.Name(1); ok {
		t.Fatalf("empty table must not resolve ordinals")
	}
}
