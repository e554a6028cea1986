// Package ordinal assigns the numeric export identifiers.
package ordinal

import (
	"sort"

	"fortio.org/safecast"

	"exportgen/internal/diag"
	"exportgen/internal/scan"
)

// Entry binds one ordinal to its export.
type Entry struct {
	Ordinal   uint16
	Name      string
	Candidate *scan.Candidate
}

// Table is the immutable ordinal <-> name mapping produced by Allocate.
type Table struct {
	entries   []Entry // sorted by ordinal
	byOrdinal map[uint16]int
	byName    map[string]int
}

// Allocate reserves every explicitly requested ordinal, then hands out the
// smallest free ordinals to the remaining candidates in scan order. The search
// cursor only moves forward.
func Allocate(candidates []*scan.Candidate) (*Table, error) {
	taken := make(map[uint16]*scan.Candidate, len(candidates))
	entries := make([]Entry, 0, len(candidates))

	var auto []*scan.Candidate
	for _, c := range candidates {
		if c.Ordinal == 0 {
			auto = append(auto, c)
			continue
		}
		if prev, dup := taken[c.Ordinal]; dup {
			return nil, diag.Errorf(diag.DupOrdinal, "ordinal %d is requested by both %s and %s", c.Ordinal, prev.Entity(), c.Entity())
		}
		taken[c.Ordinal] = c
		entries = append(entries, Entry{Ordinal: c.Ordinal, Name: c.Name, Candidate: c})
	}

	next := 1
	for _, c := range auto {
		ord, err := claimFree(taken, &next)
		if err != nil {
			return nil, diag.Wrap(diag.DupOrdinalsSpent, err, "no free ordinal left for %s", c.Entity())
		}
		taken[ord] = c
		entries = append(entries, Entry{Ordinal: ord, Name: c.Name, Candidate: c})
	}
	return newTable(entries), nil
}

// claimFree returns the first unused ordinal at or above *next and moves
// *next past it.
func claimFree(taken map[uint16]*scan.Candidate, next *int) (uint16, error) {
	for ; ; *next++ {
		ord, err := safecast.Conv[uint16](*next)
		if err != nil {
			return 0, err
		}
		if _, used := taken[ord]; !used {
			*next++
			return ord, nil
		}
	}
}

func newTable(entries []Entry) *Table {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Ordinal < entries[j].Ordinal })
	t := &Table{
		entries:   entries,
		byOrdinal: make(map[uint16]int, len(entries)),
		byName:    make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		t.byOrdinal[e.Ordinal] = i
		t.byName[e.Name] = i
	}
	return t
}

// Len is the number of exports.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns the exports in ordinal order. The slice must not be modified.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	return t.entries
}

// Name returns the export bound to ordinal.
func (t *Table) Name(ord uint16) (string, bool) {
	if t == nil {
		return "", false
	}
	i, ok := t.byOrdinal[ord]
	if !ok {
		return "", false
	}
	return t.entries[i].Name, true
}

// Ordinal returns the ordinal bound to name.
func (t *Table) Ordinal(name string) (uint16, bool) {
	if t == nil {
		return 0, false
	}
	i, ok := t.byName[name]
	if !ok {
		return 0, false
	}
	return t.entries[i].Ordinal, true
}

// Map returns a copy of the table as ordinal -> name.
func (t *Table) Map() map[uint16]string {
	out := make(map[uint16]string, t.Len())
	for _, e := range t.Entries() {
		out[e.Ordinal] = e.Name
	}
	return out
}
