package diag

import "sort"

// Bag collects non-fatal findings of one run, dropping repeats and anything
// past its limit.
type Bag struct {
	items   []*Error
	max     int
	seen    map[string]bool
	dropped int
}

// NewBag returns a bag holding at most max findings; max <= 0 means no limit.
func NewBag(max int) *Bag {
	return &Bag{max: max, seen: make(map[string]bool)}
}

// Add records e. It returns false when e repeats an earlier finding or the
// bag is full.
func (b *Bag) Add(e *Error) bool {
	if e == nil {
		return false
	}
	key := e.Code.ID() + "\x00" + e.Message
	if b.seen[key] {
		return false
	}
	if b.max > 0 && len(b.items) >= b.max {
		b.dropped++
		return false
	}
	b.seen[key] = true
	b.items = append(b.items, e)
	return true
}

// HasErrors reports whether any collected finding has error severity.
func (b *Bag) HasErrors() bool {
	if b == nil {
		return false
	}
	for _, e := range b.items {
		if e.Severity >= SevError {
			return true
		}
	}
	return false
}

// Len is the number of collected findings.
func (b *Bag) Len() int {
	if b == nil {
		return 0
	}
	return len(b.items)
}

// Dropped counts findings refused because the bag was full.
func (b *Bag) Dropped() int {
	if b == nil {
		return 0
	}
	return b.dropped
}

// Items returns the findings in arrival order. Do not modify the slice.
func (b *Bag) Items() []*Error {
	if b == nil {
		return nil
	}
	return b.items
}

// Sorted returns a copy ordered by code, then message.
func (b *Bag) Sorted() []*Error {
	out := append([]*Error(nil), b.Items()...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].Message < out[j].Message
	})
	return out
}
