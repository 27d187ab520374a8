package diag

import "sort"

// Bag accumulates diagnostics up to a fixed limit.
type Bag struct {
	items []Diagnostic
	max   int
}

// NewBag creates a bag capped at max diagnostics.
func NewBag(max int) *Bag {
	return &Bag{items: make([]Diagnostic, 0, max), max: max}
}

// Add appends d, respecting the limit. Returns false when the bag is full.
func (b *Bag) Add(d Diagnostic) bool {
	if len(b.items) >= b.max {
		return false
	}
	b.items = append(b.items, d)
	return true
}

// Error is a shortcut for adding a SevError diagnostic.
func (b *Bag) Error(code Code, pos Pos, msg string) bool {
	return b.Add(Diagnostic{Severity: SevError, Code: code, Pos: pos, Message: msg})
}

// HasErrors reports whether any diagnostic has Severity >= Error.
func (b *Bag) HasErrors() bool {
	for i := range b.items {
		if b.items[i].Severity >= SevError {
			return true
		}
	}
	return false
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Items returns a read-only view of the diagnostics. Do not modify the
// returned slice; it aliases the bag's storage.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// Merge appends the diagnostics of other, growing the limit when needed.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	if total := len(b.items) + len(other.items); total > b.max {
		b.max = total
	}
	b.items = append(b.items, other.items...)
}

// Sort orders diagnostics by file, line, severity (desc), code for a stable,
// deterministic output order.
func (b *Bag) Sort() {
	sort.SliceStable(b.items, func(i, j int) bool {
		di, dj := b.items[i], b.items[j]
		if di.Pos.File != dj.Pos.File {
			return di.Pos.File < dj.Pos.File
		}
		if di.Pos.Line != dj.Pos.Line {
			return di.Pos.Line < dj.Pos.Line
		}
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		return di.Code < dj.Code
	})
}
