package ribbon

import (
	"fmt"
	"sort"
)

// ID identifies a document version. IDs are opaque and never contain ':' or '-',
// so that they can be embedded in reference tokens.
type ID string

// Address is a half-open range [Start, End) of rune offsets into the flattened text
// of the document version Basis.
type Address struct {
	Basis      ID
	Start, End int
}

// At returns the address [start, end) on basis. It panics if the range is inverted
// or negative.
func At(basis ID, start, end int) Address {
	if start < 0 || end < start {
		raise(ErrOutOfRange, "invalid address %s[%d,%d)", basis, start, end)
	}
	return Address{Basis: basis, Start: start, End: end}
}

// Len returns the number of runes within the address.
func (a Address) Len() int {
	return a.End - a.Start
}

// IsEmpty reports whether the address covers no rune.
func (a Address) IsEmpty() bool {
	return a.Start == a.End
}

// Contains reports whether the point lies within [Start, End).
func (a Address) Contains(point int) bool {
	return a.Start <= point && point < a.End
}

func (a Address) String() string {
	return fmt.Sprintf("%s[%d,%d)", a.Basis, a.Start, a.End)
}

func (a Address) sameBasis(b Address) {
	if a.Basis != b.Basis {
		raise(ErrCrossBasis, "%v and %v", a, b)
	}
}

// +---------------+
// | Interval ops  |
// +---------------+

// Intersect returns the overlap of a and b. It returns false if they are on different
// bases or if the overlap is empty.
func Intersect(a, b Address) (Address, bool) {
	if a.Basis != b.Basis {
		return Address{}, false
	}
	start, end := max(a.Start, b.Start), min(a.End, b.End)
	if start >= end {
		return Address{}, false
	}
	return Address{Basis: a.Basis, Start: start, End: end}, true
}

// Touching reports whether a and b overlap or are exactly adjacent, meaning that they
// should be merged into a single range.
func Touching(a, b Address) bool {
	if a.Basis != b.Basis {
		return false
	}
	if _, ok := Intersect(a, b); ok {
		return true
	}
	return a.End == b.Start || b.End == a.Start
}

// Diff subtracts b from a, returning zero, one or two pieces. Addresses on different
// bases don't overlap, so a is returned whole.
func Diff(a, b Address) []Address {
	hole, ok := Intersect(a, b)
	if !ok {
		if a.IsEmpty() {
			return nil
		}
		return []Address{a}
	}
	var pieces []Address
	if a.Start < hole.Start {
		pieces = append(pieces, Address{Basis: a.Basis, Start: a.Start, End: hole.Start})
	}
	if hole.End < a.End {
		pieces = append(pieces, Address{Basis: a.Basis, Start: hole.End, End: a.End})
	}
	return pieces
}

// Normalize groups addresses by basis, sorts them by start and merges touching ranges.
// Empty ranges are dropped. The result is sorted by basis and start, and
// Normalize(Normalize(x)) equals Normalize(x).
func Normalize(addrs []Address) []Address {
	sorted := make([]Address, 0, len(addrs))
	for _, a := range addrs {
		if !a.IsEmpty() {
			sorted = append(sorted, a)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return compareAddress(sorted[i], sorted[j]) < 0
	})
	var result []Address
	for _, a := range sorted {
		n := len(result)
		if n > 0 && Touching(result[n-1], a) {
			if a.End > result[n-1].End {
				result[n-1].End = a.End
			}
			continue
		}
		result = append(result, a)
	}
	return result
}

// IntersectAll returns the normalized overlap between two sets of addresses.
func IntersectAll(as, bs []Address) []Address {
	var result []Address
	for _, a := range as {
		for _, b := range bs {
			if c, ok := Intersect(a, b); ok {
				result = append(result, c)
			}
		}
	}
	return Normalize(result)
}

// SubtractAll returns the normalized parts of as not covered by any of bs.
func SubtractAll(as, bs []Address) []Address {
	rest := Normalize(as)
	for _, b := range bs {
		var next []Address
		for _, a := range rest {
			next = append(next, Diff(a, b)...)
		}
		rest = next
	}
	return Normalize(rest)
}

// Restrict keeps only the addresses on the given basis.
func Restrict(addrs []Address, basis ID) []Address {
	var result []Address
	for _, a := range addrs {
		if a.Basis == basis {
			result = append(result, a)
		}
	}
	return result
}

// Orders addresses by basis, start and end.
func compareAddress(a, b Address) int {
	switch {
	case a.Basis < b.Basis:
		return -1
	case a.Basis > b.Basis:
		return +1
	case a.Start < b.Start:
		return -1
	case a.Start > b.Start:
		return +1
	case a.End < b.End:
		return -1
	case a.End > b.End:
		return +1
	}
	return 0
}
