package ribbon

import (
	"fmt"
	"sort"
	"strings"
)

// +------+
// | Link |
// +------+

// Link is a directed correspondence between two addresses: the span Origin was
// derived from the span Dest.
//
// Links produced by edits have equal lengths on both sides. Restricted links may not.
type Link struct {
	Origin, Dest Address
}

// NewLink creates a link between origin and dest.
func NewLink(origin, dest Address) Link {
	return Link{Origin: origin, Dest: dest}
}

func (l Link) String() string {
	return fmt.Sprintf("%v→%v", l.Origin, l.Dest)
}

// IsEmpty reports whether either side of the link covers no rune.
func (l Link) IsEmpty() bool {
	return l.Origin.IsEmpty() || l.Dest.IsEmpty()
}

// Invert swaps origin and destination.
func (l Link) Invert() Link {
	return Link{Origin: l.Dest, Dest: l.Origin}
}

// Translate shifts a point from the origin space into the destination space.
// The result is not checked against the destination bounds.
func (l Link) Translate(point int) int {
	return point - l.Origin.Start + l.Dest.Start
}

// TranslateInterval maps addr into the destination space, dropping whatever falls
// outside Dest. It panics if addr is not on the origin's basis.
func (l Link) TranslateInterval(addr Address) (Address, bool) {
	l.Origin.sameBasis(addr)
	image := Address{
		Basis: l.Dest.Basis,
		Start: l.Translate(addr.Start),
		End:   l.Translate(addr.End),
	}
	return Intersect(image, l.Dest)
}

// Partial restricts the link to the part whose origin overlaps addr.
func (l Link) Partial(addr Address) (Link, bool) {
	origin, ok := Intersect(l.Origin, addr)
	if !ok {
		return Link{}, false
	}
	dest, ok := l.TranslateInterval(origin)
	if !ok {
		return Link{}, false
	}
	origin, ok = l.Invert().TranslateInterval(dest)
	if !ok {
		return Link{}, false
	}
	return Link{Origin: origin, Dest: dest}, true
}

// Links on the same diagonal can be merged when their origins touch.
func (l Link) isDiagonal() bool {
	return l.Origin.Len() == l.Dest.Len()
}

func (l Link) shift() int {
	return l.Dest.Start - l.Origin.Start
}

func compareLink(a, b Link) int {
	if c := compareAddress(a.Origin, b.Origin); c != 0 {
		return c
	}
	return compareAddress(a.Dest, b.Dest)
}

// +---------+
// | LinkSet |
// +---------+

// LinkSet is a collection of links, treated as a relation between the offset spaces of
// its origins and of its destinations. Before normalization the relation may be
// many-to-many and contain redundant links.
type LinkSet []Link

// Identity returns the link set mapping every offset of a document of given length
// onto itself.
func Identity(basis ID, length int) LinkSet {
	if length == 0 {
		return nil
	}
	addr := At(basis, 0, length)
	return LinkSet{{Origin: addr, Dest: addr}}
}

func (ls LinkSet) String() string {
	parts := make([]string, len(ls))
	for i, l := range ls {
		parts[i] = l.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Invert swaps origin and destination of every link.
func (ls LinkSet) Invert() LinkSet {
	if ls == nil {
		return nil
	}
	result := make(LinkSet, len(ls))
	for i, l := range ls {
		result[i] = l.Invert()
	}
	return result
}

// Domain returns the normalized union of all origins.
func (ls LinkSet) Domain() []Address {
	addrs := make([]Address, len(ls))
	for i, l := range ls {
		addrs[i] = l.Origin
	}
	return Normalize(addrs)
}

// Range returns the normalized union of all destinations.
func (ls LinkSet) Range() []Address {
	addrs := make([]Address, len(ls))
	for i, l := range ls {
		addrs[i] = l.Dest
	}
	return Normalize(addrs)
}

// Image maps addrs through every link whose origin shares their basis.
func (ls LinkSet) Image(addrs []Address) []Address {
	var result []Address
	for _, l := range ls {
		for _, addr := range addrs {
			if addr.Basis != l.Origin.Basis {
				continue
			}
			if image, ok := l.TranslateInterval(addr); ok {
				result = append(result, image)
			}
		}
	}
	return Normalize(result)
}

// Preimage maps addrs backwards, from destination to origin space.
func (ls LinkSet) Preimage(addrs []Address) []Address {
	return ls.Invert().Image(addrs)
}

// Partial keeps only the links whose origin overlaps addr, each restricted to it.
func (ls LinkSet) Partial(addr Address) LinkSet {
	var result LinkSet
	for _, l := range ls {
		if p, ok := l.Partial(addr); ok {
			result = append(result, p)
		}
	}
	return result
}

// PartialRange keeps only the links whose destination overlaps addr, each restricted to it.
func (ls LinkSet) PartialRange(addr Address) LinkSet {
	return ls.Invert().Partial(addr).Invert()
}

// Prism materializes transitive links for the sub-range addr of the domain.
//
// Given ls (A→B) and other (C→B), it finds every B-span reached from addr, then every
// C-span that maps to the same B-span, and emits a direct A→C link for each pair.
func (ls LinkSet) Prism(other LinkSet, addr Address) LinkSet {
	forward := other.Invert() // B→C
	var result LinkSet
	for _, l := range ls.Partial(addr) {
		for _, m := range forward.Partial(l.Dest) {
			back, ok := l.Invert().Partial(m.Origin) // B→A, restricted to the shared B-span.
			if !ok {
				continue
			}
			fwd, ok := m.Partial(back.Origin)
			if !ok {
				continue
			}
			result = append(result, Link{Origin: back.Dest, Dest: fwd.Dest})
		}
	}
	return result
}

// Compose builds a relation A→C from ls (A→B) and other (B→C).
//
// Every part of the domain is preserved: spans of B that continue into C produce
// direct A→C links, while spans that dead-end in B are kept as A→B links, so that
// following a span back through many versions always ends somewhere.
func (ls LinkSet) Compose(other LinkSet) LinkSet {
	rng := ls.Range()
	longI := other.Image(rng)
	prelongs := IntersectAll(other.Preimage(longI), rng)
	shortI := SubtractAll(rng, prelongs)

	var result LinkSet
	for _, s := range shortI {
		result = append(result, ls.PartialRange(s)...)
	}
	inverse := other.Invert()
	for _, a := range ls.Preimage(prelongs) {
		result = append(result, ls.Prism(inverse, a)...)
	}
	return result.Normalize()
}

// Normalize returns the canonical form of the relation: empty links are dropped,
// links on the same diagonal with touching origins are merged, duplicates are
// removed, and links are sorted by origin then destination.
func (ls LinkSet) Normalize() LinkSet {
	type diagonal struct {
		origin, dest ID
		shift        int
	}
	groups := make(map[diagonal][]Address)
	var keys []diagonal
	var result LinkSet
	for _, l := range ls {
		if l.IsEmpty() {
			continue
		}
		if !l.isDiagonal() {
			result = append(result, l)
			continue
		}
		key := diagonal{l.Origin.Basis, l.Dest.Basis, l.shift()}
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], l.Origin)
	}
	for _, key := range keys {
		for _, origin := range Normalize(groups[key]) {
			dest := Address{Basis: key.dest, Start: origin.Start + key.shift, End: origin.End + key.shift}
			result = append(result, Link{Origin: origin, Dest: dest})
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return compareLink(result[i], result[j]) < 0
	})
	// Remove duplicates, which are now adjacent.
	n := 0
	for i, l := range result {
		if i > 0 && l == result[n-1] {
			continue
		}
		result[n] = l
		n++
	}
	if n == 0 {
		return nil
	}
	return result[:n]
}

// Equal reports whether two link sets represent the same relation.
func (ls LinkSet) Equal(other LinkSet) bool {
	a, b := ls.Normalize(), other.Normalize()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
