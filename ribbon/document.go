/*
Package ribbon provides immutable hypertext documents whose versions are connected by
span-to-span correspondence maps.

Every edit produces a new document together with a set of links ("ribbons") telling
which span of the new text came from which span of the old text, or of another
document when text is transcluded. Links compose across versions, so one can ask
which parts of the first version survive in the latest, and vice versa.

  # BEGIN ASCII ART

  p1:  T h e _ q u i c k _ f o x          "The quick fox"
       |_______|           |_______|
        \      \          /       /
  p2:  T h e _ _ f o x                     "The  fox"
       [0,4)→p1[0,4)   [4,8)→p1[9,13)

  # END ASCII ART
  # ALT TEXT: The text "The quick fox" is version p1. Deleting "quick" yields version p2,
              "The  fox". Two ribbons connect them: the first four runes map onto
              themselves, and the last four runes of p2 map onto the last four of p1.

Documents refer to each other only by ID. A Library (or any Resolver) turns ids back
into documents when walking the history.
*/
package ribbon

import (
	"strings"
	"unicode/utf8"

	"github.com/brunokim/ribbon/diff"
)

// Links built during an edit use this basis for the new document, whose id is only
// known after allocation.
const pending ID = ""

// Selection is a caret (Start == End) or a range reported by the editing surface.
type Selection struct {
	Start, End int
	Bias       Bias
}

// Caret returns an empty selection at pos.
func Caret(pos int, bias Bias) Selection {
	return Selection{Start: pos, End: pos, Bias: bias}
}

// Range returns a selection over [start, end).
func Range(start, end int) Selection {
	return Selection{Start: start, End: end}
}

// IsCaret reports whether the selection is empty.
func (s Selection) IsCaret() bool {
	return s.Start == s.End
}

// Document is an immutable version of a hypertext document.
//
// Its provenance links have origins on the document itself and destinations on the
// version it was derived from, or on the source of transcluded text.
type Document struct {
	id         ID
	blocks     Blocks
	provenance LinkSet
	basis      ID
	ids        IDAllocator
}

// Load creates a root document from raw text, with one paragraph per blank-line
// separated chunk. Versions derived from it take ids from the given allocator.
func Load(ids IDAllocator, text string) *Document {
	return New(ids, Paragraphs(strings.Split(text, "\n\n")...))
}

// New creates a root document with the given blocks.
func New(ids IDAllocator, blocks Blocks) *Document {
	if ids == nil {
		ids = RandomIDs{}
	}
	return &Document{
		id:     ids.Allocate(blocks, nil),
		blocks: blocks,
		ids:    ids,
	}
}

// ID returns the document identifier.
func (d *Document) ID() ID { return d.id }

// Basis returns the id of the version this one was derived from, or "" for a root.
func (d *Document) Basis() ID { return d.basis }

// IsRoot reports whether the document wasn't derived from another version.
func (d *Document) IsRoot() bool { return d.basis == "" }

// Blocks returns the document content.
func (d *Document) Blocks() Blocks { return d.blocks }

// Len returns the length of the flattened document.
func (d *Document) Len() int { return d.blocks.Len() }

// Address returns the address of the whole document.
func (d *Document) Address() Address { return At(d.id, 0, d.Len()) }

// Provenance returns a copy of the links from this version to its sources.
func (d *Document) Provenance() LinkSet {
	return append(LinkSet(nil), d.provenance...)
}

// ReadRange returns the text within [start, end).
func (d *Document) ReadRange(start, end int) (string, error) {
	return d.blocks.ReadRange(start, end)
}

// Text returns the whole text, failing if the document holds references.
func (d *Document) Text() (string, error) {
	return d.blocks.ReadRange(0, d.Len())
}

// Flatten returns the ordered list of blocks, for rendering.
func (d *Document) Flatten() []Block {
	return d.blocks.Flatten()
}

func (d *Document) String() string {
	return string(d.id) + ": " + d.blocks.String()
}

// Builds the derived document, and fixes the links to point to its new id.
func (d *Document) derive(blocks Blocks, links ...Link) *Document {
	provenance := LinkSet(links)
	id := d.ids.Allocate(blocks, provenance)
	for i, l := range provenance {
		if l.Origin.Basis == pending {
			provenance[i].Origin.Basis = id
		}
	}
	return &Document{
		id:         id,
		blocks:     blocks,
		provenance: provenance,
		basis:      d.id,
		ids:        d.ids,
	}
}

// Links for an edit that replaced old range [s, e) with k new offsets.
// The prefix is omitted when s is 0, and the suffix when e is the document end.
func (d *Document) around(s, e, k int) []Link {
	length := d.Len()
	var links []Link
	if s != 0 {
		links = append(links, Link{
			Origin: At(pending, 0, s),
			Dest:   At(d.id, 0, s),
		})
	}
	if e != length {
		links = append(links, Link{
			Origin: At(pending, s+k, length-(e-s)+k),
			Dest:   At(d.id, e, length),
		})
	}
	return links
}

// +------------+
// | Insertions |
// +------------+

// InsertChar inserts a char at the caret.
func (d *Document) InsertChar(sel Selection, ch rune) *Document {
	return d.InsertText(sel, string(ch))
}

// InsertText inserts text at the caret. If the selection is not a caret, or if the
// caret is not on a text block, the document is returned unchanged.
func (d *Document) InsertText(sel Selection, text string) *Document {
	if !sel.IsCaret() || text == "" {
		return d
	}
	c := sel.Start
	blocks, err := d.blocks.InsertText(c, text, sel.Bias)
	if err != nil {
		return d
	}
	return d.derive(blocks, d.around(c, c, utf8.RuneCountInString(text))...)
}

// InsertReference copies the text of src within [start, end) to the caret, linking the
// inserted span back to src in addition to the links to this version.
func (d *Document) InsertReference(src *Document, start, end int, sel Selection) *Document {
	if !sel.IsCaret() {
		return d
	}
	text, err := src.blocks.ReadRange(start, end)
	if err != nil || text == "" {
		return d
	}
	c, n := sel.Start, end-start
	blocks, err := d.blocks.InsertText(c, text, sel.Bias)
	if err != nil {
		return d
	}
	links := d.around(c, c, n)
	links = append(links, Link{
		Origin: At(pending, c, c+n),
		Dest:   At(src.id, start, end),
	})
	return d.derive(blocks, links...)
}

// +-----------+
// | Deletions |
// +-----------+

// Backspace removes the char before the caret.
//
// With Right or Neither bias and the caret at the start of a block, the block is
// merged with its predecessor instead, which keeps the length unchanged.
func (d *Document) Backspace(sel Selection) *Document {
	if !sel.IsCaret() || sel.Start == 0 {
		return d
	}
	c := sel.Start
	if sel.Bias != Left {
		if _, start := d.blocks.Locate(c, Right); start == c {
			blocks, err := d.blocks.MergeAt(c)
			if err != nil {
				return d
			}
			return d.derive(blocks, d.around(0, 0, 0)...)
		}
	}
	blocks, err := d.blocks.Backspace(c)
	if err != nil {
		return d
	}
	return d.derive(blocks, d.around(c-1, c, 0)...)
}

// DeleteSelection removes the selected range, or acts as Backspace on a caret.
func (d *Document) DeleteSelection(sel Selection) *Document {
	if sel.IsCaret() {
		return d.Backspace(sel)
	}
	s, e := sel.Start, sel.End
	if e < s {
		s, e = e, s
	}
	blocks, err := d.blocks.DeleteRange(s, e)
	if err != nil {
		return d
	}
	return d.derive(blocks, d.around(s, e, 0)...)
}

// +--------+
// | Quotes |
// +--------+

// Quote replaces the blocks touched by the spans with a collapsed quote of them.
// See QuoteAs.
func (d *Document) Quote(spans ...Address) *Document {
	return d.QuoteAs(Quote, spans...)
}

// QuoteAs replaces the blocks touched by the spans with a live reference to them.
//
// The reference covers the touched blocks whole, so no text is lost: one block becomes
// a ReferenceBlock, and several blocks a BranchBlock with one source per block. The
// quoted content isn't linked: it stays addressed against this version. Spans must be
// on this document, and empty spans are ignored.
func (d *Document) QuoteAs(mode DisplayMode, spans ...Address) *Document {
	lo, hi := d.Len(), 0
	for _, span := range spans {
		if span.Basis != d.id {
			raise(ErrCrossBasis, "quoting %v from %s", span, d.id)
		}
		checkRange(span.Start, span.End, d.Len())
		if span.IsEmpty() {
			continue
		}
		lo, hi = min(lo, span.Start), max(hi, span.End)
	}
	if lo >= hi {
		return d
	}
	s, e := d.blocks.Bounds(lo, hi)
	var sources []Address
	for pos := s; pos < e; {
		i, start := d.blocks.Locate(pos, Right)
		end := start + d.blocks.Block(i).Len()
		sources = append(sources, At(d.id, start, end))
		pos = end
	}
	var block Block
	if len(sources) == 1 {
		block = ReferenceBlock{Source: sources[0], Mode: mode}
	} else {
		block = BranchBlock{Sources: sources, Mode: mode}
	}
	blocks := d.blocks.Replace(s, e, block)
	return d.derive(blocks, d.around(s, e, block.Len())...)
}

// +---------+
// | Rewrite |
// +---------+

// Rewrite replaces the whole text, deriving links from the longest common subsequence
// between old and new text. Paragraphs are separated by blank lines. The document is
// returned unchanged if it holds references.
func (d *Document) Rewrite(text string) *Document {
	old, err := d.Text()
	if err != nil {
		return d
	}
	blocks := Paragraphs(strings.Split(text, "\n\n")...)
	newText, err := blocks.ReadRange(0, blocks.Len())
	if err != nil {
		return d
	}
	runs, err := diff.Matches(old, newText)
	if err != nil {
		return d
	}
	links := make([]Link, len(runs))
	for i, run := range runs {
		links[i] = Link{
			Origin: At(pending, run.NewStart, run.NewStart+run.Len),
			Dest:   At(d.id, run.OldStart, run.OldStart+run.Len),
		}
	}
	return d.derive(blocks, links...)
}
