package ribbon

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// +--------+
// | Blocks |
// +--------+

// Block is a chunk of a document, usually a paragraph.
//
// The set of implementations is closed: TextBlock, ReferenceBlock and BranchBlock.
type Block interface {
	// Len returns how many offsets the block occupies in the flattened document.
	Len() int
	isBlock()
}

// DisplayMode tells how a reference is presented.
type DisplayMode int

// Display modes for references.
const (
	// Quote collapses the reference into a single quoted block.
	Quote DisplayMode = iota
	// Bud shows only the title of the referenced document.
	Bud
	// Card shows title and content of the referenced span.
	Card
)

func (m DisplayMode) String() string {
	switch m {
	case Quote:
		return "quote"
	case Bud:
		return "bud"
	case Card:
		return "card"
	}
	return fmt.Sprintf("DisplayMode(%d)", int(m))
}

// ParseDisplayMode parses the names returned by DisplayMode.String.
func ParseDisplayMode(s string) (DisplayMode, error) {
	switch s {
	case "quote", "":
		return Quote, nil
	case "bud":
		return Bud, nil
	case "card":
		return Card, nil
	}
	return Quote, fmt.Errorf("unknown display mode %q", s)
}

// TextBlock is a paragraph of plain text.
type TextBlock struct {
	Text string
}

// ReferenceBlock is a live quote of a span of some document. It's addressed against
// its source instead of copying its content.
type ReferenceBlock struct {
	Source Address
	Mode   DisplayMode
}

// BranchBlock groups references to several spans, e.g., a quote across paragraphs.
type BranchBlock struct {
	Sources []Address
	Mode    DisplayMode
}

func (b TextBlock) Len() int      { return utf8.RuneCountInString(b.Text) }
func (b ReferenceBlock) Len() int { return 1 }

// Len is 1 when the branch is collapsed into a quote, or one per source otherwise.
func (b BranchBlock) Len() int {
	if b.Mode == Quote {
		return 1
	}
	return len(b.Sources)
}

func (TextBlock) isBlock()      {}
func (ReferenceBlock) isBlock() {}
func (BranchBlock) isBlock()    {}

func (b TextBlock) String() string { return b.Text }
func (b ReferenceBlock) String() string {
	return fmt.Sprintf("[%v %s]", b.Mode, b.Source.Token())
}
func (b BranchBlock) String() string {
	tokens := make([]string, len(b.Sources))
	for i, src := range b.Sources {
		tokens[i] = src.Token()
	}
	return fmt.Sprintf("[%v %s]", b.Mode, strings.Join(tokens, " | "))
}

// Bias disambiguates a caret placed at the boundary between two blocks.
type Bias int

// Caret biases reported by the editing surface.
const (
	// Left attaches the caret to the end of the preceding block.
	Left Bias = iota
	// Right attaches the caret to the start of the following block.
	Right
	// Neither means the caret sits in a blank paragraph of its own.
	Neither
)

func (b Bias) String() string {
	switch b {
	case Left:
		return "left"
	case Right:
		return "right"
	case Neither:
		return "neither"
	}
	return fmt.Sprintf("Bias(%d)", int(b))
}

// ParseBias parses the names returned by Bias.String.
func ParseBias(s string) (Bias, error) {
	switch s {
	case "left", "":
		return Left, nil
	case "right":
		return Right, nil
	case "neither":
		return Neither, nil
	}
	return Left, fmt.Errorf("unknown bias %q", s)
}

// Blocks is an immutable ordered list of blocks. Offsets run over the concatenation
// of blocks, and paragraph boundaries don't count as characters.
type Blocks struct {
	list   []Block
	length int
}

// NewBlocks creates a block list. Empty text blocks are dropped.
func NewBlocks(blocks ...Block) Blocks {
	var bs Blocks
	for _, b := range blocks {
		if tb, ok := b.(TextBlock); ok && tb.Text == "" {
			continue
		}
		if bb, ok := b.(BranchBlock); ok && len(bb.Sources) == 0 {
			continue
		}
		bs.list = append(bs.list, b)
		bs.length += b.Len()
	}
	return bs
}

// Paragraphs creates a block list with one text block per paragraph.
func Paragraphs(texts ...string) Blocks {
	blocks := make([]Block, len(texts))
	for i, text := range texts {
		blocks[i] = TextBlock{text}
	}
	return NewBlocks(blocks...)
}

// Len returns the total length of all blocks.
func (bs Blocks) Len() int {
	return bs.length
}

// Count returns the number of blocks.
func (bs Blocks) Count() int {
	return len(bs.list)
}

// Block returns the i-th block.
func (bs Blocks) Block(i int) Block {
	return bs.list[i]
}

// Flatten returns a copy of the ordered list of blocks, for rendering.
func (bs Blocks) Flatten() []Block {
	return append([]Block(nil), bs.list...)
}

func (bs Blocks) String() string {
	parts := make([]string, len(bs.list))
	for i, b := range bs.list {
		parts[i] = fmt.Sprint(b)
	}
	return strings.Join(parts, "\n\n")
}

// Returns a new list with blocks [i,j) replaced by the given blocks.
func (bs Blocks) splice(i, j int, blocks ...Block) Blocks {
	list := make([]Block, 0, len(bs.list)-(j-i)+len(blocks))
	list = append(list, bs.list[:i]...)
	list = append(list, blocks...)
	list = append(list, bs.list[j:]...)
	return NewBlocks(list...)
}

// Locate finds the block holding an offset, returning its index and start offset.
//
// With Left or Neither bias, it's the last block starting strictly before the offset;
// with Right bias, the last block starting at or before it. The index is -1 if no
// block qualifies, which only happens at offset 0 with Left or Neither bias, or on
// an empty list.
//
//	blocks:  [ A B ] [ C D ]
//	offset:  0  1   2  3   4
//	Locate(2, Left)  = block 0, start 0
//	Locate(2, Right) = block 1, start 2
func (bs Blocks) Locate(offset int, bias Bias) (int, int) {
	idx, start := -1, 0
	pos := 0
	for i, b := range bs.list {
		if pos > offset || (pos == offset && bias != Right) {
			break
		}
		idx, start = i, pos
		pos += b.Len()
	}
	return idx, start
}

func (bs Blocks) textAt(i int) ([]rune, error) {
	tb, ok := bs.list[i].(TextBlock)
	if !ok {
		return nil, fmt.Errorf("%w: block %d is %T", ErrUnsupportedTarget, i, bs.list[i])
	}
	return []rune(tb.Text), nil
}

// InsertText inserts text at offset.
//
// With Neither bias the text becomes a new paragraph right after the located block,
// and offset must be at the end of that block.
func (bs Blocks) InsertText(offset int, text string, bias Bias) (Blocks, error) {
	checkOffset(offset, bs.length)
	if text == "" {
		return bs, nil
	}
	idx, start := bs.Locate(offset, bias)
	if bias == Neither {
		if idx >= 0 && start+bs.list[idx].Len() != offset {
			return bs, fmt.Errorf("%w: blank paragraph at %d is inside block %d", ErrUnsupportedTarget, offset, idx)
		}
		return bs.splice(idx+1, idx+1, TextBlock{text}), nil
	}
	if len(bs.list) == 0 {
		return NewBlocks(TextBlock{text}), nil
	}
	if idx < 0 {
		idx, start = 0, 0
	}
	runes, err := bs.textAt(idx)
	if err != nil {
		return bs, err
	}
	local := offset - start
	newText := string(runes[:local]) + text + string(runes[local:])
	return bs.splice(idx, idx+1, TextBlock{newText}), nil
}

// Backspace removes the rune immediately before offset.
func (bs Blocks) Backspace(offset int) (Blocks, error) {
	checkOffset(offset, bs.length)
	if offset == 0 {
		return bs, fmt.Errorf("%w: nothing before offset 0", ErrNoSelection)
	}
	idx, start := bs.Locate(offset, Left)
	runes, err := bs.textAt(idx)
	if err != nil {
		return bs, err
	}
	local := offset - start
	newText := string(runes[:local-1]) + string(runes[local:])
	return bs.splice(idx, idx+1, TextBlock{newText}), nil
}

// DeleteRange removes [start, end). When the range crosses blocks, the retained prefix
// of the first block is joined with the retained suffix of the last one, and every
// block in between is dropped.
func (bs Blocks) DeleteRange(start, end int) (Blocks, error) {
	checkRange(start, end, bs.length)
	if start == end {
		return bs, nil
	}
	si, ss := bs.Locate(start, Right)
	ei, es := bs.Locate(end, Left)
	first, err := bs.textAt(si)
	if err != nil {
		return bs, err
	}
	last, err := bs.textAt(ei)
	if err != nil {
		return bs, err
	}
	var newText string
	if si == ei {
		newText = string(first[:start-ss]) + string(first[end-ss:])
	} else {
		newText = string(first[:start-ss]) + string(last[end-es:])
	}
	return bs.splice(si, ei+1, TextBlock{newText}), nil
}

// ReadRange returns the text within [start, end), across any number of text blocks.
func (bs Blocks) ReadRange(start, end int) (string, error) {
	checkRange(start, end, bs.length)
	if start == end {
		return "", nil
	}
	si, ss := bs.Locate(start, Right)
	ei, _ := bs.Locate(end, Left)
	var sb strings.Builder
	pos := ss
	for i := si; i <= ei; i++ {
		runes, err := bs.textAt(i)
		if err != nil {
			return "", err
		}
		from, to := 0, len(runes)
		if i == si {
			from = start - pos
		}
		if i == ei {
			to = end - pos
		}
		sb.WriteString(string(runes[from:to]))
		pos += len(runes)
	}
	return sb.String(), nil
}

// Replace substitutes the blocks touched by [start, end) with a single block.
// The start is resolved with Right bias and the end with Left bias, so an empty range
// at a block boundary inserts the block there.
func (bs Blocks) Replace(start, end int, block Block) Blocks {
	checkRange(start, end, bs.length)
	si, _ := bs.Locate(start, Right)
	ei, _ := bs.Locate(end, Left)
	if si < 0 {
		si = 0
	}
	if ei < si {
		ei = si - 1
	}
	return bs.splice(si, ei+1, block)
}

// Bounds widens [start, end) to the boundaries of the blocks it touches.
func (bs Blocks) Bounds(start, end int) (int, int) {
	checkRange(start, end, bs.length)
	if start == end {
		return start, end
	}
	_, s := bs.Locate(start, Right)
	ei, es := bs.Locate(end, Left)
	return s, es + bs.list[ei].Len()
}

// MergeAt joins the block starting at offset with its predecessor. Only text blocks
// can be joined.
func (bs Blocks) MergeAt(offset int) (Blocks, error) {
	checkOffset(offset, bs.length)
	idx, start := bs.Locate(offset, Right)
	if idx <= 0 || start != offset {
		return bs, fmt.Errorf("%w: no block boundary at %d", ErrNoSelection, offset)
	}
	former, err := bs.textAt(idx - 1)
	if err != nil {
		return bs, err
	}
	latter, err := bs.textAt(idx)
	if err != nil {
		return bs, err
	}
	return bs.splice(idx-1, idx+1, TextBlock{string(former) + string(latter)}), nil
}
