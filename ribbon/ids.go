package ribbon

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

var (
	uuidv4 = uuid.New // Stubbed for mocking in mocks_test.go
)

// IDAllocator names new document versions.
type IDAllocator interface {
	// Allocate returns the id of a document with the given content and provenance.
	Allocate(blocks Blocks, provenance LinkSet) ID
}

// +----------+
// | Sequence |
// +----------+

// Sequence allocates sequential ids p1, p2, ... with the given prefix (default "p").
type Sequence struct {
	Prefix string

	mu   sync.Mutex
	next int
}

// Allocate returns the next id in the sequence.
func (s *Sequence) Allocate(Blocks, LinkSet) ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	prefix := s.Prefix
	if prefix == "" {
		prefix = "p"
	}
	return ID(fmt.Sprintf("%s%d", prefix, s.next))
}

// +-----------+
// | RandomIDs |
// +-----------+

// RandomIDs allocates random UUIDv4 ids, written as 32 hex digits.
type RandomIDs struct{}

// Allocate returns a fresh random id.
func (RandomIDs) Allocate(Blocks, LinkSet) ID {
	u := uuidv4()
	return ID(hex.EncodeToString(u[:]))
}

// +------------+
// | ContentIDs |
// +------------+

// ContentIDs derives ids from a BLAKE3 digest of content and provenance, so that
// the same edit applied to the same version always yields the same id.
type ContentIDs struct {
	// Size is the digest prefix length in bytes (default 12).
	Size int
}

// Allocate hashes the blocks and provenance links.
func (c ContentIDs) Allocate(blocks Blocks, provenance LinkSet) ID {
	h := blake3.New()
	var buf [8]byte
	writeInt := func(n int) {
		binary.BigEndian.PutUint64(buf[:], uint64(n))
		h.Write(buf[:])
	}
	writeString := func(s string) {
		writeInt(len(s))
		h.Write([]byte(s))
	}
	writeAddress := func(a Address) {
		writeString(string(a.Basis))
		writeInt(a.Start)
		writeInt(a.End)
	}
	for _, b := range blocks.list {
		switch b := b.(type) {
		case TextBlock:
			writeInt(0)
			writeString(b.Text)
		case ReferenceBlock:
			writeInt(1)
			writeInt(int(b.Mode))
			writeAddress(b.Source)
		case BranchBlock:
			writeInt(2)
			writeInt(int(b.Mode))
			writeInt(len(b.Sources))
			for _, src := range b.Sources {
				writeAddress(src)
			}
		default:
			panic(fmt.Sprintf("ContentIDs: unexpected block type %T (%v)", b, b))
		}
	}
	writeInt(len(provenance))
	for _, l := range provenance {
		writeAddress(l.Origin)
		writeAddress(l.Dest)
	}
	size := c.Size
	if size <= 0 || size > 32 {
		size = 12
	}
	sum := h.Sum(nil)
	return ID("h" + hex.EncodeToString(sum[:size]))
}
