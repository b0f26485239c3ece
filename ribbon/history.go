package ribbon

// Resolver finds documents by id.
type Resolver interface {
	Document(id ID) (*Document, bool)
}

// Library is a plain in-memory Resolver. It's not safe for concurrent writes.
type Library map[ID]*Document

// Add stores documents by their id.
func (lib Library) Add(docs ...*Document) {
	for _, d := range docs {
		lib[d.id] = d
	}
}

// Document returns the document with the given id.
func (lib Library) Document(id ID) (*Document, bool) {
	d, ok := lib[id]
	return d, ok
}

// History returns doc followed by the versions it was derived from, newest first.
// The walk stops at a root or at a basis the resolver doesn't know.
func History(doc *Document, r Resolver) []*Document {
	var docs []*Document
	for doc != nil {
		docs = append(docs, doc)
		if doc.IsRoot() {
			break
		}
		basis, ok := r.Document(doc.basis)
		if !ok {
			break
		}
		doc = basis
	}
	return docs
}

// ComposeChain returns the links from the first to the last of a chain of versions,
// as returned by History. Spans that were deleted midway are kept as links into the
// version where they were last seen.
//
// A single document maps onto itself; an empty chain has no links.
func ComposeChain(docs []*Document) LinkSet {
	switch len(docs) {
	case 0:
		return nil
	case 1:
		return Identity(docs[0].id, docs[0].Len())
	}
	links := docs[0].provenance.Normalize()
	for _, d := range docs[1 : len(docs)-1] {
		links = links.Compose(d.provenance)
	}
	return links
}

// Survivors compares the newest and oldest versions of a chain. It returns the spans of
// the newest version that come from the oldest, and the spans of the oldest that
// survive into the newest.
func Survivors(docs []*Document) (inLatest, inRoot []Address) {
	if len(docs) == 0 {
		return nil, nil
	}
	links := ComposeChain(docs)
	inRoot = Restrict(links.Range(), docs[len(docs)-1].id)
	return links.Preimage(inRoot), inRoot
}
