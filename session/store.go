// Package session keeps the versions of many documents in memory, and serializes
// edits on them.
//
// Each loaded document starts a session, whose head is its latest version. Edits
// are optimistic: they name the version they were made against, and are rejected
// if that version is no longer the head. The store never merges concurrent edits.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/brunokim/ribbon/internal/logging"
	"github.com/brunokim/ribbon/ribbon"
)

// Errors returned by the store.
var (
	ErrUnknownDocument = errors.New("unknown document")
	ErrStaleBase       = errors.New("base is not the latest version")
	ErrNoChange        = errors.New("edit made no change")
	ErrDuplicateID     = errors.New("document id already exists")
	ErrInvalidEdit     = errors.New("invalid edit")
	ErrClosed          = errors.New("store is closed")
)

// Options configure a Store.
type Options struct {
	// IDs names new versions. Defaults to ribbon.RandomIDs.
	IDs ribbon.IDAllocator
	// Logger receives one entry per load and edit. Defaults to discarding.
	Logger *slog.Logger
	// Journal, if set, receives one JSON line per load and edit.
	Journal *Journal
}

// Store is a concurrency-safe collection of document versions.
type Store struct {
	mu     sync.RWMutex
	closed bool

	ids     ribbon.IDAllocator
	logger  *slog.Logger
	journal *Journal

	docs  ribbon.Library
	roots map[ribbon.ID]ribbon.ID // version -> session root
	heads map[ribbon.ID]ribbon.ID // session root -> latest version
}

// New creates an empty store.
func New(opts Options) *Store {
	if opts.IDs == nil {
		opts.IDs = ribbon.RandomIDs{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Store{
		ids:     opts.IDs,
		logger:  opts.Logger,
		journal: opts.Journal,
		docs:    ribbon.Library{},
		roots:   make(map[ribbon.ID]ribbon.ID),
		heads:   make(map[ribbon.ID]ribbon.ID),
	}
}

// Load creates a root document from text and starts a session on it.
func (s *Store) Load(ctx context.Context, text string) (*ribbon.Document, error) {
	doc := ribbon.Load(s.ids, text)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if _, ok := s.docs[doc.ID()]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, doc.ID())
	}
	s.docs.Add(doc)
	s.roots[doc.ID()] = doc.ID()
	s.heads[doc.ID()] = doc.ID()

	logging.FromContext(ctx, s.logger).Info("document loaded", "doc", doc.ID(), "len", doc.Len())
	s.journal.record(entry{Type: "load", Doc: doc.ID(), Text: text})
	return doc, nil
}

// Document returns a version by id. It implements ribbon.Resolver.
func (s *Store) Document(id ribbon.ID) (*ribbon.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs.Document(id)
}

// Get returns a version by id.
func (s *Store) Get(id ribbon.ID) (*ribbon.Document, error) {
	doc, ok := s.Document(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, id)
	}
	return doc, nil
}

// Head returns the latest version of the session that id belongs to.
func (s *Store) Head(id ribbon.ID) (*ribbon.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	root, ok := s.roots[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, id)
	}
	return s.docs[s.heads[root]], nil
}

// Apply edits the version base, which must be the head of its session, and makes
// the result the new head.
//
// Edits that leave the document unchanged return ErrNoChange, and offsets outside
// the document return an error wrapping ribbon.ErrOutOfRange.
func (s *Store) Apply(ctx context.Context, base ribbon.ID, edit Edit) (*ribbon.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	logger := logging.FromContext(ctx, s.logger).With("base", base, "op", edit.Op)
	doc, ok := s.docs[base]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, base)
	}
	root := s.roots[base]
	if head := s.heads[root]; head != base {
		logger.Warn("stale edit rejected", "head", head)
		return nil, fmt.Errorf("%w: %s, latest is %s", ErrStaleBase, base, head)
	}
	next, err := applyEdit(doc, edit, s.docs)
	if err != nil {
		logger.Warn("edit failed", "error", err)
		return nil, err
	}
	if next == doc {
		return nil, fmt.Errorf("%w: %s on %s", ErrNoChange, edit.Op, base)
	}
	if _, ok := s.docs[next.ID()]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, next.ID())
	}
	s.docs.Add(next)
	s.roots[next.ID()] = root
	s.heads[root] = next.ID()

	logger.Info("edit applied", "doc", next.ID(), "len", next.Len())
	s.journal.record(entry{Type: "edit", Base: base, Doc: next.ID(), Edit: &edit, Links: tokens(next.Provenance())})
	return next, nil
}

// Runs the edit, turning offset and basis panics into errors.
func applyEdit(doc *ribbon.Document, edit Edit, r ribbon.Resolver) (next *ribbon.Document, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			e, ok := rec.(error)
			if !ok || !(errors.Is(e, ribbon.ErrOutOfRange) || errors.Is(e, ribbon.ErrCrossBasis)) {
				panic(rec)
			}
			next, err = nil, fmt.Errorf("%w: %w", ErrInvalidEdit, e)
		}
	}()
	return edit.apply(doc, r)
}

// History returns the versions of id's session up to id, newest first.
func (s *Store) History(id ribbon.ID) ([]*ribbon.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, id)
	}
	return ribbon.History(doc, s.docs), nil
}

// Trace returns the links from version id back to the root of its session.
// Spans deleted midway link into the version where they were last seen, and
// transcluded spans link into their sources.
func (s *Store) Trace(id ribbon.ID) (ribbon.LinkSet, error) {
	history, err := s.History(id)
	if err != nil {
		return nil, err
	}
	return ribbon.ComposeChain(history), nil
}

// Read returns the text of version id within [start, end).
func (s *Store) Read(id ribbon.ID, start, end int) (string, error) {
	doc, err := s.Get(id)
	if err != nil {
		return "", err
	}
	if start < 0 || end > doc.Len() || end < start {
		return "", fmt.Errorf("%w: [%d,%d) on %s of length %d", ribbon.ErrOutOfRange, start, end, id, doc.Len())
	}
	return doc.ReadRange(start, end)
}

// Close stops accepting edits and flushes the journal.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.journal.Close()
}

func tokens(links ribbon.LinkSet) []linkTokens {
	result := make([]linkTokens, len(links))
	for i, l := range links {
		result[i] = linkTokens{Origin: l.Origin.Token(), Dest: l.Dest.Token()}
	}
	return result
}
