package session_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/brunokim/ribbon/ribbon"
	"github.com/brunokim/ribbon/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore() *session.Store {
	return session.New(session.Options{IDs: &ribbon.Sequence{}})
}

func text(t *testing.T, doc *ribbon.Document) string {
	t.Helper()
	s, err := doc.Text()
	require.NoError(t, err)
	return s
}

func offset(n int) *int { return &n }

func ids(docs []*ribbon.Document) []ribbon.ID {
	var result []ribbon.ID
	for _, d := range docs {
		result = append(result, d.ID())
	}
	return result
}

func TestStore_edits(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	defer s.Close()

	p1, err := s.Load(ctx, "Hello world")
	require.NoError(t, err)
	assert.Equal(t, ribbon.ID("p1"), p1.ID())

	p2, err := s.Apply(ctx, "p1", session.Edit{Op: session.OpBackspace, Start: 5})
	require.NoError(t, err)
	assert.Equal(t, "Hell world", text(t, p2))

	p3, err := s.Apply(ctx, "p2", session.Edit{Op: session.OpInsert, Start: 4, Text: "o,"})
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", text(t, p3))

	p4, err := s.Apply(ctx, "p3", session.Edit{Op: session.OpDelete, Start: 5, End: offset(6)})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", text(t, p4))

	head, err := s.Head("p1")
	require.NoError(t, err)
	assert.Equal(t, p4, head)

	history, err := s.History("p4")
	require.NoError(t, err)
	assert.Equal(t, []ribbon.ID{"p4", "p3", "p2", "p1"}, ids(history))

	links, err := s.Trace("p4")
	require.NoError(t, err)
	want := ribbon.LinkSet{
		ribbon.NewLink(ribbon.At("p4", 0, 4), ribbon.At("p1", 0, 4)),
		ribbon.NewLink(ribbon.At("p4", 4, 5), ribbon.At("p3", 4, 5)),
		ribbon.NewLink(ribbon.At("p4", 5, 11), ribbon.At("p1", 5, 11)),
	}
	assert.Equal(t, want, links)

	got, err := s.Read("p4", 6, 11)
	require.NoError(t, err)
	assert.Equal(t, "world", got)
}

func TestStore_staleBase(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	defer s.Close()

	_, err := s.Load(ctx, "abc")
	require.NoError(t, err)
	_, err = s.Apply(ctx, "p1", session.Edit{Op: session.OpInsert, Start: 3, Text: "d"})
	require.NoError(t, err)

	_, err = s.Apply(ctx, "p1", session.Edit{Op: session.OpInsert, Start: 0, Text: "x"})
	assert.ErrorIs(t, err, session.ErrStaleBase)
	head, err := s.Head("p2")
	require.NoError(t, err)
	assert.Equal(t, ribbon.ID("p2"), head.ID())
}

func TestStore_concurrentEdits(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	defer s.Close()
	_, err := s.Load(ctx, "abc")
	require.NoError(t, err)

	const n = 10
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Apply(ctx, "p1", session.Edit{Op: session.OpInsert, Start: 0, Text: "x"})
		}(i)
	}
	wg.Wait()

	var applied, stale int
	for _, err := range errs {
		switch {
		case err == nil:
			applied++
		case errors.Is(err, session.ErrStaleBase):
			stale++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, applied)
	assert.Equal(t, n-1, stale)
}

func TestStore_reference(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	defer s.Close()
	_, err := s.Load(ctx, "hello")
	require.NoError(t, err)
	_, err = s.Load(ctx, "world")
	require.NoError(t, err)

	p3, err := s.Apply(ctx, "p2", session.Edit{Op: session.OpReference, Source: "p1:1-3"})
	require.NoError(t, err)
	assert.Equal(t, "elworld", text(t, p3))

	links, err := s.Trace("p3")
	require.NoError(t, err)
	want := ribbon.LinkSet{
		ribbon.NewLink(ribbon.At("p3", 0, 2), ribbon.At("p1", 1, 3)),
		ribbon.NewLink(ribbon.At("p3", 2, 7), ribbon.At("p2", 0, 5)),
	}
	assert.Equal(t, want, links)

	_, err = s.Apply(ctx, "p3", session.Edit{Op: session.OpReference, Source: "p9:0-1"})
	assert.ErrorIs(t, err, session.ErrUnknownDocument)
	_, err = s.Apply(ctx, "p3", session.Edit{Op: session.OpReference, Source: "p1:0-9"})
	assert.ErrorIs(t, err, session.ErrInvalidEdit)
	assert.ErrorIs(t, err, ribbon.ErrOutOfRange)
}

func TestStore_quoteAndRewrite(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	defer s.Close()
	_, err := s.Load(ctx, "ab\n\ncd")
	require.NoError(t, err)

	p2, err := s.Apply(ctx, "p1", session.Edit{Op: session.OpQuote, Spans: []string{"p1:2-4"}, Mode: "card"})
	require.NoError(t, err)
	require.Equal(t, 2, p2.Blocks().Count())
	assert.Equal(t, ribbon.ReferenceBlock{Source: ribbon.At("p1", 2, 4), Mode: ribbon.Card}, p2.Blocks().Block(1))
	got, err := s.Read("p2", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, "ab", got)

	_, err = s.Apply(ctx, "p2", session.Edit{Op: session.OpRewrite, Text: "abc"})
	assert.ErrorIs(t, err, session.ErrNoChange)
	_, err = s.Apply(ctx, "p2", session.Edit{Op: session.OpQuote, Spans: []string{"p1:0-1"}})
	assert.ErrorIs(t, err, ribbon.ErrCrossBasis)

	p1, err := s.Load(ctx, "The quick fox")
	require.NoError(t, err)
	p4, err := s.Apply(ctx, p1.ID(), session.Edit{Op: session.OpRewrite, Text: "The slow fox"})
	require.NoError(t, err)
	assert.Equal(t, "The slow fox", text(t, p4))
}

func TestStore_errors(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	_, err := s.Load(ctx, "abc")
	require.NoError(t, err)

	tests := []struct {
		name string
		base ribbon.ID
		edit session.Edit
		want error
	}{
		{"unknown base", "p9", session.Edit{Op: session.OpInsert, Text: "x"}, session.ErrUnknownDocument},
		{"unknown op", "p1", session.Edit{Op: "paste"}, session.ErrInvalidEdit},
		{"bad bias", "p1", session.Edit{Op: session.OpInsert, Text: "x", Bias: "up"}, session.ErrInvalidEdit},
		{"bad mode", "p1", session.Edit{Op: session.OpQuote, Spans: []string{"p1:0-1"}, Mode: "poster"}, session.ErrInvalidEdit},
		{"bad token", "p1", session.Edit{Op: session.OpReference, Source: "p1"}, ribbon.ErrMalformedReference},
		{"out of range", "p1", session.Edit{Op: session.OpInsert, Start: 9, Text: "x"}, ribbon.ErrOutOfRange},
		{"backspace at start", "p1", session.Edit{Op: session.OpBackspace}, session.ErrNoChange},
	}
	for _, test := range tests {
		_, err := s.Apply(ctx, test.base, test.edit)
		assert.ErrorIs(t, err, test.want, test.name)
	}

	_, err = s.Get("p9")
	assert.ErrorIs(t, err, session.ErrUnknownDocument)
	_, err = s.Head("p9")
	assert.ErrorIs(t, err, session.ErrUnknownDocument)
	_, err = s.History("p9")
	assert.ErrorIs(t, err, session.ErrUnknownDocument)
	_, err = s.Read("p1", 2, 4)
	assert.ErrorIs(t, err, ribbon.ErrOutOfRange)

	require.NoError(t, s.Close())
	_, err = s.Apply(ctx, "p1", session.Edit{Op: session.OpInsert, Text: "x"})
	assert.ErrorIs(t, err, session.ErrClosed)
	_, err = s.Load(ctx, "x")
	assert.ErrorIs(t, err, session.ErrClosed)
	assert.NoError(t, s.Close())
}

func TestStore_contentIDs(t *testing.T) {
	ctx := context.Background()
	s := session.New(session.Options{IDs: ribbon.ContentIDs{}})
	defer s.Close()
	_, err := s.Load(ctx, "same")
	require.NoError(t, err)
	_, err = s.Load(ctx, "same")
	assert.ErrorIs(t, err, session.ErrDuplicateID)
}

func TestStore_journal(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	s := session.New(session.Options{IDs: &ribbon.Sequence{}, Journal: session.NewJournal(&buf)})

	_, err := s.Load(ctx, "Hello world")
	require.NoError(t, err)
	_, err = s.Apply(ctx, "p1", session.Edit{Op: session.OpBackspace, Start: 5})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	type entry struct {
		Type  string        `json:"type"`
		Base  string        `json:"base"`
		Doc   string        `json:"doc"`
		Text  string        `json:"text"`
		Edit  *session.Edit `json:"edit"`
		Links []struct {
			Origin string `json:"origin"`
			Dest   string `json:"dest"`
		} `json:"links"`
	}
	var entries []entry
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var e entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}
	require.Len(t, entries, 2)

	assert.Equal(t, "load", entries[0].Type)
	assert.Equal(t, "p1", entries[0].Doc)
	assert.Equal(t, "Hello world", entries[0].Text)

	assert.Equal(t, "edit", entries[1].Type)
	assert.Equal(t, "p1", entries[1].Base)
	assert.Equal(t, "p2", entries[1].Doc)
	require.NotNil(t, entries[1].Edit)
	assert.Equal(t, session.OpBackspace, entries[1].Edit.Op)
	require.Len(t, entries[1].Links, 2)
	assert.Equal(t, "p2:0-4", entries[1].Links[0].Origin)
	assert.Equal(t, "p1:0-4", entries[1].Links[0].Dest)
	assert.Equal(t, "p2:4-10", entries[1].Links[1].Origin)
	assert.Equal(t, "p1:5-11", entries[1].Links[1].Dest)
}
