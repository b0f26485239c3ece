package session

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/brunokim/ribbon/ribbon"
)

// Journal writes a JSONL log of loads and edits from a background goroutine.
// It's a debugging aid and is never read back.
type Journal struct {
	w       io.Writer
	entries chan entry
	done    chan struct{}
	once    sync.Once
	err     error
}

type entry struct {
	Time  time.Time    `json:"time"`
	Type  string       `json:"type"`
	Base  ribbon.ID    `json:"base,omitempty"`
	Doc   ribbon.ID    `json:"doc"`
	Text  string       `json:"text,omitempty"`
	Edit  *Edit        `json:"edit,omitempty"`
	Links []linkTokens `json:"links,omitempty"`
}

type linkTokens struct {
	Origin string `json:"origin"`
	Dest   string `json:"dest"`
}

// NewJournal starts writing entries to w. Call Close to flush them.
func NewJournal(w io.Writer) *Journal {
	j := &Journal{
		w:       w,
		entries: make(chan entry, 16),
		done:    make(chan struct{}),
	}
	go j.run()
	return j
}

func (j *Journal) run() {
	defer close(j.done)
	enc := json.NewEncoder(j.w)
	for e := range j.entries {
		if err := enc.Encode(e); err != nil && j.err == nil {
			j.err = err
		}
	}
	if f, ok := j.w.(interface{ Sync() error }); ok {
		if err := f.Sync(); err != nil && j.err == nil {
			j.err = err
		}
	}
}

// A nil journal drops entries.
func (j *Journal) record(e entry) {
	if j == nil {
		return
	}
	e.Time = time.Now().UTC()
	j.entries <- e
}

// Close waits for pending entries to be written, and returns the first write error.
// The underlying writer is not closed.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	j.once.Do(func() {
		close(j.entries)
		<-j.done
	})
	return j.err
}
