package session

import (
	"fmt"

	"github.com/brunokim/ribbon/ribbon"
)

// Op names an edit operation.
type Op string

// Edit operations, one per Document edit.
const (
	OpInsert    Op = "insert"
	OpBackspace Op = "backspace"
	OpDelete    Op = "delete"
	OpReference Op = "reference"
	OpQuote     Op = "quote"
	OpRewrite   Op = "rewrite"
)

// Edit describes an edit to a document version, as sent by a client.
//
// Start, End and Bias form the selection, and a missing End makes a caret at Start.
// Source is a reference token ("id:start-end") for OpReference, and Spans are
// reference tokens on the edited version for OpQuote.
type Edit struct {
	Op     Op       `json:"op"`
	Start  int      `json:"start"`
	End    *int     `json:"end,omitempty"`
	Bias   string   `json:"bias,omitempty"`
	Text   string   `json:"text,omitempty"`
	Source string   `json:"source,omitempty"`
	Spans  []string `json:"spans,omitempty"`
	Mode   string   `json:"mode,omitempty"`
}

func (e Edit) selection() (ribbon.Selection, error) {
	bias, err := ribbon.ParseBias(e.Bias)
	if err != nil {
		return ribbon.Selection{}, fmt.Errorf("%w: %w", ErrInvalidEdit, err)
	}
	end := e.Start
	if e.End != nil {
		end = *e.End
	}
	return ribbon.Selection{Start: e.Start, End: end, Bias: bias}, nil
}

// Applies the edit to doc, resolving transclusion sources with r.
func (e Edit) apply(doc *ribbon.Document, r ribbon.Resolver) (*ribbon.Document, error) {
	sel, err := e.selection()
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case OpInsert:
		return doc.InsertText(sel, e.Text), nil
	case OpBackspace:
		return doc.Backspace(sel), nil
	case OpDelete:
		return doc.DeleteSelection(sel), nil
	case OpReference:
		src, err := ribbon.ParseReference(e.Source)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidEdit, err)
		}
		srcDoc, ok := r.Document(src.Basis)
		if !ok {
			return nil, fmt.Errorf("%w: source %s", ErrUnknownDocument, src.Basis)
		}
		return doc.InsertReference(srcDoc, src.Start, src.End, sel), nil
	case OpQuote:
		mode, err := ribbon.ParseDisplayMode(e.Mode)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidEdit, err)
		}
		spans := make([]ribbon.Address, len(e.Spans))
		for i, token := range e.Spans {
			if spans[i], err = ribbon.ParseReference(token); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidEdit, err)
			}
		}
		return doc.QuoteAs(mode, spans...), nil
	case OpRewrite:
		return doc.Rewrite(e.Text), nil
	}
	return nil, fmt.Errorf("%w: unknown op %q", ErrInvalidEdit, e.Op)
}
