package ribbon

import (
	"errors"
	"fmt"
)

// Errors returned (or raised) by ribbon operations.
var (
	// ErrNoSelection is returned when an edit needs a caret and got a range, or vice versa.
	ErrNoSelection = errors.New("no selection to act on")
	// ErrUnsupportedTarget is returned when an edit would touch a non-text block it can't handle.
	ErrUnsupportedTarget = errors.New("unsupported edit target")
	// ErrCrossBasis is raised when two addresses on different documents are combined where the
	// same document is required.
	ErrCrossBasis = errors.New("addresses have different basis")
	// ErrOutOfRange is raised when an offset lies outside its document.
	ErrOutOfRange = errors.New("offset out of range")
	// ErrMalformedReference is returned when parsing an invalid reference token.
	ErrMalformedReference = errors.New("malformed reference")
)

// Programmer errors are raised as panics carrying a wrapped sentinel, so that a
// recover() may still match them with errors.Is.
func raise(err error, format string, args ...interface{}) {
	panic(fmt.Errorf("%w: %s", err, fmt.Sprintf(format, args...)))
}

func checkOffset(offset, length int) {
	if offset < 0 || offset > length {
		raise(ErrOutOfRange, "%d not in [0,%d]", offset, length)
	}
}

func checkRange(start, end, length int) {
	checkOffset(start, length)
	checkOffset(end, length)
	if end < start {
		raise(ErrOutOfRange, "end %d before start %d", end, start)
	}
}
