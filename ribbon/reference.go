package ribbon

import (
	"fmt"
	"strconv"
	"strings"
)

// Token serializes the address as a cross-document reference token "{id}:{start}-{end}",
// as exchanged with the editing surface on copy/paste.
func (a Address) Token() string {
	return fmt.Sprintf("%s:%d-%d", a.Basis, a.Start, a.End)
}

// ParseReference parses a reference token produced by Address.Token.
func ParseReference(token string) (Address, error) {
	id, span, ok := strings.Cut(token, ":")
	if !ok {
		return Address{}, fmt.Errorf("%w: missing ':' in %q", ErrMalformedReference, token)
	}
	if err := ValidateID(ID(id)); err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrMalformedReference, err)
	}
	startStr, endStr, ok := strings.Cut(span, "-")
	if !ok {
		return Address{}, fmt.Errorf("%w: missing '-' in %q", ErrMalformedReference, token)
	}
	start, err := parseOffset(startStr)
	if err != nil {
		return Address{}, fmt.Errorf("%w: start of %q: %v", ErrMalformedReference, token, err)
	}
	end, err := parseOffset(endStr)
	if err != nil {
		return Address{}, fmt.Errorf("%w: end of %q: %v", ErrMalformedReference, token, err)
	}
	if end < start {
		return Address{}, fmt.Errorf("%w: end before start in %q", ErrMalformedReference, token)
	}
	return Address{Basis: ID(id), Start: start, End: end}, nil
}

// ValidateID checks that an id can be used within a reference token.
func ValidateID(id ID) error {
	if id == "" {
		return fmt.Errorf("empty id")
	}
	if strings.ContainsAny(string(id), ":-") {
		return fmt.Errorf("id %q contains ':' or '-'", id)
	}
	return nil
}

// Only ASCII decimal digits are accepted; strconv.Atoi alone would allow signs.
func parseOffset(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty offset")
	}
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return 0, fmt.Errorf("invalid digit %q", ch)
		}
	}
	return strconv.Atoi(s)
}
