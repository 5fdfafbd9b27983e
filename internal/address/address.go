// Package address encodes and decodes the string keys that identify one
// editable text unit.
//
// Two families exist and their prefixes never overlap:
//
//	TEXT|<tag>|<class string>|<occurrence>
//	STATUS|<status name>
//
// Text addresses are positional: the occurrence is the 1-based rank of the
// node among text nodes sharing the same tag and class string, in document
// order. Editing a node's text keeps its address; inserting or removing a
// sibling with the same tag and class shifts the addresses after it. They are
// fine for one editing session over one document and must not be used as
// durable identifiers.
package address

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind is the address family.
type Kind string

const (
	KindText   Kind = "TEXT"
	KindStatus Kind = "STATUS"
)

// ErrMalformed is wrapped by every Parse failure.
var ErrMalformed = errors.New("malformed address")

// Address is the decoded form of a key.
type Address struct {
	Kind Kind

	// text family
	Tag        string
	Class      string
	Occurrence int

	// status family
	Status string
}

// Text builds a text address.
func Text(tag, class string, occurrence int) Address {
	return Address{Kind: KindText, Tag: tag, Class: class, Occurrence: occurrence}
}

// Status builds a status address.
func Status(name string) Address {
	return Address{Kind: KindStatus, Status: name}
}

// String renders the key.
func (a Address) String() string {
	switch a.Kind {
	case KindText:
		return fmt.Sprintf("TEXT|%s|%s|%d", a.Tag, a.Class, a.Occurrence)
	case KindStatus:
		return "STATUS|" + a.Status
	}
	return ""
}

// Parse decodes a key.
func Parse(s string) (Address, error) {
	switch {
	case strings.HasPrefix(s, string(KindText)+"|"):
		parts := strings.SplitN(s, "|", 4)
		if len(parts) != 4 || parts[1] == "" {
			return Address{}, fmt.Errorf("%w: %q", ErrMalformed, s)
		}
		occ, err := strconv.Atoi(parts[3])
		if err != nil || occ < 1 {
			return Address{}, fmt.Errorf("%w: bad occurrence in %q", ErrMalformed, s)
		}
		return Text(parts[1], parts[2], occ), nil
	case strings.HasPrefix(s, string(KindStatus)+"|"):
		name := s[len(KindStatus)+1:]
		if name == "" {
			return Address{}, fmt.Errorf("%w: empty status in %q", ErrMalformed, s)
		}
		return Status(name), nil
	}
	return Address{}, fmt.Errorf("%w: unknown family in %q", ErrMalformed, s)
}
