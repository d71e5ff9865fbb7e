package mediator

import (
	"unicode"
	"unicode/utf8"
)

// Kind distinguishes singleton slots from multi-valued slots.
type Kind int

const (
	// KindModule is a singleton slot: registered once, never replaced.
	KindModule Kind = iota + 1

	// KindInstance is a multi-valued slot: every registration appends.
	KindInstance
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindInstance:
		return "instance"
	default:
		return "unknown"
	}
}

// Name is a validated registry name with its kind derived once.
type Name struct {
	Value string
	Kind  Kind
}

// String returns the raw name.
func (n Name) String() string {
	return n.Value
}

// ParseName validates s and derives its kind from the case of its first
// rune: uppercase is a Module, lowercase an Instance. Names that are empty,
// not valid UTF-8, or start with a caseless rune (digit, symbol) are
// rejected with ErrInvalidName.
func ParseName(s string) (Name, error) {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || r == utf8.RuneError {
		return Name{}, &NameError{Name: s, Op: "parse", Err: ErrInvalidName}
	}
	switch {
	case unicode.IsUpper(r):
		return Name{Value: s, Kind: KindModule}, nil
	case unicode.IsLower(r):
		return Name{Value: s, Kind: KindInstance}, nil
	default:
		return Name{}, &NameError{Name: s, Op: "parse", Err: ErrInvalidName}
	}
}

// KindOf returns the kind of s, or false if s is not a valid name.
func KindOf(s string) (Kind, bool) {
	n, err := ParseName(s)
	if err != nil {
		return 0, false
	}
	return n.Kind, true
}

// parseNames validates every name in names for operation op.
func parseNames(op string, names []string) ([]Name, error) {
	out := make([]Name, 0, len(names))
	for _, s := range names {
		n, err := ParseName(s)
		if err != nil {
			return nil, &NameError{Name: s, Op: op, Err: ErrInvalidName}
		}
		out = append(out, n)
	}
	return out, nil
}
