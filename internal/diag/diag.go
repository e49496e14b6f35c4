// Package diag provides the error taxonomy for the rustcript runtime.
//
// Every failure surfaced to a script or to the embedding host carries a
// stable Kind. The kind decides whether a try/catch handler may intercept
// the error: limit and invariant violations are always fatal.
package diag

import (
	"fmt"

	"rustcript/internal/span"
)

// Kind classifies an error. Kind names are part of the user-visible surface:
// they appear verbatim in LAST_ERROR and in CLI output.
type Kind int

const (
	ParseError Kind = iota
	SyntaxError
	NameError
	TypeError
	ArityError
	IndexError
	KeyError
	ArithmeticError
	IOError
	SecurityError
	LimitError
	InternalError
)

var kindNames = map[Kind]string{
	ParseError:      "ParseError",
	SyntaxError:     "SyntaxError",
	NameError:       "NameError",
	TypeError:       "TypeError",
	ArityError:      "ArityError",
	IndexError:      "IndexError",
	KeyError:        "KeyError",
	ArithmeticError: "ArithmeticError",
	IOError:         "IOError",
	SecurityError:   "SecurityError",
	LimitError:      "LimitError",
	InternalError:   "InternalError",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Catchable reports whether a try handler may intercept errors of this kind.
// Parse and syntax errors are structural, LimitError must stop runaway
// scripts, and InternalError marks a broken interpreter invariant.
func (k Kind) Catchable() bool {
	switch k {
	case ParseError, SyntaxError, LimitError, InternalError:
		return false
	default:
		return true
	}
}

// Error is a runtime or parse error with its source location. Loc may be
// empty for errors raised outside any statement (for example by the host
// embedding API).
type Error struct {
	Kind    Kind
	Message string
	Loc     span.Loc
	Context string // enclosing function or namespace, when known
}

func (e *Error) Error() string {
	if e.Loc.IsZero() {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Context != "" {
		return fmt.Sprintf("%s at %s: %s (in %s)", e.Kind, e.Loc, e.Message, e.Context)
	}
	return fmt.Sprintf("%s at %s: %s", e.Kind, e.Loc, e.Message)
}

// Errorf creates an error of the given kind with no location; the
// interpreter stamps the statement's location before surfacing it.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// At returns e with its location filled in, unless one is already set.
func (e *Error) At(loc span.Loc) *Error {
	if e.Loc.IsZero() {
		e.Loc = loc
	}
	return e
}

// Wrap coerces any error into a *Error. Foreign errors (from the host or
// the OS) default to the given kind.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	if de, ok := err.(*Error); ok {
		return de
	}
	return &Error{Kind: kind, Message: err.Error()}
}
