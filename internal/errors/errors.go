// Package errors provides the error model shared by the crawlers.
// Every failure carries an operation name and a Kind so callers can
// distinguish crawl-fatal failures from per-sample ones without
// matching on error identity.
package errors

import (
	"errors"
	"strings"
)

// Op represents an operation name for error context.
type Op string

// Kind represents the category of error.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindDiscovery // discovery query failed or malformed envelope
	KindFormat    // SOFT record malformed
	KindNotFound  // exact lookup returned zero records
	KindAmbiguous // exact lookup returned more than one record
	KindSummary   // summary lookup failed or missing envelope key
	KindChannel   // filename matches no known channel marker
	KindNetwork
	KindDatabase
	KindStorage
	KindConfig
)

// String returns the string representation of the error kind.
func (k Kind) String() string {
	switch k {
	case KindDiscovery:
		return "discovery"
	case KindFormat:
		return "format"
	case KindNotFound:
		return "not-found"
	case KindAmbiguous:
		return "ambiguous"
	case KindSummary:
		return "summary"
	case KindChannel:
		return "channel"
	case KindNetwork:
		return "network"
	case KindDatabase:
		return "database"
	case KindStorage:
		return "storage"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Error represents an application error with context.
type Error struct {
	Op   Op     // Operation that failed
	Kind Kind   // Category of error
	Err  error  // Underlying error
	Msg  string // Additional context message
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(string(e.Op))
		b.WriteString(": ")
	}
	if e.Msg != "" {
		b.WriteString(e.Msg)
		if e.Err != nil {
			b.WriteString(": ")
		}
	}
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// E creates a new Error with the given arguments.
// Arguments can be: Op, Kind, error, string (message).
func E(args ...interface{}) *Error {
	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case Op:
			e.Op = a
		case Kind:
			e.Kind = a
		case error:
			e.Err = a
		case string:
			e.Msg = a
		}
	}
	return e
}

// Wrap wraps an error with an operation name for context.
func Wrap(op Op, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// WrapMsg wraps an error with an operation name and message.
func WrapMsg(op Op, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Msg: msg, Err: err}
}

// GetKind returns the kind of the outermost *Error in err's chain,
// or KindUnknown.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind checks if an error is of the given kind.
func IsKind(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// Fatal reports whether err must abort the whole crawl. Discovery and
// series-resolution failures are fatal; everything else is contained at
// the per-sample boundary.
func Fatal(err error) bool {
	switch GetKind(err) {
	case KindDiscovery, KindConfig:
		return true
	}
	return false
}
