// Package errs defines the error kinds shared by the geometry, envelope,
// ephemeris and shadow packages.
//
// Every failure carries a machine-readable Kind plus a message suitable for
// showing to an end user. Errors match by kind, so callers can write
//
//	if errors.Is(err, errs.ErrNoBuildableArea) { ... }
//
// regardless of the message or the wrapped cause.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind uint8

const (
	Unknown Kind = iota

	// InvalidPolygon is malformed input geometry: fewer than three distinct
	// vertices, zero area, or a self-intersecting ring.
	InvalidPolygon

	// DegeneratePolygon means an offset collapsed the polygon or made it
	// self-intersect.
	DegeneratePolygon

	// NoBuildableArea means the setbacks consume the whole lot.
	NoBuildableArea

	// SolarRange means a requested instant is outside the ephemeris
	// algorithm's valid date range.
	SolarRange

	// Cancelled means a computation stopped early at the caller's request.
	Cancelled

	// InvalidInput is a zoning record, option or parameter outside its
	// domain, such as a negative setback or a zero grid spacing.
	InvalidInput
)

var kindNames = [...]string{
	Unknown:           "unknown",
	InvalidPolygon:    "invalid_polygon",
	DegeneratePolygon: "degenerate_polygon",
	NoBuildableArea:   "no_buildable_area",
	SolarRange:        "solar_range",
	Cancelled:         "cancelled",
	InvalidInput:      "invalid_input",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// An Error is a classified failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // Underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind. This lets the
// Err* sentinels below match any error of their kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

// Sentinels for use with errors.Is.
var (
	ErrInvalidPolygon    = &Error{Kind: InvalidPolygon}
	ErrDegeneratePolygon = &Error{Kind: DegeneratePolygon}
	ErrNoBuildableArea   = &Error{Kind: NoBuildableArea}
	ErrSolarRange        = &Error{Kind: SolarRange}
	ErrCancelled         = &Error{Kind: Cancelled}
	ErrInvalidInput      = &Error{Kind: InvalidInput}
)

// New returns an error of kind k with a formatted message.
func New(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns an error of kind k that wraps cause.
func Wrap(k Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf returns the kind of the outermost *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}
