// Package constraint parses the textual observing constraints of the target
// list.
package constraint

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kilianp07/nightplan/core/model"
)

var (
	// ErrFillWithoutWindow is returned when "*" is used without a UTC or LST
	// window constraint.
	ErrFillWithoutWindow = errors.New("fill-window requested without a UTC or LST window")
	ErrSyntax            = errors.New("invalid constraint syntax")
	ErrAirmassRange      = errors.New("airmass limit must be at least 1")
	ErrHourRange         = errors.New("hour out of range")
	ErrEmptyWindow       = errors.New("window start equals end")
	ErrObsTime           = errors.New("invalid observing time")
	ErrOfflineWindow     = errors.New("offline period needs a UTC or LST window")
)

// ParseError locates a parsing failure. Line is zero when the text did not
// come from a target list.
type ParseError struct {
	Line  int
	Field string
	Text  string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s %q: %v", e.Line, e.Field, e.Text, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Field, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func fail(field, text string, err error) error {
	return &ParseError{Field: field, Text: text, Err: err}
}

// Parse reads a constraint: a bare airmass limit, UTC[a-b], LST[a-b], or
// an empty/"-" placeholder for no constraint.
func Parse(text string) (model.Constraint, error) {
	s := strings.TrimSpace(text)
	if s == "" || s == "-" {
		return model.Constraint{Kind: model.ConstraintNone}, nil
	}
	upper := strings.ToUpper(s)
	switch {
	case strings.HasPrefix(upper, "UTC["):
		return parseWindow(model.ConstraintUTC, s)
	case strings.HasPrefix(upper, "LST["):
		return parseWindow(model.ConstraintLST, s)
	}
	x, err := ParseNumber(s)
	if err != nil {
		return model.Constraint{}, fail("constraint", text, ErrSyntax)
	}
	if x < 1 {
		return model.Constraint{}, fail("constraint", text, ErrAirmassRange)
	}
	return model.Constraint{Kind: model.ConstraintMaxAirmass, Airmass: x}, nil
}

func parseWindow(kind model.ConstraintKind, s string) (model.Constraint, error) {
	if !strings.HasSuffix(s, "]") {
		return model.Constraint{}, fail("constraint", s, ErrSyntax)
	}
	body := s[4 : len(s)-1]
	a, b, ok := strings.Cut(body, "-")
	if !ok {
		return model.Constraint{}, fail("constraint", s, ErrSyntax)
	}
	start, err := ParseHours(a)
	if err != nil {
		return model.Constraint{}, fail("constraint", s, err)
	}
	end, err := ParseHours(b)
	if err != nil {
		return model.Constraint{}, fail("constraint", s, err)
	}
	if math.Mod(end-start+24, 24) == 0 {
		return model.Constraint{}, fail("constraint", s, ErrEmptyWindow)
	}
	return model.Constraint{Kind: kind, Start: start, End: end}, nil
}

// ParseHours reads an hour of day given as an integer, a decimal, H:M or
// H:M:S. Values up to and including 24 are accepted.
func ParseHours(text string) (float64, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, ErrSyntax
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, ErrSyntax
	}
	var h float64
	scale := 1.0
	for i, p := range parts {
		v, err := ParseNumber(p)
		if err != nil || v < 0 {
			return 0, ErrSyntax
		}
		if i > 0 && v >= 60 {
			return 0, ErrHourRange
		}
		h += v / scale
		scale *= 60
	}
	if h > 24 {
		return 0, ErrHourRange
	}
	return h, nil
}

// ParseDuration reads the observing time field. "*" requests that the target
// fill its window and is only valid with a UTC or LST constraint. An empty
// field or "-" yields def.
func ParseDuration(field string, c model.Constraint, def float64) (seconds float64, fill bool, err error) {
	s := strings.TrimSpace(field)
	switch s {
	case "*":
		if !c.IsWindow() {
			return 0, false, fail("obstime", field, ErrFillWithoutWindow)
		}
		return 0, true, nil
	case "", "-":
		return def, false, nil
	}
	v, perr := ParseNumber(s)
	if perr != nil {
		h, herr := ParseHours(s)
		if herr != nil || !strings.Contains(s, ":") {
			return 0, false, fail("obstime", field, ErrObsTime)
		}
		v = h * 3600
	}
	if v <= 0 {
		return 0, false, fail("obstime", field, ErrObsTime)
	}
	return v, false, nil
}

// ParseNumber reads a finite decimal number. NaN and infinities are rejected.
func ParseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q is not finite", ErrSyntax, s)
	}
	return v, nil
}

// ParseOffline reads the window of an Offline pseudo-target.
func ParseOffline(text string) (model.OfflinePeriod, error) {
	c, err := Parse(text)
	if err != nil {
		return model.OfflinePeriod{}, err
	}
	if !c.IsWindow() {
		return model.OfflinePeriod{}, fail("offline", text, ErrOfflineWindow)
	}
	return model.OfflinePeriod{Constraint: c}, nil
}
