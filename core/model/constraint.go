package model

import (
	"fmt"
	"math"
	"time"
)

// SiderealRate is the number of sidereal hours elapsed per solar hour.
const SiderealRate = 1.00273790935

// ConstraintKind tags the variant held by a Constraint.
type ConstraintKind string

const (
	ConstraintNone       ConstraintKind = "none"
	ConstraintMaxAirmass ConstraintKind = "airmass"
	ConstraintUTC        ConstraintKind = "utc"
	ConstraintLST        ConstraintKind = "lst"
)

// Constraint is the typed observing constraint of a target. Start and End
// are hours of day for window constraints.
type Constraint struct {
	Kind    ConstraintKind `json:"kind"`
	Airmass float64        `json:"airmass,omitempty"`
	Start   float64        `json:"start,omitempty"`
	End     float64        `json:"end,omitempty"`
}

// IsWindow reports whether the constraint is a UTC or LST window.
func (c Constraint) IsWindow() bool {
	return c.Kind == ConstraintUTC || c.Kind == ConstraintLST
}

// MaxAirmass returns the airmass limit, falling back to def when the
// constraint does not carry one.
func (c Constraint) MaxAirmass(def float64) float64 {
	if c.Kind == ConstraintMaxAirmass && c.Airmass > 0 {
		return c.Airmass
	}
	return def
}

func fmtHours(h float64) string {
	h = math.Mod(h, 24)
	if h < 0 {
		h += 24
	}
	m := int(math.Round(h * 60))
	return fmt.Sprintf("%02d:%02d", (m/60)%24, m%60)
}

func (c Constraint) String() string {
	switch c.Kind {
	case ConstraintMaxAirmass:
		return fmt.Sprintf("%.2f", c.Airmass)
	case ConstraintUTC:
		return fmt.Sprintf("UTC[%s-%s]", fmtHours(c.Start), fmtHours(c.End))
	case ConstraintLST:
		return fmt.Sprintf("LST[%s-%s]", fmtHours(c.Start), fmtHours(c.End))
	}
	return "-"
}

func wrapHours(h float64) float64 {
	h = math.Mod(h, 24)
	if h < 0 {
		h += 24
	}
	return h
}

func hoursDuration(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

// Window resolves a window constraint to an absolute interval on the night.
// The occurrence closest to the middle of the night is chosen. ok is false
// for non-window constraints or when the night carries no LST series.
func (c Constraint) Window(n *Night) (Interval, bool) {
	if !c.IsWindow() || n.Sunset.IsZero() {
		return Interval{}, false
	}
	mid := n.Sunset.Add(n.Sunrise.Sub(n.Sunset) / 2)
	lo, hi := mid.Add(-12*time.Hour), mid.Add(12*time.Hour)
	length := wrapHours(c.End - c.Start)
	switch c.Kind {
	case ConstraintUTC:
		y, m, d := mid.UTC().Date()
		start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Add(hoursDuration(wrapHours(c.Start)))
		for start.Before(lo) {
			start = start.Add(24 * time.Hour)
		}
		for !start.Before(hi) {
			start = start.Add(-24 * time.Hour)
		}
		return Interval{Start: start, End: start.Add(hoursDuration(length))}, true
	case ConstraintLST:
		if len(n.LST) == 0 {
			return Interval{}, false
		}
		sidDay := hoursDuration(24 / SiderealRate)
		start := n.Times[0].Add(hoursDuration(wrapHours(c.Start-n.LST[0]) / SiderealRate))
		for !start.Before(hi) {
			start = start.Add(-sidDay)
		}
		for start.Before(lo) {
			start = start.Add(sidDay)
		}
		return Interval{Start: start, End: start.Add(hoursDuration(length / SiderealRate))}, true
	}
	return Interval{}, false
}
