package model

import (
	"sort"
	"time"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns the length of the interval, zero when empty.
func (iv Interval) Duration() time.Duration {
	if !iv.End.After(iv.Start) {
		return 0
	}
	return iv.End.Sub(iv.Start)
}

func (iv Interval) String() string {
	return iv.Start.UTC().Format("15:04:05") + "-" + iv.End.UTC().Format("15:04:05")
}

// Empty reports whether the interval contains no instant.
func (iv Interval) Empty() bool { return !iv.End.After(iv.Start) }

// Overlaps reports whether both intervals share a non-empty sub-range.
func (iv Interval) Overlaps(o Interval) bool {
	return iv.Start.Before(o.End) && o.Start.Before(iv.End)
}

// Contains reports whether o lies entirely inside iv.
func (iv Interval) Contains(o Interval) bool {
	return !o.Start.Before(iv.Start) && !o.End.After(iv.End)
}

// ContainsTime reports whether t is inside [Start, End).
func (iv Interval) ContainsTime(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// Intersect returns the common part of both intervals. The result may be empty.
func (iv Interval) Intersect(o Interval) Interval {
	s := iv.Start
	if o.Start.After(s) {
		s = o.Start
	}
	e := iv.End
	if o.End.Before(e) {
		e = o.End
	}
	return Interval{Start: s, End: e}
}

// IntervalSet is a sorted list of disjoint, non-adjacent, non-empty intervals.
type IntervalSet []Interval

// NewIntervalSet normalizes the given intervals into a set.
func NewIntervalSet(ivs ...Interval) IntervalSet {
	var list []Interval
	for _, iv := range ivs {
		if !iv.Empty() {
			list = append(list, iv)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Start.Before(list[j].Start) })
	var out IntervalSet
	for _, iv := range list {
		n := len(out)
		if n > 0 && !iv.Start.After(out[n-1].End) {
			if iv.End.After(out[n-1].End) {
				out[n-1].End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// Union merges both sets.
func (s IntervalSet) Union(o IntervalSet) IntervalSet {
	all := make([]Interval, 0, len(s)+len(o))
	all = append(all, s...)
	all = append(all, o...)
	return NewIntervalSet(all...)
}

// Intersect returns the instants present in both sets.
func (s IntervalSet) Intersect(o IntervalSet) IntervalSet {
	var out IntervalSet
	i, j := 0, 0
	for i < len(s) && j < len(o) {
		iv := s[i].Intersect(o[j])
		if !iv.Empty() {
			out = append(out, iv)
		}
		if s[i].End.Before(o[j].End) {
			i++
		} else {
			j++
		}
	}
	return out
}

// Subtract removes every instant of o from s.
func (s IntervalSet) Subtract(o IntervalSet) IntervalSet {
	out := make(IntervalSet, 0, len(s))
	for _, iv := range s {
		cur := []Interval{iv}
		for _, cut := range o {
			var next []Interval
			for _, c := range cur {
				if !c.Overlaps(cut) {
					next = append(next, c)
					continue
				}
				if c.Start.Before(cut.Start) {
					next = append(next, Interval{Start: c.Start, End: cut.Start})
				}
				if cut.End.Before(c.End) {
					next = append(next, Interval{Start: cut.End, End: c.End})
				}
			}
			cur = next
		}
		out = append(out, cur...)
	}
	return NewIntervalSet(out...)
}

// Contains reports whether iv is fully covered by a single member of the set.
func (s IntervalSet) Contains(iv Interval) bool {
	for _, m := range s {
		if m.Contains(iv) {
			return true
		}
	}
	return false
}

// Overlaps reports whether iv intersects any member of the set.
func (s IntervalSet) Overlaps(iv Interval) bool {
	for _, m := range s {
		if m.Overlaps(iv) {
			return true
		}
	}
	return false
}

// Total returns the summed length of all members.
func (s IntervalSet) Total() time.Duration {
	var d time.Duration
	for _, iv := range s {
		d += iv.Duration()
	}
	return d
}

// Longest returns the length of the longest member.
func (s IntervalSet) Longest() time.Duration {
	var d time.Duration
	for _, iv := range s {
		if iv.Duration() > d {
			d = iv.Duration()
		}
	}
	return d
}
