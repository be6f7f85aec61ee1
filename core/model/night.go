package model

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Site is the geodetic location of the observatory.
type Site struct {
	Name      string  `json:"name" yaml:"name"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`   // degrees, north positive
	Longitude float64 `json:"longitude" yaml:"longitude"` // degrees, east positive
	Altitude  float64 `json:"altitude" yaml:"altitude"`   // metres above sea level
	Timezone  string  `json:"timezone" yaml:"timezone"`
}

// Validate checks the site coordinates.
func (s Site) Validate() error {
	if s.Latitude < -90 || s.Latitude > 90 {
		return fmt.Errorf("site latitude %v out of range", s.Latitude)
	}
	if s.Longitude < -180 || s.Longitude > 360 {
		return fmt.Errorf("site longitude %v out of range", s.Longitude)
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("site timezone: %w", err)
		}
	}
	return nil
}

// Atmosphere holds the conditions used for refraction.
type Atmosphere struct {
	Pressure    float64 `json:"pressure" yaml:"pressure"`       // hPa
	Temperature float64 `json:"temperature" yaml:"temperature"` // Celsius
	Humidity    float64 `json:"humidity" yaml:"humidity"`       // 0..1
	Wavelength  float64 `json:"wavelength" yaml:"wavelength"`   // micrometres
}

// DefaultAtmosphere returns standard observing conditions.
func DefaultAtmosphere() Atmosphere {
	return Atmosphere{Pressure: 1010, Temperature: 10, Humidity: 0.5, Wavelength: 0.55}
}

// WindowMode selects which solar boundaries delimit the scheduling window.
type WindowMode string

const (
	WindowSunset       WindowMode = "sunset"
	WindowNautical     WindowMode = "nautical"
	WindowAstronomical WindowMode = "astronomical"
)

// ParseWindowMode validates a window mode string. Empty selects WindowSunset.
func ParseWindowMode(s string) (WindowMode, error) {
	switch WindowMode(s) {
	case "", WindowSunset:
		return WindowSunset, nil
	case WindowNautical, WindowAstronomical:
		return WindowMode(s), nil
	}
	return "", fmt.Errorf("unknown window mode %q", s)
}

// Night is the time grid and solar/lunar context of one observing night.
type Night struct {
	Date       time.Time  `json:"date"`
	Site       Site       `json:"site"`
	Atmosphere Atmosphere `json:"atmosphere"`
	Mode       WindowMode `json:"mode"`

	Sunset           time.Time `json:"sunset"`
	Sunrise          time.Time `json:"sunrise"`
	NauticalDusk     time.Time `json:"nautical_dusk"`
	NauticalDawn     time.Time `json:"nautical_dawn"`
	AstronomicalDusk time.Time `json:"astronomical_dusk"`
	AstronomicalDawn time.Time `json:"astronomical_dawn"`

	Times      []time.Time `json:"-"`
	LST        []float64   `json:"-"` // hours
	MoonAlt    []float64   `json:"-"` // degrees
	MoonRadius []float64   `json:"-"` // degrees
	MoonRA     []float64   `json:"-"` // degrees
	MoonDec    []float64   `json:"-"` // degrees

	Moonrise         time.Time  `json:"moonrise,omitempty"`
	Moonset          time.Time  `json:"moonset,omitempty"`
	MoonIllumination [2]float64 `json:"moon_illumination"` // percent at sunset and sunrise

	GlobalStart time.Time `json:"global_start"`
	GlobalEnd   time.Time `json:"global_end"`
}

// Len returns the number of grid samples.
func (n *Night) Len() int { return len(n.Times) }

// Step returns the spacing of the grid.
func (n *Night) Step() time.Duration {
	if len(n.Times) < 2 {
		return 0
	}
	return n.Times[1].Sub(n.Times[0])
}

// Window returns the scheduling window bounds as an interval.
func (n *Night) Window() Interval { return Interval{Start: n.GlobalStart, End: n.GlobalEnd} }

// IndexAt returns the index of the last sample at or before t, clamped to
// the grid.
func (n *Night) IndexAt(t time.Time) int {
	if len(n.Times) == 0 {
		return -1
	}
	i := sort.Search(len(n.Times), func(i int) bool { return n.Times[i].After(t) }) - 1
	if i < 0 {
		return 0
	}
	return i
}

// Interpolate returns the linearly interpolated value of series at t.
// Values outside the grid clamp to the end samples.
func (n *Night) Interpolate(series []float64, t time.Time) float64 {
	if len(series) == 0 || len(series) != len(n.Times) {
		return math.NaN()
	}
	i := n.IndexAt(t)
	if i >= len(series)-1 || !t.After(n.Times[i]) {
		return series[i]
	}
	span := n.Times[i+1].Sub(n.Times[i]).Seconds()
	f := t.Sub(n.Times[i]).Seconds() / span
	return series[i] + f*(series[i+1]-series[i])
}

// SelectWindow sets GlobalStart and GlobalEnd according to Mode.
func (n *Night) SelectWindow() {
	switch n.Mode {
	case WindowNautical:
		n.GlobalStart, n.GlobalEnd = n.NauticalDusk, n.NauticalDawn
	case WindowAstronomical:
		n.GlobalStart, n.GlobalEnd = n.AstronomicalDusk, n.AstronomicalDawn
	default:
		n.GlobalStart, n.GlobalEnd = n.Sunset, n.Sunrise
	}
	if n.GlobalStart.Before(n.Sunset) || n.GlobalStart.IsZero() {
		n.GlobalStart = n.Sunset
	}
	if n.GlobalEnd.After(n.Sunrise) || n.GlobalEnd.IsZero() {
		n.GlobalEnd = n.Sunrise
	}
	if !n.GlobalEnd.After(n.GlobalStart) {
		// twilight never reached: fall back to the sun-down window
		n.GlobalStart, n.GlobalEnd = n.Sunset, n.Sunrise
	}
}

// Fingerprint identifies the night for memoization purposes.
func (n *Night) Fingerprint() string {
	return fmt.Sprintf("%s|%.6f|%.6f|%.1f|%d|%.1f|%.1f", n.Date.Format("2006-01-02"),
		n.Site.Latitude, n.Site.Longitude, n.Site.Altitude, len(n.Times),
		n.Atmosphere.Pressure, n.Atmosphere.Temperature)
}
