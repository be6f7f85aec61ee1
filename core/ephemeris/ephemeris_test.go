package ephemeris

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/nightplan/core/model"
)

func TestAirmass(t *testing.T) {
	checks := []struct {
		alt  float64
		want float64
		tol  float64
	}{
		{90, 1, 1e-3},
		{30, 1.995, 0.01},
		{0, AirmassCap, 0},
		{-10, AirmassCap, 0},
	}
	for _, c := range checks {
		if got := Airmass(c.alt); math.Abs(got-c.want) > c.tol {
			t.Errorf("Airmass(%v) = %v want %v", c.alt, got, c.want)
		}
	}
	prev := Airmass(89)
	for alt := 88.0; alt > 0; alt-- {
		x := Airmass(alt)
		if x < prev {
			t.Fatalf("airmass not monotonic at %v", alt)
		}
		prev = x
	}
}

func TestHorizontalFromHA(t *testing.T) {
	alt, _ := HorizontalFromHA(0, 28.76, 28.76)
	assert.InDelta(t, 90, alt, 1e-9)

	alt, az := HorizontalFromHA(-90, 0, 0)
	assert.InDelta(t, 0, alt, 1e-9)
	assert.InDelta(t, 90, az, 1e-9)

	alt, az = HorizontalFromHA(0, 0, 45)
	assert.InDelta(t, 45, alt, 1e-9)
	assert.InDelta(t, 180, az, 1e-9)
}

func TestWrap(t *testing.T) {
	assert.InDelta(t, 350, WrapDegrees(-10), 1e-12)
	assert.InDelta(t, -170, WrapHourAngle(190), 1e-12)
	assert.InDelta(t, 180, WrapHourAngle(180), 1e-12)
}

func TestMeeusSiderealTimeJ2000(t *testing.T) {
	m := NewMeeus()
	j2000 := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)
	lst := m.SiderealTime(j2000, model.Site{})
	assert.InDelta(t, 18.697, lst, 0.01)

	west := m.SiderealTime(j2000, model.Site{Longitude: -90})
	assert.InDelta(t, 12.697, west, 0.01)
}

func TestMeeusSunAtEquinox(t *testing.T) {
	m := NewMeeus()
	_, dec, r := m.SolarPosition(time.Date(2025, 3, 20, 9, 1, 0, 0, time.UTC))
	assert.InDelta(t, 0, dec, 0.05)
	assert.InDelta(t, 0.996, r, 0.01)
}

func TestMeeusMoonRadius(t *testing.T) {
	l := NewMeeus().LunarPosition(time.Date(2025, 1, 2, 22, 0, 0, 0, time.UTC))
	if l.Radius < 0.24 || l.Radius > 0.28 {
		t.Fatalf("moon semidiameter %v out of range", l.Radius)
	}
	if l.DistanceKm < 356000 || l.DistanceKm > 407000 {
		t.Fatalf("moon distance %v out of range", l.DistanceKm)
	}
}

func TestMeeusRefraction(t *testing.T) {
	m := NewMeeus()
	atm := model.DefaultAtmosphere()
	h := m.RefractionAt(0, atm)
	if h < 0.4 || h > 0.6 {
		t.Fatalf("horizon refraction %v", h)
	}
	if m.RefractionAt(45, atm) > 0.02 {
		t.Fatalf("refraction at 45 too large")
	}
	assert.InDelta(t, m.RefractionAt(-1, atm), m.RefractionAt(-20, atm), 1e-12)
}

func TestMeeusPrecessIdentityAtEpoch(t *testing.T) {
	ra, dec := NewMeeus().Precess(83.633, 22.0145, 2000, 0, 0, time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC))
	assert.InDelta(t, 83.633, ra, 1e-4)
	assert.InDelta(t, 22.0145, dec, 1e-4)
}

func TestMeeusObserveMeridian(t *testing.T) {
	m := NewMeeus()
	site := model.Site{Latitude: 28.76, Longitude: -17.88}
	when := time.Date(2025, 1, 2, 23, 0, 0, 0, time.UTC)
	ra := m.SiderealTime(when, site) * 15
	h := m.Observe(when, site, model.DefaultAtmosphere(), ra, 10)
	assert.InDelta(t, 0, h.HA, 1e-6)
	assert.InDelta(t, 90-18.76, h.Alt, 0.05)
}
