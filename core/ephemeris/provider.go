// Package ephemeris defines the astronomical positions the planner needs and
// an adapter computing them with the Meeus algorithms.
package ephemeris

import (
	"math"
	"time"

	"github.com/kilianp07/nightplan/core/model"
)

// AirmassCap is the airmass reported at or below the horizon.
const AirmassCap = 40.0

// Horizontal is an apparent topocentric pointing. All values are degrees;
// azimuth is measured from north through east and HA is negative east of
// the meridian.
type Horizontal struct {
	Alt float64
	Az  float64
	HA  float64
}

// Lunar is the geocentric apparent position of the Moon.
type Lunar struct {
	RA         float64 // degrees
	Dec        float64 // degrees
	Radius     float64 // apparent semidiameter, degrees
	Parallax   float64 // equatorial horizontal parallax, degrees
	DistanceKm float64
}

// Provider computes positions for the night model and the visibility engine.
type Provider interface {
	// Observe returns the refracted horizontal position of (ra, dec) at t.
	Observe(t time.Time, site model.Site, atm model.Atmosphere, ra, dec float64) Horizontal
	// SiderealTime returns the local apparent sidereal time in hours.
	SiderealTime(t time.Time, site model.Site) float64
	// SolarPosition returns the apparent RA/Dec of the Sun in degrees and its
	// distance in AU.
	SolarPosition(t time.Time) (ra, dec, distAU float64)
	LunarPosition(t time.Time) Lunar
	// RefractionAt returns the refraction in degrees for a true altitude.
	RefractionAt(alt float64, atm model.Atmosphere) float64
	// Precess moves catalogue coordinates from epoch (Julian year) to the
	// date t, applying proper motion in mas/yr (pmra includes cos dec).
	Precess(ra, dec, epoch, pmra, pmdec float64, t time.Time) (float64, float64)
}

// Airmass returns the Kasten-Young airmass for an apparent altitude in
// degrees, saturating at AirmassCap.
func Airmass(alt float64) float64 {
	if alt <= 0 {
		return AirmassCap
	}
	z := 90 - alt
	x := 1 / (math.Cos(z*math.Pi/180) + 0.50572*math.Pow(96.07995-z, -1.6364))
	return math.Min(math.Max(x, 1), AirmassCap)
}

// HorizonDip returns the dip of the sea horizon in degrees for an observer
// at the given height in metres.
func HorizonDip(altitudeM float64) float64 {
	if altitudeM <= 0 {
		return 0
	}
	return 0.0293 * math.Sqrt(altitudeM)
}

// WrapDegrees maps an angle to [0, 360).
func WrapDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// WrapHourAngle maps an angle to (-180, 180].
func WrapHourAngle(d float64) float64 {
	d = WrapDegrees(d)
	if d > 180 {
		d -= 360
	}
	return d
}

// HorizontalFromHA converts hour angle and declination to altitude and
// azimuth (degrees) for latitude lat, without refraction.
func HorizontalFromHA(ha, dec, lat float64) (alt, az float64) {
	const rad = math.Pi / 180
	sH, cH := math.Sincos(ha * rad)
	sD, cD := math.Sincos(dec * rad)
	sP, cP := math.Sincos(lat * rad)
	alt = math.Asin(sP*sD+cP*cD*cH) / rad
	az = WrapDegrees(math.Atan2(-cD*sH, sD*cP-cD*sP*cH) / rad)
	return alt, az
}
