package ephemeris

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/moonposition"
	"github.com/soniakeys/meeus/v3/nutation"
	"github.com/soniakeys/meeus/v3/precess"
	"github.com/soniakeys/meeus/v3/refraction"
	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/meeus/v3/solar"
	"github.com/soniakeys/unit"

	"github.com/kilianp07/nightplan/core/model"
)

const (
	moonRadiusKm   = 1737.4
	earthRadiusKm  = 6378.14
	masToRad       = math.Pi / (180 * 3600 * 1000)
	minRefractAlt  = -1.0
	stdPressureHPa = 1010.0
	stdTempK       = 283.0
)

// Meeus implements Provider with github.com/soniakeys/meeus/v3.
type Meeus struct{}

// NewMeeus returns the Meeus ephemeris provider.
func NewMeeus() *Meeus { return &Meeus{} }

func (Meeus) SiderealTime(t time.Time, site model.Site) float64 {
	jd := julian.TimeToJD(t.UTC())
	gst := float64(sidereal.Apparent(jd)) / 3600
	lst := math.Mod(gst+site.Longitude/15, 24)
	if lst < 0 {
		lst += 24
	}
	return lst
}

func (m Meeus) Observe(t time.Time, site model.Site, atm model.Atmosphere, ra, dec float64) Horizontal {
	ha := WrapHourAngle(m.SiderealTime(t, site)*15 - ra)
	alt, az := HorizontalFromHA(ha, dec, site.Latitude)
	alt += m.RefractionAt(alt, atm)
	return Horizontal{Alt: alt, Az: az, HA: ha}
}

func (Meeus) SolarPosition(t time.Time) (float64, float64, float64) {
	jde := julian.TimeToJD(t.UTC())
	α, δ := solar.ApparentEquatorial(jde)
	r := solar.Radius(base.J2000Century(jde))
	return WrapDegrees(unit.Angle(α).Deg()), δ.Deg(), r
}

func (Meeus) LunarPosition(t time.Time) Lunar {
	jde := julian.TimeToJD(t.UTC())
	λ, β, Δ := moonposition.Position(jde)
	Δψ, Δε := nutation.Nutation(jde)
	ε := nutation.MeanObliquity(jde) + Δε
	sε, cε := math.Sincos(ε.Rad())
	α, δ := coord.EclToEq(λ+Δψ, β, sε, cε)
	return Lunar{
		RA:         WrapDegrees(unit.Angle(α).Deg()),
		Dec:        δ.Deg(),
		Radius:     math.Asin(moonRadiusKm/Δ) * 180 / math.Pi,
		Parallax:   math.Asin(earthRadiusKm/Δ) * 180 / math.Pi,
		DistanceKm: Δ,
	}
}

// RefractionAt scales the Saemundsson formula to the pressure and
// temperature of atm. Below -1 degree the value at -1 degree is used.
func (Meeus) RefractionAt(alt float64, atm model.Atmosphere) float64 {
	if alt < minRefractAlt {
		alt = minRefractAlt
	}
	r := refraction.Saemundsson(unit.AngleFromDeg(alt)).Deg()
	p, tc := atm.Pressure, atm.Temperature
	if p <= 0 {
		p = stdPressureHPa
	}
	return r * (p / stdPressureHPa) * (stdTempK / (273 + tc))
}

func (Meeus) Precess(ra, dec, epoch, pmra, pmdec float64, t time.Time) (float64, float64) {
	if epoch == 0 {
		epoch = 2000
	}
	to := base.JDEToJulianYear(julian.TimeToJD(t.UTC()))
	cd := math.Cos(dec * math.Pi / 180)
	var mα unit.HourAngle
	if cd > 1e-9 {
		mα = unit.HourAngle(pmra / cd * masToRad)
	}
	mδ := unit.Angle(pmdec * masToRad)
	from := &coord.Equatorial{RA: unit.RAFromDeg(ra), Dec: unit.AngleFromDeg(dec)}
	out := precess.Position(from, &coord.Equatorial{}, epoch, to, mα, mδ)
	return WrapDegrees(unit.Angle(out.RA).Deg()), out.Dec.Deg()
}
