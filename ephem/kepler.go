package ephem

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/signalsfoundry/venus-observer/model"
)

const (
	// Mean obliquity of the ecliptic at J2000, degrees.
	obliquityDeg = 23.43928

	// Mean Earth radius in kilometres, used for the degenerate
	// observer-to-geocentre query.
	earthRadiusKm = 6371.0

	j2000JD = 2451545.0

	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi
)

// elements holds Keplerian mean elements at J2000 and their per-century
// rates: semi-major axis (AU), eccentricity, inclination, mean longitude,
// longitude of perihelion, longitude of the ascending node (degrees).
type elements struct {
	a, e, i, l, peri, node       float64
	da, de, di, dl, dperi, dnode float64
}

// JPL approximate mean elements, valid 1800-2050. "earth" is the
// Earth-Moon barycentre, which is accurate enough at this precision.
var planetElements = map[string]elements{
	"mercury": {
		0.38709927, 0.20563593, 7.00497902, 252.25032350, 77.45779628, 48.33076593,
		0.00000037, 0.00001906, -0.00594749, 149472.67411175, 0.16047689, -0.12534081,
	},
	"venus": {
		0.72333566, 0.00677672, 3.39467605, 181.97909950, 131.60246718, 76.67984255,
		0.00000390, -0.00004107, -0.00078890, 58517.81538729, 0.00268329, -0.27769418,
	},
	"earth": {
		1.00000261, 0.01671123, -0.00001531, 100.46457166, 102.93768193, 0.0,
		0.00000562, -0.00004392, -0.01294668, 35999.37244981, 0.32327364, 0.0,
	},
	"mars": {
		1.52371034, 0.09339410, 1.84969142, -4.55343205, -23.94362959, 49.55953891,
		0.00001847, 0.00007882, -0.00813131, 19140.30268499, 0.44441088, -0.29257343,
	},
	"jupiter": {
		5.20288700, 0.04838624, 1.30439695, 34.39644051, 14.72847983, 100.47390909,
		-0.00011607, -0.00013253, -0.00183714, 3034.74612775, 0.21252668, 0.20469106,
	},
	"saturn": {
		9.53667594, 0.05386179, 2.48599187, 49.95424423, 92.59887831, 113.66242448,
		-0.00125060, -0.00050991, 0.00193609, 1222.49362201, -0.41897216, -0.28867794,
	},
	"uranus": {
		19.18916464, 0.04725744, 0.77263783, 313.23810451, 170.95427630, 74.01692503,
		-0.00196176, -0.00004397, -0.00242939, 428.48202785, 0.40805281, 0.04240589,
	},
	"neptune": {
		30.06992276, 0.00859048, 1.77004347, -55.12002969, 44.96476227, 131.78422574,
		0.00026291, 0.00005105, 0.00035372, 218.45945325, -0.32241464, -0.00508664,
	},
}

// Kepler is the built-in low-precision analytic ephemeris. Planetary
// positions come from Keplerian mean elements, the Moon from a truncated
// lunar theory. Good to a few arcminutes for the planets and roughly a
// degree for the Moon; diurnal parallax is neglected.
//
// Kepler is stateless and safe for concurrent use.
type Kepler struct{}

// NewKepler constructs the built-in ephemeris.
func NewKepler() *Kepler {
	return &Kepler{}
}

// PositionOf implements Oracle for the fixed solar-system registry.
func (k *Kepler) PositionOf(ctx context.Context, body string, t time.Time, obs model.Location) (model.BodyPosition, error) {
	if !k.knows(body) {
		return model.BodyPosition{}, fmt.Errorf("position of %q: %w", body, ErrUnknownBody)
	}

	jd := julianDay(t)

	if body == "earth" {
		return earthFromObserver(jd, obs), nil
	}

	geo := k.geocentricEquatorial(body, jd)
	r := geo.Norm()

	ra, dec := raDec(geo)
	alt, az := altAz(ra, dec, jd, obs)

	elongation := 0.0
	if body != "sun" {
		sun := k.geocentricEquatorial("sun", jd)
		elongation = angleBetweenDeg(geo, sun)
	}

	return model.BodyPosition{
		Altitude:   alt,
		Azimuth:    az,
		Distance:   model.DistanceAU(r),
		RA:         ra,
		Dec:        dec,
		Elongation: elongation,
	}, nil
}

// DistanceBetween implements Ephemeris.
func (k *Kepler) DistanceBetween(ctx context.Context, bodyA, bodyB string, t time.Time) (model.Distance, error) {
	if !k.knows(bodyA) {
		return model.Distance{}, fmt.Errorf("distance from %q: %w", bodyA, ErrUnknownBody)
	}
	if !k.knows(bodyB) {
		return model.Distance{}, fmt.Errorf("distance to %q: %w", bodyB, ErrUnknownBody)
	}
	jd := julianDay(t)
	sep := k.heliocentric(bodyA, jd).Sub(k.heliocentric(bodyB, jd)).Norm()
	return model.DistanceAU(sep), nil
}

// OrbitalLongitude implements Ephemeris. The Sun has no heliocentric
// longitude and is rejected.
func (k *Kepler) OrbitalLongitude(ctx context.Context, body string, t time.Time) (float64, error) {
	if body == "sun" {
		return 0, fmt.Errorf("orbital longitude of the sun is undefined")
	}
	if !k.knows(body) {
		return 0, fmt.Errorf("orbital longitude of %q: %w", body, ErrUnknownBody)
	}
	h := k.heliocentric(body, julianDay(t))
	lon := math.Atan2(h.Y, h.X) * radToDeg
	return normalizeDeg(lon), nil
}

func (k *Kepler) knows(body string) bool {
	if body == "sun" || body == "moon" {
		return true
	}
	_, ok := planetElements[body]
	return ok
}

// heliocentric returns the heliocentric ecliptic position of body in AU.
func (k *Kepler) heliocentric(body string, jd float64) vec3 {
	switch body {
	case "sun":
		return vec3{}
	case "moon":
		return k.heliocentric("earth", jd).Add(moonGeocentric(jd))
	default:
		return planetHeliocentric(planetElements[body], jd)
	}
}

// geocentricEquatorial returns the geocentric position of body in the
// equatorial frame, AU.
func (k *Kepler) geocentricEquatorial(body string, jd float64) vec3 {
	var geoEcl vec3
	switch body {
	case "moon":
		geoEcl = moonGeocentric(jd)
	default:
		geoEcl = k.heliocentric(body, jd).Sub(k.heliocentric("earth", jd))
	}
	return eclipticToEquatorial(geoEcl)
}

// planetHeliocentric solves the two-body problem for one set of mean
// elements at the given Julian day.
func planetHeliocentric(el elements, jd float64) vec3 {
	tc := (jd - j2000JD) / 36525.0

	a := el.a + el.da*tc
	e := el.e + el.de*tc
	i := (el.i + el.di*tc) * degToRad
	l := el.l + el.dl*tc
	peri := el.peri + el.dperi*tc
	node := el.node + el.dnode*tc

	// Argument of perihelion and mean anomaly.
	w := (peri - node) * degToRad
	m := normalizeDeg(l-peri) * degToRad
	node *= degToRad

	ea := solveKepler(m, e)

	// Position in the orbital plane.
	xp := a * (math.Cos(ea) - e)
	yp := a * math.Sqrt(1-e*e) * math.Sin(ea)

	cw, sw := math.Cos(w), math.Sin(w)
	co, so := math.Cos(node), math.Sin(node)
	ci, si := math.Cos(i), math.Sin(i)

	return vec3{
		X: (cw*co-sw*so*ci)*xp + (-sw*co-cw*so*ci)*yp,
		Y: (cw*so+sw*co*ci)*xp + (-sw*so+cw*co*ci)*yp,
		Z: (sw*si)*xp + (cw*si)*yp,
	}
}

// solveKepler iterates Kepler's equation E - e sin E = M by Newton's method.
func solveKepler(m, e float64) float64 {
	ea := m + e*math.Sin(m)
	for iter := 0; iter < 10; iter++ {
		de := (ea - e*math.Sin(ea) - m) / (1 - e*math.Cos(ea))
		ea -= de
		if math.Abs(de) < 1e-9 {
			break
		}
	}
	return ea
}

// moonGeocentric returns the Moon's geocentric ecliptic position in AU,
// using Schlyter's truncated lunar theory with the dominant perturbation
// terms (evection, variation, annual equation).
func moonGeocentric(jd float64) vec3 {
	d := jd - 2451543.5

	n := (125.1228 - 0.0529538083*d) * degToRad // ascending node
	i := 5.1454 * degToRad
	w := (318.0634 + 0.1643573223*d) * degToRad // argument of perigee
	a := 60.2666                                // Earth radii
	e := 0.054900
	m := normalizeDeg(115.3654+13.0649929509*d) * degToRad

	ea := solveKepler(m, e)
	xp := a * (math.Cos(ea) - e)
	yp := a * math.Sqrt(1-e*e) * math.Sin(ea)

	// Ecliptic longitude/latitude/distance of the unperturbed orbit.
	v := math.Atan2(yp, xp)
	r := math.Sqrt(xp*xp + yp*yp)

	lon := math.Atan2(
		math.Sin(v+w)*math.Cos(i),
		math.Cos(v+w),
	) + n
	lat := math.Asin(math.Sin(v + w) * math.Sin(i))

	// Fundamental arguments for the perturbation series.
	ms := normalizeDeg(356.0470+0.9856002585*d) * degToRad // Sun mean anomaly
	ls := ms + (282.9404+4.70935e-5*d)*degToRad            // Sun mean longitude
	lm := n + w + m                                        // Moon mean longitude
	dd := lm - ls                                          // mean elongation
	f := lm - n                                            // argument of latitude

	lon += degToRad * (-1.274*math.Sin(m-2*dd) +
		0.658*math.Sin(2*dd) -
		0.186*math.Sin(ms) -
		0.059*math.Sin(2*m-2*dd) -
		0.057*math.Sin(m-2*dd+ms) +
		0.053*math.Sin(m+2*dd) +
		0.046*math.Sin(2*dd-ms) +
		0.041*math.Sin(m-ms) -
		0.035*math.Sin(dd) -
		0.031*math.Sin(m+ms))
	lat += degToRad * (-0.173*math.Sin(f-2*dd) -
		0.055*math.Sin(m-f-2*dd) -
		0.046*math.Sin(m+f-2*dd) +
		0.033*math.Sin(f+2*dd) +
		0.017*math.Sin(2*m+f))
	r += -0.58*math.Cos(m-2*dd) - 0.46*math.Cos(2*dd)

	// Earth radii -> AU.
	r *= 6378.137 / model.KmPerAU

	cl := math.Cos(lat)
	return vec3{
		X: r * cl * math.Cos(lon),
		Y: r * cl * math.Sin(lon),
		Z: r * math.Sin(lat),
	}
}

// earthFromObserver handles the degenerate registry entry: the direction to
// the Earth's own centre, i.e. the observer's nadir.
func earthFromObserver(jd float64, obs model.Location) model.BodyPosition {
	distKm := earthRadiusKm + obs.Elevation/1000

	lst := localSiderealDeg(jd, obs.Longitude)
	ra := normalizeDeg(lst+180) / 15 // antipode of the zenith
	dec := -obs.Latitude

	return model.BodyPosition{
		Altitude: -90,
		Azimuth:  0,
		Distance: model.Distance{AU: distKm / model.KmPerAU, Km: distKm},
		RA:       ra,
		Dec:      dec,
		// The nadir-sun angle is 180 deg minus the solar zenith distance,
		// but for the degenerate entry the elongation is reported as zero.
		Elongation: 0,
	}
}

// eclipticToEquatorial rotates an ecliptic vector into the equatorial frame.
func eclipticToEquatorial(v vec3) vec3 {
	ce := math.Cos(obliquityDeg * degToRad)
	se := math.Sin(obliquityDeg * degToRad)
	return vec3{
		X: v.X,
		Y: v.Y*ce - v.Z*se,
		Z: v.Y*se + v.Z*ce,
	}
}

// raDec converts an equatorial vector to right ascension (hours) and
// declination (degrees).
func raDec(v vec3) (ra, dec float64) {
	r := v.Norm()
	if r == 0 {
		return 0, 0
	}
	ra = normalizeDeg(math.Atan2(v.Y, v.X)*radToDeg) / 15
	dec = math.Asin(v.Z/r) * radToDeg
	return ra, dec
}

// altAz converts RA/dec to topocentric altitude and azimuth (degrees, with
// azimuth measured east of north).
func altAz(raHours, decDeg, jd float64, obs model.Location) (alt, az float64) {
	ha := (localSiderealDeg(jd, obs.Longitude) - raHours*15) * degToRad
	lat := obs.Latitude * degToRad
	dec := decDeg * degToRad

	sinAlt := math.Sin(lat)*math.Sin(dec) + math.Cos(lat)*math.Cos(dec)*math.Cos(ha)
	if sinAlt > 1 {
		sinAlt = 1
	} else if sinAlt < -1 {
		sinAlt = -1
	}
	alt = math.Asin(sinAlt) * radToDeg

	// Azimuth from south, then rotated to the north-based convention.
	azS := math.Atan2(
		math.Sin(ha),
		math.Cos(ha)*math.Sin(lat)-math.Tan(dec)*math.Cos(lat),
	) * radToDeg
	az = normalizeDeg(azS + 180)
	return alt, az
}

// localSiderealDeg returns the local mean sidereal time in degrees.
func localSiderealDeg(jd, lonDeg float64) float64 {
	d := jd - j2000JD
	gmst := 280.46061837 + 360.98564736629*d
	return normalizeDeg(gmst + lonDeg)
}

// julianDay converts a wall-clock instant to a Julian day number.
func julianDay(t time.Time) float64 {
	return 2440587.5 + float64(t.UnixNano())/float64(24*time.Hour)
}

// normalizeDeg wraps an angle into [0, 360).
func normalizeDeg(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
