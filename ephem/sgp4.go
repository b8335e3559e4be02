package ephem

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/venus-observer/model"
)

// SatelliteOracle answers positions for a single TLE-defined Earth satellite,
// so extra bodies (stations, probes in Earth orbit) can ride the same
// observation pipeline as the planets. Elongation is computed against the
// built-in ephemeris' Sun.
type SatelliteOracle struct {
	name string
	sat  satellite.Satellite
	sun  *Kepler
}

// NewSatelliteOracle builds an oracle from two TLE lines. The TLE is
// validated up front because the underlying parser aborts the process on
// malformed input.
func NewSatelliteOracle(name, line1, line2 string) (*SatelliteOracle, error) {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)
	if err := validateTLE(line1, line2); err != nil {
		return nil, fmt.Errorf("satellite %q: %w", name, err)
	}

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("satellite %q: sgp4 init failed: code=%d %s", name, sat.Error, sat.ErrorStr)
	}
	return &SatelliteOracle{name: name, sat: sat, sun: NewKepler()}, nil
}

// Name returns the body name this oracle serves.
func (s *SatelliteOracle) Name() string { return s.name }

// PositionOf implements Oracle for the single satellite body.
func (s *SatelliteOracle) PositionOf(ctx context.Context, body string, t time.Time, obs model.Location) (model.BodyPosition, error) {
	if body != s.name {
		return model.BodyPosition{}, fmt.Errorf("position of %q: %w", body, ErrUnknownBody)
	}

	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	pos, _ := satellite.Propagate(s.sat, year, int(month), day, hour, min, sec)
	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) {
		return model.BodyPosition{}, fmt.Errorf("satellite %q: propagation failed at %s", s.name, t.Format(time.RFC3339))
	}

	jday := satellite.JDay(year, int(month), day, hour, min, sec)
	look := satellite.ECIToLookAngles(pos, satellite.LatLong{
		Latitude:  obs.Latitude * degToRad,
		Longitude: obs.Longitude * degToRad,
	}, obs.Elevation/1000, jday)

	altDeg := look.El * radToDeg
	azDeg := normalizeDeg(look.Az * radToDeg)

	// RA/dec straight from the ECI vector.
	r := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	ra := normalizeDeg(math.Atan2(pos.Y, pos.X)*radToDeg) / 15
	dec := math.Asin(pos.Z/r) * radToDeg

	sunPos, err := s.sun.PositionOf(ctx, "sun", t, obs)
	if err != nil {
		return model.BodyPosition{}, err
	}

	return model.BodyPosition{
		Altitude:   altDeg,
		Azimuth:    azDeg,
		Distance:   model.Distance{AU: look.Rg / model.KmPerAU, Km: look.Rg},
		RA:         ra,
		Dec:        dec,
		Elongation: sphericalSeparationDeg(altDeg, azDeg, sunPos.Altitude, sunPos.Azimuth),
	}, nil
}

// sphericalSeparationDeg returns the great-circle angle between two
// (altitude, azimuth) directions, degrees.
func sphericalSeparationDeg(alt1, az1, alt2, az2 float64) float64 {
	a1, a2 := alt1*degToRad, alt2*degToRad
	dAz := (az1 - az2) * degToRad
	c := math.Sin(a1)*math.Sin(a2) + math.Cos(a1)*math.Cos(a2)*math.Cos(dAz)
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c) * radToDeg
}

func validateTLE(line1, line2 string) error {
	if len(line1) != 69 {
		return fmt.Errorf("tle line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("tle line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("tle line1 must start with '1'")
	}
	if line2[0] != '2' {
		return fmt.Errorf("tle line2 must start with '2'")
	}
	return nil
}
