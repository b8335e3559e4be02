package ephem

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/signalsfoundry/venus-observer/model"
)

func greenwich() model.Location {
	return model.Location{Name: "Greenwich", Latitude: 51.4778, Longitude: -0.0015}
}

func TestNormalizeDeg(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0, 0},
		{359.5, 359.5},
		{360, 0},
		{725, 5},
		{-10, 350},
		{-725, 355},
	}
	for _, tc := range cases {
		if got := normalizeDeg(tc.in); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("normalizeDeg(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSolveKepler(t *testing.T) {
	for _, e := range []float64{0, 0.0068, 0.093, 0.2056} {
		for m := 0.0; m < 2*math.Pi; m += 0.37 {
			ea := solveKepler(m, e)
			residual := ea - e*math.Sin(ea) - m
			if math.Abs(residual) > 1e-8 {
				t.Errorf("solveKepler(m=%v, e=%v): residual %v", m, e, residual)
			}
		}
	}
}

func TestJulianDayEpochs(t *testing.T) {
	// Unix epoch.
	if got := julianDay(time.Unix(0, 0)); math.Abs(got-2440587.5) > 1e-9 {
		t.Errorf("julianDay(unix epoch) = %v, want 2440587.5", got)
	}
	// J2000: 2000-01-01 12:00 TT, close enough to UTC at this precision.
	j2000 := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)
	if got := julianDay(j2000); math.Abs(got-2451545.0) > 1e-6 {
		t.Errorf("julianDay(J2000) = %v, want 2451545.0", got)
	}
}

func TestPositionOfUnknownBody(t *testing.T) {
	k := NewKepler()
	_, err := k.PositionOf(context.Background(), "pluto", time.Now(), greenwich())
	if !errors.Is(err, ErrUnknownBody) {
		t.Fatalf("error = %v, want ErrUnknownBody", err)
	}
	if _, err := k.DistanceBetween(context.Background(), "venus", "vulcan", time.Now()); !errors.Is(err, ErrUnknownBody) {
		t.Fatalf("DistanceBetween error = %v, want ErrUnknownBody", err)
	}
	if _, err := k.OrbitalLongitude(context.Background(), "vulcan", time.Now()); !errors.Is(err, ErrUnknownBody) {
		t.Fatalf("OrbitalLongitude error = %v, want ErrUnknownBody", err)
	}
}

func TestRegistryCoverage(t *testing.T) {
	k := NewKepler()
	instant := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	for _, body := range Bodies {
		pos, err := k.PositionOf(context.Background(), body, instant, greenwich())
		if err != nil {
			t.Fatalf("PositionOf(%s): %v", body, err)
		}
		if pos.Altitude < -90 || pos.Altitude > 90 {
			t.Errorf("%s altitude %v out of range", body, pos.Altitude)
		}
		if pos.Azimuth < 0 || pos.Azimuth >= 360 {
			t.Errorf("%s azimuth %v out of range", body, pos.Azimuth)
		}
		if pos.RA < 0 || pos.RA >= 24 {
			t.Errorf("%s RA %v out of range", body, pos.RA)
		}
		if pos.Dec < -90 || pos.Dec > 90 {
			t.Errorf("%s declination %v out of range", body, pos.Dec)
		}
		if pos.Elongation < 0 || pos.Elongation > 180 {
			t.Errorf("%s elongation %v out of range", body, pos.Elongation)
		}
		if pos.Distance.AU <= 0 {
			t.Errorf("%s distance %v not positive", body, pos.Distance.AU)
		}
	}
}

func TestVenusGeometry(t *testing.T) {
	k := NewKepler()

	// Sample a year of positions: the Earth-Venus distance must stay
	// within its physical envelope and the elongation within Venus'
	// maximum, with a margin for the low-precision elements.
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for week := 0; week < 52; week++ {
		instant := start.AddDate(0, 0, 7*week)
		pos, err := k.PositionOf(context.Background(), "venus", instant, greenwich())
		if err != nil {
			t.Fatalf("PositionOf: %v", err)
		}
		if pos.Distance.AU < 0.25 || pos.Distance.AU > 1.75 {
			t.Errorf("week %d: venus distance %v AU outside [0.25, 1.75]", week, pos.Distance.AU)
		}
		if pos.Elongation > 50 {
			t.Errorf("week %d: venus elongation %v exceeds its maximum", week, pos.Elongation)
		}
	}
}

func TestMoonDistance(t *testing.T) {
	k := NewKepler()
	pos, err := k.PositionOf(context.Background(), "moon", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), greenwich())
	if err != nil {
		t.Fatalf("PositionOf: %v", err)
	}
	if pos.Distance.Km < 350000 || pos.Distance.Km > 410000 {
		t.Errorf("moon distance %v km outside the perigee-apogee envelope", pos.Distance.Km)
	}
}

func TestSunHasNoElongation(t *testing.T) {
	k := NewKepler()
	pos, err := k.PositionOf(context.Background(), "sun", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), greenwich())
	if err != nil {
		t.Fatalf("PositionOf: %v", err)
	}
	if pos.Elongation != 0 {
		t.Errorf("sun elongation = %v, want 0", pos.Elongation)
	}
	if pos.Distance.AU < 0.95 || pos.Distance.AU > 1.05 {
		t.Errorf("sun distance %v AU, want near 1", pos.Distance.AU)
	}
}

func TestEarthEntryIsNadir(t *testing.T) {
	k := NewKepler()
	obs := greenwich()
	obs.Elevation = 2000

	pos, err := k.PositionOf(context.Background(), "earth", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), obs)
	if err != nil {
		t.Fatalf("PositionOf: %v", err)
	}
	if pos.Altitude != -90 {
		t.Errorf("earth altitude = %v, want -90", pos.Altitude)
	}
	if math.Abs(pos.Distance.Km-6373) > 0.001 {
		t.Errorf("earth distance = %v km, want radius plus elevation", pos.Distance.Km)
	}
	if pos.Dec != -obs.Latitude {
		t.Errorf("earth declination = %v, want %v", pos.Dec, -obs.Latitude)
	}
}

func TestDistanceBetweenMatchesGeocentric(t *testing.T) {
	k := NewKepler()
	instant := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	pos, err := k.PositionOf(context.Background(), "venus", instant, greenwich())
	if err != nil {
		t.Fatalf("PositionOf: %v", err)
	}
	dist, err := k.DistanceBetween(context.Background(), "earth", "venus", instant)
	if err != nil {
		t.Fatalf("DistanceBetween: %v", err)
	}
	if math.Abs(pos.Distance.AU-dist.AU) > 1e-9 {
		t.Errorf("geocentric %v AU vs pairwise %v AU", pos.Distance.AU, dist.AU)
	}
}

func TestDistanceBetweenSymmetric(t *testing.T) {
	k := NewKepler()
	instant := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	ab, err := k.DistanceBetween(context.Background(), "mars", "jupiter", instant)
	if err != nil {
		t.Fatalf("DistanceBetween: %v", err)
	}
	ba, err := k.DistanceBetween(context.Background(), "jupiter", "mars", instant)
	if err != nil {
		t.Fatalf("DistanceBetween: %v", err)
	}
	if ab.AU != ba.AU {
		t.Errorf("distance not symmetric: %v vs %v", ab.AU, ba.AU)
	}
}

func TestOrbitalLongitude(t *testing.T) {
	k := NewKepler()
	instant := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, body := range []string{"venus", "earth", "mars"} {
		lon, err := k.OrbitalLongitude(context.Background(), body, instant)
		if err != nil {
			t.Fatalf("OrbitalLongitude(%s): %v", body, err)
		}
		if lon < 0 || lon >= 360 {
			t.Errorf("%s longitude %v out of [0, 360)", body, lon)
		}
	}

	if _, err := k.OrbitalLongitude(context.Background(), "sun", instant); err == nil {
		t.Errorf("OrbitalLongitude(sun) should be rejected")
	}
}

func TestDistanceAUConversion(t *testing.T) {
	d := model.DistanceAU(2)
	if math.Abs(d.Km-2*model.KmPerAU) > 1e-6 {
		t.Errorf("DistanceAU(2).Km = %v, want %v", d.Km, 2*model.KmPerAU)
	}
}
