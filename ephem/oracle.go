// Package ephem supplies apparent positions of solar-system bodies (and
// optionally Earth satellites) for a given instant and observer location.
package ephem

import (
	"context"
	"errors"
	"time"

	"github.com/signalsfoundry/venus-observer/model"
)

// ErrUnknownBody is returned when a position is requested for a body name
// that is not in the oracle's registry.
var ErrUnknownBody = errors.New("unknown celestial body")

// Oracle answers the position of a single named body as seen from an
// observer. Implementations must be deterministic for a given instant.
type Oracle interface {
	// PositionOf returns the apparent topocentric position of body at t.
	PositionOf(ctx context.Context, body string, t time.Time, obs model.Location) (model.BodyPosition, error)
}

// Ephemeris extends Oracle with the body-to-body queries the orchestrator
// needs for pairwise distances and orbital parameters.
type Ephemeris interface {
	Oracle

	// DistanceBetween returns the straight-line separation of two bodies at t.
	DistanceBetween(ctx context.Context, bodyA, bodyB string, t time.Time) (model.Distance, error)

	// OrbitalLongitude returns the heliocentric ecliptic longitude of body
	// at t, in degrees normalized to [0, 360).
	OrbitalLongitude(ctx context.Context, body string, t time.Time) (float64, error)
}

// Bodies is the fixed registry served by the built-in ephemeris.
var Bodies = []string{
	"sun", "mercury", "venus", "earth", "mars",
	"jupiter", "saturn", "uranus", "neptune", "moon",
}
