package model

import "time"

// KmPerAU is the number of kilometres in one astronomical unit.
const KmPerAU = 149597870.7

// Location is a fixed observer site on the Earth's surface. It is immutable
// for the duration of a tracking run.
type Location struct {
	Name      string  `json:"name" yaml:"name"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`   // degrees, north positive
	Longitude float64 `json:"longitude" yaml:"longitude"` // degrees, east positive
	Elevation float64 `json:"elevation" yaml:"elevation"` // metres above sea level
}

// Distance carries the same range in both astronomical units and kilometres.
type Distance struct {
	AU float64 `json:"au"`
	Km float64 `json:"km"`
}

// DistanceAU builds a Distance from a range in astronomical units.
func DistanceAU(au float64) Distance {
	return Distance{AU: au, Km: au * KmPerAU}
}

// BodyPosition is the apparent position of one celestial body at one instant
// as seen from the observer.
type BodyPosition struct {
	Altitude   float64  `json:"altitude"` // degrees above the horizon
	Azimuth    float64  `json:"azimuth"`  // degrees east of north
	Distance   Distance `json:"distance"`
	RA         float64  `json:"ra"`         // right ascension, hours
	Dec        float64  `json:"dec"`        // declination, degrees
	Elongation float64  `json:"elongation"` // angular separation from the Sun, degrees
}

// OrbitalParameters holds the Venus-specific derived quantities computed per
// snapshot.
type OrbitalParameters struct {
	DistanceFromEarth   Distance `json:"distance_from_earth"`
	PhaseAngle          float64  `json:"phase_angle"`          // degrees
	IlluminatedFraction float64  `json:"illuminated_fraction"` // 0..1
	OrbitalLongitude    float64  `json:"orbital_longitude"`    // heliocentric ecliptic, degrees
	RelativeToEarth     float64  `json:"relative_to_earth"`    // degrees, Venus minus Earth longitude
}

// Snapshot is the complete set of computed positions and derived values for
// one instant. Snapshots are produced by the orchestrator (and optionally
// annotated by the atmosphere estimator) and are treated as read-only by
// consumers.
type Snapshot struct {
	Timestamp time.Time               `json:"timestamp"`
	Observer  Location                `json:"observer"`
	Bodies    map[string]BodyPosition `json:"bodies"`

	// Distances maps bodyA -> bodyB -> separation for every unordered pair
	// in the registry. Populated only when all planets are computed.
	Distances map[string]map[string]Distance `json:"distances,omitempty"`

	Orbital    OrbitalParameters `json:"orbital_parameters"`
	Atmosphere *AtmosphereRecord `json:"atmosphere,omitempty"`
}
