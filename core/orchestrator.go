// Package core implements the observation pipeline: the snapshot
// orchestrator and the Venus atmosphere estimator.
package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/signalsfoundry/venus-observer/ephem"
	"github.com/signalsfoundry/venus-observer/internal/logging"
	"github.com/signalsfoundry/venus-observer/model"
)

// MetricsRecorder receives orchestrator instrumentation. Implemented by
// observability.TrackerCollector; a nil recorder disables instrumentation.
type MetricsRecorder interface {
	IncOracleCall(body string)
	IncCacheHit()
}

// reducedBodies is the minimal set computed when all-planets mode is off.
var reducedBodies = []string{"sun", "venus", "moon"}

// distanceBodies are the bodies participating in pairwise distances. The
// Moon is excluded: its separation from the planets is indistinguishable
// from Earth's at this precision.
var distanceBodies = []string{
	"sun", "mercury", "venus", "earth", "mars",
	"jupiter", "saturn", "uranus", "neptune",
}

// Orchestrator computes full multi-body snapshots for requested instants and
// memoizes the most recent one. The single-slot cache sheds redundant oracle
// queries when several requests land inside one tracking interval; it is an
// instance field, so independent orchestrators never interfere.
//
// Orchestrator is not safe for concurrent use: at most one tracking session
// may drive an instance at a time.
type Orchestrator struct {
	oracle     ephem.Ephemeris
	aux        map[string]ephem.Oracle
	observer   model.Location
	interval   time.Duration
	allPlanets bool
	log        logging.Logger
	metrics    MetricsRecorder

	lastInstant  time.Time
	lastSnapshot *model.Snapshot
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithLogger attaches a structured logger.
func WithLogger(log logging.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.log = log }
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m MetricsRecorder) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithAllPlanets toggles computing the full registry plus pairwise distances
// versus the reduced sun/venus/moon set.
func WithAllPlanets(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) { o.allPlanets = enabled }
}

// WithAuxiliaryOracle registers an extra body (e.g. a TLE-defined satellite)
// served by its own oracle alongside the solar-system registry.
func WithAuxiliaryOracle(body string, oracle ephem.Oracle) OrchestratorOption {
	return func(o *Orchestrator) { o.aux[body] = oracle }
}

// NewOrchestrator constructs an orchestrator for a fixed observer location
// and cache interval.
func NewOrchestrator(oracle ephem.Ephemeris, observer model.Location, interval time.Duration, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		oracle:     oracle,
		aux:        make(map[string]ephem.Oracle),
		observer:   observer,
		interval:   interval,
		allPlanets: true,
		log:        logging.Noop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Calculate returns the snapshot for the requested instant. If the previous
// snapshot is fresher than the configured interval it is returned unchanged
// and the oracle is not consulted; otherwise every configured body is
// recomputed and the cache slot is replaced. Errors leave the cache
// untouched.
func (o *Orchestrator) Calculate(ctx context.Context, instant time.Time) (*model.Snapshot, error) {
	if o.lastSnapshot != nil && instant.Sub(o.lastInstant) < o.interval {
		if o.metrics != nil {
			o.metrics.IncCacheHit()
		}
		return o.lastSnapshot, nil
	}

	snap := &model.Snapshot{
		Timestamp: instant,
		Observer:  o.observer,
		Bodies:    make(map[string]model.BodyPosition),
	}

	for _, body := range o.bodySet() {
		pos, err := o.queryOracle(ctx, o.oracle, body, instant)
		if err != nil {
			return nil, err
		}
		snap.Bodies[body] = pos
	}
	for _, body := range o.auxBodies() {
		pos, err := o.queryOracle(ctx, o.aux[body], body, instant)
		if err != nil {
			return nil, err
		}
		snap.Bodies[body] = pos
	}

	if o.allPlanets {
		distances, err := o.pairwiseDistances(ctx, instant)
		if err != nil {
			return nil, err
		}
		snap.Distances = distances
	}

	orbital, err := o.venusOrbital(ctx, snap.Bodies["venus"], instant)
	if err != nil {
		return nil, err
	}
	snap.Orbital = orbital

	o.lastInstant = instant
	o.lastSnapshot = snap
	o.log.Debug(ctx, "snapshot computed",
		logging.Time("instant", instant),
		logging.Int("bodies", len(snap.Bodies)),
	)
	return snap, nil
}

// BodyPosition answers a one-off position query without going through (or
// disturbing) the snapshot cache. Unknown names surface ephem.ErrUnknownBody.
func (o *Orchestrator) BodyPosition(ctx context.Context, body string, instant time.Time) (model.BodyPosition, error) {
	if aux, ok := o.aux[body]; ok {
		return o.queryOracle(ctx, aux, body, instant)
	}
	return o.queryOracle(ctx, o.oracle, body, instant)
}

// Observer returns the fixed observer location.
func (o *Orchestrator) Observer() model.Location { return o.observer }

func (o *Orchestrator) queryOracle(ctx context.Context, oracle ephem.Oracle, body string, instant time.Time) (model.BodyPosition, error) {
	if o.metrics != nil {
		o.metrics.IncOracleCall(body)
	}
	pos, err := oracle.PositionOf(ctx, body, instant, o.observer)
	if err != nil {
		return model.BodyPosition{}, fmt.Errorf("compute %s: %w", body, err)
	}
	return pos, nil
}

// bodySet lists the registry bodies for this configuration. Earth is skipped
// in snapshots: the observer stands on it.
func (o *Orchestrator) bodySet() []string {
	if !o.allPlanets {
		return reducedBodies
	}
	bodies := make([]string, 0, len(ephem.Bodies)-1)
	for _, b := range ephem.Bodies {
		if b != "earth" {
			bodies = append(bodies, b)
		}
	}
	return bodies
}

func (o *Orchestrator) auxBodies() []string {
	bodies := make([]string, 0, len(o.aux))
	for b := range o.aux {
		bodies = append(bodies, b)
	}
	sort.Strings(bodies)
	return bodies
}

// pairwiseDistances computes the separation of every unordered body pair.
func (o *Orchestrator) pairwiseDistances(ctx context.Context, instant time.Time) (map[string]map[string]model.Distance, error) {
	distances := make(map[string]map[string]model.Distance, len(distanceBodies))
	for i, a := range distanceBodies {
		distances[a] = make(map[string]model.Distance)
		for _, b := range distanceBodies[i+1:] {
			d, err := o.oracle.DistanceBetween(ctx, a, b, instant)
			if err != nil {
				return nil, fmt.Errorf("distance %s-%s: %w", a, b, err)
			}
			distances[a][b] = d
		}
	}
	return distances, nil
}

// venusOrbital derives the Venus-specific orbital parameters from the
// already computed apparent position plus two heliocentric longitudes.
func (o *Orchestrator) venusOrbital(ctx context.Context, venus model.BodyPosition, instant time.Time) (model.OrbitalParameters, error) {
	venusLon, err := o.oracle.OrbitalLongitude(ctx, "venus", instant)
	if err != nil {
		return model.OrbitalParameters{}, fmt.Errorf("venus longitude: %w", err)
	}
	earthLon, err := o.oracle.OrbitalLongitude(ctx, "earth", instant)
	if err != nil {
		return model.OrbitalParameters{}, fmt.Errorf("earth longitude: %w", err)
	}

	relative := venusLon - earthLon
	for relative < 0 {
		relative += 360
	}

	return model.OrbitalParameters{
		DistanceFromEarth:   venus.Distance,
		PhaseAngle:          venus.Elongation,
		IlluminatedFraction: Phase(venus.Elongation),
		OrbitalLongitude:    venusLon,
		RelativeToEarth:     relative,
	}, nil
}
