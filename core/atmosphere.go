package core

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/signalsfoundry/venus-observer/model"
)

// Cloud-top and surface baselines for the estimator. Cloud temperature
// blends between the night and day values by illuminated fraction; the
// surface quantities are near-constant with a small elongation-driven
// sinusoidal perturbation.
const (
	cloudTempNightK = 150.0
	cloudTempDayK   = 230.0

	surfaceTempBaseK  = 737.0
	surfaceTempSwingK = 1.5
	groundTempOffsetK = 3.0

	surfacePressureBaseBar  = 92.0
	surfacePressureSwingBar = 0.6
	cloudPressureBar        = 0.5

	windBaseMPerS  = 0.3
	windSwingMPerS = 0.7

	surfaceLightMaxLux = 10000.0
)

// venusComposition is the fixed abundance table, in canonical order. The
// order matters: top-compound selection is a stable sort, so equal
// percentages keep this ordering.
var venusComposition = []model.CompoundAbundance{
	{Name: "CO2", Percent: 96.5},
	{Name: "N2", Percent: 3.5},
	{Name: "SO2", Percent: 0.015},
	{Name: "Ar", Percent: 0.007},
	{Name: "CO", Percent: 0.0017},
	{Name: "H2O", Percent: 0.002},
	{Name: "He", Percent: 0.0012},
	{Name: "Ne", Percent: 0.0007},
}

// Phase returns the illuminated fraction of the disk for a given solar
// elongation in degrees: 1 at 0 deg (full), 0 at 180 deg (new).
func Phase(elongationDeg float64) float64 {
	return (1 + math.Cos(elongationDeg*math.Pi/180)) / 2
}

// AtmosphereEstimator derives phase-dependent Venus atmospheric parameters
// from a computed position. Estimates are deterministic and side-effect
// free.
type AtmosphereEstimator struct{}

// NewAtmosphereEstimator constructs the estimator.
func NewAtmosphereEstimator() *AtmosphereEstimator {
	return &AtmosphereEstimator{}
}

// Estimate computes the atmospheric state for the given instant and Venus
// position.
func (e *AtmosphereEstimator) Estimate(instant time.Time, venus model.BodyPosition) model.AtmosphereRecord {
	elongation := venus.Elongation
	phase := Phase(elongation)
	perturbation := math.Sin(elongation * math.Pi / 180)

	cloudTempK := cloudTempNightK + phase*(cloudTempDayK-cloudTempNightK)
	surfaceTempK := surfaceTempBaseK + surfaceTempSwingK*perturbation
	surfacePressure := surfacePressureBaseBar + surfacePressureSwingBar*perturbation

	windMPerS := windBaseMPerS + windSwingMPerS*phase
	lightLux := surfaceLightMaxLux * phase * phase

	return model.AtmosphereRecord{
		CloudTemperature:   model.TemperatureK(cloudTempK),
		SurfaceTemperature: model.TemperatureK(surfaceTempK),
		GroundTemperature:  model.TemperatureK(surfaceTempK + groundTempOffsetK),
		CloudPressure:      model.PressureBar(cloudPressureBar),
		SurfacePressure:    model.PressureBar(surfacePressure),
		SurfaceWind:        model.WindMPerS(windMPerS),
		SurfaceLight:       model.LightIntensity{Lux: lightLux},
		Composition:        venusComposition,
		MainCompounds:      mainCompounds(3),
		Phase:              phase,
		Notes:              buildNotes(elongation, phase, cloudTempK),
	}
}

// mainCompounds returns the n most abundant compounds in descending order.
// The sort is stable so ties resolve to the table order on every call.
func mainCompounds(n int) []string {
	sorted := make([]model.CompoundAbundance, len(venusComposition))
	copy(sorted, venusComposition)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Percent > sorted[j].Percent
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	names := make([]string, n)
	for i := 0; i < n; i++ {
		names[i] = sorted[i].Name
	}
	return names
}

// buildNotes evaluates the annotation rules in fixed order. Each rule
// contributes at most one sentence; co-firing rules concatenate. An empty
// result collapses to the default sentence.
func buildNotes(elongation, phase, cloudTempK float64) string {
	var notes []string

	if elongation < 10 {
		notes = append(notes, "Venus near superior conjunction (behind the Sun)")
	} else if elongation > 160 {
		notes = append(notes, "Venus near inferior conjunction (between Earth and Sun)")
	}

	if phase > 0.8 {
		notes = append(notes, "Full Venus phase - mostly day side visible")
	} else if phase < 0.2 {
		notes = append(notes, "Crescent phase - mostly night side visible")
	}

	if cloudTempK > 220 {
		notes = append(notes, "Upper cloud temperature higher than average")
	} else if cloudTempK < 160 {
		notes = append(notes, "Upper cloud temperature lower than average")
	}

	if len(notes) == 0 {
		return "Standard conditions"
	}
	return strings.Join(notes, "; ")
}
