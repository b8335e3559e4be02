package model

import (
	"strconv"
	"strings"
	"time"
)

// LogEntry is one appended observation: the Venus position plus the optional
// atmospheric state. The two sections are typed rather than free-form maps so
// the tabular column union stays statically known: entries either carry the
// position columns alone or the position and atmosphere columns together.
type LogEntry struct {
	Timestamp  time.Time
	Position   BodyPosition
	Atmosphere *AtmosphereRecord
}

// Position-only columns, in canonical order.
var positionColumns = []string{
	"timestamp",
	"altitude",
	"azimuth",
	"distance_au",
	"distance_km",
	"ra",
	"dec",
	"elongation",
}

// Atmosphere columns appended when the estimator ran, in canonical order.
// Names match the tabular schema consumed by the plotting tools.
var atmosphereColumns = []string{
	"cloud_temp_k",
	"cloud_temp_c",
	"surface_temp_k",
	"surface_temp_c",
	"ground_temp_k",
	"cloud_pressure_bar",
	"surface_pressure_bar",
	"surface_pressure_atm",
	"surface_pressure_kpa",
	"wind_speed_m_s",
	"wind_speed_km_h",
	"light_lux",
	"phase",
	"main_compounds",
	"notes",
}

// Columns returns the ordered column names this entry populates.
func (e LogEntry) Columns() []string {
	cols := make([]string, 0, len(positionColumns)+len(atmosphereColumns))
	cols = append(cols, positionColumns...)
	if e.Atmosphere != nil {
		cols = append(cols, atmosphereColumns...)
	}
	return cols
}

// Values returns the entry flattened to column name -> serialized value.
// Timestamps are ISO-8601; numbers use the shortest exact representation.
func (e LogEntry) Values() map[string]string {
	v := map[string]string{
		"timestamp":   e.Timestamp.UTC().Format(time.RFC3339),
		"altitude":    formatFloat(e.Position.Altitude),
		"azimuth":     formatFloat(e.Position.Azimuth),
		"distance_au": formatFloat(e.Position.Distance.AU),
		"distance_km": formatFloat(e.Position.Distance.Km),
		"ra":          formatFloat(e.Position.RA),
		"dec":         formatFloat(e.Position.Dec),
		"elongation":  formatFloat(e.Position.Elongation),
	}
	if a := e.Atmosphere; a != nil {
		v["cloud_temp_k"] = formatFloat(a.CloudTemperature.K)
		v["cloud_temp_c"] = formatFloat(a.CloudTemperature.C)
		v["surface_temp_k"] = formatFloat(a.SurfaceTemperature.K)
		v["surface_temp_c"] = formatFloat(a.SurfaceTemperature.C)
		v["ground_temp_k"] = formatFloat(a.GroundTemperature.K)
		v["cloud_pressure_bar"] = formatFloat(a.CloudPressure.Bar)
		v["surface_pressure_bar"] = formatFloat(a.SurfacePressure.Bar)
		v["surface_pressure_atm"] = formatFloat(a.SurfacePressure.Atm)
		v["surface_pressure_kpa"] = formatFloat(a.SurfacePressure.KPa)
		v["wind_speed_m_s"] = formatFloat(a.SurfaceWind.MPerS)
		v["wind_speed_km_h"] = formatFloat(a.SurfaceWind.KmPerH)
		v["light_lux"] = formatFloat(a.SurfaceLight.Lux)
		v["phase"] = formatFloat(a.Phase)
		v["main_compounds"] = strings.Join(a.MainCompounds, ",")
		v["notes"] = a.Notes
	}
	return v
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
