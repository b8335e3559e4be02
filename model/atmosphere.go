package model

// Temperature carries a temperature in both Kelvin and Celsius.
type Temperature struct {
	K float64 `json:"k"`
	C float64 `json:"c"`
}

// TemperatureK builds a Temperature from Kelvin.
func TemperatureK(k float64) Temperature {
	return Temperature{K: k, C: k - 273.15}
}

// Pressure carries a pressure in bar, standard atmospheres, and kilopascals.
type Pressure struct {
	Bar float64 `json:"bar"`
	Atm float64 `json:"atm"`
	KPa float64 `json:"kpa"`
}

// PressureBar builds a Pressure from bar.
func PressureBar(bar float64) Pressure {
	return Pressure{Bar: bar, Atm: bar / 1.01325, KPa: bar * 100}
}

// WindSpeed carries a wind speed in m/s and km/h.
type WindSpeed struct {
	MPerS  float64 `json:"m_per_s"`
	KmPerH float64 `json:"km_per_h"`
}

// WindMPerS builds a WindSpeed from metres per second.
func WindMPerS(v float64) WindSpeed {
	return WindSpeed{MPerS: v, KmPerH: v * 3.6}
}

// LightIntensity is an illuminance estimate.
type LightIntensity struct {
	Lux float64 `json:"lux"`
}

// CompoundAbundance is one entry of the atmospheric composition table.
type CompoundAbundance struct {
	Name    string  `json:"name"`
	Percent float64 `json:"percent"`
}

// AtmosphereRecord is the derived Venus atmospheric state for one instant.
// This is the enhanced schema: every physical quantity is carried in all of
// its unit representations so downstream sinks never convert.
type AtmosphereRecord struct {
	CloudTemperature   Temperature `json:"cloud_temperature"`
	SurfaceTemperature Temperature `json:"surface_temperature"`
	GroundTemperature  Temperature `json:"ground_temperature"`

	CloudPressure   Pressure `json:"cloud_pressure"`
	SurfacePressure Pressure `json:"surface_pressure"`

	SurfaceWind  WindSpeed      `json:"surface_wind_speed"`
	SurfaceLight LightIntensity `json:"surface_light_intensity"`

	// Composition is the fixed abundance table in its canonical order.
	Composition []CompoundAbundance `json:"composition"`
	// MainCompounds lists the three most abundant compounds, descending.
	MainCompounds []string `json:"main_compounds"`

	// Phase is the illuminated fraction of the disk, 0..1.
	Phase float64 `json:"phase"`
	Notes string  `json:"notes"`
}
