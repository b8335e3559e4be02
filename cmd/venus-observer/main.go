package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/signalsfoundry/venus-observer/core"
	"github.com/signalsfoundry/venus-observer/ephem"
	"github.com/signalsfoundry/venus-observer/internal/config"
	"github.com/signalsfoundry/venus-observer/internal/datalog"
	"github.com/signalsfoundry/venus-observer/internal/logging"
	"github.com/signalsfoundry/venus-observer/internal/observability"
	"github.com/signalsfoundry/venus-observer/model"
	"github.com/signalsfoundry/venus-observer/tracking"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration")
	mode := flag.String("mode", "single", "operation mode: single, track, or export")
	at := flag.String("time", "", "instant for single mode (RFC3339); defaults to now")
	duration := flag.Duration("duration", time.Hour, "tracking session length (0 = indefinite)")
	interval := flag.Duration("interval", 0, "tick interval; overrides the configured tracking_interval")
	output := flag.String("output", "", "output data file; overrides the configured output_file")
	format := flag.String("format", "", "export format (csv or json)")
	locName := flag.String("location", "", "observer location name override")
	lat := flag.Float64("lat", 91, "observer latitude override, degrees")
	lon := flag.Float64("lon", 181, "observer longitude override, degrees")
	elev := flag.Float64("elev", -1, "observer elevation override, metres")
	metricsAddr := flag.String("metrics-addr", "", "listen address for the Prometheus /metrics endpoint")

	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error(ctx, "configuration failed", logging.Err(err))
		os.Exit(1)
	}
	applyOverrides(&cfg, *output, *interval, *locName, *lat, *lon, *elev)

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "tracing init failed", logging.Err(err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdownTracing, log)

	collector, err := observability.NewTrackerCollector(nil)
	if err != nil {
		log.Error(ctx, "metrics init failed", logging.Err(err))
		os.Exit(1)
	}
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Warn(ctx, "metrics endpoint stopped", logging.Err(err))
			}
		}()
	}

	tickInterval := time.Duration(cfg.TrackingInterval) * time.Second

	opts := []core.OrchestratorOption{
		core.WithLogger(log),
		core.WithMetrics(collector),
		core.WithAllPlanets(cfg.CalculateAllPlanets),
	}
	for _, sat := range cfg.Satellites {
		oracle, err := ephem.NewSatelliteOracle(sat.Name, sat.Line1, sat.Line2)
		if err != nil {
			log.Error(ctx, "satellite oracle init failed",
				logging.String("name", sat.Name), logging.Err(err))
			os.Exit(1)
		}
		opts = append(opts, core.WithAuxiliaryOracle(sat.Name, oracle))
	}
	orch := core.NewOrchestrator(ephem.NewKepler(), cfg.Location, tickInterval, opts...)

	var estimator *core.AtmosphereEstimator
	if cfg.AtmosphericModel.Enabled {
		estimator = core.NewAtmosphereEstimator()
	}

	dataset, err := datalog.Open(cfg.OutputFile, log, datalog.WithMetrics(collector))
	if err != nil {
		log.Error(ctx, "dataset open failed", logging.Err(err))
		os.Exit(1)
	}

	switch *mode {
	case "single":
		runSingle(ctx, log, orch, estimator, dataset, *at, *format)
	case "track":
		runTrack(ctx, log, orch, estimator, dataset, collector, tickInterval, *duration, *format)
	case "export":
		path, err := dataset.Export(ctx, *format, "")
		if err != nil {
			log.Error(ctx, "export failed", logging.Err(err))
			os.Exit(1)
		}
		fmt.Printf("Data exported to %s\n", path)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(2)
	}
}

func applyOverrides(cfg *config.Config, output string, interval time.Duration, name string, lat, lon, elev float64) {
	if output != "" {
		cfg.OutputFile = output
	}
	if interval > 0 {
		cfg.TrackingInterval = int(interval / time.Second)
	}
	if name != "" {
		cfg.Location.Name = name
	}
	if lat >= -90 && lat <= 90 {
		cfg.Location.Latitude = lat
	}
	if lon >= -180 && lon <= 180 {
		cfg.Location.Longitude = lon
	}
	if elev >= 0 {
		cfg.Location.Elevation = elev
	}
}

func runSingle(ctx context.Context, log logging.Logger, orch *core.Orchestrator, estimator *core.AtmosphereEstimator, dataset *datalog.Dataset, at, format string) {
	instant := time.Now().UTC()
	if at != "" {
		parsed, err := time.Parse(time.RFC3339, at)
		if err != nil {
			log.Error(ctx, "invalid -time value", logging.String("time", at), logging.Err(err))
			os.Exit(2)
		}
		instant = parsed.UTC()
	}

	snap, err := orch.Calculate(ctx, instant)
	if err != nil {
		log.Error(ctx, "calculation failed", logging.Err(err))
		os.Exit(1)
	}
	if estimator != nil {
		if venus, ok := snap.Bodies["venus"]; ok {
			atmo := estimator.Estimate(instant, venus)
			snap.Atmosphere = &atmo
		}
	}

	displaySnapshot(snap)

	if venus, ok := snap.Bodies["venus"]; ok {
		if err := dataset.Append(ctx, instant, venus, snap.Atmosphere); err != nil {
			log.Error(ctx, "append failed", logging.Err(err))
			os.Exit(1)
		}
	}
	if format != "" {
		path, err := dataset.Export(ctx, format, "")
		if err != nil {
			log.Error(ctx, "export failed", logging.Err(err))
			os.Exit(1)
		}
		fmt.Printf("Data exported to %s\n", path)
	}
}

func runTrack(ctx context.Context, log logging.Logger, orch *core.Orchestrator, estimator *core.AtmosphereEstimator, dataset *datalog.Dataset, collector *observability.TrackerCollector, interval, duration time.Duration, format string) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, log = logging.WithSessionLogger(ctx, log)

	onTick := func(instant time.Time, snap *model.Snapshot) {
		venus, ok := snap.Bodies["venus"]
		if !ok {
			return
		}
		fmt.Printf("%s | Venus Alt: %.2f deg | Az: %.2f deg | Dist: %.4f AU\n",
			instant.Format(time.RFC3339), venus.Altitude, venus.Azimuth, venus.Distance.AU)
		if err := dataset.Append(ctx, instant, venus, snap.Atmosphere); err != nil {
			// Buffered entries are retained; the next tick's append retries
			// the full rewrite.
			log.Error(ctx, "append failed", logging.Err(err))
		}
	}

	sched := tracking.NewScheduler(orch, onTick, interval,
		tracking.WithDuration(duration),
		tracking.WithEstimator(estimator),
		tracking.WithLogger(log),
		tracking.WithTickRecorder(collector),
	)

	if err := sched.Run(ctx); err != nil {
		log.Error(ctx, "tracking failed", logging.Err(err))
		os.Exit(1)
	}
	fmt.Printf("Tracking %s. Data logged to %s\n", sched.State(), dataset.TabularPath())

	if format != "" {
		path, err := dataset.Export(ctx, format, "")
		if err != nil {
			log.Error(ctx, "export failed", logging.Err(err))
			os.Exit(1)
		}
		fmt.Printf("Data exported to %s\n", path)
	}
}

func displaySnapshot(snap *model.Snapshot) {
	fmt.Printf("Results for: %s\n", snap.Timestamp.Format(time.RFC3339))
	fmt.Printf("Observer: %s (%.4f, %.4f, %.0fm)\n\n",
		snap.Observer.Name, snap.Observer.Latitude, snap.Observer.Longitude, snap.Observer.Elevation)

	if venus, ok := snap.Bodies["venus"]; ok {
		fmt.Println("Venus Position (from Earth):")
		fmt.Printf("  Altitude: %.2f deg\n", venus.Altitude)
		fmt.Printf("  Azimuth: %.2f deg\n", venus.Azimuth)
		fmt.Printf("  Distance: %.6f AU (%.0f km)\n", venus.Distance.AU, venus.Distance.Km)
		fmt.Printf("  Right Ascension: %.4f hours\n", venus.RA)
		fmt.Printf("  Declination: %.4f deg\n", venus.Dec)
		fmt.Printf("  Elongation from Sun: %.2f deg\n", venus.Elongation)
	}
	if sun, ok := snap.Bodies["sun"]; ok {
		fmt.Printf("\nSun: Alt %.2f deg, Az %.2f deg\n", sun.Altitude, sun.Azimuth)
	}
	if moon, ok := snap.Bodies["moon"]; ok {
		fmt.Printf("Moon: Alt %.2f deg, Az %.2f deg, Dist %.6f AU\n",
			moon.Altitude, moon.Azimuth, moon.Distance.AU)
	}

	if atmo := snap.Atmosphere; atmo != nil {
		fmt.Println("\nVenus Atmospheric Data:")
		fmt.Printf("  Cloud-top Temperature: %.1f K (%.1f C)\n", atmo.CloudTemperature.K, atmo.CloudTemperature.C)
		fmt.Printf("  Surface Temperature: %.1f K (%.1f C)\n", atmo.SurfaceTemperature.K, atmo.SurfaceTemperature.C)
		fmt.Printf("  Surface Pressure: %.2f bar (%.2f atm, %.1f kPa)\n",
			atmo.SurfacePressure.Bar, atmo.SurfacePressure.Atm, atmo.SurfacePressure.KPa)
		fmt.Printf("  Surface Wind Speed: %.1f m/s (%.1f km/h)\n", atmo.SurfaceWind.MPerS, atmo.SurfaceWind.KmPerH)
		fmt.Printf("  Surface Light Intensity: %.0f lux\n", atmo.SurfaceLight.Lux)
		fmt.Printf("  Main Compounds: %v\n", atmo.MainCompounds)
		fmt.Printf("  Notes: %s\n", atmo.Notes)
	}

	fmt.Println("\nVenus Orbital Parameters:")
	fmt.Printf("  Distance from Earth: %.6f AU (%.0f km)\n",
		snap.Orbital.DistanceFromEarth.AU, snap.Orbital.DistanceFromEarth.Km)
	fmt.Printf("  Phase Angle: %.2f deg\n", snap.Orbital.PhaseAngle)
	fmt.Printf("  Illuminated Fraction: %.4f\n", snap.Orbital.IlluminatedFraction)
	fmt.Printf("  Orbital Longitude: %.2f deg\n", snap.Orbital.OrbitalLongitude)
	fmt.Printf("  Relative to Earth: %.2f deg\n", snap.Orbital.RelativeToEarth)
}
