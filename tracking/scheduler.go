// Package tracking drives the observation pipeline on a fixed cadence:
// orchestrator, then estimator, then a caller-supplied sink, once per tick.
package tracking

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/venus-observer/core"
	"github.com/signalsfoundry/venus-observer/internal/logging"
	"github.com/signalsfoundry/venus-observer/model"
)

// Clock abstracts time for the scheduler so tests can drive simulated time.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// After returns a channel that fires once d has elapsed.
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock returns a Clock backed by the wall clock.
func RealClock() Clock { return realClock{} }

// State is the scheduler lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateInterrupted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// ErrInvalidInterval is returned by Run when the tick interval is not
// positive.
var ErrInvalidInterval = errors.New("tracking interval must be positive")

// TickFunc is the caller-supplied sink invoked once per tick with the
// instant and the snapshot computed for it.
type TickFunc func(instant time.Time, snap *model.Snapshot)

// Scheduler runs the pipeline loop. Each iteration computes a snapshot,
// optionally estimates the Venus atmosphere, delivers the result to the
// sink, and then suspends until the next deadline. Deadlines advance by
// exactly one interval per tick (previous deadline plus interval, not now
// plus interval), so per-tick compute time does not accumulate as drift. A
// deadline already in the past fires immediately; there are no catch-up
// bursts.
//
// A Scheduler drives exactly one tracking session; it is not safe for
// concurrent use.
type Scheduler struct {
	orch      *core.Orchestrator
	estimator *core.AtmosphereEstimator
	onTick    TickFunc

	clock    Clock
	interval time.Duration
	duration time.Duration // 0 means unbounded
	log      logging.Logger
	metrics  TickRecorder

	state State
}

// TickRecorder receives scheduler instrumentation. Implemented by
// observability.TrackerCollector; nil disables instrumentation.
type TickRecorder interface {
	IncTick()
}

// SchedulerOption customizes a Scheduler.
type SchedulerOption func(*Scheduler)

// WithClock substitutes the wall clock, mainly for tests.
func WithClock(c Clock) SchedulerOption {
	return func(s *Scheduler) { s.clock = c }
}

// WithDuration bounds the session; zero tracks indefinitely.
func WithDuration(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.duration = d }
}

// WithEstimator enables per-tick Venus atmosphere estimation.
func WithEstimator(e *core.AtmosphereEstimator) SchedulerOption {
	return func(s *Scheduler) { s.estimator = e }
}

// WithLogger attaches a structured logger.
func WithLogger(log logging.Logger) SchedulerOption {
	return func(s *Scheduler) { s.log = log }
}

// WithTickRecorder attaches tick instrumentation.
func WithTickRecorder(m TickRecorder) SchedulerOption {
	return func(s *Scheduler) { s.metrics = m }
}

// NewScheduler constructs a scheduler for the given orchestrator, sink, and
// tick interval.
func NewScheduler(orch *core.Orchestrator, onTick TickFunc, interval time.Duration, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		orch:     orch,
		onTick:   onTick,
		clock:    realClock{},
		interval: interval,
		log:      logging.Noop(),
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State reports the current lifecycle state.
func (s *Scheduler) State() State { return s.state }

// Run executes the tracking loop until the configured duration elapses
// (Completed), the context is cancelled (Interrupted, clean), or a pipeline
// error occurs (Interrupted, error returned). Cancellation is cooperative:
// it is checked once per tick at the suspension point and never aborts an
// in-flight computation. Entries delivered before an interruption stay
// durable.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return ErrInvalidInterval
	}

	tracer := otel.Tracer("tracking")

	start := s.clock.Now()
	var end time.Time
	if s.duration > 0 {
		end = start.Add(s.duration)
	}

	s.state = StateRunning
	s.log.Info(ctx, "tracking started",
		logging.Time("start", start),
		logging.Any("interval", s.interval),
		logging.Any("duration", s.duration),
	)

	deadline := start
	for {
		now := s.clock.Now()
		if !end.IsZero() && now.After(end) {
			s.state = StateCompleted
			s.log.Info(ctx, "tracking completed", logging.Time("end", now))
			return nil
		}

		tickCtx, span := tracer.Start(ctx, "tracker.tick")
		span.SetAttributes(attribute.String("instant", now.UTC().Format(time.RFC3339)))

		snap, err := s.orch.Calculate(tickCtx, now)
		if err != nil {
			span.End()
			s.state = StateInterrupted
			return err
		}
		if s.estimator != nil {
			if venus, ok := snap.Bodies["venus"]; ok {
				atmo := s.estimator.Estimate(now, venus)
				snap.Atmosphere = &atmo
			}
		}
		if s.onTick != nil {
			s.onTick(now, snap)
		}
		span.End()

		if s.metrics != nil {
			s.metrics.IncTick()
		}

		// Next deadline keeps the original cadence; a late tick fires
		// immediately rather than bursting to catch up.
		deadline = deadline.Add(s.interval)
		wait := deadline.Sub(s.clock.Now())
		if wait < 0 {
			wait = 0
		}

		// Sole suspension point; the only place cancellation is honoured.
		select {
		case <-ctx.Done():
			s.state = StateInterrupted
			s.log.Info(ctx, "tracking interrupted", logging.Time("at", s.clock.Now()))
			return nil
		default:
		}
		select {
		case <-ctx.Done():
			s.state = StateInterrupted
			s.log.Info(ctx, "tracking interrupted", logging.Time("at", s.clock.Now()))
			return nil
		case <-s.clock.After(wait):
		}
	}
}
