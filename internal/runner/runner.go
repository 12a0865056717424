package runner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lambethcyclists/mailroom/internal/logging"
)

// Clock abstracts time so tests can drive the loops without sleeping.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker is the slice of time.Ticker the runner uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (t realTicker) C() <-chan time.Time { return t.t.C }
func (t realTicker) Stop()               { t.t.Stop() }

// Loop is one recurring cycle: the email pipeline or the meeting
// scheduler.
type Loop struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// DefaultCycleTimeout bounds a single cycle. It also caps how long a
// cycle already in flight at shutdown may keep draining.
const DefaultCycleTimeout = 10 * time.Minute

// Runner drives the configured loops on independent tickers. The
// record store is the only state the loops share; each loop runs its
// cycles serially but never waits for the other.
type Runner struct {
	loops        []Loop
	clock        Clock
	logger       *slog.Logger
	cycleTimeout time.Duration
	wg           sync.WaitGroup
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock replaces the wall clock, for tests.
func WithClock(c Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithCycleTimeout changes how long a single cycle may run.
func WithCycleTimeout(d time.Duration) Option {
	return func(r *Runner) { r.cycleTimeout = d }
}

// New builds a Runner over the given loops.
func New(loops []Loop, opts ...Option) *Runner {
	r := &Runner{
		loops:        loops,
		clock:        realClock{},
		logger:       logging.WithService(slog.Default(), "runner"),
		cycleTimeout: DefaultCycleTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start runs every loop until ctx is cancelled, then waits for
// in-flight cycles to finish before returning.
func (r *Runner) Start(ctx context.Context) {
	for _, loop := range r.loops {
		r.wg.Add(1)
		go func(loop Loop) {
			defer r.wg.Done()
			r.runLoop(ctx, loop)
		}(loop)
	}
	r.wg.Wait()
	r.logger.Info("all loops stopped")
}

// runLoop fires one cycle immediately, then once per tick. A cycle
// error is logged and the loop keeps going; the next tick retries.
func (r *Runner) runLoop(ctx context.Context, loop Loop) {
	logger := r.logger.With(slog.String("loop", loop.Name))
	logger.Info("loop started", slog.Duration("interval", loop.Interval))

	ticker := r.clock.NewTicker(loop.Interval)
	defer ticker.Stop()

	r.cycle(ctx, loop, logger)
	for {
		select {
		case <-ctx.Done():
			logger.Info("loop stopped")
			return
		case <-ticker.C():
			r.cycle(ctx, loop, logger)
		}
	}
}

// cycle runs one iteration of the loop. ctx only decides whether the
// cycle starts; the work itself runs on a detached context so that a
// shutdown signal lets an in-flight cycle finish its writes instead of
// cancelling them halfway through. The cycle timeout still bounds it.
func (r *Runner) cycle(ctx context.Context, loop Loop, logger *slog.Logger) {
	if ctx.Err() != nil {
		return
	}
	workCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cycleTimeout)
	defer cancel()
	start := r.clock.Now()
	if err := loop.Run(workCtx); err != nil {
		logger.Error("cycle failed", logging.Err(err))
		return
	}
	logger.Debug("cycle finished", slog.Duration("took", r.clock.Now().Sub(start)))
}
