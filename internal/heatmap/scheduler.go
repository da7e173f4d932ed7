package heatmap

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/banshee-data/twin.report/internal/monitoring"
	"github.com/banshee-data/twin.report/internal/timeutil"
)

// DefaultDebounce is the quiet period after the last trigger before a
// recomputation starts.
const DefaultDebounce = 150 * time.Millisecond

// Job computes a raster. It must honour ctx cancellation.
type Job func(ctx context.Context) (*Raster, error)

// Result is a finished computation tagged with the generation that
// requested it.
type Result struct {
	Generation uint64
	Raster     *Raster
	Err        error
	Elapsed    time.Duration
}

// Scheduler runs trailing-edge debounced recomputations. Each Trigger bumps
// a generation counter, cancels any pending or running job and arms a new
// timer. A job publishes only if its generation is still current when it
// finishes, so superseded work is dropped rather than awaited.
type Scheduler struct {
	clock   timeutil.Clock
	delay   time.Duration
	publish func(Result)

	mu      sync.Mutex
	gen     uint64
	timer   timeutil.Timer
	cancel  context.CancelFunc
	stopped bool
}

// NewScheduler returns a scheduler that calls publish with each surviving
// result. publish runs on the goroutine that executed the job.
func NewScheduler(clock timeutil.Clock, delay time.Duration, publish func(Result)) *Scheduler {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Scheduler{clock: clock, delay: delay, publish: publish}
}

// Trigger schedules job and returns its generation. Any earlier pending or
// in-flight job is superseded.
func (s *Scheduler) Trigger(job Job) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return s.gen
	}
	s.gen++
	gen := s.gen
	s.supersedeLocked()
	s.timer = s.clock.AfterFunc(s.delay, func() { s.run(gen, job) })
	return gen
}

// Generation returns the most recently issued generation.
func (s *Scheduler) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Stop cancels pending and running work. Later triggers are ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.supersedeLocked()
}

func (s *Scheduler) supersedeLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Scheduler) current(gen uint64) bool {
	return !s.stopped && gen == s.gen
}

func (s *Scheduler) run(gen uint64, job Job) {
	s.mu.Lock()
	if !s.current(gen) {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.timer = nil
	s.mu.Unlock()
	defer cancel()

	start := s.clock.Now()
	r, err := job(ctx)
	elapsed := s.clock.Since(start)

	s.mu.Lock()
	ok := s.current(gen)
	if ok {
		s.cancel = nil
	}
	s.mu.Unlock()
	if !ok || errors.Is(err, context.Canceled) {
		return
	}
	if err != nil {
		monitoring.Logf("heatmap: generation %d failed: %v", gen, err)
	}
	if s.publish != nil {
		s.publish(Result{Generation: gen, Raster: r, Err: err, Elapsed: elapsed})
	}
}
