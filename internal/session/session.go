// Package session runs one editing session: an editor, its heatmap
// scheduler, its commit worker and its compositor, all driven by a single
// event loop so the editor is only ever touched from one goroutine.
package session

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/twin.report/internal/editor"
	"github.com/banshee-data/twin.report/internal/heatmap"
	"github.com/banshee-data/twin.report/internal/monitoring"
	"github.com/banshee-data/twin.report/internal/render"
	"github.com/banshee-data/twin.report/internal/timeutil"
)

// DefaultRenderInterval is the compositor tick period.
const DefaultRenderInterval = 33 * time.Millisecond

// ErrClosed is returned for calls on a closed session.
var ErrClosed = errors.New("session closed")

// Options configures a session. Zero values select the defaults.
type Options struct {
	Clock          timeutil.Clock
	Debounce       time.Duration
	RenderInterval time.Duration
	CommitQueue    int
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = timeutil.RealClock{}
	}
	if o.Debounce <= 0 {
		o.Debounce = heatmap.DefaultDebounce
	}
	if o.RenderInterval <= 0 {
		o.RenderInterval = DefaultRenderInterval
	}
	return o
}

type call struct {
	fn   func(*editor.Editor)
	done chan struct{}
}

// Session owns an editor and the goroutines that serve it.
type Session struct {
	ID       uuid.UUID
	CanvasID int64
	Created  time.Time

	ed        *editor.Editor
	comp      *render.Compositor
	sched     *heatmap.Scheduler
	committer *editor.StoreCommitter
	clock     timeutil.Clock
	interval  time.Duration

	calls   chan call
	heat    chan heatmap.Result
	cancel  context.CancelFunc
	done    chan struct{}
	wg      sync.WaitGroup
	closing sync.Once

	heatRev uint64
}

// Open starts a session around ed. Gesture commits go to store through a
// single ordered worker.
func Open(ctx context.Context, canvasID int64, ed *editor.Editor, store editor.Store, o Options) *Session {
	o = o.withDefaults()
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		ID:        uuid.New(),
		CanvasID:  canvasID,
		Created:   o.Clock.Now(),
		ed:        ed,
		comp:      render.NewCompositor(),
		committer: editor.NewStoreCommitter(store, o.CommitQueue),
		clock:     o.Clock,
		interval:  o.RenderInterval,
		calls:     make(chan call),
		heat:      make(chan heatmap.Result),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	s.sched = heatmap.NewScheduler(o.Clock, o.Debounce, s.publish)
	ed.SetCommitter(s.committer)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.committer.Run(ctx)
	}()
	go func() {
		defer s.wg.Done()
		defer close(s.done)
		s.loop(ctx)
	}()
	return s
}

func (s *Session) publish(r heatmap.Result) {
	select {
	case s.heat <- r:
	case <-s.done:
	}
}

func (s *Session) loop(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()
	defer s.sched.Stop()

	s.reschedule()
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-s.calls:
			c.fn(s.ed)
			close(c.done)
		case res := <-s.committer.Results():
			s.ed.Resolve(res)
		case res := <-s.heat:
			if res.Err == nil {
				s.ed.SetRaster(res.Generation, res.Raster)
			}
		case <-ticker.C():
			s.comp.Tick(s.ed.Snapshot())
		}
		s.reschedule()
	}
}

// reschedule triggers a recomputation when a heatmap input changed.
func (s *Session) reschedule() {
	rev := s.ed.HeatmapRevision()
	if rev == s.heatRev {
		return
	}
	s.heatRev = rev
	if !s.ed.HeatmapConfig().Enabled {
		return
	}
	in := s.ed.HeatmapInput()
	canvas := s.CanvasID
	s.sched.Trigger(func(ctx context.Context) (*heatmap.Raster, error) {
		defer monitoring.Timed("heatmap canvas %d (%d sources)", canvas, len(in.Sources))()
		return heatmap.Compute(ctx, in)
	})
}

// Do runs fn on the session goroutine and waits for it to return.
func (s *Session) Do(ctx context.Context, fn func(*editor.Editor)) error {
	c := call{fn: fn, done: make(chan struct{})}
	select {
	case s.calls <- c:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-c.done:
		return nil
	case <-s.done:
		return ErrClosed
	}
}

// Frame renders the current state if it changed and returns the frame.
func (s *Session) Frame(ctx context.Context) (*image.RGBA, error) {
	err := s.Do(ctx, func(ed *editor.Editor) { s.comp.Tick(ed.Snapshot()) })
	if err != nil {
		return nil, err
	}
	return s.comp.Latest(), nil
}

// Compositor exposes the session's compositor.
func (s *Session) Compositor() *render.Compositor { return s.comp }

// Close stops the session and waits for its goroutines.
func (s *Session) Close() {
	s.closing.Do(func() {
		s.cancel()
		s.wg.Wait()
		monitoring.Logf("session %s closed (canvas %d)", s.ID, s.CanvasID)
	})
}

// Done is closed once the event loop has exited.
func (s *Session) Done() <-chan struct{} { return s.done }
