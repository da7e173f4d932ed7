package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/twin.report/internal/editor"
	"github.com/banshee-data/twin.report/internal/floorplan"
	"github.com/banshee-data/twin.report/internal/geom"
	"github.com/banshee-data/twin.report/internal/heatmap"
	"github.com/banshee-data/twin.report/internal/monitoring"
	"github.com/banshee-data/twin.report/internal/timeutil"
	"github.com/banshee-data/twin.report/internal/units"
)

type memStore struct {
	mu     sync.Mutex
	calls  []string
	nextID int64
}

func (s *memStore) record(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, fmt.Sprintf(format, args...))
}

func (s *memStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *memStore) MoveNode(_ context.Context, id int64, x, y float64) error {
	s.record("move_node %d %.0f %.0f", id, x, y)
	return nil
}
func (s *memStore) UnplaceNode(_ context.Context, id int64) error {
	s.record("unplace_node %d", id)
	return nil
}
func (s *memStore) CreateWall(_ context.Context, w floorplan.Wall) (int64, error) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.mu.Unlock()
	s.record("create_wall %.0f %.0f %.0f %.0f", w.X1, w.Y1, w.X2, w.Y2)
	return id, nil
}
func (s *memStore) UpdateWall(_ context.Context, w floorplan.Wall) error {
	s.record("update_wall %d", w.ID)
	return nil
}
func (s *memStore) DeleteWall(_ context.Context, id int64) error {
	s.record("delete_wall %d", id)
	return nil
}
func (s *memStore) CreateElement(_ context.Context, e floorplan.Element) (int64, error) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.mu.Unlock()
	s.record("create_element %s", e.Kind())
	return id, nil
}
func (s *memStore) UpdateElement(_ context.Context, e floorplan.Element) error {
	s.record("update_element %d", e.ID)
	return nil
}
func (s *memStore) DeleteElement(_ context.Context, id int64) error {
	s.record("delete_element %d", id)
	return nil
}

func fp(v float64) *float64 { return &v }

func newEditor() *editor.Editor {
	plan := floorplan.FloorPlan{ID: 7, Name: "Lab", Width: 20, Height: 20}
	ed := editor.New(plan, 20, 20, nil)
	ed.Load(floorplan.Scene{
		Plan:  plan,
		Nodes: []floorplan.SensorNode{{ID: 1, DeviceID: "esp-1", X: fp(5), Y: fp(5), CoverageRadius: 15, Active: true}},
	})
	ed.SetReadings(map[int64]floorplan.Reading{
		1: {NodeID: 1, Values: map[string]float64{units.TemperatureC: 24}},
	})
	return ed
}

// barrier returns once every event queued before it, and the reschedule
// that follows each, has been handled.
func barrier(t *testing.T, s *Session) {
	t.Helper()
	for i := 0; i < 2; i++ {
		require.NoError(t, s.Do(context.Background(), func(*editor.Editor) {}))
	}
}

func raster(t *testing.T, s *Session) (*heatmap.Raster, uint64) {
	t.Helper()
	var r *heatmap.Raster
	var gen uint64
	require.NoError(t, s.Do(context.Background(), func(ed *editor.Editor) { r, gen = ed.Raster() }))
	return r, gen
}

func TestSession_DebouncedHeatmap(t *testing.T) {
	monitoring.SetLogger(nil)
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	s := Open(context.Background(), 7, newEditor(), &memStore{}, Options{Clock: clock})
	defer s.Close()

	barrier(t, s)
	r, _ := raster(t, s)
	assert.Nil(t, r, "nothing computed before the debounce elapses")

	clock.Advance(heatmap.DefaultDebounce)
	barrier(t, s)
	r, gen := raster(t, s)
	require.NotNil(t, r)
	assert.Equal(t, uint64(1), gen)
	assert.InDelta(t, 24, r.At(5, 5), 1e-9)

	// Two quick edits produce a single recomputation.
	require.NoError(t, s.Do(context.Background(), func(ed *editor.Editor) {
		ed.SetReadings(map[int64]floorplan.Reading{1: {NodeID: 1, Values: map[string]float64{units.TemperatureC: 30}}})
	}))
	clock.Advance(50 * time.Millisecond)
	require.NoError(t, s.Do(context.Background(), func(ed *editor.Editor) {
		ed.SetReadings(map[int64]floorplan.Reading{1: {NodeID: 1, Values: map[string]float64{units.TemperatureC: 32}}})
	}))
	barrier(t, s)
	clock.Advance(heatmap.DefaultDebounce)
	barrier(t, s)

	r, gen = raster(t, s)
	assert.Equal(t, uint64(3), gen)
	assert.InDelta(t, 32, r.At(5, 5), 1e-9)
}

func TestSession_CommitsGoThroughStore(t *testing.T) {
	monitoring.SetLogger(nil)
	store := &memStore{nextID: 40}
	s := Open(context.Background(), 7, newEditor(), store, Options{Clock: timeutil.NewMockClock(time.Unix(0, 0))})
	defer s.Close()

	require.NoError(t, s.Do(context.Background(), func(ed *editor.Editor) {
		ed.SetMode(editor.ModeWall)
		ed.PointerDown(geom.Pt(2, 2), editor.ButtonPrimary)
		ed.PointerUp(geom.Pt(2, 2))
		ed.PointerDown(geom.Pt(12, 2), editor.ButtonPrimary)
		ed.PointerUp(geom.Pt(12, 2))
	}))

	require.Eventually(t, func() bool {
		var ids []int64
		_ = s.Do(context.Background(), func(ed *editor.Editor) {
			for _, w := range ed.Scene().Walls {
				ids = append(ids, w.ID)
			}
		})
		return len(ids) == 1 && ids[0] == 41
	}, time.Second, 5*time.Millisecond, "temporary wall id is replaced by the store id")
	assert.Equal(t, []string{"create_wall 2 2 12 2"}, store.Calls())
}

func TestSession_CommitBurstLargerThanQueue(t *testing.T) {
	monitoring.SetLogger(nil)
	const queue = 4
	const creates = 300
	store := &memStore{}
	s := Open(context.Background(), 7, newEditor(), store, Options{
		Clock:       timeutil.NewMockClock(time.Unix(0, 0)),
		CommitQueue: queue,
	})
	defer s.Close()

	events := []Event{{Type: "mode", Mode: "icon"}}
	for i := 0; i < creates; i++ {
		events = append(events, Event{Type: "pointer_down", X: float64(i % 20), Y: float64(i / 20)})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		_, err := s.Apply(ctx, events)
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("applying %d creates with a queue of %d did not return", creates, queue)
	}

	require.Eventually(t, func() bool {
		var stored int
		_ = s.Do(context.Background(), func(ed *editor.Editor) {
			for _, el := range ed.Scene().Elements {
				if el.ID > 0 {
					stored++
				}
			}
		})
		return stored == creates
	}, 5*time.Second, 10*time.Millisecond, "every create is acknowledged")
	assert.Len(t, store.Calls(), creates)
}

func TestSession_FrameAndClose(t *testing.T) {
	monitoring.SetLogger(nil)
	s := Open(context.Background(), 7, newEditor(), &memStore{}, Options{Clock: timeutil.NewMockClock(time.Unix(0, 0))})

	img, err := s.Frame(context.Background())
	require.NoError(t, err)
	require.NotNil(t, img)
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, uint64(1), s.Compositor().Frames())

	_, err = s.Frame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), s.Compositor().Frames(), "clean frame is reused")

	s.Close()
	s.Close()
	assert.ErrorIs(t, s.Do(context.Background(), func(*editor.Editor) {}), ErrClosed)
}

func TestManager(t *testing.T) {
	monitoring.SetLogger(nil)
	m := NewManager(Options{Clock: timeutil.NewMockClock(time.Unix(0, 0))})
	a := m.Open(context.Background(), 7, newEditor(), &memStore{})
	b := m.Open(context.Background(), 8, newEditor(), &memStore{})

	got, ok := m.Get(a.ID)
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.Len(t, m.List(), 2)

	var touched []int64
	var mu sync.Mutex
	m.Broadcast(context.Background(), 7, func(ed *editor.Editor) {
		mu.Lock()
		touched = append(touched, 7)
		mu.Unlock()
	})
	assert.Equal(t, []int64{7}, touched)

	assert.True(t, m.Close(b.ID))
	assert.False(t, m.Close(b.ID))
	m.CloseAll()
	assert.Empty(t, m.List())
	<-a.Done()
}
