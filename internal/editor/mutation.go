package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/twin.report/internal/floorplan"
	"github.com/banshee-data/twin.report/internal/monitoring"
)

var (
	// ErrInvalidGeometry is reported when a gesture would commit degenerate
	// or non-finite geometry. The gesture is aborted with no mutation.
	ErrInvalidGeometry = floorplan.ErrInvalidGeometry
	// ErrPersistence marks a failed commit. Local state is left as is.
	ErrPersistence = errors.New("persistence failure")
)

// Op is a mutation intent.
type Op int

const (
	OpMoveNode Op = iota + 1
	OpUnplaceNode
	OpCreateWall
	OpUpdateWall
	OpDeleteWall
	OpCreateElement
	OpUpdateElement
	OpDeleteElement
)

var opNames = map[Op]string{
	OpMoveNode:      "move_node",
	OpUnplaceNode:   "unplace_node",
	OpCreateWall:    "create_wall",
	OpUpdateWall:    "update_wall",
	OpDeleteWall:    "delete_wall",
	OpCreateElement: "create_element",
	OpUpdateElement: "update_element",
	OpDeleteElement: "delete_element",
}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// Mutation is one request to the persistence collaborator. Exactly one of
// Node, Wall or Element is set, except for deletes which carry only ID.
type Mutation struct {
	RequestID uuid.UUID
	Op        Op
	ID        int64
	Node      *floorplan.SensorNode
	Wall      *floorplan.Wall
	Element   *floorplan.Element
}

// CommitResult reports the outcome of a mutation. CreatedID is the store id
// assigned by a successful create.
type CommitResult struct {
	Mutation  Mutation
	CreatedID int64
	Err       error
}

// CommitError wraps a failed mutation.
type CommitError struct {
	Mutation Mutation
	Err      error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit %s %d (%s): %v", e.Mutation.Op, e.Mutation.ID, e.Mutation.RequestID, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrPersistence) hold for every CommitError.
func (e *CommitError) Is(target error) bool { return target == ErrPersistence }

// Committer accepts mutations. It must not block on the store; results are
// delivered back to the editor through Editor.Resolve.
type Committer interface {
	Commit(m Mutation)
}

// Store is the persistence collaborator as the editor sees it.
type Store interface {
	MoveNode(ctx context.Context, id int64, x, y float64) error
	UnplaceNode(ctx context.Context, id int64) error
	CreateWall(ctx context.Context, w floorplan.Wall) (int64, error)
	UpdateWall(ctx context.Context, w floorplan.Wall) error
	DeleteWall(ctx context.Context, id int64) error
	CreateElement(ctx context.Context, e floorplan.Element) (int64, error)
	UpdateElement(ctx context.Context, e floorplan.Element) error
	DeleteElement(ctx context.Context, id int64) error
}

// Apply executes m against s.
func Apply(ctx context.Context, s Store, m Mutation) CommitResult {
	res := CommitResult{Mutation: m}
	var err error
	switch m.Op {
	case OpMoveNode:
		if m.Node == nil || m.Node.X == nil || m.Node.Y == nil {
			err = fmt.Errorf("%w: move without position", ErrInvalidGeometry)
			break
		}
		err = s.MoveNode(ctx, m.ID, *m.Node.X, *m.Node.Y)
	case OpUnplaceNode:
		err = s.UnplaceNode(ctx, m.ID)
	case OpCreateWall:
		res.CreatedID, err = s.CreateWall(ctx, *m.Wall)
	case OpUpdateWall:
		err = s.UpdateWall(ctx, *m.Wall)
	case OpDeleteWall:
		err = s.DeleteWall(ctx, m.ID)
	case OpCreateElement:
		res.CreatedID, err = s.CreateElement(ctx, *m.Element)
	case OpUpdateElement:
		err = s.UpdateElement(ctx, *m.Element)
	case OpDeleteElement:
		err = s.DeleteElement(ctx, m.ID)
	default:
		err = fmt.Errorf("unknown op %v", m.Op)
	}
	if err != nil {
		res.Err = &CommitError{Mutation: m, Err: err}
	}
	return res
}

// StoreCommitter applies mutations to a Store on a single worker goroutine,
// preserving submission order, and publishes results on Results.
//
// Commit never blocks: mutations wait in an unbounded pending list. The
// caller that drains Results is usually the same goroutine that calls
// Commit, so a bounded queue would let the two wait on each other.
type StoreCommitter struct {
	store   Store
	results chan CommitResult

	mu      sync.Mutex
	pending []Mutation
	wake    chan struct{}

	once sync.Once
	done chan struct{}
}

// NewStoreCommitter returns a committer whose Results channel buffers depth
// results. Call Run to start the worker.
func NewStoreCommitter(s Store, depth int) *StoreCommitter {
	if depth <= 0 {
		depth = 64
	}
	return &StoreCommitter{
		store:   s,
		results: make(chan CommitResult, depth),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Commit enqueues m and returns immediately.
func (c *StoreCommitter) Commit(m Mutation) {
	select {
	case <-c.done:
		monitoring.Logf("editor: dropping %s after shutdown", m.Op)
		return
	default:
	}
	c.mu.Lock()
	c.pending = append(c.pending, m)
	c.mu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Pending reports how many mutations are waiting for the worker.
func (c *StoreCommitter) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *StoreCommitter) next() (Mutation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		return Mutation{}, false
	}
	m := c.pending[0]
	c.pending[0] = Mutation{}
	c.pending = c.pending[1:]
	if len(c.pending) == 0 {
		c.pending = nil
	}
	return m, true
}

// Results delivers one CommitResult per mutation.
func (c *StoreCommitter) Results() <-chan CommitResult { return c.results }

// Run processes mutations until ctx is cancelled.
func (c *StoreCommitter) Run(ctx context.Context) {
	defer c.once.Do(func() { close(c.done) })
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.wake:
		}
		for {
			m, ok := c.next()
			if !ok {
				break
			}
			res := Apply(ctx, c.store, m)
			if res.Err != nil {
				monitoring.Logf("editor: %v", res.Err)
			}
			select {
			case c.results <- res:
			case <-ctx.Done():
				return
			}
		}
	}
}

// SyncCommitter applies each mutation inline and resolves it on the editor
// before Commit returns. It suits tests and single-goroutine tools.
type SyncCommitter struct {
	Store  Store
	Editor *Editor
}

// Commit applies m immediately.
func (c *SyncCommitter) Commit(m Mutation) {
	res := Apply(context.Background(), c.Store, m)
	if c.Editor != nil {
		c.Editor.Resolve(res)
	}
}
