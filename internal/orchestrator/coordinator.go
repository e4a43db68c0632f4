package orchestrator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tis24dev/savevault/internal/types"
)

// ErrBusy is returned when an operation of the same kind is already running.
var ErrBusy = errors.New("operation already in progress")

// Coordinator hands out one permit per operation kind at a time.
type Coordinator struct {
	mu      sync.Mutex
	running map[types.Operation]bool
}

// NewCoordinator returns a Coordinator with every operation idle.
func NewCoordinator() *Coordinator {
	return &Coordinator{running: make(map[types.Operation]bool)}
}

// Permit is held while an operation runs. Release it with defer.
type Permit struct {
	coord *Coordinator
	op    types.Operation
	once  sync.Once
}

// Acquire returns a permit for op, or ErrBusy when op is already held.
func (c *Coordinator) Acquire(op types.Operation) (*Permit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running[op] {
		return nil, fmt.Errorf("%w: %s", ErrBusy, op)
	}
	c.running[op] = true
	return &Permit{coord: c, op: op}, nil
}

// Operation returns the operation the permit guards.
func (p *Permit) Operation() types.Operation {
	return p.op
}

// Release frees the permit. Calling it more than once is harmless.
func (p *Permit) Release() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		p.coord.mu.Lock()
		delete(p.coord.running, p.op)
		p.coord.mu.Unlock()
	})
}

// Running reports whether op currently holds a permit.
func (c *Coordinator) Running(op types.Operation) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running[op]
}

// Status returns the state of every known operation.
func (c *Coordinator) Status() map[types.Operation]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[types.Operation]bool, len(types.AllOperations))
	for _, op := range types.AllOperations {
		out[op] = c.running[op]
	}
	return out
}
