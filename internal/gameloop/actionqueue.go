// Package gameloop runs the single authoritative tick loop: draining the
// action queue, resolving movement, broadcasting dirty players, pinging,
// and sampling telemetry, all on one goroutine.
package gameloop

import "sync"

// Action is a unit of work posted by an IO goroutine for the game-loop
// goroutine to execute with exclusive access to world state.
type Action func()

// ActionQueue is a mutex-protected FIFO of closures. IO goroutines push;
// the game loop drains by swapping the backing slice out under the lock,
// so the lock is held only for the swap, never while actions run.
type ActionQueue struct {
	mu      sync.Mutex
	pending []Action
}

// NewActionQueue constructs an empty queue.
func NewActionQueue() *ActionQueue {
	return &ActionQueue{}
}

// Push enqueues action. Safe to call from any goroutine.
func (q *ActionQueue) Push(action Action) {
	q.mu.Lock()
	q.pending = append(q.pending, action)
	q.mu.Unlock()
}

// DrainInto swaps out the pending slice and returns it; the queue is left
// empty. Intended to be called once per tick by the game-loop goroutine.
func (q *ActionQueue) DrainInto() []Action {
	q.mu.Lock()
	drained := q.pending
	q.pending = nil
	q.mu.Unlock()
	return drained
}
