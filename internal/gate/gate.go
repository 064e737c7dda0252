// Package gate bounds the number of concurrent synthesis calls.
package gate

import "context"

// Gate is a counting semaphore with a fixed ceiling. Waiters blocked in
// Acquire are admitted in FIFO order: the runtime wakes goroutines parked on
// a channel send in arrival order.
type Gate struct {
	slots chan struct{}
}

// New returns a Gate admitting at most ceiling concurrent holders.
// A ceiling below 1 is treated as 1.
func New(ceiling int) *Gate {
	if ceiling < 1 {
		ceiling = 1
	}
	return &Gate{slots: make(chan struct{}, ceiling)}
}

// Acquire blocks until a slot is free or ctx is cancelled. On success the
// caller must Release exactly once.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot to the pool.
func (g *Gate) Release() {
	<-g.slots
}

// InUse reports how many slots are currently held.
func (g *Gate) InUse() int {
	return len(g.slots)
}

// Ceiling reports the configured concurrency limit.
func (g *Gate) Ceiling() int {
	return cap(g.slots)
}
