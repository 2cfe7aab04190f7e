package remote

import "sync"

// Gate serializes operations that share one connection. Whoever holds it
// owns the connection; everyone else is rejected with ErrBusy instead of
// queuing behind the caller's back.
type Gate struct {
	mu   sync.Mutex
	busy bool
}

// NewGate returns an idle gate.
func NewGate() *Gate {
	return &Gate{}
}

// Acquire claims the gate, or fails with ErrBusy when another operation
// holds it.
func (g *Gate) Acquire() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy {
		return ErrBusy
	}
	g.busy = true
	return nil
}

// Release returns the gate to idle.
func (g *Gate) Release() {
	g.mu.Lock()
	g.busy = false
	g.mu.Unlock()
}
