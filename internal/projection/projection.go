// Package projection holds the UI-readable copy of the application state.
// The engine is the only writer; readers never block on it.
package projection

import (
	"sync"
	"sync/atomic"

	"github.com/matheus3301/dchat/internal/model"
)

// State is everything the UI renders.
type State struct {
	Shared      model.SharedState
	ChatList    model.ChatList
	MessageList model.MessageList
}

// Clone returns a deep copy.
func (s State) Clone() State {
	return State{
		Shared:      s.Shared.Clone(),
		ChatList:    s.ChatList.Clone(),
		MessageList: s.MessageList.Clone(),
	}
}

// Projection guards State with a reader/writer lock and keeps the last
// published copy for readers that lose the race against the writer.
type Projection struct {
	mu    sync.RWMutex
	state State
	last  atomic.Pointer[State]
}

// New returns an empty projection.
func New() *Projection {
	p := &Projection{state: State{Shared: model.SharedState{Accounts: map[uint32]model.Account{}}}}
	snap := p.state.Clone()
	p.last.Store(&snap)
	return p
}

// Update applies fn under the write lock and publishes the result.
func (p *Projection) Update(fn func(*State)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.state)
	snap := p.state.Clone()
	p.last.Store(&snap)
}

// Current returns a copy under a blocking read lock. Meant for the writer's
// own reads.
func (p *Projection) Current() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.Clone()
}

// Snapshot returns the current state if the read lock is free, otherwise
// the last published copy. It never blocks.
func (p *Projection) Snapshot() State {
	if p.mu.TryRLock() {
		defer p.mu.RUnlock()
		return p.state.Clone()
	}
	return p.last.Load().Clone()
}
