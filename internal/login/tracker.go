package login

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/matheus3301/dchat/internal/bus"
	"github.com/matheus3301/dchat/internal/model"
)

// Failure reasons recorded when progress drops to zero.
const (
	ReasonLogin  = "failed to login"
	ReasonImport = "failed to import"
)

// validTransitions defines allowed login state transitions. Terminal states
// have no outgoing edges; only Remove clears them.
var validTransitions = map[model.LoginState][]model.LoginState{
	model.LoginNotStarted: {model.LoginInProgress, model.LoginSucceeded, model.LoginFailed},
	model.LoginInProgress: {model.LoginInProgress, model.LoginSucceeded, model.LoginFailed},
	model.LoginSucceeded:  {},
	model.LoginFailed:     {},
}

// FromProgress maps a configure/import progress value to a Login state.
func FromProgress(p int, reason string) model.Login {
	switch {
	case p <= 0:
		return model.Failed(reason)
	case p >= model.ProgressDone:
		return model.Succeeded()
	default:
		return model.InProgress(p)
	}
}

// ErrUnknownAccount is returned for accounts that were never registered or
// have been removed.
var ErrUnknownAccount = errors.New("unknown account")

// Change is the payload for login change events.
type Change struct {
	Account uint32
	From    model.Login
	To      model.Login
}

// Tracker holds the Login state of every known account and enforces the
// transition table.
type Tracker struct {
	mu     sync.RWMutex
	logins map[uint32]model.Login
	bus    *bus.Bus
}

// NewTracker creates an empty tracker. b may be nil.
func NewTracker(b *bus.Bus) *Tracker {
	return &Tracker{
		logins: make(map[uint32]model.Login),
		bus:    b,
	}
}

// Seed sets the state of an account unconditionally. Used when adopting
// accounts that already exist in the backend.
func (t *Tracker) Seed(id uint32, l model.Login) {
	t.mu.Lock()
	t.logins[id] = l
	t.mu.Unlock()
}

// Begin registers a new account in NotStarted.
func (t *Tracker) Begin(id uint32) {
	t.Seed(id, model.NotStarted())
}

// Get returns the state of an account.
func (t *Tracker) Get(id uint32) (model.Login, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	l, ok := t.logins[id]
	return l, ok
}

// Transition moves an account to a new state. Re-entering the current
// terminal state is a no-op.
func (t *Tracker) Transition(id uint32, to model.Login) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	from, ok := t.logins[id]
	if !ok {
		return fmt.Errorf("account %d: %w", id, ErrUnknownAccount)
	}
	if from.Terminal() && from.State == to.State {
		return nil
	}
	if !slices.Contains(validTransitions[from.State], to.State) {
		return fmt.Errorf("account %d: invalid login transition from %s to %s", id, from.State, to.State)
	}
	t.logins[id] = to
	if t.bus != nil {
		t.bus.Publish(bus.NewEvent("login.changed", Change{Account: id, From: from, To: to}))
	}
	return nil
}

// Progress applies a progress report and returns the resulting state.
func (t *Tracker) Progress(id uint32, p int, reason string) (model.Login, error) {
	to := FromProgress(p, reason)
	if err := t.Transition(id, to); err != nil {
		return model.Login{}, err
	}
	return to, nil
}

// Remove forgets an account.
func (t *Tracker) Remove(id uint32) {
	t.mu.Lock()
	delete(t.logins, id)
	t.mu.Unlock()
}

// Snapshot returns a copy of all tracked states.
func (t *Tracker) Snapshot() map[uint32]model.Login {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return maps.Clone(t.logins)
}
