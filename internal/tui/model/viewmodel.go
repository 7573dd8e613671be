// Package model adapts the engine's projection and mailbox to the TUI: it
// coalesces repaint requests and turns command and login outcomes into
// flash messages.
package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/matheus3301/dchat/internal/bus"
	"github.com/matheus3301/dchat/internal/command"
	"github.com/matheus3301/dchat/internal/login"
	dmodel "github.com/matheus3301/dchat/internal/model"
	"github.com/matheus3301/dchat/internal/projection"
)

// Source is the read side of the projection.
type Source interface {
	Snapshot() projection.State
}

// Sender is the write side of the command mailbox.
type Sender interface {
	TrySend(cmd command.Command) error
}

// ViewModel is what the views read from and write to. It implements
// engine.Repainter.
type ViewModel struct {
	source Source
	sender Sender
	Flash  *Flash

	repaint chan struct{}

	// Last error already surfaced as a flash.
	errCount int
	errLast  string
}

// NewViewModel creates a view model. sender may be nil until the engine
// runs; sends then fail with command.ErrClosed.
func NewViewModel(src Source, sender Sender) *ViewModel {
	return &ViewModel{
		source:  src,
		sender:  sender,
		Flash:   NewFlash(),
		repaint: make(chan struct{}, 1),
	}
}

// SetSender replaces the mailbox commands are sent to.
func (vm *ViewModel) SetSender(s Sender) { vm.sender = s }

// RequestRepaint signals the UI loop. A pending signal absorbs further
// requests so the UI draws at most once per batch.
func (vm *ViewModel) RequestRepaint() {
	select {
	case vm.repaint <- struct{}{}:
	default:
	}
}

// Repaints delivers repaint signals.
func (vm *ViewModel) Repaints() <-chan struct{} {
	return vm.repaint
}

// State returns the latest projection snapshot. It never blocks on the
// engine.
func (vm *ViewModel) State() projection.State {
	return vm.source.Snapshot()
}

// Send queues cmd without blocking. A full or closed mailbox is reported
// as a flash and false.
func (vm *ViewModel) Send(cmd command.Command) bool {
	if vm.sender == nil {
		vm.Flash.Err(command.ErrClosed)
		return false
	}
	err := vm.sender.TrySend(cmd)
	switch {
	case err == nil:
		return true
	case errors.Is(err, command.ErrFull):
		vm.Flash.Warn("busy, try again")
	default:
		vm.Flash.Err(err)
	}
	vm.RequestRepaint()
	return false
}

// SurfaceErrors flashes the newest entry of the engine's error log if it
// has not been shown yet.
func (vm *ViewModel) SurfaceErrors(s projection.State) {
	errs := s.Shared.Errors
	if len(errs) == 0 {
		return
	}
	last := errs[len(errs)-1]
	if len(errs) == vm.errCount && last == vm.errLast {
		return
	}
	vm.errCount, vm.errLast = len(errs), last
	vm.Flash.Err(errors.New(last))
}

// WatchLogins flashes terminal login transitions published on b until ctx
// is done.
func (vm *ViewModel) WatchLogins(ctx context.Context, b *bus.Bus) {
	ch, unsub := b.Subscribe("login.", 16)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-ch:
			c, ok := evt.Payload.(login.Change)
			if !ok {
				continue
			}
			switch c.To.State {
			case dmodel.LoginSucceeded:
				vm.Flash.Info(fmt.Sprintf("account %d is online", c.Account))
			case dmodel.LoginFailed:
				vm.Flash.Warn(fmt.Sprintf("account %d: %s", c.Account, c.To.Reason))
			default:
				continue
			}
			vm.RequestRepaint()
		}
	}
}
