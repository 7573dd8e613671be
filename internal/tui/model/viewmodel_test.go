package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matheus3301/dchat/internal/bus"
	"github.com/matheus3301/dchat/internal/command"
	"github.com/matheus3301/dchat/internal/login"
	dmodel "github.com/matheus3301/dchat/internal/model"
	"github.com/matheus3301/dchat/internal/projection"
)

type stubSender struct {
	err  error
	sent []command.Command
}

func (s *stubSender) TrySend(cmd command.Command) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, cmd)
	return nil
}

func TestRepaintsCoalesce(t *testing.T) {
	vm := NewViewModel(projection.New(), nil)
	for range 5 {
		vm.RequestRepaint()
	}
	<-vm.Repaints()
	select {
	case <-vm.Repaints():
		t.Fatal("second signal pending after a burst")
	default:
	}

	vm.RequestRepaint()
	select {
	case <-vm.Repaints():
	default:
		t.Fatal("request after drain was lost")
	}
}

func TestSend(t *testing.T) {
	s := &stubSender{}
	vm := NewViewModel(projection.New(), s)

	if !vm.Send(command.MaybeNetwork{}) || len(s.sent) != 1 {
		t.Fatalf("sent = %v", s.sent)
	}
	if vm.Flash.Current() != nil {
		t.Error("successful send flashed")
	}

	s.err = command.ErrFull
	if vm.Send(command.MaybeNetwork{}) {
		t.Fatal("Send succeeded on a full mailbox")
	}
	if m := vm.Flash.Current(); m == nil || m.Level != FlashWarn {
		t.Errorf("flash = %+v, want warning", m)
	}

	s.err = command.ErrClosed
	vm.Send(command.MaybeNetwork{})
	if m := vm.Flash.Current(); m == nil || m.Level != FlashErr {
		t.Errorf("flash = %+v, want error", m)
	}
}

func TestSendWithoutMailbox(t *testing.T) {
	vm := NewViewModel(projection.New(), nil)
	if vm.Send(command.MaybeNetwork{}) {
		t.Fatal("Send succeeded without a mailbox")
	}
	if m := vm.Flash.Current(); m == nil || m.Text != command.ErrClosed.Error() {
		t.Errorf("flash = %+v", m)
	}
}

func TestSurfaceErrors(t *testing.T) {
	vm := NewViewModel(projection.New(), nil)
	var s projection.State

	vm.SurfaceErrors(s)
	if vm.Flash.Current() != nil {
		t.Fatal("flash without errors")
	}

	s.Shared.Errors = []string{"first"}
	vm.SurfaceErrors(s)
	if m := vm.Flash.Current(); m == nil || m.Text != "first" {
		t.Fatalf("flash = %+v", m)
	}

	vm.Flash.Info("other")
	vm.SurfaceErrors(s)
	if m := vm.Flash.Current(); m.Text != "other" {
		t.Errorf("same error flashed twice: %+v", m)
	}

	s.Shared.Errors = append(s.Shared.Errors, "second")
	vm.SurfaceErrors(s)
	if m := vm.Flash.Current(); m.Text != "second" {
		t.Errorf("flash = %+v, want second", m)
	}
}

func TestFlashExpires(t *testing.T) {
	f := NewFlash()
	now := time.Unix(1000, 0)
	f.now = func() time.Time { return now }

	f.Err(errors.New("boom"))
	if m := f.Current(); m == nil || m.Level != FlashErr {
		t.Fatalf("flash = %+v", m)
	}
	now = now.Add(11 * time.Second)
	if m := f.Current(); m != nil {
		t.Errorf("expired flash still shown: %+v", m)
	}
}

func TestWatchLogins(t *testing.T) {
	b := bus.New()
	vm := NewViewModel(projection.New(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		vm.WatchLogins(ctx, b)
	}()

	tr := login.NewTracker(b)
	tr.Begin(7)
	// The subscription may not be registered yet; keep publishing until
	// the flash shows up.
	deadline := time.Now().Add(2 * time.Second)
	for vm.Flash.Current() == nil {
		if time.Now().After(deadline) {
			t.Fatal("no flash for the failed login")
		}
		tr.Seed(7, dmodel.InProgress(100))
		_ = tr.Transition(7, dmodel.Failed(login.ReasonLogin))
		time.Sleep(5 * time.Millisecond)
	}
	if m := vm.Flash.Current(); m.Level != FlashWarn {
		t.Errorf("flash = %+v", m)
	}

	cancel()
	<-done
}
