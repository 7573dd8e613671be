package translate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matheus3301/dchat/internal/backend"
	"github.com/matheus3301/dchat/internal/login"
	"github.com/matheus3301/dchat/internal/model"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type fakeLookup struct {
	messages map[uint32]model.Message
	chats    map[uint32]string
}

func (f *fakeLookup) Message(_ context.Context, _, id uint32) (model.Message, error) {
	m, ok := f.messages[id]
	if !ok {
		return model.Message{}, errors.New("no such message")
	}
	return m, nil
}

func (f *fakeLookup) ChatName(_ context.Context, _, id uint32) (string, error) {
	n, ok := f.chats[id]
	if !ok {
		return "", errors.New("no such chat")
	}
	return n, nil
}

func newTranslator() (*Translator, *login.Tracker) {
	tracker := login.NewTracker(nil)
	lookup := &fakeLookup{
		messages: map[uint32]model.Message{
			7: {ID: 7, Text: "hello"},
			8: {ID: 8, Viewtype: model.ViewtypeImage},
		},
		chats: map[uint32]string{3: "Bob"},
	}
	return New(lookup, tracker, zap.NewNop()), tracker
}

func TestConfigureProgressMapping(t *testing.T) {
	tests := []struct {
		progress  int
		kind      ProgressKind
		step      int
		wantLogin model.Login
	}{
		{1, ProgressStep, 1, model.InProgress(1)},
		{500, ProgressStep, 500, model.InProgress(500)},
		{999, ProgressStep, 999, model.InProgress(999)},
		{1000, ProgressSuccess, 0, model.Succeeded()},
		{0, ProgressError, 0, model.Failed(login.ReasonLogin)},
	}
	for _, tt := range tests {
		tr, tracker := newTranslator()
		tracker.Begin(1)
		if tt.progress == 0 {
			// zero after a nonzero report
			_, _, _ = tr.Translate(context.Background(), backend.Event{Account: 1, Kind: backend.KindConfigureProgress, Progress: 100})
		}

		out, ok, err := tr.Translate(context.Background(), backend.Event{Account: 1, Kind: backend.KindConfigureProgress, Progress: tt.progress})
		if err != nil || !ok {
			t.Fatalf("progress %d: ok=%v err=%v", tt.progress, ok, err)
		}
		p, isConfigure := out.Payload.(ConfigureProgress)
		if !isConfigure {
			t.Fatalf("progress %d: payload %T", tt.progress, out.Payload)
		}
		if p.Progress.Kind != tt.kind || p.Progress.Step != tt.step {
			t.Errorf("progress %d: got %v", tt.progress, p.Progress)
		}
		if got, _ := tracker.Get(1); got != tt.wantLogin {
			t.Errorf("progress %d: login %v, want %v", tt.progress, got, tt.wantLogin)
		}
	}
}

func TestImexProgressUsesImportReason(t *testing.T) {
	tr, tracker := newTranslator()
	tracker.Begin(2)

	out, ok, _ := tr.Translate(context.Background(), backend.Event{Account: 2, Kind: backend.KindImexProgress, Progress: 0})
	if !ok {
		t.Fatal("imex progress dropped")
	}
	if _, isImex := out.Payload.(ImexProgress); !isImex || out.Account != 2 {
		t.Errorf("event = %+v", out)
	}
	if got, _ := tracker.Get(2); got != model.Failed(login.ReasonImport) {
		t.Errorf("login = %v", got)
	}
}

func TestProgressForUnknownAccountIsForwarded(t *testing.T) {
	tr, tracker := newTranslator()
	_, ok, err := tr.Translate(context.Background(), backend.Event{Account: 9, Kind: backend.KindConfigureProgress, Progress: 0})
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if _, exists := tracker.Get(9); exists {
		t.Error("progress recreated an unknown account")
	}
}

func TestConnectedSucceedsLogin(t *testing.T) {
	tr, tracker := newTranslator()
	tracker.Begin(1)
	_, _ = tracker.Progress(1, 300, login.ReasonLogin)

	for _, kind := range []backend.Kind{backend.KindImapConnected, backend.KindSmtpConnected} {
		out, ok, err := tr.Translate(context.Background(), backend.Event{Account: 1, Kind: kind})
		if err != nil || !ok {
			t.Fatalf("%s: ok=%v err=%v", kind, ok, err)
		}
		if _, isConnected := out.Payload.(Connected); !isConnected {
			t.Errorf("%s: payload %T", kind, out.Payload)
		}
	}
	if got, _ := tracker.Get(1); got.State != model.LoginSucceeded {
		t.Errorf("login = %v", got)
	}
}

func TestMessagesChangedKinds(t *testing.T) {
	tr, _ := newTranslator()
	kinds := []backend.Kind{
		backend.KindMsgDelivered, backend.KindMsgFailed, backend.KindMsgRead,
		backend.KindMsgsChanged, backend.KindMsgsNoticed, backend.KindChatModified,
	}
	for _, kind := range kinds {
		out, ok, err := tr.Translate(context.Background(), backend.Event{Account: 1, Kind: kind, ChatID: 12})
		if err != nil || !ok {
			t.Fatalf("%s: ok=%v err=%v", kind, ok, err)
		}
		if out.Payload != (MessagesChanged{ChatID: 12}) {
			t.Errorf("%s: payload %+v", kind, out.Payload)
		}
	}
}

func TestIncomingMessage(t *testing.T) {
	tr, _ := newTranslator()
	ctx := context.Background()

	out, ok, err := tr.Translate(ctx, backend.Event{Account: 1, Kind: backend.KindIncomingMsg, ChatID: 3, MsgID: 7})
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	want := MessageIncoming{ChatID: 3, Title: "Bob", Body: "hello"}
	if out.Payload != want {
		t.Errorf("payload = %+v, want %+v", out.Payload, want)
	}

	out, _, _ = tr.Translate(ctx, backend.Event{Account: 1, Kind: backend.KindIncomingMsg, ChatID: 3, MsgID: 8})
	if got := out.Payload.(MessageIncoming).Body; got != "[image]" {
		t.Errorf("attachment body = %q", got)
	}

	if _, ok, err := tr.Translate(ctx, backend.Event{Account: 1, Kind: backend.KindIncomingMsg, ChatID: 3, MsgID: 99}); err == nil || ok {
		t.Errorf("missing message: ok=%v err=%v", ok, err)
	}
}

func TestLogLevelsAndDrops(t *testing.T) {
	tr, _ := newTranslator()
	ctx := context.Background()
	levels := map[backend.Kind]zapcore.Level{
		backend.KindInfo:    zapcore.InfoLevel,
		backend.KindWarning: zapcore.WarnLevel,
		backend.KindError:   zapcore.ErrorLevel,
	}
	for kind, level := range levels {
		out, ok, _ := tr.Translate(ctx, backend.Event{Account: 1, Kind: kind, Text: "x"})
		if !ok || out.Payload != (Log{Level: level, Text: "x"}) {
			t.Errorf("%s: ok=%v payload=%+v", kind, ok, out.Payload)
		}
	}

	for _, kind := range []backend.Kind{backend.KindConnectivityChanged, "something_new"} {
		if _, ok, err := tr.Translate(ctx, backend.Event{Account: 1, Kind: kind}); ok || err != nil {
			t.Errorf("%s: ok=%v err=%v, want dropped", kind, ok, err)
		}
	}
}

func TestRunSkipsBadEventsAndStopsOnClose(t *testing.T) {
	tr, _ := newTranslator()
	in := make(chan backend.Event, 4)
	out := make(chan Event, 4)

	in <- backend.Event{Account: 1, Kind: backend.KindIncomingMsg, ChatID: 3, MsgID: 99}
	in <- backend.Event{Account: 1, Kind: backend.KindConnectivityChanged}
	in <- backend.Event{Account: 1, Kind: backend.KindMsgsChanged, ChatID: 4}
	close(in)

	done := make(chan struct{})
	go func() {
		tr.Run(context.Background(), in, out)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after input closed")
	}
	if len(out) != 1 {
		t.Fatalf("forwarded %d events, want 1", len(out))
	}
	if ev := <-out; ev.Payload != (MessagesChanged{ChatID: 4}) {
		t.Errorf("event = %+v", ev)
	}
}

func TestRunBlocksOnFullOutput(t *testing.T) {
	tr, _ := newTranslator()
	in := make(chan backend.Event, 2)
	out := make(chan Event)
	ctx, cancel := context.WithCancel(context.Background())

	in <- backend.Event{Account: 1, Kind: backend.KindMsgsChanged, ChatID: 1}
	done := make(chan struct{})
	go func() {
		tr.Run(ctx, in, out)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Run returned while the consumer was not reading")
	case <-time.After(50 * time.Millisecond):
	}
	if ev := <-out; ev.Payload != (MessagesChanged{ChatID: 1}) {
		t.Errorf("event = %+v", ev)
	}
	cancel()
	<-done
}
