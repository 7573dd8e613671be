package translate

import (
	"context"
	"errors"
	"fmt"

	"github.com/matheus3301/dchat/internal/backend"
	"github.com/matheus3301/dchat/internal/login"
	"github.com/matheus3301/dchat/internal/model"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Lookup is the part of the backend needed to describe incoming messages.
type Lookup interface {
	Message(ctx context.Context, account, msgID uint32) (model.Message, error)
	ChatName(ctx context.Context, account, chatID uint32) (string, error)
}

// Translator maps raw backend events to engine events. It is the only writer
// of login progress.
type Translator struct {
	lookup  Lookup
	tracker *login.Tracker
	logger  *zap.Logger
}

// New creates a translator.
func New(lookup Lookup, tracker *login.Tracker, logger *zap.Logger) *Translator {
	return &Translator{
		lookup:  lookup,
		tracker: tracker,
		logger:  logger,
	}
}

// Translate maps one raw event. ok is false when the event is dropped.
func (t *Translator) Translate(ctx context.Context, ev backend.Event) (out Event, ok bool, err error) {
	out.Account = ev.Account

	switch ev.Kind {
	case backend.KindConfigureProgress:
		t.progress(ev, login.ReasonLogin)
		out.Payload = ConfigureProgress{Progress: progressOf(ev.Progress)}

	case backend.KindImexProgress:
		t.progress(ev, login.ReasonImport)
		out.Payload = ImexProgress{Progress: progressOf(ev.Progress)}

	case backend.KindImapConnected, backend.KindSmtpConnected:
		t.transition(ev.Account, model.Succeeded())
		out.Payload = Connected{}

	case backend.KindMsgDelivered, backend.KindMsgFailed, backend.KindMsgRead,
		backend.KindMsgsChanged, backend.KindMsgsNoticed, backend.KindChatModified:
		out.Payload = MessagesChanged{ChatID: ev.ChatID}

	case backend.KindIncomingMsg:
		msg, err := t.lookup.Message(ctx, ev.Account, ev.MsgID)
		if err != nil {
			return Event{}, false, fmt.Errorf("load incoming message %d: %w", ev.MsgID, err)
		}
		title, err := t.lookup.ChatName(ctx, ev.Account, ev.ChatID)
		if err != nil {
			return Event{}, false, fmt.Errorf("load chat name %d: %w", ev.ChatID, err)
		}
		out.Payload = MessageIncoming{ChatID: ev.ChatID, Title: title, Body: body(msg)}

	case backend.KindInfo:
		out.Payload = Log{Level: zapcore.InfoLevel, Text: ev.Text}
	case backend.KindWarning:
		out.Payload = Log{Level: zapcore.WarnLevel, Text: ev.Text}
	case backend.KindError:
		out.Payload = Log{Level: zapcore.ErrorLevel, Text: ev.Text}

	case backend.KindConnectivityChanged:
		return Event{}, false, nil

	default:
		t.logger.Debug("unhandled backend event", zap.String("kind", string(ev.Kind)), zap.Uint32("account", ev.Account))
		return Event{}, false, nil
	}
	return out, true, nil
}

// Run translates events from in and forwards them to out until in is
// closed or ctx is done. Sends to out block, so a slow engine slows the
// backend stream down instead of losing events.
func (t *Translator) Run(ctx context.Context, in <-chan backend.Event, out chan<- Event) {
	for {
		var ev backend.Event
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-in:
			if !ok {
				t.logger.Info("backend event stream closed")
				return
			}
			ev = raw
		}

		translated, ok, err := t.Translate(ctx, ev)
		if err != nil {
			t.logger.Warn("failed to translate event", zap.Stringer("event", ev), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		select {
		case out <- translated:
		case <-ctx.Done():
			return
		}
	}
}

func (t *Translator) progress(ev backend.Event, reason string) {
	l, err := t.tracker.Progress(ev.Account, ev.Progress, reason)
	if err != nil {
		t.logLoginError(ev.Account, err)
		return
	}
	t.logger.Debug("login progress", zap.Uint32("account", ev.Account), zap.Stringer("login", l))
}

func (t *Translator) transition(id uint32, to model.Login) {
	if err := t.tracker.Transition(id, to); err != nil {
		t.logLoginError(id, err)
	}
}

func (t *Translator) logLoginError(id uint32, err error) {
	// Late events for accounts removed after a failed login are expected.
	if errors.Is(err, login.ErrUnknownAccount) {
		t.logger.Debug("login update for unknown account", zap.Uint32("account", id))
		return
	}
	t.logger.Warn("login update rejected", zap.Uint32("account", id), zap.Error(err))
}

func body(m model.Message) string {
	if m.Text != "" {
		return m.Text
	}
	if m.Viewtype.HasFile() {
		return "[" + m.Viewtype.String() + "]"
	}
	return ""
}
