// Package engine is the synchronization engine: the only writer of the
// projection. It serializes UI commands and backend events and reconciles
// the projection by re-reading the backend.
package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/dchat/internal/backend"
	"github.com/matheus3301/dchat/internal/command"
	"github.com/matheus3301/dchat/internal/login"
	"github.com/matheus3301/dchat/internal/model"
	"github.com/matheus3301/dchat/internal/projection"
	"github.com/matheus3301/dchat/internal/translate"
	"go.uber.org/zap"
)

// ErrNoAccounts is returned by Init when the backend has no accounts.
var ErrNoAccounts = errors.New("no accounts configured")

// maxErrors bounds SharedState.Errors.
const maxErrors = 100

// Repainter is notified after every processed command or event.
type Repainter interface {
	RequestRepaint()
}

// RepaintFunc adapts a function to Repainter.
type RepaintFunc func()

func (f RepaintFunc) RequestRepaint() { f() }

// Deps are the collaborators of an Engine.
type Deps struct {
	Backend    backend.Backend
	Projection *projection.Projection
	Tracker    *login.Tracker
	Mailbox    *command.Mailbox
	Repainter  Repainter
	Logger     *zap.Logger
}

// Options tunes an Engine.
type Options struct {
	// QueueCapacity bounds the translated event queue.
	QueueCapacity int
	// ChatWindow and MessageWindow are the initial list windows; nil lets
	// the backend pick its default page.
	ChatWindow    model.Window
	MessageWindow model.Window
}

// Engine owns the event queue and the main loop.
type Engine struct {
	backend    backend.Backend
	projection *projection.Projection
	tracker    *login.Tracker
	mailbox    *command.Mailbox
	repainter  Repainter
	logger     *zap.Logger
	translator *translate.Translator

	opts          Options
	events        chan translate.Event
	chatWindow    model.Window
	messageWindow model.Window

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an engine. Missing optional dependencies get defaults.
func New(d Deps, opts Options) *Engine {
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = command.DefaultCapacity
	}
	if d.Projection == nil {
		d.Projection = projection.New()
	}
	if d.Tracker == nil {
		d.Tracker = login.NewTracker(nil)
	}
	if d.Mailbox == nil {
		d.Mailbox = command.NewMailbox(opts.QueueCapacity)
	}
	if d.Repainter == nil {
		d.Repainter = RepaintFunc(func() {})
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Engine{
		backend:       d.Backend,
		projection:    d.Projection,
		tracker:       d.Tracker,
		mailbox:       d.Mailbox,
		repainter:     d.Repainter,
		logger:        d.Logger,
		translator:    translate.New(d.Backend, d.Tracker, d.Logger),
		opts:          opts,
		events:        make(chan translate.Event, opts.QueueCapacity),
		chatWindow:    opts.ChatWindow,
		messageWindow: opts.MessageWindow,
	}
}

// Projection returns the projection written by this engine.
func (e *Engine) Projection() *projection.Projection { return e.projection }

// Mailbox returns the command mailbox read by this engine.
func (e *Engine) Mailbox() *command.Mailbox { return e.mailbox }

// Init loads the accounts, starts backend IO, subscribes to events and
// populates the projection. The event subscription lives as long as ctx.
func (e *Engine) Init(ctx context.Context) error {
	ids, err := e.backend.Accounts(ctx)
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}
	if len(ids) == 0 {
		return ErrNoAccounts
	}
	slices.Sort(ids)

	if err := e.backend.StartIO(ctx); err != nil {
		return fmt.Errorf("start io: %w", err)
	}

	raw, err := e.backend.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	go e.translator.Run(ctx, raw, e.events)

	if err := e.refreshProjection(ctx); err != nil {
		return err
	}

	if err := e.backend.SelectAccount(ctx, ids[0]); err != nil {
		return fmt.Errorf("select account %d: %w", ids[0], err)
	}
	if err := e.refreshProjection(ctx); err != nil {
		return err
	}
	if err := e.refreshChatList(ctx); err != nil {
		e.recordError("load chat list", err)
	}
	if _, ok := e.selectedChat(); ok {
		if err := e.refreshMessageList(ctx); err != nil {
			e.recordError("load message list", err)
		}
	}

	e.repainter.RequestRepaint()
	e.logger.Info("engine initialized", zap.Int("accounts", len(ids)), zap.Uint32("selected", ids[0]))
	return nil
}

// Run processes commands and events until ctx is done or the mailbox is
// closed. Each item is handled to completion before the next is taken.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd, ok := <-e.mailbox.Recv():
			if !ok {
				e.logger.Info("command mailbox closed, engine stopping")
				return nil
			}
			if err := e.handleCommand(ctx, cmd); err != nil {
				e.recordError(fmt.Sprintf("%T", cmd), err)
			}
		case ev := <-e.events:
			if err := e.handleEvent(ctx, ev); err != nil {
				e.recordError(fmt.Sprintf("%T", ev.Payload), err)
			}
		}
		e.repainter.RequestRepaint()
	}
}

// Start runs Init and then the main loop in a goroutine.
func (e *Engine) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	if err := e.Init(ctx); err != nil {
		cancel()
		return err
	}

	e.mu.Lock()
	e.cancel = cancel
	e.done = make(chan struct{})
	done := e.done
	e.mu.Unlock()

	go func() {
		defer close(done)
		_ = e.Run(ctx)
	}()
	return nil
}

// Stop ends the main loop and waits for it.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// recordError logs a handler failure and appends it to the projection's
// error log.
func (e *Engine) recordError(op string, err error) {
	e.logger.Warn("engine operation failed", zap.String("op", op), zap.Error(err))
	msg := err.Error()
	e.projection.Update(func(s *projection.State) {
		s.Shared.Errors = append(s.Shared.Errors, msg)
		if n := len(s.Shared.Errors); n > maxErrors {
			s.Shared.Errors = slices.Clone(s.Shared.Errors[n-maxErrors:])
		}
	})
}

func (e *Engine) selectedAccount() (uint32, bool) {
	s := e.projection.Current().Shared
	if s.SelectedAccount == nil {
		return 0, false
	}
	return *s.SelectedAccount, true
}

func (e *Engine) selectedChat() (uint32, bool) {
	s := e.projection.Current().Shared
	if s.SelectedChatID == nil {
		return 0, false
	}
	return *s.SelectedChatID, true
}
