package outbox

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/dchat/internal/bus"
)

// Entry is one queued outgoing message.
type Entry struct {
	ID        int64
	Account   uint32
	ChatID    uint32
	MsgID     uint32
	Recipient string
	MessageID string
	Attempts  int
}

// Queue is the persistent side of the outbox.
type Queue interface {
	Pending(ctx context.Context) ([]Entry, error)
	MarkSending(ctx context.Context, e Entry) error
	MarkSent(ctx context.Context, e Entry) error
	MarkFailed(ctx context.Context, e Entry, reason string) error
}

// Transport delivers a single entry to its recipient.
type Transport interface {
	Deliver(ctx context.Context, e Entry) error
}

// Sender drains the outbox through a transport.
type Sender struct {
	queue     Queue
	transport Transport
	bus       *bus.Bus
	logger    *zap.Logger
	interval  time.Duration
	wake      chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSender creates a new outbox sender polling every interval.
func NewSender(q Queue, t Transport, b *bus.Bus, interval time.Duration, logger *zap.Logger) *Sender {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Sender{
		queue:     q,
		transport: t,
		bus:       b,
		logger:    logger,
		interval:  interval,
		wake:      make(chan struct{}, 1),
	}
}

// Start begins polling the outbox. Calling Start on a running sender is a no-op.
func (s *Sender) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
}

// Stop stops the sender loop and waits for it to exit.
func (s *Sender) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Running reports whether the loop is active.
func (s *Sender) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Wake triggers a pass without waiting for the next tick.
func (s *Sender) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Sender) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.ProcessPending(ctx)
	for {
		select {
		case <-ticker.C:
			s.ProcessPending(ctx)
		case <-s.wake:
			s.ProcessPending(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// ProcessPending delivers every queued entry once.
func (s *Sender) ProcessPending(ctx context.Context) {
	pending, err := s.queue.Pending(ctx)
	if err != nil {
		s.logger.Error("failed to read outbox", zap.Error(err))
		return
	}

	for _, entry := range pending {
		if ctx.Err() != nil {
			return
		}
		log := s.logger.With(zap.Int64("outbox_id", entry.ID), zap.Uint32("account", entry.Account), zap.Uint32("msg_id", entry.MsgID))

		if err := s.queue.MarkSending(ctx, entry); err != nil {
			log.Error("failed to mark sending", zap.Error(err))
			continue
		}

		if err := s.transport.Deliver(ctx, entry); err != nil {
			log.Warn("delivery failed", zap.Error(err), zap.String("recipient", entry.Recipient))
			if err := s.queue.MarkFailed(ctx, entry, err.Error()); err != nil {
				log.Error("failed to mark failed", zap.Error(err))
			}
			s.publish("outbox.failed", entry)
			continue
		}

		if err := s.queue.MarkSent(ctx, entry); err != nil {
			log.Error("failed to mark sent", zap.Error(err))
			continue
		}
		log.Info("message delivered", zap.String("recipient", entry.Recipient))
		s.publish("outbox.sent", entry)
	}
}

func (s *Sender) publish(kind string, e Entry) {
	if s.bus != nil {
		s.bus.Publish(bus.NewEvent(kind, e))
	}
}
