// Package local implements the messaging backend on a single SQLite store
// holding every account of a profile, with loopback delivery between them.
package local

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/dchat/internal/backend"
	"github.com/matheus3301/dchat/internal/bus"
	"github.com/matheus3301/dchat/internal/model"
	"github.com/matheus3301/dchat/internal/outbox"
)

const eventNamespace = "dc."

// Options tunes a Backend.
type Options struct {
	BlobDir        string
	OutboxInterval time.Duration
	ChatWindow     int
	MessageWindow  int
	EventBuffer    int
	Location       *time.Location
}

func (o *Options) setDefaults() {
	if o.ChatWindow <= 0 {
		o.ChatWindow = 100
	}
	if o.MessageWindow <= 0 {
		o.MessageWindow = 200
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = 1000
	}
	if o.Location == nil {
		o.Location = time.Local
	}
}

// Backend is the local implementation of backend.Backend.
type Backend struct {
	db      *DB
	bus     *bus.Bus
	secrets SecretStore
	sender  *outbox.Sender
	logger  *zap.Logger
	opts    Options

	ctx    context.Context
	cancel context.CancelFunc
	closed chan struct{}
	once   sync.Once

	mu        sync.Mutex
	ioRunning bool
}

var (
	_ backend.Backend  = (*Backend)(nil)
	_ backend.Operator = (*Backend)(nil)
)

// New creates a backend over a migrated store.
func New(db *DB, b *bus.Bus, secrets SecretStore, logger *zap.Logger, opts Options) *Backend {
	opts.setDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	be := &Backend{
		db:      db,
		bus:     b,
		secrets: secrets,
		logger:  logger,
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
		closed:  make(chan struct{}),
	}
	be.sender = outbox.NewSender(outboxQueue{be}, loopback{be}, b, opts.OutboxInterval, logger.Named("outbox"))
	return be
}

// Close stops IO and ends all event subscriptions. The store stays open.
func (b *Backend) Close() error {
	b.once.Do(func() {
		b.sender.Stop()
		b.cancel()
		close(b.closed)
	})
	return nil
}

func (b *Backend) emit(ev backend.Event) {
	b.bus.Publish(bus.NewEvent(eventNamespace+string(ev.Kind), ev))
}

func (b *Backend) emitError(account uint32, err error) {
	b.emit(backend.Event{Account: account, Kind: backend.KindError, Text: err.Error()})
}

// Subscribe streams raw events until ctx is done or the backend closes.
// A slow consumer blocks the emitters rather than losing events.
func (b *Backend) Subscribe(ctx context.Context) (<-chan backend.Event, error) {
	select {
	case <-b.closed:
		return nil, errors.New("backend closed")
	default:
	}
	in, unsub := b.bus.SubscribeBlocking(eventNamespace, b.opts.EventBuffer)
	out := make(chan backend.Event)
	go func() {
		defer close(out)
		defer unsub()
		for {
			select {
			case <-ctx.Done():
				return
			case <-b.closed:
				return
			case evt := <-in:
				ev, ok := evt.Payload.(backend.Event)
				if !ok {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				case <-b.closed:
					return
				}
			}
		}
	}()
	return out, nil
}

func (b *Backend) Accounts(ctx context.Context) ([]uint32, error) {
	return accountIDs(ctx, b.db)
}

// AddAccount creates an unconfigured account. It becomes the selected
// account only when none is selected yet.
func (b *Backend) AddAccount(ctx context.Context) (uint32, error) {
	var id uint32
	err := b.db.InTx(ctx, func(q querier) error {
		var err error
		if id, err = insertAccount(ctx, q); err != nil {
			return err
		}
		if _, ok, err := selectedAccount(ctx, q); err != nil || ok {
			return err
		}
		return setSelectedAccount(ctx, q, id)
	})
	if err != nil {
		return 0, fmt.Errorf("add account: %w", err)
	}
	b.logger.Info("account added", zap.Uint32("account", id))
	return id, nil
}

// RemoveAccount deletes an account with all its data and secret. Selection
// moves to the lowest remaining account.
func (b *Backend) RemoveAccount(ctx context.Context, id uint32) error {
	err := b.db.InTx(ctx, func(q querier) error {
		if err := deleteAccount(ctx, q, id); err != nil {
			return err
		}
		sel, ok, err := selectedAccount(ctx, q)
		if err != nil || (ok && sel != id) {
			return err
		}
		ids, err := accountIDs(ctx, q)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return deleteSetting(ctx, q, settingSelectedAccount)
		}
		return setSelectedAccount(ctx, q, ids[0])
	})
	if err != nil {
		return fmt.Errorf("remove account %d: %w", id, err)
	}
	if err := b.secrets.Delete(id); err != nil {
		b.logger.Warn("failed to delete account secret", zap.Uint32("account", id), zap.Error(err))
	}
	b.logger.Info("account removed", zap.Uint32("account", id))
	return nil
}

func (b *Backend) SelectAccount(ctx context.Context, id uint32) error {
	if _, err := getAccount(ctx, b.db, id); err != nil {
		return err
	}
	return setSelectedAccount(ctx, b.db, id)
}

// SelectedAccount returns the selected account if it still exists.
func (b *Backend) SelectedAccount(ctx context.Context) (uint32, bool, error) {
	id, ok, err := selectedAccount(ctx, b.db)
	if err != nil || !ok {
		return 0, false, err
	}
	if _, err := getAccount(ctx, b.db, id); errors.Is(err, ErrNotFound) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (b *Backend) AccountInfo(ctx context.Context, id uint32) (model.AccountInfo, error) {
	acc, err := getAccount(ctx, b.db, id)
	if err != nil {
		return model.AccountInfo{}, err
	}
	info := model.AccountInfo{
		ID:           acc.ID,
		Email:        acc.Addr,
		DisplayName:  acc.DisplayName,
		ProfileImage: acc.ProfileImage,
		Configured:   acc.Configured,
	}
	if acc.SelectedChatID == 0 {
		return info, nil
	}
	c, err := getChat(ctx, b.db, id, acc.SelectedChatID)
	if errors.Is(err, ErrNotFound) {
		return info, nil
	}
	if err != nil {
		return info, err
	}
	summary, err := chatSummary(ctx, b.db, acc, c, nil)
	if err != nil {
		return info, err
	}
	info.SelectedChatID = c.ID
	info.SelectedChat = &summary
	return info, nil
}

// StartIO starts outbox delivery and announces connectivity of configured
// accounts.
func (b *Backend) StartIO(ctx context.Context) error {
	b.mu.Lock()
	already := b.ioRunning
	b.ioRunning = true
	b.mu.Unlock()
	if already {
		return nil
	}

	if n, err := requeueStale(ctx, b.db); err != nil {
		return fmt.Errorf("requeue outbox: %w", err)
	} else if n > 0 {
		b.logger.Info("requeued interrupted deliveries", zap.Int64("count", n))
	}
	b.sender.Start(b.ctx)
	return b.announce(ctx)
}

func (b *Backend) io() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ioRunning
}

func (b *Backend) announce(ctx context.Context) error {
	ids, err := accountIDs(ctx, b.db)
	if err != nil {
		return err
	}
	for _, id := range ids {
		acc, err := getAccount(ctx, b.db, id)
		if err != nil {
			return err
		}
		if acc.Configured {
			b.announceAccount(id)
		}
	}
	return nil
}

func (b *Backend) announceAccount(id uint32) {
	b.emit(backend.Event{Account: id, Kind: backend.KindImapConnected, Text: "loopback inbox ready"})
	b.emit(backend.Event{Account: id, Kind: backend.KindSmtpConnected, Text: "loopback transport ready"})
}

// MaybeNetwork re-announces connectivity and flushes the outbox.
func (b *Backend) MaybeNetwork(ctx context.Context) error {
	ids, err := accountIDs(ctx, b.db)
	if err != nil {
		return err
	}
	for _, id := range ids {
		b.emit(backend.Event{Account: id, Kind: backend.KindConnectivityChanged})
	}
	if !b.io() {
		return nil
	}
	b.sender.Wake()
	return b.announce(ctx)
}

// ChatList returns a window over the visible chats of account.
func (b *Backend) ChatList(ctx context.Context, account uint32, window model.Window) (model.ChatList, error) {
	acc, err := getAccount(ctx, b.db, account)
	if err != nil {
		return model.ChatList{}, err
	}
	chats, err := listChats(ctx, b.db, account)
	if err != nil {
		return model.ChatList{}, fmt.Errorf("list chats: %w", err)
	}
	r := windowRange(window, len(chats), b.opts.ChatWindow, false)
	list := model.ChatList{Range: r, Len: len(chats), Chats: make([]model.ChatSummary, 0, r.Len())}
	for i := r.Start; i < r.End; i++ {
		idx := i
		s, err := chatSummary(ctx, b.db, acc, chats[i], &idx)
		if err != nil {
			return model.ChatList{}, err
		}
		list.Chats = append(list.Chats, s)
	}
	return list, nil
}

// MessageList returns a window over the selected chat of account. Without
// a selected chat the list is empty.
func (b *Backend) MessageList(ctx context.Context, account uint32, window model.Window) (model.MessageList, error) {
	acc, err := getAccount(ctx, b.db, account)
	if err != nil {
		return model.MessageList{}, err
	}
	if acc.SelectedChatID == 0 {
		return model.MessageList{}, nil
	}
	stubs, err := chatIndex(ctx, b.db, acc.SelectedChatID)
	if err != nil {
		return model.MessageList{}, fmt.Errorf("chat index: %w", err)
	}
	idx := buildIndex(stubs, b.opts.Location)
	r := windowRange(window, len(idx), b.opts.MessageWindow, true)

	list := model.MessageList{
		ChatID:   acc.SelectedChatID,
		Range:    r,
		Items:    make([]model.ChatItem, len(idx)),
		Messages: make([]model.ChatMessage, 0, r.Len()),
	}
	ids := make([]uint32, 0, r.Len())
	for i, e := range idx {
		list.Items[i] = e.item
		if i >= r.Start && i < r.End && e.stub != nil {
			ids = append(ids, e.stub.ID)
		}
	}
	rows, err := messagesByID(ctx, b.db, ids)
	if err != nil {
		return model.MessageList{}, fmt.Errorf("load messages: %w", err)
	}

	snd := newSender(acc)
	for i := r.Start; i < r.End; i++ {
		e := idx[i]
		if e.stub == nil {
			list.Messages = append(list.Messages, model.ChatMessage{DayMarker: e.item.DayMarker})
			continue
		}
		msg, err := loadMessage(ctx, b.db, snd, rows[e.stub.ID])
		if err != nil {
			return model.MessageList{}, fmt.Errorf("message %d: %w", e.stub.ID, err)
		}
		msg.IsFirst = firstInGroup(idx, i)
		list.Messages = append(list.Messages, model.ChatMessage{Message: &msg})
	}
	return list, nil
}

func (b *Backend) Message(ctx context.Context, account, msgID uint32) (model.Message, error) {
	acc, err := getAccount(ctx, b.db, account)
	if err != nil {
		return model.Message{}, err
	}
	row, err := getMessage(ctx, b.db, account, msgID)
	if err != nil {
		return model.Message{}, err
	}
	return loadMessage(ctx, b.db, newSender(acc), row)
}

func (b *Backend) ChatName(ctx context.Context, account, chatID uint32) (string, error) {
	c, err := getChat(ctx, b.db, account, chatID)
	if err != nil {
		return "", err
	}
	return chatDisplayName(c), nil
}
