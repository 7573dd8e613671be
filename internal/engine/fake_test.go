package engine

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/matheus3301/dchat/internal/backend"
	"github.com/matheus3301/dchat/internal/model"
)

var errBadPassword = errors.New("bad password")

type fakeAccount struct {
	email      string
	configured bool
	chats      []uint32
	selected   uint32
	pinned     map[uint32]bool
	previews   map[uint32]string
}

// fakeBackend is an in-memory backend.Backend that counts calls.
type fakeBackend struct {
	mu       sync.Mutex
	calls    map[string]int
	accounts map[uint32]*fakeAccount
	nextID   uint32
	selected uint32
	events   chan backend.Event
	sent     []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		calls:    make(map[string]int),
		accounts: make(map[uint32]*fakeAccount),
		nextID:   1,
		events:   make(chan backend.Event, 100),
	}
}

// addConfigured creates a configured account with the given chats.
func (f *fakeBackend) addConfigured(email string, chats ...uint32) uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.accounts[id] = &fakeAccount{email: email, configured: true, chats: chats, pinned: map[uint32]bool{}}
	return id
}

func (f *fakeBackend) count(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeBackend) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeBackend) resetCalls() {
	f.mu.Lock()
	clear(f.calls)
	f.mu.Unlock()
}

func (f *fakeBackend) emit(ev backend.Event) { f.events <- ev }

func (f *fakeBackend) setPreview(id, chat uint32, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.accounts[id]
	if a.previews == nil {
		a.previews = map[uint32]string{}
	}
	a.previews[chat] = text
}

func (f *fakeBackend) selectedID() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.selected
}

func (f *fakeBackend) account(id uint32) (*fakeAccount, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %d: not found", id)
	}
	return a, nil
}

func (f *fakeBackend) Accounts(context.Context) ([]uint32, error) {
	f.count("Accounts")
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Sorted(maps.Keys(f.accounts)), nil
}

func (f *fakeBackend) AddAccount(context.Context) (uint32, error) {
	f.count("AddAccount")
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.accounts[id] = &fakeAccount{pinned: map[uint32]bool{}}
	if f.selected == 0 {
		f.selected = id
	}
	return id, nil
}

func (f *fakeBackend) Login(_ context.Context, id uint32, email, password string) error {
	f.count("Login")
	f.emit(backend.Event{Account: id, Kind: backend.KindConfigureProgress, Progress: 100})
	if password == "bad" {
		f.emit(backend.Event{Account: id, Kind: backend.KindConfigureProgress, Progress: 0})
		return errBadPassword
	}
	f.mu.Lock()
	a, err := f.account(id)
	if err == nil {
		a.email = email
		a.configured = true
		a.chats = []uint32{id * 100}
	}
	f.mu.Unlock()
	f.emit(backend.Event{Account: id, Kind: backend.KindConfigureProgress, Progress: 1000})
	return err
}

func (f *fakeBackend) Import(_ context.Context, id uint32, path string) error {
	f.count("Import")
	if path == "" {
		f.emit(backend.Event{Account: id, Kind: backend.KindImexProgress, Progress: 0})
		return errors.New("no backup file")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, err := f.account(id)
	if err != nil {
		return err
	}
	a.email = "imported@example.org"
	a.configured = true
	return nil
}

func (f *fakeBackend) RemoveAccount(_ context.Context, id uint32) error {
	f.count("RemoveAccount")
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.accounts, id)
	if f.selected == id {
		f.selected = 0
		if ids := slices.Sorted(maps.Keys(f.accounts)); len(ids) > 0 {
			f.selected = ids[0]
		}
	}
	return nil
}

func (f *fakeBackend) SelectAccount(_ context.Context, id uint32) error {
	f.count("SelectAccount")
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.account(id); err != nil {
		return err
	}
	f.selected = id
	return nil
}

func (f *fakeBackend) SelectedAccount(context.Context) (uint32, bool, error) {
	f.count("SelectedAccount")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.selected, f.selected != 0, nil
}

func (f *fakeBackend) AccountInfo(_ context.Context, id uint32) (model.AccountInfo, error) {
	f.count("AccountInfo")
	f.mu.Lock()
	defer f.mu.Unlock()
	a, err := f.account(id)
	if err != nil {
		return model.AccountInfo{}, err
	}
	info := model.AccountInfo{ID: id, Email: a.email, Configured: a.configured, SelectedChatID: a.selected}
	if a.selected != 0 {
		info.SelectedChat = &model.ChatSummary{ID: a.selected, Name: chatName(a.selected)}
	}
	return info, nil
}

func (f *fakeBackend) StartIO(context.Context) error {
	f.count("StartIO")
	return nil
}

func (f *fakeBackend) MaybeNetwork(context.Context) error {
	f.count("MaybeNetwork")
	return nil
}

func (f *fakeBackend) ChatList(_ context.Context, id uint32, w model.Window) (model.ChatList, error) {
	f.count("ChatList")
	f.mu.Lock()
	defer f.mu.Unlock()
	a, err := f.account(id)
	if err != nil {
		return model.ChatList{}, err
	}
	r := model.Range{Start: 0, End: len(a.chats)}
	if w != nil {
		r = w.Clamp(len(a.chats))
	}
	list := model.ChatList{Range: r, Len: len(a.chats)}
	for i, c := range a.chats[r.Start:r.End] {
		index := r.Start + i
		list.Chats = append(list.Chats, model.ChatSummary{
			Index:    &index,
			ID:       c,
			Name:     chatName(c),
			Preview:  a.previews[c],
			IsPinned: a.pinned[c],
		})
	}
	return list, nil
}

func (f *fakeBackend) MessageList(_ context.Context, id uint32, _ model.Window) (model.MessageList, error) {
	f.count("MessageList")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messageList(id)
}

func (f *fakeBackend) messageList(id uint32) (model.MessageList, error) {
	a, err := f.account(id)
	if err != nil {
		return model.MessageList{}, err
	}
	if a.selected == 0 {
		return model.MessageList{}, nil
	}
	msg := &model.Message{ID: a.selected + 1, ChatID: a.selected, Text: "hello from " + chatName(a.selected)}
	return model.MessageList{
		ChatID:   a.selected,
		Range:    model.Range{Start: 0, End: 1},
		Items:    []model.ChatItem{{MsgID: msg.ID}},
		Messages: []model.ChatMessage{{Message: msg}},
	}, nil
}

func (f *fakeBackend) SelectChat(_ context.Context, id, chat uint32) (model.MessageList, error) {
	f.count("SelectChat")
	f.mu.Lock()
	defer f.mu.Unlock()
	a, err := f.account(id)
	if err != nil {
		return model.MessageList{}, err
	}
	if !slices.Contains(a.chats, chat) {
		return model.MessageList{}, fmt.Errorf("chat %d: not found", chat)
	}
	a.selected = chat
	return f.messageList(id)
}

func (f *fakeBackend) setPinned(name string, id, chat uint32, pinned bool) (model.MessageList, error) {
	f.count(name)
	f.mu.Lock()
	defer f.mu.Unlock()
	a, err := f.account(id)
	if err != nil {
		return model.MessageList{}, err
	}
	a.pinned[chat] = pinned
	return f.messageList(id)
}

func (f *fakeBackend) PinChat(_ context.Context, id, chat uint32) (model.MessageList, error) {
	return f.setPinned("PinChat", id, chat, true)
}

func (f *fakeBackend) UnpinChat(_ context.Context, id, chat uint32) (model.MessageList, error) {
	return f.setPinned("UnpinChat", id, chat, false)
}

func (f *fakeBackend) ArchiveChat(_ context.Context, id, _ uint32) (model.MessageList, error) {
	f.count("ArchiveChat")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messageList(id)
}

func (f *fakeBackend) UnarchiveChat(_ context.Context, id, _ uint32) (model.MessageList, error) {
	f.count("UnarchiveChat")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messageList(id)
}

func (f *fakeBackend) AcceptContactRequest(_ context.Context, id, _ uint32) (model.MessageList, error) {
	f.count("AcceptContactRequest")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messageList(id)
}

func (f *fakeBackend) BlockContact(_ context.Context, id, chat uint32) (model.MessageList, error) {
	f.count("BlockContact")
	f.mu.Lock()
	defer f.mu.Unlock()
	a, err := f.account(id)
	if err != nil {
		return model.MessageList{}, err
	}
	a.chats = slices.DeleteFunc(a.chats, func(c uint32) bool { return c == chat })
	if a.selected == chat {
		a.selected = 0
	}
	return f.messageList(id)
}

func (f *fakeBackend) SendTextMessage(_ context.Context, id, chat uint32, text string) error {
	f.count("SendTextMessage")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, fmt.Sprintf("%d/%d:%s", id, chat, text))
	return nil
}

func (f *fakeBackend) SendFileMessage(_ context.Context, id, chat uint32, file backend.FileMessage) error {
	f.count("SendFileMessage")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, fmt.Sprintf("%d/%d:file:%s", id, chat, file.Path))
	return nil
}

func (f *fakeBackend) Message(_ context.Context, _, msgID uint32) (model.Message, error) {
	f.count("Message")
	return model.Message{ID: msgID, Text: "incoming"}, nil
}

func (f *fakeBackend) ChatName(_ context.Context, _, chatID uint32) (string, error) {
	f.count("ChatName")
	return chatName(chatID), nil
}

func (f *fakeBackend) Subscribe(context.Context) (<-chan backend.Event, error) {
	f.count("Subscribe")
	return f.events, nil
}

func (f *fakeBackend) sentMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.sent)
}

func chatName(id uint32) string { return fmt.Sprintf("chat-%d", id) }
