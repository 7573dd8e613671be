package local

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/zalando/go-keyring"
	"go.uber.org/zap"

	"github.com/matheus3301/dchat/internal/backend"
	"github.com/matheus3301/dchat/internal/bus"
	"github.com/matheus3301/dchat/internal/model"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testBackend(t *testing.T) *Backend {
	t.Helper()
	b := New(testDB(t), bus.New(), NewMemorySecrets(), zap.NewNop(), Options{
		BlobDir:        t.TempDir(),
		OutboxInterval: 20 * time.Millisecond,
		Location:       time.UTC,
	})
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func subscribe(t *testing.T, b *Backend) <-chan backend.Event {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ch, err := b.Subscribe(ctx)
	if err != nil {
		t.Fatal(err)
	}
	return ch
}

// waitFor reads events until one matches.
func waitFor(t *testing.T, ch <-chan backend.Event, match func(backend.Event) bool) backend.Event {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatal("event stream closed")
			}
			if match(ev) {
				return ev
			}
		case <-timeout:
			t.Fatal("timeout waiting for event")
		}
	}
}

func kind(k backend.Kind, account uint32) func(backend.Event) bool {
	return func(ev backend.Event) bool { return ev.Kind == k && ev.Account == account }
}

// progress collects progress values of kind k until 0 or 1000.
func progress(t *testing.T, ch <-chan backend.Event, k backend.Kind, account uint32) []int {
	t.Helper()
	var got []int
	for {
		ev := waitFor(t, ch, kind(k, account))
		got = append(got, ev.Progress)
		if ev.Progress == 0 || ev.Progress == model.ProgressDone {
			return got
		}
	}
}

// configured adds and logs in an account.
func configured(t *testing.T, b *Backend, addr string) uint32 {
	t.Helper()
	ctx := context.Background()
	id, err := b.AddAccount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Login(ctx, id, addr, "secret"); err != nil {
		t.Fatalf("Login(%s): %v", addr, err)
	}
	return id
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 2 {
		t.Errorf("version = %d, want 2", result.Version)
	}
}

func TestContactIDsStartAfterReserved(t *testing.T) {
	b := testBackend(t)
	ctx := context.Background()
	id := configured(t, b, "alice@example.org")

	c, err := ensureContact(ctx, b.db, id, "bob@example.org", "Bob")
	if err != nil {
		t.Fatal(err)
	}
	if c.ID < model.ContactFirstUser {
		t.Errorf("contact id = %d, want >= %d", c.ID, model.ContactFirstUser)
	}
}

func TestLoginConfiguresAccount(t *testing.T) {
	b := testBackend(t)
	ch := subscribe(t, b)
	ctx := context.Background()

	id, err := b.AddAccount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Login(ctx, id, "Alice@Example.org", "secret"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	got := progress(t, ch, backend.KindConfigureProgress, id)
	want := []int{100, 300, 500, 800, 1000}
	if len(got) != len(want) {
		t.Fatalf("progress = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("progress = %v, want %v", got, want)
		}
	}

	info, err := b.AccountInfo(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if !info.Configured || info.Email != "alice@example.org" {
		t.Errorf("AccountInfo = %+v", info)
	}
	if pw, _ := b.secrets.Get(id); pw != "secret" {
		t.Errorf("stored secret = %q", pw)
	}

	list, err := b.ChatList(ctx, id, nil)
	if err != nil {
		t.Fatal(err)
	}
	if list.Len != 2 || len(list.Chats) != 2 {
		t.Fatalf("chat list = %+v, want self and device chats", list)
	}
	var sawSelf, sawDevice bool
	for _, c := range list.Chats {
		switch {
		case c.IsSelfTalk:
			sawSelf = c.CanSend && c.Name == selfChatName
		case c.IsDeviceTalk:
			sawDevice = !c.CanSend && c.FreshMsgCount == 1
		}
	}
	if !sawSelf || !sawDevice {
		t.Errorf("special chats wrong: %+v", list.Chats)
	}
}

func TestLoginFailures(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"invalid address", "not an address", "pw", ErrInvalidAddress},
		{"duplicate", "taken@example.org", "pw", ErrDuplicateAccount},
		{"missing password", "fresh@example.org", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testBackend(t)
			configured(t, b, "taken@example.org")
			ch := subscribe(t, b)
			ctx := context.Background()

			id, err := b.AddAccount(ctx)
			if err != nil {
				t.Fatal(err)
			}
			err = b.Login(ctx, id, tt.email, tt.password)
			if err == nil {
				t.Fatal("Login() expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Login() error = %v, want %v", err, tt.wantErr)
			}

			waitFor(t, ch, kind(backend.KindError, id))
			got := progress(t, ch, backend.KindConfigureProgress, id)
			if got[len(got)-1] != 0 {
				t.Errorf("final progress = %v, want 0", got)
			}
			info, err := b.AccountInfo(ctx, id)
			if err != nil {
				t.Fatal(err)
			}
			if info.Configured {
				t.Error("failed account marked configured")
			}
			if _, err := b.secrets.Get(id); !errors.Is(err, ErrSecretNotFound) {
				t.Errorf("secret left behind: %v", err)
			}
		})
	}
}

func TestLoginTwiceRejected(t *testing.T) {
	b := testBackend(t)
	id := configured(t, b, "alice@example.org")
	if err := b.Login(context.Background(), id, "alice@example.org", "pw"); !errors.Is(err, ErrAlreadyConfigured) {
		t.Errorf("second Login() error = %v, want ErrAlreadyConfigured", err)
	}
}

func TestKeyringSecrets(t *testing.T) {
	keyring.MockInit()
	b := New(testDB(t), bus.New(), NewKeyringSecrets("test"), zap.NewNop(), Options{})
	t.Cleanup(func() { _ = b.Close() })
	ctx := context.Background()

	id := configured(t, b, "alice@example.org")
	pw, err := keyring.Get("dchat:test", secretUser(id))
	if err != nil || pw != "secret" {
		t.Fatalf("keyring.Get = %q, %v", pw, err)
	}

	if err := b.RemoveAccount(ctx, id); err != nil {
		t.Fatal(err)
	}
	if _, err := b.secrets.Get(id); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("secret after remove: %v", err)
	}
}

func TestSelection(t *testing.T) {
	b := testBackend(t)
	ctx := context.Background()

	if _, ok, err := b.SelectedAccount(ctx); err != nil || ok {
		t.Fatalf("SelectedAccount on empty store = %v, %v", ok, err)
	}
	first := configured(t, b, "a@example.org")
	second := configured(t, b, "b@example.org")

	if sel, ok, _ := b.SelectedAccount(ctx); !ok || sel != first {
		t.Errorf("selected = %d, want first account %d", sel, first)
	}
	if err := b.SelectAccount(ctx, second); err != nil {
		t.Fatal(err)
	}
	if sel, _, _ := b.SelectedAccount(ctx); sel != second {
		t.Errorf("selected = %d, want %d", sel, second)
	}
	if err := b.SelectAccount(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("SelectAccount(999) error = %v, want ErrNotFound", err)
	}

	if err := b.RemoveAccount(ctx, second); err != nil {
		t.Fatal(err)
	}
	if sel, ok, _ := b.SelectedAccount(ctx); !ok || sel != first {
		t.Errorf("after remove selected = %d, want %d", sel, first)
	}
	if err := b.RemoveAccount(ctx, first); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := b.SelectedAccount(ctx); ok {
		t.Error("selection left after removing every account")
	}
	ids, _ := b.Accounts(ctx)
	if len(ids) != 0 {
		t.Errorf("accounts = %v, want none", ids)
	}
}

func TestSelectChatMarksNoticed(t *testing.T) {
	b := testBackend(t)
	ctx := context.Background()
	id := configured(t, b, "alice@example.org")
	ch := subscribe(t, b)

	device, _, err := specialChat(ctx, b.db, id, chatDevice)
	if err != nil {
		t.Fatal(err)
	}
	list, err := b.SelectChat(ctx, id, device)
	if err != nil {
		t.Fatal(err)
	}
	if list.ChatID != device {
		t.Errorf("MessageList.ChatID = %d, want %d", list.ChatID, device)
	}
	waitFor(t, ch, kind(backend.KindMsgsNoticed, id))

	info, err := b.AccountInfo(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if info.SelectedChatID != device || info.SelectedChat == nil || info.SelectedChat.FreshMsgCount != 0 {
		t.Errorf("AccountInfo = %+v", info)
	}

	other := configured(t, b, "bob@example.org")
	if _, err := b.SelectChat(ctx, other, device); !errors.Is(err, ErrNotFound) {
		t.Errorf("selecting a chat of another account: %v, want ErrNotFound", err)
	}
}

func TestChatListOrdering(t *testing.T) {
	b := testBackend(t)
	ctx := context.Background()
	id := configured(t, b, "alice@example.org")

	bob, err := b.CreateChat(ctx, id, "bob@example.org", "Bob")
	if err != nil {
		t.Fatal(err)
	}
	carol, err := b.CreateChat(ctx, id, "carol@example.org", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.PinChat(ctx, id, carol); err != nil {
		t.Fatal(err)
	}
	if _, err := b.ArchiveChat(ctx, id, bob); err != nil {
		t.Fatal(err)
	}

	list, err := b.ChatList(ctx, id, nil)
	if err != nil {
		t.Fatal(err)
	}
	if list.Len != 4 {
		t.Fatalf("Len = %d, want 4", list.Len)
	}
	if first := list.Chats[0]; first.ID != carol || !first.IsPinned || first.Name != "carol@example.org" {
		t.Errorf("first chat = %+v, want pinned carol", first)
	}
	if last := list.Chats[3]; last.ID != bob || !last.IsArchived || last.Name != "Bob" {
		t.Errorf("last chat = %+v, want archived bob", last)
	}
	for i, c := range list.Chats {
		if c.Index == nil || *c.Index != i {
			t.Errorf("chat %d index = %v", i, c.Index)
		}
	}

	window, err := b.ChatList(ctx, id, &model.Range{Start: 1, End: 3})
	if err != nil {
		t.Fatal(err)
	}
	if window.Len != 4 || len(window.Chats) != 2 || *window.Chats[0].Index != 1 {
		t.Errorf("window = %+v", window)
	}

	if _, err := b.UnarchiveChat(ctx, id, bob); err != nil {
		t.Fatal(err)
	}
	if _, err := b.UnpinChat(ctx, id, carol); err != nil {
		t.Fatal(err)
	}
	list, _ = b.ChatList(ctx, id, nil)
	for _, c := range list.Chats {
		if c.IsPinned || c.IsArchived {
			t.Errorf("chat %d still pinned or archived", c.ID)
		}
	}
}

func TestSelfTalkDeliveredImmediately(t *testing.T) {
	b := testBackend(t)
	ctx := context.Background()
	id := configured(t, b, "alice@example.org")
	ch := subscribe(t, b)

	self, _, _ := specialChat(ctx, b.db, id, chatSelf)
	if err := b.SendTextMessage(ctx, id, self, "note to self"); err != nil {
		t.Fatal(err)
	}
	ev := waitFor(t, ch, kind(backend.KindMsgDelivered, id))

	msg, err := b.Message(ctx, id, ev.MsgID)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Text != "note to self" || msg.State != model.StateDelivered || msg.FromID != model.ContactSelf {
		t.Errorf("message = %+v", msg)
	}
}

func TestSendToDeviceChatRejected(t *testing.T) {
	b := testBackend(t)
	ctx := context.Background()
	id := configured(t, b, "alice@example.org")

	device, _, _ := specialChat(ctx, b.db, id, chatDevice)
	if err := b.SendTextMessage(ctx, id, device, "hi"); !errors.Is(err, ErrCannotSend) {
		t.Errorf("SendTextMessage to device chat error = %v, want ErrCannotSend", err)
	}
}

func TestSubscribeEndsWithContext(t *testing.T) {
	b := testBackend(t)
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := b.Subscribe(ctx)
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("unexpected event")
		}
	case <-time.After(time.Second):
		t.Fatal("stream not closed after cancel")
	}
	if n := b.bus.Len(); n != 0 {
		t.Errorf("bus subscriptions = %d, want 0", n)
	}
}

func TestSubscribeAfterClose(t *testing.T) {
	b := testBackend(t)
	_ = b.Close()
	if _, err := b.Subscribe(context.Background()); err == nil {
		t.Error("Subscribe after Close should fail")
	}
}
