package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/dchat/internal/backend"
	"github.com/matheus3301/dchat/internal/model"
)

func TestLoopbackDelivery(t *testing.T) {
	b := testBackend(t)
	ctx := context.Background()
	alice := configured(t, b, "alice@example.org")
	bob := configured(t, b, "bob@example.org")
	ch := subscribe(t, b)
	if err := b.StartIO(ctx); err != nil {
		t.Fatal(err)
	}

	chat, err := b.CreateChat(ctx, alice, "bob@example.org", "Bob")
	if err != nil {
		t.Fatal(err)
	}
	if err := b.SendTextMessage(ctx, alice, chat, "hello bob"); err != nil {
		t.Fatal(err)
	}

	incoming := waitFor(t, ch, kind(backend.KindIncomingMsg, bob))
	msg, err := b.Message(ctx, bob, incoming.MsgID)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Text != "hello bob" || msg.State != model.StateFresh || msg.FromName != "alice@example.org" {
		t.Errorf("incoming message = %+v", msg)
	}
	name, err := b.ChatName(ctx, bob, incoming.ChatID)
	if err != nil || name != "alice@example.org" {
		t.Errorf("ChatName = %q, %v", name, err)
	}

	list, err := b.ChatList(ctx, bob, nil)
	if err != nil {
		t.Fatal(err)
	}
	req, ok := list.Find(incoming.ChatID)
	if !ok || !req.IsContactRequest || req.CanSend || req.FreshMsgCount != 1 {
		t.Errorf("recipient chat = %+v, want fresh contact request", req)
	}

	delivered := waitFor(t, ch, kind(backend.KindMsgDelivered, alice))
	sent, err := b.Message(ctx, alice, delivered.MsgID)
	if err != nil {
		t.Fatal(err)
	}
	if sent.State != model.StateDelivered {
		t.Errorf("sender copy state = %q, want delivered", sent.State)
	}

	if _, err := b.AcceptContactRequest(ctx, bob, incoming.ChatID); err != nil {
		t.Fatal(err)
	}
	list, _ = b.ChatList(ctx, bob, nil)
	if req, _ := list.Find(incoming.ChatID); req.IsContactRequest || !req.CanSend {
		t.Errorf("after accept = %+v", req)
	}

	// A reply lands in the existing chat on alice's side.
	if err := b.SendTextMessage(ctx, bob, incoming.ChatID, "hi alice"); err != nil {
		t.Fatal(err)
	}
	reply := waitFor(t, ch, kind(backend.KindIncomingMsg, alice))
	if reply.ChatID != chat {
		t.Errorf("reply chat = %d, want %d", reply.ChatID, chat)
	}
}

func TestNoRouteFails(t *testing.T) {
	b := testBackend(t)
	ctx := context.Background()
	alice := configured(t, b, "alice@example.org")
	ch := subscribe(t, b)
	if err := b.StartIO(ctx); err != nil {
		t.Fatal(err)
	}

	chat, err := b.CreateChat(ctx, alice, "stranger@elsewhere.net", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := b.SendTextMessage(ctx, alice, chat, "anyone?"); err != nil {
		t.Fatal(err)
	}
	failed := waitFor(t, ch, kind(backend.KindMsgFailed, alice))
	msg, err := b.Message(ctx, alice, failed.MsgID)
	if err != nil {
		t.Fatal(err)
	}
	if msg.State != model.StateFailed {
		t.Errorf("state = %q, want failed", msg.State)
	}
}

func TestBlockedSenderDropped(t *testing.T) {
	b := testBackend(t)
	ctx := context.Background()
	alice := configured(t, b, "alice@example.org")
	bob := configured(t, b, "bob@example.org")
	ch := subscribe(t, b)
	if err := b.StartIO(ctx); err != nil {
		t.Fatal(err)
	}

	toBob, _ := b.CreateChat(ctx, alice, "bob@example.org", "")
	toAlice, _ := b.CreateChat(ctx, bob, "alice@example.org", "")
	if _, err := b.SelectChat(ctx, bob, toAlice); err != nil {
		t.Fatal(err)
	}
	list, err := b.BlockContact(ctx, bob, toAlice)
	if err != nil {
		t.Fatal(err)
	}
	if !list.Empty() {
		t.Errorf("message list after blocking selected chat = %+v, want empty", list)
	}

	if err := b.SendTextMessage(ctx, alice, toBob, "let me in"); err != nil {
		t.Fatal(err)
	}
	// Sender side still sees the message delivered.
	waitFor(t, ch, kind(backend.KindMsgDelivered, alice))

	chats, _ := b.ChatList(ctx, bob, nil)
	if _, ok := chats.Find(toAlice); ok {
		t.Error("blocked chat still listed")
	}
	msgs, _ := chatMessages(ctx, b.db, toAlice)
	if len(msgs) != 0 {
		t.Errorf("blocked chat received %d messages", len(msgs))
	}
}

func TestQueuedBeforeIOIsDeliveredOnStart(t *testing.T) {
	b := testBackend(t)
	ctx := context.Background()
	alice := configured(t, b, "alice@example.org")
	bob := configured(t, b, "bob@example.org")
	ch := subscribe(t, b)

	chat, _ := b.CreateChat(ctx, alice, "bob@example.org", "")
	if err := b.SendTextMessage(ctx, alice, chat, "queued"); err != nil {
		t.Fatal(err)
	}
	select {
	case ev := <-ch:
		if ev.Kind == backend.KindIncomingMsg {
			t.Fatal("delivered before IO started")
		}
	case <-time.After(100 * time.Millisecond):
	}

	if err := b.StartIO(ctx); err != nil {
		t.Fatal(err)
	}
	waitFor(t, ch, kind(backend.KindIncomingMsg, bob))
}

func TestSendFileMessage(t *testing.T) {
	b := testBackend(t)
	ctx := context.Background()
	alice := configured(t, b, "alice@example.org")
	ch := subscribe(t, b)

	src := filepath.Join(t.TempDir(), "notes.json")
	if err := os.WriteFile(src, []byte(`{"notes":true}`), 0600); err != nil {
		t.Fatal(err)
	}
	self, _, _ := specialChat(ctx, b.db, alice, chatSelf)
	err := b.SendFileMessage(ctx, alice, self, backend.FileMessage{Path: src, Text: "see attached"})
	if err != nil {
		t.Fatal(err)
	}
	ev := waitFor(t, ch, kind(backend.KindMsgDelivered, alice))
	msg, err := b.Message(ctx, alice, ev.MsgID)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Viewtype != model.ViewtypeFile || msg.FileMime != "application/json" {
		t.Errorf("message = %+v", msg)
	}
	if filepath.Dir(msg.File) != b.opts.BlobDir {
		t.Errorf("file %q not stored in blob dir %q", msg.File, b.opts.BlobDir)
	}
	if data, err := os.ReadFile(msg.File); err != nil || string(data) != `{"notes":true}` {
		t.Errorf("blob content = %q, %v", data, err)
	}

	if err := b.SendFileMessage(ctx, alice, self, backend.FileMessage{Path: filepath.Join(t.TempDir(), "missing.png")}); err == nil {
		t.Error("sending a missing file should fail")
	}
}
