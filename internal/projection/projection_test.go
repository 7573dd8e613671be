package projection

import (
	"testing"
	"time"

	"github.com/matheus3301/dchat/internal/model"
)

func TestUpdateAndSnapshot(t *testing.T) {
	p := New()
	p.Update(func(s *State) {
		s.Shared.Accounts[1] = model.Account{Email: "a@example.org", Login: model.Succeeded()}
		s.Shared.SelectedAccount = model.ID(1)
		s.ChatList = model.ChatList{Len: 1, Chats: []model.ChatSummary{{ID: 10, Name: "Bob"}}}
	})

	snap := p.Snapshot()
	if !snap.Shared.IsSelectedAccount(1) || snap.Shared.Accounts[1].Email != "a@example.org" {
		t.Errorf("snapshot = %+v", snap.Shared)
	}
	if len(snap.ChatList.Chats) != 1 || snap.ChatList.Chats[0].Name != "Bob" {
		t.Errorf("chat list = %+v", snap.ChatList)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	p := New()
	p.Update(func(s *State) {
		s.Shared.Accounts[1] = model.Account{Email: "a@example.org"}
		s.Shared.Errors = []string{"first"}
		s.MessageList = model.MessageList{ChatID: 3, Messages: []model.ChatMessage{{Message: &model.Message{ID: 1, Text: "hi"}}}}
	})

	snap := p.Snapshot()
	snap.Shared.Accounts[2] = model.Account{}
	snap.Shared.Errors[0] = "mutated"
	snap.MessageList.Messages[0].Message.Text = "mutated"

	again := p.Snapshot()
	if len(again.Shared.Accounts) != 1 || again.Shared.Errors[0] != "first" || again.MessageList.Messages[0].Message.Text != "hi" {
		t.Errorf("reader mutation leaked into projection: %+v", again)
	}
}

func TestSnapshotDoesNotBlockOnWriter(t *testing.T) {
	p := New()
	p.Update(func(s *State) { s.Shared.Errors = []string{"published"} })

	inWriter := make(chan struct{})
	release := make(chan struct{})
	go p.Update(func(s *State) {
		s.Shared.Errors = []string{"in progress"}
		close(inWriter)
		<-release
	})
	<-inWriter

	done := make(chan State)
	go func() { done <- p.Snapshot() }()
	select {
	case snap := <-done:
		if len(snap.Shared.Errors) != 1 || snap.Shared.Errors[0] != "published" {
			t.Errorf("snapshot = %v, want last published state", snap.Shared.Errors)
		}
	case <-time.After(time.Second):
		t.Fatal("Snapshot blocked while the writer held the lock")
	}
	close(release)

	deadline := time.Now().Add(time.Second)
	for p.Snapshot().Shared.Errors[0] != "in progress" {
		if time.Now().After(deadline) {
			t.Fatal("update never published")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
