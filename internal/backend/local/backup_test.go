package local

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/matheus3301/dchat/internal/backend"
	"github.com/matheus3301/dchat/internal/model"
)

func TestExportImportRoundTrip(t *testing.T) {
	src := testBackend(t)
	ctx := context.Background()
	alice := configured(t, src, "alice@example.org")

	bob, err := src.CreateChat(ctx, alice, "bob@example.org", "Bob")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := src.PinChat(ctx, alice, bob); err != nil {
		t.Fatal(err)
	}
	self, _, _ := specialChat(ctx, src.db, alice, chatSelf)
	if err := src.SendTextMessage(ctx, alice, self, "remember the milk"); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "backup", "alice.toml")
	if err := src.Export(ctx, alice, path); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Mode().Perm() != 0600 {
		t.Fatalf("backup file: %v, %v", info, err)
	}
	bk, err := ReadBackup(path)
	if err != nil {
		t.Fatal(err)
	}
	if bk.Account.Addr != "alice@example.org" || len(bk.Chats) != 3 {
		t.Errorf("backup = %+v", bk)
	}

	dst := testBackend(t)
	ch := subscribe(t, dst)
	id, err := dst.AddAccount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := dst.Import(ctx, id, path); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	got := progress(t, ch, backend.KindImexProgress, id)
	if got[len(got)-1] != model.ProgressDone {
		t.Errorf("imex progress = %v", got)
	}

	info, err := dst.AccountInfo(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if !info.Configured || info.Email != "alice@example.org" {
		t.Errorf("imported account = %+v", info)
	}
	list, err := dst.ChatList(ctx, id, nil)
	if err != nil {
		t.Fatal(err)
	}
	if list.Len != 3 {
		t.Fatalf("imported chat count = %d, want 3", list.Len)
	}
	if first := list.Chats[0]; !first.IsPinned || first.Name != "Bob" {
		t.Errorf("first chat = %+v, want pinned Bob", first)
	}

	var selfChat model.ChatSummary
	for _, c := range list.Chats {
		if c.IsSelfTalk {
			selfChat = c
		}
	}
	if selfChat.Preview != "remember the milk" {
		t.Errorf("self chat preview = %q", selfChat.Preview)
	}
}

func TestImportFailures(t *testing.T) {
	b := testBackend(t)
	ctx := context.Background()
	configured(t, b, "alice@example.org")

	exported := filepath.Join(t.TempDir(), "alice.toml")
	alice, _, _ := b.SelectedAccount(ctx)
	if err := b.Export(ctx, alice, exported); err != nil {
		t.Fatal(err)
	}
	garbage := filepath.Join(t.TempDir(), "garbage.toml")
	if err := os.WriteFile(garbage, []byte("this is = = not toml"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"missing file", filepath.Join(t.TempDir(), "nope.toml"), nil},
		{"malformed", garbage, nil},
		{"duplicate address", exported, ErrDuplicateAccount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := subscribe(t, b)
			id, err := b.AddAccount(ctx)
			if err != nil {
				t.Fatal(err)
			}
			err = b.Import(ctx, id, tt.path)
			if err == nil {
				t.Fatal("Import() expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Import() error = %v, want %v", err, tt.wantErr)
			}
			got := progress(t, ch, backend.KindImexProgress, id)
			if got[len(got)-1] != 0 {
				t.Errorf("imex progress = %v, want final 0", got)
			}
			if err := b.RemoveAccount(ctx, id); err != nil {
				t.Fatal(err)
			}
		})
	}
}
