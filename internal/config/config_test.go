package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.DefaultProfile = "work"
	cfg.Engine.ChatWindow = 50
	cfg.Backend.UseKeyring = false
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultProfile != "work" {
		t.Errorf("DefaultProfile = %q, want %q", loaded.DefaultProfile, "work")
	}
	if loaded.Engine.ChatWindow != 50 {
		t.Errorf("ChatWindow = %d, want 50", loaded.Engine.ChatWindow)
	}
	if loaded.Backend.UseKeyring {
		t.Error("UseKeyring = true, want false")
	}
}

func TestLoadMissingReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Engine.QueueCapacity != 1000 || cfg.Engine.MessageWindow != 200 {
		t.Errorf("defaults not applied: %+v", cfg.Engine)
	}
	if d, _ := cfg.OutboxInterval(); d != 2*time.Second {
		t.Errorf("OutboxInterval = %s, want 2s", d)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := "log_level = \"debug\"\n[engine]\nqueue_capacity = 10\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Engine.QueueCapacity != 10 {
		t.Errorf("QueueCapacity = %d, want 10", cfg.Engine.QueueCapacity)
	}
	if cfg.Engine.ChatWindow != 100 {
		t.Errorf("ChatWindow = %d, want default 100", cfg.Engine.ChatWindow)
	}
	if lvl, _ := cfg.Level(); lvl != zapcore.DebugLevel {
		t.Errorf("Level = %s, want debug", lvl)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", "default_profile = \n"},
		{"zero queue", "[engine]\nqueue_capacity = 0\n"},
		{"bad interval", "[backend]\noutbox_interval = \"soon\"\n"},
		{"bad level", "log_level = \"loud\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.data), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load() expected error")
			}
		})
	}
}

func TestSavePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := Save(path, Default()); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}
