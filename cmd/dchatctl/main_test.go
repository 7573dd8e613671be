package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/matheus3301/dchat/internal/model"
)

func TestCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{
		{"status"},
		{"accounts", "list"},
		{"accounts", "add"},
		{"accounts", "import"},
		{"accounts", "export"},
		{"accounts", "remove"},
		{"accounts", "select"},
		{"chats", "list"},
		{"chats", "create"},
		{"send"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd.Name() != path[len(path)-1] {
			t.Errorf("command %v not found: %v", path, err)
		}
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID("42"); err != nil || id != 42 {
		t.Errorf("parseID(42) = %d, %v", id, err)
	}
	for _, bad := range []string{"0", "-1", "x", "4294967296"} {
		if _, err := parseID(bad); err == nil {
			t.Errorf("parseID(%q) succeeded", bad)
		}
	}
}

func TestReadPasswordPrecedence(t *testing.T) {
	t.Setenv(passwordEnv, "from-env")
	if pw, _ := readPassword("from-flag"); pw != "from-flag" {
		t.Errorf("flag ignored: %q", pw)
	}
	if pw, _ := readPassword(""); pw != "from-env" {
		t.Errorf("env ignored: %q", pw)
	}
}

func TestFileMessage(t *testing.T) {
	msg, err := fileMessage("/tmp/cat.png", "look", true)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Viewtype != model.ViewtypeImage || msg.Mime != "image/png" || msg.Text != "look" {
		t.Errorf("msg = %+v", msg)
	}
	msg, _ = fileMessage("/tmp/report.pdf", "", false)
	if msg.Viewtype != model.ViewtypeFile || msg.Path != "/tmp/report.pdf" {
		t.Errorf("msg = %+v", msg)
	}
}

func TestChatsOutput(t *testing.T) {
	chats := []model.ChatSummary{
		{ID: 10, Name: "alice", FreshMsgCount: 2, IsPinned: true},
		{ID: 11, Name: "bob", IsArchived: true, IsContactRequest: true},
	}
	if got := flags(chats[1]); got != "archived,request" {
		t.Errorf("flags = %q", got)
	}

	var buf bytes.Buffer
	if err := fprintJSON(&buf, toJSONChats(chats)); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, `"pinned": true`) || strings.Contains(out, `"last_date"`) {
		t.Errorf("json = %s", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("a  b\nc", 10); got != "a b c" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abcdefghij", 5); got != "abcd…" {
		t.Errorf("truncate = %q", got)
	}
}
