package local

import (
	"errors"
	"time"

	"github.com/matheus3301/dchat/internal/model"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidAddress    = errors.New("invalid email address")
	ErrDuplicateAccount  = errors.New("address already configured by another account")
	ErrAlreadyConfigured = errors.New("account already configured")
	ErrNotConfigured     = errors.New("account not configured")
	ErrCannotSend        = errors.New("cannot send to this chat")
	ErrNoRoute           = errors.New("no route to recipient")
)

// Chat kinds.
const (
	chatSingle = "single"
	chatSelf   = "self"
	chatDevice = "device"
)

// Outbox statuses.
const (
	outboxQueued  = "queued"
	outboxSending = "sending"
	outboxSent    = "sent"
	outboxFailed  = "failed"
)

const settingSelectedAccount = "selected_account"

type accountRow struct {
	ID             uint32
	Addr           string
	DisplayName    string
	ProfileImage   string
	Configured     bool
	SelectedChatID uint32
	CreatedAt      int64
}

type contactRow struct {
	ID        uint32
	AccountID uint32
	Addr      string
	Name      string
	Blocked   bool
}

func (c contactRow) label() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Addr
}

type chatRow struct {
	ID             uint32
	AccountID      uint32
	Kind           string
	ContactID      uint32
	ContactAddr    string
	ContactName    string
	Name           string
	Pinned         bool
	Archived       bool
	ContactRequest bool
	Blocked        bool
	CreatedAt      int64
	LastActivity   int64
}

func (c chatRow) canSend() bool {
	return c.Kind != chatDevice && !c.ContactRequest && !c.Blocked
}

type messageRow struct {
	ID         uint32
	AccountID  uint32
	ChatID     uint32
	FromID     uint32
	Rfc724Mid  string
	Viewtype   model.Viewtype
	State      string
	Text       string
	QuoteID    uint32
	IsInfo     bool
	File       string
	FileMime   string
	FileWidth  int
	FileHeight int
	Timestamp  int64
}

func (m messageRow) time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

func (m messageRow) incoming() bool {
	return m.FromID != model.ContactSelf && m.FromID != model.ContactDevice
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
