// Package backend defines the contract between the synchronization engine
// and a messaging backend.
package backend

import (
	"context"
	"errors"

	"github.com/matheus3301/dchat/internal/model"
)

// ErrNoSelectedAccount is returned by operations that need a selected account.
var ErrNoSelectedAccount = errors.New("no account selected")

// Backend is a multi-account messaging backend. All calls may block on disk
// or network.
type Backend interface {
	Accounts(ctx context.Context) ([]uint32, error)
	AddAccount(ctx context.Context) (uint32, error)
	Login(ctx context.Context, account uint32, email, password string) error
	Import(ctx context.Context, account uint32, path string) error
	RemoveAccount(ctx context.Context, account uint32) error
	SelectAccount(ctx context.Context, account uint32) error
	SelectedAccount(ctx context.Context) (uint32, bool, error)
	AccountInfo(ctx context.Context, account uint32) (model.AccountInfo, error)

	StartIO(ctx context.Context) error
	MaybeNetwork(ctx context.Context) error

	ChatList(ctx context.Context, account uint32, window model.Window) (model.ChatList, error)
	MessageList(ctx context.Context, account uint32, window model.Window) (model.MessageList, error)

	SelectChat(ctx context.Context, account, chat uint32) (model.MessageList, error)
	PinChat(ctx context.Context, account, chat uint32) (model.MessageList, error)
	UnpinChat(ctx context.Context, account, chat uint32) (model.MessageList, error)
	ArchiveChat(ctx context.Context, account, chat uint32) (model.MessageList, error)
	UnarchiveChat(ctx context.Context, account, chat uint32) (model.MessageList, error)
	AcceptContactRequest(ctx context.Context, account, chat uint32) (model.MessageList, error)
	BlockContact(ctx context.Context, account, chat uint32) (model.MessageList, error)

	SendTextMessage(ctx context.Context, account, chat uint32, text string) error
	SendFileMessage(ctx context.Context, account, chat uint32, file FileMessage) error

	Message(ctx context.Context, account, msgID uint32) (model.Message, error)
	ChatName(ctx context.Context, account, chatID uint32) (string, error)

	// Subscribe returns the raw event stream. The channel is closed when ctx
	// is done or the backend shuts down.
	Subscribe(ctx context.Context) (<-chan Event, error)
}

// Operator is implemented by backends that support account maintenance
// beyond what the engine needs.
type Operator interface {
	CreateChat(ctx context.Context, account uint32, addr, name string) (uint32, error)
	Export(ctx context.Context, account uint32, path string) error
}

// FileMessage describes an outgoing attachment.
type FileMessage struct {
	Viewtype model.Viewtype `json:"viewtype"`
	Path     string         `json:"path"`
	Text     string         `json:"text,omitempty"`
	Mime     string         `json:"mime,omitempty"`
}
