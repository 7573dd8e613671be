// Package command defines the closed set of UI commands and the bounded
// mailbox that carries them to the engine.
package command

import "github.com/matheus3301/dchat/internal/model"

// Command is implemented only by the types in this package.
type Command interface {
	command()
}

type (
	// SelectChat opens a chat of an account.
	SelectChat struct{ Account, Chat uint32 }
	// SelectAccount switches the active account.
	SelectAccount struct{ Account uint32 }
	// SendTextMessage sends to the selected chat.
	SendTextMessage struct{ Text string }
	// SendFileMessage sends an attachment to the selected chat.
	SendFileMessage struct {
		Viewtype model.Viewtype
		Path     string
		Text     string
		Mime     string
	}
	// Login creates and configures a new account.
	Login struct{ Email, Password string }
	// ImportAccount creates a new account from a backup file.
	ImportAccount struct{ Path string }
	MaybeNetwork  struct{}

	AcceptContactRequest struct{ Account, Chat uint32 }
	BlockContact         struct{ Account, Chat uint32 }
	PinChat              struct{ Account, Chat uint32 }
	UnpinChat            struct{ Account, Chat uint32 }
	ArchiveChat          struct{ Account, Chat uint32 }
	UnarchiveChat        struct{ Account, Chat uint32 }

	// GetAccountDetail refreshes and marks an account for the detail view.
	GetAccountDetail struct{ Account uint32 }
	// LoadChatList requests a chat list window.
	LoadChatList struct{ Start, End int }
	// LoadMessageList requests a message list window.
	LoadMessageList struct{ Start, End int }
)

func (SelectChat) command()           {}
func (SelectAccount) command()        {}
func (SendTextMessage) command()      {}
func (SendFileMessage) command()      {}
func (Login) command()                {}
func (ImportAccount) command()        {}
func (MaybeNetwork) command()         {}
func (AcceptContactRequest) command() {}
func (BlockContact) command()         {}
func (PinChat) command()              {}
func (UnpinChat) command()            {}
func (ArchiveChat) command()          {}
func (UnarchiveChat) command()        {}
func (GetAccountDetail) command()     {}
func (LoadChatList) command()         {}
func (LoadMessageList) command()      {}
