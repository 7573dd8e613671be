package local

import (
	"context"
	"fmt"

	"github.com/matheus3301/dchat/internal/backend"
	"github.com/matheus3301/dchat/internal/model"
)

// SelectChat makes chat the selected chat of account and marks its fresh
// messages seen.
func (b *Backend) SelectChat(ctx context.Context, account, chat uint32) (model.MessageList, error) {
	if _, err := getChat(ctx, b.db, account, chat); err != nil {
		return model.MessageList{}, err
	}
	if err := setSelectedChat(ctx, b.db, account, chat); err != nil {
		return model.MessageList{}, fmt.Errorf("select chat: %w", err)
	}
	n, err := markNoticed(ctx, b.db, chat)
	if err != nil {
		return model.MessageList{}, fmt.Errorf("mark noticed: %w", err)
	}
	if n > 0 {
		b.emit(backend.Event{Account: account, Kind: backend.KindMsgsNoticed, ChatID: chat})
	}
	return b.MessageList(ctx, account, nil)
}

func (b *Backend) PinChat(ctx context.Context, account, chat uint32) (model.MessageList, error) {
	return b.toggle(ctx, account, chat, "pinned", true)
}

func (b *Backend) UnpinChat(ctx context.Context, account, chat uint32) (model.MessageList, error) {
	return b.toggle(ctx, account, chat, "pinned", false)
}

func (b *Backend) ArchiveChat(ctx context.Context, account, chat uint32) (model.MessageList, error) {
	return b.toggle(ctx, account, chat, "archived", true)
}

func (b *Backend) UnarchiveChat(ctx context.Context, account, chat uint32) (model.MessageList, error) {
	return b.toggle(ctx, account, chat, "archived", false)
}

func (b *Backend) AcceptContactRequest(ctx context.Context, account, chat uint32) (model.MessageList, error) {
	return b.toggle(ctx, account, chat, "contact_request", false)
}

func (b *Backend) toggle(ctx context.Context, account, chat uint32, flag string, value bool) (model.MessageList, error) {
	if err := setChatFlag(ctx, b.db, account, chat, flag, value); err != nil {
		return model.MessageList{}, fmt.Errorf("set %s: %w", flag, err)
	}
	b.emit(backend.Event{Account: account, Kind: backend.KindChatModified, ChatID: chat})
	return b.MessageList(ctx, account, nil)
}

// BlockContact blocks the contact of a 1:1 chat and hides the chat. The
// selection is cleared when it pointed at that chat.
func (b *Backend) BlockContact(ctx context.Context, account, chat uint32) (model.MessageList, error) {
	c, err := getChat(ctx, b.db, account, chat)
	if err != nil {
		return model.MessageList{}, err
	}
	if c.Kind != chatSingle || c.ContactID == 0 {
		return model.MessageList{}, fmt.Errorf("chat %d has no contact to block", chat)
	}
	err = b.db.InTx(ctx, func(q querier) error {
		if err := setContactBlocked(ctx, q, c.ContactID, true); err != nil {
			return err
		}
		if err := setChatFlag(ctx, q, account, chat, "blocked", true); err != nil {
			return err
		}
		acc, err := getAccount(ctx, q, account)
		if err != nil {
			return err
		}
		if acc.SelectedChatID == chat {
			return setSelectedChat(ctx, q, account, 0)
		}
		return nil
	})
	if err != nil {
		return model.MessageList{}, fmt.Errorf("block contact: %w", err)
	}
	b.emit(backend.Event{Account: account, Kind: backend.KindChatModified, ChatID: chat})
	return b.MessageList(ctx, account, nil)
}
