package engine

import (
	"context"
	"fmt"

	"github.com/matheus3301/dchat/internal/model"
	"github.com/matheus3301/dchat/internal/projection"
)

// refreshProjection re-reads every account and the selection from the
// backend. Login state comes from the tracker; accounts it has never seen
// are seeded from their configured flag.
func (e *Engine) refreshProjection(ctx context.Context) error {
	ids, err := e.backend.Accounts(ctx)
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}

	accounts := make(map[uint32]model.Account, len(ids))
	infos := make(map[uint32]model.AccountInfo, len(ids))
	for _, id := range ids {
		info, err := e.backend.AccountInfo(ctx, id)
		if err != nil {
			return fmt.Errorf("load account %d: %w", id, err)
		}
		infos[id] = info

		l, ok := e.tracker.Get(id)
		if !ok {
			l = model.NotStarted()
			if info.Configured {
				l = model.Succeeded()
			}
			e.tracker.Seed(id, l)
		}
		accounts[id] = model.Account{
			Login:        l,
			Email:        info.Email,
			DisplayName:  info.DisplayName,
			ProfileImage: info.ProfileImage,
		}
	}
	for id := range e.tracker.Snapshot() {
		if _, ok := accounts[id]; !ok {
			e.tracker.Remove(id)
		}
	}

	sel, ok, err := e.backend.SelectedAccount(ctx)
	if err != nil {
		return fmt.Errorf("load selected account: %w", err)
	}
	var (
		selected *uint32
		chatID   *uint32
		chat     *model.ChatSummary
	)
	if info, exists := infos[sel]; ok && exists {
		selected = model.ID(sel)
		if info.SelectedChatID != 0 {
			chatID = model.ID(info.SelectedChatID)
			chat = info.SelectedChat.Clone()
		}
	}

	e.projection.Update(func(s *projection.State) {
		sameAccount := selected != nil && s.Shared.IsSelectedAccount(*selected)
		s.Shared.Accounts = accounts
		s.Shared.SelectedAccount = selected
		s.Shared.SelectedChatID = chatID
		s.Shared.SelectedChat = chat
		if sameAccount {
			syncSelectedChat(s)
		}
		if s.Shared.DetailAccount != nil {
			if _, exists := accounts[*s.Shared.DetailAccount]; !exists {
				s.Shared.DetailAccount = nil
			}
		}
	})
	return nil
}

// refreshChatList reloads the chat list of the selected account.
func (e *Engine) refreshChatList(ctx context.Context) error {
	acc, ok := e.selectedAccount()
	if !ok {
		e.projection.Update(func(s *projection.State) { s.ChatList = model.ChatList{} })
		return nil
	}
	list, err := e.backend.ChatList(ctx, acc, e.chatWindow)
	if err != nil {
		e.projection.Update(func(s *projection.State) { s.ChatList = model.ChatList{} })
		return fmt.Errorf("load chat list: %w", err)
	}
	e.projection.Update(func(s *projection.State) {
		s.ChatList = list
		syncSelectedChat(s)
	})
	return nil
}

// syncSelectedChat copies the chat list entry of the selected chat into
// Shared.SelectedChat. Chats outside the loaded window keep their summary.
func syncSelectedChat(s *projection.State) {
	if s.Shared.SelectedChatID == nil {
		return
	}
	for i := range s.ChatList.Chats {
		if s.ChatList.Chats[i].ID == *s.Shared.SelectedChatID {
			s.Shared.SelectedChat = s.ChatList.Chats[i].Clone()
			return
		}
	}
}

// refreshMessageList reloads the message list of the selected chat.
func (e *Engine) refreshMessageList(ctx context.Context) error {
	acc, ok := e.selectedAccount()
	if _, hasChat := e.selectedChat(); !ok || !hasChat {
		e.projection.Update(func(s *projection.State) { s.MessageList.Clear() })
		return nil
	}
	list, err := e.backend.MessageList(ctx, acc, e.messageWindow)
	if err != nil {
		return fmt.Errorf("load message list: %w", err)
	}
	e.projection.Update(func(s *projection.State) { s.MessageList = list })
	return nil
}

// refreshAll is the reconciliation after connectivity changes.
func (e *Engine) refreshAll(ctx context.Context) error {
	if err := e.refreshProjection(ctx); err != nil {
		return err
	}
	if err := e.refreshChatList(ctx); err != nil {
		return err
	}
	return e.refreshMessageList(ctx)
}
