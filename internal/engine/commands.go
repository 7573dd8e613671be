package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/matheus3301/dchat/internal/backend"
	"github.com/matheus3301/dchat/internal/command"
	"github.com/matheus3301/dchat/internal/model"
	"github.com/matheus3301/dchat/internal/projection"
	"go.uber.org/zap"
)

// ErrNoSelectedChat is returned by sends without an open chat.
var ErrNoSelectedChat = errors.New("no chat selected")

func (e *Engine) handleCommand(ctx context.Context, cmd command.Command) error {
	switch c := cmd.(type) {
	case command.SelectChat:
		return e.selectChat(ctx, c.Account, c.Chat)
	case command.SelectAccount:
		return e.selectAccount(ctx, c.Account)

	case command.SendTextMessage:
		acc, chat, err := e.target()
		if err != nil {
			return err
		}
		return e.backend.SendTextMessage(ctx, acc, chat, c.Text)
	case command.SendFileMessage:
		acc, chat, err := e.target()
		if err != nil {
			return err
		}
		return e.backend.SendFileMessage(ctx, acc, chat, backend.FileMessage{
			Viewtype: c.Viewtype,
			Path:     c.Path,
			Text:     c.Text,
			Mime:     c.Mime,
		})

	case command.Login:
		return e.addAccount(ctx, "login", func(id uint32) error {
			return e.backend.Login(ctx, id, c.Email, c.Password)
		})
	case command.ImportAccount:
		return e.addAccount(ctx, "import", func(id uint32) error {
			return e.backend.Import(ctx, id, c.Path)
		})

	case command.MaybeNetwork:
		return e.backend.MaybeNetwork(ctx)

	case command.AcceptContactRequest:
		return e.mutateChat(ctx, c.Account, c.Chat, e.backend.AcceptContactRequest)
	case command.BlockContact:
		return e.mutateChat(ctx, c.Account, c.Chat, e.backend.BlockContact)
	case command.PinChat:
		return e.mutateChat(ctx, c.Account, c.Chat, e.backend.PinChat)
	case command.UnpinChat:
		return e.mutateChat(ctx, c.Account, c.Chat, e.backend.UnpinChat)
	case command.ArchiveChat:
		return e.mutateChat(ctx, c.Account, c.Chat, e.backend.ArchiveChat)
	case command.UnarchiveChat:
		return e.mutateChat(ctx, c.Account, c.Chat, e.backend.UnarchiveChat)

	case command.GetAccountDetail:
		return e.accountDetail(ctx, c.Account)

	case command.LoadChatList:
		e.chatWindow = &model.Range{Start: c.Start, End: c.End}
		return e.refreshChatList(ctx)
	case command.LoadMessageList:
		e.messageWindow = &model.Range{Start: c.Start, End: c.End}
		return e.refreshMessageList(ctx)

	default:
		return fmt.Errorf("unsupported command %T", cmd)
	}
}

func (e *Engine) selectAccount(ctx context.Context, id uint32) error {
	if cur, ok := e.selectedAccount(); ok && cur == id {
		return nil
	}
	if err := e.backend.SelectAccount(ctx, id); err != nil {
		return fmt.Errorf("select account %d: %w", id, err)
	}
	e.chatWindow = e.opts.ChatWindow
	e.messageWindow = e.opts.MessageWindow
	if err := e.refreshProjection(ctx); err != nil {
		return err
	}
	if err := e.refreshChatList(ctx); err != nil {
		return err
	}
	return e.refreshMessageList(ctx)
}

// selectChat opens chat, switching account first when needed. When the
// chat cannot be opened the previous account is selected again so backend
// and projection agree.
func (e *Engine) selectChat(ctx context.Context, acc, chat uint32) error {
	prev, hadPrev := e.selectedAccount()
	switched := !hadPrev || prev != acc
	chatWindow, messageWindow := e.chatWindow, e.messageWindow
	if switched {
		if err := e.backend.SelectAccount(ctx, acc); err != nil {
			return fmt.Errorf("select account %d: %w", acc, err)
		}
		e.chatWindow = e.opts.ChatWindow
	}
	e.messageWindow = e.opts.MessageWindow

	list, err := e.backend.SelectChat(ctx, acc, chat)
	if err != nil {
		err = fmt.Errorf("select chat %d: %w", chat, err)
		e.chatWindow, e.messageWindow = chatWindow, messageWindow
		if switched {
			return errors.Join(err, e.restoreAccount(ctx, prev, hadPrev))
		}
		return err
	}
	e.projection.Update(func(s *projection.State) { s.MessageList = list })
	if err := e.refreshProjection(ctx); err != nil {
		return err
	}
	if switched {
		return e.refreshChatList(ctx)
	}
	return nil
}

// restoreAccount undoes the account switch of a failed selectChat. Without
// a previous account the projection follows the backend instead.
func (e *Engine) restoreAccount(ctx context.Context, prev uint32, hadPrev bool) error {
	if !hadPrev {
		return e.refreshAll(ctx)
	}
	if err := e.backend.SelectAccount(ctx, prev); err != nil {
		e.logger.Warn("failed to restore account", zap.Uint32("account", prev), zap.Error(err))
		if rerr := e.refreshAll(ctx); rerr != nil {
			return errors.Join(fmt.Errorf("restore account %d: %w", prev, err), rerr)
		}
		return fmt.Errorf("restore account %d: %w", prev, err)
	}
	return nil
}

// target returns the account and chat outgoing messages go to.
func (e *Engine) target() (uint32, uint32, error) {
	acc, ok := e.selectedAccount()
	if !ok {
		return 0, 0, backend.ErrNoSelectedAccount
	}
	chat, ok := e.selectedChat()
	if !ok {
		return 0, 0, ErrNoSelectedChat
	}
	return acc, chat, nil
}

// addAccount creates a backend account and runs setup on it. A failed
// setup removes the account again so it never shows up half-initialized;
// the failure is recorded, not returned.
func (e *Engine) addAccount(ctx context.Context, op string, setup func(id uint32) error) error {
	id, err := e.backend.AddAccount(ctx)
	if err != nil {
		return fmt.Errorf("add account: %w", err)
	}
	e.tracker.Begin(id)
	e.logger.Info("account setup started", zap.String("op", op), zap.Uint32("account", id))

	if err := setup(id); err != nil {
		e.logger.Warn("account setup failed", zap.String("op", op), zap.Uint32("account", id), zap.Error(err))
		if rmErr := e.backend.RemoveAccount(ctx, id); rmErr != nil {
			e.logger.Error("failed to remove account after failed setup", zap.Uint32("account", id), zap.Error(rmErr))
		}
		e.tracker.Remove(id)
		e.recordError(op, fmt.Errorf("%s failed: %w", op, err))
		return e.refreshProjection(ctx)
	}

	if err := e.tracker.Transition(id, model.Succeeded()); err != nil {
		e.logger.Warn("login state not updated", zap.Uint32("account", id), zap.Error(err))
	}
	if err := e.refreshProjection(ctx); err != nil {
		return err
	}
	if sel, ok := e.selectedAccount(); ok && sel == id {
		return e.refreshChatList(ctx)
	}
	return nil
}

type chatMutation func(ctx context.Context, account, chat uint32) (model.MessageList, error)

// mutateChat applies a chat mutation. The backend answers with the message
// list of the account's open chat, which replaces ours when that account is
// the selected one.
func (e *Engine) mutateChat(ctx context.Context, acc, chat uint32, fn chatMutation) error {
	list, err := fn(ctx, acc, chat)
	if err != nil {
		return fmt.Errorf("chat %d: %w", chat, err)
	}
	if sel, ok := e.selectedAccount(); ok && sel == acc {
		e.projection.Update(func(s *projection.State) { s.MessageList = list })
	}
	if err := e.refreshProjection(ctx); err != nil {
		return err
	}
	return e.refreshChatList(ctx)
}

func (e *Engine) accountDetail(ctx context.Context, id uint32) error {
	if err := e.refreshProjection(ctx); err != nil {
		return err
	}
	e.projection.Update(func(s *projection.State) {
		if _, ok := s.Shared.Accounts[id]; ok {
			s.Shared.DetailAccount = model.ID(id)
		}
	})
	if sel, ok := e.selectedAccount(); ok && sel == id {
		if err := e.refreshChatList(ctx); err != nil {
			return err
		}
		return e.refreshMessageList(ctx)
	}
	return nil
}
