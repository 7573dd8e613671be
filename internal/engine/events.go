package engine

import (
	"context"

	"github.com/matheus3301/dchat/internal/projection"
	"github.com/matheus3301/dchat/internal/translate"
	"go.uber.org/zap"
)

func (e *Engine) handleEvent(ctx context.Context, ev translate.Event) error {
	switch p := ev.Payload.(type) {
	case translate.ConfigureProgress, translate.ImexProgress:
		e.syncLogin(ev.Account)
		return nil

	case translate.Connected:
		return e.refreshAll(ctx)

	case translate.MessagesChanged:
		return e.chatChanged(ctx, p.ChatID)

	case translate.MessageIncoming:
		e.logger.Debug("incoming message",
			zap.Uint32("account", ev.Account),
			zap.Uint32("chat", p.ChatID),
			zap.String("title", p.Title))
		return e.chatChanged(ctx, p.ChatID)

	case translate.Log:
		e.logger.Log(p.Level, p.Text, zap.Uint32("account", ev.Account))
		return nil

	default:
		return nil
	}
}

// chatChanged reloads the chat list, and the message list when chatID is
// the open chat.
func (e *Engine) chatChanged(ctx context.Context, chatID uint32) error {
	if err := e.refreshChatList(ctx); err != nil {
		return err
	}
	if sel, ok := e.selectedChat(); ok && sel == chatID {
		return e.refreshMessageList(ctx)
	}
	return nil
}

// syncLogin copies the tracker's Login value for id into the projection.
// Accounts absent from the projection are left alone.
func (e *Engine) syncLogin(id uint32) {
	l, ok := e.tracker.Get(id)
	if !ok {
		return
	}
	e.projection.Update(func(s *projection.State) {
		acc, exists := s.Shared.Accounts[id]
		if !exists {
			return
		}
		acc.Login = l
		s.Shared.Accounts[id] = acc
	})
}
