package local

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/matheus3301/dchat/internal/backend"
	"github.com/matheus3301/dchat/internal/model"
	"github.com/matheus3301/dchat/internal/outbox"
)

// outboxQueue exposes the outbox table to the sender and reports delivery
// state changes as backend events.
type outboxQueue struct{ b *Backend }

func (o outboxQueue) Pending(ctx context.Context) ([]outbox.Entry, error) {
	return pendingOutbox(ctx, o.b.db)
}

func (o outboxQueue) MarkSending(ctx context.Context, e outbox.Entry) error {
	return setOutboxStatus(ctx, o.b.db, e.ID, outboxSending, "")
}

func (o outboxQueue) MarkSent(ctx context.Context, e outbox.Entry) error {
	err := o.b.db.InTx(ctx, func(q querier) error {
		if err := setOutboxStatus(ctx, q, e.ID, outboxSent, ""); err != nil {
			return err
		}
		return setMessageState(ctx, q, e.MsgID, model.StateDelivered)
	})
	if err != nil {
		return err
	}
	o.b.emit(backend.Event{Account: e.Account, Kind: backend.KindMsgDelivered, ChatID: e.ChatID, MsgID: e.MsgID})
	return nil
}

func (o outboxQueue) MarkFailed(ctx context.Context, e outbox.Entry, reason string) error {
	err := o.b.db.InTx(ctx, func(q querier) error {
		if err := setOutboxStatus(ctx, q, e.ID, outboxFailed, reason); err != nil {
			return err
		}
		return setMessageState(ctx, q, e.MsgID, model.StateFailed)
	})
	if err != nil {
		return err
	}
	o.b.emit(backend.Event{Account: e.Account, Kind: backend.KindMsgFailed, ChatID: e.ChatID, MsgID: e.MsgID})
	o.b.emit(backend.Event{Account: e.Account, Kind: backend.KindWarning, Text: fmt.Sprintf("message %d not delivered: %s", e.MsgID, reason)})
	return nil
}

// loopback delivers messages between configured accounts of the same store.
type loopback struct{ b *Backend }

func (l loopback) Deliver(ctx context.Context, e outbox.Entry) error {
	b := l.b
	to, found, err := configuredAccountByAddr(ctx, b.db, e.Recipient, e.Account)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNoRoute, e.Recipient)
	}
	from, err := getAccount(ctx, b.db, e.Account)
	if err != nil {
		return err
	}
	orig, err := getMessage(ctx, b.db, e.Account, e.MsgID)
	if err != nil {
		return err
	}

	var chatID, msgID uint32
	err = b.db.InTx(ctx, func(q querier) error {
		contact, err := ensureContact(ctx, q, to, from.Addr, from.DisplayName)
		if err != nil {
			return err
		}
		if contact.Blocked {
			return errBlocked
		}
		id, ok, err := chatByContact(ctx, q, to, contact.ID)
		if err != nil {
			return err
		}
		if !ok {
			if id, err = insertChat(ctx, q, to, newChat{Kind: chatSingle, ContactID: contact.ID, ContactRequest: true}); err != nil {
				return err
			}
		}
		chatID = id
		msgID, err = insertMessage(ctx, q, messageRow{
			AccountID:  to,
			ChatID:     id,
			FromID:     contact.ID,
			Rfc724Mid:  orig.Rfc724Mid,
			Viewtype:   orig.Viewtype,
			State:      model.StateFresh,
			Text:       orig.Text,
			File:       orig.File,
			FileMime:   orig.FileMime,
			FileWidth:  orig.FileWidth,
			FileHeight: orig.FileHeight,
			Timestamp:  orig.Timestamp,
		})
		return err
	})
	if errors.Is(err, errBlocked) {
		b.logger.Debug("dropped message from blocked sender", zap.Uint32("account", to), zap.String("from", from.Addr))
		return nil
	}
	if err != nil {
		return fmt.Errorf("deliver to account %d: %w", to, err)
	}
	b.emit(backend.Event{Account: to, Kind: backend.KindIncomingMsg, ChatID: chatID, MsgID: msgID})
	return nil
}

var errBlocked = errors.New("sender blocked")
