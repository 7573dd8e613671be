package local

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/matheus3301/dchat/internal/backend"
	"github.com/matheus3301/dchat/internal/model"
)

const (
	selfChatNote  = "Messages I send to myself."
	deviceWelcome = "Welcome to dchat! Messages from other accounts of this profile arrive through the local loopback transport."
)

// job emits progress for one configure or import run.
type job struct {
	b       *Backend
	account uint32
	kind    backend.Kind
}

func (j job) progress(p int) {
	j.b.emit(backend.Event{Account: j.account, Kind: j.kind, Progress: p})
}

// fail reports err and signals failure with progress 0.
func (j job) fail(err error) error {
	j.b.logger.Warn("account job failed", zap.Uint32("account", j.account), zap.String("kind", string(j.kind)), zap.Error(err))
	j.b.emitError(j.account, err)
	j.progress(0)
	return err
}

// done signals success and, with IO running, connectivity.
func (j job) done() {
	j.progress(model.ProgressDone)
	if j.b.io() {
		j.b.announceAccount(j.account)
	}
}

func normalizeAddr(s string) (string, error) {
	a, err := mail.ParseAddress(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return strings.ToLower(a.Address), nil
}

// Login configures an unconfigured account with an address and password.
// Progress is reported through configure_progress events.
func (b *Backend) Login(ctx context.Context, id uint32, email, password string) error {
	j := job{b: b, account: id, kind: backend.KindConfigureProgress}
	if err := b.configure(ctx, j, email, password); err != nil {
		return j.fail(fmt.Errorf("configure account %d: %w", id, err))
	}
	b.logger.Info("account configured", zap.Uint32("account", id))
	j.done()
	return nil
}

func (b *Backend) configure(ctx context.Context, j job, email, password string) error {
	j.progress(100)
	acc, err := getAccount(ctx, b.db, j.account)
	if err != nil {
		return err
	}
	if acc.Configured {
		return ErrAlreadyConfigured
	}
	addr, err := normalizeAddr(email)
	if err != nil {
		return err
	}

	j.progress(300)
	if other, found, err := configuredAccountByAddr(ctx, b.db, addr, j.account); err != nil {
		return err
	} else if found {
		return fmt.Errorf("%w: %s is account %d", ErrDuplicateAccount, addr, other)
	}
	if password == "" {
		return errors.New("password required")
	}

	j.progress(500)
	if err := b.secrets.Set(j.account, password); err != nil {
		return err
	}

	j.progress(800)
	err = b.db.InTx(ctx, func(q querier) error {
		if err := markConfigured(ctx, q, j.account, addr, acc.DisplayName, acc.ProfileImage); err != nil {
			return err
		}
		return createSpecialChats(ctx, q, j.account)
	})
	if err != nil {
		_ = b.secrets.Delete(j.account)
		return err
	}
	return nil
}

// createSpecialChats adds the self-talk and device chats if missing.
func createSpecialChats(ctx context.Context, q querier, account uint32) error {
	if _, ok, err := specialChat(ctx, q, account, chatSelf); err != nil {
		return err
	} else if !ok {
		id, err := insertChat(ctx, q, account, newChat{Kind: chatSelf})
		if err != nil {
			return fmt.Errorf("create self chat: %w", err)
		}
		if _, err := insertMessage(ctx, q, messageRow{
			AccountID: account, ChatID: id, FromID: model.ContactSelf,
			State: model.StateSeen, Text: selfChatNote, IsInfo: true,
		}); err != nil {
			return err
		}
	}

	if _, ok, err := specialChat(ctx, q, account, chatDevice); err != nil {
		return err
	} else if !ok {
		id, err := insertChat(ctx, q, account, newChat{Kind: chatDevice})
		if err != nil {
			return fmt.Errorf("create device chat: %w", err)
		}
		if _, err := insertMessage(ctx, q, messageRow{
			AccountID: account, ChatID: id, FromID: model.ContactDevice,
			State: model.StateFresh, Text: deviceWelcome,
		}); err != nil {
			return err
		}
	}
	return nil
}
