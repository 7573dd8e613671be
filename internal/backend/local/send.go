package local

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matheus3301/dchat/internal/backend"
	"github.com/matheus3301/dchat/internal/model"
)

func newMessageID(addr string) string {
	domain := "localhost"
	if _, d, ok := strings.Cut(addr, "@"); ok && d != "" {
		domain = d
	}
	return uuid.NewString() + "@" + domain
}

func (b *Backend) sendable(ctx context.Context, account, chat uint32) (accountRow, chatRow, error) {
	acc, err := getAccount(ctx, b.db, account)
	if err != nil {
		return acc, chatRow{}, err
	}
	if !acc.Configured {
		return acc, chatRow{}, fmt.Errorf("account %d: %w", account, ErrNotConfigured)
	}
	c, err := getChat(ctx, b.db, account, chat)
	if err != nil {
		return acc, c, err
	}
	if !c.canSend() {
		return acc, c, fmt.Errorf("%w: chat %d", ErrCannotSend, chat)
	}
	return acc, c, nil
}

// send stores an outgoing message. Self-talk is delivered at once, other
// chats go through the outbox.
func (b *Backend) send(ctx context.Context, acc accountRow, c chatRow, m messageRow) error {
	m.AccountID = acc.ID
	m.ChatID = c.ID
	m.FromID = model.ContactSelf
	m.Rfc724Mid = newMessageID(acc.Addr)
	m.State = model.StatePending
	selfTalk := c.Kind == chatSelf
	if selfTalk {
		m.State = model.StateDelivered
	}

	var id uint32
	err := b.db.InTx(ctx, func(q querier) error {
		var err error
		if id, err = insertMessage(ctx, q, m); err != nil {
			return err
		}
		if selfTalk {
			return nil
		}
		return queueOutbox(ctx, q, acc.ID, id, c.ContactAddr)
	})
	if err != nil {
		return fmt.Errorf("store message: %w", err)
	}

	b.emit(backend.Event{Account: acc.ID, Kind: backend.KindMsgsChanged, ChatID: c.ID, MsgID: id})
	if selfTalk {
		b.emit(backend.Event{Account: acc.ID, Kind: backend.KindMsgDelivered, ChatID: c.ID, MsgID: id})
		return nil
	}
	b.sender.Wake()
	return nil
}

func (b *Backend) SendTextMessage(ctx context.Context, account, chat uint32, text string) error {
	acc, c, err := b.sendable(ctx, account, chat)
	if err != nil {
		return err
	}
	return b.send(ctx, acc, c, messageRow{Viewtype: model.ViewtypeText, Text: text})
}

func (b *Backend) SendFileMessage(ctx context.Context, account, chat uint32, file backend.FileMessage) error {
	if file.Path == "" {
		return errors.New("file path required")
	}
	acc, c, err := b.sendable(ctx, account, chat)
	if err != nil {
		return err
	}
	stored, err := b.storeBlob(file.Path)
	if err != nil {
		return err
	}

	m := messageRow{Viewtype: file.Viewtype, Text: file.Text, File: stored, FileMime: file.Mime}
	if m.FileMime == "" {
		m.FileMime = mime.TypeByExtension(filepath.Ext(stored))
	}
	if m.Viewtype == model.ViewtypeUnknown || m.Viewtype == model.ViewtypeText {
		m.Viewtype = guessViewtype(m.FileMime)
	}
	switch m.Viewtype {
	case model.ViewtypeImage, model.ViewtypeGif, model.ViewtypeSticker:
		if w, h, err := imageSize(stored); err == nil {
			m.FileWidth, m.FileHeight = w, h
		} else {
			b.logger.Debug("could not read image size", zap.String("file", stored), zap.Error(err))
		}
	}
	return b.send(ctx, acc, c, m)
}

func guessViewtype(mimeType string) model.Viewtype {
	switch {
	case mimeType == "image/gif":
		return model.ViewtypeGif
	case strings.HasPrefix(mimeType, "image/"):
		return model.ViewtypeImage
	case strings.HasPrefix(mimeType, "audio/"):
		return model.ViewtypeAudio
	case strings.HasPrefix(mimeType, "video/"):
		return model.ViewtypeVideo
	default:
		return model.ViewtypeFile
	}
}

func imageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = f.Close() }()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// storeBlob copies an attachment into the blob directory and returns the
// stored path. Without a blob directory the original path is kept.
func (b *Backend) storeBlob(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if b.opts.BlobDir == "" {
		if _, err := os.Stat(abs); err != nil {
			return "", fmt.Errorf("attachment: %w", err)
		}
		return abs, nil
	}

	src, err := os.Open(abs)
	if err != nil {
		return "", fmt.Errorf("attachment: %w", err)
	}
	defer func() { _ = src.Close() }()

	if err := os.MkdirAll(b.opts.BlobDir, 0700); err != nil {
		return "", err
	}
	dst := filepath.Join(b.opts.BlobDir, uuid.NewString()[:8]+"-"+filepath.Base(abs))
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return "", fmt.Errorf("create blob: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("copy blob: %w", err)
	}
	return dst, out.Close()
}

// CreateChat returns the 1:1 chat of account with addr, creating the
// contact and chat if needed. An existing contact request is accepted and
// a block is lifted.
func (b *Backend) CreateChat(ctx context.Context, account uint32, addr, name string) (uint32, error) {
	acc, err := getAccount(ctx, b.db, account)
	if err != nil {
		return 0, err
	}
	if !acc.Configured {
		return 0, fmt.Errorf("account %d: %w", account, ErrNotConfigured)
	}
	norm, err := normalizeAddr(addr)
	if err != nil {
		return 0, err
	}
	if norm == acc.Addr {
		id, ok, err := specialChat(ctx, b.db, account, chatSelf)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, fmt.Errorf("self chat of account %d: %w", account, ErrNotFound)
		}
		return id, nil
	}

	var id uint32
	err = b.db.InTx(ctx, func(q querier) error {
		contact, err := ensureContact(ctx, q, account, norm, name)
		if err != nil {
			return err
		}
		if contact.Blocked {
			if err := setContactBlocked(ctx, q, contact.ID, false); err != nil {
				return err
			}
		}
		existing, ok, err := chatByContact(ctx, q, account, contact.ID)
		if err != nil {
			return err
		}
		if !ok {
			id, err = insertChat(ctx, q, account, newChat{Kind: chatSingle, ContactID: contact.ID})
			return err
		}
		id = existing
		if err := setChatFlag(ctx, q, account, id, "contact_request", false); err != nil {
			return err
		}
		return setChatFlag(ctx, q, account, id, "blocked", false)
	})
	if err != nil {
		return 0, fmt.Errorf("create chat: %w", err)
	}
	b.emit(backend.Event{Account: account, Kind: backend.KindChatModified, ChatID: id})
	return id, nil
}
