package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/matheus3301/dchat/internal/backend"
	"github.com/matheus3301/dchat/internal/model"
)

const backupVersion = 1

// Sender kinds in a backup.
const (
	fromSelf    = "self"
	fromDevice  = "device"
	fromContact = "contact"
)

// Backup is the TOML document written by Export and read by Import.
type Backup struct {
	Version    int             `toml:"version"`
	ExportedAt time.Time       `toml:"exported_at"`
	Account    BackupAccount   `toml:"account"`
	Contacts   []BackupContact `toml:"contacts"`
	Chats      []BackupChat    `toml:"chats"`
}

type BackupAccount struct {
	Addr         string `toml:"addr"`
	DisplayName  string `toml:"display_name,omitempty"`
	ProfileImage string `toml:"profile_image,omitempty"`
}

type BackupContact struct {
	Addr    string `toml:"addr"`
	Name    string `toml:"name,omitempty"`
	Blocked bool   `toml:"blocked,omitempty"`
}

type BackupChat struct {
	Kind           string          `toml:"kind"`
	Contact        string          `toml:"contact,omitempty"`
	Name           string          `toml:"name,omitempty"`
	Pinned         bool            `toml:"pinned,omitempty"`
	Archived       bool            `toml:"archived,omitempty"`
	ContactRequest bool            `toml:"contact_request,omitempty"`
	Blocked        bool            `toml:"blocked,omitempty"`
	CreatedAt      time.Time       `toml:"created_at"`
	Messages       []BackupMessage `toml:"messages"`
}

type BackupMessage struct {
	MessageID  string    `toml:"message_id"`
	FromKind   string    `toml:"from_kind"`
	From       string    `toml:"from,omitempty"`
	Viewtype   string    `toml:"viewtype"`
	State      string    `toml:"state"`
	Text       string    `toml:"text,omitempty"`
	Quote      string    `toml:"quote,omitempty"`
	IsInfo     bool      `toml:"is_info,omitempty"`
	File       string    `toml:"file,omitempty"`
	FileMime   string    `toml:"file_mime,omitempty"`
	FileWidth  int       `toml:"file_width,omitempty"`
	FileHeight int       `toml:"file_height,omitempty"`
	Timestamp  time.Time `toml:"timestamp"`
}

// Export writes a backup of a configured account to path.
func (b *Backend) Export(ctx context.Context, account uint32, path string) error {
	bk, err := b.snapshot(ctx, account)
	if err != nil {
		return fmt.Errorf("export account %d: %w", account, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(bk)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	if encErr != nil {
		return fmt.Errorf("encode backup: %w", encErr)
	}
	b.logger.Info("account exported", zap.Uint32("account", account), zap.String("path", path))
	return nil
}

func (b *Backend) snapshot(ctx context.Context, account uint32) (*Backup, error) {
	acc, err := getAccount(ctx, b.db, account)
	if err != nil {
		return nil, err
	}
	if !acc.Configured {
		return nil, ErrNotConfigured
	}
	bk := &Backup{
		Version:    backupVersion,
		ExportedAt: time.Now().UTC(),
		Account:    BackupAccount{Addr: acc.Addr, DisplayName: acc.DisplayName, ProfileImage: acc.ProfileImage},
	}

	contacts, err := listContacts(ctx, b.db, account)
	if err != nil {
		return nil, err
	}
	addrByID := make(map[uint32]string, len(contacts))
	for _, c := range contacts {
		addrByID[c.ID] = c.Addr
		bk.Contacts = append(bk.Contacts, BackupContact{Addr: c.Addr, Name: c.Name, Blocked: c.Blocked})
	}

	chats, err := allChats(ctx, b.db, account)
	if err != nil {
		return nil, err
	}
	for _, c := range chats {
		bc := BackupChat{
			Kind:           c.Kind,
			Contact:        c.ContactAddr,
			Name:           c.Name,
			Pinned:         c.Pinned,
			Archived:       c.Archived,
			ContactRequest: c.ContactRequest,
			Blocked:        c.Blocked,
			CreatedAt:      time.UnixMilli(c.CreatedAt).UTC(),
		}
		msgs, err := chatMessages(ctx, b.db, c.ID)
		if err != nil {
			return nil, err
		}
		midByID := make(map[uint32]string, len(msgs))
		for _, m := range msgs {
			midByID[m.ID] = m.Rfc724Mid
		}
		for _, m := range msgs {
			bm := BackupMessage{
				MessageID:  m.Rfc724Mid,
				Viewtype:   m.Viewtype.String(),
				State:      m.State,
				Text:       m.Text,
				Quote:      midByID[m.QuoteID],
				IsInfo:     m.IsInfo,
				File:       m.File,
				FileMime:   m.FileMime,
				FileWidth:  m.FileWidth,
				FileHeight: m.FileHeight,
				Timestamp:  m.time().UTC(),
			}
			switch m.FromID {
			case model.ContactSelf:
				bm.FromKind = fromSelf
			case model.ContactDevice:
				bm.FromKind = fromDevice
			default:
				bm.FromKind = fromContact
				bm.From = addrByID[m.FromID]
			}
			bc.Messages = append(bc.Messages, bm)
		}
		bk.Chats = append(bk.Chats, bc)
	}
	return bk, nil
}

// Import restores a backup into an unconfigured account. Progress is
// reported through imex_progress events.
func (b *Backend) Import(ctx context.Context, account uint32, path string) error {
	j := job{b: b, account: account, kind: backend.KindImexProgress}
	if err := b.restore(ctx, j, path); err != nil {
		return j.fail(fmt.Errorf("import account %d: %w", account, err))
	}
	b.logger.Info("account imported", zap.Uint32("account", account), zap.String("path", path))
	j.done()
	return nil
}

func (b *Backend) restore(ctx context.Context, j job, path string) error {
	j.progress(100)
	acc, err := getAccount(ctx, b.db, j.account)
	if err != nil {
		return err
	}
	if acc.Configured {
		return ErrAlreadyConfigured
	}
	var bk Backup
	if _, err := toml.DecodeFile(path, &bk); err != nil {
		return fmt.Errorf("read backup: %w", err)
	}

	j.progress(300)
	if bk.Version != backupVersion {
		return fmt.Errorf("unsupported backup version %d", bk.Version)
	}
	addr, err := normalizeAddr(bk.Account.Addr)
	if err != nil {
		return err
	}
	if other, found, err := configuredAccountByAddr(ctx, b.db, addr, j.account); err != nil {
		return err
	} else if found {
		return fmt.Errorf("%w: %s is account %d", ErrDuplicateAccount, addr, other)
	}

	j.progress(500)
	err = b.db.InTx(ctx, func(q querier) error {
		if err := restoreData(ctx, q, j.account, &bk); err != nil {
			return err
		}
		j.progress(800)
		if err := markConfigured(ctx, q, j.account, addr, bk.Account.DisplayName, bk.Account.ProfileImage); err != nil {
			return err
		}
		return createSpecialChats(ctx, q, j.account)
	})
	return err
}

func restoreData(ctx context.Context, q querier, account uint32, bk *Backup) error {
	contactIDs := make(map[string]uint32, len(bk.Contacts))
	for _, c := range bk.Contacts {
		row, err := ensureContact(ctx, q, account, c.Addr, c.Name)
		if err != nil {
			return fmt.Errorf("contact %s: %w", c.Addr, err)
		}
		if c.Blocked {
			if err := setContactBlocked(ctx, q, row.ID, true); err != nil {
				return err
			}
		}
		contactIDs[c.Addr] = row.ID
	}
	contactID := func(addr string) (uint32, error) {
		if id, ok := contactIDs[addr]; ok {
			return id, nil
		}
		row, err := ensureContact(ctx, q, account, addr, "")
		if err != nil {
			return 0, err
		}
		contactIDs[addr] = row.ID
		return row.ID, nil
	}

	for _, c := range bk.Chats {
		nc := newChat{
			Kind:           c.Kind,
			Name:           c.Name,
			Pinned:         c.Pinned,
			Archived:       c.Archived,
			ContactRequest: c.ContactRequest,
			Blocked:        c.Blocked,
			CreatedAt:      c.CreatedAt.UnixMilli(),
		}
		switch c.Kind {
		case chatSingle:
			id, err := contactID(c.Contact)
			if err != nil {
				return err
			}
			nc.ContactID = id
		case chatSelf, chatDevice:
		default:
			return fmt.Errorf("unknown chat kind %q", c.Kind)
		}
		chatID, err := insertChat(ctx, q, account, nc)
		if err != nil {
			return fmt.Errorf("chat %q: %w", c.Name, err)
		}

		idByMid := make(map[string]uint32, len(c.Messages))
		var quoted []BackupMessage
		for _, m := range c.Messages {
			row := messageRow{
				AccountID:  account,
				ChatID:     chatID,
				Rfc724Mid:  m.MessageID,
				Viewtype:   model.ParseViewtype(m.Viewtype),
				State:      m.State,
				Text:       m.Text,
				IsInfo:     m.IsInfo,
				File:       m.File,
				FileMime:   m.FileMime,
				FileWidth:  m.FileWidth,
				FileHeight: m.FileHeight,
				Timestamp:  m.Timestamp.UnixMilli(),
			}
			switch m.FromKind {
			case fromSelf:
				row.FromID = model.ContactSelf
			case fromDevice:
				row.FromID = model.ContactDevice
			case fromContact:
				if row.FromID, err = contactID(m.From); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown sender kind %q", m.FromKind)
			}
			id, err := insertMessage(ctx, q, row)
			if err != nil {
				return fmt.Errorf("message %s: %w", m.MessageID, err)
			}
			if m.MessageID != "" {
				idByMid[m.MessageID] = id
			}
			if m.Quote != "" {
				quoted = append(quoted, m)
			}
		}
		for _, m := range quoted {
			id, quote := idByMid[m.MessageID], idByMid[m.Quote]
			if id == 0 || quote == 0 {
				continue
			}
			if err := setQuote(ctx, q, id, quote); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadBackup decodes a backup file without importing it.
func ReadBackup(path string) (*Backup, error) {
	var bk Backup
	if _, err := toml.DecodeFile(path, &bk); err != nil {
		return nil, err
	}
	if bk.Version == 0 {
		return nil, errors.New("not a dchat backup")
	}
	return &bk, nil
}
