package local

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matheus3301/dchat/internal/model"
)

const (
	selfChatName   = "Saved messages"
	deviceChatName = "Device messages"
	deviceName     = "Device"
	selfName       = "Me"
)

func chatDisplayName(c chatRow) string {
	switch c.Kind {
	case chatSelf:
		return selfChatName
	case chatDevice:
		return deviceChatName
	}
	switch {
	case c.Name != "":
		return c.Name
	case c.ContactName != "":
		return c.ContactName
	default:
		return c.ContactAddr
	}
}

func memberCount(c chatRow) int {
	if c.Kind == chatSingle {
		return 2
	}
	return 1
}

func previewText(m messageRow) string {
	if !m.Viewtype.HasFile() {
		return m.Text
	}
	if m.Text == "" {
		return "[" + m.Viewtype.String() + "]"
	}
	return fmt.Sprintf("[%s] %s", m.Viewtype, m.Text)
}

// chatSummary renders one chat row for the sidebar.
func chatSummary(ctx context.Context, q querier, acc accountRow, c chatRow, index *int) (model.ChatSummary, error) {
	s := model.ChatSummary{
		Index:            index,
		ID:               c.ID,
		Name:             chatDisplayName(c),
		Timestamp:        time.UnixMilli(c.CreatedAt),
		CanSend:          c.canSend(),
		IsContactRequest: c.ContactRequest,
		IsSelfTalk:       c.Kind == chatSelf,
		IsDeviceTalk:     c.Kind == chatDevice,
		ChatType:         model.ChatTypeSingle,
		MemberCount:      memberCount(c),
		IsPinned:         c.Pinned,
		IsArchived:       c.Archived,
	}
	switch c.Kind {
	case chatSelf:
		s.Color = addrColor(acc.Addr)
		s.ProfileImage = acc.ProfileImage
	case chatDevice:
		s.Color = deviceColor
	default:
		s.Color = addrColor(c.ContactAddr)
	}

	last, ok, err := lastMessage(ctx, q, c.ID)
	if err != nil {
		return s, fmt.Errorf("last message of chat %d: %w", c.ID, err)
	}
	if ok {
		s.Preview = previewText(last)
		s.State = last.State
		s.Timestamp = last.time()
		if last.FromID == model.ContactSelf && c.Kind != chatSelf && !last.IsInfo {
			s.Header = selfName
		}
	}

	if s.FreshMsgCount, err = freshCount(ctx, q, c.ID); err != nil {
		return s, fmt.Errorf("fresh count of chat %d: %w", c.ID, err)
	}
	return s, nil
}

// windowRange resolves an optional window over n items. The default
// selects the last def items when tail is set, else the first def.
func windowRange(w model.Window, n, def int, tail bool) model.Range {
	if w != nil {
		return w.Clamp(n)
	}
	if tail {
		return model.Range{Start: max(0, n-def), End: n}
	}
	return model.Range{Start: 0, End: min(def, n)}
}

// indexEntry pairs a chat item with its message metadata; stub is nil for
// day markers.
type indexEntry struct {
	item model.ChatItem
	stub *messageStub
}

// buildIndex inserts a day marker before the first message of every local
// calendar day.
func buildIndex(stubs []messageStub, loc *time.Location) []indexEntry {
	idx := make([]indexEntry, 0, len(stubs)+len(stubs)/8+1)
	var lastDay time.Time
	for i := range stubs {
		ts := time.UnixMilli(stubs[i].Timestamp).In(loc)
		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, loc)
		if !day.Equal(lastDay) {
			idx = append(idx, indexEntry{item: model.ChatItem{DayMarker: day}})
			lastDay = day
		}
		idx = append(idx, indexEntry{item: model.ChatItem{MsgID: stubs[i].ID}, stub: &stubs[i]})
	}
	return idx
}

// firstInGroup reports whether the message at i starts a new visual group.
func firstInGroup(idx []indexEntry, i int) bool {
	cur := idx[i].stub
	if cur == nil || cur.IsInfo || i == 0 {
		return true
	}
	prev := idx[i-1].stub
	return prev == nil || prev.IsInfo || prev.FromID != cur.FromID
}

// sender resolves display attributes of message authors, caching contacts.
type sender struct {
	acc      accountRow
	contacts map[uint32]contactRow
}

func newSender(acc accountRow) *sender {
	return &sender{acc: acc, contacts: make(map[uint32]contactRow)}
}

func (s *sender) fill(ctx context.Context, q querier, m *model.Message) error {
	switch m.FromID {
	case model.ContactSelf:
		m.FromName = selfName
		if s.acc.DisplayName != "" {
			m.FromName = s.acc.DisplayName
		}
		m.FromProfileImage = s.acc.ProfileImage
		m.FromColor = addrColor(s.acc.Addr)
	case model.ContactDevice:
		m.FromName = deviceName
		m.FromColor = deviceColor
	default:
		c, ok := s.contacts[m.FromID]
		if !ok {
			var err error
			if c, err = getContact(ctx, q, m.FromID); err != nil {
				return err
			}
			s.contacts[m.FromID] = c
		}
		m.FromName = c.label()
		m.FromColor = addrColor(c.Addr)
	}
	return nil
}

func toModelMessage(m messageRow) model.Message {
	return model.Message{
		ID:         m.ID,
		ChatID:     m.ChatID,
		FromID:     m.FromID,
		Viewtype:   m.Viewtype,
		State:      m.State,
		Text:       m.Text,
		Timestamp:  m.time(),
		IsInfo:     m.IsInfo,
		File:       m.File,
		FileMime:   m.FileMime,
		FileWidth:  m.FileWidth,
		FileHeight: m.FileHeight,
	}
}

// loadMessage materializes a message with its quote resolved one level deep.
func loadMessage(ctx context.Context, q querier, snd *sender, m messageRow) (model.Message, error) {
	msg := toModelMessage(m)
	if err := snd.fill(ctx, q, &msg); err != nil {
		return msg, err
	}
	if m.QuoteID != 0 {
		qm, err := getMessage(ctx, q, m.AccountID, m.QuoteID)
		switch {
		case errors.Is(err, ErrNotFound):
			// Quoted message was deleted.
		case err != nil:
			return msg, err
		default:
			quote := toModelMessage(qm)
			if err := snd.fill(ctx, q, &quote); err != nil {
				return msg, err
			}
			msg.Quote = &quote
		}
	}
	return msg, nil
}
