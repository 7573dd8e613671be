package views

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/dchat/internal/model"
	"github.com/matheus3301/dchat/internal/projection"
	"github.com/matheus3301/dchat/internal/texcache"
	"github.com/matheus3301/dchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// MessagePage is the number of earlier items requested at a time.
const MessagePage = 100

// MessageThread shows the selected chat and its composer.
type MessageThread struct {
	*tview.Flex
	theme    *ui.Theme
	avatar   *Avatar
	header   *tview.TextView
	messages *tview.TextView
	composer *tview.InputField
	now      func() time.Time

	rendered threadKey
	onSubmit func(text string)
}

// threadKey identifies what the message view currently shows, so an
// unchanged list is not redrawn and the scroll position survives repaints.
type threadKey struct {
	chat  uint32
	items int
	rng   model.Range
	last  string
}

func NewMessageThread(theme *ui.Theme, cache *texcache.Cache) *MessageThread {
	header := tview.NewTextView().SetDynamicColors(true)
	header.SetBackgroundColor(theme.BgColor)

	avatar := NewAvatar(cache, 4, 2)
	avatar.SetBackgroundColor(theme.BgColor)

	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0).
		SetPlaceholder("message, /file <path> [caption] or /image <path>")
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)

	top := tview.NewFlex().
		AddItem(avatar, 5, 0, false).
		AddItem(header, 0, 1, false)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(top, 2, 0, false).
		AddItem(messages, 0, 1, true).
		AddItem(composer, 3, 0, false)

	mt := &MessageThread{
		Flex:     flex,
		theme:    theme,
		avatar:   avatar,
		header:   header,
		messages: messages,
		composer: composer,
		now:      time.Now,
	}
	composer.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter || mt.onSubmit == nil {
			return
		}
		if text := composer.GetText(); strings.TrimSpace(text) != "" {
			mt.onSubmit(text)
			composer.SetText("")
		}
	})
	return mt
}

func (mt *MessageThread) Name() string { return "Chat" }

// SetOnSubmit sets the composer callback.
func (mt *MessageThread) SetOnSubmit(fn func(text string)) {
	mt.onSubmit = fn
}

// Messages returns the scrollable message view.
func (mt *MessageThread) Messages() *tview.TextView { return mt.messages }

// Composer returns the input field.
func (mt *MessageThread) Composer() *tview.InputField { return mt.composer }

func (mt *MessageThread) Render(s projection.State) {
	mt.renderHeader(s)

	l := s.MessageList
	key := threadKey{chat: l.ChatID, items: len(l.Items), rng: l.Range}
	if n := len(l.Messages); n > 0 && l.Messages[n-1].Message != nil {
		m := l.Messages[n-1].Message
		key.last = fmt.Sprintf("%d/%s", m.ID, m.State)
	}
	if key == mt.rendered {
		return
	}
	scrollToEnd := key.chat != mt.rendered.chat || key.items != mt.rendered.items
	mt.rendered = key

	mt.messages.Clear()
	_, _ = fmt.Fprint(mt.messages, mt.threadText(l))
	if scrollToEnd {
		mt.messages.ScrollToEnd()
	}
}

func (mt *MessageThread) renderHeader(s projection.State) {
	mt.header.Clear()
	c := s.Shared.SelectedChat
	if c == nil {
		mt.messages.SetTitle(" No chat selected ")
		mt.avatar.Set(texcache.Key{}, "", "", 0)
		return
	}
	var acc uint32
	if s.Shared.SelectedAccount != nil {
		acc = *s.Shared.SelectedAccount
	}
	mt.avatar.Set(texcache.Key{Account: acc, Kind: texcache.KindChat, ID: c.ID}, c.ProfileImage, c.Name, c.Color)
	mt.messages.SetTitle(" " + tview.Escape(oneLine(c.Name)) + " ")

	_, _ = fmt.Fprintf(mt.header, "[::b]%s[-:-:-]\n%s%s[-]", tview.Escape(oneLine(c.Name)), ui.Tag(mt.theme.DimColor), tview.Escape(chatSubtitle(*c)))
}

func chatSubtitle(c model.ChatSummary) string {
	var parts []string
	switch {
	case c.IsSelfTalk:
		parts = append(parts, "saved messages")
	case c.IsDeviceTalk:
		parts = append(parts, "device messages")
	case c.ChatType == model.ChatTypeGroup:
		parts = append(parts, fmt.Sprintf("%d members", c.MemberCount))
	default:
		parts = append(parts, c.Header)
	}
	if c.IsContactRequest {
		parts = append(parts, "contact request: c to accept, b to block")
	}
	if !c.CanSend && !c.IsContactRequest {
		parts = append(parts, "read only")
	}
	return strings.Join(parts, " | ")
}

func (mt *MessageThread) threadText(l model.MessageList) string {
	var b strings.Builder
	if l.Range.Start > 0 {
		fmt.Fprintf(&b, "%s  %d earlier items, press [ to load[-]\n", ui.Tag(mt.theme.DimColor), l.Range.Start)
	}
	now := mt.now()
	for _, cm := range l.Messages {
		if cm.IsDayMarker() {
			fmt.Fprintf(&b, "\n%s── %s ──[-]\n", ui.Tag(mt.theme.DayMarkerColor), dayLabel(cm.DayMarker, now))
			continue
		}
		mt.writeMessage(&b, cm.Message, now)
	}
	return b.String()
}

func (mt *MessageThread) writeMessage(b *strings.Builder, m *model.Message, now time.Time) {
	if m.IsInfo {
		fmt.Fprintf(b, "%s[::i]  %s[-:-:-]\n", ui.Tag(mt.theme.InfoMessageColor), tview.Escape(sanitize(m.Text)))
		return
	}
	if m.IsFirst {
		color := tcell.NewHexColor(int32(m.FromColor & 0xffffff))
		fmt.Fprintf(b, "\n%s[::b]%s[-:-:-] %s%s[-]\n", ui.Tag(color), tview.Escape(oneLine(m.FromName)), ui.Tag(mt.theme.DimColor), m.Timestamp.In(now.Location()).Format("15:04"))
	}
	if q := m.Quote; q != nil {
		fmt.Fprintf(b, "%s  │ %s[-]\n", ui.Tag(mt.theme.QuoteColor), tview.Escape(oneLine(quoteText(q))))
	}
	if m.Viewtype.HasFile() {
		fmt.Fprintf(b, "  %s%s[-]\n", ui.Tag(mt.theme.QuoteColor), tview.Escape(attachment(m)))
	}
	text := sanitize(m.Text)
	if text == "" && !m.Viewtype.HasFile() {
		text = "(empty)"
	}
	if text != "" {
		lines := strings.Split(text, "\n")
		for i, line := range lines {
			if i == len(lines)-1 && m.FromID == model.ContactSelf {
				line += " " + stateGlyph(m.State)
			}
			fmt.Fprintf(b, "  %s\n", tview.Escape(line))
		}
	}
}

func quoteText(q *model.Message) string {
	if q.Text != "" {
		return q.FromName + ": " + q.Text
	}
	return q.FromName + ": " + attachment(q)
}

// attachment describes a file message in one line, e.g.
// "[image cat.png 640x480]".
func attachment(m *model.Message) string {
	desc := m.Viewtype.String()
	if m.File != "" {
		desc += " " + filepath.Base(m.File)
	}
	if m.FileWidth > 0 && m.FileHeight > 0 {
		desc += fmt.Sprintf(" %dx%d", m.FileWidth, m.FileHeight)
	}
	return "[" + desc + "]"
}

func stateGlyph(state string) string {
	switch state {
	case model.StatePending:
		return "…"
	case model.StateDelivered:
		return "✓"
	case model.StateRead:
		return "✓✓"
	case model.StateFailed:
		return "✗"
	default:
		return ""
	}
}

func dayLabel(day, now time.Time) string {
	day = day.In(now.Location())
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	switch {
	case !day.Before(today):
		return "Today"
	case !day.Before(today.AddDate(0, 0, -1)):
		return "Yesterday"
	}
	return day.Format("Mon, 02 Jan 2006")
}

// earlierWindow extends l's window towards the start of the chat by
// MessagePage items.
func earlierWindow(l model.MessageList) (model.Range, bool) {
	if l.ChatID == 0 || l.Range.Start == 0 {
		return model.Range{}, false
	}
	return model.Range{Start: max(0, l.Range.Start-MessagePage), End: l.Range.End}, true
}

// EarlierWindow is earlierWindow for the list shown last.
func (mt *MessageThread) EarlierWindow(s projection.State) (model.Range, bool) {
	return earlierWindow(s.MessageList)
}
