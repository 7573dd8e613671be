package views

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/dchat/internal/model"
	"github.com/matheus3301/dchat/internal/projection"
	"github.com/matheus3301/dchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// ChatPage is the number of chats requested per window extension.
const ChatPage = 50

// ChatList is the table of the selected account's chats.
type ChatList struct {
	*tview.Table
	theme  *ui.Theme
	now    func() time.Time
	filter string

	list     model.ChatList
	selected *uint32
	visible  []model.ChatSummary

	requested  int
	onNeedMore func(window model.Range)
}

func NewChatList(theme *ui.Theme) *ChatList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetTitleColor(theme.TitleColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))

	cl := &ChatList{Table: table, theme: theme, now: time.Now}
	table.SetSelectionChangedFunc(func(row, _ int) { cl.maybeLoadMore(row) })
	return cl
}

func (cl *ChatList) Name() string { return "Chats" }

// SetOnNeedMore is called with a larger window when the cursor gets close
// to the last loaded chat.
func (cl *ChatList) SetOnNeedMore(fn func(window model.Range)) {
	cl.onNeedMore = fn
}

// SetFilter shows only chats whose name or preview contain filter.
func (cl *ChatList) SetFilter(filter string) {
	cl.filter = filter
	cl.render()
}

func (cl *ChatList) Filter() string { return cl.filter }

func (cl *ChatList) Render(s projection.State) {
	if s.ChatList.Range.End < cl.requested {
		// A reload with a smaller window, e.g. after an account switch.
		cl.requested = s.ChatList.Range.End
	}
	cl.list = s.ChatList
	cl.selected = s.Shared.SelectedChatID
	cl.render()
}

func (cl *ChatList) render() {
	prev, hadPrev := cl.SelectedChat()
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{{"", 0}, {" NAME", 1}, {" LAST MESSAGE", 2}, {" TIME", 0}}
	for col, h := range headers {
		cl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	now := cl.now()
	cl.visible = cl.visible[:0]
	for _, c := range cl.list.Chats {
		if cl.filter != "" && !containsFold(c.Name, cl.filter) && !containsFold(c.Preview, cl.filter) {
			continue
		}
		cl.visible = append(cl.visible, c)
		row := len(cl.visible)

		name := oneLine(c.Name)
		if c.FreshMsgCount > 0 {
			name = fmt.Sprintf("%s (%d)", name, c.FreshMsgCount)
		}
		fg := cl.theme.FgColor
		switch {
		case c.FreshMsgCount > 0:
			fg = cl.theme.FreshColor
		case c.IsArchived:
			fg = cl.theme.DimColor
		}
		cursor := " "
		if cl.selected != nil && *cl.selected == c.ID {
			cursor = "▶"
		}

		cl.SetCell(row, 0, tview.NewTableCell(cursor+cl.markers(c)))
		cl.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(name)).SetExpansion(1).SetMaxWidth(32).SetTextColor(fg))
		cl.SetCell(row, 2, tview.NewTableCell(" "+tview.Escape(oneLine(c.Preview))).SetExpansion(2).SetMaxWidth(60).SetTextColor(cl.theme.DimColor))
		cl.SetCell(row, 3, tview.NewTableCell(formatTimestamp(c.Timestamp, now)).SetAlign(tview.AlignRight).SetTextColor(cl.theme.DimColor))
	}

	title := fmt.Sprintf(" Chats (%d/%d) ", cl.list.Range.End, cl.list.Len)
	if cl.filter != "" {
		title = fmt.Sprintf(" Chats (%d) filter: %s ", len(cl.visible), tview.Escape(cl.filter))
	}
	if n := fresh(cl.list); n != "" {
		title += fmt.Sprintf("%s%s new[-] ", ui.Tag(cl.theme.FreshColor), n)
	}
	cl.SetTitle(title)

	row := 1
	if hadPrev {
		for i, c := range cl.visible {
			if c.ID == prev.ID {
				row = i + 1
				break
			}
		}
	}
	if len(cl.visible) > 0 {
		cl.Select(row, 0)
	}
}

func (cl *ChatList) markers(c model.ChatSummary) string {
	var m string
	if c.IsPinned {
		m += ui.Tag(cl.theme.PinnedColor) + "P[-]"
	}
	if c.IsContactRequest {
		m += ui.Tag(cl.theme.RequestColor) + "?[-]"
	}
	if c.IsArchived {
		m += ui.Tag(cl.theme.DimColor) + "A[-]"
	}
	return m
}

// SelectedChat returns the chat under the cursor.
func (cl *ChatList) SelectedChat() (model.ChatSummary, bool) {
	row, _ := cl.GetSelection()
	if row < 1 || row > len(cl.visible) {
		return model.ChatSummary{}, false
	}
	return cl.visible[row-1], true
}

// ChatAt returns the n-th visible chat, counting from 1.
func (cl *ChatList) ChatAt(n int) (model.ChatSummary, bool) {
	if n < 1 || n > len(cl.visible) {
		return model.ChatSummary{}, false
	}
	return cl.visible[n-1], true
}

func (cl *ChatList) maybeLoadMore(row int) {
	if cl.onNeedMore == nil || cl.filter != "" {
		return
	}
	w, ok := nextChatWindow(cl.list, row-1, cl.requested)
	if !ok {
		return
	}
	cl.requested = w.End
	cl.onNeedMore(w)
}

// nextChatWindow returns a larger window when index is within a few rows
// of the end of the loaded range and more chats exist than have been
// requested.
func nextChatWindow(l model.ChatList, index, requested int) (model.Range, bool) {
	if l.Range.End >= l.Len || index < l.Range.End-5 {
		return model.Range{}, false
	}
	end := min(l.Range.End+ChatPage, l.Len)
	if end <= requested {
		return model.Range{}, false
	}
	return model.Range{Start: 0, End: end}, true
}

// fresh returns the total fresh message count as a short label.
func fresh(l model.ChatList) string {
	n := 0
	for _, c := range l.Chats {
		n += c.FreshMsgCount
	}
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}
