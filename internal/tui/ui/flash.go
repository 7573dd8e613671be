package ui

import (
	"fmt"
	"time"

	"github.com/matheus3301/dchat/internal/tui/model"
	"github.com/rivo/tview"
)

// StatusBar is the bottom line: the current flash message on the left,
// the clock on the right.
type StatusBar struct {
	*tview.TextView
	theme *Theme
	now   func() time.Time
}

func NewStatusBar(theme *Theme) *StatusBar {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	return &StatusBar{TextView: tv, theme: theme, now: time.Now}
}

// Update renders msg, which may be nil.
func (sb *StatusBar) Update(msg *model.FlashMessage) {
	sb.Clear()
	_, _ = fmt.Fprintf(sb, "%s%s[-] ", Tag(sb.theme.DimColor), sb.now().Format("15:04"))
	if msg == nil {
		return
	}
	color := sb.theme.FlashInfoColor
	switch msg.Level {
	case model.FlashWarn:
		color = sb.theme.FlashWarnColor
	case model.FlashErr:
		color = sb.theme.FlashErrColor
	}
	_, _ = fmt.Fprintf(sb, "%s%s[-]", Tag(color), tview.Escape(msg.Text))
}
