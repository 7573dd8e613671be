package ui

import (
	"fmt"

	"github.com/matheus3301/dchat/internal/tui/keys"
	"github.com/rivo/tview"
)

// Menu lists the key bindings of the current page in columns.
type Menu struct {
	*tview.TextView
	theme *Theme
	rows  int
}

// NewMenu creates a menu that wraps into a new column every rows hints.
func NewMenu(theme *Theme, rows int) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 0)
	return &Menu{TextView: tv, theme: theme, rows: max(rows, 1)}
}

func (m *Menu) Update(hints []keys.Hint) {
	m.Clear()
	lines := make([]string, m.rows)
	for i, h := range hints {
		lines[i%m.rows] += fmt.Sprintf("[%s::b]<%s>[-:-:-] %-14s", ColorName(m.theme.MenuKeyColor), tview.Escape(h.Key), h.Description)
	}
	for _, l := range lines {
		_, _ = fmt.Fprintln(m, l)
	}
}
