package ui

import (
	"fmt"

	"github.com/matheus3301/dchat/internal/projection"
	"github.com/rivo/tview"
)

// AccountInfo is the header panel describing the selected account.
type AccountInfo struct {
	*tview.TextView
	theme   *Theme
	profile string
}

func NewAccountInfo(theme *Theme, profile string) *AccountInfo {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)
	return &AccountInfo{TextView: tv, theme: theme, profile: profile}
}

func (ai *AccountInfo) Render(s projection.State) {
	ai.Clear()
	label := func(name, value string) {
		_, _ = fmt.Fprintf(ai, "%s[::b]%-8s[-:-:-] %s%s[-]\n", Tag(ai.theme.FgColor), name, Tag(ai.theme.CounterColor), value)
	}

	label("Profile:", tview.Escape(ai.profile))
	if s.Shared.SelectedAccount == nil {
		label("Account:", "-")
		return
	}
	id := *s.Shared.SelectedAccount
	acc := s.Shared.Accounts[id]
	label("Account:", fmt.Sprintf("%d %s", id, tview.Escape(acc.Label())))
	_, _ = fmt.Fprintf(ai, "%s[::b]%-8s[-:-:-] %s%s[-]\n", Tag(ai.theme.FgColor), "Login:", Tag(ai.theme.LoginColor(acc.Login)), tview.Escape(acc.Login.String()))
	label("Chats:", fmt.Sprintf("%d", s.ChatList.Len))
	if n := len(s.Shared.Errors); n > 0 {
		label("Errors:", fmt.Sprintf("%d", n))
	}
}
