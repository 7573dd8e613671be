package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// NewLogo returns the header logo.
func NewLogo(theme *Theme) *tview.TextView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignRight)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 0, 1)

	title := ColorName(theme.TitleColor)
	_, _ = fmt.Fprintf(tv,
		"[%[1]s::b]     _      _         _   [-:-:-]\n"+
			"[%[1]s::b]  __| | ___| |__  __ _| |_ [-:-:-]\n"+
			"[%[1]s::b] / _` |/ __| '_ \\/ _` | __|[-:-:-]\n"+
			"[%[1]s::b] \\__,_|\\___|_| |_\\__,_|\\__|[-:-:-]",
		title)
	return tv
}
