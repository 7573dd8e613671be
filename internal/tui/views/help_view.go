package views

import (
	"fmt"

	"github.com/matheus3301/dchat/internal/projection"
	"github.com/matheus3301/dchat/internal/tui/keys"
	"github.com/matheus3301/dchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpSection is one block of the help page.
type HelpSection struct {
	Title string
	Hints []keys.Hint
}

// HelpView lists key bindings and prompt commands.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)
	return &HelpView{TextView: tv, theme: theme}
}

func (hv *HelpView) Name() string { return "Help" }

func (hv *HelpView) Render(projection.State) {}

// SetSections replaces the help text.
func (hv *HelpView) SetSections(sections []HelpSection) {
	hv.Clear()
	kc := ui.ColorName(hv.theme.MenuKeyColor)
	for _, s := range sections {
		_, _ = fmt.Fprintf(hv, "\n  [::b]%s[-:-:-]\n\n", s.Title)
		for _, h := range s.Hints {
			_, _ = fmt.Fprintf(hv, "  [%s]%-24s[-] %s\n", kc, tview.Escape(h.Key), h.Description)
		}
	}
	hv.ScrollToBeginning()
}
