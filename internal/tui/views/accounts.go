package views

import (
	"fmt"
	"maps"
	"slices"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/dchat/internal/projection"
	"github.com/matheus3301/dchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// AccountList is the table of all accounts of the profile.
type AccountList struct {
	*tview.Table
	theme *ui.Theme
	ids   []uint32
}

func NewAccountList(theme *ui.Theme) *AccountList {
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
	return &AccountList{Table: table, theme: theme}
}

func (al *AccountList) Name() string { return "Accounts" }

func (al *AccountList) Render(s projection.State) {
	prev, hadPrev := al.SelectedAccount()
	al.Clear()

	for col, h := range []string{"", " ID", " ADDRESS", " NAME", " LOGIN"} {
		cell := tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(al.theme.TableHeaderFg).
			SetAttributes(tcell.AttrBold)
		if col == 2 || col == 3 {
			cell.SetExpansion(1)
		}
		al.SetCell(0, col, cell)
	}

	al.ids = slices.Sorted(maps.Keys(s.Shared.Accounts))
	row := 1
	for i, id := range al.ids {
		acc := s.Shared.Accounts[id]
		marker := " "
		if s.Shared.IsSelectedAccount(id) {
			marker = "*"
		}
		if hadPrev && id == prev {
			row = i + 1
		}
		al.SetCell(i+1, 0, tview.NewTableCell(marker).SetTextColor(al.theme.PinnedColor))
		al.SetCell(i+1, 1, tview.NewTableCell(fmt.Sprintf(" %d", id)).SetTextColor(al.theme.FgColor))
		al.SetCell(i+1, 2, tview.NewTableCell(" "+tview.Escape(acc.Email)).SetTextColor(al.theme.FgColor))
		al.SetCell(i+1, 3, tview.NewTableCell(" "+tview.Escape(oneLine(acc.DisplayName))).SetTextColor(al.theme.FgColor))
		al.SetCell(i+1, 4, tview.NewTableCell(" "+tview.Escape(acc.Login.String())).SetTextColor(al.theme.LoginColor(acc.Login)))
	}
	al.SetTitle(fmt.Sprintf(" Accounts (%d) ", len(al.ids)))
	if len(al.ids) > 0 {
		al.Select(row, 0)
	}
}

// SelectedAccount returns the account under the cursor.
func (al *AccountList) SelectedAccount() (uint32, bool) {
	row, _ := al.GetSelection()
	if row < 1 || row > len(al.ids) {
		return 0, false
	}
	return al.ids[row-1], true
}

// AccountAt returns the n-th account by id, counting from 1.
func (al *AccountList) AccountAt(n int) (uint32, bool) {
	if n < 1 || n > len(al.ids) {
		return 0, false
	}
	return al.ids[n-1], true
}
