package views

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/matheus3301/dchat/internal/model"
	"github.com/matheus3301/dchat/internal/projection"
	"github.com/matheus3301/dchat/internal/texcache"
	"github.com/matheus3301/dchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// AccountDetail shows one account: avatar, address, login state and a QR
// code others can scan to start a chat.
type AccountDetail struct {
	*tview.Flex
	theme  *ui.Theme
	avatar *Avatar
	info   *tview.TextView
	qr     *tview.TextView
	shown  string
}

func NewAccountDetail(theme *ui.Theme, cache *texcache.Cache) *AccountDetail {
	avatar := NewAvatar(cache, 16, 8)
	avatar.SetBackgroundColor(theme.BgColor)

	info := tview.NewTextView().SetDynamicColors(true)
	info.SetBackgroundColor(theme.BgColor)
	info.SetTextColor(theme.FgColor)

	qr := tview.NewTextView().SetTextAlign(tview.AlignCenter)
	qr.SetBackgroundColor(theme.BgColor)
	qr.SetTextColor(theme.FgColor)

	left := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(avatar, 9, 0, false).
		AddItem(info, 0, 1, false)

	flex := tview.NewFlex().
		AddItem(left, 0, 1, false).
		AddItem(qr, 0, 1, false)
	flex.SetBorder(true)
	flex.SetBorderColor(theme.BorderColor)
	flex.SetTitleColor(theme.TitleColor)
	flex.SetTitle(" Account ")
	avatar.SetBorderPadding(1, 0, 2, 0)

	return &AccountDetail{Flex: flex, theme: theme, avatar: avatar, info: info, qr: qr}
}

func (ad *AccountDetail) Name() string { return "Account" }

func (ad *AccountDetail) Render(s projection.State) {
	ad.info.Clear()
	if s.Shared.DetailAccount == nil {
		ad.avatar.Set(texcache.Key{}, "", "", 0)
		ad.qr.Clear()
		ad.shown = ""
		_, _ = fmt.Fprint(ad.info, "\n  no account")
		return
	}
	id := *s.Shared.DetailAccount
	acc, ok := s.Shared.Accounts[id]
	if !ok {
		_, _ = fmt.Fprintf(ad.info, "\n  account %d was removed", id)
		return
	}

	ad.SetTitle(fmt.Sprintf(" Account %d ", id))
	ad.avatar.Set(texcache.Key{Account: id, Kind: texcache.KindAccount, ID: model.ContactSelf}, acc.ProfileImage, acc.Label(), 0x4a90d9)

	row := func(name, value string) {
		_, _ = fmt.Fprintf(ad.info, "  [::b]%-9s[-:-:-] %s\n", name, value)
	}
	_, _ = fmt.Fprintln(ad.info)
	row("Address", tview.Escape(acc.Email))
	if acc.DisplayName != "" {
		row("Name", tview.Escape(oneLine(acc.DisplayName)))
	}
	row("Login", ui.Tag(ad.theme.LoginColor(acc.Login))+tview.Escape(acc.Login.String())+"[-]")
	if s.Shared.IsSelectedAccount(id) {
		row("Selected", "yes")
	}

	if acc.Email != "" && acc.Email != ad.shown {
		ad.shown = acc.Email
		ad.qr.SetText(renderQR(inviteURI(acc.Email)))
	}
}

// inviteURI is what the QR code encodes.
func inviteURI(addr string) string {
	return "mailto:" + addr
}

// renderQR draws a QR code with half blocks, two modules per cell.
func renderQR(content string) string {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return "QR code unavailable: " + err.Error()
	}
	bitmap := qr.Bitmap()

	var sb strings.Builder
	for y := 0; y < len(bitmap); y += 2 {
		for x := range bitmap[y] {
			top := bitmap[y][x]
			bottom := y+1 < len(bitmap) && bitmap[y+1][x]
			switch {
			case top && bottom:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bottom:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}
