package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/dchat/internal/model"
)

// Theme holds the colors of the TUI.
type Theme struct {
	BgColor          tcell.Color
	FgColor          tcell.Color
	DimColor         tcell.Color
	BorderColor      tcell.Color
	TitleColor       tcell.Color
	TableHeaderFg    tcell.Color
	TableCursorFg    tcell.Color
	TableCursorBg    tcell.Color
	CrumbActiveFg    tcell.Color
	CrumbActiveBg    tcell.Color
	CrumbInactiveFg  tcell.Color
	CrumbInactiveBg  tcell.Color
	MenuKeyColor     tcell.Color
	CounterColor     tcell.Color
	FreshColor       tcell.Color
	PinnedColor      tcell.Color
	RequestColor     tcell.Color
	DayMarkerColor   tcell.Color
	QuoteColor       tcell.Color
	InfoMessageColor tcell.Color
	FlashInfoColor   tcell.Color
	FlashWarnColor   tcell.Color
	FlashErrColor    tcell.Color
	OnlineColor      tcell.Color
	PendingColor     tcell.Color
	OfflineColor     tcell.Color
}

// DefaultTheme returns the dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:          tcell.ColorBlack,
		FgColor:          tcell.ColorSilver,
		DimColor:         tcell.ColorGray,
		BorderColor:      tcell.ColorSteelBlue,
		TitleColor:       tcell.ColorLightSkyBlue,
		TableHeaderFg:    tcell.ColorWhite,
		TableCursorFg:    tcell.ColorBlack,
		TableCursorBg:    tcell.ColorLightSkyBlue,
		CrumbActiveFg:    tcell.ColorBlack,
		CrumbActiveBg:    tcell.ColorGold,
		CrumbInactiveFg:  tcell.ColorBlack,
		CrumbInactiveBg:  tcell.ColorSteelBlue,
		MenuKeyColor:     tcell.ColorDodgerBlue,
		CounterColor:     tcell.ColorPapayaWhip,
		FreshColor:       tcell.ColorLimeGreen,
		PinnedColor:      tcell.ColorGold,
		RequestColor:     tcell.ColorOrange,
		DayMarkerColor:   tcell.ColorSlateGray,
		QuoteColor:       tcell.ColorDarkCyan,
		InfoMessageColor: tcell.ColorGray,
		FlashInfoColor:   tcell.ColorNavajoWhite,
		FlashWarnColor:   tcell.ColorOrange,
		FlashErrColor:    tcell.ColorOrangeRed,
		OnlineColor:      tcell.ColorLimeGreen,
		PendingColor:     tcell.ColorYellow,
		OfflineColor:     tcell.ColorGray,
	}
}

// LoginColor picks the color for a login state.
func (t *Theme) LoginColor(l model.Login) tcell.Color {
	switch l.State {
	case model.LoginSucceeded:
		return t.OnlineColor
	case model.LoginInProgress:
		return t.PendingColor
	case model.LoginFailed:
		return t.FlashErrColor
	default:
		return t.OfflineColor
	}
}

// Tag returns a tview color tag for c, e.g. "[#c0c0c0]".
func Tag(c tcell.Color) string {
	return "[" + ColorName(c) + "]"
}

// ColorName returns a tview-compatible color name.
func ColorName(c tcell.Color) string {
	return fmt.Sprintf("#%06x", c.Hex())
}
