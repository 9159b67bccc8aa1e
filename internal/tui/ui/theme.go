package ui

import "github.com/gdamore/tcell/v2"

// Theme holds color constants for the TUI.
type Theme struct {
	BgColor        tcell.Color
	FgColor        tcell.Color
	BorderColor    tcell.Color
	TableHeaderFg  tcell.Color
	TableHeaderBg  tcell.Color
	TableCursorFg  tcell.Color
	TableCursorBg  tcell.Color
	TitleColor     tcell.Color
	MenuKeyColor   tcell.Color
	OnlineColor    tcell.Color
	TypingColor    tcell.Color
	UnreadColor    tcell.Color
	PendingColor   tcell.Color
	ReadMarkColor  tcell.Color
	FlashInfoColor tcell.Color
	FlashErrColor  tcell.Color
}

// DefaultTheme returns the dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:        tcell.ColorBlack,
		FgColor:        tcell.ColorLightGray,
		BorderColor:    tcell.ColorSteelBlue,
		TableHeaderFg:  tcell.ColorWhite,
		TableHeaderBg:  tcell.ColorBlack,
		TableCursorFg:  tcell.ColorBlack,
		TableCursorBg:  tcell.ColorAqua,
		TitleColor:     tcell.ColorOrchid,
		MenuKeyColor:   tcell.ColorSteelBlue,
		OnlineColor:    tcell.ColorGreen,
		TypingColor:    tcell.ColorYellow,
		UnreadColor:    tcell.ColorOrange,
		PendingColor:   tcell.ColorGray,
		ReadMarkColor:  tcell.ColorDeepSkyBlue,
		FlashInfoColor: tcell.ColorNavajoWhite,
		FlashErrColor:  tcell.ColorOrangeRed,
	}
}
