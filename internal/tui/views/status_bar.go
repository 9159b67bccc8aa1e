package views

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// StatusBar displays profile, session state, and the unread badge.
type StatusBar struct {
	*tview.TextView
	profile string
	state   string
	unread  int
	flash   string
	flashEr bool
}

// NewStatusBar creates a new status bar.
func NewStatusBar() *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv}
}

// SetProfile updates the profile name display.
func (sb *StatusBar) SetProfile(name string) {
	sb.profile = name
	sb.render()
}

// SetState updates the session state display.
func (sb *StatusBar) SetState(state string) {
	sb.state = state
	sb.render()
}

// SetUnread updates the total unread badge.
func (sb *StatusBar) SetUnread(n int) {
	sb.unread = n
	sb.render()
}

// SetFlash sets a temporary message.
func (sb *StatusBar) SetFlash(msg string, isError bool) {
	sb.flash = msg
	sb.flashEr = isError
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()

	stateColor := "green"
	switch sb.state {
	case "RECONNECTING", "HYDRATING":
		stateColor = "yellow"
	case "CLOSED", "UNINITIALIZED":
		stateColor = "red"
	}

	badge := ""
	if sb.unread > 0 {
		badge = fmt.Sprintf(" | [orange]%d unread[-]", sb.unread)
	}

	clock := time.Now().Format("15:04")

	line := fmt.Sprintf(" [::b]%s[-:-:-] | [%s]%s[-]%s | %s", sb.profile, stateColor, sb.state, badge, clock)
	if sb.flash != "" {
		color := "yellow"
		if sb.flashEr {
			color = "orangered"
		}
		line += fmt.Sprintf(" | [%s]%s[-]", color, sb.flash)
	}

	_, _ = fmt.Fprint(sb, line)
}
