package views

import (
	"fmt"

	"github.com/pigeonchat/pigeon/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView displays key binding reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
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

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	hv.render()
	return hv
}

func (hv *HelpView) render() {
	kc := fmt.Sprintf("#%06x", hv.theme.MenuKeyColor.Hex())

	help := fmt.Sprintf(`
  [::b]Global Keys[-:-:-]

  [%s]/[-:-:-]    Filter mode         [%s]?[-:-:-]     Help
  [%s]q[-:-:-]    Quit / Back         [%s]Esc[-:-:-]   Cancel / Go back
  [%s]r[-:-:-]    Refresh snapshot    [%s]Ctrl-C[-:-:-] Quit immediately

  [::b]Conversation List[-:-:-]

  [%s]Enter[-:-:-]  Open conversation  [%s]1-9[-:-:-]   Jump to Nth conversation
  [%s]j/Down[-:-:-] Move down          [%s]k/Up[-:-:-]  Move up
  [%s]f[-:-:-]      Friends

  [::b]Friends[-:-:-]

  [%s]/[-:-:-]    Search users        [%s]Enter[-:-:-] Open conversation
  [%s]s[-:-:-]    Send friend request [%s]a[-:-:-]     Accept request
  [%s]x[-:-:-]    Reject request

  [::b]Message Thread[-:-:-]

  [%s]i[-:-:-]    Focus composer      [%s]Enter[-:-:-] Send message (in composer)
  [%s]Esc[-:-:-]  Exit composer / back to list

  [::b]Delivery marks[-:-:-]

  [gray]…[-]   queued locally        [white]✓[-]    accepted by server
  [white]✓✓[-]  delivered             [deepskyblue]✓✓[-]   read
`,
		kc, kc, kc, kc, kc, kc,
		kc, kc, kc, kc, kc,
		kc, kc, kc, kc, kc,
		kc, kc, kc,
	)

	_, _ = fmt.Fprint(hv, help)
}
