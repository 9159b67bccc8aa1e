package views

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/pigeonchat/pigeon/internal/store"
	"github.com/pigeonchat/pigeon/internal/tui/ui"
	"github.com/rivo/tview"
)

// PresenceFunc reports a peer's live presence for rendering.
type PresenceFunc func(peer string) (online, typing bool)

// ConversationList is the main conversation table.
type ConversationList struct {
	*tview.Table
	theme    *ui.Theme
	convs    []store.Conversation
	presence PresenceFunc
	filter   string
}

// NewConversationList creates a new conversation list table.
func NewConversationList(theme *ui.Theme, presence PresenceFunc) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" Conversations ")
	table.SetTitleColor(theme.TitleColor)

	return &ConversationList{
		Table:    table,
		theme:    theme,
		presence: presence,
	}
}

// Update refreshes the list with new data.
func (cl *ConversationList) Update(convs []store.Conversation) {
	cl.convs = convs
	cl.render()
}

// SetFilter sets the active filter text and re-renders.
func (cl *ConversationList) SetFilter(filter string) {
	cl.filter = filter
	cl.render()
}

// ClearFilter clears the active filter.
func (cl *ConversationList) ClearFilter() {
	cl.filter = ""
	cl.render()
}

func (cl *ConversationList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" PEER", 1},
		{" LAST MESSAGE", 2},
		{" TIME", 0},
	}
	for col, h := range headers {
		cell := tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp)
		cl.SetCell(0, col, cell)
	}

	row := 1
	for _, c := range cl.visible() {
		name := c.PeerName
		if name == "" {
			name = c.Key
		}

		online, typing := false, false
		if cl.presence != nil {
			online, typing = cl.presence(c.Key)
		}

		nameColor := cl.theme.FgColor
		display := " " + tview.Escape(sanitizeForTerminal(name))
		if online {
			display = " ●" + display
			nameColor = cl.theme.OnlineColor
		}
		if c.Unread > 0 {
			display = fmt.Sprintf(" (%d)%s", c.Unread, display)
			nameColor = cl.theme.UnreadColor
		}

		preview := c.Preview.Text
		previewColor := cl.theme.FgColor
		if typing {
			preview = "typing…"
			previewColor = cl.theme.TypingColor
		}

		cl.SetCell(row, 0, tview.NewTableCell(display).SetExpansion(1).SetTextColor(nameColor))
		cl.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(preview))).SetExpansion(2).SetTextColor(previewColor))
		cl.SetCell(row, 2, tview.NewTableCell(formatStamp(c.Preview.Timestamp)).SetExpansion(0).SetTextColor(cl.theme.FgColor).SetAlign(tview.AlignRight))
		row++
	}

	if cl.filter != "" {
		cl.SetTitle(fmt.Sprintf(" Conversations (%d/%d) filter: %s ", row-1, len(cl.convs), cl.filter))
	} else {
		cl.SetTitle(fmt.Sprintf(" Conversations (%d) ", len(cl.convs)))
	}
}

func (cl *ConversationList) visible() []store.Conversation {
	if cl.filter == "" {
		return cl.convs
	}
	var out []store.Conversation
	needle := strings.ToLower(cl.filter)
	for _, c := range cl.convs {
		name := c.PeerName
		if name == "" {
			name = c.Key
		}
		if strings.Contains(strings.ToLower(name), needle) ||
			strings.Contains(strings.ToLower(c.Preview.Text), needle) {
			out = append(out, c)
		}
	}
	return out
}

// SelectedPeer returns the peer of the currently selected row.
func (cl *ConversationList) SelectedPeer() string {
	row, _ := cl.GetSelection()
	idx := row - 1 // header
	visible := cl.visible()
	if idx < 0 || idx >= len(visible) {
		return ""
	}
	return visible[idx].Key
}

// PeerByIndex returns the peer of the Nth visible conversation (1-based).
func (cl *ConversationList) PeerByIndex(n int) string {
	visible := cl.visible()
	if n < 1 || n > len(visible) {
		return ""
	}
	return visible[n-1].Key
}
