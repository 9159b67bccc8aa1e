package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/pigeonchat/pigeon/internal/store"
	"github.com/pigeonchat/pigeon/internal/tui/ui"
	"github.com/rivo/tview"
)

// MessageThread displays one conversation's messages and a composer.
type MessageThread struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	composer *tview.InputField
	peer     string
	onSend   func(text string)
	onTyping func()
}

// NewMessageThread creates a new message thread view.
func NewMessageThread(theme *ui.Theme) *MessageThread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitle(" Messages ")
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Compose (i to focus) ")
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(composer, 3, 0, false)

	mt := &MessageThread{
		Flex:     flex,
		theme:    theme,
		messages: messages,
		composer: composer,
	}

	composer.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && mt.onSend != nil {
			text := composer.GetText()
			if text != "" {
				mt.onSend(text)
				composer.SetText("")
			}
		}
	})
	composer.SetChangedFunc(func(text string) {
		if text != "" && mt.onTyping != nil {
			mt.onTyping()
		}
	})

	return mt
}

// SetPeer updates the conversation title.
func (mt *MessageThread) SetPeer(peer, displayName string) {
	mt.peer = peer
	if displayName == "" {
		displayName = peer
	}
	mt.messages.SetTitle(fmt.Sprintf(" %s ", displayName))
}

// Peer returns the current conversation peer.
func (mt *MessageThread) Peer() string {
	return mt.peer
}

// SetTyping reflects the peer's live typing state in the title.
func (mt *MessageThread) SetTyping(displayName string, typing bool) {
	if displayName == "" {
		displayName = mt.peer
	}
	if typing {
		mt.messages.SetTitle(fmt.Sprintf(" %s [yellow]typing…[-] ", displayName))
	} else {
		mt.messages.SetTitle(fmt.Sprintf(" %s ", displayName))
	}
}

// SetOnSend sets the callback when a message is submitted.
func (mt *MessageThread) SetOnSend(fn func(text string)) {
	mt.onSend = fn
}

// SetOnTyping sets the callback for composer activity.
func (mt *MessageThread) SetOnTyping(fn func()) {
	mt.onTyping = fn
}

// Update re-renders the thread. Own messages carry delivery marks.
func (mt *MessageThread) Update(msgs []store.Message) {
	mt.messages.Clear()

	for _, m := range msgs {
		sender := m.Sender
		mark := ""
		if m.FromMe {
			sender = "You"
			switch m.State {
			case store.StateRead:
				mark = " [deepskyblue]" + deliveryMark(m.State) + "[-]"
			case store.StatePending:
				mark = " [gray]" + deliveryMark(m.State) + "[-]"
			default:
				mark = " [::d]" + deliveryMark(m.State) + "[-:-:-]"
			}
		}

		line := fmt.Sprintf("[::b]%s[-:-:-] [::d]%s[-:-:-]%s\n%s\n\n",
			tview.Escape(sanitizeForTerminal(sender)), formatStamp(m.Timestamp), mark,
			tview.Escape(sanitizeForTerminal(m.Text)))
		_, _ = fmt.Fprint(mt.messages, line)
	}

	mt.messages.ScrollToEnd()
}

// Messages returns the messages text view (for focus management).
func (mt *MessageThread) Messages() *tview.TextView {
	return mt.messages
}

// Composer returns the composer input field (for focus management).
func (mt *MessageThread) Composer() *tview.InputField {
	return mt.composer
}
