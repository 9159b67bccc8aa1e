// Package tui is the terminal front end. It renders engine state and
// forwards user intents; all sync logic stays behind the view model.
package tui

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/pigeonchat/pigeon/internal/backend"
	"github.com/pigeonchat/pigeon/internal/roster"
	"github.com/pigeonchat/pigeon/internal/tui/keys"
	"github.com/pigeonchat/pigeon/internal/tui/model"
	"github.com/pigeonchat/pigeon/internal/tui/ui"
	"github.com/pigeonchat/pigeon/internal/tui/views"
	"github.com/rivo/tview"
)

// App is the main TUI application shell.
type App struct {
	app       *tview.Application
	pages     *tview.Pages
	vm        *model.ViewModel
	registry  *keys.Registry
	theme     *ui.Theme
	statusBar *views.StatusBar
	convList  *views.ConversationList
	thread    *views.MessageThread
	friends   *views.FriendsView
	help      *views.HelpView
	filter    *tview.InputField

	searchResults []backend.User

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(vm *model.ViewModel, profile string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:       tview.NewApplication(),
		pages:     tview.NewPages(),
		vm:        vm,
		registry:  keys.NewRegistry(),
		theme:     theme,
		statusBar: views.NewStatusBar(),
		thread:    views.NewMessageThread(theme),
		friends:   views.NewFriendsView(theme),
		help:      views.NewHelpView(theme),
		ctx:       ctx,
		cancel:    cancel,
	}
	a.convList = views.NewConversationList(theme, func(peer string) (bool, bool) {
		return vm.IsOnline(peer), vm.IsTyping(peer)
	})

	a.statusBar.SetProfile(profile)
	a.setupFilter()
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupFilter() {
	a.filter = tview.NewInputField().
		SetLabel(" / ").
		SetFieldWidth(0)
	a.filter.SetFieldBackgroundColor(a.theme.BgColor)
	a.filter.SetChangedFunc(func(text string) {
		a.convList.SetFilter(text)
	})
	a.filter.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEscape {
			a.filter.SetText("")
			a.convList.ClearFilter()
		}
		a.hideFilter()
	})
}

func (a *App) setupBindings() {
	a.registry.AddGlobal("quit", &keys.Action{
		Rune: 'q', Key: tcell.KeyRune,
		Description: "q:quit", Visible: true,
		Handler: func() { a.app.Stop() },
	})
	a.registry.AddGlobal("help", &keys.Action{
		Rune: '?', Key: tcell.KeyRune,
		Description: "?:help", Visible: true,
		Handler: func() { a.pages.SwitchToPage("help") },
	})
	a.registry.AddGlobal("refresh", &keys.Action{
		Rune: 'r', Key: tcell.KeyRune,
		Description: "r:refresh", Visible: true,
		Handler: func() { go a.vm.Refresh(a.ctx) },
	})
	a.registry.AddView("conversations", "filter", &keys.Action{
		Rune: '/', Key: tcell.KeyRune,
		Description: "/:filter", Visible: true,
		Handler: func() { a.showFilter() },
	})
	a.registry.AddView("conversations", "friends", &keys.Action{
		Rune: 'f', Key: tcell.KeyRune,
		Description: "f:friends", Visible: true,
		Handler: func() { a.showFriends() },
	})
	a.registry.AddView("friends", "search", &keys.Action{
		Rune: '/', Key: tcell.KeyRune,
		Description: "/:search", Visible: true,
		Handler: func() { a.app.SetFocus(a.friends.Search()) },
	})
	a.registry.AddView("friends", "send", &keys.Action{
		Rune: 's', Key: tcell.KeyRune,
		Description: "s:send request", Visible: true,
		Handler: func() {
			if e, ok := a.friends.SelectedEntry(); ok && e.Kind == "result" {
				go func() {
					a.vm.SendFriendRequest(a.ctx, e.ID, e.Username)
					a.redraw()
				}()
			}
		},
	})
	a.registry.AddView("friends", "accept", &keys.Action{
		Rune: 'a', Key: tcell.KeyRune,
		Description: "a:accept", Visible: true,
		Handler: func() { a.resolveRequest(true) },
	})
	a.registry.AddView("friends", "reject", &keys.Action{
		Rune: 'x', Key: tcell.KeyRune,
		Description: "x:reject", Visible: true,
		Handler: func() { a.resolveRequest(false) },
	})
	for n := 1; n <= 9; n++ {
		n := n
		a.registry.AddView("conversations", "jump"+string(rune('0'+n)), &keys.Action{
			Rune: rune('0' + n), Key: tcell.KeyRune,
			Handler: func() {
				if peer := a.convList.PeerByIndex(n); peer != "" {
					a.openConversation(peer)
				}
			},
		})
	}
}

func (a *App) setupCallbacks() {
	a.convList.SetSelectedFunc(func(row, col int) {
		if peer := a.convList.SelectedPeer(); peer != "" {
			a.openConversation(peer)
		}
	})

	a.thread.SetOnSend(func(text string) {
		go func() {
			a.vm.Send(a.ctx, text)
			a.redraw()
		}()
	})
	a.thread.SetOnTyping(func() {
		go a.vm.Typing(a.ctx)
	})

	a.friends.SetSelectedFunc(func(row, col int) {
		// Opening a search result starts a brand new conversation; the
		// store creates it on the first message.
		if e, ok := a.friends.SelectedEntry(); ok && e.Kind != "request" {
			a.openConversation(e.Username)
		}
	})
	a.friends.Search().SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEscape {
			a.friends.Search().SetText("")
			a.searchResults = nil
			a.friends.SetResults(nil)
			a.app.SetFocus(a.friends.Table())
			return
		}
		term := a.friends.Search().GetText()
		go func() {
			results := a.vm.SearchUsers(a.ctx, term)
			a.app.QueueUpdateDraw(func() {
				a.searchResults = results
				a.friends.SetResults(results)
				a.app.SetFocus(a.friends.Table())
			})
		}()
	})
}

func (a *App) showFriends() {
	a.friends.Update(a.vm.PendingRequests(), a.vm.Friends(), a.searchResults)
	a.pages.SwitchToPage("friends")
	a.app.SetFocus(a.friends.Table())
}

func (a *App) resolveRequest(accept bool) {
	e, ok := a.friends.SelectedEntry()
	if !ok || e.Kind != "request" {
		return
	}
	req := roster.Request{FriendID: e.ID, Username: e.Username}
	go func() {
		if accept {
			a.vm.AcceptRequest(a.ctx, req)
		} else {
			a.vm.RejectRequest(a.ctx, req)
		}
		a.redraw()
	}()
}

func (a *App) setupLayout() {
	a.pages.AddPage("conversations", a.convList, true, true)
	a.pages.AddPage("thread", a.thread, true, false)
	a.pages.AddPage("friends", a.friends, true, false)
	a.pages.AddPage("help", a.help, true, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(root, true)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		currentPage, _ := a.pages.GetFrontPage()

		focused := a.app.GetFocus()
		if _, ok := focused.(*tview.InputField); ok {
			// Esc in the composer returns focus to the thread.
			if event.Key() == tcell.KeyEscape && focused == a.thread.Composer() {
				a.app.SetFocus(a.thread.Messages())
				return nil
			}
			return event
		}

		if event.Key() == tcell.KeyEscape {
			switch currentPage {
			case "thread":
				a.closeConversation()
				return nil
			case "friends", "help":
				a.pages.SwitchToPage("conversations")
				a.app.SetFocus(a.convList)
				return nil
			}
		}

		if currentPage == "thread" && event.Key() == tcell.KeyRune && event.Rune() == 'i' {
			a.app.SetFocus(a.thread.Composer())
			return nil
		}

		if a.registry.HandleEvent(currentPage, event) {
			return nil
		}

		return event
	})
}

func (a *App) showFilter() {
	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, false).
		AddItem(a.filter, 1, 0, true).
		AddItem(a.statusBar, 1, 0, false)
	a.app.SetRoot(root, true)
	a.app.SetFocus(a.filter)
}

func (a *App) hideFilter() {
	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)
	a.app.SetRoot(root, true)
	a.app.SetFocus(a.convList)
}

func (a *App) openConversation(peer string) {
	go func() {
		a.vm.Open(a.ctx, peer)
		a.app.QueueUpdateDraw(func() {
			conv, _ := a.vm.Conversation()
			a.thread.SetPeer(peer, conv.PeerName)
			a.thread.Update(conv.Messages)
			a.pages.SwitchToPage("thread")
			a.app.SetFocus(a.thread.Composer())
		})
	}()
}

func (a *App) closeConversation() {
	a.vm.CloseActive()
	a.pages.SwitchToPage("conversations")
	a.app.SetFocus(a.convList)
}

// redraw pushes the current view model state into whichever page is
// visible.
func (a *App) redraw() {
	a.app.QueueUpdateDraw(func() {
		currentPage, _ := a.pages.GetFrontPage()

		switch currentPage {
		case "conversations":
			a.convList.Update(a.vm.Conversations())
		case "friends":
			a.friends.Update(a.vm.PendingRequests(), a.vm.Friends(), a.searchResults)
		case "thread":
			if conv, ok := a.vm.Conversation(); ok {
				a.thread.Update(conv.Messages)
				name := conv.PeerName
				if name == "" {
					name = conv.Key
				}
				a.thread.SetTyping(name, a.vm.IsTyping(conv.Key))
			}
		}

		a.statusBar.SetState(string(a.vm.SessionState()))
		a.statusBar.SetUnread(a.vm.TotalUnread())
		msg, level := a.vm.Flash.Get()
		a.statusBar.SetFlash(msg, level == model.FlashError)
	})
}

// Run starts the TUI application.
func (a *App) Run() error {
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-a.vm.RefreshCh():
				a.redraw()
			case <-ticker.C:
				// Clock, flash expiry, and typing decay all need a
				// periodic repaint even without engine events.
				a.redraw()
			case <-a.ctx.Done():
				return
			}
		}
	}()

	a.redraw()
	return a.app.Run()
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.vm.Stop()
	a.app.Stop()
}
