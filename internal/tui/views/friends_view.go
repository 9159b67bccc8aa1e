package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/pigeonchat/pigeon/internal/backend"
	"github.com/pigeonchat/pigeon/internal/roster"
	"github.com/pigeonchat/pigeon/internal/tui/ui"
	"github.com/rivo/tview"
)

// FriendEntry is one selectable row of the friends table.
type FriendEntry struct {
	Kind     string // "request", "friend", or "result"
	ID       string
	Username string
	Online   bool
}

// FriendsView shows pending requests, the friends list, and user search
// results in one table with a search box on top.
type FriendsView struct {
	*tview.Flex
	theme   *ui.Theme
	search  *tview.InputField
	table   *tview.Table
	entries []FriendEntry

	pending []roster.Request
	friends []roster.Friend
	results []backend.User
}

// NewFriendsView creates the friends page.
func NewFriendsView(theme *ui.Theme) *FriendsView {
	search := tview.NewInputField().
		SetLabel(" Search users: ").
		SetFieldWidth(0)
	search.SetFieldBackgroundColor(theme.BgColor)

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
	table.SetTitle(" Friends ")
	table.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(search, 1, 0, false).
		AddItem(table, 0, 1, true)

	return &FriendsView{
		Flex:   flex,
		theme:  theme,
		search: search,
		table:  table,
	}
}

// Search returns the search input for focus handling.
func (fv *FriendsView) Search() *tview.InputField { return fv.search }

// Table returns the entry table for focus handling.
func (fv *FriendsView) Table() *tview.Table { return fv.table }

// SetSelectedFunc forwards row activation from the table.
func (fv *FriendsView) SetSelectedFunc(fn func(row, col int)) {
	fv.table.SetSelectedFunc(fn)
}

// Update re-renders the table from fresh roster and search state.
func (fv *FriendsView) Update(pending []roster.Request, friends []roster.Friend, results []backend.User) {
	fv.pending = pending
	fv.friends = friends
	fv.results = results
	fv.render()
}

// SetResults replaces only the search results.
func (fv *FriendsView) SetResults(results []backend.User) {
	fv.results = results
	fv.render()
}

func (fv *FriendsView) render() {
	fv.table.Clear()
	fv.entries = fv.entries[:0]

	header := tview.NewTableCell(" NAME").
		SetSelectable(false).
		SetTextColor(fv.theme.TableHeaderFg).
		SetBackgroundColor(fv.theme.TableHeaderBg).
		SetAttributes(tcell.AttrBold).
		SetExpansion(1)
	fv.table.SetCell(0, 0, header)
	fv.table.SetCell(0, 1, tview.NewTableCell(" STATUS").
		SetSelectable(false).
		SetTextColor(fv.theme.TableHeaderFg).
		SetBackgroundColor(fv.theme.TableHeaderBg).
		SetAttributes(tcell.AttrBold))

	row := 1
	add := func(e FriendEntry, label string, color tcell.Color) {
		fv.entries = append(fv.entries, e)
		fv.table.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(e.Username))).
			SetExpansion(1).SetTextColor(color))
		fv.table.SetCell(row, 1, tview.NewTableCell(" "+label).SetTextColor(color))
		row++
	}

	for _, q := range fv.pending {
		add(FriendEntry{Kind: "request", ID: q.FriendID, Username: q.Username},
			"wants to be friends (a:accept x:reject)", fv.theme.UnreadColor)
	}
	for _, f := range fv.friends {
		label := "offline"
		color := fv.theme.FgColor
		if f.Online {
			label = "online"
			color = fv.theme.OnlineColor
		}
		add(FriendEntry{Kind: "friend", ID: f.ID, Username: f.Username, Online: f.Online}, label, color)
	}
	for _, u := range fv.results {
		add(FriendEntry{Kind: "result", ID: u.ID, Username: u.Username},
			"search result (s:send request)", fv.theme.TypingColor)
	}

	fv.table.SetTitle(fmt.Sprintf(" Friends (%d) ", len(fv.friends)))
}

// SelectedEntry returns the entry under the cursor.
func (fv *FriendsView) SelectedEntry() (FriendEntry, bool) {
	row, _ := fv.table.GetSelection()
	idx := row - 1 // header
	if idx < 0 || idx >= len(fv.entries) {
		return FriendEntry{}, false
	}
	return fv.entries[idx], true
}
