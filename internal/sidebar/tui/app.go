// Package tui renders the drive sidebar in a terminal
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	models "coursedrive/internal/domain/models/drive"
	"coursedrive/internal/sidebar"
)

const (
	ModeNormal = 1
	ModeSearch = 2
)

// NodeLoader fetches the detail of a navigated node
type NodeLoader interface {
	Node(ctx context.Context, id string) (*models.NodeDetail, error)
}

// App is the terminal sidebar
type App struct {
	app     *tview.Application
	list    *tview.List
	detail  *tview.TextView
	search  *tview.InputField
	status  *tview.TextView
	cols    *tview.Flex
	mode    uint8
	rows    []sidebar.Row
	sidebar *sidebar.Sidebar
	nodes   NodeLoader
	logger  *slog.Logger
	ctx     context.Context
}

// NewApp creates the terminal sidebar over a mounted or unmounted sidebar state
func NewApp(sb *sidebar.Sidebar, nodes NodeLoader, logger *slog.Logger) *App {
	return &App{
		app:     tview.NewApplication(),
		list:    tview.NewList().ShowSecondaryText(false),
		detail:  tview.NewTextView().SetDynamicColors(true).SetWrap(true),
		search:  tview.NewInputField().SetLabel("Search: "),
		status:  tview.NewTextView().SetDynamicColors(true),
		mode:    ModeNormal,
		sidebar: sb,
		nodes:   nodes,
		logger:  logger,
	}
}

// Run mounts the root level and blocks until the user quits or ctx is cancelled
func (a *App) Run(ctx context.Context) error {
	a.ctx = ctx

	a.list.SetBorder(true).SetTitle("Drive")
	a.detail.SetBorder(true).SetTitle("Details")

	a.cols = tview.NewFlex().
		AddItem(a.list, 0, 2, true).
		AddItem(a.detail, 0, 3, false)

	main := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.search, 1, 0, false).
		AddItem(a.cols, 0, 1, true).
		AddItem(a.status, 1, 0, false)

	a.search.SetChangedFunc(a.onSearchChange)
	a.search.SetDoneFunc(a.onSearchDone)
	a.list.SetChangedFunc(a.onSelect)

	a.app.SetRoot(main, true)
	a.app.SetInputCapture(a.globalInput)
	a.app.SetFocus(a.list)
	a.updateStatus("")

	go func() {
		<-ctx.Done()
		a.app.Stop()
	}()

	a.background(func() error {
		return a.sidebar.Mount(ctx, nil)
	})

	a.refresh()
	return a.app.Run()
}

// background runs fn off the event loop and redraws once it finishes
func (a *App) background(fn func() error) {
	go func() {
		err := fn()
		a.app.QueueUpdateDraw(func() {
			a.refresh()
			if err != nil {
				a.updateStatus(fmt.Sprintf("[red]%v", err))
			}
		})
	}()
}

// refresh rebuilds the list from the sidebar rows, keeping the selection in range
func (a *App) refresh() {
	current := a.list.GetCurrentItem()
	a.rows = a.sidebar.Rows()

	a.list.Clear()
	for _, row := range a.rows {
		a.list.AddItem(formatRow(row), "", 0, nil)
	}

	if n := len(a.rows); n > 0 {
		if current >= n {
			current = n - 1
		}
		if current < 0 {
			current = 0
		}
		a.list.SetCurrentItem(current)
	}
}

func formatRow(row sidebar.Row) string {
	indent := strings.Repeat("  ", row.Depth)

	switch {
	case row.Item == nil && row.Status == sidebar.StatusLoading:
		return indent + "[gray]loading…"
	case row.Item == nil:
		return fmt.Sprintf("%s[red]failed: %s [gray](r to retry)", indent, tview.Escape(row.Err.Error()))
	}

	item := row.Item
	marker := "• "
	if item.Kind == models.KindBook {
		switch {
		case row.Expanded:
			marker = "▾ "
		case item.HasChildren:
			marker = "▸ "
		default:
			marker = "  "
		}
	}

	title := tview.Escape(item.Title)
	if item.IsDraft {
		title += " [gray](draft)"
	}
	return indent + marker + title
}

func (a *App) selected() (sidebar.Row, bool) {
	i := a.list.GetCurrentItem()
	if i < 0 || i >= len(a.rows) {
		return sidebar.Row{}, false
	}
	return a.rows[i], true
}

func (a *App) onSelect(index int, mainText, secondaryText string, shortcut rune) {
	if index < 0 || index >= len(a.rows) || a.rows[index].Item == nil {
		return
	}
	item := a.rows[index].Item
	a.updateStatus(fmt.Sprintf("%s [gray]%s", item.Kind, item.ID))
}

func (a *App) onSearchChange(text string) {
	a.sidebar.SetSearch(text)
	a.refresh()
}

func (a *App) onSearchDone(key tcell.Key) {
	switch key {
	case tcell.KeyEnter:
		a.setMode(ModeNormal)
	case tcell.KeyEscape:
		a.search.SetText("")
		a.setMode(ModeNormal)
	}
}

func (a *App) setMode(mode uint8) {
	a.mode = mode
	if mode == ModeSearch {
		a.app.SetFocus(a.search)
		return
	}
	a.app.SetFocus(a.list)
}

func (a *App) globalInput(event *tcell.EventKey) *tcell.EventKey {
	if a.mode == ModeSearch {
		return event
	}

	switch event.Key() {
	case tcell.KeyEnter:
		a.activate(sidebar.TargetChevron)
		return nil
	case tcell.KeyRune:
		switch event.Rune() {
		case 'q':
			a.app.Stop()
			return nil
		case '/':
			a.setMode(ModeSearch)
			return nil
		case 'o':
			a.activate(sidebar.TargetRow)
			return nil
		case 'r':
			a.retry()
			return nil
		case 's':
			a.sidebar.SetOpen(!a.sidebar.Open())
			a.applyOpen()
			return nil
		}
	}
	return event
}

// activate handles Enter (toggle a book, open a content) and o (open a book page)
func (a *App) activate(target sidebar.Target) {
	row, ok := a.selected()
	if !ok || row.Item == nil {
		return
	}
	id := row.Item.ID

	if row.Item.Kind == models.KindBook && target == sidebar.TargetChevron {
		a.background(func() error {
			_, err := a.sidebar.Activate(a.ctx, id, target)
			return err
		})
		// Show the loading row right away
		a.refresh()
		return
	}

	path, err := a.sidebar.Activate(a.ctx, id, target)
	if err != nil {
		a.updateStatus(fmt.Sprintf("[red]%v", err))
		return
	}
	a.updateStatus("opened " + path)
	a.applyOpen()
	a.showDetail(id)
}

// applyOpen hides the tree column while the sidebar is closed
func (a *App) applyOpen() {
	if a.sidebar.Open() {
		a.cols.ResizeItem(a.list, 0, 2)
		return
	}
	a.cols.ResizeItem(a.list, 0, 0)
}

func (a *App) retry() {
	row, ok := a.selected()
	if !ok || row.Item != nil || row.Status != sidebar.StatusError {
		return
	}
	parentID := row.ParentID
	a.background(func() error {
		return a.sidebar.Retry(a.ctx, parentID)
	})
	a.refresh()
}

func (a *App) showDetail(id string) {
	a.detail.SetText("[gray]loading…")

	go func() {
		node, err := a.nodes.Node(a.ctx, id)
		a.app.QueueUpdateDraw(func() {
			if err != nil {
				a.logger.Error("failed to load node", "node_id", id, "error", err)
				a.detail.SetText(fmt.Sprintf("[red]%s", tview.Escape(err.Error())))
				return
			}
			a.detail.SetText(formatDetail(node))
		})
	}()
}

func formatDetail(node *models.NodeDetail) string {
	var b strings.Builder

	crumbs := make([]string, 0, len(node.Breadcrumbs))
	for _, c := range node.Breadcrumbs {
		crumbs = append(crumbs, tview.Escape(c.Title))
	}
	fmt.Fprintf(&b, "[gray]%s[-]\n\n", strings.Join(crumbs, " / "))
	fmt.Fprintf(&b, "[::b]%s[::-]\n", tview.Escape(node.Title))
	fmt.Fprintf(&b, "Type: %s\n", node.Kind)

	state := "published"
	switch {
	case node.IsTrash || node.EffectivelyTrashed:
		state = "[red]in trash[-]"
	case node.IsDraft:
		state = "draft"
	}
	fmt.Fprintf(&b, "State: %s\n", state)

	if len(node.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", tview.Escape(strings.Join(node.Tags, ", ")))
	}
	if node.Description != nil && *node.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", tview.Escape(*node.Description))
	}
	fmt.Fprintf(&b, "\n[gray]Updated %s", node.UpdatedAt.Format("2006-01-02 15:04"))
	return b.String()
}

func (a *App) updateStatus(message string) {
	text := "[::b]Enter[::r] open/toggle  [::b]o[::r] open book  [::b]/[::r] search  [::b]r[::r] retry  [::b]s[::r] sidebar  [::b]q[::r] quit"
	if message != "" {
		text += "  " + message
	}
	a.status.SetText(text)
}
