package tui

import (
	"fmt"
	"strings"
	"time"

	goerrors "github.com/go-errors/errors"
	"github.com/go-pkgz/lgr"
	"github.com/jesseduffield/gocui"

	"github.com/Joseda-hg/lazyboard/internal/db"
	"github.com/Joseda-hg/lazyboard/internal/model"
	"github.com/Joseda-hg/lazyboard/internal/tasktree"
)

const (
	viewHeader  = "header"
	viewFooter  = "footer"
	viewTasks   = "tasks"
	viewDetail  = "detail"
	viewHistory = "history"
	viewSearch  = "search"
	viewPrompt  = "prompt"
	viewForm    = "form"
	viewHelp    = "help"
)

type UI struct {
	store  *db.Store
	gui    *gocui.Gui
	logger lgr.L
	now    func() time.Time

	projects     []model.Project
	projectIndex int

	forest    []model.TaskNode
	rows      []tasktree.Row
	collapsed map[string]bool
	summaries map[string]model.TimeSummary

	criteria   model.FilterCriteria
	views      []model.View
	activeView *model.View

	estimations []model.EstimationEntry
	progress    []model.ProgressLogEntry
	history     []model.HistoryEntry

	selected        int
	selectedHistory int
	focus           string

	form         *formState
	formEditor   *formEditor
	prompt       *promptState
	searchActive bool
	helpActive   bool
	status       string
}

type formEditor struct {
	ui *UI
}

func newUI(store *db.Store, logger lgr.L) *UI {
	if logger == nil {
		logger = lgr.NoOp
	}
	ui := &UI{
		store:     store,
		logger:    logger,
		now:       time.Now,
		focus:     viewTasks,
		collapsed: make(map[string]bool),
	}
	ui.formEditor = &formEditor{ui: ui}
	return ui
}

// Run opens the board on the project called projectName, or on the first
// project when the name is empty or unknown.
func Run(store *db.Store, projectName string, logger lgr.L) error {
	gui, err := gocui.NewGui(gocui.NewGuiOpts{OutputMode: gocui.OutputNormal})
	if err != nil {
		return err
	}
	defer gui.Close()

	ui := newUI(store, logger)
	ui.gui = gui
	gui.Mouse = true

	gui.SetManagerFunc(ui.layout)
	if err := ui.bindKeys(gui); err != nil {
		return err
	}
	if err := ui.loadBoard(); err != nil {
		return err
	}
	ui.selectProject(projectName)
	if err := ui.loadBoard(); err != nil {
		return err
	}
	ui.logger.Logf("[DEBUG] board opened on project %q", ui.projectTitle())

	if err := gui.MainLoop(); err != nil && !goerrors.Is(err, gocui.ErrQuit) {
		return err
	}
	return nil
}

type binding struct {
	view    string
	key     any
	handler func(*gocui.Gui, *gocui.View) error
}

func (u *UI) bindKeys(gui *gocui.Gui) error {
	bindings := []binding{
		{"", gocui.KeyCtrlC, u.forceQuit},
		{"", 'q', u.quit},
		{"", 'r', u.reload},
		{"", '/', u.startSearch},
		{"", 's', u.cycleStatusFilter},
		{"", 'p', u.cyclePriorityFilter},
		{"", 'u', u.cycleAssigneeFilter},
		{"", 'g', u.clearFilters},
		{"", 'v', u.cycleSavedView},
		{"", 'w', u.startSaveView},
		{"", 'a', u.addTask},
		{"", 'A', u.addSubtask},
		{"", 'E', u.editTask},
		{"", 'd', u.deleteTask},
		{"", 'c', u.cycleTaskStatus},
		{"", 'e', u.startEstimate},
		{"", 'x', u.deleteLastEstimation},
		{"", 'l', u.startLogProgress},
		{"", '?', u.toggleHelp},
		{"", gocui.KeyTab, u.nextProject},
		{"", gocui.KeyBacktab, u.prevProject},
		{"", '1', u.focusTasks},
		{"", '2', u.focusHistory},
		{viewTasks, gocui.KeyArrowDown, u.moveDown},
		{viewTasks, 'j', u.moveDown},
		{viewTasks, gocui.KeyArrowUp, u.moveUp},
		{viewTasks, 'k', u.moveUp},
		{viewTasks, gocui.KeyEnter, u.toggleCollapse},
		{viewHistory, gocui.KeyArrowDown, u.moveDown},
		{viewHistory, 'j', u.moveDown},
		{viewHistory, gocui.KeyArrowUp, u.moveUp},
		{viewHistory, 'k', u.moveUp},
		{viewSearch, gocui.KeyEnter, u.submitSearch},
		{viewSearch, gocui.KeyEsc, u.cancelSearch},
		{viewPrompt, gocui.KeyEnter, u.submitPrompt},
		{viewPrompt, gocui.KeyEsc, u.cancelPrompt},
		{viewForm, gocui.KeyEnter, u.submitForm},
		{viewForm, gocui.KeyCtrlJ, u.submitForm},
		{viewForm, gocui.KeyTab, u.nextFormField},
		{viewForm, gocui.KeyBacktab, u.prevFormField},
		{viewForm, gocui.KeyArrowDown, u.nextFormField},
		{viewForm, gocui.KeyArrowUp, u.prevFormField},
		{viewForm, gocui.KeyEsc, u.cancelForm},
		{viewHelp, gocui.KeyEsc, u.closeHelp},
		{viewHelp, 'q', u.closeHelp},
		{viewHelp, '?', u.closeHelp},
	}
	for _, b := range bindings {
		if err := gui.SetKeybinding(b.view, b.key, gocui.ModNone, b.handler); err != nil {
			return err
		}
	}

	for _, name := range []string{viewTasks, viewHistory} {
		viewName := name
		if err := gui.SetViewClickBinding(&gocui.ViewMouseBinding{ViewName: viewName, Key: gocui.MouseLeft, Handler: func(opts gocui.ViewMouseBindingOpts) error {
			return u.onListClick(gui, viewName, opts)
		}}); err != nil {
			return err
		}
	}
	return u.bindMouseScroll(gui)
}

func (u *UI) layout(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	if maxX <= 0 || maxY <= 0 {
		return nil
	}

	headerView, err := gui.SetView(viewHeader, 0, 0, maxX-1, 1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	headerView.Frame = false
	headerView.Wrap = true
	headerView.FgColor = gocui.ColorDefault
	u.renderHeader(headerView)

	footerY1 := max(maxY-1, 1)
	footerY0 := max(footerY1-2, 1)
	footerView, err := gui.SetView(viewFooter, 0, footerY0, maxX-1, footerY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	footerView.Frame = false
	footerView.Wrap = true
	footerView.FgColor = gocui.ColorDefault | gocui.AttrDim
	footerView.BgColor = gocui.ColorDefault
	u.renderFooter(footerView)

	bodyTop := 2
	bodyBottom := footerY0 - 1
	if bodyBottom < bodyTop {
		return nil
	}

	l := computeLayout(maxX, bodyBottom-bodyTop+1)
	leftX1 := l.leftWidth - 1
	rightX0 := min(leftX1+1, maxX-1)
	rightX1 := maxX - 1
	detailY1 := bodyTop + l.detailHeight - 1

	tasksView, err := gui.SetView(viewTasks, 0, bodyTop, leftX1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	tasksView.Title = "1 " + u.projectTitle()
	applyViewStyle(tasksView, u.focus == viewTasks, true)
	u.renderTasks(tasksView, u.focus == viewTasks)

	detailView, err := gui.SetView(viewDetail, rightX0, bodyTop, rightX1, detailY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		detailView.Title = "Details"
		detailView.Wrap = true
	}
	applyViewStyle(detailView, false, false)
	renderLines(detailView, u.detailLines())

	historyView, err := gui.SetView(viewHistory, rightX0, detailY1+1, rightX1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		historyView.Title = "2 History"
	}
	applyViewStyle(historyView, u.focus == viewHistory, true)
	u.renderHistory(historyView, u.focus == viewHistory)

	_, _ = gui.SetViewOnTop(viewHeader)
	_, _ = gui.SetViewOnTop(viewFooter)

	if u.searchActive {
		if err := u.showSearch(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewSearch)
	}

	if u.prompt != nil {
		if err := u.showPrompt(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewPrompt)
	}

	if u.form != nil {
		if err := u.showForm(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewForm)
	}

	if u.helpActive {
		if err := u.showHelp(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewHelp)
	}

	if gui.CurrentView() == nil {
		_, _ = gui.SetCurrentView(u.focus)
	}

	gui.Cursor = u.searchActive || u.prompt != nil || u.form != nil
	return nil
}

type layout struct {
	leftWidth     int
	detailHeight  int
	historyHeight int
}

func computeLayout(width, height int) layout {
	safeWidth := max(width, 40)
	safeHeight := max(height, 8)

	leftWidth := safeWidth * 3 / 5
	if leftWidth < 30 {
		leftWidth = 30
	}
	if leftWidth > safeWidth-20 {
		leftWidth = safeWidth / 2
	}

	detailHeight := max(int(float64(safeHeight)*0.6), 4)
	historyHeight := safeHeight - detailHeight
	if historyHeight < 4 {
		historyHeight = 4
		detailHeight = max(safeHeight-historyHeight, 4)
	}

	return layout{leftWidth: leftWidth, detailHeight: detailHeight, historyHeight: historyHeight}
}

func (u *UI) onListClick(gui *gocui.Gui, viewName string, opts gocui.ViewMouseBindingOpts) error {
	if u.inputActive() {
		return nil
	}
	view, err := gui.View(viewName)
	if err != nil {
		return nil
	}

	_, y0, _, _ := view.Dimensions()
	_, oy := view.Origin()
	row := max(opts.Y-y0-1+oy, 0)

	switch viewName {
	case viewTasks:
		if len(u.rows) == 0 {
			return nil
		}
		u.selected = min(row, len(u.rows)-1)
		if err := u.loadDetail(); err != nil {
			return err
		}
		return u.setFocus(gui, viewTasks)
	case viewHistory:
		if len(u.history) == 0 {
			return nil
		}
		u.selectedHistory = min(row, len(u.history)-1)
		return u.setFocus(gui, viewHistory)
	}
	return nil
}

func (u *UI) bindMouseScroll(gui *gocui.Gui) error {
	for _, name := range []string{viewTasks, viewDetail, viewHistory} {
		if err := gui.SetKeybinding(name, gocui.MouseWheelUp, gocui.ModNone, u.scrollUp); err != nil {
			return err
		}
		if err := gui.SetKeybinding(name, gocui.MouseWheelDown, gocui.ModNone, u.scrollDown); err != nil {
			return err
		}
	}
	return nil
}

func (u *UI) scrollUp(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if view == nil {
		view = gui.CurrentView()
	}
	if view != nil {
		view.ScrollUp(1)
	}
	return nil
}

func (u *UI) scrollDown(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if view == nil {
		view = gui.CurrentView()
	}
	if view != nil {
		view.ScrollDown(1)
	}
	return nil
}

func (u *UI) focusTasks(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewTasks)
}

func (u *UI) focusHistory(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewHistory)
}

func (u *UI) setFocus(gui *gocui.Gui, name string) error {
	if u.inputActive() {
		return nil
	}
	u.focus = name
	if gui != nil {
		_, _ = gui.SetCurrentView(name)
	}
	return nil
}

// closeOverlay removes an overlay view and gives focus back to the pane that
// had it.
func (u *UI) closeOverlay(gui *gocui.Gui, name string) {
	if gui == nil {
		return
	}
	_ = gui.DeleteView(name)
	_, _ = gui.SetCurrentView(u.focus)
}

// storeFailed shows a failed store call in the footer and logs it.
func (u *UI) storeFailed(action string, err error) {
	u.status = err.Error()
	u.logger.Logf("[WARN] %s: %v", action, err)
}

func (u *UI) inputActive() bool {
	return u.searchActive || u.prompt != nil || u.form != nil || u.helpActive
}

func (u *UI) quit(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	return gocui.ErrQuit
}

func (u *UI) forceQuit(_ *gocui.Gui, _ *gocui.View) error {
	return gocui.ErrQuit
}

func (u *UI) toggleHelp(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() && !u.helpActive {
		return nil
	}
	u.helpActive = !u.helpActive
	if !u.helpActive {
		u.closeOverlay(gui, viewHelp)
	}
	return nil
}

func (u *UI) closeHelp(gui *gocui.Gui, _ *gocui.View) error {
	u.helpActive = false
	u.closeOverlay(gui, viewHelp)
	return nil
}

func (u *UI) showHelp(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(64, maxX/2)
	height := min(maxY-2, 28)
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewHelp, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Help"
		view.Wrap = true
	}
	view.Clear()
	fmt.Fprint(view, helpText())
	_, _ = gui.SetCurrentView(viewHelp)
	return nil
}

func helpText() string {
	return strings.Join([]string{
		"Navigation:",
		"  j/k or arrows move | enter collapse/expand | 1 tasks | 2 history",
		"  tab/shift-tab next/previous project | mouse click selects, wheel scrolls",
		"",
		"Tasks:",
		"  a add task | A add subtask | E edit | d delete (with subtasks)",
		"  c cycle status ToDo > InProgress > Review > Done",
		"",
		"Time:",
		"  e add estimation, e.g. 2d 4h 30m (a day is 8h)",
		"  x delete the latest estimation",
		"  l log progress, e.g. 90m or 1h @2026-02-01",
		"",
		"Filters:",
		"  / search titles | s status | p priority | u assignee | g clear",
		"  v cycle saved views | w save filters as a view",
		"",
		"Form:",
		"  tab/arrows move between fields | space/left/right cycle status and priority",
		"  enter save | esc cancel",
		"",
		"Other:",
		"  r reload | ? help | esc/q close help | q quit",
	}, "\n")
}

func applyViewStyle(view *gocui.View, focused bool, highlight bool) {
	view.Frame = true
	view.Highlight = focused && highlight
	view.HighlightInactive = false
	view.SelBgColor = gocui.ColorBlue
	view.SelFgColor = gocui.ColorBlack
	view.InactiveViewSelBgColor = gocui.ColorDefault
	if focused {
		view.FrameColor = gocui.ColorCyan
		view.TitleColor = gocui.ColorCyan
	} else {
		view.FrameColor = gocui.ColorDefault
		view.TitleColor = gocui.ColorDefault
	}
}

func (u *UI) currentProject() *model.Project {
	if u.projectIndex >= 0 && u.projectIndex < len(u.projects) {
		return &u.projects[u.projectIndex]
	}
	return nil
}

func (u *UI) projectTitle() string {
	project := u.currentProject()
	if project == nil {
		return "No project"
	}
	return project.Name
}

func (u *UI) selectProject(name string) {
	name = strings.TrimSpace(name)
	for i, project := range u.projects {
		if project.Name == name {
			u.projectIndex = i
			return
		}
	}
}
