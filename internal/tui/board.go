package tui

import (
	"context"
	"fmt"
	"slices"

	"github.com/jesseduffield/gocui"

	"github.com/Joseda-hg/lazyboard/internal/model"
	"github.com/Joseda-hg/lazyboard/internal/tasktree"
)

// loadBoard reloads projects, the current project's forest and saved views,
// then rebuilds the visible rows.
func (u *UI) loadBoard() error {
	ctx := context.Background()
	projects, err := u.store.ListProjects(ctx)
	if err != nil {
		return err
	}
	u.projects = projects
	if u.projectIndex >= len(u.projects) {
		u.projectIndex = max(len(u.projects)-1, 0)
	}

	views, err := u.store.ListViews(ctx)
	if err != nil {
		return err
	}
	u.views = views

	project := u.currentProject()
	if project == nil {
		u.forest = nil
		u.summaries = nil
		u.refreshRows()
		return u.loadDetail()
	}

	forest, err := u.store.LoadForest(ctx, project.ID)
	if err != nil {
		return err
	}
	summaries, err := u.store.TimeSummaries(ctx, project.ID)
	if err != nil {
		return err
	}
	u.forest = forest
	u.summaries = summaries
	u.refreshRows()
	return u.loadDetail()
}

// refreshRows applies the criteria and collapse state to the loaded forest.
func (u *UI) refreshRows() {
	u.rows = tasktree.Flatten(tasktree.Filter(u.forest, u.criteria), u.collapsed)
	if u.selected >= len(u.rows) {
		u.selected = max(len(u.rows)-1, 0)
	}
}

func (u *UI) loadDetail() error {
	selected := u.selectedTask()
	if selected == nil {
		u.estimations = nil
		u.progress = nil
		u.history = nil
		return nil
	}

	ctx := context.Background()
	estimations, err := u.store.ListEstimations(ctx, selected.ID)
	if err != nil {
		return err
	}
	progress, err := u.store.ListProgress(ctx, selected.ID)
	if err != nil {
		return err
	}
	history, err := u.store.ListHistory(ctx, selected.ID)
	if err != nil {
		return err
	}
	u.estimations = estimations
	u.progress = progress
	u.history = history
	if u.selectedHistory >= len(u.history) {
		u.selectedHistory = max(len(u.history)-1, 0)
	}
	return nil
}

func (u *UI) selectedTask() *model.TaskNode {
	if u.selected >= 0 && u.selected < len(u.rows) {
		return &u.rows[u.selected].Node
	}
	return nil
}

func (u *UI) selectedHistoryEntry() *model.HistoryEntry {
	if u.selectedHistory >= 0 && u.selectedHistory < len(u.history) {
		return &u.history[u.selectedHistory]
	}
	return nil
}

// selectTask moves the selection to id when it is visible.
func (u *UI) selectTask(id string) {
	for i, row := range u.rows {
		if row.Node.ID == id {
			u.selected = i
			return
		}
	}
}

func (u *UI) moveDown(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	switch u.focus {
	case viewHistory:
		if u.selectedHistory < len(u.history)-1 {
			u.selectedHistory++
		}
	default:
		if u.selected < len(u.rows)-1 {
			u.selected++
			u.selectedHistory = 0
			return u.loadDetail()
		}
	}
	return nil
}

func (u *UI) moveUp(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	switch u.focus {
	case viewHistory:
		if u.selectedHistory > 0 {
			u.selectedHistory--
		}
	default:
		if u.selected > 0 {
			u.selected--
			u.selectedHistory = 0
			return u.loadDetail()
		}
	}
	return nil
}

func (u *UI) reload(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.status = ""
	return u.loadBoard()
}

func (u *UI) toggleCollapse(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.focus != viewTasks {
		return nil
	}
	if u.selected < 0 || u.selected >= len(u.rows) || !u.rows[u.selected].HasChildren {
		return nil
	}
	id := u.rows[u.selected].Node.ID
	u.collapsed[id] = !u.collapsed[id]
	u.refreshRows()
	u.selectTask(id)
	return nil
}

func (u *UI) nextProject(_ *gocui.Gui, _ *gocui.View) error {
	return u.shiftProject(1)
}

func (u *UI) prevProject(_ *gocui.Gui, _ *gocui.View) error {
	return u.shiftProject(-1)
}

func (u *UI) shiftProject(delta int) error {
	if u.inputActive() || len(u.projects) < 2 {
		return nil
	}
	u.projectIndex = (u.projectIndex + delta + len(u.projects)) % len(u.projects)
	u.selected = 0
	u.selectedHistory = 0
	u.status = ""
	if err := u.loadBoard(); err != nil {
		return err
	}
	u.logger.Logf("[DEBUG] switched to project %q", u.projectTitle())
	return nil
}

// Filters

func (u *UI) cycleStatusFilter(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	keys := make([]string, 0, len(model.Statuses))
	for _, status := range model.Statuses {
		keys = append(keys, status.Key())
	}
	u.criteria.Statuses = cycleFilter(keys, u.criteria.Statuses)
	return u.applyCriteria()
}

func (u *UI) cyclePriorityFilter(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	keys := make([]string, 0, len(model.Priorities))
	for _, priority := range model.Priorities {
		keys = append(keys, priority.Key())
	}
	u.criteria.Priorities = cycleFilter(keys, u.criteria.Priorities)
	return u.applyCriteria()
}

func (u *UI) cycleAssigneeFilter(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.criteria.Assignees = cycleFilter(tasktree.Assignees(u.forest), u.criteria.Assignees)
	return u.applyCriteria()
}

// cycleFilter steps a single-valued filter through options: none, the first
// option, the next one, ..., back to none. A multi-valued filter starts over.
func cycleFilter(options []string, current []string) []string {
	if len(options) == 0 {
		return nil
	}
	if len(current) != 1 {
		if len(current) == 0 {
			return []string{options[0]}
		}
		return nil
	}
	index := slices.Index(options, current[0])
	if index < 0 {
		return []string{options[0]}
	}
	if index == len(options)-1 {
		return nil
	}
	return []string{options[index+1]}
}

func (u *UI) clearFilters(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.criteria = model.FilterCriteria{}
	u.activeView = nil
	return u.applyCriteria()
}

func (u *UI) cycleSavedView(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if len(u.views) == 0 {
		u.status = "no saved views, press w to save the current filters"
		return nil
	}
	next := 0
	if u.activeView != nil {
		index := slices.IndexFunc(u.views, func(v model.View) bool { return v.ID == u.activeView.ID })
		next = index + 1
	}
	if next >= len(u.views) {
		u.activeView = nil
		u.criteria = model.FilterCriteria{}
		return u.applyCriteria()
	}
	view := u.views[next]
	u.activeView = &view
	u.criteria = view.Criteria
	return u.applyCriteria()
}

func (u *UI) applyCriteria() error {
	var keep string
	if selected := u.selectedTask(); selected != nil {
		keep = selected.ID
	}
	u.status = ""
	u.refreshRows()
	if keep != "" {
		u.selectTask(keep)
	}
	return u.loadDetail()
}

// Task actions

func (u *UI) deleteTask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	title := selected.Title
	if err := u.store.DeleteTask(context.Background(), selected.ID); err != nil {
		u.storeFailed("delete task", err)
		return nil
	}
	u.status = fmt.Sprintf("deleted %q", title)
	return u.loadBoard()
}

func (u *UI) cycleTaskStatus(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	id := selected.ID
	next := nextStatus(selected.Status)
	if _, err := u.store.SetStatus(context.Background(), id, next); err != nil {
		u.storeFailed("set status", err)
		return nil
	}
	u.status = ""
	return u.reloadKeeping(id)
}

func (u *UI) deleteLastEstimation(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	if len(u.estimations) == 0 {
		u.status = "no estimations to delete"
		return nil
	}
	last := u.estimations[len(u.estimations)-1]
	if err := u.store.DeleteEstimation(context.Background(), selected.ID, last.ID); err != nil {
		u.storeFailed("delete estimation", err)
		return nil
	}
	u.status = fmt.Sprintf("removed estimation %q", last.RawInput)
	return u.reloadKeeping(selected.ID)
}

// reloadKeeping reloads the board and keeps id selected when it survives.
func (u *UI) reloadKeeping(id string) error {
	if err := u.loadBoard(); err != nil {
		return err
	}
	u.selectTask(id)
	return u.loadDetail()
}

func nextStatus(current model.Status) model.Status {
	index := slices.Index(model.Statuses, current)
	return model.Statuses[(index+1)%len(model.Statuses)]
}

func prevStatus(current model.Status) model.Status {
	index := max(slices.Index(model.Statuses, current), 0)
	return model.Statuses[(index-1+len(model.Statuses))%len(model.Statuses)]
}

func nextPriority(current model.Priority) model.Priority {
	index := slices.Index(model.Priorities, current)
	return model.Priorities[(index+1)%len(model.Priorities)]
}

func prevPriority(current model.Priority) model.Priority {
	index := max(slices.Index(model.Priorities, current), 0)
	return model.Priorities[(index-1+len(model.Priorities))%len(model.Priorities)]
}
