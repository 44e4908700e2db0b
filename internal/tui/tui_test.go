package tui

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/jesseduffield/gocui"

	"github.com/Joseda-hg/lazyboard/internal/db"
	"github.com/Joseda-hg/lazyboard/internal/model"
)

func TestCycleTaskStatus(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	project := newTestProject(t, store, "Board")
	task := newTestTask(t, store, project.ID, db.TaskInput{Title: "Cycle status"})

	ui := newTestUI(t, store)
	want := []model.Status{model.StatusInProgress, model.StatusReview, model.StatusDone, model.StatusToDo}
	for _, status := range want {
		if err := ui.cycleTaskStatus(nil, nil); err != nil {
			t.Fatalf("cycle status: %v", err)
		}
		got, err := store.GetTask(context.Background(), task.ID)
		if err != nil {
			t.Fatalf("get task: %v", err)
		}
		if got.Status != status {
			t.Fatalf("expected status %q, got %q", status, got.Status)
		}
	}
}

func TestCollapseHidesChildren(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	project := newTestProject(t, store, "Board")
	parent := newTestTask(t, store, project.ID, db.TaskInput{Title: "Parent"})
	newTestTask(t, store, project.ID, db.TaskInput{Title: "Child", ParentID: &parent.ID})
	newTestTask(t, store, project.ID, db.TaskInput{Title: "Sibling"})

	ui := newTestUI(t, store)
	if len(ui.rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(ui.rows))
	}

	if err := ui.toggleCollapse(nil, nil); err != nil {
		t.Fatalf("collapse: %v", err)
	}
	if len(ui.rows) != 2 || !ui.rows[0].Collapsed {
		t.Fatalf("expected Parent collapsed with 2 visible rows, got %+v", ui.rows)
	}
	if !strings.HasPrefix(formatRow(ui.rows[0], nil), "+ ") {
		t.Fatalf("expected collapsed marker, got %q", formatRow(ui.rows[0], nil))
	}

	if err := ui.moveDown(nil, nil); err != nil {
		t.Fatalf("move down: %v", err)
	}
	if ui.selectedTask().Title != "Sibling" {
		t.Fatalf("expected Sibling selected, got %q", ui.selectedTask().Title)
	}
	if err := ui.toggleCollapse(nil, nil); err != nil {
		t.Fatalf("collapse leaf: %v", err)
	}
	if len(ui.rows) != 2 {
		t.Fatalf("expected collapsing a leaf to be a no-op")
	}
}

func TestFilterKeysKeepAncestors(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	project := newTestProject(t, store, "Board")
	parent := newTestTask(t, store, project.ID, db.TaskInput{Title: "Parent", Assignees: []string{"Ravi"}})
	newTestTask(t, store, project.ID, db.TaskInput{Title: "Child", Status: "in progress", Assignees: []string{"Ana"}, ParentID: &parent.ID})
	newTestTask(t, store, project.ID, db.TaskInput{Title: "Other", Priority: "high"})

	ui := newTestUI(t, store)

	if err := ui.cycleStatusFilter(nil, nil); err != nil {
		t.Fatalf("status filter: %v", err)
	}
	if got := ui.criteria.Statuses; len(got) != 1 || got[0] != "todo" {
		t.Fatalf("expected todo filter, got %v", got)
	}
	if err := ui.cycleStatusFilter(nil, nil); err != nil {
		t.Fatalf("status filter: %v", err)
	}
	if len(ui.rows) != 2 || ui.rows[0].Node.Title != "Parent" || ui.rows[1].Node.Title != "Child" {
		t.Fatalf("expected Parent kept as ancestor of the in-progress Child, got %+v", rowTitles(ui))
	}

	if err := ui.clearFilters(nil, nil); err != nil {
		t.Fatalf("clear filters: %v", err)
	}
	if err := ui.cyclePriorityFilter(nil, nil); err != nil {
		t.Fatalf("priority filter: %v", err)
	}
	if got := ui.criteria.Priorities; len(got) != 1 || got[0] != "low" {
		t.Fatalf("expected low filter, got %v", got)
	}
	if len(ui.rows) != 0 {
		t.Fatalf("expected no low priority tasks, got %v", rowTitles(ui))
	}

	if err := ui.clearFilters(nil, nil); err != nil {
		t.Fatalf("clear filters: %v", err)
	}
	if err := ui.cycleAssigneeFilter(nil, nil); err != nil {
		t.Fatalf("assignee filter: %v", err)
	}
	if got := ui.criteria.Assignees; len(got) != 1 || got[0] != "Ravi" {
		t.Fatalf("expected Ravi first, got %v", got)
	}
	if err := ui.cycleAssigneeFilter(nil, nil); err != nil {
		t.Fatalf("assignee filter: %v", err)
	}
	if len(ui.rows) != 2 || ui.rows[1].Node.Title != "Child" {
		t.Fatalf("expected Parent > Child for Ana, got %v", rowTitles(ui))
	}
	if err := ui.cycleAssigneeFilter(nil, nil); err != nil {
		t.Fatalf("assignee filter: %v", err)
	}
	if ui.criteria.Assignees != nil || len(ui.rows) != 3 {
		t.Fatalf("expected the filter to cycle back to none, got %v", ui.criteria.Assignees)
	}

	if err := ui.applySearch("  CHI "); err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(ui.rows) != 2 || ui.rows[1].Node.Title != "Child" {
		t.Fatalf("expected case-insensitive search to match Child, got %v", rowTitles(ui))
	}
	if !strings.Contains(ui.headerText(), "Search: CHI") {
		t.Fatalf("expected header to show the search, got %q", ui.headerText())
	}
}

func TestCycleFilter(t *testing.T) {
	options := []string{"a", "b"}
	tests := []struct {
		current []string
		want    []string
	}{
		{current: nil, want: []string{"a"}},
		{current: []string{"a"}, want: []string{"b"}},
		{current: []string{"b"}, want: nil},
		{current: []string{"gone"}, want: []string{"a"}},
		{current: []string{"a", "b"}, want: nil},
	}
	for _, tt := range tests {
		got := cycleFilter(options, tt.current)
		if strings.Join(got, ",") != strings.Join(tt.want, ",") || (got == nil) != (tt.want == nil) {
			t.Fatalf("cycleFilter(%v) = %v, want %v", tt.current, got, tt.want)
		}
	}
	if got := cycleFilter(nil, []string{"a"}); got != nil {
		t.Fatalf("expected nil without options, got %v", got)
	}
}

func TestEstimateAndLogProgress(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	project := newTestProject(t, store, "Board")
	task := newTestTask(t, store, project.ID, db.TaskInput{Title: "Timed"})

	ui := newTestUI(t, store)

	if err := ui.startEstimate(nil, nil); err != nil {
		t.Fatalf("start estimate: %v", err)
	}
	if ui.prompt == nil || ui.prompt.taskID != task.ID {
		t.Fatalf("expected estimate prompt for the selected task")
	}
	if got := ui.prompt.title("90m"); got != "Estimate (= 1h 30m)" {
		t.Fatalf("unexpected prompt title %q", got)
	}
	if err := ui.applyPrompt(nil, "2d 4h 30m"); err != nil {
		t.Fatalf("apply estimate: %v", err)
	}
	if ui.prompt != nil {
		t.Fatalf("expected prompt to close")
	}
	if len(ui.estimations) != 1 || ui.estimations[0].Minutes != 1230 {
		t.Fatalf("expected 1230 minute estimation, got %+v", ui.estimations)
	}

	if err := ui.startLogProgress(nil, nil); err != nil {
		t.Fatalf("start progress: %v", err)
	}
	if err := ui.applyPrompt(nil, "1h @not-a-date"); err != nil {
		t.Fatalf("apply progress: %v", err)
	}
	if ui.prompt == nil || !strings.Contains(ui.status, "invalid date") {
		t.Fatalf("expected prompt to stay open on a bad date, status %q", ui.status)
	}
	if err := ui.applyPrompt(nil, "1h 30m @2026-02-01"); err != nil {
		t.Fatalf("apply progress: %v", err)
	}
	if len(ui.progress) != 1 || ui.progress[0].LoggedOn != "2026-02-01" || ui.progress[0].Minutes != 90 {
		t.Fatalf("unexpected progress %+v", ui.progress)
	}

	lines := strings.Join(ui.detailLines(), "\n")
	if !strings.Contains(lines, "Time: 1h 30m logged / 2d 4h 30m estimated, 2d 3h remaining") {
		t.Fatalf("unexpected detail lines:\n%s", lines)
	}
	if got := formatRow(ui.rows[0], ui.summaries); !strings.HasSuffix(got, "1h 30m/2d 4h 30m") {
		t.Fatalf("expected row to show logged/estimated, got %q", got)
	}

	if err := ui.deleteLastEstimation(nil, nil); err != nil {
		t.Fatalf("delete estimation: %v", err)
	}
	if len(ui.estimations) != 0 {
		t.Fatalf("expected estimation removed, got %+v", ui.estimations)
	}
	if err := ui.deleteLastEstimation(nil, nil); err != nil {
		t.Fatalf("delete estimation again: %v", err)
	}
	if ui.status != "no estimations to delete" {
		t.Fatalf("unexpected status %q", ui.status)
	}
}

func TestSubmitFormCreatesSubtask(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	project := newTestProject(t, store, "Board")
	parent := newTestTask(t, store, project.ID, db.TaskInput{Title: "Parent", Priority: "high", Assignees: []string{"Ana"}})

	ui := newTestUI(t, store)
	ui.collapsed[parent.ID] = true

	if err := ui.addSubtask(nil, nil); err != nil {
		t.Fatalf("add subtask: %v", err)
	}
	if ui.form == nil || ui.form.parentID == nil || *ui.form.parentID != parent.ID {
		t.Fatalf("expected subtask form for Parent")
	}
	if ui.form.fields[fieldPriority].Value != "High" || ui.form.fields[fieldAssignees].Value != "Ana" {
		t.Fatalf("expected priority and assignees copied from parent, got %+v", ui.form.fields)
	}

	if err := ui.submitForm(nil, nil); err != nil {
		t.Fatalf("submit empty form: %v", err)
	}
	if ui.form == nil || ui.status != model.ErrInvalidTitle.Error() {
		t.Fatalf("expected form to stay open with a title error, status %q", ui.status)
	}

	ui.form.fields[fieldTitle].Value = "Child"
	ui.form.fields[fieldDue].Value = "someday"
	if err := ui.submitForm(nil, nil); err != nil {
		t.Fatalf("submit form: %v", err)
	}
	if ui.form == nil || !strings.Contains(ui.status, "invalid due date") {
		t.Fatalf("expected due date error, status %q", ui.status)
	}

	ui.form.fields[fieldDue].Value = "2026-02-10"
	if err := ui.submitForm(nil, nil); err != nil {
		t.Fatalf("submit form: %v", err)
	}
	if ui.form != nil {
		t.Fatalf("expected form to close, status %q", ui.status)
	}
	if len(ui.rows) != 2 || ui.selectedTask().Title != "Child" {
		t.Fatalf("expected new Child visible and selected, got %v", rowTitles(ui))
	}
	if ui.selectedTask().DueDate != "2026-02-10" {
		t.Fatalf("unexpected due date %q", ui.selectedTask().DueDate)
	}
}

func TestEditFormCyclesEnums(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	project := newTestProject(t, store, "Board")
	newTestTask(t, store, project.ID, db.TaskInput{Title: "Edit me"})

	ui := newTestUI(t, store)
	if err := ui.editTask(nil, nil); err != nil {
		t.Fatalf("edit task: %v", err)
	}

	ui.form.index = fieldStatus
	ui.editField(&ui.form.fields[fieldStatus], gocui.KeyArrowLeft, 0, gocui.ModNone)
	if ui.form.fields[fieldStatus].Value != "Done" {
		t.Fatalf("expected ToDo to wrap back to Done, got %q", ui.form.fields[fieldStatus].Value)
	}
	ui.form.index = fieldPriority
	ui.editField(&ui.form.fields[fieldPriority], gocui.KeyArrowRight, 0, gocui.ModNone)
	if ui.form.fields[fieldPriority].Value != "High" {
		t.Fatalf("expected Medium to step to High, got %q", ui.form.fields[fieldPriority].Value)
	}
	ui.form.index = fieldTitle
	ui.editField(&ui.form.fields[fieldTitle], 0, '!', gocui.ModNone)
	ui.editField(&ui.form.fields[fieldTitle], gocui.KeyBackspace2, 0, gocui.ModNone)
	ui.editField(&ui.form.fields[fieldTitle], 0, '?', gocui.ModNone)

	if err := ui.submitForm(nil, nil); err != nil {
		t.Fatalf("submit form: %v", err)
	}
	task := ui.selectedTask()
	if task.Title != "Edit me?" || task.Status != model.StatusDone || task.Priority != model.PriorityHigh {
		t.Fatalf("unexpected edited task %+v", task)
	}
}

func TestSaveAndCycleViews(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	project := newTestProject(t, store, "Board")
	newTestTask(t, store, project.ID, db.TaskInput{Title: "Mine", Assignees: []string{"Ana"}})
	newTestTask(t, store, project.ID, db.TaskInput{Title: "Theirs", Assignees: []string{"Ravi"}})

	ui := newTestUI(t, store)
	if err := ui.startSaveView(nil, nil); err != nil {
		t.Fatalf("start save view: %v", err)
	}
	if ui.prompt != nil {
		t.Fatalf("expected no prompt without active filters")
	}

	if err := ui.cycleAssigneeFilter(nil, nil); err != nil {
		t.Fatalf("assignee filter: %v", err)
	}
	if err := ui.startSaveView(nil, nil); err != nil {
		t.Fatalf("start save view: %v", err)
	}
	if err := ui.applyPrompt(nil, "Ana's work"); err != nil {
		t.Fatalf("save view: %v", err)
	}
	if ui.activeView == nil || ui.activeView.Name != "Ana's work" {
		t.Fatalf("expected active view, got %+v", ui.activeView)
	}

	if err := ui.clearFilters(nil, nil); err != nil {
		t.Fatalf("clear filters: %v", err)
	}
	if len(ui.rows) != 2 {
		t.Fatalf("expected all rows after clearing, got %v", rowTitles(ui))
	}
	if err := ui.cycleSavedView(nil, nil); err != nil {
		t.Fatalf("cycle view: %v", err)
	}
	if len(ui.rows) != 1 || ui.rows[0].Node.Title != "Mine" {
		t.Fatalf("expected saved view applied, got %v", rowTitles(ui))
	}
	if err := ui.cycleSavedView(nil, nil); err != nil {
		t.Fatalf("cycle view: %v", err)
	}
	if ui.activeView != nil || len(ui.rows) != 2 {
		t.Fatalf("expected cycling past the last view to clear it")
	}
}

func TestDeleteTaskAndSwitchProject(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	first := newTestProject(t, store, "First")
	second := newTestProject(t, store, "Second")
	newTestTask(t, store, first.ID, db.TaskInput{Title: "One"})
	newTestTask(t, store, second.ID, db.TaskInput{Title: "Two"})

	ui := newTestUI(t, store)
	ui.selectProject("Second")
	if err := ui.loadBoard(); err != nil {
		t.Fatalf("load board: %v", err)
	}
	if ui.selectedTask().Title != "Two" {
		t.Fatalf("expected project Second, got %v", rowTitles(ui))
	}

	if err := ui.nextProject(nil, nil); err != nil {
		t.Fatalf("next project: %v", err)
	}
	if ui.projectTitle() != "First" || ui.selectedTask().Title != "One" {
		t.Fatalf("expected to wrap to First, got %s %v", ui.projectTitle(), rowTitles(ui))
	}

	if err := ui.deleteTask(nil, nil); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if len(ui.rows) != 0 || ui.selectedTask() != nil {
		t.Fatalf("expected empty board, got %v", rowTitles(ui))
	}
	if lines := ui.detailLines(); len(lines) != 1 || lines[0] != "No task selected" {
		t.Fatalf("unexpected detail lines %v", lines)
	}
}

func TestHistoryLinesUseRelativeTime(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	project := newTestProject(t, store, "Board")
	newTestTask(t, store, project.ID, db.TaskInput{Title: "Old news"})

	ui := newTestUI(t, store)
	ui.now = func() time.Time { return ui.history[0].CreatedAt.Add(3 * time.Hour) }
	lines := ui.historyLines()
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "3 hours ago | created | created: title='Old news'") {
		t.Fatalf("unexpected history lines %v", lines)
	}
}

func TestInputActiveBlocksActions(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	project := newTestProject(t, store, "Board")
	newTestTask(t, store, project.ID, db.TaskInput{Title: "Busy"})

	ui := newTestUI(t, store)
	ui.searchActive = true
	if err := ui.deleteTask(nil, nil); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if err := ui.quit(nil, nil); err != nil {
		t.Fatalf("expected quit to be ignored while typing, got %v", err)
	}
	if len(ui.rows) != 1 {
		t.Fatalf("expected task to survive while search is active")
	}
	if err := ui.forceQuit(nil, nil); err != gocui.ErrQuit {
		t.Fatalf("expected ErrQuit, got %v", err)
	}
}

func TestStoreFailuresAreLogged(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	project := newTestProject(t, store, "Board")
	newTestProject(t, store, "Other")
	newTestTask(t, store, project.ID, db.TaskInput{Title: "Mine", Assignees: []string{"Ana"}})
	if _, err := store.SaveView(context.Background(), model.View{Name: "Taken", Criteria: model.FilterCriteria{SearchText: "x"}}); err != nil {
		t.Fatalf("save view: %v", err)
	}

	var logged []string
	ui := newUI(store, lgr.Func(func(format string, args ...any) {
		logged = append(logged, fmt.Sprintf(format, args...))
	}))
	if err := ui.loadBoard(); err != nil {
		t.Fatalf("load board: %v", err)
	}

	if err := ui.cycleAssigneeFilter(nil, nil); err != nil {
		t.Fatalf("assignee filter: %v", err)
	}
	if err := ui.startSaveView(nil, nil); err != nil {
		t.Fatalf("start save view: %v", err)
	}
	if err := ui.applyPrompt(nil, "Taken"); err != nil {
		t.Fatalf("save view: %v", err)
	}
	if ui.prompt == nil || !strings.Contains(ui.status, model.ErrDuplicateName.Error()) {
		t.Fatalf("expected prompt to stay open with a duplicate name error, status %q", ui.status)
	}
	if len(logged) != 1 || !strings.HasPrefix(logged[0], "[WARN] save view: ") {
		t.Fatalf("expected one warning for the failed save, got %v", logged)
	}

	if err := ui.cancelPrompt(nil, nil); err != nil {
		t.Fatalf("cancel prompt: %v", err)
	}
	if err := ui.nextProject(nil, nil); err != nil {
		t.Fatalf("next project: %v", err)
	}
	if len(logged) != 2 || logged[1] != `[DEBUG] switched to project "Other"` {
		t.Fatalf("expected project switch to be logged, got %v", logged)
	}
}

func rowTitles(ui *UI) []string {
	titles := make([]string, 0, len(ui.rows))
	for _, row := range ui.rows {
		titles = append(titles, row.Node.Title)
	}
	return titles
}

func newTestUI(t *testing.T, store *db.Store) *UI {
	t.Helper()
	ui := newUI(store, nil)
	if err := ui.loadBoard(); err != nil {
		t.Fatalf("load board: %v", err)
	}
	return ui
}

func newTestProject(t *testing.T, store *db.Store, name string) model.Project {
	t.Helper()
	project, err := store.CreateProject(context.Background(), name)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return project
}

func newTestTask(t *testing.T, store *db.Store, projectID string, input db.TaskInput) model.TaskNode {
	t.Helper()
	task, err := store.CreateTask(context.Background(), projectID, input)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func newTestStore(t *testing.T) (*db.Store, func()) {
	t.Helper()
	dbConn, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return db.NewStore(dbConn), func() {
		_ = dbConn.Close()
	}
}
