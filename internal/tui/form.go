package tui

import (
	"context"
	"fmt"
	"strings"

	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"

	"github.com/Joseda-hg/lazyboard/internal/db"
	"github.com/Joseda-hg/lazyboard/internal/model"
	"github.com/Joseda-hg/lazyboard/internal/tasktree"
)

type formField struct {
	Label string
	Value string
}

const (
	fieldTitle = iota
	fieldDescription
	fieldStatus
	fieldPriority
	fieldAssignees
	fieldDue
)

type formState struct {
	taskID   string
	parentID *string
	fields   []formField
	index    int
}

func buildFormFields(task *model.TaskNode) []formField {
	fields := []formField{
		{Label: "Title"},
		{Label: "Description"},
		{Label: "Status (space/←→)"},
		{Label: "Priority (space/←→)"},
		{Label: "Assignees (comma separated)"},
		{Label: "Due (YYYY-MM-DD)"},
	}

	if task == nil {
		fields[fieldStatus].Value = string(model.StatusToDo)
		fields[fieldPriority].Value = string(model.PriorityMedium)
		return fields
	}

	fields[fieldTitle].Value = task.Title
	fields[fieldDescription].Value = task.Description
	fields[fieldStatus].Value = string(task.Status)
	fields[fieldPriority].Value = string(task.Priority)
	fields[fieldAssignees].Value = strings.Join(task.Assignees, ", ")
	fields[fieldDue].Value = task.DueDate
	return fields
}

func parseFormFields(fields []formField) (db.TaskInput, error) {
	title := strings.TrimSpace(fields[fieldTitle].Value)
	if title == "" {
		return db.TaskInput{}, model.ErrInvalidTitle
	}
	due := strings.TrimSpace(fields[fieldDue].Value)
	if due != "" {
		if _, ok := tasktree.ParseDate(due); !ok {
			return db.TaskInput{}, fmt.Errorf("invalid due date %q", due)
		}
	}

	return db.TaskInput{
		Title:       title,
		Description: strings.TrimSpace(fields[fieldDescription].Value),
		Status:      strings.TrimSpace(fields[fieldStatus].Value),
		Priority:    strings.TrimSpace(fields[fieldPriority].Value),
		Assignees:   parseAssignees(fields[fieldAssignees].Value),
		DueDate:     due,
	}, nil
}

func parseAssignees(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
	}
	return result
}

func (u *UI) addTask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.currentProject() == nil {
		return nil
	}
	u.form = &formState{fields: buildFormFields(nil)}
	return nil
}

func (u *UI) addSubtask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}

	fields := buildFormFields(nil)
	fields[fieldPriority].Value = string(selected.Priority)
	fields[fieldAssignees].Value = strings.Join(selected.Assignees, ", ")
	parentID := selected.ID
	u.form = &formState{fields: fields, parentID: &parentID}
	return nil
}

func (u *UI) editTask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	u.form = &formState{taskID: selected.ID, parentID: selected.ParentID, fields: buildFormFields(selected)}
	return nil
}

func (u *UI) showForm(gui *gocui.Gui) error {
	if u.form == nil {
		return nil
	}

	maxX, maxY := gui.Size()
	width := max(64, maxX/2)
	height := min(10, max(8, maxY/2))
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewForm, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Wrap = true
	}
	switch {
	case u.form.taskID != "":
		view.Title = "Edit Task"
	case u.form.parentID != nil:
		view.Title = "New Subtask"
	default:
		view.Title = "New Task"
	}
	view.Editable = true
	view.KeybindOnEdit = true
	view.Editor = u.formEditor
	u.renderForm(view)
	_, _ = gui.SetCurrentView(viewForm)
	return nil
}

func (u *UI) submitForm(gui *gocui.Gui, _ *gocui.View) error {
	if u.form == nil {
		return nil
	}
	project := u.currentProject()
	if project == nil {
		u.status = "no project selected"
		return nil
	}

	input, err := parseFormFields(u.form.fields)
	if err != nil {
		u.status = err.Error()
		return nil
	}
	input.ParentID = u.form.parentID

	ctx := context.Background()
	var saved model.TaskNode
	if u.form.taskID == "" {
		saved, err = u.store.CreateTask(ctx, project.ID, input)
	} else {
		saved, err = u.store.UpdateTask(ctx, u.form.taskID, input)
	}
	if err != nil {
		u.storeFailed("save task", err)
		return nil
	}

	if saved.ParentID != nil {
		u.collapsed[*saved.ParentID] = false
	}
	u.form = nil
	u.status = ""
	u.closeOverlay(gui, viewForm)
	return u.reloadKeeping(saved.ID)
}

func (u *UI) cancelForm(gui *gocui.Gui, _ *gocui.View) error {
	u.form = nil
	u.closeOverlay(gui, viewForm)
	return nil
}

func (u *UI) nextFormField(_ *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index < len(u.form.fields)-1 {
		u.form.index++
	}
	u.renderForm(view)
	return nil
}

func (u *UI) prevFormField(_ *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index > 0 {
		u.form.index--
	}
	u.renderForm(view)
	return nil
}

func (u *UI) renderForm(view *gocui.View) {
	if u.form == nil || view == nil {
		return
	}
	view.Clear()
	for index, field := range u.form.fields {
		prefix := "  "
		if index == u.form.index {
			prefix = "> "
		}
		fmt.Fprintf(view, "%s%s: %s\n", prefix, field.Label, field.Value)
	}
	current := u.form.fields[u.form.index]
	cursorX := len([]rune(current.Label+": ")) + len([]rune(current.Value)) + 2
	view.SetCursor(cursorX, u.form.index)
}

func (e *formEditor) Edit(view *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	ui := e.ui
	if ui == nil || ui.form == nil {
		return false
	}
	ui.editField(&ui.form.fields[ui.form.index], key, ch, mod)
	ui.renderForm(view)
	return true
}

// editField applies one key press to the focused form field. Status and
// priority only cycle through their values.
func (u *UI) editField(field *formField, key gocui.Key, ch rune, mod gocui.Modifier) {
	switch u.form.index {
	case fieldStatus:
		current := model.Status(field.Value)
		switch key {
		case gocui.KeyArrowRight, gocui.KeySpace:
			field.Value = string(nextStatus(current))
		case gocui.KeyArrowLeft:
			field.Value = string(prevStatus(current))
		}
		return
	case fieldPriority:
		current := model.Priority(field.Value)
		switch key {
		case gocui.KeyArrowRight, gocui.KeySpace:
			field.Value = string(nextPriority(current))
		case gocui.KeyArrowLeft:
			field.Value = string(prevPriority(current))
		}
		return
	}

	switch key {
	case gocui.KeyBackspace, gocui.KeyBackspace2:
		runes := []rune(field.Value)
		if len(runes) > 0 {
			field.Value = string(runes[:len(runes)-1])
		}
	case gocui.KeySpace:
		field.Value += " "
	case gocui.KeyCtrlU:
		field.Value = ""
	}

	if ch != 0 && ch != '\n' && ch != '\r' && mod == 0 {
		field.Value += string(ch)
	}
}
