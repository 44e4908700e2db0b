package tui

import (
	"context"
	"fmt"
	"strings"

	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"

	"github.com/Joseda-hg/lazyboard/internal/duration"
	"github.com/Joseda-hg/lazyboard/internal/model"
	"github.com/Joseda-hg/lazyboard/internal/tasktree"
)

type promptKind int

const (
	promptEstimate promptKind = iota
	promptProgress
	promptSaveView
)

type promptState struct {
	kind   promptKind
	taskID string
}

func (p promptState) title(value string) string {
	switch p.kind {
	case promptEstimate:
		return fmt.Sprintf("Estimate (= %s)", duration.Normalize(value))
	case promptProgress:
		raw, _ := splitLoggedOn(value)
		return fmt.Sprintf("Log progress (= %s), optional @YYYY-MM-DD", duration.Normalize(raw))
	default:
		return "Save filters as view"
	}
}

func (u *UI) startSearch(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.searchActive = true
	return nil
}

func (u *UI) showSearch(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(30, maxX/2)
	height := 2
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewSearch, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Search"
		view.Wrap = true
		view.Clear()
		fmt.Fprint(view, u.criteria.SearchText)
		view.SetCursor(len([]rune(u.criteria.SearchText)), 0)
	}
	view.Editable = true
	view.Editor = gocui.DefaultEditor
	_, _ = gui.SetCurrentView(viewSearch)
	return nil
}

func (u *UI) submitSearch(gui *gocui.Gui, view *gocui.View) error {
	value := ""
	if view != nil {
		value = view.Buffer()
	}
	u.searchActive = false
	u.closeOverlay(gui, viewSearch)
	return u.applySearch(value)
}

func (u *UI) applySearch(value string) error {
	u.criteria.SearchText = strings.TrimSpace(value)
	return u.applyCriteria()
}

func (u *UI) cancelSearch(gui *gocui.Gui, _ *gocui.View) error {
	u.searchActive = false
	u.closeOverlay(gui, viewSearch)
	return nil
}

func (u *UI) startEstimate(_ *gocui.Gui, _ *gocui.View) error {
	return u.startTaskPrompt(promptEstimate)
}

func (u *UI) startLogProgress(_ *gocui.Gui, _ *gocui.View) error {
	return u.startTaskPrompt(promptProgress)
}

func (u *UI) startTaskPrompt(kind promptKind) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	u.prompt = &promptState{kind: kind, taskID: selected.ID}
	return nil
}

func (u *UI) startSaveView(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.criteria.IsEmpty() {
		u.status = "no active filters to save"
		return nil
	}
	u.prompt = &promptState{kind: promptSaveView}
	return nil
}

func (u *UI) showPrompt(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(50, maxX/2)
	height := 2
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewPrompt, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Wrap = true
		view.Clear()
		if u.prompt.kind == promptSaveView && u.activeView != nil {
			fmt.Fprint(view, u.activeView.Name)
			view.SetCursor(len([]rune(u.activeView.Name)), 0)
		}
	}
	view.Title = u.prompt.title(view.Buffer())
	view.Editable = true
	view.Editor = gocui.DefaultEditor
	_, _ = gui.SetCurrentView(viewPrompt)
	return nil
}

func (u *UI) submitPrompt(gui *gocui.Gui, view *gocui.View) error {
	if u.prompt == nil {
		return nil
	}
	value := ""
	if view != nil {
		value = view.Buffer()
	}
	return u.applyPrompt(gui, value)
}

// applyPrompt stores the prompt value. On failure the prompt stays open and
// the error is shown in the footer.
func (u *UI) applyPrompt(gui *gocui.Gui, value string) error {
	prompt := *u.prompt
	value = strings.TrimSpace(value)
	if value == "" {
		return u.cancelPrompt(gui, nil)
	}

	ctx := context.Background()
	switch prompt.kind {
	case promptEstimate:
		entry, err := u.store.AddEstimation(ctx, prompt.taskID, value)
		if err != nil {
			u.storeFailed("add estimation", err)
			return nil
		}
		u.status = fmt.Sprintf("estimated %s", duration.FormatMinutes(entry.Minutes))
	case promptProgress:
		raw, loggedOn := splitLoggedOn(value)
		if loggedOn != "" {
			if _, ok := tasktree.ParseDate(loggedOn); !ok {
				u.status = fmt.Sprintf("invalid date %q", loggedOn)
				return nil
			}
		}
		entry, err := u.store.LogProgress(ctx, prompt.taskID, raw, loggedOn)
		if err != nil {
			u.storeFailed("log progress", err)
			return nil
		}
		u.status = fmt.Sprintf("logged %s on %s", duration.FormatMinutes(entry.Minutes), entry.LoggedOn)
	case promptSaveView:
		view := model.View{Name: value, Criteria: u.criteria}
		if u.activeView != nil && u.activeView.Name == value {
			view.ID = u.activeView.ID
		}
		saved, err := u.store.SaveView(ctx, view)
		if err != nil {
			u.storeFailed("save view", err)
			return nil
		}
		u.activeView = &saved
		u.status = fmt.Sprintf("saved view %q", saved.Name)
	}

	u.prompt = nil
	u.closeOverlay(gui, viewPrompt)
	if prompt.taskID != "" {
		return u.reloadKeeping(prompt.taskID)
	}
	return u.loadBoard()
}

func (u *UI) cancelPrompt(gui *gocui.Gui, _ *gocui.View) error {
	u.prompt = nil
	u.closeOverlay(gui, viewPrompt)
	return nil
}

// splitLoggedOn separates "1h 30m @2026-02-01" into the duration and the date.
func splitLoggedOn(value string) (string, string) {
	raw, date, found := strings.Cut(value, "@")
	if !found {
		return strings.TrimSpace(value), ""
	}
	return strings.TrimSpace(raw), strings.TrimSpace(date)
}
