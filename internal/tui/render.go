package tui

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jesseduffield/gocui"

	"github.com/Joseda-hg/lazyboard/internal/db"
	"github.com/Joseda-hg/lazyboard/internal/model"
	"github.com/Joseda-hg/lazyboard/internal/tasktree"
)

func (u *UI) renderHeader(view *gocui.View) {
	view.Clear()
	fmt.Fprint(view, u.headerText())
}

func (u *UI) headerText() string {
	c := u.criteria
	search := c.SearchText
	if search == "" {
		search = "type / to search"
	}
	viewLabel := "none"
	if u.activeView != nil {
		viewLabel = u.activeView.Name
	}

	due := "any"
	if c.DueFrom != "" || c.DueTo != "" {
		due = fmt.Sprintf("%s..%s", valueOr(c.DueFrom, "-"), valueOr(c.DueTo, "-"))
	}

	return fmt.Sprintf("%s | Search: %s | View: %s | Status: %s | Priority: %s | Assignee: %s | Due: %s",
		u.projectTitle(), search, viewLabel, listOr(c.Statuses, "any"), listOr(c.Priorities, "any"), listOr(c.Assignees, "any"), due)
}

func (u *UI) renderFooter(view *gocui.View) {
	view.Clear()
	view.SetOrigin(0, 0)
	view.SetCursor(0, 0)

	fmt.Fprintln(view, "a add | A subtask | E edit | d delete | c status | e estimate | x drop estimate | l log | enter collapse")
	fmt.Fprintln(view, "/ search | s status | p priority | u assignee | g clear | v views | w save view | tab project | ? help | q quit")
	if u.status != "" {
		fmt.Fprint(view, u.status)
	}
}

func (u *UI) renderTasks(view *gocui.View, focused bool) {
	view.Clear()
	if len(u.rows) == 0 {
		if u.criteria.IsEmpty() {
			fmt.Fprint(view, "  No tasks, press a to add one")
		} else {
			fmt.Fprint(view, "  No tasks match the filters, press g to clear them")
		}
		return
	}
	for i, row := range u.rows {
		prefix := " "
		if i == u.selected {
			if focused {
				prefix = ">"
			} else {
				prefix = "*"
			}
		}
		fmt.Fprintf(view, "%s %s\n", prefix, formatRow(row, u.summaries))
	}
	if focused {
		view.SetCursor(0, min(u.selected, len(u.rows)-1))
	}
}

// formatRow renders one tree line: prefix, collapse marker, status, title,
// priority, assignees and logged/estimated time.
func formatRow(row tasktree.Row, summaries map[string]model.TimeSummary) string {
	marker := " "
	if row.HasChildren {
		if row.Collapsed {
			marker = "+"
		} else {
			marker = "-"
		}
	}

	node := row.Node
	parts := []string{fmt.Sprintf("%s%s [%s] %s", row.Prefix, marker, statusShort(node.Status), node.Title)}
	if node.Priority == model.PriorityHigh {
		parts = append(parts, "!")
	}
	if len(node.Assignees) > 0 {
		parts = append(parts, "@"+strings.Join(node.Assignees, ",@"))
	}
	if node.DueDate != "" {
		parts = append(parts, "due "+node.DueDate)
	}
	if summary, ok := summaries[node.ID]; ok && (summary.EstimatedMinutes > 0 || summary.LoggedMinutes > 0) {
		parts = append(parts, fmt.Sprintf("%s/%s", summary.Logged, summary.Estimated))
	}
	return strings.Join(parts, " ")
}

func statusShort(status model.Status) string {
	switch status {
	case model.StatusInProgress:
		return "~"
	case model.StatusReview:
		return "?"
	case model.StatusDone:
		return "x"
	}
	return " "
}

func (u *UI) detailLines() []string {
	selected := u.selectedTask()
	if selected == nil {
		return []string{"No task selected"}
	}

	lines := []string{}
	if u.focus == viewHistory {
		if entry := u.selectedHistoryEntry(); entry != nil {
			lines = append(lines,
				"History Detail",
				fmt.Sprintf("When: %s", entry.CreatedAt.Local().Format("2006-01-02 15:04:05")),
				fmt.Sprintf("Type: %s", entry.EventType),
				fmt.Sprintf("Details: %s", entry.Details),
				"",
			)
		}
	}

	summary := db.Summarize(u.estimations, u.progress)
	lines = append(lines,
		selected.Title,
		fmt.Sprintf("Status: %s", selected.Status),
		fmt.Sprintf("Priority: %s", selected.Priority),
		fmt.Sprintf("Assignees: %s", listOr(selected.Assignees, "none")),
		fmt.Sprintf("Due: %s", dueLabel(selected.DueDate)),
		fmt.Sprintf("Time: %s logged / %s estimated, %s remaining", summary.Logged, summary.Estimated, summary.Remaining),
	)
	if desc := strings.TrimSpace(selected.Description); desc != "" {
		lines = append(lines, "", desc)
	}

	lines = append(lines, "", "Estimations:")
	if len(u.estimations) == 0 {
		lines = append(lines, "  none")
	}
	for _, entry := range u.estimations {
		lines = append(lines, fmt.Sprintf("  %s (%s)", entry.RawInput, formatEntryMinutes(entry.Minutes)))
	}

	lines = append(lines, "", "Progress:")
	if len(u.progress) == 0 {
		lines = append(lines, "  none")
	}
	for _, entry := range u.progress {
		lines = append(lines, fmt.Sprintf("  %s %s (%s)", entry.LoggedOn, entry.RawInput, formatEntryMinutes(entry.Minutes)))
	}
	return lines
}

func (u *UI) renderHistory(view *gocui.View, focused bool) {
	view.Clear()
	for index, line := range u.historyLines() {
		prefix := " "
		if index == u.selectedHistory {
			if focused {
				prefix = ">"
			} else {
				prefix = "*"
			}
		}
		fmt.Fprintf(view, "%s %s\n", prefix, line)
	}
	if focused {
		view.SetCursor(0, min(u.selectedHistory, len(u.history)-1))
	}
}

func (u *UI) historyLines() []string {
	now := u.now()
	lines := make([]string, 0, len(u.history))
	for _, entry := range u.history {
		when := humanize.RelTime(entry.CreatedAt, now, "ago", "from now")
		lines = append(lines, fmt.Sprintf("%s | %s | %s", when, entry.EventType, entry.Details))
	}
	return lines
}

func renderLines(view *gocui.View, lines []string) {
	view.Clear()
	fmt.Fprint(view, strings.Join(lines, "\n"))
}

func formatEntryMinutes(minutes int) string {
	if minutes == 0 {
		return "not recognized"
	}
	return fmt.Sprintf("%dm", minutes)
}

func dueLabel(value string) string {
	if value == "" {
		return "n/a"
	}
	if _, ok := tasktree.ParseDate(value); !ok {
		return value + " (not a date)"
	}
	return value
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func listOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return strings.Join(values, ",")
}
