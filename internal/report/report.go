package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/Joseda-hg/lazyboard/internal/model"
	"github.com/Joseda-hg/lazyboard/internal/tasktree"
)

var (
	statusColors = map[model.Status]*color.Color{
		model.StatusToDo:       color.New(color.FgWhite),
		model.StatusInProgress: color.New(color.FgYellow),
		model.StatusReview:     color.New(color.FgCyan),
		model.StatusDone:       color.New(color.FgGreen),
	}
	priorityHigh = color.New(color.FgRed, color.Bold)
	faint        = color.New(color.Faint)
)

// PrintForest writes one line per task, indented with tree-drawing prefixes.
// summaries may be nil.
func PrintForest(w io.Writer, forest []model.TaskNode, summaries map[string]model.TimeSummary) error {
	rows := tasktree.Flatten(forest, nil)
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, faint.Sprint("No tasks"))
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, formatRow(row, summaries)); err != nil {
			return err
		}
	}
	return nil
}

func formatRow(row tasktree.Row, summaries map[string]model.TimeSummary) string {
	node := row.Node
	var sb strings.Builder
	sb.WriteString(row.Prefix)
	sb.WriteString(statusLabel(node.Status))
	sb.WriteString(" ")
	sb.WriteString(node.Title)
	sb.WriteString(" ")
	sb.WriteString(priorityLabel(node.Priority))

	if len(node.Assignees) > 0 {
		sb.WriteString(" @" + strings.Join(node.Assignees, ",@"))
	}
	if node.DueDate != "" {
		sb.WriteString(faint.Sprint(" due " + node.DueDate))
	}
	if summary, ok := summaries[node.ID]; ok && (summary.EstimatedMinutes > 0 || summary.LoggedMinutes > 0) {
		sb.WriteString(faint.Sprintf(" %s/%s", summary.Logged, summary.Estimated))
	}
	return sb.String()
}

func statusLabel(status model.Status) string {
	label := "[" + string(status) + "]"
	if c, ok := statusColors[status]; ok {
		return c.Sprint(label)
	}
	return label
}

func priorityLabel(priority model.Priority) string {
	label := "(" + string(priority) + ")"
	if priority == model.PriorityHigh {
		return priorityHigh.Sprint(label)
	}
	return faint.Sprint(label)
}

// PrintSummary writes task counts per status, in board order.
func PrintSummary(w io.Writer, forest []model.TaskNode) error {
	counts := make(map[model.Status]int)
	total := 0
	for _, row := range tasktree.Flatten(forest, nil) {
		counts[row.Node.Status]++
		total++
	}

	parts := make([]string, 0, len(model.Statuses))
	for _, status := range model.Statuses {
		parts = append(parts, fmt.Sprintf("%s %d", statusColors[status].Sprint(string(status)), counts[status]))
	}
	_, err := fmt.Fprintf(w, "%d tasks: %s\n", total, strings.Join(parts, ", "))
	return err
}
