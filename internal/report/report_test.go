package report

import (
	"bytes"
	"testing"

	"github.com/fatih/color"

	"github.com/Joseda-hg/lazyboard/internal/model"
)

func init() {
	color.NoColor = true
}

func sampleForest() []model.TaskNode {
	return []model.TaskNode{
		{
			ID:        "launch",
			Title:     "Launch",
			Status:    model.StatusInProgress,
			Priority:  model.PriorityHigh,
			Assignees: []string{"Ana", "Ravi"},
			DueDate:   "2026-03-01",
			Children: []model.TaskNode{
				{ID: "design", Title: "Design", Status: model.StatusDone, Priority: model.PriorityMedium},
				{ID: "copy", Title: "Copy", Status: model.StatusToDo, Priority: model.PriorityLow},
			},
		},
		{ID: "retro", Title: "Retro", Status: model.StatusToDo, Priority: model.PriorityMedium},
	}
}

func TestPrintForest(t *testing.T) {
	var buf bytes.Buffer
	summaries := map[string]model.TimeSummary{
		"design": {EstimatedMinutes: 480, LoggedMinutes: 90, Estimated: "1d", Logged: "1h 30m"},
		"retro":  {},
	}
	if err := PrintForest(&buf, sampleForest(), summaries); err != nil {
		t.Fatalf("print forest: %v", err)
	}

	want := "[InProgress] Launch (High) @Ana,@Ravi due 2026-03-01\n" +
		" ├─ [Done] Design (Medium) 1h 30m/1d\n" +
		" └─ [ToDo] Copy (Low)\n" +
		"[ToDo] Retro (Medium)\n"
	if buf.String() != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestPrintForestEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintForest(&buf, nil, nil); err != nil {
		t.Fatalf("print forest: %v", err)
	}
	if buf.String() != "No tasks\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintSummary(&buf, sampleForest()); err != nil {
		t.Fatalf("print summary: %v", err)
	}
	want := "4 tasks: ToDo 2, InProgress 1, Review 0, Done 1\n"
	if buf.String() != want {
		t.Fatalf("unexpected summary %q, want %q", buf.String(), want)
	}
}
