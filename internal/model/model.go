package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidTitle    = errors.New("title is required")
	ErrInvalidName     = errors.New("name is required")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidParent   = errors.New("invalid parent task")
	ErrDuplicateName   = errors.New("name already in use")
)

type Status string

const (
	StatusToDo       Status = "ToDo"
	StatusInProgress Status = "InProgress"
	StatusReview     Status = "Review"
	StatusDone       Status = "Done"
)

// Statuses lists every status in board order.
var Statuses = []Status{StatusToDo, StatusInProgress, StatusReview, StatusDone}

// Key is the lower-cased form used for filter membership.
func (s Status) Key() string {
	return strings.ToLower(string(s))
}

// ParseStatus accepts the canonical names plus the spellings the board's
// forms and imports produce ("to do", "in_progress", "in-progress", ...).
// An empty value is ToDo.
func ParseStatus(value string) (Status, error) {
	key := compactKey(value)
	switch key {
	case "", "todo":
		return StatusToDo, nil
	case "inprogress", "doing":
		return StatusInProgress, nil
	case "review", "inreview":
		return StatusReview, nil
	case "done":
		return StatusDone, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, value)
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func (p Priority) Key() string {
	return strings.ToLower(string(p))
}

// ParsePriority maps an empty value to Medium.
func ParsePriority(value string) (Priority, error) {
	switch compactKey(value) {
	case "low":
		return PriorityLow, nil
	case "", "medium", "normal":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPriority, value)
}

func compactKey(value string) string {
	replacer := strings.NewReplacer(" ", "", "_", "", "-", "")
	return replacer.Replace(strings.ToLower(strings.TrimSpace(value)))
}

type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskNode is one task in a project forest. Children are owned by the node.
type TaskNode struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	ParentID    *string    `json:"parent_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	Assignees   []string   `json:"assignees"`
	DueDate     string     `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Children    []TaskNode `json:"children"`
}

type EstimationEntry struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	RawInput  string    `json:"raw_input"`
	Minutes   int       `json:"minutes"`
	CreatedAt time.Time `json:"created_at"`
}

type ProgressLogEntry struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	RawInput  string    `json:"raw_input"`
	Minutes   int       `json:"minutes"`
	LoggedOn  string    `json:"logged_on"`
	CreatedAt time.Time `json:"created_at"`
}

// TimeSummary compares the estimated total with the logged total of a task.
type TimeSummary struct {
	EstimatedMinutes int    `json:"estimated_minutes"`
	LoggedMinutes    int    `json:"logged_minutes"`
	RemainingMinutes int    `json:"remaining_minutes"`
	Estimated        string `json:"estimated"`
	Logged           string `json:"logged"`
	Remaining        string `json:"remaining"`
}

type HistoryEntry struct {
	ID        int64     `json:"id"`
	TaskID    string    `json:"task_id"`
	EventType string    `json:"event_type"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// FilterCriteria is the set of active board filters. The zero value matches
// every task. DueFrom and DueTo hold date strings; unparsable bounds are
// treated as absent.
type FilterCriteria struct {
	SearchText string   `json:"search_text"`
	Statuses   []string `json:"statuses"`
	Priorities []string `json:"priorities"`
	Assignees  []string `json:"assignees"`
	DueFrom    string   `json:"due_from,omitempty"`
	DueTo      string   `json:"due_to,omitempty"`
}

func (c FilterCriteria) IsEmpty() bool {
	return c.SearchText == "" &&
		len(c.Statuses) == 0 &&
		len(c.Priorities) == 0 &&
		len(c.Assignees) == 0 &&
		strings.TrimSpace(c.DueFrom) == "" &&
		strings.TrimSpace(c.DueTo) == ""
}

// View is a named, saved FilterCriteria.
type View struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Criteria  FilterCriteria `json:"criteria"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
