package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/Joseda-hg/lazyboard/internal/model"
)

func (s *Store) addHistory(ctx context.Context, q querier, taskID, eventType, details string) error {
	if _, err := q.ExecContext(ctx,
		"INSERT INTO task_history (task_id, event_type, details, created_at) VALUES (?, ?, ?, ?)",
		taskID, eventType, details, s.timestamp(),
	); err != nil {
		return fmt.Errorf("add history for %s: %w", taskID, err)
	}
	return nil
}

// ListHistory returns the task's events, newest first.
func (s *Store) ListHistory(ctx context.Context, taskID string) ([]model.HistoryEntry, error) {
	rows, err := s.conn().QueryContext(ctx,
		"SELECT id, task_id, event_type, details, created_at FROM task_history WHERE task_id = ? ORDER BY id DESC", taskID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var history []model.HistoryEntry
	for rows.Next() {
		var entry model.HistoryEntry
		var created string
		if err := rows.Scan(&entry.ID, &entry.TaskID, &entry.EventType, &entry.Details, &created); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		entry.CreatedAt = parseTimestamp(created)
		history = append(history, entry)
	}
	return history, rows.Err()
}

func formatCreatedDetails(fields taskFields) string {
	return fmt.Sprintf("created: title='%s' status=%s priority=%s due=%s assignees=%s",
		fields.title, fields.status, fields.priority, valueOrNone(fields.dueDate.String), formatAssignees(fields.assignees))
}

func formatDeletedDetails(task model.TaskNode) string {
	return fmt.Sprintf("deleted: title='%s' status=%s priority=%s due=%s assignees=%s",
		task.Title, task.Status, task.Priority, valueOrNone(task.DueDate), formatAssignees(task.Assignees))
}

func formatTaskDiff(before model.TaskNode, after taskFields) string {
	changes := []string{}
	if before.Title != after.title {
		changes = append(changes, formatChange("title", before.Title, after.title))
	}
	if before.Description != after.description {
		changes = append(changes, formatChange("description", before.Description, after.description))
	}
	if before.Status != after.status {
		changes = append(changes, formatChange("status", string(before.Status), string(after.status)))
	}
	if before.Priority != after.priority {
		changes = append(changes, formatChange("priority", string(before.Priority), string(after.priority)))
	}
	beforeParent := ""
	if before.ParentID != nil {
		beforeParent = *before.ParentID
	}
	if beforeParent != after.parentID.String {
		changes = append(changes, formatChange("parent", beforeParent, after.parentID.String))
	}
	if before.DueDate != after.dueDate.String {
		changes = append(changes, formatChange("due", before.DueDate, after.dueDate.String))
	}
	beforeAssignees := formatAssignees(before.Assignees)
	afterAssignees := formatAssignees(after.assignees)
	if beforeAssignees != afterAssignees {
		changes = append(changes, formatChange("assignees", beforeAssignees, afterAssignees))
	}

	if len(changes) == 0 {
		return "updated: no changes"
	}
	return "updated: " + strings.Join(changes, "; ")
}

func formatChange(field, before, after string) string {
	return fmt.Sprintf("%s: '%s' -> '%s'", field, valueOrNone(before), valueOrNone(after))
}

func valueOrNone(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "none"
	}
	return trimmed
}

func formatAssignees(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}
