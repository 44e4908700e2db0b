package db

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"github.com/Joseda-hg/lazyboard/internal/model"
	"github.com/Joseda-hg/lazyboard/internal/tasktree"
)

type TaskInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
	Assignees   []string
	DueDate     string
	ParentID    *string
}

type taskFields struct {
	title       string
	description string
	status      model.Status
	priority    model.Priority
	assignees   []string
	dueDate     sql.NullString
	parentID    sql.NullString
}

func normalizeInput(input TaskInput) (taskFields, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return taskFields{}, model.ErrInvalidTitle
	}
	status, err := model.ParseStatus(input.Status)
	if err != nil {
		return taskFields{}, err
	}
	priority, err := model.ParsePriority(input.Priority)
	if err != nil {
		return taskFields{}, err
	}

	fields := taskFields{
		title:       title,
		description: strings.TrimSpace(input.Description),
		status:      status,
		priority:    priority,
		assignees:   normalizeAssignees(input.Assignees),
	}
	// The due date is kept verbatim; the board treats unparsable values as undated.
	if due := strings.TrimSpace(input.DueDate); due != "" {
		fields.dueDate = sql.NullString{String: due, Valid: true}
	}
	if input.ParentID != nil && strings.TrimSpace(*input.ParentID) != "" {
		fields.parentID = sql.NullString{String: strings.TrimSpace(*input.ParentID), Valid: true}
	}
	return fields, nil
}

func normalizeAssignees(names []string) []string {
	seen := make(map[string]struct{})
	result := make([]string, 0, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}

func (s *Store) CreateTask(ctx context.Context, projectID string, input TaskInput) (model.TaskNode, error) {
	fields, err := normalizeInput(input)
	if err != nil {
		return model.TaskNode{}, err
	}
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return model.TaskNode{}, err
	}

	id := newID()
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if fields.parentID.Valid {
			if err := checkParent(ctx, tx, projectID, id, fields.parentID.String); err != nil {
				return err
			}
		}

		var position int64
		if err := tx.QueryRowContext(ctx,
			"SELECT COALESCE(MAX(position), 0) + 1 FROM tasks WHERE project_id = ?", projectID,
		).Scan(&position); err != nil {
			return fmt.Errorf("next position: %w", err)
		}

		now := s.timestamp()
		if _, err := tx.ExecContext(ctx, `INSERT INTO tasks
			(id, project_id, parent_id, title, description, status, priority, due_date, position, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, projectID, fields.parentID, fields.title, fields.description,
			string(fields.status), string(fields.priority), fields.dueDate, position, now, now,
		); err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		if err := replaceAssignees(ctx, tx, id, fields.assignees); err != nil {
			return err
		}
		return s.addHistory(ctx, tx, id, "created", formatCreatedDetails(fields))
	})
	if err != nil {
		return model.TaskNode{}, err
	}
	return s.GetTask(ctx, id)
}

func (s *Store) UpdateTask(ctx context.Context, id string, input TaskInput) (model.TaskNode, error) {
	fields, err := normalizeInput(input)
	if err != nil {
		return model.TaskNode{}, err
	}
	before, err := s.GetTask(ctx, id)
	if err != nil {
		return model.TaskNode{}, err
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if fields.parentID.Valid {
			if err := checkParent(ctx, tx, before.ProjectID, id, fields.parentID.String); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE tasks
			SET parent_id = ?, title = ?, description = ?, status = ?, priority = ?, due_date = ?, updated_at = ?
			WHERE id = ?`,
			fields.parentID, fields.title, fields.description,
			string(fields.status), string(fields.priority), fields.dueDate, s.timestamp(), id,
		); err != nil {
			return fmt.Errorf("update task %s: %w", id, err)
		}
		if err := replaceAssignees(ctx, tx, id, fields.assignees); err != nil {
			return err
		}
		return s.addHistory(ctx, tx, id, "updated", formatTaskDiff(before, fields))
	})
	if err != nil {
		return model.TaskNode{}, err
	}
	return s.GetTask(ctx, id)
}

// SetStatus changes only the status of a task.
func (s *Store) SetStatus(ctx context.Context, id string, status model.Status) (model.TaskNode, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return model.TaskNode{}, err
	}
	input := InputFromTask(task)
	input.Status = string(status)
	return s.UpdateTask(ctx, id, input)
}

// DeleteTask removes a task and its whole subtree.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	before, err := s.GetTask(ctx, id)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.addHistory(ctx, tx, id, "deleted", formatDeletedDetails(before)); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete task %s: %w", id, err)
		}
		return nil
	})
}

const taskColumns = "id, project_id, parent_id, title, description, status, priority, due_date, created_at, updated_at"

func (s *Store) GetTask(ctx context.Context, id string) (model.TaskNode, error) {
	row := s.conn().QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	task, err := scanTask(row)
	if err != nil {
		return model.TaskNode{}, notFound("task", id, err)
	}

	assignees, err := s.assigneesByTask(ctx, "SELECT task_id, name FROM task_assignees WHERE task_id = ? ORDER BY position", id)
	if err != nil {
		return model.TaskNode{}, err
	}
	task.Assignees = assignees[id]
	return task, nil
}

// ListTasks returns the project's tasks flat, in creation order.
func (s *Store) ListTasks(ctx context.Context, projectID string) ([]model.TaskNode, error) {
	tasks, err := s.queryTasks(ctx, "SELECT "+taskColumns+" FROM tasks WHERE project_id = ? ORDER BY position ASC", projectID)
	if err != nil {
		return nil, err
	}

	assignees, err := s.assigneesByTask(ctx, `SELECT a.task_id, a.name FROM task_assignees a
		JOIN tasks t ON t.id = a.task_id
		WHERE t.project_id = ?
		ORDER BY a.task_id, a.position`, projectID)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		tasks[i].Assignees = assignees[tasks[i].ID]
	}
	return tasks, nil
}

// LoadForest returns the project's tasks nested by parent.
func (s *Store) LoadForest(ctx context.Context, projectID string) ([]model.TaskNode, error) {
	tasks, err := s.ListTasks(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return tasktree.Build(tasks), nil
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]model.TaskNode, error) {
	rows, err := s.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.TaskNode
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (s *Store) assigneesByTask(ctx context.Context, query string, args ...any) (map[string][]string, error) {
	rows, err := s.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query assignees: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]string)
	for rows.Next() {
		var taskID, name string
		if err := rows.Scan(&taskID, &name); err != nil {
			return nil, fmt.Errorf("scan assignee: %w", err)
		}
		result[taskID] = append(result[taskID], name)
	}
	return result, rows.Err()
}

func scanTask(scanner interface{ Scan(...any) error }) (model.TaskNode, error) {
	var t model.TaskNode
	var parentID, dueDate sql.NullString
	var status, priority, created, updated string
	if err := scanner.Scan(&t.ID, &t.ProjectID, &parentID, &t.Title, &t.Description, &status, &priority, &dueDate, &created, &updated); err != nil {
		return model.TaskNode{}, err
	}
	t.Status = model.Status(status)
	t.Priority = model.Priority(priority)
	if parentID.Valid {
		pid := parentID.String
		t.ParentID = &pid
	}
	if dueDate.Valid {
		t.DueDate = dueDate.String
	}
	t.CreatedAt = parseTimestamp(created)
	t.UpdatedAt = parseTimestamp(updated)
	return t, nil
}

func replaceAssignees(ctx context.Context, q querier, taskID string, names []string) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM task_assignees WHERE task_id = ?", taskID); err != nil {
		return fmt.Errorf("clear assignees for %s: %w", taskID, err)
	}
	for i, name := range names {
		if _, err := q.ExecContext(ctx,
			"INSERT INTO task_assignees (task_id, name, position) VALUES (?, ?, ?)", taskID, name, i,
		); err != nil {
			return fmt.Errorf("assign %q to %s: %w", name, taskID, err)
		}
	}
	return nil
}

// checkParent rejects parents outside the project and parents that sit
// inside the task's own subtree.
func checkParent(ctx context.Context, q querier, projectID, taskID, parentID string) error {
	if parentID == taskID {
		return fmt.Errorf("%w: task cannot be its own parent", model.ErrInvalidParent)
	}

	var parentProject string
	err := q.QueryRowContext(ctx, "SELECT project_id FROM tasks WHERE id = ?", parentID).Scan(&parentProject)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s does not exist", model.ErrInvalidParent, parentID)
	}
	if err != nil {
		return fmt.Errorf("check parent %s: %w", parentID, err)
	}
	if parentProject != projectID {
		return fmt.Errorf("%w: %s belongs to another project", model.ErrInvalidParent, parentID)
	}

	var inSubtree int
	err = q.QueryRowContext(ctx, `WITH RECURSIVE subtree(id) AS (
			SELECT id FROM tasks WHERE id = ?
			UNION ALL
			SELECT t.id FROM tasks t JOIN subtree s ON t.parent_id = s.id
		)
		SELECT COUNT(*) FROM subtree WHERE id = ?`, taskID, parentID).Scan(&inSubtree)
	if err != nil {
		return fmt.Errorf("check subtree of %s: %w", taskID, err)
	}
	if inSubtree > 0 {
		return fmt.Errorf("%w: %s is a descendant of %s", model.ErrInvalidParent, parentID, taskID)
	}
	return nil
}

// InputFromTask converts a stored task back into an update payload.
func InputFromTask(task model.TaskNode) TaskInput {
	return TaskInput{
		Title:       task.Title,
		Description: task.Description,
		Status:      string(task.Status),
		Priority:    string(task.Priority),
		Assignees:   slices.Clone(task.Assignees),
		DueDate:     task.DueDate,
		ParentID:    task.ParentID,
	}
}
