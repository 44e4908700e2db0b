package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Joseda-hg/lazyboard/internal/duration"
	"github.com/Joseda-hg/lazyboard/internal/model"
)

const dateLayout = "2006-01-02"

// AddEstimation records raw as an estimation of the task. Input without any
// recognizable unit is stored as 0 minutes.
func (s *Store) AddEstimation(ctx context.Context, taskID, raw string) (model.EstimationEntry, error) {
	if err := s.ensureTask(ctx, taskID); err != nil {
		return model.EstimationEntry{}, err
	}

	entry := model.EstimationEntry{
		ID:       newID(),
		TaskID:   taskID,
		RawInput: strings.TrimSpace(raw),
	}
	entry.Minutes = duration.ParseToMinutes(entry.RawInput)
	created := s.timestamp()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO estimations (id, task_id, raw_input, minutes, created_at) VALUES (?, ?, ?, ?, ?)",
			entry.ID, entry.TaskID, entry.RawInput, entry.Minutes, created,
		); err != nil {
			return fmt.Errorf("insert estimation: %w", err)
		}
		return s.addHistory(ctx, tx, taskID, "estimated",
			fmt.Sprintf("estimated: '%s' = %s", valueOrNone(entry.RawInput), duration.FormatMinutes(entry.Minutes)))
	})
	if err != nil {
		return model.EstimationEntry{}, err
	}
	entry.CreatedAt = parseTimestamp(created)
	return entry, nil
}

func (s *Store) ListEstimations(ctx context.Context, taskID string) ([]model.EstimationEntry, error) {
	rows, err := s.conn().QueryContext(ctx,
		"SELECT id, task_id, raw_input, minutes, created_at FROM estimations WHERE task_id = ? ORDER BY rowid ASC", taskID)
	if err != nil {
		return nil, fmt.Errorf("query estimations: %w", err)
	}
	defer rows.Close()

	var entries []model.EstimationEntry
	for rows.Next() {
		var entry model.EstimationEntry
		var created string
		if err := rows.Scan(&entry.ID, &entry.TaskID, &entry.RawInput, &entry.Minutes, &created); err != nil {
			return nil, fmt.Errorf("scan estimation: %w", err)
		}
		entry.CreatedAt = parseTimestamp(created)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) DeleteEstimation(ctx context.Context, taskID, entryID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM estimations WHERE id = ? AND task_id = ?", entryID, taskID)
		if err != nil {
			return fmt.Errorf("delete estimation %s: %w", entryID, err)
		}
		if err := expectAffected(res, "estimation", entryID); err != nil {
			return err
		}
		return s.addHistory(ctx, tx, taskID, "estimation_removed", "estimation removed: "+entryID)
	})
}

// LogProgress appends time spent on the task. An empty loggedOn means today.
func (s *Store) LogProgress(ctx context.Context, taskID, raw, loggedOn string) (model.ProgressLogEntry, error) {
	if err := s.ensureTask(ctx, taskID); err != nil {
		return model.ProgressLogEntry{}, err
	}

	entry := model.ProgressLogEntry{
		ID:       newID(),
		TaskID:   taskID,
		RawInput: strings.TrimSpace(raw),
		LoggedOn: strings.TrimSpace(loggedOn),
	}
	if entry.LoggedOn == "" {
		entry.LoggedOn = s.now().Format(dateLayout)
	}
	entry.Minutes = duration.ParseToMinutes(entry.RawInput)
	created := s.timestamp()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO progress_logs (id, task_id, raw_input, minutes, logged_on, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			entry.ID, entry.TaskID, entry.RawInput, entry.Minutes, entry.LoggedOn, created,
		); err != nil {
			return fmt.Errorf("insert progress: %w", err)
		}
		return s.addHistory(ctx, tx, taskID, "progress",
			fmt.Sprintf("logged: %s on %s", duration.FormatMinutes(entry.Minutes), entry.LoggedOn))
	})
	if err != nil {
		return model.ProgressLogEntry{}, err
	}
	entry.CreatedAt = parseTimestamp(created)
	return entry, nil
}

func (s *Store) ListProgress(ctx context.Context, taskID string) ([]model.ProgressLogEntry, error) {
	rows, err := s.conn().QueryContext(ctx,
		"SELECT id, task_id, raw_input, minutes, logged_on, created_at FROM progress_logs WHERE task_id = ? ORDER BY rowid ASC", taskID)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	var entries []model.ProgressLogEntry
	for rows.Next() {
		var entry model.ProgressLogEntry
		var created string
		if err := rows.Scan(&entry.ID, &entry.TaskID, &entry.RawInput, &entry.Minutes, &entry.LoggedOn, &created); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		entry.CreatedAt = parseTimestamp(created)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// TimeSummary totals the task's estimations against its progress log.
func (s *Store) TimeSummary(ctx context.Context, taskID string) (model.TimeSummary, error) {
	estimations, err := s.ListEstimations(ctx, taskID)
	if err != nil {
		return model.TimeSummary{}, err
	}
	progress, err := s.ListProgress(ctx, taskID)
	if err != nil {
		return model.TimeSummary{}, err
	}
	return Summarize(estimations, progress), nil
}

// TimeSummaries returns a summary for every task of the project that has
// at least one estimation or progress entry.
func (s *Store) TimeSummaries(ctx context.Context, projectID string) (map[string]model.TimeSummary, error) {
	totals := make(map[string][2]int)
	collect := func(query string, slot int) error {
		rows, err := s.conn().QueryContext(ctx, query, projectID)
		if err != nil {
			return fmt.Errorf("query totals: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var taskID string
			var minutes int
			if err := rows.Scan(&taskID, &minutes); err != nil {
				return fmt.Errorf("scan totals: %w", err)
			}
			t := totals[taskID]
			t[slot] = minutes
			totals[taskID] = t
		}
		return rows.Err()
	}

	if err := collect(`SELECT e.task_id, SUM(e.minutes) FROM estimations e
		JOIN tasks t ON t.id = e.task_id WHERE t.project_id = ? GROUP BY e.task_id`, 0); err != nil {
		return nil, err
	}
	if err := collect(`SELECT p.task_id, SUM(p.minutes) FROM progress_logs p
		JOIN tasks t ON t.id = p.task_id WHERE t.project_id = ? GROUP BY p.task_id`, 1); err != nil {
		return nil, err
	}

	result := make(map[string]model.TimeSummary, len(totals))
	for taskID, t := range totals {
		result[taskID] = summaryFromTotals(t[0], t[1])
	}
	return result, nil
}

// Summarize computes a TimeSummary from in-memory entries.
func Summarize(estimations []model.EstimationEntry, progress []model.ProgressLogEntry) model.TimeSummary {
	estimated := make([]int, 0, len(estimations))
	for _, entry := range estimations {
		estimated = append(estimated, entry.Minutes)
	}
	logged := make([]int, 0, len(progress))
	for _, entry := range progress {
		logged = append(logged, entry.Minutes)
	}
	return summaryFromTotals(duration.Sum(estimated...), duration.Sum(logged...))
}

func summaryFromTotals(estimated, logged int) model.TimeSummary {
	remaining := max(estimated-logged, 0)
	return model.TimeSummary{
		EstimatedMinutes: estimated,
		LoggedMinutes:    logged,
		RemainingMinutes: remaining,
		Estimated:        duration.FormatMinutes(estimated),
		Logged:           duration.FormatMinutes(logged),
		Remaining:        duration.FormatMinutes(remaining),
	}
}

func (s *Store) ensureTask(ctx context.Context, taskID string) error {
	var exists int
	err := s.conn().QueryRowContext(ctx, "SELECT 1 FROM tasks WHERE id = ?", taskID).Scan(&exists)
	if err != nil {
		return notFound("task", taskID, err)
	}
	return nil
}
