package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Joseda-hg/lazyboard/internal/db"
	"github.com/Joseda-hg/lazyboard/internal/model"
)

var ErrNoTasks = errors.New("no tasks found in YAML")

// YAMLTask is a single task in the YAML input.
type YAMLTask struct {
	Title       string     `yaml:"title"`
	Description string     `yaml:"description,omitempty"`
	Status      string     `yaml:"status,omitempty"`
	Priority    string     `yaml:"priority,omitempty"`
	Assignees   []string   `yaml:"assignees,omitempty"`
	DueDate     string     `yaml:"due_date,omitempty"`
	Estimate    string     `yaml:"estimate,omitempty"`
	Children    []YAMLTask `yaml:"children,omitempty"`
}

type YAMLInput struct {
	Tasks []YAMLTask `yaml:"tasks"`
}

// TaskWriter is the part of the store the importer writes through.
type TaskWriter interface {
	CreateTask(ctx context.Context, projectID string, input db.TaskInput) (model.TaskNode, error)
	AddEstimation(ctx context.Context, taskID, raw string) (model.EstimationEntry, error)
}

// Transactor runs a group of writes in one transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(tx *db.Store) error) error
}

// Import parses yamlStr and creates its tasks depth-first in document order.
// parentID can be nil for root-level tasks. The whole document is validated
// before anything is written, and the writes share one transaction: on error
// nothing is kept and the count is 0. Returns the number of tasks created.
func Import(ctx context.Context, store Transactor, projectID, yamlStr string, parentID *string) (int, error) {
	var input YAMLInput
	if err := yaml.Unmarshal([]byte(yamlStr), &input); err != nil {
		return 0, fmt.Errorf("YAML parse error: %w", err)
	}
	if len(input.Tasks) == 0 {
		return 0, ErrNoTasks
	}
	for i, yt := range input.Tasks {
		if err := validate(yt, fmt.Sprintf("tasks[%d]", i)); err != nil {
			return 0, err
		}
	}

	count := 0
	err := store.InTx(ctx, func(tx *db.Store) error {
		for _, yt := range input.Tasks {
			n, err := importTask(ctx, tx, projectID, yt, parentID)
			count += n
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func validate(yt YAMLTask, path string) error {
	if strings.TrimSpace(yt.Title) == "" {
		return fmt.Errorf("%s: %w", path, model.ErrInvalidTitle)
	}
	if _, err := model.ParseStatus(yt.Status); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if _, err := model.ParsePriority(yt.Priority); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	for i, child := range yt.Children {
		if err := validate(child, fmt.Sprintf("%s.children[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func importTask(ctx context.Context, w TaskWriter, projectID string, yt YAMLTask, parentID *string) (int, error) {
	task, err := w.CreateTask(ctx, projectID, db.TaskInput{
		Title:       yt.Title,
		Description: yt.Description,
		Status:      yt.Status,
		Priority:    yt.Priority,
		Assignees:   yt.Assignees,
		DueDate:     yt.DueDate,
		ParentID:    parentID,
	})
	if err != nil {
		return 0, fmt.Errorf("add task %q: %w", yt.Title, err)
	}
	count := 1

	if strings.TrimSpace(yt.Estimate) != "" {
		if _, err := w.AddEstimation(ctx, task.ID, yt.Estimate); err != nil {
			return count, fmt.Errorf("estimate %q: %w", yt.Title, err)
		}
	}

	for _, child := range yt.Children {
		id := task.ID
		n, err := importTask(ctx, w, projectID, child, &id)
		count += n
		if err != nil {
			return count, err
		}
	}
	return count, nil
}
