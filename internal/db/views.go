package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Joseda-hg/lazyboard/internal/model"
)

// SaveView inserts a view when its ID is empty and updates it otherwise.
func (s *Store) SaveView(ctx context.Context, view model.View) (model.View, error) {
	view.Name = strings.TrimSpace(view.Name)
	if view.Name == "" {
		return model.View{}, model.ErrInvalidName
	}
	if existing, err := s.GetViewByName(ctx, view.Name); err == nil && existing.ID != view.ID {
		return model.View{}, fmt.Errorf("view %q: %w", view.Name, model.ErrDuplicateName)
	}
	payload, err := json.Marshal(view.Criteria)
	if err != nil {
		return model.View{}, fmt.Errorf("encode criteria: %w", err)
	}

	now := s.timestamp()
	if view.ID == "" {
		view.ID = newID()
		if _, err := s.conn().ExecContext(ctx,
			"INSERT INTO views (id, name, criteria_json, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
			view.ID, view.Name, string(payload), now, now,
		); err != nil {
			return model.View{}, fmt.Errorf("insert view: %w", err)
		}
		return s.GetView(ctx, view.ID)
	}

	res, err := s.conn().ExecContext(ctx,
		"UPDATE views SET name = ?, criteria_json = ?, updated_at = ? WHERE id = ?",
		view.Name, string(payload), now, view.ID,
	)
	if err != nil {
		return model.View{}, fmt.Errorf("update view %s: %w", view.ID, err)
	}
	if err := expectAffected(res, "view", view.ID); err != nil {
		return model.View{}, err
	}
	return s.GetView(ctx, view.ID)
}

func (s *Store) GetView(ctx context.Context, id string) (model.View, error) {
	row := s.conn().QueryRowContext(ctx, "SELECT id, name, criteria_json, created_at, updated_at FROM views WHERE id = ?", id)
	view, err := scanView(row)
	if err != nil {
		return model.View{}, notFound("view", id, err)
	}
	return view, nil
}

func (s *Store) GetViewByName(ctx context.Context, name string) (model.View, error) {
	row := s.conn().QueryRowContext(ctx, "SELECT id, name, criteria_json, created_at, updated_at FROM views WHERE name = ?", strings.TrimSpace(name))
	view, err := scanView(row)
	if err != nil {
		return model.View{}, notFound("view", name, err)
	}
	return view, nil
}

func (s *Store) ListViews(ctx context.Context) ([]model.View, error) {
	rows, err := s.conn().QueryContext(ctx, "SELECT id, name, criteria_json, created_at, updated_at FROM views ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("query views: %w", err)
	}
	defer rows.Close()

	var views []model.View
	for rows.Next() {
		view, err := scanView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, rows.Err()
}

func (s *Store) DeleteView(ctx context.Context, id string) error {
	res, err := s.conn().ExecContext(ctx, "DELETE FROM views WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete view %s: %w", id, err)
	}
	return expectAffected(res, "view", id)
}

func scanView(scanner interface{ Scan(...any) error }) (model.View, error) {
	var view model.View
	var payload, created, updated string
	if err := scanner.Scan(&view.ID, &view.Name, &payload, &created, &updated); err != nil {
		return model.View{}, err
	}
	if err := json.Unmarshal([]byte(payload), &view.Criteria); err != nil {
		return model.View{}, fmt.Errorf("decode criteria of view %s: %w", view.ID, err)
	}
	view.CreatedAt = parseTimestamp(created)
	view.UpdatedAt = parseTimestamp(updated)
	return view, nil
}
