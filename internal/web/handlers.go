package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/Joseda-hg/lazyboard/internal/db"
	"github.com/Joseda-hg/lazyboard/internal/duration"
	"github.com/Joseda-hg/lazyboard/internal/model"
	"github.com/Joseda-hg/lazyboard/internal/tasktree"
)

type projectRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type taskRequest struct {
	Title       string   `json:"title" validate:"required,max=500"`
	Description string   `json:"description" validate:"max=10000"`
	Status      string   `json:"status" validate:"max=32"`
	Priority    string   `json:"priority" validate:"max=32"`
	Assignees   []string `json:"assignees" validate:"max=50,dive,max=100"`
	DueDate     string   `json:"due_date" validate:"max=64"`
	ParentID    *string  `json:"parent_id"`
}

func (t taskRequest) input() db.TaskInput {
	return db.TaskInput{
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		Assignees:   t.Assignees,
		DueDate:     t.DueDate,
		ParentID:    t.ParentID,
	}
}

type durationRequest struct {
	Input    string `json:"input" validate:"required,max=100"`
	LoggedOn string `json:"logged_on" validate:"omitempty,datetime=2006-01-02"`
}

type viewRequest struct {
	ID       string               `json:"id"`
	Name     string               `json:"name" validate:"required,max=200"`
	Criteria model.FilterCriteria `json:"criteria"`
}

type taskDetail struct {
	Task        model.TaskNode           `json:"task"`
	Estimations []model.EstimationEntry  `json:"estimations"`
	Progress    []model.ProgressLogEntry `json:"progress"`
	Summary     model.TimeSummary        `json:"summary"`
	History     []model.HistoryEntry     `json:"history"`
}

type taskList struct {
	Criteria  model.FilterCriteria         `json:"criteria"`
	Tasks     []model.TaskNode             `json:"tasks"`
	Count     int                          `json:"count"`
	Summaries map[string]model.TimeSummary `json:"summaries"`
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := pageFromRequest(r)
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Bad pagination parameters", err)
		return
	}
	projects, err := s.store.ListProjects(r.Context())
	if err != nil {
		s.respondWithStoreError(w, "Could not list projects", err)
		return
	}
	s.respond(w, http.StatusOK, paginate(projects, offset, limit))
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if !s.decode(w, r, &req) {
		return
	}
	project, err := s.store.CreateProject(r.Context(), req.Name)
	if err != nil {
		s.respondWithStoreError(w, "Could not create project", err)
		return
	}
	s.respond(w, http.StatusCreated, project)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["projectID"]
	if _, err := s.store.GetProject(r.Context(), projectID); err != nil {
		s.respondWithStoreError(w, "Couldn't find project", err)
		return
	}

	var base model.FilterCriteria
	if name := strings.TrimSpace(r.URL.Query().Get("view")); name != "" {
		view, err := s.store.GetViewByName(r.Context(), name)
		if err != nil {
			s.respondWithStoreError(w, "Couldn't find view", err)
			return
		}
		base = view.Criteria
	}
	criteria := filterFromRequest(r, base)

	forest, err := s.store.LoadForest(r.Context(), projectID)
	if err != nil {
		s.respondWithStoreError(w, "Could not load tasks", err)
		return
	}
	summaries, err := s.store.TimeSummaries(r.Context(), projectID)
	if err != nil {
		s.respondWithStoreError(w, "Could not load time summaries", err)
		return
	}

	filtered := tasktree.Filter(forest, criteria)
	if filtered == nil {
		filtered = []model.TaskNode{}
	}
	s.respond(w, http.StatusOK, taskList{
		Criteria:  criteria,
		Tasks:     filtered,
		Count:     tasktree.Count(filtered),
		Summaries: summaries,
	})
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if !s.decode(w, r, &req) {
		return
	}
	task, err := s.store.CreateTask(r.Context(), mux.Vars(r)["projectID"], req.input())
	if err != nil {
		s.respondWithStoreError(w, "Could not create task", err)
		return
	}
	s.respond(w, http.StatusCreated, task)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	detail, err := s.loadTaskDetail(r, mux.Vars(r)["taskID"])
	if err != nil {
		s.respondWithStoreError(w, "Couldn't find task", err)
		return
	}
	s.respond(w, http.StatusOK, detail)
}

func (s *Server) loadTaskDetail(r *http.Request, id string) (taskDetail, error) {
	ctx := r.Context()
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return taskDetail{}, err
	}
	estimations, err := s.store.ListEstimations(ctx, id)
	if err != nil {
		return taskDetail{}, err
	}
	progress, err := s.store.ListProgress(ctx, id)
	if err != nil {
		return taskDetail{}, err
	}
	history, err := s.store.ListHistory(ctx, id)
	if err != nil {
		return taskDetail{}, err
	}
	return taskDetail{
		Task:        task,
		Estimations: estimations,
		Progress:    progress,
		Summary:     db.Summarize(estimations, progress),
		History:     history,
	}, nil
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if !s.decode(w, r, &req) {
		return
	}
	task, err := s.store.UpdateTask(r.Context(), mux.Vars(r)["taskID"], req.input())
	if err != nil {
		s.respondWithStoreError(w, "Could not update task", err)
		return
	}
	s.respond(w, http.StatusOK, task)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTask(r.Context(), mux.Vars(r)["taskID"]); err != nil {
		s.respondWithStoreError(w, "Could not delete task", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addEstimation(w http.ResponseWriter, r *http.Request) {
	var req durationRequest
	if !s.decode(w, r, &req) {
		return
	}
	entry, err := s.store.AddEstimation(r.Context(), mux.Vars(r)["taskID"], req.Input)
	if err != nil {
		s.respondWithStoreError(w, "Could not add estimation", err)
		return
	}
	s.respond(w, http.StatusCreated, entry)
}

func (s *Server) deleteEstimation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.store.DeleteEstimation(r.Context(), vars["taskID"], vars["entryID"]); err != nil {
		s.respondWithStoreError(w, "Could not delete estimation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) logProgress(w http.ResponseWriter, r *http.Request) {
	var req durationRequest
	if !s.decode(w, r, &req) {
		return
	}
	entry, err := s.store.LogProgress(r.Context(), mux.Vars(r)["taskID"], req.Input, req.LoggedOn)
	if err != nil {
		s.respondWithStoreError(w, "Could not log progress", err)
		return
	}
	s.respond(w, http.StatusCreated, entry)
}

func (s *Server) listViews(w http.ResponseWriter, r *http.Request) {
	views, err := s.store.ListViews(r.Context())
	if err != nil {
		s.respondWithStoreError(w, "Could not list views", err)
		return
	}
	if views == nil {
		views = []model.View{}
	}
	s.respond(w, http.StatusOK, views)
}

func (s *Server) saveView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if !s.decode(w, r, &req) {
		return
	}
	view, err := s.store.SaveView(r.Context(), model.View{ID: req.ID, Name: req.Name, Criteria: req.Criteria})
	if err != nil {
		s.respondWithStoreError(w, "Could not save view", err)
		return
	}
	status := http.StatusOK
	if req.ID == "" {
		status = http.StatusCreated
	}
	s.respond(w, status, view)
}

func (s *Server) deleteView(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteView(r.Context(), mux.Vars(r)["viewID"]); err != nil {
		s.respondWithStoreError(w, "Could not delete view", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) parseDuration(w http.ResponseWriter, r *http.Request) {
	input := r.URL.Query().Get("input")
	minutes := duration.ParseToMinutes(input)
	s.respond(w, http.StatusOK, map[string]any{
		"input":     input,
		"minutes":   minutes,
		"formatted": duration.FormatMinutes(minutes),
	})
}

// pageProject resolves the project shown by the HTML index: the one named by
// ?project=, or the first one.
func (s *Server) pageProject(r *http.Request) (model.Project, error) {
	if name := strings.TrimSpace(r.URL.Query().Get("project")); name != "" {
		return s.store.GetProjectByName(r.Context(), name)
	}
	projects, err := s.store.ListProjects(r.Context())
	if err != nil {
		return model.Project{}, err
	}
	if len(projects) == 0 {
		return model.Project{}, fmt.Errorf("no projects yet: %w", model.ErrNotFound)
	}
	return projects[0], nil
}
