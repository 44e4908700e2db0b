package web

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Joseda-hg/lazyboard/internal/model"
	"github.com/Joseda-hg/lazyboard/internal/tasktree"
)

type taskRow struct {
	Row      tasktree.Row
	Summary  model.TimeSummary
	IndentPx int
}

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	project, err := s.pageProject(r)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	forest, err := s.store.LoadForest(r.Context(), project.ID)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	summaries, err := s.store.TimeSummaries(r.Context(), project.ID)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	criteria := filterFromRequest(r, model.FilterCriteria{})
	filtered := tasktree.Filter(forest, criteria)
	rows := buildTaskRows(filtered, summaries)

	data := struct {
		Project  model.Project
		Criteria model.FilterCriteria
		Total    int
		Rows     []taskRow
	}{Project: project, Criteria: criteria, Total: len(rows), Rows: rows}

	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.Logf("[ERROR] render index: %v", err)
	}
}

func buildTaskRows(forest []model.TaskNode, summaries map[string]model.TimeSummary) []taskRow {
	flat := tasktree.Flatten(forest, nil)
	if len(flat) == 0 {
		return nil
	}
	rows := make([]taskRow, 0, len(flat))
	for _, row := range flat {
		rows = append(rows, taskRow{Row: row, Summary: summaries[row.Node.ID], IndentPx: row.Depth * 20})
	}
	return rows
}

func (s *Server) taskPageHandler(w http.ResponseWriter, r *http.Request) {
	detail, err := s.loadTaskDetail(r, mux.Vars(r)["taskID"])
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	if err := taskTemplate.Execute(w, detail); err != nil {
		s.logger.Logf("[ERROR] render task: %v", err)
	}
}
