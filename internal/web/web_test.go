package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-pkgz/lgr"

	"github.com/Joseda-hg/lazyboard/internal/db"
	"github.com/Joseda-hg/lazyboard/internal/model"
)

func newTestServer(t *testing.T) (http.Handler, *db.Store, func()) {
	t.Helper()
	conn, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	store := db.NewStore(conn)
	return NewServer(store, lgr.NoOp).Handler(), store, func() {
		_ = conn.Close()
	}
}

func doRequest(t *testing.T, handler http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}

func TestListProjectsPaginates(t *testing.T) {
	handler, store, cleanup := newTestServer(t)
	defer cleanup()
	for _, name := range []string{"Alpha", "Beta", "Gamma"} {
		if _, err := store.CreateProject(context.Background(), name); err != nil {
			t.Fatalf("create project: %v", err)
		}
	}

	rec := doRequest(t, handler, http.MethodGet, "/api/projects?limit=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON content type, got %q", ct)
	}
	var first page[model.Project]
	decodeBody(t, rec, &first)
	if len(first.Items) != 2 || first.Total != 3 || !first.HasMore || first.Items[0].Name != "Alpha" {
		t.Fatalf("unexpected first page %+v", first)
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/projects?offset=2&limit=2", nil)
	var second page[model.Project]
	decodeBody(t, rec, &second)
	if len(second.Items) != 1 || second.HasMore || second.Items[0].Name != "Gamma" {
		t.Fatalf("unexpected second page %+v", second)
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/projects?offset=10&limit=500", nil)
	var past page[model.Project]
	decodeBody(t, rec, &past)
	if len(past.Items) != 0 || past.Limit != 100 || past.HasMore {
		t.Fatalf("unexpected page past the end %+v", past)
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/projects?offset=-1", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative offset, got %d", rec.Code)
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	tests := []struct {
		offset, limit int
		want          []int
		hasMore       bool
	}{
		{offset: 0, limit: 2, want: []int{1, 2}, hasMore: true},
		{offset: 4, limit: 2, want: []int{5}, hasMore: false},
		{offset: 5, limit: 2, want: []int{}, hasMore: false},
		{offset: 0, limit: 5, want: []int{1, 2, 3, 4, 5}, hasMore: false},
	}
	for _, tt := range tests {
		got := paginate(items, tt.offset, tt.limit)
		if len(got.Items) != len(tt.want) || got.HasMore != tt.hasMore || got.Total != 5 {
			t.Fatalf("paginate(%d, %d) = %+v", tt.offset, tt.limit, got)
		}
		for i := range tt.want {
			if got.Items[i] != tt.want[i] {
				t.Fatalf("paginate(%d, %d) items = %v, want %v", tt.offset, tt.limit, got.Items, tt.want)
			}
		}
	}
}

func TestCreateProjectValidation(t *testing.T) {
	handler, _, cleanup := newTestServer(t)
	defer cleanup()

	rec := doRequest(t, handler, http.MethodPost, "/api/projects", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing name, got %d", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodPost, "/api/projects", map[string]string{"name": "Website"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = doRequest(t, handler, http.MethodPost, "/api/projects", map[string]string{"name": "Website"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate name, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/projects", strings.NewReader("{"))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", res.Code)
	}
}

func TestTaskLifecycle(t *testing.T) {
	handler, store, cleanup := newTestServer(t)
	defer cleanup()
	project, err := store.CreateProject(context.Background(), "Website")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	tasksURL := "/api/projects/" + project.ID + "/tasks"

	rec := doRequest(t, handler, http.MethodPost, tasksURL, map[string]any{
		"title":     "Launch",
		"priority":  "high",
		"assignees": []string{"Ana"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var parent model.TaskNode
	decodeBody(t, rec, &parent)

	rec = doRequest(t, handler, http.MethodPost, tasksURL, map[string]any{
		"title":     "Write release notes",
		"parent_id": parent.ID,
		"due_date":  "2026-02-10",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var child model.TaskNode
	decodeBody(t, rec, &child)

	rec = doRequest(t, handler, http.MethodPost, tasksURL, map[string]any{"title": "Bad", "status": "blocked"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid status, got %d", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodPost, "/api/tasks/"+child.ID+"/estimations", map[string]string{"input": "1d 2h"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 for estimation, got %d: %s", rec.Code, rec.Body.String())
	}
	var estimation model.EstimationEntry
	decodeBody(t, rec, &estimation)
	if estimation.Minutes != 600 {
		t.Fatalf("expected 600 minutes, got %d", estimation.Minutes)
	}

	rec = doRequest(t, handler, http.MethodPost, "/api/tasks/"+child.ID+"/progress", map[string]string{"input": "90m", "logged_on": "yesterday"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid logged_on, got %d", rec.Code)
	}
	rec = doRequest(t, handler, http.MethodPost, "/api/tasks/"+child.ID+"/progress", map[string]string{"input": "90m", "logged_on": "2026-02-03"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 for progress, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/tasks/"+child.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var detail taskDetail
	decodeBody(t, rec, &detail)
	if len(detail.Estimations) != 1 || len(detail.Progress) != 1 {
		t.Fatalf("unexpected detail %+v", detail)
	}
	if detail.Summary.Remaining != "1d 30m" {
		t.Fatalf("expected remaining 1d 30m, got %q", detail.Summary.Remaining)
	}

	rec = doRequest(t, handler, http.MethodGet, tasksURL+"?q=release", nil)
	var list taskList
	decodeBody(t, rec, &list)
	if len(list.Tasks) != 1 || list.Tasks[0].ID != parent.ID || len(list.Tasks[0].Children) != 1 || list.Count != 2 {
		t.Fatalf("expected parent kept as ancestor of the match, got %+v", list.Tasks)
	}
	if list.Summaries[child.ID].EstimatedMinutes != 600 {
		t.Fatalf("expected summary for child, got %+v", list.Summaries)
	}

	rec = doRequest(t, handler, http.MethodGet, tasksURL+"?due_from=2026-03-01", nil)
	decodeBody(t, rec, &list)
	if len(list.Tasks) != 0 {
		t.Fatalf("expected no tasks due after March, got %+v", list.Tasks)
	}

	rec = doRequest(t, handler, http.MethodDelete, "/api/tasks/"+child.ID+"/estimations/"+estimation.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 deleting estimation, got %d", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodPut, "/api/tasks/"+parent.ID, map[string]any{"title": "Launch v2", "status": "done"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 updating task, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated model.TaskNode
	decodeBody(t, rec, &updated)
	if updated.Status != model.StatusDone || updated.Title != "Launch v2" {
		t.Fatalf("unexpected updated task %+v", updated)
	}

	rec = doRequest(t, handler, http.MethodDelete, "/api/tasks/"+parent.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	rec = doRequest(t, handler, http.MethodGet, "/api/tasks/"+child.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for deleted subtree, got %d", rec.Code)
	}
}

func TestListTasksWithSavedView(t *testing.T) {
	handler, store, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()
	project, err := store.CreateProject(ctx, "Website")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	for _, input := range []db.TaskInput{
		{Title: "Mine", Assignees: []string{"Ana"}},
		{Title: "Theirs", Assignees: []string{"Ravi"}},
	} {
		if _, err := store.CreateTask(ctx, project.ID, input); err != nil {
			t.Fatalf("create task: %v", err)
		}
	}

	rec := doRequest(t, handler, http.MethodPost, "/api/views", map[string]any{
		"name":     "Ana's",
		"criteria": model.FilterCriteria{Assignees: []string{"Ana"}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var view model.View
	decodeBody(t, rec, &view)

	tasksURL := "/api/projects/" + project.ID + "/tasks"
	rec = doRequest(t, handler, http.MethodGet, tasksURL+"?view=Ana%27s", nil)
	var list taskList
	decodeBody(t, rec, &list)
	if len(list.Tasks) != 1 || list.Tasks[0].Title != "Mine" {
		t.Fatalf("expected only Mine, got %+v", list.Tasks)
	}

	rec = doRequest(t, handler, http.MethodGet, tasksURL+"?view=Ana%27s&assignee=Ravi", nil)
	decodeBody(t, rec, &list)
	if len(list.Tasks) != 1 || list.Tasks[0].Title != "Theirs" {
		t.Fatalf("expected explicit assignee to override the view, got %+v", list.Tasks)
	}

	rec = doRequest(t, handler, http.MethodGet, tasksURL+"?view=missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown view, got %d", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodDelete, "/api/views/"+view.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	rec = doRequest(t, handler, http.MethodGet, "/api/views", nil)
	var views []model.View
	decodeBody(t, rec, &views)
	if len(views) != 0 {
		t.Fatalf("expected no views, got %+v", views)
	}
}

func TestParseDurationEndpoint(t *testing.T) {
	handler, _, cleanup := newTestServer(t)
	defer cleanup()

	rec := doRequest(t, handler, http.MethodGet, "/api/durations?input=90m", nil)
	var payload struct {
		Input     string `json:"input"`
		Minutes   int    `json:"minutes"`
		Formatted string `json:"formatted"`
	}
	decodeBody(t, rec, &payload)
	if payload.Minutes != 90 || payload.Formatted != "1h 30m" {
		t.Fatalf("unexpected payload %+v", payload)
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/durations?input=banana", nil)
	decodeBody(t, rec, &payload)
	if rec.Code != http.StatusOK || payload.Minutes != 0 || payload.Formatted != "0m" {
		t.Fatalf("expected unrecognized input to degrade to 0m, got %d %+v", rec.Code, payload)
	}
}

func TestFilterFromRequest(t *testing.T) {
	base := model.FilterCriteria{SearchText: "launch", Statuses: []string{"done"}}
	req := httptest.NewRequest(http.MethodGet, "/?status=todo,%20inprogress,&assignee=&due_to=not-a-date", nil)
	got := filterFromRequest(req, base)
	if got.SearchText != "launch" {
		t.Fatalf("expected search text from base, got %q", got.SearchText)
	}
	if len(got.Statuses) != 2 || got.Statuses[0] != "todo" || got.Statuses[1] != "inprogress" {
		t.Fatalf("unexpected statuses %v", got.Statuses)
	}
	if got.Assignees != nil {
		t.Fatalf("expected empty assignee param to clear the list, got %v", got.Assignees)
	}
	if got.DueTo != "not-a-date" {
		t.Fatalf("expected due_to to pass through, got %q", got.DueTo)
	}

	req = httptest.NewRequest(http.MethodGet, "/?q=%20", nil)
	if got := filterFromRequest(req, model.FilterCriteria{}); got.SearchText != " " {
		t.Fatalf("expected search text kept verbatim, got %q", got.SearchText)
	}
}

func TestIndexPage(t *testing.T) {
	handler, store, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()

	rec := doRequest(t, handler, http.MethodGet, "/", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without projects, got %d", rec.Code)
	}

	project, err := store.CreateProject(ctx, "Website")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	task, err := store.CreateTask(ctx, project.ID, db.TaskInput{Title: "Ship <it>"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	rec = doRequest(t, handler, http.MethodGet, "/?project=Website", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Ship &lt;it&gt;") {
		t.Fatalf("expected escaped task title in page, got %s", rec.Body.String())
	}

	rec = doRequest(t, handler, http.MethodGet, "/tasks/"+task.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for task page, got %d", rec.Code)
	}
}
