package web

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/Joseda-hg/lazyboard/internal/db"
	"github.com/Joseda-hg/lazyboard/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.tmpl"))
	taskTemplate  = template.Must(template.ParseFS(templateFS, "templates/task.tmpl"))
)

type Server struct {
	store    *db.Store
	logger   lgr.L
	validate *validator.Validate
}

func NewServer(store *db.Store, logger lgr.L) *Server {
	if logger == nil {
		logger = lgr.NoOp
	}
	return &Server{store: store, logger: logger, validate: validator.New()}
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.indexHandler).Methods(http.MethodGet)
	r.HandleFunc("/tasks/{taskID}", s.taskPageHandler).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(jsonContentType)
	api.HandleFunc("/projects", s.listProjects).Methods(http.MethodGet)
	api.HandleFunc("/projects", s.createProject).Methods(http.MethodPost)
	api.HandleFunc("/projects/{projectID}/tasks", s.listTasks).Methods(http.MethodGet)
	api.HandleFunc("/projects/{projectID}/tasks", s.createTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskID}", s.getTask).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{taskID}", s.updateTask).Methods(http.MethodPut)
	api.HandleFunc("/tasks/{taskID}", s.deleteTask).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{taskID}/estimations", s.addEstimation).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskID}/estimations/{entryID}", s.deleteEstimation).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{taskID}/progress", s.logProgress).Methods(http.MethodPost)
	api.HandleFunc("/views", s.listViews).Methods(http.MethodGet)
	api.HandleFunc("/views", s.saveView).Methods(http.MethodPost)
	api.HandleFunc("/views/{viewID}", s.deleteView).Methods(http.MethodDelete)
	api.HandleFunc("/durations", s.parseDuration).Methods(http.MethodGet)

	r.Use(s.logRequests)
	return r
}

func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Logf("[DEBUG] %s %s %d %s", r.Method, r.URL.RequestURI(), rec.status, time.Since(start))
	})
}

func (s *Server) respond(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Logf("[WARN] write response: %v", err)
	}
}

// respondWithError writes {"status", "error": {"message"}, "err"}. Server
// side failures are logged.
func (s *Server) respondWithError(w http.ResponseWriter, status int, message string, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Logf("[ERROR] %s: %v", message, err)
	}
	response := map[string]any{
		"status": status,
		"error": map[string]any{
			"message": message,
		},
	}
	if err != nil {
		response["err"] = err.Error()
	}
	s.respond(w, status, response)
}

// respondWithStoreError picks the status for an error returned by the store.
func (s *Server) respondWithStoreError(w http.ResponseWriter, message string, err error) {
	s.respondWithError(w, statusFor(err), message, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrDuplicateName):
		return http.StatusConflict
	case errors.Is(err, model.ErrInvalidTitle),
		errors.Is(err, model.ErrInvalidName),
		errors.Is(err, model.ErrInvalidStatus),
		errors.Is(err, model.ErrInvalidPriority),
		errors.Is(err, model.ErrInvalidParent):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// decode reads a JSON body into dst and validates it. It reports false after
// writing the error response.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Wrong format", err)
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			s.respondWithError(w, http.StatusBadRequest, fieldErrors[0].Error(), fieldErrors[0])
			return false
		}
		s.respondWithError(w, http.StatusBadRequest, "Invalid request", err)
		return false
	}
	return true
}
