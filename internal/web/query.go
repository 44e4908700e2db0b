package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Joseda-hg/lazyboard/internal/model"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type page[T any] struct {
	Items   []T  `json:"items"`
	Total   int  `json:"total"`
	Offset  int  `json:"offset"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"has_more"`
}

// paginate returns the window [offset, offset+limit) of items. An offset past
// the end yields an empty page.
func paginate[T any](items []T, offset, limit int) page[T] {
	total := len(items)
	start := min(offset, total)
	end := min(start+limit, total)
	window := make([]T, end-start)
	copy(window, items[start:end])
	return page[T]{Items: window, Total: total, Offset: offset, Limit: limit, HasMore: end < total}
}

// pageFromRequest reads offset and limit. limit defaults to 20 and is capped
// at 100.
func pageFromRequest(r *http.Request) (int, int, error) {
	offset, limit := 0, defaultPageSize
	if value := strings.TrimSpace(r.URL.Query().Get("offset")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 {
			return 0, 0, fmt.Errorf("bad offset %q", value)
		}
		offset = parsed
	}
	if value := strings.TrimSpace(r.URL.Query().Get("limit")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 1 {
			return 0, 0, fmt.Errorf("bad limit %q", value)
		}
		limit = min(parsed, maxPageSize)
	}
	return offset, limit, nil
}

// filterFromRequest applies the query parameters over base. A parameter that
// is present replaces the matching field of base, even when empty; one that is
// absent keeps it. Dates are passed through unchecked and ignored by the
// filter when they do not parse.
func filterFromRequest(r *http.Request, base model.FilterCriteria) model.FilterCriteria {
	query := r.URL.Query()
	criteria := base
	if query.Has("q") {
		criteria.SearchText = query.Get("q")
	}
	if query.Has("status") {
		criteria.Statuses = splitList(query.Get("status"))
	}
	if query.Has("priority") {
		criteria.Priorities = splitList(query.Get("priority"))
	}
	if query.Has("assignee") {
		criteria.Assignees = splitList(query.Get("assignee"))
	}
	if query.Has("due_from") {
		criteria.DueFrom = strings.TrimSpace(query.Get("due_from"))
	}
	if query.Has("due_to") {
		criteria.DueTo = strings.TrimSpace(query.Get("due_to"))
	}
	return criteria
}

func splitList(value string) []string {
	var values []string
	for _, part := range strings.Split(value, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
