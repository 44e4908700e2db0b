// Package tasktree builds, filters and flattens project task forests.
package tasktree

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/Joseda-hg/lazyboard/internal/model"
)

type matcher struct {
	fold       cases.Caser
	search     string
	statuses   map[string]struct{}
	priorities map[string]struct{}
	assignees  map[string]struct{}
	from       *time.Time
	to         *time.Time
}

func newMatcher(criteria model.FilterCriteria) *matcher {
	m := &matcher{
		fold:       cases.Fold(),
		statuses:   lowerSet(criteria.Statuses),
		priorities: lowerSet(criteria.Priorities),
		assignees:  exactSet(criteria.Assignees),
	}
	// Search text is used verbatim, so " " only matches titles with a space.
	if criteria.SearchText != "" {
		m.search = m.fold.String(criteria.SearchText)
	}
	// An unparsable bound is no bound at all.
	if from, ok := ParseDate(criteria.DueFrom); ok {
		m.from = &from
	}
	if to, ok := ParseDate(criteria.DueTo); ok {
		m.to = &to
	}
	return m
}

func lowerSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			set[strings.ToLower(trimmed)] = struct{}{}
		}
	}
	return set
}

func exactSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	return set
}

func (m *matcher) match(node model.TaskNode) bool {
	if m.search != "" && !strings.Contains(m.fold.String(node.Title), m.search) {
		return false
	}
	if len(m.statuses) > 0 {
		if _, ok := m.statuses[node.Status.Key()]; !ok {
			return false
		}
	}
	if len(m.priorities) > 0 {
		if _, ok := m.priorities[node.Priority.Key()]; !ok {
			return false
		}
	}
	if len(m.assignees) > 0 && !m.anyAssignee(node.Assignees) {
		return false
	}
	if m.from == nil && m.to == nil {
		return true
	}

	due, ok := ParseDate(node.DueDate)
	if !ok {
		return false
	}
	if m.from != nil && due.Before(*m.from) {
		return false
	}
	if m.to != nil && due.After(*m.to) {
		return false
	}
	return true
}

func (m *matcher) anyAssignee(assignees []string) bool {
	for _, name := range assignees {
		if _, ok := m.assignees[strings.TrimSpace(name)]; ok {
			return true
		}
	}
	return false
}

// Matches reports whether node itself satisfies every active criterion.
// Children are not consulted.
func Matches(node model.TaskNode, criteria model.FilterCriteria) bool {
	return newMatcher(criteria).match(node)
}

// Filter returns a new forest holding every node that matches criteria or
// has a surviving descendant, in input order. The input is left untouched.
func Filter(nodes []model.TaskNode, criteria model.FilterCriteria) []model.TaskNode {
	return newMatcher(criteria).filter(nodes)
}

func (m *matcher) filter(nodes []model.TaskNode) []model.TaskNode {
	if nodes == nil {
		return nil
	}
	result := make([]model.TaskNode, 0, len(nodes))
	for _, node := range nodes {
		children := m.filter(node.Children)
		if !m.match(node) && len(children) == 0 {
			continue
		}
		result = append(result, copyNode(node, children))
	}
	return result
}

func copyNode(node model.TaskNode, children []model.TaskNode) model.TaskNode {
	out := node
	out.Assignees = slices.Clone(node.Assignees)
	if node.ParentID != nil {
		parentID := *node.ParentID
		out.ParentID = &parentID
	}
	out.Children = children
	return out
}
