package tasktree

import (
	"github.com/Joseda-hg/lazyboard/internal/model"
)

// Build assembles a flat task list into a forest. Siblings keep the order
// they have in tasks; a task whose parent is absent from tasks becomes a root.
func Build(tasks []model.TaskNode) []model.TaskNode {
	if len(tasks) == 0 {
		return nil
	}

	existsByID := make(map[string]struct{}, len(tasks))
	for _, task := range tasks {
		existsByID[task.ID] = struct{}{}
	}

	childrenByParent := make(map[string][]model.TaskNode)
	var roots []model.TaskNode
	for _, task := range tasks {
		if task.ParentID != nil {
			if _, ok := existsByID[*task.ParentID]; ok && *task.ParentID != task.ID {
				childrenByParent[*task.ParentID] = append(childrenByParent[*task.ParentID], task)
				continue
			}
		}
		roots = append(roots, task)
	}

	visited := make(map[string]bool, len(tasks))
	var attach func(node model.TaskNode) model.TaskNode
	attach = func(node model.TaskNode) model.TaskNode {
		visited[node.ID] = true
		kids := childrenByParent[node.ID]
		node.Children = nil
		for _, child := range kids {
			if visited[child.ID] {
				continue
			}
			node.Children = append(node.Children, attach(child))
		}
		return node
	}

	forest := make([]model.TaskNode, 0, len(roots))
	for _, root := range roots {
		forest = append(forest, attach(root))
	}
	return forest
}

// Row is one visible line of a flattened forest.
type Row struct {
	Node        model.TaskNode
	Depth       int
	HasChildren bool
	Collapsed   bool
	// Prefix holds the tree-drawing characters, e.g. " │   └─ ".
	Prefix string
}

// Flatten walks the forest depth-first. Children of ids marked in collapsed
// are skipped; the collapsed node itself is still listed.
func Flatten(forest []model.TaskNode, collapsed map[string]bool) []Row {
	var rows []Row
	var walk func(nodes []model.TaskNode, ancestors []bool)
	walk = func(nodes []model.TaskNode, ancestors []bool) {
		for idx, node := range nodes {
			isLast := idx == len(nodes)-1
			depth := len(ancestors)
			prefix := ""
			if depth > 0 {
				for _, hasSibling := range ancestors[1:] {
					if hasSibling {
						prefix += " │  "
					} else {
						prefix += "    "
					}
				}
				if isLast {
					prefix += " └─ "
				} else {
					prefix += " ├─ "
				}
			}

			hasChildren := len(node.Children) > 0
			isCollapsed := hasChildren && collapsed != nil && collapsed[node.ID]
			rows = append(rows, Row{
				Node:        node,
				Depth:       depth,
				HasChildren: hasChildren,
				Collapsed:   isCollapsed,
				Prefix:      prefix,
			})
			if hasChildren && !isCollapsed {
				next := make([]bool, len(ancestors), len(ancestors)+1)
				copy(next, ancestors)
				walk(node.Children, append(next, !isLast))
			}
		}
	}
	walk(forest, nil)
	return rows
}

// Find returns the node with id, searching depth-first.
func Find(forest []model.TaskNode, id string) (*model.TaskNode, bool) {
	for i := range forest {
		if forest[i].ID == id {
			return &forest[i], true
		}
		if found, ok := Find(forest[i].Children, id); ok {
			return found, true
		}
	}
	return nil, false
}

// Count returns the number of nodes in the forest.
func Count(forest []model.TaskNode) int {
	total := 0
	for _, node := range forest {
		total += 1 + Count(node.Children)
	}
	return total
}

// Assignees lists every distinct assignee in the forest in first-seen order.
func Assignees(forest []model.TaskNode) []string {
	seen := make(map[string]struct{})
	var names []string
	var walk func(nodes []model.TaskNode)
	walk = func(nodes []model.TaskNode) {
		for _, node := range nodes {
			for _, name := range node.Assignees {
				if _, ok := seen[name]; ok {
					continue
				}
				seen[name] = struct{}{}
				names = append(names, name)
			}
			walk(node.Children)
		}
	}
	walk(forest)
	return names
}
