package topics

import "noteflow/internal/domain"

// Node is a topic placed in the parent/child hierarchy.
type Node struct {
	Topic domain.Topic `json:"topic"`
	Depth int          `json:"depth"`
}

// Organize flattens topics into display order: each root in SortTopics order
// followed by its descendants, depth first. Topics whose parent is missing
// are treated as roots. A parent chain that loops back on itself is cut at the
// first repeated topic.
func Organize(topics []domain.Topic) []Node {
	sorted := SortTopics(topics)

	byID := make(map[string]bool, len(sorted))
	for _, t := range sorted {
		byID[t.ID] = true
	}

	children := make(map[string][]domain.Topic)
	var roots []domain.Topic
	for _, t := range sorted {
		if t.ParentID == "" || t.ParentID == t.ID || !byID[t.ParentID] {
			roots = append(roots, t)
			continue
		}
		children[t.ParentID] = append(children[t.ParentID], t)
	}

	out := make([]Node, 0, len(sorted))
	visited := make(map[string]bool, len(sorted))
	var walk func(t domain.Topic, depth int)
	walk = func(t domain.Topic, depth int) {
		if visited[t.ID] {
			return
		}
		visited[t.ID] = true
		out = append(out, Node{Topic: t, Depth: depth})
		for _, c := range children[t.ID] {
			walk(c, depth+1)
		}
	}
	for _, r := range roots {
		walk(r, 0)
	}

	// Topics only reachable through a cycle have no root; surface them at the
	// top level so nothing disappears from the list.
	for _, t := range sorted {
		if !visited[t.ID] {
			walk(t, 0)
		}
	}
	return out
}
