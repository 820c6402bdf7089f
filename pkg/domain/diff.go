package domain

import "slices"

// TreeDiff summarizes the changes between two versions of a tree, keyed by node id.
// It is serialized alongside change notifications so clients can patch their view.
type TreeDiff struct {
	Added   []int `json:"added,omitempty"`
	Removed []int `json:"removed,omitempty"`
	Changed []int `json:"changed,omitempty"`
}

// Diff compares two trees by node id.
// If oldTree is nil every node of newTree is reported as added. Nodes without an id
// are ignored. Returns nil when nothing changed.
func Diff(oldTree, newTree *Node) *TreeDiff {
	before := index(oldTree)
	after := index(newTree)

	diff := &TreeDiff{}
	for id, n := range after {
		prev, ok := before[id]
		if !ok {
			diff.Added = append(diff.Added, id)
			continue
		}
		if !sameFields(prev, n) {
			diff.Changed = append(diff.Changed, id)
		}
	}
	for id := range before {
		if _, ok := after[id]; !ok {
			diff.Removed = append(diff.Removed, id)
		}
	}

	if len(diff.Added) == 0 && len(diff.Removed) == 0 && len(diff.Changed) == 0 {
		return nil
	}

	slices.Sort(diff.Added)
	slices.Sort(diff.Removed)
	slices.Sort(diff.Changed)
	return diff
}

// index maps ids to nodes; on collisions the first visited node wins.
func index(root *Node) map[int]*Node {
	out := make(map[int]*Node)
	root.Walk(func(n *Node, _ int) bool {
		if n.ID > 0 {
			if _, seen := out[n.ID]; !seen {
				out[n.ID] = n
			}
		}
		return true
	})
	return out
}

// sameFields compares the node's own fields plus the ids of its direct children.
func sameFields(a, b *Node) bool {
	if a.Kind != b.Kind || a.Title != b.Title || a.Image != b.Image ||
		a.Question != b.Question || a.Link != b.Link || a.TargetID != b.TargetID {
		return false
	}
	if len(a.Options) != len(b.Options) {
		return false
	}
	for i := range a.Options {
		if a.Options[i].ID != b.Options[i].ID {
			return false
		}
	}
	return true
}
