// Package validator checks decision trees for structural problems that would make
// diagrams lossy: duplicate or missing ids and internal links that go nowhere.
package validator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/editor"
)

// Issue is one problem found in a tree.
type Issue struct {
	Path    string `json:"path"`
	NodeID  int    `json:"node_id"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s (id %d): %s", i.Path, i.NodeID, i.Message)
}

// Inspect walks the tree and reports every issue in depth-first order.
func Inspect(root *domain.Node) []Issue {
	if root == nil {
		return nil
	}

	type visit struct {
		node *domain.Node
		path editor.Path
	}
	var nodes []visit
	var walk func(n *domain.Node, p editor.Path)
	walk = func(n *domain.Node, p editor.Path) {
		nodes = append(nodes, visit{n, p})
		if n.Kind != domain.KindDecision {
			return
		}
		for i, child := range n.Options {
			if child != nil {
				walk(child, p.Child(i))
			}
		}
	}
	walk(root, editor.Path{})

	firstSeen := make(map[int]string, len(nodes))
	for _, v := range nodes {
		if v.node.ID > 0 {
			if _, ok := firstSeen[v.node.ID]; !ok {
				firstSeen[v.node.ID] = v.path.String()
			}
		}
	}

	var issues []Issue
	report := func(v visit, format string, args ...any) {
		issues = append(issues, Issue{Path: v.path.String(), NodeID: v.node.ID, Message: fmt.Sprintf(format, args...)})
	}
	for _, v := range nodes {
		n := v.node
		switch {
		case n.ID <= 0:
			report(v, "node has no id")
		case firstSeen[n.ID] != v.path.String():
			report(v, "duplicate id, already used at %s", firstSeen[n.ID])
		}

		if n.Kind != domain.KindInternalLink {
			continue
		}
		target := strings.TrimSpace(n.TargetID)
		if target == "" {
			report(v, "internal link has no target")
			continue
		}
		id, err := strconv.Atoi(target)
		if err != nil {
			report(v, "internal link target %q is not a node id", target)
			continue
		}
		if _, ok := firstSeen[id]; !ok {
			report(v, "internal link target %d not found", id)
		}
	}
	return issues
}

// ValidateTree returns an ErrInvalidTree error listing every issue, or nil.
func ValidateTree(root *domain.Node) error {
	issues := Inspect(root)
	if len(issues) == 0 {
		return nil
	}
	lines := make([]string, len(issues))
	for i, is := range issues {
		lines[i] = is.String()
	}
	return fmt.Errorf("%w: found %d errors:\n- %s", domain.ErrInvalidTree, len(issues), strings.Join(lines, "\n- "))
}
