package editor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/arbor/pkg/codec"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/identity"
)

// Editor mutates a decision tree through path based operations.
// Every inserted node receives a fresh id from the allocator. An Editor is not safe
// for concurrent use; serialize access with a session.Manager.
type Editor struct {
	root *domain.Node
	ids  *identity.Allocator
}

// NewTree starts an empty tree: a decision root with id 1.
func NewTree() *Editor {
	return &Editor{
		root: domain.NewDecision(identity.FirstID, "", ""),
		ids:  identity.NewAllocator(identity.FirstID + 1),
	}
}

// Open wraps a copy of root, backfilling missing ids.
// A nil root starts an empty tree.
func Open(root *domain.Node) *Editor {
	if root == nil {
		return NewTree()
	}
	tree, next := identity.EnsureIDs(root)
	return &Editor{root: tree, ids: identity.NewAllocator(next)}
}

// Tree returns a deep copy of the current tree.
func (e *Editor) Tree() *domain.Node {
	return e.root.Clone()
}

// NextID reports the id the next inserted node will receive.
func (e *Editor) NextID() int {
	return e.ids.Peek()
}

// Find returns a copy of the node at path.
func (e *Editor) Find(path string) (*domain.Node, error) {
	n, _, err := e.resolve(path)
	if err != nil {
		return nil, err
	}
	return n.Clone(), nil
}

// PathOf locates the first node, in depth-first order, carrying id.
func (e *Editor) PathOf(id int) (Path, error) {
	var found Path
	var walk func(n *domain.Node, p Path) bool
	walk = func(n *domain.Node, p Path) bool {
		if n.ID == id {
			found = p
			return true
		}
		if n.Kind != domain.KindDecision {
			return false
		}
		for i, child := range n.Options {
			if child != nil && walk(child, p.Child(i)) {
				return true
			}
		}
		return false
	}
	if id > 0 && walk(e.root, Path{}) {
		return found, nil
	}
	return nil, fmt.Errorf("%w: id %d", domain.ErrNodeNotFound, id)
}

// AddDecision appends an empty decision under the decision at path.
func (e *Editor) AddDecision(path, title, question string) (Path, error) {
	return e.Add(path, domain.NewDecision(0, title, question))
}

// AddTerminal appends a terminal under the decision at path.
func (e *Editor) AddTerminal(path, title, link string) (Path, error) {
	return e.Add(path, domain.NewTerminal(0, title, link))
}

// AddInternalLink appends a link to the node identified by target.
func (e *Editor) AddInternalLink(path, title string, target int) (Path, error) {
	return e.Add(path, domain.NewInternalLink(0, title, strconv.Itoa(target)))
}

// Add appends a copy of child, and its subtree, under the decision at path.
// Every node of the inserted subtree gets a fresh id, and internal links that
// target a node of the copy follow it to its new id. The result may not nest
// deeper than codec.DefaultMaxDepth, the limit stored trees are read back with.
func (e *Editor) Add(path string, child *domain.Node) (Path, error) {
	if child == nil {
		return nil, fmt.Errorf("%w: nil child", domain.ErrInvalidPath)
	}
	parent, p, err := e.resolve(path)
	if err != nil {
		return nil, err
	}
	if parent.Kind != domain.KindDecision {
		return nil, fmt.Errorf("%w: %s is a %s", domain.ErrNotDecision, p, parent.Kind)
	}

	if depth := len(p) + 1 + child.Height(); depth >= codec.DefaultMaxDepth {
		return nil, fmt.Errorf("%w (%d)", domain.ErrTooDeep, codec.DefaultMaxDepth)
	}

	n := child.Clone()
	renamed := make(map[string]string)
	n.Walk(func(sub *domain.Node, _ int) bool {
		id := e.ids.Next()
		if old := strconv.Itoa(sub.ID); sub.ID > 0 && renamed[old] == "" {
			renamed[old] = strconv.Itoa(id)
		}
		sub.ID = id
		return true
	})
	n.Walk(func(sub *domain.Node, _ int) bool {
		if sub.Kind != domain.KindInternalLink {
			return true
		}
		if id, ok := renamed[strings.TrimSpace(sub.TargetID)]; ok {
			sub.TargetID = id
		}
		return true
	})
	parent.Options = append(parent.Options, n)
	return p.Child(len(parent.Options) - 1), nil
}

// Remove detaches the subtree at path. The root cannot be removed.
func (e *Editor) Remove(path string) (*domain.Node, error) {
	_, p, err := e.resolve(path)
	if err != nil {
		return nil, err
	}
	if p.IsRoot() {
		return nil, fmt.Errorf("%w: cannot remove the root", domain.ErrInvalidPath)
	}

	pp, idx := p.Parent()
	parent, err := e.at(pp)
	if err != nil {
		return nil, err
	}
	removed := parent.Options[idx]
	parent.Options = append(parent.Options[:idx], parent.Options[idx+1:]...)
	return removed, nil
}

// Patch carries optional field updates. Nil fields are left unchanged.
type Patch struct {
	Title    *string `json:"title,omitempty"`
	Image    *string `json:"image,omitempty"`
	Question *string `json:"question_for_options,omitempty"`
	Link     *string `json:"link,omitempty"`
	TargetID *string `json:"target_node_id,omitempty"`
}

// Update applies patch to the node at path. Fields that do not belong to the node's
// kind are ignored.
func (e *Editor) Update(path string, patch Patch) error {
	n, _, err := e.resolve(path)
	if err != nil {
		return err
	}

	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&n.Title, patch.Title)
	set(&n.Image, patch.Image)

	switch n.Kind {
	case domain.KindDecision:
		set(&n.Question, patch.Question)
	case domain.KindTerminal:
		set(&n.Link, patch.Link)
	case domain.KindInternalLink:
		set(&n.TargetID, patch.TargetID)
	}
	return nil
}

func (e *Editor) resolve(path string) (*domain.Node, Path, error) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, nil, err
	}
	n, err := e.at(p)
	if err != nil {
		return nil, nil, err
	}
	return n, p, nil
}

func (e *Editor) at(p Path) (*domain.Node, error) {
	n := e.root
	for depth, idx := range p {
		if n.Kind != domain.KindDecision || idx >= len(n.Options) || n.Options[idx] == nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, p[:depth+1])
		}
		n = n.Options[idx]
	}
	return n, nil
}
