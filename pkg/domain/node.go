package domain

import "strings"

// Kind discriminates the node variants of a decision tree.
type Kind int

const (
	// KindDecision branches into an ordered list of options, optionally asking a question first.
	KindDecision Kind = iota
	// KindTerminal is a leaf carrying an outbound link.
	KindTerminal
	// KindInternalLink is a leaf referencing another node of the same tree by id.
	KindInternalLink
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindDecision:
		return "decision"
	case KindTerminal:
		return "terminal"
	case KindInternalLink:
		return InternalLinkType
	default:
		return "unknown"
	}
}

// Node is a single element of a decision tree.
// The Kind is decided once, when the node is built or imported, and selects which
// of the variant fields are meaningful.
type Node struct {
	Kind Kind

	// ID is the semantic identity used by internal links. Zero means unassigned.
	ID    int
	Title string
	Image string

	// Decision
	Question string
	Options  []*Node

	// Terminal
	Link string

	// InternalLink
	TargetID string
}

// NewDecision creates a decision node with the given children.
func NewDecision(id int, title, question string, options ...*Node) *Node {
	if options == nil {
		options = []*Node{}
	}
	return &Node{
		Kind:     KindDecision,
		ID:       id,
		Title:    title,
		Question: question,
		Options:  options,
	}
}

// NewTerminal creates a leaf that links outside of the tree.
func NewTerminal(id int, title, link string) *Node {
	return &Node{
		Kind:  KindTerminal,
		ID:    id,
		Title: title,
		Link:  link,
	}
}

// NewInternalLink creates a leaf that points at the node identified by targetID.
func NewInternalLink(id int, title, targetID string) *Node {
	return &Node{
		Kind:     KindInternalLink,
		ID:       id,
		Title:    title,
		TargetID: targetID,
	}
}

// HasQuestion reports whether a decision node carries a non-blank question.
func (n *Node) HasQuestion() bool {
	return n.Kind == KindDecision && strings.TrimSpace(n.Question) != ""
}

// Clone returns a deep copy of the subtree rooted at n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Options != nil {
		c.Options = make([]*Node, 0, len(n.Options))
		for _, child := range n.Options {
			if child == nil {
				continue
			}
			c.Options = append(c.Options, child.Clone())
		}
	}
	return &c
}

// Walk visits the subtree depth-first, parent before children, children in order.
// Returning false from fn skips the children of that node.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int) bool, depth int) {
	if n == nil {
		return
	}
	if !fn(n, depth) {
		return
	}
	if n.Kind != KindDecision {
		return
	}
	for _, child := range n.Options {
		child.walk(fn, depth+1)
	}
}

// Height returns the depth of the deepest node below n. A lone node has height 0.
func (n *Node) Height() int {
	height := 0
	n.Walk(func(_ *Node, depth int) bool {
		height = max(height, depth)
		return true
	})
	return height
}

// Count returns the number of nodes in the subtree.
func (n *Node) Count() int {
	total := 0
	n.Walk(func(*Node, int) bool {
		total++
		return true
	})
	return total
}
