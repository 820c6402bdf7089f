package graph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// Mermaid style classes, in emission order.
const (
	classTerminal     = "terminal"
	classOption       = "option"
	classQuestion     = "question"
	classInternalLink = "internalLink"
	classHighlight    = "highlight"
)

var mermaidClasses = []struct {
	name  string
	style string
}{
	{classTerminal, "fill:#e3f2fd,stroke:#1565c0,stroke-width:2px,color:#000"},
	{classOption, "fill:#fff3e0,stroke:#ef6c00,stroke-width:2px,color:#000"},
	{classQuestion, "fill:#f3e5f5,stroke:#6a1b9a,stroke-width:2px,color:#000"},
	{classInternalLink, "fill:#e8f5e9,stroke:#2e7d32,stroke-width:2px,color:#000"},
}

// GenerateMermaid produces a Mermaid flowchart from a decision tree.
// It applies semantic shapes:
// - Terminal: ((Circle))
// - Option: [Box]
// - Question: {Diamond}, chained after the option box of a decision that asks one
// - Internal link: {{Hexagon}}, with a dashed edge to the element of its target
//
// Element ids (node0, node1, ...) follow visitation order and are independent of
// node ids. Internal link edges are resolved after the walk; targets that do not
// resolve are left out and reported in Result.Warnings.
func GenerateMermaid(root *domain.Node, opts ...Option) Result {
	cfg := newConfig(opts)
	m := &mermaidEmitter{
		cfg:      cfg,
		elements: make(map[int]string),
		classes:  make(map[string][]string),
	}
	if root != nil {
		m.visit(root, "")
	}
	m.resolveLinks()

	return Result{
		Format:   FormatMermaid,
		Text:     m.render(),
		Elements: len(m.decls),
		Edges:    len(m.edges),
		Warnings: m.warnings,
	}
}

type pendingLink struct {
	from string
	node *domain.Node
}

type mermaidEmitter struct {
	cfg *config

	seq      int
	decls    []string
	edges    []string
	links    []pendingLink
	elements map[int]string // node id -> element id, first visit wins
	classes  map[string][]string
	marked   []string
	warnings []Warning
}

func (m *mermaidEmitter) visit(n *domain.Node, parent string) {
	switch n.Kind {
	case domain.KindTerminal:
		el := m.declare(n, "((", "))", n.Title, classTerminal)
		m.edge(parent, el)

	case domain.KindInternalLink:
		el := m.declare(n, "{{", "}}", n.Title, classInternalLink)
		m.edge(parent, el)
		m.links = append(m.links, pendingLink{from: el, node: n})

	default:
		el := m.declare(n, "[", "]", n.Title, classOption)
		m.edge(parent, el)

		next := el
		if n.HasQuestion() {
			next = m.element("{", "}", n.Question, classQuestion)
			m.edge(el, next)
		}
		for _, child := range n.Options {
			if child != nil {
				m.visit(child, next)
			}
		}
	}
}

// declare emits the element that represents n itself and records its id mapping.
func (m *mermaidEmitter) declare(n *domain.Node, opener, closer, label, class string) string {
	el := m.element(opener, closer, label, class)
	if n.ID > 0 {
		if _, seen := m.elements[n.ID]; !seen {
			m.elements[n.ID] = el
		}
		if m.cfg.highlight[n.ID] {
			m.marked = append(m.marked, el)
		}
	}
	return el
}

func (m *mermaidEmitter) element(opener, closer, label, class string) string {
	el := "node" + strconv.Itoa(m.seq)
	m.seq++
	m.decls = append(m.decls, fmt.Sprintf("%s%s\"%s\"%s", el, opener, mermaidLabel(label), closer))
	m.classes[class] = append(m.classes[class], el)
	return el
}

func (m *mermaidEmitter) edge(from, to string) {
	if from == "" {
		return
	}
	m.edges = append(m.edges, fmt.Sprintf("%s --> %s", from, to))
}

// resolveLinks runs once the id mapping is complete.
func (m *mermaidEmitter) resolveLinks() {
	for _, l := range m.links {
		target := strings.TrimSpace(l.node.TargetID)
		to, ok := m.lookup(target)
		if !ok {
			w := Warning{
				NodeID:   l.node.ID,
				TargetID: target,
				Message:  "internal link target not found",
			}
			if target == "" {
				w.Message = "internal link has no target"
			}
			m.warnings = append(m.warnings, w)
			m.cfg.logger.Warn("Mermaid: internal link omitted",
				"node_id", w.NodeID, "target_id", w.TargetID, "reason", w.Message)
			continue
		}
		m.edges = append(m.edges, fmt.Sprintf("%s -.-> %s", l.from, to))
	}
}

func (m *mermaidEmitter) lookup(target string) (string, bool) {
	id, err := strconv.Atoi(target)
	if err != nil || id <= 0 {
		return "", false
	}
	el, ok := m.elements[id]
	return el, ok
}

func (m *mermaidEmitter) render() string {
	var sb strings.Builder
	sb.WriteString("flowchart ")
	sb.WriteString(string(m.cfg.direction))
	sb.WriteString("\n")

	for _, d := range m.decls {
		sb.WriteString("    " + d + "\n")
	}
	sb.WriteString("\n")
	for _, e := range m.edges {
		sb.WriteString("    " + e + "\n")
	}
	sb.WriteString("\n")

	for _, c := range mermaidClasses {
		sb.WriteString(fmt.Sprintf("    classDef %s %s;\n", c.name, c.style))
	}
	for _, c := range mermaidClasses {
		if members := m.classes[c.name]; len(members) > 0 {
			sb.WriteString(fmt.Sprintf("    class %s %s;\n", strings.Join(members, ","), c.name))
		}
	}

	if len(m.marked) > 0 {
		sb.WriteString("    classDef highlight fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString(fmt.Sprintf("    class %s %s;\n", strings.Join(m.marked, ","), classHighlight))
	}

	return sb.String()
}
