package graph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

type dotStyle struct {
	shape string
	fill  string
	color string
}

var (
	dotQuestion = dotStyle{shape: "diamond", fill: "#f3e5f5", color: "purple"}
	dotOption   = dotStyle{shape: "box", fill: "#fff3e0", color: "orange"}
	dotTerminal = dotStyle{shape: "ellipse", fill: "#e3f2fd", color: "blue"}
)

// GenerateGraphviz produces a Graphviz DOT digraph from a decision tree.
//
// Each decision is a diamond labeled with its question (or title). Every child of a
// decision gets its own option box carrying the child's title, and the child's
// element hangs off that box. Terminals and internal links are ellipses; internal
// links have no cross edge in this format.
//
// Element ids are derived from the child index path (q_root, o_0, q_0, o_0_1, t_0_1),
// so they are unique within a diagram and stable across runs.
func GenerateGraphviz(root *domain.Node, opts ...Option) Result {
	g := &dotEmitter{cfg: newConfig(opts)}
	if root != nil {
		g.visit(root, "", domain.RootPath)
	}

	return Result{
		Format:   FormatGraphviz,
		Text:     g.render(),
		Elements: len(g.decls),
		Edges:    len(g.edges),
	}
}

type dotEmitter struct {
	cfg   *config
	decls []string
	edges []string
}

func (g *dotEmitter) visit(n *domain.Node, parent, path string) {
	if n.Kind != domain.KindDecision {
		if n.Kind == domain.KindInternalLink {
			g.cfg.logger.Debug("Graphviz: internal link rendered as leaf", "node_id", n.ID, "target_id", n.TargetID)
		}
		el := "t_" + path
		g.declare(el, n.Title, dotTerminal)
		g.edge(parent, el)
		return
	}

	el := "q_" + path
	label := n.Title
	if n.HasQuestion() {
		label = n.Question
	}
	g.declare(el, label, dotQuestion)
	g.edge(parent, el)

	for i, child := range n.Options {
		if child == nil {
			continue
		}
		childPath := strconv.Itoa(i)
		if path != domain.RootPath {
			childPath = path + "_" + childPath
		}
		opt := "o_" + childPath
		g.declare(opt, child.Title, dotOption)
		g.edge(el, opt)
		g.visit(child, opt, childPath)
	}
}

func (g *dotEmitter) declare(el, label string, s dotStyle) {
	g.decls = append(g.decls, fmt.Sprintf(
		"%s [label=\"%s\", shape=%s, style=filled, fillcolor=\"%s\", color=%s];",
		el, dotLabel(label), s.shape, s.fill, s.color))
}

func (g *dotEmitter) edge(from, to string) {
	if from == "" {
		return
	}
	g.edges = append(g.edges, fmt.Sprintf("%s -> %s;", from, to))
}

func (g *dotEmitter) render() string {
	var sb strings.Builder
	sb.WriteString("digraph DecisionTree {\n")
	sb.WriteString("  rankdir=TB;\n")
	sb.WriteString("  node [fontname=\"Helvetica\"];\n")
	sb.WriteString("  edge [fontname=\"Helvetica\"];\n")
	sb.WriteString("\n")
	for _, d := range g.decls {
		sb.WriteString("  " + d + "\n")
	}
	sb.WriteString("\n")
	for _, e := range g.edges {
		sb.WriteString("  " + e + "\n")
	}
	sb.WriteString("}\n")
	return sb.String()
}
