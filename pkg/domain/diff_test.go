package domain

import (
	"reflect"
	"testing"
)

func TestDiff(t *testing.T) {
	base := func() *Node {
		return NewDecision(1, "Root", "Pick one",
			NewDecision(2, "A", ""),
			NewTerminal(3, "B", "https://example.com/b"),
		)
	}

	tests := []struct {
		name string
		old  *Node
		new  *Node
		want *TreeDiff
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  nil,
			new:  base(),
			want: &TreeDiff{Added: []int{1, 2, 3}},
		},
		{
			name: "No Changes",
			old:  base(),
			new:  base(),
			want: nil,
		},
		{
			name: "Title Changed",
			old:  base(),
			new: func() *Node {
				n := base()
				n.Options[1].Title = "B2"
				return n
			}(),
			want: &TreeDiff{Changed: []int{3}},
		},
		{
			name: "Child Appended",
			old:  base(),
			new: func() *Node {
				n := base()
				n.Options[0].Options = append(n.Options[0].Options, NewInternalLink(4, "back", "1"))
				return n
			}(),
			want: &TreeDiff{Added: []int{4}, Changed: []int{2}},
		},
		{
			name: "Subtree Removed",
			old:  base(),
			new: func() *Node {
				n := base()
				n.Options = n.Options[1:]
				return n
			}(),
			want: &TreeDiff{Removed: []int{2}, Changed: []int{1}},
		},
		{
			name: "Nodes Without IDs Ignored",
			old:  nil,
			new:  NewDecision(0, "", "", NewTerminal(0, "x", "")),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Diff() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNode_CloneIsDeep(t *testing.T) {
	orig := NewDecision(1, "Root", "", NewTerminal(2, "leaf", "x"))
	c := orig.Clone()
	c.Options[0].Title = "changed"
	c.Options = append(c.Options, NewTerminal(3, "extra", ""))

	if orig.Options[0].Title != "leaf" {
		t.Errorf("Clone shares children: original title = %q", orig.Options[0].Title)
	}
	if len(orig.Options) != 1 {
		t.Errorf("Clone shares option slice: len = %d", len(orig.Options))
	}
}

func TestNode_HasQuestion(t *testing.T) {
	tests := []struct {
		node *Node
		want bool
	}{
		{NewDecision(1, "", "Which?"), true},
		{NewDecision(1, "", "   \n\t"), false},
		{NewDecision(1, "", ""), false},
		{&Node{Kind: KindTerminal, Question: "ignored"}, false},
	}
	for _, tt := range tests {
		if got := tt.node.HasQuestion(); got != tt.want {
			t.Errorf("HasQuestion(%q) = %v, want %v", tt.node.Question, got, tt.want)
		}
	}
}

func TestNode_WalkOrder(t *testing.T) {
	root := NewDecision(1, "r", "",
		NewDecision(2, "a", "", NewTerminal(3, "a1", "")),
		NewTerminal(4, "b", ""),
	)
	var order []int
	var depths []int
	root.Walk(func(n *Node, depth int) bool {
		order = append(order, n.ID)
		depths = append(depths, depth)
		return true
	})
	if !reflect.DeepEqual(order, []int{1, 2, 3, 4}) {
		t.Errorf("Walk order = %v", order)
	}
	if !reflect.DeepEqual(depths, []int{0, 1, 2, 1}) {
		t.Errorf("Walk depths = %v", depths)
	}
	if root.Count() != 4 {
		t.Errorf("Count() = %d, want 4", root.Count())
	}
}
