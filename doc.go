/*
Package arbor edits decision trees and compiles them into diagrams.

A decision tree is made of three kinds of nodes: decisions, which optionally ask a
question and branch into ordered options; terminals, which end a path with an outbound
link; and internal links, which point back at another node of the same tree by id.

# Concept

A Workspace keeps trees by storage key in a pluggable store (memory, file or Redis),
serializes edits per key, assigns stable numeric ids to every node and turns a tree
into Mermaid flowchart or Graphviz DOT text. Every change is published to subscribers
as the tree's JSON document, which is what the HTTP server streams to visualizers.

# Usage

	ws, err := arbor.New(arbor.WithDirection("LR"))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if _, _, err := ws.Create(ctx, "onboarding"); err != nil {
		log.Fatal(err)
	}

	_, err = ws.Edit(ctx, "onboarding", func(ed *editor.Editor) error {
		if err := ed.Update("root", editor.Patch{Question: ptr("Have an account?")}); err != nil {
			return err
		}
		_, err := ed.AddTerminal("root", "Yes", "https://example.com/login")
		return err
	})
	if err != nil {
		log.Fatal(err)
	}

	diagram, err := ws.Mermaid(ctx, "onboarding")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(diagram.Text)
*/
package arbor
