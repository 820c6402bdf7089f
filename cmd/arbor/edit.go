package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/editor"
)

var addCmd = &cobra.Command{
	Use:   "add <parent-path>",
	Short: "Add a child node under a decision",
	Long: `Appends a node to the options of the decision at the given path
("root", "root.0", "root.0.2", ...). The new node receives a fresh id.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		title, _ := cmd.Flags().GetString("title")
		question, _ := cmd.Flags().GetString("question")
		link, _ := cmd.Flags().GetString("link")
		target, _ := cmd.Flags().GetInt("target")

		ws, err := openWorkspace(nil)
		if err != nil {
			return err
		}
		defer ws.Close()

		var added editor.Path
		var id int
		_, err = ws.Edit(cmd.Context(), settings.Config.Key, func(ed *editor.Editor) error {
			id = ed.NextID()
			var err error
			switch kind {
			case domain.KindDecision.String():
				added, err = ed.AddDecision(args[0], title, question)
			case domain.KindTerminal.String():
				added, err = ed.AddTerminal(args[0], title, link)
			case domain.KindInternalLink.String():
				added, err = ed.AddInternalLink(args[0], title, target)
			default:
				err = fmt.Errorf("unknown node kind %q", kind)
			}
			return err
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", added, id)
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <path>",
	Short: "Remove the subtree at path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(nil)
		if err != nil {
			return err
		}
		defer ws.Close()

		var removed *domain.Node
		_, err = ws.Edit(cmd.Context(), settings.Config.Key, func(ed *editor.Editor) error {
			var err error
			removed, err = ed.Remove(args[0])
			return err
		})
		if err != nil {
			return err
		}
		cli.PrintSystemMessage(cmd.ErrOrStderr(), "Removed %d nodes.", removed.Count())
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:   "set <path>",
	Short: "Update the fields of the node at path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch editor.Patch
		for flag, dst := range map[string]**string{
			"title":    &patch.Title,
			"image":    &patch.Image,
			"question": &patch.Question,
			"link":     &patch.Link,
			"target":   &patch.TargetID,
		} {
			if cmd.Flags().Changed(flag) {
				v, _ := cmd.Flags().GetString(flag)
				*dst = &v
			}
		}

		ws, err := openWorkspace(nil)
		if err != nil {
			return err
		}
		defer ws.Close()

		_, err = ws.Edit(cmd.Context(), settings.Config.Key, func(ed *editor.Editor) error {
			return ed.Update(args[0], patch)
		})
		return err
	},
}

func init() {
	rootCmd.AddCommand(addCmd, rmCmd, setCmd)

	addCmd.Flags().String("kind", domain.KindTerminal.String(), "Node kind: decision, terminal or internal_link")
	addCmd.Flags().String("title", "", "Node title")
	addCmd.Flags().String("question", "", "Question shown above the options of a decision")
	addCmd.Flags().String("link", "", "Destination of a terminal")
	addCmd.Flags().Int("target", 0, "Id of the node an internal link points to")

	setCmd.Flags().String("title", "", "Node title")
	setCmd.Flags().String("image", "", "Image URL")
	setCmd.Flags().String("question", "", "Question of a decision")
	setCmd.Flags().String("link", "", "Destination of a terminal")
	setCmd.Flags().String("target", "", "Target id of an internal link")
}
