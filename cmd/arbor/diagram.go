package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/internal/presentation/render"
)

var diagramCmd = &cobra.Command{
	Use:   "diagram [file]",
	Short: "Compile a tree to a Mermaid or Graphviz diagram",
	Long: `Compiles a decision tree document (or the stored tree when no file is given)
to a diagram. Use "-" to read the document from standard input.
With --watch the diagram is rebuilt whenever the source changes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := diagramOptions(cmd, args)
		if err != nil {
			return err
		}
		opts.Watch, _ = cmd.Flags().GetBool("watch")

		ws, err := openWorkspace(nil)
		if err != nil {
			return err
		}
		defer ws.Close()

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()
		return cli.RunDiagram(ctx, ws, opts, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render a tree to SVG through Graphviz",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := diagramOptions(cmd, args)
		if err != nil {
			return err
		}

		ws, err := openWorkspace(nil)
		if err != nil {
			return err
		}
		defer ws.Close()

		var res arbor.Diagram
		if opts.Source == "" {
			res, err = ws.Diagram(cmd.Context(), opts.Key, arbor.FormatGraphviz, opts.Diagram)
		} else {
			root, rerr := cli.ReadTree(ws, opts.Source, "", cmd.InOrStdin())
			if rerr != nil {
				return rerr
			}
			res, err = ws.Compile(cmd.Context(), root, arbor.FormatGraphviz, opts.Diagram)
		}
		if err != nil {
			return err
		}

		svg, err := render.SVG(cmd.Context(), res.Text)
		if err != nil {
			return err
		}
		if opts.Output == "" {
			_, err = cmd.OutOrStdout().Write(svg)
			return err
		}
		if err := os.WriteFile(opts.Output, svg, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", opts.Output, err)
		}
		return nil
	},
}

func diagramOptions(cmd *cobra.Command, args []string) (cli.DiagramOptions, error) {
	name, _ := cmd.Flags().GetString("format")
	format, err := graph.ParseFormat(name)
	if err != nil {
		return cli.DiagramOptions{}, err
	}
	direction, _ := cmd.Flags().GetString("direction")
	highlight, _ := cmd.Flags().GetIntSlice("highlight")
	out, _ := cmd.Flags().GetString("out")

	opts := cli.DiagramOptions{
		Key:     settings.Config.Key,
		Format:  format,
		Diagram: arbor.DiagramOptions{Direction: direction, Highlight: highlight},
		Output:  out,
	}
	if len(args) > 0 {
		opts.Source = args[0]
	}
	return opts, nil
}

func init() {
	rootCmd.AddCommand(diagramCmd, renderCmd)

	for _, c := range []*cobra.Command{diagramCmd, renderCmd} {
		c.Flags().String("direction", "", "Flowchart direction: TD, TB, BT, LR or RL")
		c.Flags().IntSlice("highlight", nil, "Node ids to highlight")
		c.Flags().StringP("out", "o", "", "Write to a file instead of stdout")
	}
	diagramCmd.Flags().StringP("format", "f", "mermaid", "Diagram format: mermaid or graphviz")
	diagramCmd.Flags().BoolP("watch", "w", false, "Rebuild the diagram on every change")
	renderCmd.Flags().String("format", "graphviz", "")
	_ = renderCmd.Flags().MarkHidden("format")
}
