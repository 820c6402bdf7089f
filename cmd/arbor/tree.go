package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/codec"
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create an empty tree under the key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(nil)
		if err != nil {
			return err
		}
		defer ws.Close()

		key := settings.Config.Key
		_, created, err := ws.Create(cmd.Context(), key)
		if err != nil {
			return err
		}
		if created {
			cli.PrintSystemMessage(cmd.ErrOrStderr(), "Created tree '%s'.", key)
		} else {
			cli.PrintSystemMessage(cmd.ErrOrStderr(), "Tree '%s' already exists.", key)
		}
		return nil
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored trees",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(nil)
		if err != nil {
			return err
		}
		defer ws.Close()

		keys, err := ws.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, k := range keys {
			fmt.Fprintln(cmd.OutOrStdout(), k)
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored tree as an outline",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(nil)
		if err != nil {
			return err
		}
		defer ws.Close()

		root, err := ws.Load(cmd.Context(), settings.Config.Key)
		if err != nil {
			return err
		}
		return tui.RenderOutline(cmd.OutOrStdout(), root, tui.IsTerminal(os.Stdout))
	},
}

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List the nodes of the stored tree",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(nil)
		if err != nil {
			return err
		}
		defer ws.Close()

		refs, err := ws.Nodes(cmd.Context(), settings.Config.Key)
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(refs)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tui.NodeTable(refs))
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Store a tree document under the key",
	Long:  `Reads a JSON or YAML document ("-" for standard input), assigns missing ids and saves it.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(nil)
		if err != nil {
			return err
		}
		defer ws.Close()

		format, err := formatFlag(cmd)
		if err != nil {
			return err
		}
		root, err := cli.ReadTree(ws, args[0], format, cmd.InOrStdin())
		if err != nil {
			return err
		}
		saved, err := ws.Save(cmd.Context(), settings.Config.Key, root)
		if err != nil {
			return err
		}
		cli.PrintSystemMessage(cmd.ErrOrStderr(), "Imported %d nodes into '%s'.", saved.Count(), settings.Config.Key)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the stored tree as a document",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(nil)
		if err != nil {
			return err
		}
		defer ws.Close()

		format, err := formatFlag(cmd)
		if err != nil {
			return err
		}
		root, err := ws.Load(cmd.Context(), settings.Config.Key)
		if err != nil {
			return err
		}
		path := cli.Stdio
		if len(args) > 0 {
			path = args[0]
		}
		if path == cli.Stdio && format == "" {
			format = codec.FormatJSON
		}
		return cli.WriteTree(ws, path, format, root, cmd.OutOrStdout())
	},
}

var idsCmd = &cobra.Command{
	Use:   "ids <file>",
	Short: "Assign ids to every node of a document that lacks one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(nil)
		if err != nil {
			return err
		}
		defer ws.Close()

		root, err := cli.ReadTree(ws, args[0], "", cmd.InOrStdin())
		if err != nil {
			return err
		}
		target := cli.Stdio
		if write, _ := cmd.Flags().GetBool("write"); write && args[0] != cli.Stdio {
			target = args[0]
		}
		format := codec.FormatFromPath(args[0])
		return cli.WriteTree(ws, target, format, root, cmd.OutOrStdout())
	},
}

// formatFlag reads the optional --format flag; empty means "from the file extension".
func formatFlag(cmd *cobra.Command) (codec.Format, error) {
	name, _ := cmd.Flags().GetString("format")
	if name == "" {
		return "", nil
	}
	return codec.ParseFormat(name)
}

func init() {
	rootCmd.AddCommand(newCmd, lsCmd, showCmd, nodesCmd, importCmd, exportCmd, idsCmd)

	nodesCmd.Flags().Bool("json", false, "Print the nodes as JSON")
	importCmd.Flags().String("format", "", "Document format: json or yaml (default from extension)")
	exportCmd.Flags().String("format", "", "Document format: json or yaml (default from extension)")
	idsCmd.Flags().Bool("write", false, "Rewrite the file in place")
}
