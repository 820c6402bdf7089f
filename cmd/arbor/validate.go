package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/validator"
	"github.com/aretw0/arbor/pkg/domain"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check a tree for consistency",
	Long:  `Reports duplicate or missing ids and internal links whose target does not exist.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(nil)
		if err != nil {
			return err
		}
		defer ws.Close()

		var root *domain.Node
		if len(args) > 0 {
			root, err = cli.ReadTree(ws, args[0], "", cmd.InOrStdin())
		} else {
			root, err = ws.Load(cmd.Context(), settings.Config.Key)
		}
		if err != nil {
			return err
		}

		if err := validator.ValidateTree(root); err != nil {
			return err
		}
		cli.PrintSystemMessage(cmd.ErrOrStderr(), "Tree is valid.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
