package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/pkg/observability"
)

// settings is loaded once before any subcommand runs.
var settings cli.Settings

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Arbor edits decision trees and compiles them to diagrams",
	Long: `Arbor keeps decision trees (questions, answers and links) in a store,
edits them by path and compiles them to Mermaid flowcharts or Graphviz digraphs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		debug, _ := cmd.Flags().GetBool("debug")
		s, err := cli.LoadSettings(path, debug)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("key") {
			s.Config.Key, _ = cmd.Flags().GetString("key")
		}
		settings = s
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "arbor.yaml", "Configuration file")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringP("key", "k", "", "Storage key of the tree (default from configuration)")
}

func openWorkspace(metrics *observability.Metrics) (*arbor.Workspace, error) {
	return cli.OpenWorkspace(settings, metrics)
}
