package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	env := &environment{}

	rootCmd := &cobra.Command{
		Use:   "tmcanvas",
		Short: "tmcanvas - view and edit topicmaps",
		Long: `tmcanvas displays a topicmap as a graph of topic icons joined by
association lines. It renders snapshots to PNG, SVG or text, edits them
in the terminal and serves them to a browser canvas with live reload.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&env.dir, "dir", "C", ".", "Project directory holding tmcanvas.yaml")
	rootCmd.PersistentFlags().StringVar(&env.level, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newInitCommand(env))
	rootCmd.AddCommand(newRenderCommand(env))
	rootCmd.AddCommand(newTUICommand(env))
	rootCmd.AddCommand(newServeCommand(env))
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tmcanvas %s\n", rootCmd.Version)
		},
	})

	return rootCmd
}
