package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/recera/tmcanvas/internal/config"
	"github.com/recera/tmcanvas/pkg/topicmap"
)

func newInitCommand(env *environment) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [topicmap]",
		Short: "Write a default tmcanvas.yaml and an empty topicmap",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "topicmap.yaml"
			if len(args) > 0 {
				name = args[0]
			}
			return runInit(env.dir, name, force, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing configuration")
	return cmd
}

func runInit(dir, name string, force bool, out io.Writer) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
	}

	cfg := config.DefaultConfig()
	cfg.Topicmap = name
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := config.Save(cfg, dir); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s\n", cfgPath)

	tmPath := filepath.Join(dir, name)
	if _, err := os.Stat(tmPath); err == nil {
		return nil
	}
	tm := &topicmap.Topicmap{ID: 1, Name: "untitled"}
	if err := topicmap.SaveFile(tmPath, tm); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s\n", tmPath)
	return nil
}
