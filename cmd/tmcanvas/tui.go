package main

import (
	"github.com/spf13/cobra"

	"github.com/recera/tmcanvas/internal/tui"
)

func newTUICommand(env *environment) *cobra.Command {
	var topicType string

	cmd := &cobra.Command{
		Use:   "tui [topicmap]",
		Short: "Edit a topicmap in the terminal",
		Long: `Opens the topicmap on a terminal canvas. Drag topics with the mouse,
shift-drag from a topic to associate it, and press s to save the snapshot.
Logs go to the configured log file since the screen is in use.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			closer, err := env.load(args, nil)
			if err != nil {
				return err
			}
			defer closer.Close()

			styles, err := env.styles(cmd.Context())
			if err != nil {
				return err
			}
			return tui.Run(cmd.Context(), tui.Options{
				Topicmap:  env.tm,
				Path:      env.path,
				Styles:    styles,
				Canvas:    env.canvasOptions(),
				Logger:    env.logger,
				TopicType: topicType,
			})
		},
	}
	cmd.Flags().StringVar(&topicType, "topic-type", "", "Type of topics created with the n key")
	return cmd
}
