package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/recera/tmcanvas/pkg/export"
)

func newRenderCommand(env *environment) *cobra.Command {
	var (
		output        string
		format        string
		width, height int
	)

	cmd := &cobra.Command{
		Use:   "render [topicmap]",
		Short: "Render a topicmap to PNG, SVG or text",
		Long: `Renders the visible topics and associations of a topicmap snapshot.
The format follows the output file extension unless --format is given.
Use "-o -" to write to stdout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			closer, err := env.load(args, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closer.Close()

			f, err := resolveFormat(format, output)
			if err != nil {
				return err
			}
			return runRender(cmd, env, f, output, width, height)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "topicmap.png", "Output file, - for stdout")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format (png, svg, txt)")
	cmd.Flags().IntVar(&width, "width", 0, "Width in pixels (default from config)")
	cmd.Flags().IntVar(&height, "height", 0, "Height in pixels (default from config)")
	return cmd
}

func resolveFormat(format, output string) (export.Format, error) {
	if format != "" {
		return export.ParseFormat(format)
	}
	if output == "-" {
		return export.Text, nil
	}
	return export.FormatOf(output)
}

func runRender(cmd *cobra.Command, env *environment, f export.Format, output string, width, height int) error {
	styles, err := env.styles(cmd.Context())
	if err != nil {
		return err
	}
	opts := export.Options{
		Width:  env.cfg.Canvas.Width,
		Height: env.cfg.Canvas.Height,
		Styles: styles,
		Canvas: env.canvasOptions(),
	}
	if width > 0 {
		opts.Width = width
	}
	if height > 0 {
		opts.Height = height
	}

	if output == "-" {
		if err := export.Render(cmd.OutOrStdout(), f, env.tm, opts); err != nil {
			return fmt.Errorf("render %s: %w", env.path, err)
		}
		return nil
	}

	file, err := os.Create(output)
	if err != nil {
		return err
	}
	defer file.Close()
	bw := bufio.NewWriter(file)
	if err := export.Render(bw, f, env.tm, opts); err != nil {
		return fmt.Errorf("render %s: %w", env.path, err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	env.logger.Info("rendered", "topicmap", env.path, "format", f, "output", output)
	return nil
}
