package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/recera/tmcanvas/internal/config"
	"github.com/recera/tmcanvas/pkg/canvas"
	"github.com/recera/tmcanvas/pkg/debug"
	"github.com/recera/tmcanvas/pkg/style"
	"github.com/recera/tmcanvas/pkg/topicmap"
)

// environment is what every command needs: the project configuration, a
// logger and the topicmap to work on.
type environment struct {
	dir   string
	level string

	cfg    *config.Config
	logger *slog.Logger
	path   string
	tm     *topicmap.Topicmap
	icons  *style.Tracker
}

// load reads the configuration and the topicmap named by args or by the
// configuration. logTo receives the log; nil means the configured file.
func (e *environment) load(args []string, logTo io.Writer) (_ io.Closer, err error) {
	cfg, err := config.Load(e.dir)
	if err != nil {
		return nil, err
	}
	e.cfg = cfg
	if e.level != "" {
		cfg.Log.Level = e.level
	}
	level, err := debug.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	var closer io.Closer = nopCloser{}
	defer func() {
		if err != nil {
			closer.Close()
		}
	}()

	switch {
	case logTo != nil:
		e.logger = debug.NewLogger(logTo, level)
	case cfg.Log.File != "":
		logger, f, err := debug.OpenFile(e.resolve(cfg.Log.File), level)
		if err != nil {
			return nil, err
		}
		e.logger, closer = logger, f
	default:
		e.logger = debug.Discard()
	}

	switch {
	case len(args) > 0:
		e.path = args[0]
	case cfg.Topicmap != "":
		e.path = e.resolve(cfg.Topicmap)
	default:
		return nil, errors.New("no topicmap given and none configured in " + config.FileName)
	}
	tm, err := topicmap.LoadFile(e.path)
	if err != nil {
		return nil, err
	}
	if err = tm.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", e.path, err)
	}
	e.tm = tm
	e.logger.Debug("topicmap loaded", "path", e.path, "topics", len(tm.Topics), "associations", len(tm.Associations))
	return closer, nil
}

// resolve makes configured paths relative to the project directory.
func (e *environment) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.dir, path)
}

// styles decodes the configured icons. Icons that fail are logged and
// drawn as placeholders.
func (e *environment) styles(ctx context.Context) (*style.Table, error) {
	cfg := *e.cfg
	styles := *cfg.Styles
	styles.IconDir = e.resolve(styles.IconDir)
	cfg.Styles = &styles
	e.icons = style.NewTracker(style.IconSources(cfg.IconSpecs())...)
	return cfg.BuildStyles(ctx, e.icons, e.logger)
}

// canvasOptions prefers the renderer named by the topicmap itself.
func (e *environment) canvasOptions() canvas.Options {
	opts := e.cfg.CanvasOptions(e.logger)
	opts.Icons = e.icons
	if e.tm != nil && e.tm.Type != "" {
		opts.TopicmapType = e.tm.Type
	}
	return opts
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
