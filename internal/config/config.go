package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/recera/tmcanvas/pkg/canvas"
	"github.com/recera/tmcanvas/pkg/layout"
	"github.com/recera/tmcanvas/pkg/render"
	"github.com/recera/tmcanvas/pkg/style"
)

// FileName is the configuration file looked up in the project directory.
const FileName = "tmcanvas.yaml"

// Config represents the tmcanvas.yaml configuration
type Config struct {
	// Topicmap is the snapshot file the tools open by default.
	Topicmap string `yaml:"topicmap,omitempty"`

	Canvas *CanvasConfig `yaml:"canvas,omitempty"`
	Grid   *GridConfig   `yaml:"grid,omitempty"`
	Styles *StylesConfig `yaml:"styles,omitempty"`
	Dev    *DevConfig    `yaml:"dev,omitempty"`
	Log    *LogConfig    `yaml:"log,omitempty"`
}

// CanvasConfig contains canvas size and interaction settings
type CanvasConfig struct {
	Width  int `yaml:"width,omitempty"`
	Height int `yaml:"height,omitempty"`

	// Renderer is the topicmap type selecting the renderer.
	Renderer string `yaml:"renderer,omitempty"`

	AllowSelfLoops  bool   `yaml:"allowSelfLoops,omitempty"`
	AssociationType string `yaml:"associationType,omitempty"`
	LabelMaxWidth   int    `yaml:"labelMaxWidth,omitempty"`
	DragThreshold   int    `yaml:"dragThreshold,omitempty"`
}

// GridConfig contains grid placement settings
type GridConfig struct {
	PitchX int `yaml:"pitchX,omitempty"`
	PitchY int `yaml:"pitchY,omitempty"`
	StartX int `yaml:"startX,omitempty"`
	StartY int `yaml:"startY,omitempty"`
}

// StylesConfig maps topic types to icon files and association types to
// colors
type StylesConfig struct {
	// IconDir is the directory icon paths are relative to.
	IconDir      string            `yaml:"iconDir,omitempty"`
	Topics       map[string]string `yaml:"topics,omitempty"`
	Associations map[string]string `yaml:"associations,omitempty"`
}

// DevConfig contains development server configuration
type DevConfig struct {
	Port int    `yaml:"port,omitempty"`
	Host string `yaml:"host,omitempty"`
	// Wasm is the path of the compiled browser client.
	Wasm string `yaml:"wasm,omitempty"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level string `yaml:"level,omitempty"`
	// File receives the log in the terminal UI, which owns stderr.
	File string `yaml:"file,omitempty"`
}

// Load loads configuration from tmcanvas.yaml in dir. A .env file in dir
// is applied to the environment first, then TMCANVAS_* variables override
// file values.
func Load(dir string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	config := &Config{}
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		config = DefaultConfig()
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", FileName, err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse %s: %w", FileName, err)
		}
	}

	if err := applyEnv(config); err != nil {
		return nil, err
	}
	applyDefaults(config)
	return config, config.Validate()
}

// Save saves configuration to tmcanvas.yaml in dir
func Save(config *Config, dir string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, FileName), data, 0o644)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Canvas: &CanvasConfig{
			Width:           800,
			Height:          600,
			Renderer:        render.DefaultType,
			AssociationType: "dm4.core.association",
			LabelMaxWidth:   render.LabelMaxWidth,
			DragThreshold:   3,
		},
		Grid: &GridConfig{
			PitchX: 220,
			PitchY: 80,
			StartX: 50,
			StartY: 50,
		},
		Styles: &StylesConfig{
			IconDir:      ".",
			Topics:       make(map[string]string),
			Associations: make(map[string]string),
		},
		Dev: &DevConfig{
			Port: 5173,
			Host: "localhost",
			Wasm: "public/tmcanvas.wasm",
		},
		Log: &LogConfig{
			Level: "info",
		},
	}
}

// applyDefaults applies default values to missing configuration
func applyDefaults(config *Config) {
	defaults := DefaultConfig()

	if config.Canvas == nil {
		config.Canvas = defaults.Canvas
	} else {
		c, d := config.Canvas, defaults.Canvas
		if c.Width <= 0 {
			c.Width = d.Width
		}
		if c.Height <= 0 {
			c.Height = d.Height
		}
		if c.Renderer == "" {
			c.Renderer = d.Renderer
		}
		if c.AssociationType == "" {
			c.AssociationType = d.AssociationType
		}
		if c.LabelMaxWidth <= 0 {
			c.LabelMaxWidth = d.LabelMaxWidth
		}
		if c.DragThreshold <= 0 {
			c.DragThreshold = d.DragThreshold
		}
	}

	if config.Grid == nil {
		config.Grid = defaults.Grid
	} else {
		g, d := config.Grid, defaults.Grid
		if g.PitchX <= 0 {
			g.PitchX = d.PitchX
		}
		if g.PitchY <= 0 {
			g.PitchY = d.PitchY
		}
		if g.StartX == 0 {
			g.StartX = d.StartX
		}
		if g.StartY == 0 {
			g.StartY = d.StartY
		}
	}

	if config.Styles == nil {
		config.Styles = defaults.Styles
	} else {
		if config.Styles.IconDir == "" {
			config.Styles.IconDir = defaults.Styles.IconDir
		}
		if config.Styles.Topics == nil {
			config.Styles.Topics = make(map[string]string)
		}
		if config.Styles.Associations == nil {
			config.Styles.Associations = make(map[string]string)
		}
	}

	if config.Dev == nil {
		config.Dev = defaults.Dev
	} else {
		if config.Dev.Port == 0 {
			config.Dev.Port = defaults.Dev.Port
		}
		if config.Dev.Host == "" {
			config.Dev.Host = defaults.Dev.Host
		}
		if config.Dev.Wasm == "" {
			config.Dev.Wasm = defaults.Dev.Wasm
		}
	}

	if config.Log == nil {
		config.Log = defaults.Log
	} else if config.Log.Level == "" {
		config.Log.Level = defaults.Log.Level
	}
}

// applyEnv overrides file values with TMCANVAS_* environment variables.
func applyEnv(config *Config) error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := os.LookupEnv(name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = n
		return nil
	}

	if config.Canvas == nil {
		config.Canvas = &CanvasConfig{}
	}
	if config.Dev == nil {
		config.Dev = &DevConfig{}
	}
	if config.Log == nil {
		config.Log = &LogConfig{}
	}

	str("TMCANVAS_TOPICMAP", &config.Topicmap)
	str("TMCANVAS_RENDERER", &config.Canvas.Renderer)
	str("TMCANVAS_DEV_HOST", &config.Dev.Host)
	str("TMCANVAS_LOG_LEVEL", &config.Log.Level)
	str("TMCANVAS_LOG_FILE", &config.Log.File)
	if v, ok := os.LookupEnv("TMCANVAS_ALLOW_SELF_LOOPS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TMCANVAS_ALLOW_SELF_LOOPS: %w", err)
		}
		config.Canvas.AllowSelfLoops = b
	}
	return errors.Join(
		num("TMCANVAS_WIDTH", &config.Canvas.Width),
		num("TMCANVAS_HEIGHT", &config.Canvas.Height),
		num("TMCANVAS_DEV_PORT", &config.Dev.Port),
	)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Dev.Port < 0 || c.Dev.Port > 65535 {
		return fmt.Errorf("dev.port %d out of range", c.Dev.Port)
	}
	for typ, hex := range c.Styles.Associations {
		if _, err := style.ParseColor(hex); err != nil {
			return fmt.Errorf("styles.associations[%s]: %w", typ, err)
		}
	}
	return nil
}

// IconSpecs lists the configured topic icons.
func (c *Config) IconSpecs() []style.IconSpec {
	specs := make([]style.IconSpec, 0, len(c.Styles.Topics))
	for typ, path := range c.Styles.Topics {
		specs = append(specs, style.IconSpec{TypeURI: typ, Path: path})
	}
	return specs
}

// BuildStyles creates the style table: association colors are set at
// once, icons are decoded from the icon directory. Icons that fail to
// decode are registered unloaded and logged; only a cancelled ctx is an
// error.
func (c *Config) BuildStyles(ctx context.Context, tracker *style.Tracker, logger *slog.Logger) (*style.Table, error) {
	table := style.NewTable()
	for typ, hex := range c.Styles.Associations {
		table.SetColor(typ, style.MustParseColor(hex))
	}
	err := style.LoadIcons(ctx, os.DirFS(c.Styles.IconDir), c.IconSpecs(), table, tracker, logger)
	if err != nil && ctx.Err() != nil {
		return nil, err
	}
	return table, nil
}

// CanvasOptions maps the canvas and grid sections onto canvas options.
func (c *Config) CanvasOptions(logger *slog.Logger) canvas.Options {
	return canvas.Options{
		Logger:          logger,
		TopicmapType:    c.Canvas.Renderer,
		Render:          render.Options{Logger: logger, LabelMaxWidth: c.Canvas.LabelMaxWidth},
		AllowSelfLoops:  c.Canvas.AllowSelfLoops,
		AssociationType: c.Canvas.AssociationType,
		DragThreshold:   c.Canvas.DragThreshold,
		Grid: layout.GridOptions{
			PitchX: c.Grid.PitchX,
			PitchY: c.Grid.PitchY,
			StartX: c.Grid.StartX,
			StartY: c.Grid.StartY,
		},
	}
}
