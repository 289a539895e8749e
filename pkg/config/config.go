// Package config handles loading and saving pmx configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/pmx/config.yaml
//   - State:   ~/.local/state/pmx/ (collapse state)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/pivotmatrix/pkg/export"
	"github.com/vanderheijden86/pivotmatrix/pkg/header"
	"github.com/vanderheijden86/pivotmatrix/pkg/layout"
	"github.com/vanderheijden86/pivotmatrix/pkg/render"
	"github.com/vanderheijden86/pivotmatrix/pkg/tile"
)

const appName = "pmx"

// MatrixConfig holds cell and header sizing plus the empty-state texts.
type MatrixConfig struct {
	CellSize           int    `yaml:"cell_size,omitempty"`
	RowHeaderSize      int    `yaml:"row_header_size,omitempty"`
	ColHeaderSize      int    `yaml:"col_header_size,omitempty"`
	ShowCount          *bool  `yaml:"show_count,omitempty"`
	EmptyRowHeaderText string `yaml:"empty_row_header_text,omitempty"`
	EmptyColHeaderText string `yaml:"empty_col_header_text,omitempty"`
	EmptyDataText      string `yaml:"empty_data_text,omitempty"`
	HeaderIconSize     int    `yaml:"header_icon_size,omitempty"`
	CellIconSize       int    `yaml:"cell_icon_size,omitempty"`
}

// ViewportConfig describes the widget container. A zero container dimension
// falls back to the window dimension.
type ViewportConfig struct {
	ContainerWidth  int `yaml:"container_width,omitempty"`
	ContainerHeight int `yaml:"container_height,omitempty"`
	WindowWidth     int `yaml:"window_width,omitempty"`
	WindowHeight    int `yaml:"window_height,omitempty"`
}

// ExportConfig controls tiled export.
type ExportConfig struct {
	MaxDimension int           `yaml:"max_dimension,omitempty"`
	SettleDelay  time.Duration `yaml:"settle_delay,omitempty"`
	OutputDir    string        `yaml:"output_dir,omitempty"`
	WriteSVG     *bool         `yaml:"write_svg,omitempty"`
}

// Config is the top-level configuration for pmx.
type Config struct {
	Matrix   MatrixConfig   `yaml:"matrix,omitempty"`
	Viewport ViewportConfig `yaml:"viewport,omitempty"`
	Export   ExportConfig   `yaml:"export,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Matrix: MatrixConfig{
			CellSize:           layout.DefaultCellSize,
			RowHeaderSize:      layout.DefaultRowHeaderSize,
			ColHeaderSize:      layout.DefaultColHeaderSize,
			ShowCount:          boolPtr(true),
			EmptyRowHeaderText: header.DefaultEmptyRowText,
			EmptyColHeaderText: header.DefaultEmptyColText,
			HeaderIconSize:     render.DefaultIconSize,
			CellIconSize:       render.DefaultIconSize,
		},
		Viewport: ViewportConfig{
			WindowWidth:  1280,
			WindowHeight: 800,
		},
		Export: ExportConfig{
			MaxDimension: tile.MaxDimension,
			SettleDelay:  export.DefaultSettleDelay,
			OutputDir:    "pmx-export",
			WriteSVG:     boolPtr(true),
		},
	}
}

// Normalize replaces zero or invalid values with their defaults.
func (c *Config) Normalize() {
	def := DefaultConfig()

	m := &c.Matrix
	if m.CellSize <= 0 {
		m.CellSize = def.Matrix.CellSize
	}
	if m.RowHeaderSize < 0 {
		m.RowHeaderSize = def.Matrix.RowHeaderSize
	}
	if m.ColHeaderSize < 0 {
		m.ColHeaderSize = def.Matrix.ColHeaderSize
	}
	if m.ShowCount == nil {
		m.ShowCount = def.Matrix.ShowCount
	}
	if m.EmptyRowHeaderText == "" {
		m.EmptyRowHeaderText = def.Matrix.EmptyRowHeaderText
	}
	if m.EmptyColHeaderText == "" {
		m.EmptyColHeaderText = def.Matrix.EmptyColHeaderText
	}
	if m.HeaderIconSize <= 0 {
		m.HeaderIconSize = def.Matrix.HeaderIconSize
	}
	if m.CellIconSize <= 0 {
		m.CellIconSize = def.Matrix.CellIconSize
	}

	v := &c.Viewport
	v.ContainerWidth = max(0, v.ContainerWidth)
	v.ContainerHeight = max(0, v.ContainerHeight)
	if v.WindowWidth <= 0 {
		v.WindowWidth = def.Viewport.WindowWidth
	}
	if v.WindowHeight <= 0 {
		v.WindowHeight = def.Viewport.WindowHeight
	}

	e := &c.Export
	if e.MaxDimension <= 0 || e.MaxDimension > tile.MaxDimension {
		e.MaxDimension = def.Export.MaxDimension
	}
	if e.SettleDelay <= 0 {
		e.SettleDelay = def.Export.SettleDelay
	}
	if e.OutputDir == "" {
		e.OutputDir = def.Export.OutputDir
	}
	e.OutputDir = expandHome(e.OutputDir)
	if e.WriteSVG == nil {
		e.WriteSVG = def.Export.WriteSVG
	}
}

// LayoutOptions returns the sizing options for layout.Compute.
func (c Config) LayoutOptions() layout.Options {
	return layout.Options{
		CellSize:      c.Matrix.CellSize,
		RowHeaderSize: c.Matrix.RowHeaderSize,
		ColHeaderSize: c.Matrix.ColHeaderSize,
		ShowCount:     c.Matrix.ShowCount == nil || *c.Matrix.ShowCount,
	}
}

// AxesOptions returns the empty-state titles for header.FlattenAxes.
func (c Config) AxesOptions() header.AxesOptions {
	return header.AxesOptions{
		EmptyRowText: c.Matrix.EmptyRowHeaderText,
		EmptyColText: c.Matrix.EmptyColHeaderText,
	}
}

// Container and Window return the viewport sizes.
func (c Config) Container() layout.Size {
	return layout.Size{Width: c.Viewport.ContainerWidth, Height: c.Viewport.ContainerHeight}
}

func (c Config) Window() layout.Size {
	return layout.Size{Width: c.Viewport.WindowWidth, Height: c.Viewport.WindowHeight}
}

// ApplyRender copies the drawing settings onto opts.
func (c Config) ApplyRender(opts render.Options) render.Options {
	opts.EmptyDataText = c.Matrix.EmptyDataText
	opts.HeaderIconSize = c.Matrix.HeaderIconSize
	opts.CellIconSize = c.Matrix.CellIconSize
	return opts
}

// ExportOptions returns the capture options. An unset settle delay leaves
// the exporter default in place.
func (c Config) ExportOptions() export.Options {
	return export.Options{
		MaxDimension: c.Export.MaxDimension,
		SettleDelay:  max(0, c.Export.SettleDelay),
	}
}

// ConfigDir returns the XDG config directory for pmx.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// StateDir returns the XDG state directory for pmx.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", appName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

func boolPtr(b bool) *bool { return &b }

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
