package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vanderheijden86/pivotmatrix/pkg/export"
	"github.com/vanderheijden86/pivotmatrix/pkg/render"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Matrix.CellSize != 40 || cfg.Matrix.RowHeaderSize != 120 || cfg.Matrix.ColHeaderSize != 120 {
		t.Errorf("unexpected sizing: %+v", cfg.Matrix)
	}
	if cfg.Matrix.ShowCount == nil || !*cfg.Matrix.ShowCount {
		t.Error("expected show_count default true")
	}
	if cfg.Viewport.WindowWidth != 1280 || cfg.Viewport.WindowHeight != 800 {
		t.Errorf("unexpected window: %+v", cfg.Viewport)
	}
	if cfg.Export.MaxDimension != 15000 || cfg.Export.SettleDelay != 10*time.Millisecond {
		t.Errorf("unexpected export: %+v", cfg.Export)
	}
	if cfg.Export.OutputDir != "pmx-export" || !*cfg.Export.WriteSVG {
		t.Errorf("unexpected output: %+v", cfg.Export)
	}
}

func TestLoadFrom_NonExistent(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.Matrix.CellSize != 40 {
		t.Errorf("expected default config, got cell size %d", cfg.Matrix.CellSize)
	}
}

func TestLoadFrom_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
matrix:
  cell_size: 32
  show_count: false
  empty_data_text: "no data"
viewport:
  container_width: 900
export:
  max_dimension: 8000
  settle_delay: 25ms
  output_dir: ~/exports
  write_svg: false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	opts := cfg.LayoutOptions()
	if opts.CellSize != 32 || opts.ShowCount || opts.RowHeaderSize != 120 {
		t.Errorf("layout options = %+v", opts)
	}
	if c := cfg.Container(); c.Width != 900 || c.Height != 0 {
		t.Errorf("container = %+v", c)
	}
	if w := cfg.Window(); w.Width != 1280 {
		t.Errorf("window = %+v", w)
	}
	if cfg.Export.SettleDelay != 25*time.Millisecond {
		t.Errorf("settle delay = %v", cfg.Export.SettleDelay)
	}
	if *cfg.Export.WriteSVG {
		t.Error("write_svg should be false")
	}
	home, _ := os.UserHomeDir()
	if cfg.Export.OutputDir != filepath.Join(home, "exports") {
		t.Errorf("output dir = %q", cfg.Export.OutputDir)
	}
	eo := cfg.ExportOptions()
	if eo.MaxDimension != 8000 || eo.SettleDelay != 25*time.Millisecond {
		t.Errorf("export options = %+v", eo)
	}
	if ro := cfg.ApplyRender(render.Options{}); ro.EmptyDataText != "no data" || ro.CellIconSize != 12 {
		t.Errorf("render options = %+v", ro)
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("matrix: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if cfg.Matrix.CellSize != 40 {
		t.Error("invalid config should still return defaults")
	}
}

func TestNormalize(t *testing.T) {
	cfg := Config{
		Matrix:   MatrixConfig{CellSize: -3, RowHeaderSize: -1},
		Viewport: ViewportConfig{ContainerWidth: -10},
		Export:   ExportConfig{MaxDimension: 99999, SettleDelay: -time.Second},
	}
	cfg.Normalize()

	if cfg.Matrix.CellSize != 40 || cfg.Matrix.RowHeaderSize != 120 || cfg.Matrix.ColHeaderSize != 0 {
		t.Errorf("matrix = %+v", cfg.Matrix)
	}
	if cfg.Viewport.ContainerWidth != 0 || cfg.Viewport.WindowHeight != 800 {
		t.Errorf("viewport = %+v", cfg.Viewport)
	}
	if cfg.Export.MaxDimension != 15000 || cfg.Export.SettleDelay != 10*time.Millisecond {
		t.Errorf("export = %+v", cfg.Export)
	}
	if cfg.Export.WriteSVG == nil || cfg.Matrix.ShowCount == nil {
		t.Error("pointer flags should get defaults")
	}

	zero := Config{}
	zero.Normalize()
	if eo := zero.ExportOptions(); eo.SettleDelay != 10*time.Millisecond {
		t.Errorf("normalized zero config settle = %v", eo.SettleDelay)
	}
}

func TestExportOptions_ZeroSettleDelayKeepsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("export:\n  settle_delay: 0s\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if eo := cfg.ExportOptions(); eo.SettleDelay != export.DefaultSettleDelay {
		t.Errorf("settle_delay: 0 gave %v, want %v", eo.SettleDelay, export.DefaultSettleDelay)
	}

	// An unnormalized config hands zero to the exporter, which applies its
	// own default; it never asks for no wait.
	if eo := (Config{}).ExportOptions(); eo.SettleDelay < 0 {
		t.Errorf("zero config settle = %v", eo.SettleDelay)
	}
}

func TestSaveTo_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Matrix.CellSize = 24
	cfg.Export.SettleDelay = 50 * time.Millisecond
	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if loaded.Matrix.CellSize != 24 || loaded.Export.SettleDelay != 50*time.Millisecond {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}

func TestXDGDirs(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
	t.Setenv("XDG_STATE_HOME", "/tmp/xdg-state")

	if got := ConfigPath(); got != "/tmp/xdg-config/pmx/config.yaml" {
		t.Errorf("ConfigPath = %q", got)
	}
	if got := StateDir(); got != "/tmp/xdg-state/pmx" {
		t.Errorf("StateDir = %q", got)
	}
}
