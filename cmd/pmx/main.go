// Package main is the pmx command line: it flattens pivot matrix headers,
// reports table layout, toggles collapsed headers and exports the matrix as
// tiled PNG images.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/pivotmatrix/pkg/config"
	"github.com/vanderheijden86/pivotmatrix/pkg/debug"
	"github.com/vanderheijden86/pivotmatrix/pkg/header"
	"github.com/vanderheijden86/pivotmatrix/pkg/layout"
	"github.com/vanderheijden86/pivotmatrix/pkg/loader"
	"github.com/vanderheijden86/pivotmatrix/pkg/model"
	"github.com/vanderheijden86/pivotmatrix/pkg/version"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	matrixPath string
	stateDir   string
	debug      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:          "pmx",
		Short:        "Flatten, lay out and export pivot matrices",
		Long:         "pmx works on pivot matrix definitions (YAML or JSON): nested row and column\nheader forests plus cell values. It can export the whole matrix as tiled PNGs.",
		Version:      version.String(),
		SilenceUsage: true,
	}
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if g.debug {
			debug.SetEnabled(true)
		}
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "Config file (default: $XDG_CONFIG_HOME/pmx/config.yaml)")
	pf.StringVarP(&g.matrixPath, "matrix", "m", "", "Matrix file (default: $PMX_MATRIX or matrix.yaml in the current directory)")
	pf.StringVar(&g.stateDir, "state-dir", "", "Directory holding the collapse state (default: $XDG_STATE_HOME/pmx)")
	pf.BoolVar(&g.debug, "debug", false, "Log debug output to stderr")

	root.AddCommand(
		newFlattenCmd(g),
		newLayoutCmd(g),
		newToggleCmd(g),
		newExportCmd(g),
	)
	return root
}

// loadConfig resolves the config file. A broken file is reported and the
// defaults are used so a typo never blocks an export.
func (g *globalFlags) loadConfig() config.Config {
	var (
		cfg config.Config
		err error
	)
	if g.configPath != "" {
		cfg, err = config.LoadFrom(g.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Printf("warning: %v; using defaults", err)
	}
	debug.Dump("cli.config", cfg)
	return cfg
}

func (g *globalFlags) resolveMatrixPath() (string, error) {
	if g.matrixPath != "" {
		return g.matrixPath, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return loader.FindMatrixPath(cwd)
}

func (g *globalFlags) collapseStatePath() string {
	dir := g.stateDir
	if dir == "" {
		dir = config.StateDir()
	}
	return header.CollapseStatePath(dir)
}

func (g *globalFlags) loadCollapseState() (*header.CollapseState, error) {
	return header.LoadCollapseState(g.collapseStatePath())
}

// session is everything derived from one read of the matrix file.
type session struct {
	cfg    config.Config
	path   string
	doc    model.Document
	state  *header.CollapseState
	axes   header.Axes
	layout layout.Layout
}

func (g *globalFlags) open() (*session, error) {
	cfg := g.loadConfig()
	path, err := g.resolveMatrixPath()
	if err != nil {
		return nil, err
	}
	return g.openPath(cfg, path)
}

func (g *globalFlags) openPath(cfg config.Config, path string) (*session, error) {
	debug.Log("cli: loading matrix %s", path)
	doc, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	state, err := g.loadCollapseState()
	if err != nil {
		return nil, err
	}
	axes := header.FlattenAxes(doc.Matrix, state.Rows, state.Cols, cfg.AxesOptions())
	l := layout.Compute(axes, cfg.Container(), cfg.Window(), cfg.LayoutOptions())
	debug.Log("layout: table %dx%d, composite %dx%d", l.Table.Width, l.Table.Height, l.Composite().Width, l.Composite().Height)
	return &session{cfg: cfg, path: path, doc: doc, state: state, axes: axes, layout: l}, nil
}

func parseAxis(s string) (model.Axis, error) {
	switch s {
	case "row", "rows":
		return model.AxisRow, nil
	case "col", "cols", "column", "columns":
		return model.AxisCol, nil
	}
	return "", fmt.Errorf("invalid axis %q (must be row or col)", s)
}
