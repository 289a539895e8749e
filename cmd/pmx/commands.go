package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/pivotmatrix/pkg/config"
	"github.com/vanderheijden86/pivotmatrix/pkg/debug"
	"github.com/vanderheijden86/pivotmatrix/pkg/export"
	"github.com/vanderheijden86/pivotmatrix/pkg/header"
	"github.com/vanderheijden86/pivotmatrix/pkg/hooks"
	"github.com/vanderheijden86/pivotmatrix/pkg/layout"
	"github.com/vanderheijden86/pivotmatrix/pkg/loader"
	"github.com/vanderheijden86/pivotmatrix/pkg/metrics"
	"github.com/vanderheijden86/pivotmatrix/pkg/model"
	"github.com/vanderheijden86/pivotmatrix/pkg/render"
	"github.com/vanderheijden86/pivotmatrix/pkg/tile"
	"github.com/vanderheijden86/pivotmatrix/pkg/watcher"
)

// StitchedFile is the single-image output of export --stitch.
const StitchedFile = "matrix.png"

// maxStitchPixels keeps --stitch from allocating absurd images.
const maxStitchPixels = 1 << 28

type flatHeader struct {
	Key           string `json:"key"`
	Title         string `json:"title"`
	ParentKeys    string `json:"parentKeys,omitempty"`
	Depth         int    `json:"depth"`
	ChildrenCount int    `json:"childrenCount"`
	IsCollapsed   bool   `json:"isCollapsed,omitempty"`
	Placeholder   bool   `json:"placeholder,omitempty"`
}

type flattenOutput struct {
	Rows  []flatHeader  `json:"rows"`
	Cols  []flatHeader  `json:"cols"`
	Cells []header.Cell `json:"cells,omitempty"`
}

func flatHeaders(f header.Flattened) []flatHeader {
	out := make([]flatHeader, 0, f.Len())
	for _, node := range f.Order {
		meta, _ := f.Lookup(node.Key)
		out = append(out, flatHeader{
			Key:           node.Key,
			Title:         meta.Title,
			ParentKeys:    meta.ParentKeys,
			Depth:         meta.Depth(),
			ChildrenCount: meta.ChildrenCount,
			IsCollapsed:   meta.IsCollapsed,
			Placeholder:   f.Placeholder,
		})
	}
	return out
}

func newFlattenCmd(g *globalFlags) *cobra.Command {
	var pretty, cells bool
	cmd := &cobra.Command{
		Use:   "flatten",
		Short: "Print the visible row and column headers in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.open()
			if err != nil {
				return err
			}
			out := flattenOutput{
				Rows: flatHeaders(s.axes.Rows),
				Cols: flatHeaders(s.axes.Cols),
			}
			if cells {
				out.Cells = s.axes.Cells()
			}
			return writeJSON(cmd.OutOrStdout(), out, pretty)
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent JSON output")
	cmd.Flags().BoolVar(&cells, "cells", false, "Also list data cell addresses, column by column")
	return cmd
}

type layoutOutput struct {
	Layout    layout.Layout `json:"layout"`
	Composite layout.Size   `json:"composite"`
	Viewport  layout.Size   `json:"viewport"`
	Tiles     *tile.Graph   `json:"tiles,omitempty"`
}

func newLayoutCmd(g *globalFlags) *cobra.Command {
	var pretty, tiles bool
	var maxDimension int
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print table, corner and content sizes, optionally with the export tiling",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.open()
			if err != nil {
				return err
			}
			out := layoutOutput{
				Layout:    s.layout,
				Composite: s.layout.Composite(),
				Viewport:  s.layout.Viewport(),
			}
			if tiles {
				surface, err := s.surface()
				if err != nil {
					return err
				}
				opts := s.cfg.ExportOptions()
				if maxDimension > 0 {
					opts.MaxDimension = maxDimension
				}
				graph, err := tile.Build(export.New(surface, opts).Geometry())
				if err != nil {
					return err
				}
				out.Tiles = graph
			}
			return writeJSON(cmd.OutOrStdout(), out, pretty)
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent JSON output")
	cmd.Flags().BoolVar(&tiles, "tiles", false, "Include the tile frames an export would capture")
	cmd.Flags().IntVar(&maxDimension, "max-dimension", 0, "Override the per-tile pixel cap")
	return cmd
}

func newToggleCmd(g *globalFlags) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "toggle <row|col> <key>",
		Short: "Collapse or expand one header and remember it",
		Args: func(cmd *cobra.Command, args []string) error {
			if reset {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.collapseStatePath()
			if reset {
				if err := header.SaveCollapseState(path, header.NewCollapseState()); err != nil {
					return err
				}
				summaryLine(cmd.OutOrStdout(), "reset", "all headers expanded")
				return nil
			}

			axis, err := parseAxis(args[0])
			if err != nil {
				return err
			}
			key := args[1]
			if matrixPath, err := g.resolveMatrixPath(); err == nil {
				if err := checkToggleKey(matrixPath, axis, key); err != nil {
					return err
				}
			}

			state, err := header.LoadCollapseState(path)
			if err != nil {
				return err
			}
			collapsed := state.Toggle(axis, key)
			if err := header.SaveCollapseState(path, state); err != nil {
				return err
			}
			word := "expanded"
			if collapsed {
				word = "collapsed"
			}
			summaryLine(cmd.OutOrStdout(), word, fmt.Sprintf("%s %s", axis, key))
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Expand every header")
	return cmd
}

// checkToggleKey rejects keys that are not headers with children in the
// matrix; collapsing a leaf would be a silent no-op.
func checkToggleKey(path string, axis model.Axis, key string) error {
	doc, err := loader.Load(path)
	if err != nil {
		return err
	}
	forest := doc.Rows
	if axis == model.AxisCol {
		forest = doc.Cols
	}
	node, ok := model.FindNode(forest, key)
	if !ok {
		return fmt.Errorf("no %s header %q in %s", axis, key, filepath.Base(path))
	}
	if len(node.Children) == 0 {
		return fmt.Errorf("%s header %q has no children to collapse", axis, key)
	}
	return nil
}

type exportFlags struct {
	out          string
	prefix       string
	svg          bool
	stitch       bool
	sqlite       bool
	watch        bool
	metrics      bool
	quiet        bool
	noHooks      bool
	maxDimension int
}

func newExportCmd(g *globalFlags) *cobra.Command {
	f := &exportFlags{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Capture the whole matrix as tiled PNG images",
		Long: "export scrolls an off-screen rendering of the matrix across its content and\n" +
			"captures tiles of at most --max-dimension pixels, each keeping the frozen\n" +
			"headers where they belong. Tiles, a manifest and an SVG sheet are written\n" +
			"to --out.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if f.metrics {
				metrics.SetEnabled(true)
			}
			cfg := g.loadConfig()
			if !cmd.Flags().Changed("out") {
				f.out = cfg.Export.OutputDir
			}
			if !cmd.Flags().Changed("svg") {
				f.svg = cfg.Export.WriteSVG == nil || *cfg.Export.WriteSVG
			}
			path, err := g.resolveMatrixPath()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if f.watch {
				return watchExport(ctx, w, g, f, cfg, path)
			}
			return runExport(ctx, w, g, f, cfg, path)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.out, "out", "o", "", "Output directory (default: export.output_dir from config)")
	fl.StringVar(&f.prefix, "prefix", "tile", "File name prefix for tiles")
	fl.BoolVar(&f.svg, "svg", true, "Write an SVG sheet placing every tile")
	fl.BoolVar(&f.stitch, "stitch", false, "Also write the whole matrix as one PNG")
	fl.BoolVar(&f.sqlite, "sqlite", false, "Also write a SQLite index of headers, cells and tiles")
	fl.BoolVar(&f.watch, "watch", false, "Re-export whenever the matrix file changes")
	fl.BoolVar(&f.metrics, "metrics", false, "Print timing metrics as JSON after the export")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "Only print errors")
	fl.BoolVar(&f.noHooks, "no-hooks", false, "Skip .pmx/hooks.yaml next to the matrix file")
	fl.IntVar(&f.maxDimension, "max-dimension", 0, "Override the per-tile pixel cap")
	return cmd
}

func (s *session) surface() (*render.Surface, error) {
	return render.New(s.axes, s.layout, s.cfg.ApplyRender(render.FromDocument(s.doc)))
}

func runExport(ctx context.Context, w io.Writer, g *globalFlags, f *exportFlags, cfg config.Config, path string) error {
	start := time.Now()
	s, err := g.openPath(cfg, path)
	if err != nil {
		return err
	}
	surface, err := s.surface()
	if err != nil {
		return err
	}

	opts := s.cfg.ExportOptions()
	if f.maxDimension > 0 {
		opts.MaxDimension = f.maxDimension
	}
	progress := !f.quiet && isTerminal(os.Stderr)
	opts.OnFrame = func(done, total int, info model.ImageInfo) {
		if progress {
			fmt.Fprintf(os.Stderr, "\rcapturing %d/%d", done, total)
		}
		debug.LogIf(info.Blank, "export: frame %d is blank", done-1)
	}

	executor, err := prepareHooks(f, path, opts, surface, s.layout.Composite())
	if err != nil {
		return err
	}
	if executor != nil {
		if err := executor.RunPreExport(ctx); err != nil {
			return fmt.Errorf("export cancelled: %w", err)
		}
	}

	infos, err := export.Export(ctx, surface, opts)
	if progress {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return fmt.Errorf("export %s: %w", filepath.Base(path), err)
	}

	manifest, err := export.WriteTiles(ctx, f.out, infos, export.WriteOptions{Prefix: f.prefix, SVG: f.svg})
	if err != nil {
		return err
	}
	if f.stitch {
		img, err := export.Stitch(infos, maxStitchPixels)
		if err != nil {
			return err
		}
		if err := export.WritePNG(filepath.Join(f.out, StitchedFile), img); err != nil {
			return err
		}
	}

	if f.sqlite {
		if err := export.WriteIndex(ctx, filepath.Join(f.out, export.IndexFile), s.axes, s.doc, manifest); err != nil {
			return err
		}
	}

	blank := 0
	for _, t := range manifest.Tiles {
		if t.Blank {
			blank++
		}
	}
	if blank > 0 {
		log.Printf("warning: %d of %d tiles could not be drawn and are blank", blank, len(manifest.Tiles))
	}

	if executor != nil {
		if err := executor.RunPostExport(ctx); err != nil {
			log.Printf("warning: %v", err)
		}
		if !f.quiet {
			fmt.Fprint(w, executor.Summary())
		}
	}

	if !f.quiet {
		successLine(w, "exported", fmt.Sprintf("%d tiles, %dx%d px -> %s (%s)",
			len(manifest.Tiles), manifest.Width, manifest.Height, f.out, time.Since(start).Round(time.Millisecond)))
	}
	if f.metrics {
		return writeJSON(w, metrics.Snapshot(), false)
	}
	return nil
}

// prepareHooks loads the hooks next to the matrix file and hands them the
// tiling the export is about to capture.
func prepareHooks(f *exportFlags, path string, opts export.Options, surface *render.Surface, composite layout.Size) (*hooks.Executor, error) {
	if f.noHooks {
		return nil, nil
	}
	graph, err := tile.Build(export.New(surface, opts).Geometry())
	if err != nil {
		return nil, err
	}
	outDir, err := filepath.Abs(f.out)
	if err != nil {
		outDir = f.out
	}
	return hooks.Prepare(filepath.Dir(path), hooks.ExportContext{
		MatrixPath: path,
		OutputDir:  outDir,
		TileCount:  len(graph.Frames),
		Width:      composite.Width,
		Height:     composite.Height,
		Timestamp:  time.Now(),
	}, false)
}

func watchExport(ctx context.Context, w io.Writer, g *globalFlags, f *exportFlags, cfg config.Config, path string) error {
	fw, err := watcher.New(path, watcher.Options{
		OnError: func(err error) { log.Printf("warning: watch %s: %v", path, err) },
	})
	if err != nil {
		return err
	}
	// The watcher's baseline predates the first export, so edits made while
	// it runs are picked up afterwards.
	if err := runExport(ctx, w, g, f, cfg, path); err != nil {
		return err
	}
	if !f.quiet {
		mode := fw.Mode().String()
		if fw.Mode() == watcher.ModePoll {
			mode = fmt.Sprintf("polling every %s", fw.PollInterval())
		}
		summaryLine(w, "watching", fmt.Sprintf("%s (%s, %s)", fw.Path(), mode, fw.FilesystemType()))
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return fw.Run(ctx) })
	eg.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-fw.Changed():
				if err := runExport(ctx, w, g, f, cfg, path); err != nil {
					log.Printf("warning: %v", err)
				}
			}
		}
	})
	return eg.Wait()
}
