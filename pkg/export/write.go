package export

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	svg "github.com/ajstarks/svgo"
	json "github.com/goccy/go-json"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/pivotmatrix/pkg/debug"
	"github.com/vanderheijden86/pivotmatrix/pkg/metrics"
	"github.com/vanderheijden86/pivotmatrix/pkg/model"
	"github.com/vanderheijden86/pivotmatrix/pkg/version"
)

// ManifestFile and PreviewFile are written next to the tile images.
const (
	ManifestFile = "manifest.json"
	PreviewFile  = "preview.svg"
)

// ManifestTile describes one written tile.
type ManifestTile struct {
	File   string `json:"file"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Blank  bool   `json:"blank,omitempty"`
}

// Manifest lets a reader reassemble the tiles of one export.
type Manifest struct {
	Generator string         `json:"generator"`
	Width     int            `json:"width"`
	Height    int            `json:"height"`
	Tiles     []ManifestTile `json:"tiles"`
}

// WriteOptions controls WriteTiles.
type WriteOptions struct {
	// Prefix names the tile files: <prefix>-000.png. Defaults to "tile".
	Prefix string
	// SVG also writes an SVG sheet that places every tile at its position.
	SVG bool
	// Concurrency bounds parallel PNG encoders; zero means GOMAXPROCS.
	Concurrency int
}

// CompositeBounds returns the union of all tile rectangles.
func CompositeBounds(infos []model.ImageInfo) image.Rectangle {
	var r image.Rectangle
	for _, info := range infos {
		r = r.Union(info.Bounds())
	}
	return r
}

// WriteTiles encodes every tile as PNG into dir and writes the manifest
// (and optionally the SVG sheet). Capture is already finished at this point,
// so tiles are encoded in parallel.
func WriteTiles(ctx context.Context, dir string, infos []model.ImageInfo, opts WriteOptions) (*Manifest, error) {
	if opts.Prefix == "" {
		opts.Prefix = "tile"
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	start := time.Now()
	defer func() { debug.LogTiming("export.WriteTiles", time.Since(start)) }()

	bounds := CompositeBounds(infos)
	manifest := &Manifest{
		Generator: "pmx " + version.Version,
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		Tiles:     make([]ManifestTile, len(infos)),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, info := range infos {
		name := fmt.Sprintf("%s-%03d.png", opts.Prefix, i)
		manifest.Tiles[i] = ManifestTile{
			File:   name,
			X:      info.X,
			Y:      info.Y,
			Width:  info.Width,
			Height: info.Height,
			Blank:  info.Blank,
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := WritePNG(filepath.Join(dir, name), info.Data); err != nil {
				return err
			}
			metrics.TilesWritten.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0o644); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	if opts.SVG {
		if err := writePreview(filepath.Join(dir, PreviewFile), manifest); err != nil {
			return nil, err
		}
	}
	if err := pruneTiles(dir, opts.Prefix, manifest); err != nil {
		return nil, err
	}
	return manifest, nil
}

func writePreview(path string, m *Manifest) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create preview: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := WriteSVG(bw, m); err != nil {
		f.Close()
		return fmt.Errorf("write preview: %w", err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write preview: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close preview: %w", err)
	}
	return nil
}

// pruneTiles removes <prefix>-<n>.png files in dir that m does not list, left
// over from an earlier export of a larger matrix into the same directory.
func pruneTiles(dir, prefix string, m *Manifest) error {
	keep := make(map[string]bool, len(m.Tiles))
	for _, t := range m.Tiles {
		keep[t.File] = true
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("list output dir: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || keep[name] || !isTileName(name, prefix) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove stale tile: %w", err)
		}
		debug.Log("export: removed stale tile %s", name)
	}
	return nil
}

// isTileName reports whether name has the form <prefix>-<digits>.png.
func isTileName(name, prefix string) bool {
	n, ok := strings.CutPrefix(name, prefix+"-")
	if !ok {
		return false
	}
	n, ok = strings.CutSuffix(n, ".png")
	if !ok || n == "" {
		return false
	}
	for _, r := range n {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// WritePNG encodes img to path with fast compression.
func WritePNG(path string, img image.Image) error {
	defer metrics.Timer(metrics.ImageEncode)()

	if img == nil {
		return fmt.Errorf("write %s: no image data", filepath.Base(path))
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// ReadManifest loads a manifest written by WriteTiles.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// WriteSVG writes an SVG sheet referencing each tile image at its composite
// position, so the full matrix can be viewed without stitching pixels. It
// returns the first error from w.
func WriteSVG(w io.Writer, m *Manifest) error {
	ew := &errWriter{w: w}
	canvas := svg.New(ew)
	canvas.Start(m.Width, m.Height)
	canvas.Title(m.Generator)
	canvas.Gid("tiles")
	for _, t := range m.Tiles {
		canvas.Image(t.X, t.Y, t.Width, t.Height, t.File)
	}
	canvas.Gend()
	canvas.End()
	return ew.err
}

// errWriter keeps the first write error; svgo does not report them.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}

// Stitch reassembles tiles into a single image. It is meant for matrices
// small enough to hold in memory; maxPixels guards against the rest.
func Stitch(infos []model.ImageInfo, maxPixels int64) (*image.RGBA, error) {
	bounds := CompositeBounds(infos)
	if bounds.Empty() {
		return nil, fmt.Errorf("stitch: no tiles")
	}
	if int64(bounds.Dx())*int64(bounds.Dy()) > maxPixels {
		return nil, fmt.Errorf("stitch: %dx%d exceeds %d pixels", bounds.Dx(), bounds.Dy(), maxPixels)
	}
	out := image.NewRGBA(bounds)
	for _, info := range infos {
		if info.Data == nil {
			continue
		}
		draw.Draw(out, info.Bounds(), info.Data, info.Data.Bounds().Min, draw.Src)
	}
	return out, nil
}
