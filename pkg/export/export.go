// Package export captures a matrix that is larger than any single image as a
// sequence of composite tiles. A Surface scrolls and captures its viewport;
// the Exporter walks a tile.Graph, crops every capture and stitches it into
// the owning frame.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"golang.org/x/image/draw"

	"github.com/vanderheijden86/pivotmatrix/pkg/debug"
	"github.com/vanderheijden86/pivotmatrix/pkg/metrics"
	"github.com/vanderheijden86/pivotmatrix/pkg/model"
	"github.com/vanderheijden86/pivotmatrix/pkg/tile"
)

// DefaultSettleDelay is how long the exporter waits after a scroll before it
// captures, when the surface scrolls and captures in separate calls.
const DefaultSettleDelay = 10 * time.Millisecond

// ErrNoSurface is returned when Export is called without a surface.
var ErrNoSurface = errors.New("export: no capture surface")

// Surface is the rendering collaborator. Sizes are queried once at export
// start. ScrollAndCapture must return an image of the surface's current
// contents after the scroll offset (content coordinates) has been applied.
type Surface interface {
	CaptureSize() (width, height int)
	CornerSize() (width, height int)
	ContentSize() (width, height int)
	ScrollAndCapture(ctx context.Context, x, y int) (image.Image, error)
}

// Scroller is implemented by surfaces that scroll and capture in separate
// calls. The exporter then waits Options.SettleDelay between the two.
type Scroller interface {
	ScrollTo(ctx context.Context, x, y int) error
	Capture(ctx context.Context) (image.Image, error)
}

// Options configures an export.
type Options struct {
	// MaxDimension caps tile width and height; zero means tile.MaxDimension.
	MaxDimension int
	// SettleDelay applies only to Scroller surfaces; zero means DefaultSettleDelay,
	// negative disables the wait.
	SettleDelay time.Duration
	// MaxCanvasPixels bounds a single frame allocation; zero means
	// MaxDimension squared.
	MaxCanvasPixels int64
	// OnFrame is called after each completed frame. Incomplete frames are
	// never reported.
	OnFrame func(done, total int, info model.ImageInfo)
}

func (o Options) settleDelay() time.Duration {
	if o.SettleDelay == 0 {
		return DefaultSettleDelay
	}
	return o.SettleDelay
}

func (o Options) maxCanvasPixels() int64 {
	if o.MaxCanvasPixels > 0 {
		return o.MaxCanvasPixels
	}
	d := int64(o.MaxDimension)
	if d <= 0 {
		d = tile.MaxDimension
	}
	return d * d
}

// CaptureError reports a failed scroll or capture for one step of a frame.
type CaptureError struct {
	Frame   int
	Step    int
	ScrollX int
	ScrollY int
	Err     error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture frame %d step %d at (%d,%d): %v", e.Frame, e.Step, e.ScrollX, e.ScrollY, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// Exporter drives the capture loop for one surface. Frames are processed
// strictly one after another because every frame shares the surface's
// single scroll position.
type Exporter struct {
	surface Surface
	opts    Options
}

// New returns an Exporter for surface.
func New(surface Surface, opts Options) *Exporter {
	return &Exporter{surface: surface, opts: opts}
}

// Export is shorthand for New(surface, opts).Export(ctx).
func Export(ctx context.Context, surface Surface, opts Options) ([]model.ImageInfo, error) {
	return New(surface, opts).Export(ctx)
}

// Geometry queries the surface and returns the tiling input for it.
func (e *Exporter) Geometry() tile.Geometry {
	sw, sh := e.surface.CaptureSize()
	cw, ch := e.surface.CornerSize()
	w, h := e.surface.ContentSize()
	return tile.Geometry{
		ContentWidth:  w,
		ContentHeight: h,
		SurfaceWidth:  sw,
		SurfaceHeight: sh,
		CornerWidth:   cw,
		CornerHeight:  ch,
		MaxDimension:  e.opts.MaxDimension,
	}
}

// Export captures every frame and returns the tiles in frame order. The
// result is all or nothing: any capture error or context cancellation
// returns no tiles.
func (e *Exporter) Export(ctx context.Context) ([]model.ImageInfo, error) {
	if e.surface == nil {
		return nil, ErrNoSurface
	}
	defer metrics.Timer(metrics.Export)()
	defer debug.LogEnterExit("export.Export")()

	graph, err := tile.Build(e.Geometry())
	if err != nil {
		return nil, fmt.Errorf("build tile graph: %w", err)
	}

	out := make([]model.ImageInfo, 0, graph.Len())
	for f := range graph.All() {
		info, err := e.captureFrame(ctx, graph, f)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
		if e.opts.OnFrame != nil {
			e.opts.OnFrame(len(out), graph.Len(), info)
		}
	}
	return out, nil
}

func (e *Exporter) captureFrame(ctx context.Context, graph *tile.Graph, f tile.Frame) (model.ImageInfo, error) {
	info := model.ImageInfo{X: f.X, Y: f.Y, Width: f.Width, Height: f.Height}

	canvas, err := newCanvas(f.Width, f.Height, e.opts.maxCanvasPixels())
	if err != nil {
		// Degrade to a filled frame so the loop always terminates.
		state := f.Filled()
		debug.Log("export: frame %d canvas unavailable (%v), marking filled at %+v", f.Index, err, state)
		info.Data = blankImage{w: f.Width, h: f.Height}
		info.Blank = true
		metrics.BlankFrames.Add(1)
		metrics.FramesExported.Add(1)
		return info, nil
	}

	state := tile.State{}
	phase := tile.PhasePending
	for step := 0; ; step++ {
		if err := ctx.Err(); err != nil {
			return model.ImageInfo{}, err
		}

		plan := graph.Plan(f, state)
		phase = tile.PhaseCapturing
		img, err := e.capture(ctx, plan.ScrollX, plan.ScrollY)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return model.ImageInfo{}, ctxErr
			}
			return model.ImageInfo{}, &CaptureError{Frame: f.Index, Step: step, ScrollX: plan.ScrollX, ScrollY: plan.ScrollY, Err: err}
		}

		phase = tile.PhaseStitching
		composite(canvas, img, plan)
		state = tile.Advance(f, state, plan)

		if f.IsComplete(state) {
			phase = tile.PhaseComplete
			debug.Log("export: frame %d %s after %d steps", f.Index, phase, step+1)
			break
		}
		phase = tile.PhaseNextTile
		debug.Log("export: frame %d step %d scroll=(%d,%d) src=%v dst=%v -> %s",
			f.Index, step, plan.ScrollX, plan.ScrollY, plan.Src, plan.Dst, phase)
	}

	info.Data = canvas
	metrics.FramesExported.Add(1)
	return info, nil
}

// capture scrolls the surface and returns its current frame.
func (e *Exporter) capture(ctx context.Context, x, y int) (image.Image, error) {
	defer metrics.Timer(metrics.FrameCapture)()
	metrics.Captures.Add(1)

	s, ok := e.surface.(Scroller)
	if !ok {
		return e.surface.ScrollAndCapture(ctx, x, y)
	}
	if err := s.ScrollTo(ctx, x, y); err != nil {
		return nil, err
	}
	if err := settle(ctx, e.opts.settleDelay()); err != nil {
		return nil, err
	}
	return s.Capture(ctx)
}

func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// composite copies the planned crop of src into dst. src may have a non-zero
// origin; crops falling outside src are clipped by draw.
func composite(dst draw.Image, src image.Image, plan tile.Step) {
	defer metrics.Timer(metrics.FrameComposite)()

	if plan.Src.Empty() {
		return
	}
	r := image.Rectangle{Min: plan.Dst, Max: plan.Dst.Add(plan.Src.Size())}
	draw.Draw(dst, r, src, src.Bounds().Min.Add(plan.Src.Min), draw.Src)
}
