// Package render draws a pivot matrix off-screen. A Surface behaves like the
// live table widget: it has a fixed size, a frozen corner, and a scroll
// position over the data area, and every Capture returns what the widget
// would currently show.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"git.sr.ht/~sbinet/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/pivotmatrix/pkg/debug"
	"github.com/vanderheijden86/pivotmatrix/pkg/header"
	"github.com/vanderheijden86/pivotmatrix/pkg/layout"
	"github.com/vanderheijden86/pivotmatrix/pkg/metrics"
	"github.com/vanderheijden86/pivotmatrix/pkg/model"
)

// ErrEmptyTable is returned by New for a layout without a drawable table.
var ErrEmptyTable = errors.New("render: table has no area")

// CellFunc supplies the content of a data cell.
type CellFunc func(rowKey, colKey string) model.CellValue

// CountFunc supplies the number shown in a header's count strip. Headers
// reporting ok == false get an empty count cell.
type CountFunc func(axis model.Axis, key string) (n int, ok bool)

// Options controls what a Surface draws.
type Options struct {
	Cells  CellFunc
	Count  CountFunc
	Corner [2]string
	// EmptyDataText replaces the diagonal cross drawn in the cells of an
	// empty axis.
	EmptyDataText  string
	HeaderIconSize int
	CellIconSize   int
	CheckboxColor  color.Color
}

// DefaultIconSize is used for header and cell icons when unset.
const DefaultIconSize = 12

func (o Options) normalized() Options {
	if o.HeaderIconSize <= 0 {
		o.HeaderIconSize = DefaultIconSize
	}
	if o.CellIconSize <= 0 {
		o.CellIconSize = DefaultIconSize
	}
	if o.CheckboxColor == nil {
		o.CheckboxColor = colorCheckbox
	}
	return o
}

// FromDocument returns Options drawing the cells, counts and corner labels of doc.
func FromDocument(doc model.Document) Options {
	cells := doc.CellIndex()
	return Options{
		Cells: func(rowKey, colKey string) model.CellValue {
			return cells[model.CellKey{Row: rowKey, Col: colKey}]
		},
		Count: func(axis model.Axis, key string) (int, bool) {
			counts := doc.RowCounts
			if axis == model.AxisCol {
				counts = doc.ColCounts
			}
			n, ok := counts[key]
			return n, ok
		},
		Corner: doc.Corner,
	}
}

// Surface is a headless matrix view. It is safe for concurrent use, though
// captures are only meaningful in the order they were scrolled.
type Surface struct {
	axes   header.Axes
	layout layout.Layout
	opts   Options

	mu      sync.Mutex
	scrollX int
	scrollY int
}

// New returns a Surface for the flattened axes, sized by l.
func New(axes header.Axes, l layout.Layout, opts Options) (*Surface, error) {
	if l.Table.IsZero() {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptyTable, l.Table.Width, l.Table.Height)
	}
	if l.ColumnWidth <= 0 || l.RowHeight <= 0 {
		return nil, fmt.Errorf("render: cell size %dx%d", l.ColumnWidth, l.RowHeight)
	}
	return &Surface{axes: axes, layout: l, opts: opts.normalized()}, nil
}

// CaptureSize is the live table size.
func (s *Surface) CaptureSize() (int, int) {
	return s.layout.Table.Width, s.layout.Table.Height
}

// CornerSize is the frozen header region.
func (s *Surface) CornerSize() (int, int) {
	return s.layout.Corner.Width, s.layout.Corner.Height
}

// ContentSize is the full data area.
func (s *Surface) ContentSize() (int, int) {
	return s.layout.Content.Width, s.layout.Content.Height
}

// Scroll returns the current scroll offset in content coordinates.
func (s *Surface) Scroll() (x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrollX, s.scrollY
}

// ScrollTo moves the viewport. Offsets are clamped to the content like a
// scroll container would.
func (s *Surface) ScrollTo(ctx context.Context, x, y int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	vp := s.layout.Viewport()
	maxX := max(0, s.layout.Content.Width-vp.Width)
	maxY := max(0, s.layout.Content.Height-vp.Height)

	cx, cy := min(max(0, x), maxX), min(max(0, y), maxY)
	debug.LogIf(cx != x || cy != y, "render: scroll (%d,%d) clamped to (%d,%d)", x, y, cx, cy)

	s.mu.Lock()
	s.scrollX, s.scrollY = cx, cy
	s.mu.Unlock()
	return nil
}

// Capture draws the table at its current scroll position.
func (s *Surface) Capture(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	x, y := s.Scroll()
	return s.draw(x, y), nil
}

// ScrollAndCapture scrolls and captures in one call.
func (s *Surface) ScrollAndCapture(ctx context.Context, x, y int) (image.Image, error) {
	if err := s.ScrollTo(ctx, x, y); err != nil {
		return nil, err
	}
	return s.Capture(ctx)
}

// Full draws the whole matrix in one image without any scrolling. It is only
// sensible for matrices that fit in memory; large ones go through export.
func (s *Surface) Full() image.Image {
	l := s.layout
	l.Table = l.Composite()
	full := &Surface{axes: s.axes, layout: l, opts: s.opts}
	return full.draw(0, 0)
}

func (s *Surface) draw(scrollX, scrollY int) image.Image {
	defer metrics.Timer(metrics.SurfaceRender)()

	l := s.layout
	w, h := l.Table.Width, l.Table.Height
	cw, ch := l.Corner.Width, l.Corner.Height

	dc := gg.NewContext(w, h)
	dc.SetColor(colorBackground)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	c0, c1 := visibleRange(scrollX, w-cw, l.ColumnWidth, l.Cols)
	r0, r1 := visibleRange(scrollY, h-ch, l.RowHeight, l.Rows)

	clipRect(dc, cw, ch, w-cw, h-ch)
	for c := c0; c < c1; c++ {
		x := float64(cw + c*l.ColumnWidth - scrollX)
		col := s.axes.Cols.Order[c]
		for r := r0; r < r1; r++ {
			y := float64(ch + r*l.RowHeight - scrollY)
			cell := header.Cell{RowKey: s.axes.Rows.Order[r].Key, ColKey: col.Key}
			s.drawCell(dc, cell, x, y, float64(l.ColumnWidth), float64(l.RowHeight))
		}
	}
	dc.ResetClip()

	clipRect(dc, cw, 0, w-cw, ch)
	for c := c0; c < c1; c++ {
		x := float64(cw + c*l.ColumnWidth - scrollX)
		s.drawColHeader(dc, s.axes.Cols.Order[c], x)
	}
	dc.ResetClip()

	clipRect(dc, 0, ch, cw, h-ch)
	for r := r0; r < r1; r++ {
		y := float64(ch + r*l.RowHeight - scrollY)
		s.drawRowHeader(dc, s.axes.Rows.Order[r], y)
	}
	dc.ResetClip()

	clipRect(dc, 0, 0, cw, ch)
	s.drawCorner(dc)
	dc.ResetClip()
	return dc.Image()
}

// visibleRange returns the half-open index range of n cells of size px that
// intersect a viewport of extent px starting at scroll.
func visibleRange(scroll, extent, size, n int) (lo, hi int) {
	if size <= 0 || n <= 0 || extent <= 0 {
		return 0, 0
	}
	lo = min(n, max(0, scroll/size))
	hi = min(n, (scroll+extent+size-1)/size)
	return lo, hi
}

// clipRect restricts drawing to one region. Pop keeps the mask in gg, so
// callers release it with ResetClip.
func clipRect(dc *gg.Context, x, y, w, h int) {
	dc.DrawRectangle(float64(x), float64(y), float64(w), float64(h))
	dc.Clip()
}
