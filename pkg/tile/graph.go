// Package tile splits a matrix that is too large for one image into a grid of
// frames, and plans the viewport captures that fill each frame.
//
// Coordinates come in three spaces:
//   - composite: the full matrix image, frozen corner included, origin top-left.
//   - content:   the scrollable data area behind the frozen headers; a scroll
//     offset is a content coordinate.
//   - capture:   one image returned by the capture surface; the frozen corner
//     occupies [0,CornerWidth) x [0,CornerHeight) and the viewport follows.
package tile

import (
	"errors"
	"fmt"
	"iter"

	"github.com/vanderheijden86/pivotmatrix/pkg/debug"
	"github.com/vanderheijden86/pivotmatrix/pkg/metrics"
)

// MaxDimension is the largest width or height of a single output image.
const MaxDimension = 15000

var (
	ErrNegativeGeometry = errors.New("tile geometry has a negative dimension")
	ErrSurfaceTooSmall  = errors.New("capture surface is not larger than its frozen corner")
)

// Geometry is everything the tiler needs to know about the matrix and the
// surface that captures it.
type Geometry struct {
	ContentWidth  int `json:"contentWidth"`
	ContentHeight int `json:"contentHeight"`
	SurfaceWidth  int `json:"surfaceWidth"`
	SurfaceHeight int `json:"surfaceHeight"`
	CornerWidth   int `json:"cornerWidth"`
	CornerHeight  int `json:"cornerHeight"`
	// MaxDimension caps any frame's width and height; zero means MaxDimension.
	MaxDimension int `json:"maxDimension,omitempty"`
}

// Validate reports geometry the tiler cannot work with.
func (g Geometry) Validate() error {
	if g.ContentWidth < 0 || g.ContentHeight < 0 || g.CornerWidth < 0 || g.CornerHeight < 0 ||
		g.SurfaceWidth < 0 || g.SurfaceHeight < 0 || g.MaxDimension < 0 {
		return ErrNegativeGeometry
	}
	if g.SurfaceWidth <= g.CornerWidth || g.SurfaceHeight <= g.CornerHeight {
		return fmt.Errorf("%w: surface %dx%d, corner %dx%d", ErrSurfaceTooSmall,
			g.SurfaceWidth, g.SurfaceHeight, g.CornerWidth, g.CornerHeight)
	}
	return nil
}

func (g Geometry) maxDimension() int {
	if g.MaxDimension <= 0 {
		return MaxDimension
	}
	return g.MaxDimension
}

// Viewport returns the scrollable part of one capture.
func (g Geometry) Viewport() (width, height int) {
	return g.SurfaceWidth - g.CornerWidth, g.SurfaceHeight - g.CornerHeight
}

// MaxScroll returns the largest scroll offsets that keep the viewport inside
// the content.
func (g Geometry) MaxScroll() (x, y int) {
	vw, vh := g.Viewport()
	return max(0, g.ContentWidth-vw), max(0, g.ContentHeight-vh)
}

// Composite returns the size of the stitched matrix image.
func (g Geometry) Composite() (width, height int) {
	return g.CornerWidth + g.ContentWidth, g.CornerHeight + g.ContentHeight
}

// Frame is one output image of an export.
type Frame struct {
	Index int `json:"index"`
	Col   int `json:"col"`
	Row   int `json:"row"`

	// X, Y, Width and Height place the frame's backing image in composite space.
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`

	// ContentX and ContentY are the content coordinates of the first data
	// pixel the frame holds; ContentWidth and ContentHeight exclude the corner.
	ContentX      int `json:"contentX"`
	ContentY      int `json:"contentY"`
	ContentWidth  int `json:"contentWidth"`
	ContentHeight int `json:"contentHeight"`

	// IsFirstCol and IsFirstRow frames carry the frozen corner strip.
	IsFirstCol bool `json:"isFirstCol"`
	IsFirstRow bool `json:"isFirstRow"`

	// Next and Prev link frames in capture order; -1 ends the list.
	Next int `json:"next"`
	Prev int `json:"prev"`
}

// Graph owns the frames of one export. Frames are stored contiguously and
// linked by index; capture order is ascending index.
type Graph struct {
	Geometry      Geometry `json:"geometry"`
	Frames        []Frame  `json:"frames"`
	Columns       int      `json:"columns"`
	Rows          int      `json:"rows"`
	PerTileWidth  int      `json:"perTileWidth"`
	PerTileHeight int      `json:"perTileHeight"`
}

// tileCount returns how many tiles of at most limit pixels cover extent.
func tileCount(extent, limit int) int {
	limit = max(1, limit)
	n := (extent + limit - 1) / limit
	return max(1, n)
}

// boundary returns the content offset where tile k of n starts. Every pixel
// offset is floored the same way so neighbouring tiles meet exactly.
func boundary(k, n, extent int) int {
	return k * extent / n
}

// Build lays out frames column by column, rows inner. Tiles along an axis are
// evenly divided rather than greedily filled, and only the first tile along
// each axis carries the corner.
func Build(g Geometry) (*Graph, error) {
	defer metrics.Timer(metrics.TileBuild)()

	if err := g.Validate(); err != nil {
		return nil, err
	}

	maxDim := g.maxDimension()
	cols := tileCount(g.ContentWidth, maxDim-g.CornerWidth)
	rows := tileCount(g.ContentHeight, maxDim-g.CornerHeight)

	graph := &Graph{
		Geometry:      g,
		Frames:        make([]Frame, 0, cols*rows),
		Columns:       cols,
		Rows:          rows,
		PerTileWidth:  g.ContentWidth / cols,
		PerTileHeight: g.ContentHeight / rows,
	}

	for c := 0; c < cols; c++ {
		x0 := boundary(c, cols, g.ContentWidth)
		x1 := boundary(c+1, cols, g.ContentWidth)
		for r := 0; r < rows; r++ {
			y0 := boundary(r, rows, g.ContentHeight)
			y1 := boundary(r+1, rows, g.ContentHeight)

			f := Frame{
				Index:         len(graph.Frames),
				Col:           c,
				Row:           r,
				X:             x0,
				Y:             y0,
				Width:         x1 - x0,
				Height:        y1 - y0,
				ContentX:      x0,
				ContentY:      y0,
				ContentWidth:  x1 - x0,
				ContentHeight: y1 - y0,
				IsFirstCol:    c == 0,
				IsFirstRow:    r == 0,
				Prev:          len(graph.Frames) - 1,
				Next:          -1,
			}
			if f.IsFirstCol {
				f.Width += g.CornerWidth
			} else {
				f.X += g.CornerWidth
			}
			if f.IsFirstRow {
				f.Height += g.CornerHeight
			} else {
				f.Y += g.CornerHeight
			}
			if f.Prev >= 0 {
				graph.Frames[f.Prev].Next = f.Index
			}
			graph.Frames = append(graph.Frames, f)
		}
	}

	debug.Log("tile: %dx%d content in %d cols x %d rows (per tile %dx%d)",
		g.ContentWidth, g.ContentHeight, cols, rows, graph.PerTileWidth, graph.PerTileHeight)
	return graph, nil
}

// Len returns the number of frames.
func (g *Graph) Len() int {
	return len(g.Frames)
}

// Head returns the index of the first frame, or -1 for an empty graph.
func (g *Graph) Head() int {
	if len(g.Frames) == 0 {
		return -1
	}
	return 0
}

// All yields frames by following the Next links from Head.
func (g *Graph) All() iter.Seq[Frame] {
	return func(yield func(Frame) bool) {
		for i := g.Head(); i >= 0; i = g.Frames[i].Next {
			if !yield(g.Frames[i]) {
				return
			}
		}
	}
}
