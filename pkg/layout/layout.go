// Package layout computes the pixel geometry of a pivot matrix: the size of
// the live table, its frozen corner, and the scrollable content behind it.
package layout

import (
	"github.com/vanderheijden86/pivotmatrix/pkg/header"
)

// HeaderPadding is subtracted from the wrapper height when a matrix without
// row headers stretches its single data row.
const HeaderPadding = 8

// Defaults match the widget's out-of-the-box sizing.
const (
	DefaultCellSize      = 40
	DefaultRowHeaderSize = 120
	DefaultColHeaderSize = 120
)

// Size is a pixel extent.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// IsZero reports whether either dimension is non-positive.
func (s Size) IsZero() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Options configures cell and header sizing.
type Options struct {
	CellSize      int
	RowHeaderSize int
	ColHeaderSize int
	ShowCount     bool
}

// DefaultOptions returns the stock sizing with the count row/column shown.
func DefaultOptions() Options {
	return Options{
		CellSize:      DefaultCellSize,
		RowHeaderSize: DefaultRowHeaderSize,
		ColHeaderSize: DefaultColHeaderSize,
		ShowCount:     true,
	}
}

func (o Options) normalized() Options {
	if o.CellSize <= 0 {
		o.CellSize = DefaultCellSize
	}
	if o.RowHeaderSize < 0 {
		o.RowHeaderSize = 0
	}
	if o.ColHeaderSize < 0 {
		o.ColHeaderSize = 0
	}
	return o
}

// TableSize returns the rendered extent of one table dimension:
//
//	min(wrapper, headerSize + (count + showCount) * cellSize)
//
// where wrapper is the container size, or fallback when the container reports
// zero. With count <= 0 the wrapper size is returned unchanged.
func TableSize(containerSize, fallbackSize, count, cellSize int, showCount bool, headerSize int) int {
	wrapper := containerSize
	if wrapper <= 0 {
		wrapper = fallbackSize
	}
	if count <= 0 {
		return wrapper
	}
	extra := 0
	if showCount {
		extra = 1
	}
	calc := headerSize + (count+extra)*cellSize
	if calc > wrapper {
		return wrapper
	}
	return calc
}

// EmptyRowCellHeight is the height of the single stretched data row shown
// when the matrix has no row headers.
func EmptyRowCellHeight(containerHeight, fallbackHeight int, opts Options) int {
	opts = opts.normalized()
	wrapper := containerHeight
	if wrapper <= 0 {
		wrapper = fallbackHeight
	}
	h := wrapper - opts.ColHeaderSize - HeaderPadding
	if opts.ShowCount {
		h -= opts.CellSize
	}
	if h < 1 {
		return 1
	}
	return h
}

// Layout is the computed geometry of a matrix.
type Layout struct {
	// Table is the live table size and the size of the capture surface.
	Table Size `json:"table"`
	// Corner is the frozen region: row header (plus count column) by column
	// header (plus count row).
	Corner Size `json:"corner"`
	// Content is the full scrollable data area behind the frozen headers.
	Content Size `json:"content"`

	// RowHeaderSize and ColHeaderSize exclude the count strip; CountSize is
	// zero when counts are hidden.
	RowHeaderSize int `json:"rowHeaderSize"`
	ColHeaderSize int `json:"colHeaderSize"`
	CountSize     int `json:"countSize"`

	ColumnWidth int `json:"columnWidth"`
	RowHeight   int `json:"rowHeight"`
	Rows        int `json:"rows"`
	Cols        int `json:"cols"`
}

// Composite returns the size of the full, unclipped matrix image.
func (l Layout) Composite() Size {
	return Size{
		Width:  l.Corner.Width + l.Content.Width,
		Height: l.Corner.Height + l.Content.Height,
	}
}

// Viewport returns the scrollable part of the table.
func (l Layout) Viewport() Size {
	return Size{
		Width:  l.Table.Width - l.Corner.Width,
		Height: l.Table.Height - l.Corner.Height,
	}
}

// Compute sizes a matrix from its flattened axes. Width is governed by the
// column count and height by the row count; container dimensions of zero fall
// back to the window.
func Compute(axes header.Axes, container, window Size, opts Options) Layout {
	opts = opts.normalized()
	countCell := 0
	if opts.ShowCount {
		countCell = opts.CellSize
	}

	cols := axes.Cols.Count()
	rows := axes.Rows.Count()

	l := Layout{
		Table: Size{
			Width:  TableSize(container.Width, window.Width, cols, opts.CellSize, opts.ShowCount, opts.RowHeaderSize),
			Height: TableSize(container.Height, window.Height, rows, opts.CellSize, opts.ShowCount, opts.ColHeaderSize),
		},
		Corner: Size{
			Width:  opts.RowHeaderSize + countCell,
			Height: opts.ColHeaderSize + countCell,
		},
		RowHeaderSize: opts.RowHeaderSize,
		ColHeaderSize: opts.ColHeaderSize,
		CountSize:     countCell,
		ColumnWidth:   opts.CellSize,
		RowHeight:     opts.CellSize,
		Rows:          axes.Rows.Len(),
		Cols:          axes.Cols.Len(),
	}
	if axes.Rows.Placeholder {
		l.RowHeight = EmptyRowCellHeight(container.Height, window.Height, opts)
	}
	l.Content = Size{
		Width:  l.Cols * l.ColumnWidth,
		Height: l.Rows * l.RowHeight,
	}
	return l
}
