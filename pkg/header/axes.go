package header

import "github.com/vanderheijden86/pivotmatrix/pkg/model"

// Default empty-state titles.
const (
	DefaultEmptyRowText = "Row headers are empty"
	DefaultEmptyColText = "Column headers are empty"
)

// AxesOptions configures the placeholder titles for empty axes.
type AxesOptions struct {
	EmptyRowText string
	EmptyColText string
}

// Axes holds both flattened axes of a matrix.
type Axes struct {
	Rows Flattened
	Cols Flattened
}

// Empty reports whether neither axis has real headers.
func (a Axes) Empty() bool {
	return a.Rows.Placeholder && a.Cols.Placeholder
}

// FlattenAxes flattens the row and column forests of m. An axis that flattens
// to nothing is replaced by its placeholder so downstream layout always has
// at least one row and one column.
func FlattenAxes(m model.Matrix, rowCollapsed, colCollapsed model.CollapseMap, opts AxesOptions) Axes {
	if opts.EmptyRowText == "" {
		opts.EmptyRowText = DefaultEmptyRowText
	}
	if opts.EmptyColText == "" {
		opts.EmptyColText = DefaultEmptyColText
	}

	axes := Axes{
		Rows: Flatten(m.Rows, rowCollapsed),
		Cols: Flatten(m.Cols, colCollapsed),
	}
	if axes.Rows.Len() == 0 {
		axes.Rows = Placeholder(opts.EmptyRowText)
	}
	if axes.Cols.Len() == 0 {
		axes.Cols = Placeholder(opts.EmptyColText)
	}
	return axes
}

// Cell addresses one data cell of the matrix.
type Cell struct {
	RowKey string `json:"rowKey"`
	ColKey string `json:"colKey"`
}

// IsEmpty reports whether either side of the cell is the empty-state sentinel.
func (c Cell) IsEmpty() bool {
	return IsEmptyKey(c.RowKey) || IsEmptyKey(c.ColKey)
}

// Cells enumerates the data cells column by column, rows inner.
func (a Axes) Cells() []Cell {
	cells := make([]Cell, 0, a.Rows.Len()*a.Cols.Len())
	for _, col := range a.Cols.Order {
		for _, row := range a.Rows.Order {
			cells = append(cells, Cell{RowKey: row.Key, ColKey: col.Key})
		}
	}
	return cells
}
