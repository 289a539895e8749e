package model

import "fmt"

// CellKind is the content type of a data cell.
type CellKind string

const (
	CellText     CellKind = "text"
	CellCheckbox CellKind = "checkbox"
	CellImage    CellKind = "image"
	CellEmpty    CellKind = "empty"
)

// IsValid reports whether k is a known cell kind. The zero value is treated
// as empty.
func (k CellKind) IsValid() bool {
	switch k {
	case "", CellText, CellCheckbox, CellImage, CellEmpty:
		return true
	}
	return false
}

// CellKey addresses a data cell.
type CellKey struct {
	Row string
	Col string
}

// CellValue is the content of one data cell.
type CellValue struct {
	Row  string   `json:"row" yaml:"row"`
	Col  string   `json:"col" yaml:"col"`
	Kind CellKind `json:"type,omitempty" yaml:"type,omitempty"`
	// Value is the text of a text cell or the image reference of an image cell.
	Value    string `json:"value,omitempty" yaml:"value,omitempty"`
	Checked  bool   `json:"checked,omitempty" yaml:"checked,omitempty"`
	Disabled bool   `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// Key returns the cell's address.
func (c CellValue) Key() CellKey {
	return CellKey{Row: c.Row, Col: c.Col}
}

// IsEmpty reports whether the cell has nothing to draw besides the empty mark.
func (c CellValue) IsEmpty() bool {
	return c.Kind == "" || c.Kind == CellEmpty
}

// Document is a complete matrix definition: both header forests, the cells,
// optional per-header counts and the two corner labels.
type Document struct {
	Matrix `yaml:",inline"`

	Cells     []CellValue    `json:"cells,omitempty" yaml:"cells,omitempty"`
	RowCounts map[string]int `json:"rowCounts,omitempty" yaml:"row_counts,omitempty"`
	ColCounts map[string]int `json:"colCounts,omitempty" yaml:"col_counts,omitempty"`
	// Corner holds the row-axis and column-axis labels drawn in the frozen corner.
	Corner [2]string `json:"corner,omitempty" yaml:"corner,omitempty"`
}

// Validate checks headers and cell kinds. Cells addressing unknown headers are
// allowed; they are simply never drawn.
func (d Document) Validate() error {
	if err := d.Matrix.Validate(); err != nil {
		return err
	}
	for i, c := range d.Cells {
		if !c.Kind.IsValid() {
			return fmt.Errorf("cell %d (%s,%s): unknown type %q", i, c.Row, c.Col, c.Kind)
		}
	}
	return nil
}

// CellIndex returns the cells keyed by address. Later duplicates win.
func (d Document) CellIndex() map[CellKey]CellValue {
	idx := make(map[CellKey]CellValue, len(d.Cells))
	for _, c := range d.Cells {
		idx[c.Key()] = c
	}
	return idx
}
