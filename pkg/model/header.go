package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingKey   = errors.New("header key is required")
	ErrDuplicateKey = errors.New("duplicate header key")
)

// Axis identifies which side of the matrix a header forest belongs to.
type Axis string

const (
	AxisRow Axis = "row"
	AxisCol Axis = "col"
)

// IsValid reports whether the axis is one of the known values.
func (a Axis) IsValid() bool {
	return a == AxisRow || a == AxisCol
}

// HeaderNode is one node of a row or column header forest.
// Keys must be unique across a forest; they are the stable identity used by
// collapse state and by the cell-content callbacks.
type HeaderNode struct {
	Key      string       `json:"key" yaml:"key"`
	Title    string       `json:"title,omitempty" yaml:"title,omitempty"`
	Children []HeaderNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// IsLeaf reports whether the node has no children.
func (n HeaderNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// HeaderMeta is the display metadata recorded for every visited header node.
type HeaderMeta struct {
	// ParentKeys is the "-"-joined chain of ancestor keys, empty at depth 0.
	ParentKeys string `json:"parentKeys"`
	Title      string `json:"title"`
	// ChildrenCount is reported even when the node is collapsed so the UI can
	// still draw a toggle.
	ChildrenCount int  `json:"childrenCount"`
	IsCollapsed   bool `json:"isCollapsed,omitempty"`
}

// Depth returns the nesting level derived from ParentKeys.
func (m HeaderMeta) Depth() int {
	if m.ParentKeys == "" {
		return 0
	}
	return strings.Count(m.ParentKeys, ParentKeySeparator) + 1
}

// ParentKeySeparator joins ancestor keys in HeaderMeta.ParentKeys.
const ParentKeySeparator = "-"

// CollapseMap maps a header key to its collapsed flag. It is owned by the
// caller; flattening only reads it.
type CollapseMap map[string]bool

// Matrix is the pair of header forests that define a pivot matrix.
type Matrix struct {
	Rows []HeaderNode `json:"rows" yaml:"rows"`
	Cols []HeaderNode `json:"cols" yaml:"cols"`
}

// CountNodes returns the total number of nodes in both forests.
func (m Matrix) CountNodes() int {
	return countNodes(m.Rows) + countNodes(m.Cols)
}

func countNodes(nodes []HeaderNode) int {
	n := len(nodes)
	for _, node := range nodes {
		n += countNodes(node.Children)
	}
	return n
}

// FindNode searches a forest depth first for key.
func FindNode(nodes []HeaderNode, key string) (HeaderNode, bool) {
	for _, n := range nodes {
		if n.Key == key {
			return n, true
		}
		if found, ok := FindNode(n.Children, key); ok {
			return found, true
		}
	}
	return HeaderNode{}, false
}

// Validate checks that every key is non-empty and unique within its forest.
func (m Matrix) Validate() error {
	if err := validateForest(m.Rows); err != nil {
		return fmt.Errorf("rows: %w", err)
	}
	if err := validateForest(m.Cols); err != nil {
		return fmt.Errorf("cols: %w", err)
	}
	return nil
}

func validateForest(nodes []HeaderNode) error {
	seen := make(map[string]bool)
	stack := make([]HeaderNode, 0, len(nodes))
	stack = append(stack, nodes...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if strings.TrimSpace(n.Key) == "" {
			return fmt.Errorf("header %q: %w", n.Title, ErrMissingKey)
		}
		if seen[n.Key] {
			return fmt.Errorf("%w %q", ErrDuplicateKey, n.Key)
		}
		seen[n.Key] = true
		stack = append(stack, n.Children...)
	}
	return nil
}
