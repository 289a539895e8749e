// Package header turns nested row/column header forests into the flat,
// ordered header lists a pivot matrix is laid out from.
package header

import (
	"github.com/vanderheijden86/pivotmatrix/pkg/debug"
	"github.com/vanderheijden86/pivotmatrix/pkg/metrics"
	"github.com/vanderheijden86/pivotmatrix/pkg/model"
)

// EmptyKey is the key of the placeholder entry used for an axis with no headers.
const EmptyKey = "$$empty$$"

// Flattened is the visible, pre-ordered header list of one axis.
type Flattened struct {
	Order []model.HeaderNode
	Meta  map[string]model.HeaderMeta
	// Placeholder is true when Order holds only the empty-state entry.
	Placeholder bool
}

// Len returns the number of entries in Order, placeholder included.
func (f Flattened) Len() int {
	return len(f.Order)
}

// Count returns the number of real header entries. A placeholder axis counts
// as zero so layout code sizes it from the container.
func (f Flattened) Count() int {
	if f.Placeholder {
		return 0
	}
	return len(f.Order)
}

// Keys returns the keys of Order in traversal order.
func (f Flattened) Keys() []string {
	keys := make([]string, len(f.Order))
	for i, n := range f.Order {
		keys[i] = n.Key
	}
	return keys
}

// Lookup returns the metadata for key.
func (f Flattened) Lookup(key string) (model.HeaderMeta, bool) {
	m, ok := f.Meta[key]
	return m, ok
}

type workItem struct {
	node    *model.HeaderNode
	parents string
}

// Flatten walks roots depth-first, root before children and siblings left to
// right. Children of a node whose key is true in collapsed are never visited;
// the node itself is still emitted with its ChildrenCount. collapsed may be nil
// and is never written.
func Flatten(roots []model.HeaderNode, collapsed model.CollapseMap) Flattened {
	defer metrics.Timer(metrics.HeaderFlatten)()

	out := Flattened{
		Order: make([]model.HeaderNode, 0, len(roots)),
		Meta:  make(map[string]model.HeaderMeta, len(roots)),
	}

	// The work list is a stack; pushing in reverse keeps the front element on top.
	stack := make([]workItem, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, workItem{node: &roots[i]})
	}

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := item.node

		out.Order = append(out.Order, *n)
		isCollapsed := collapsed[n.Key]
		out.Meta[n.Key] = model.HeaderMeta{
			ParentKeys:    item.parents,
			Title:         n.Title,
			ChildrenCount: len(n.Children),
			IsCollapsed:   isCollapsed && len(n.Children) > 0,
		}

		if len(n.Children) == 0 || isCollapsed {
			continue
		}
		chain := n.Key
		if item.parents != "" {
			chain = item.parents + model.ParentKeySeparator + n.Key
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, workItem{node: &n.Children[i], parents: chain})
		}
	}

	debug.LogIf(len(roots) > 0, "header: flattened %d roots into %d entries", len(roots), len(out.Order))
	return out
}

// Placeholder returns the single empty-state entry used for an empty axis.
func Placeholder(title string) Flattened {
	return Flattened{
		Order:       []model.HeaderNode{{Key: EmptyKey, Title: title}},
		Meta:        map[string]model.HeaderMeta{EmptyKey: {Title: title}},
		Placeholder: true,
	}
}

// IsEmptyKey reports whether key is the empty-state sentinel.
func IsEmptyKey(key string) bool {
	return key == EmptyKey
}
