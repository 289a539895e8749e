// Package testutil provides matrix fixture generators and assertions shared
// by package tests. All generators produce deterministic output for
// reproducible tests.
package testutil

import (
	"fmt"
	"math/rand"

	"github.com/vanderheijden86/pivotmatrix/pkg/model"
)

// GeneratorConfig controls fixture generation.
type GeneratorConfig struct {
	Seed      int64  // Random seed for determinism (0 = 42)
	RowPrefix string // Key prefix for row headers (default: "r")
	ColPrefix string // Key prefix for column headers (default: "c")
	// CellKinds is the distribution cells are drawn from; nil means text only.
	CellKinds []model.CellKind
	// Fill is the fraction of data cells that get a value.
	Fill float64
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:      42,
		RowPrefix: "r",
		ColPrefix: "c",
		CellKinds: []model.CellKind{model.CellText, model.CellCheckbox, model.CellImage, model.CellEmpty},
		Fill:      0.5,
	}
}

// Generator creates header forests and documents.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	if cfg.RowPrefix == "" {
		cfg.RowPrefix = "r"
	}
	if cfg.ColPrefix == "" {
		cfg.ColPrefix = "c"
	}
	if len(cfg.CellKinds) == 0 {
		cfg.CellKinds = []model.CellKind{model.CellText}
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// NewDefault creates a generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// Flat returns n leaf headers keyed prefix-0 .. prefix-(n-1).
func Flat(prefix string, n int) []model.HeaderNode {
	nodes := make([]model.HeaderNode, n)
	for i := range nodes {
		key := fmt.Sprintf("%s-%d", prefix, i)
		nodes[i] = model.HeaderNode{Key: key, Title: fmt.Sprintf("%s %d", prefix, i)}
	}
	return nodes
}

// Tree returns a forest of `roots` trees where every non-leaf node has
// `breadth` children, `depth` levels below the roots. Keys are the path of
// child indexes: prefix-0, prefix-0.1, prefix-0.1.2.
func Tree(prefix string, roots, depth, breadth int) []model.HeaderNode {
	var build func(key string, level int) model.HeaderNode
	build = func(key string, level int) model.HeaderNode {
		n := model.HeaderNode{Key: key, Title: key}
		if level < depth {
			for b := 0; b < breadth; b++ {
				n.Children = append(n.Children, build(fmt.Sprintf("%s.%d", key, b), level+1))
			}
		}
		return n
	}
	nodes := make([]model.HeaderNode, roots)
	for i := range nodes {
		nodes[i] = build(fmt.Sprintf("%s-%d", prefix, i), 0)
	}
	return nodes
}

// TreeSize returns the node count of Tree(prefix, roots, depth, breadth).
func TreeSize(roots, depth, breadth int) int {
	per, level := 1, 1
	for d := 0; d < depth; d++ {
		level *= breadth
		per += level
	}
	return roots * per
}

// RandomForest returns a forest of exactly size nodes with random shape.
// maxChildren bounds the children of any node.
func (g *Generator) RandomForest(prefix string, size, maxChildren int) []model.HeaderNode {
	if size <= 0 {
		return nil
	}
	maxChildren = max(1, maxChildren)

	type slot struct {
		path []int
	}
	var forest []model.HeaderNode
	var open []slot
	for i := 0; i < size; i++ {
		key := fmt.Sprintf("%s-%d", prefix, i)
		node := model.HeaderNode{Key: key, Title: key}
		if len(open) == 0 || g.rng.Intn(4) == 0 {
			forest = append(forest, node)
			open = append(open, slot{path: []int{len(forest) - 1}})
			continue
		}
		j := g.rng.Intn(len(open))
		parent := nodeAt(forest, open[j].path)
		parent.Children = append(parent.Children, node)
		childPath := append(append([]int(nil), open[j].path...), len(parent.Children)-1)
		if len(parent.Children) >= maxChildren {
			open = append(open[:j], open[j+1:]...)
		}
		open = append(open, slot{path: childPath})
	}
	return forest
}

func nodeAt(forest []model.HeaderNode, path []int) *model.HeaderNode {
	n := &forest[path[0]]
	for _, i := range path[1:] {
		n = &n.Children[i]
	}
	return n
}

// Document returns a document over the given forests with cells filled for
// a cfg.Fill fraction of leaf pairs, plus counts for every root.
func (g *Generator) Document(rows, cols []model.HeaderNode) model.Document {
	doc := model.Document{
		Matrix:    model.Matrix{Rows: rows, Cols: cols},
		RowCounts: make(map[string]int),
		ColCounts: make(map[string]int),
		Corner:    [2]string{"Rows", "Cols"},
	}
	for _, r := range rows {
		doc.RowCounts[r.Key] = countLeaves(r)
	}
	for _, c := range cols {
		doc.ColCounts[c.Key] = countLeaves(c)
	}

	for _, r := range leafKeys(rows) {
		for _, c := range leafKeys(cols) {
			if g.rng.Float64() >= g.cfg.Fill {
				continue
			}
			kind := g.cfg.CellKinds[g.rng.Intn(len(g.cfg.CellKinds))]
			cell := model.CellValue{Row: r, Col: c, Kind: kind, Disabled: g.rng.Intn(10) == 0}
			switch kind {
			case model.CellText:
				cell.Value = fmt.Sprintf("%d", g.rng.Intn(1000))
			case model.CellCheckbox:
				cell.Checked = g.rng.Intn(2) == 0
			case model.CellImage:
				cell.Value = fmt.Sprintf("img/%s-%s.png", r, c)
			}
			doc.Cells = append(doc.Cells, cell)
		}
	}
	return doc
}

// Matrix returns a document with rowRoots x colRoots trees of the given
// depth and breadth on both axes.
func (g *Generator) Matrix(rowRoots, colRoots, depth, breadth int) model.Document {
	return g.Document(
		Tree(g.cfg.RowPrefix, rowRoots, depth, breadth),
		Tree(g.cfg.ColPrefix, colRoots, depth, breadth),
	)
}

func countLeaves(n model.HeaderNode) int {
	if len(n.Children) == 0 {
		return 1
	}
	total := 0
	for _, c := range n.Children {
		total += countLeaves(c)
	}
	return total
}

func leafKeys(nodes []model.HeaderNode) []string {
	var out []string
	for _, n := range nodes {
		if len(n.Children) == 0 {
			out = append(out, n.Key)
			continue
		}
		out = append(out, leafKeys(n.Children)...)
	}
	return out
}

// QuickMatrix returns a flat rows x cols document with the default config.
func QuickMatrix(rows, cols int) model.Document {
	return NewDefault().Document(Flat("r", rows), Flat("c", cols))
}

// QuickTree returns a document whose both axes are Tree(depth, breadth).
func QuickTree(roots, depth, breadth int) model.Document {
	return NewDefault().Matrix(roots, roots, depth, breadth)
}

// Empty returns a document without any headers.
func Empty() model.Document {
	return model.Document{}
}
