package testutil

import (
	"testing"

	"github.com/vanderheijden86/pivotmatrix/pkg/loader"
	"github.com/vanderheijden86/pivotmatrix/pkg/model"
)

func TestFlat(t *testing.T) {
	nodes := Flat("c", 3)
	AssertKeys(t, nodes, "c-0", "c-1", "c-2")
	for _, n := range nodes {
		if !n.IsLeaf() {
			t.Errorf("%s has children", n.Key)
		}
	}
}

func TestTree(t *testing.T) {
	tests := []struct {
		roots, depth, breadth int
	}{
		{1, 0, 3},
		{1, 1, 3},
		{2, 2, 2},
		{3, 3, 1},
	}
	for _, tt := range tests {
		forest := Tree("r", tt.roots, tt.depth, tt.breadth)
		keys := AllKeys(forest)
		if want := TreeSize(tt.roots, tt.depth, tt.breadth); len(keys) != want {
			t.Errorf("Tree(%d,%d,%d) has %d nodes, want %d", tt.roots, tt.depth, tt.breadth, len(keys), want)
		}
		AssertValidDocument(t, model.Document{Matrix: model.Matrix{Rows: forest}})
	}

	forest := Tree("r", 1, 2, 2)
	AssertKeys(t, forest[0].Children, "r-0.0", "r-0.1")
	AssertKeys(t, forest[0].Children[1].Children, "r-0.1.0", "r-0.1.1")
}

func TestRandomForest(t *testing.T) {
	g := NewDefault()
	for _, size := range []int{0, 1, 10, 200} {
		forest := g.RandomForest("n", size, 3)
		if got := len(AllKeys(forest)); got != size {
			t.Errorf("RandomForest(%d) has %d nodes", size, got)
		}
		AssertValidDocument(t, model.Document{Matrix: model.Matrix{Cols: forest}})
	}
}

func TestRandomForest_BoundsChildren(t *testing.T) {
	forest := NewDefault().RandomForest("n", 300, 2)
	var check func(nodes []model.HeaderNode)
	check = func(nodes []model.HeaderNode) {
		for _, n := range nodes {
			if len(n.Children) > 2 {
				t.Fatalf("%s has %d children", n.Key, len(n.Children))
			}
			check(n.Children)
		}
	}
	check(forest)
}

func TestDocument(t *testing.T) {
	doc := NewDefault().Matrix(2, 3, 1, 2)
	AssertValidDocument(t, doc)

	if doc.RowCounts["r-0"] != 2 || doc.ColCounts["c-2"] != 2 {
		t.Errorf("counts = %v / %v", doc.RowCounts, doc.ColCounts)
	}
	// 4 row leaves x 6 column leaves at half fill.
	if len(doc.Cells) == 0 || len(doc.Cells) >= 24 {
		t.Errorf("cells = %d, expected a partial fill of 24", len(doc.Cells))
	}
	for _, c := range doc.Cells {
		if len(c.Row) < 5 || len(c.Col) < 5 {
			t.Errorf("cell addresses a non-leaf: %+v", c)
		}
	}
}

func TestDeterminism(t *testing.T) {
	a := New(GeneratorConfig{Seed: 7, Fill: 0.3}).Document(Flat("r", 20), Flat("c", 20))
	b := New(GeneratorConfig{Seed: 7, Fill: 0.3}).Document(Flat("r", 20), Flat("c", 20))
	AssertJSONEqual(t, a, b)

	x := New(GeneratorConfig{Seed: 1}).RandomForest("n", 50, 3)
	y := New(GeneratorConfig{Seed: 1}).RandomForest("n", 50, 3)
	AssertJSONEqual(t, x, y)
}

func TestWriteMatrixFile(t *testing.T) {
	doc := QuickMatrix(3, 4)
	for _, name := range []string{"m.yaml", "m.json"} {
		path := WriteMatrixFile(t, t.TempDir(), name, doc)
		got, err := loader.Load(path)
		if err != nil {
			t.Fatalf("Load %s: %v", name, err)
		}
		AssertKeys(t, got.Rows, "r-0", "r-1", "r-2")
		if len(got.Cells) != len(doc.Cells) {
			t.Errorf("%s: %d cells, want %d", name, len(got.Cells), len(doc.Cells))
		}
	}
}

func BenchmarkQuickTree(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = QuickTree(4, 3, 4)
	}
}
