package tile

import (
	"errors"
	"image"
	"testing"

	"pgregory.net/rapid"
)

func TestBuild_SpecExample(t *testing.T) {
	g, err := Build(Geometry{
		ContentWidth:  30000,
		ContentHeight: 8000,
		SurfaceWidth:  1200,
		SurfaceHeight: 900,
		CornerWidth:   120,
		CornerHeight:  120,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if g.Columns != 3 || g.Rows != 1 {
		t.Fatalf("tiles = %dx%d, want 3x1", g.Columns, g.Rows)
	}
	if g.PerTileWidth != 10000 {
		t.Errorf("per tile width = %d, want 10000", g.PerTileWidth)
	}

	want := []struct{ x, width int }{
		{0, 10120},
		{10120, 10000},
		{20120, 10000},
	}
	for i, f := range g.Frames {
		if f.X != want[i].x || f.Width != want[i].width {
			t.Errorf("frame %d: x=%d width=%d, want x=%d width=%d", i, f.X, f.Width, want[i].x, want[i].width)
		}
		if f.Height != 8120 || f.Y != 0 {
			t.Errorf("frame %d: y=%d height=%d", i, f.Y, f.Height)
		}
		if f.IsFirstCol != (i == 0) || !f.IsFirstRow {
			t.Errorf("frame %d: first flags %v/%v", i, f.IsFirstCol, f.IsFirstRow)
		}
	}
}

func TestBuild_LinksInColumnMajorOrder(t *testing.T) {
	g, err := Build(Geometry{
		ContentWidth: 100, ContentHeight: 100,
		SurfaceWidth: 30, SurfaceHeight: 30,
		CornerWidth: 5, CornerHeight: 5,
		MaxDimension: 60,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if g.Len() != g.Columns*g.Rows || g.Len() != 4 {
		t.Fatalf("expected 2x2 frames, got %d (%dx%d)", g.Len(), g.Columns, g.Rows)
	}

	var order [][2]int
	prev := -1
	for f := range g.All() {
		if f.Prev != prev {
			t.Errorf("frame %d: prev=%d, want %d", f.Index, f.Prev, prev)
		}
		prev = f.Index
		order = append(order, [2]int{f.Col, f.Row})
	}
	want := [][2]int{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
	if g.Frames[g.Len()-1].Next != -1 {
		t.Error("last frame should end the list")
	}
}

func TestBuild_UnevenDivisionHasNoSeams(t *testing.T) {
	g, err := Build(Geometry{
		ContentWidth: 101, ContentHeight: 10,
		SurfaceWidth: 20, SurfaceHeight: 20,
		CornerWidth: 3, CornerHeight: 2,
		MaxDimension: 40,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// limit 37 -> 3 columns over 101 px: 33, 34, 34
	if g.Columns != 3 {
		t.Fatalf("columns = %d, want 3", g.Columns)
	}
	next := 0
	for f := range g.All() {
		if f.X != next {
			t.Errorf("frame %d starts at %d, want %d", f.Index, f.X, next)
		}
		next = f.X + f.Width
	}
	if w, _ := g.Geometry.Composite(); next != w {
		t.Errorf("frames end at %d, composite width %d", next, w)
	}
}

func TestBuild_Validation(t *testing.T) {
	cases := []struct {
		name string
		geo  Geometry
		want error
	}{
		{"negative", Geometry{ContentWidth: -1, SurfaceWidth: 10, SurfaceHeight: 10}, ErrNegativeGeometry},
		{"surface equals corner", Geometry{SurfaceWidth: 10, SurfaceHeight: 10, CornerWidth: 10}, ErrSurfaceTooSmall},
		{"surface smaller than corner", Geometry{SurfaceWidth: 10, SurfaceHeight: 5, CornerHeight: 8}, ErrSurfaceTooSmall},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Build(tc.geo); !errors.Is(err, tc.want) {
				t.Errorf("Build error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestBuild_CornerAtBudgetStillTiles(t *testing.T) {
	g, err := Build(Geometry{
		ContentWidth: 10, ContentHeight: 10,
		SurfaceWidth: 30, SurfaceHeight: 30,
		CornerWidth: 20, CornerHeight: 20,
		MaxDimension: 20,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// The limit clamps to one pixel instead of dividing by zero.
	if g.Columns != 10 || g.Rows != 10 {
		t.Errorf("tiles = %dx%d, want 10x10", g.Columns, g.Rows)
	}
}

func TestPlan_FirstFrameKeepsCorner(t *testing.T) {
	g, err := Build(Geometry{
		ContentWidth: 50, ContentHeight: 50,
		SurfaceWidth: 25, SurfaceHeight: 25,
		CornerWidth: 5, CornerHeight: 5,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	f := g.Frames[0]

	first := g.Plan(f, State{})
	if first.Src != image.Rect(0, 0, 25, 25) || first.Dst != image.Pt(0, 0) {
		t.Errorf("first step src=%v dst=%v", first.Src, first.Dst)
	}

	s := Advance(f, State{}, first)
	if s != (State{AppendX: 20}) {
		t.Fatalf("state after first step = %+v", s)
	}
	second := g.Plan(f, s)
	if second.ScrollX != 20 || second.ScrollY != 0 {
		t.Errorf("second scroll = %d,%d", second.ScrollX, second.ScrollY)
	}
	// Horizontal corner cropped away, vertical header strip kept.
	if second.Src != image.Rect(5, 0, 25, 25) || second.Dst != image.Pt(25, 0) {
		t.Errorf("second step src=%v dst=%v", second.Src, second.Dst)
	}

	third := g.Plan(f, Advance(f, s, second))
	// Last horizontal step: scroll clamps to 30 and the crop reads the tail.
	if third.ScrollX != 30 || third.Src.Min.X != 15 || third.Src.Dx() != 10 {
		t.Errorf("third step scroll=%d src=%v", third.ScrollX, third.Src)
	}
}

func TestSteps_DegenerateFrameTerminates(t *testing.T) {
	g, err := Build(Geometry{SurfaceWidth: 10, SurfaceHeight: 10, CornerWidth: 4, CornerHeight: 4})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	steps := g.Steps(g.Frames[0])
	if len(steps) != 1 {
		t.Fatalf("expected a single corner capture, got %d", len(steps))
	}
	if steps[0].Src != image.Rect(0, 0, 4, 4) {
		t.Errorf("corner src = %v", steps[0].Src)
	}
}

// captureToComposite maps a pixel of a capture taken at (scrollX, scrollY)
// to composite space.
func captureToComposite(geo Geometry, scrollX, scrollY, px, py int) (int, int) {
	cx, cy := px, py
	if px >= geo.CornerWidth {
		cx = px + scrollX
	}
	if py >= geo.CornerHeight {
		cy = py + scrollY
	}
	return cx, cy
}

func genGeometry(t *rapid.T) Geometry {
	cw := rapid.IntRange(0, 8).Draw(t, "cw")
	ch := rapid.IntRange(0, 8).Draw(t, "ch")
	return Geometry{
		CornerWidth:   cw,
		CornerHeight:  ch,
		SurfaceWidth:  rapid.IntRange(cw+1, cw+30).Draw(t, "sw"),
		SurfaceHeight: rapid.IntRange(ch+1, ch+30).Draw(t, "sh"),
		ContentWidth:  rapid.IntRange(0, 120).Draw(t, "w"),
		ContentHeight: rapid.IntRange(0, 120).Draw(t, "h"),
		MaxDimension:  rapid.IntRange(max(cw, ch)+5, 60).Draw(t, "max"),
	}
}

func TestSteps_PropertyExactCoverage(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		geo := genGeometry(t)
		g, err := Build(geo)
		if err != nil {
			t.Fatalf("Build: %v", err)
		}

		cw, ch := geo.Composite()
		covered := make([]int, cw*ch)
		maxX, maxY := geo.MaxScroll()

		for f := range g.All() {
			if f.Width > geo.maxDimension() || f.Height > geo.maxDimension() {
				t.Fatalf("frame %d is %dx%d, over budget %d", f.Index, f.Width, f.Height, geo.maxDimension())
			}
			for _, step := range g.Steps(f) {
				if step.ScrollX < 0 || step.ScrollX > maxX || step.ScrollY < 0 || step.ScrollY > maxY {
					t.Fatalf("scroll (%d,%d) outside [0,%d]x[0,%d]", step.ScrollX, step.ScrollY, maxX, maxY)
				}
				if !step.Src.In(image.Rect(0, 0, geo.SurfaceWidth, geo.SurfaceHeight)) && !step.Src.Empty() {
					t.Fatalf("src %v outside surface", step.Src)
				}
				dst := image.Rectangle{Min: step.Dst, Max: step.Dst.Add(step.Src.Size())}
				if !dst.In(image.Rect(0, 0, f.Width, f.Height)) && !dst.Empty() {
					t.Fatalf("frame %d: dst %v outside %dx%d", f.Index, dst, f.Width, f.Height)
				}
				for py := step.Src.Min.Y; py < step.Src.Max.Y; py++ {
					for px := step.Src.Min.X; px < step.Src.Max.X; px++ {
						gotX := f.X + step.Dst.X + (px - step.Src.Min.X)
						gotY := f.Y + step.Dst.Y + (py - step.Src.Min.Y)
						wantX, wantY := captureToComposite(geo, step.ScrollX, step.ScrollY, px, py)
						if gotX != wantX || gotY != wantY {
							t.Fatalf("frame %d: capture (%d,%d) lands at (%d,%d), shows (%d,%d)",
								f.Index, px, py, gotX, gotY, wantX, wantY)
						}
						covered[gotY*cw+gotX]++
					}
				}
			}
		}

		for i, n := range covered {
			if n != 1 {
				t.Fatalf("composite pixel (%d,%d) covered %d times", i%cw, i/cw, n)
			}
		}
	})
}
