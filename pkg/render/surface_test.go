package render

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"git.sr.ht/~sbinet/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/pivotmatrix/pkg/export"
	"github.com/vanderheijden86/pivotmatrix/pkg/header"
	"github.com/vanderheijden86/pivotmatrix/pkg/layout"
	"github.com/vanderheijden86/pivotmatrix/pkg/model"
	"github.com/vanderheijden86/pivotmatrix/pkg/testutil"
)

var (
	_ export.Surface  = (*Surface)(nil)
	_ export.Scroller = (*Surface)(nil)
)

func testDocument() model.Document {
	return model.Document{
		Matrix: model.Matrix{
			Rows: []model.HeaderNode{
				{Key: "r1", Title: "Region North", Children: []model.HeaderNode{
					{Key: "r1a", Title: "Oslo"},
					{Key: "r1b", Title: "Bergen"},
				}},
				{Key: "r2", Title: "Region South"},
			},
			Cols: []model.HeaderNode{
				{Key: "c1", Title: "Jan"}, {Key: "c2", Title: "Feb"}, {Key: "c3", Title: "Mar"},
				{Key: "c4", Title: "Apr"}, {Key: "c5", Title: "May"}, {Key: "c6", Title: "A very long column title"},
			},
		},
		Cells: []model.CellValue{
			{Row: "r1a", Col: "c1", Kind: model.CellCheckbox, Checked: true},
			{Row: "r1a", Col: "c2", Kind: model.CellCheckbox},
			{Row: "r1b", Col: "c3", Kind: model.CellText, Value: "42"},
			{Row: "r2", Col: "c4", Kind: model.CellImage, Value: "icon.png"},
			{Row: "r2", Col: "c5", Kind: model.CellEmpty, Disabled: true},
		},
		RowCounts: map[string]int{"r1": 2},
		ColCounts: map[string]int{"c1": 1},
		Corner:    [2]string{"Region", "Month"},
	}
}

func newTestSurface(t *testing.T, doc model.Document, container layout.Size) (*Surface, layout.Layout) {
	t.Helper()
	axes := header.FlattenAxes(doc.Matrix, nil, nil, header.AxesOptions{})
	l := layout.Compute(axes, container, layout.Size{Width: 1280, Height: 800}, layout.DefaultOptions())
	s, err := New(axes, l, FromDocument(doc))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, l
}

func rgbaAt(img image.Image, x, y int) color.RGBA {
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func TestSurface_Sizes(t *testing.T) {
	s, _ := newTestSurface(t, testDocument(), layout.Size{Width: 300, Height: 250})

	if w, h := s.CaptureSize(); w != 300 || h != 250 {
		t.Errorf("capture size = %dx%d", w, h)
	}
	if w, h := s.CornerSize(); w != 160 || h != 160 {
		t.Errorf("corner size = %dx%d", w, h)
	}
	if w, h := s.ContentSize(); w != 240 || h != 160 {
		t.Errorf("content size = %dx%d", w, h)
	}

	img, err := s.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 300, 250) {
		t.Errorf("capture bounds = %v", img.Bounds())
	}
}

func TestSurface_ScrollClamps(t *testing.T) {
	s, _ := newTestSurface(t, testDocument(), layout.Size{Width: 300, Height: 250})
	ctx := context.Background()

	cases := []struct {
		x, y         int
		wantX, wantY int
	}{
		{0, 0, 0, 0},
		{50, 30, 50, 30},
		{-5, -1, 0, 0},
		{1000, 1000, 100, 70},
	}
	for _, tc := range cases {
		if err := s.ScrollTo(ctx, tc.x, tc.y); err != nil {
			t.Fatalf("ScrollTo: %v", err)
		}
		if x, y := s.Scroll(); x != tc.wantX || y != tc.wantY {
			t.Errorf("ScrollTo(%d,%d) -> (%d,%d), want (%d,%d)", tc.x, tc.y, x, y, tc.wantX, tc.wantY)
		}
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := s.ScrollAndCapture(cancelled, 0, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNew_RejectsEmptyTable(t *testing.T) {
	axes := header.FlattenAxes(testDocument().Matrix, nil, nil, header.AxesOptions{})
	if _, err := New(axes, layout.Layout{}, Options{}); !errors.Is(err, ErrEmptyTable) {
		t.Fatalf("expected ErrEmptyTable, got %v", err)
	}
}

func TestSurface_DrawsCellKinds(t *testing.T) {
	s, _ := newTestSurface(t, testDocument(), layout.Size{})
	img := s.Full()

	// Data origin is the corner (160,160); rows r1, r1a, r1b, r2 and cells are 40px.
	cellOrigin := func(row, col int) (int, int) { return 160 + col*40, 160 + row*40 }

	// Checked checkbox in (r1a, c1): the upper middle of the box is solid.
	x, y := cellOrigin(1, 0)
	if got := rgbaAt(img, x+20, y+16); got != colorCheckbox {
		t.Errorf("checked box pixel = %v, want %v", got, colorCheckbox)
	}
	// Unchecked checkbox in (r1a, c2): the inside stays white.
	x, y = cellOrigin(1, 1)
	if got := rgbaAt(img, x+20, y+20); got != colorBackground {
		t.Errorf("unchecked box pixel = %v, want white", got)
	}
	// Disabled empty cell in (r2, c5) takes the disabled background.
	x, y = cellOrigin(3, 4)
	if got := rgbaAt(img, x+5, y+5); got != colorDisabled {
		t.Errorf("disabled cell pixel = %v, want %v", got, colorDisabled)
	}
	// Grid lines sit on the last column and row of every cell.
	x, y = cellOrigin(0, 2)
	if got := rgbaAt(img, x+39, y+10); got != colorGrid {
		t.Errorf("grid pixel = %v, want %v", got, colorGrid)
	}
}

func TestSurface_EmptyAxisDrawsMark(t *testing.T) {
	doc := testDocument()
	doc.Rows = nil
	s, l := newTestSurface(t, doc, layout.Size{Width: 600, Height: 400})

	if l.Rows != 1 || l.RowHeight != layout.EmptyRowCellHeight(400, 800, layout.DefaultOptions()) {
		t.Fatalf("empty rows layout = %+v", l)
	}
	img := s.Full()
	// The cross passes through the centre of the stretched cell.
	cx, cy := 160+20, 160+l.RowHeight/2
	found := false
	for dy := -1; dy <= 1 && !found; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if rgbaAt(img, cx+dx, cy+dy) != colorBackground {
				found = true
				break
			}
		}
	}
	if !found {
		t.Error("expected the empty mark at the centre of the placeholder cell")
	}
}

func TestSurface_ExportMatchesFullRender(t *testing.T) {
	s, l := newTestSurface(t, testDocument(), layout.Size{Width: 300, Height: 250})

	infos, err := export.Export(context.Background(), s, export.Options{MaxDimension: 300, SettleDelay: -1})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(infos) != 4 {
		t.Fatalf("expected 2x2 tiles, got %d", len(infos))
	}
	got, err := export.Stitch(infos, 1<<22)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	want := s.Full()

	comp := l.Composite()
	if got.Bounds() != image.Rect(0, 0, comp.Width, comp.Height) || want.Bounds() != got.Bounds() {
		t.Fatalf("stitched %v, full %v, composite %+v", got.Bounds(), want.Bounds(), comp)
	}
	for y := 0; y < comp.Height; y++ {
		for x := 0; x < comp.Width; x++ {
			if g, w := got.RGBAAt(x, y), rgbaAt(want, x, y); g != w {
				t.Fatalf("pixel (%d,%d) = %v, full render has %v", x, y, g, w)
			}
		}
	}
}

func TestSurface_GeneratedMatrixExportMatchesFullRender(t *testing.T) {
	doc := testutil.QuickTree(2, 2, 2)
	collapsed := model.CollapseMap{"c-1.0": true}
	axes := header.FlattenAxes(doc.Matrix, nil, collapsed, header.AxesOptions{})
	l := layout.Compute(axes, layout.Size{Width: 400, Height: 300}, layout.Size{Width: 1280, Height: 800}, layout.DefaultOptions())
	s, err := New(axes, l, FromDocument(doc))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	infos, err := export.Export(context.Background(), s, export.Options{MaxDimension: 350, SettleDelay: -1})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(infos) < 4 {
		t.Fatalf("expected a multi-tile export, got %d tiles", len(infos))
	}
	got, err := export.Stitch(infos, 1<<24)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	testutil.AssertImagesEqual(t, s.Full(), got)
}

// assertCaptureMatchesFull checks every pixel of a capture at (sx, sy)
// against the full render: frozen regions map unchanged, scrolled regions
// shift by the scroll offset.
func assertCaptureMatchesFull(t *testing.T, s *Surface, full image.Image, sx, sy int) {
	t.Helper()
	img, err := s.ScrollAndCapture(context.Background(), sx, sy)
	if err != nil {
		t.Fatalf("ScrollAndCapture(%d,%d): %v", sx, sy, err)
	}
	if gx, gy := s.Scroll(); gx != sx || gy != sy {
		t.Fatalf("scroll (%d,%d) was clamped to (%d,%d)", sx, sy, gx, gy)
	}
	cw, ch := s.CornerSize()
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		fy := y
		if y >= ch {
			fy += sy
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			fx := x
			if x >= cw {
				fx += sx
			}
			if g, w := rgbaAt(img, x, y), rgbaAt(full, fx, fy); g != w {
				t.Fatalf("scroll (%d,%d): pixel (%d,%d) = %v, full render (%d,%d) has %v", sx, sy, x, y, g, fx, fy, w)
			}
		}
	}
}

func TestSurface_CaptureMatchesFullAtEveryScroll(t *testing.T) {
	// A 120x80 viewport ends exactly on cell boundaries, so the cell just past
	// each edge is not drawn in the capture but is in the full render.
	s, l := newTestSurface(t, testDocument(), layout.Size{Width: 280, Height: 240})
	if vp := l.Viewport(); vp.Width != 120 || vp.Height != 80 {
		t.Fatalf("viewport = %+v, want 120x80", vp)
	}
	full := s.Full()
	for _, sx := range []int{0, 1, 13, 39, 40, 80, 101, 120} {
		for _, sy := range []int{0, 7, 40, 79, 80} {
			assertCaptureMatchesFull(t, s, full, sx, sy)
		}
	}
}

func TestSurface_CaptureMatchesFull_EmptyAxisAndToggles(t *testing.T) {
	t.Run("empty data text", func(t *testing.T) {
		doc := testDocument()
		doc.Rows = nil
		axes := header.FlattenAxes(doc.Matrix, nil, nil, header.AxesOptions{})
		l := layout.Compute(axes, layout.Size{Width: 280, Height: 400}, layout.Size{Width: 1280, Height: 800}, layout.DefaultOptions())
		opts := FromDocument(doc)
		opts.EmptyDataText = "No rows in this matrix yet"
		s, err := New(axes, l, opts)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		full := s.Full()
		for _, sx := range []int{0, 20, 40, 120} {
			assertCaptureMatchesFull(t, s, full, sx, 0)
		}
	})

	t.Run("collapsed tree", func(t *testing.T) {
		doc := testutil.QuickTree(2, 2, 2)
		axes := header.FlattenAxes(doc.Matrix, nil, model.CollapseMap{"c-1.0": true}, header.AxesOptions{})
		l := layout.Compute(axes, layout.Size{Width: 280, Height: 240}, layout.Size{Width: 1280, Height: 800}, layout.DefaultOptions())
		s, err := New(axes, l, FromDocument(doc))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		full := s.Full()
		vp := l.Viewport()
		maxX, maxY := l.Content.Width-vp.Width, l.Content.Height-vp.Height
		for _, sx := range []int{0, 40, 57, maxX} {
			for _, sy := range []int{0, 40, 63, maxY} {
				assertCaptureMatchesFull(t, s, full, max(0, min(sx, maxX)), max(0, min(sy, maxY)))
			}
		}
	})
}

func TestDrawText_SnapsToPixels(t *testing.T) {
	// The same text anchored at the same offset inside two boxes draws the
	// same pixels whatever the absolute position of the box.
	draw := func(ox float64) image.Image {
		dc := gg.NewContext(400, 40)
		dc.SetColor(colorBackground)
		dc.Clear()
		dc.SetFontFace(basicfont.Face7x13)
		dc.SetColor(colorText)
		drawText(dc, "42", ox+20, 20, 0.5, 0.35)
		return dc.Image()
	}
	a, b := draw(0), draw(293)
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			if ga, gb := rgbaAt(a, x, y), rgbaAt(b, x+293, y); ga != gb {
				t.Fatalf("pixel (%d,%d) = %v at origin 0, %v at origin 293", x, y, ga, gb)
			}
		}
	}
}

func TestVisibleRange(t *testing.T) {
	cases := []struct {
		scroll, extent, size, n int
		lo, hi                  int
	}{
		{0, 100, 40, 10, 0, 3},
		{40, 80, 40, 10, 1, 3},
		{39, 2, 40, 10, 0, 2},
		{360, 100, 40, 10, 9, 10},
		{0, 100, 40, 0, 0, 0},
		{0, 0, 40, 5, 0, 0},
	}
	for _, tc := range cases {
		lo, hi := visibleRange(tc.scroll, tc.extent, tc.size, tc.n)
		if lo != tc.lo || hi != tc.hi {
			t.Errorf("visibleRange(%d,%d,%d,%d) = [%d,%d), want [%d,%d)",
				tc.scroll, tc.extent, tc.size, tc.n, lo, hi, tc.lo, tc.hi)
		}
	}
}

func TestVerticalLines(t *testing.T) {
	if got := verticalLines("Jan", 5); len(got) != 3 || got[2] != "n" {
		t.Errorf("short title = %q", got)
	}
	got := verticalLines("September", 4)
	if len(got) != 4 || got[0] != "S" || got[3] != "..." {
		t.Errorf("long title = %q", got)
	}
	if got := verticalLines("x", 0); got != nil {
		t.Errorf("no room = %q", got)
	}
}
