package render

import (
	"image/color"
	"math"
	"strconv"

	"git.sr.ht/~sbinet/gg"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/pivotmatrix/pkg/header"
	"github.com/vanderheijden86/pivotmatrix/pkg/layout"
	"github.com/vanderheijden86/pivotmatrix/pkg/model"
)

var (
	colorBackground = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colorHeaderBG   = color.RGBA{0xf5, 0xf6, 0xf8, 0xff}
	colorCornerBG   = color.RGBA{0xee, 0xf0, 0xf3, 0xff}
	colorDisabled   = color.RGBA{0xda, 0xdd, 0xe1, 0xff}
	colorGrid       = color.RGBA{0xd9, 0xdc, 0xe1, 0xff}
	colorText       = color.RGBA{0x1f, 0x23, 0x29, 0xff}
	colorSubtle     = color.RGBA{0x64, 0x6a, 0x73, 0xff}
	colorEmptyText  = color.RGBA{0xcb, 0x38, 0x37, 0xff}
	colorCheckbox   = color.RGBA{0x18, 0x90, 0xff, 0xff}
	colorIcon       = color.RGBA{0xa0, 0xa6, 0xb0, 0xff}
)

const (
	// collapseIconSize is the side of the +/- toggle drawn on parent headers.
	collapseIconSize = 12
	// indentStep is the horizontal indent per nesting level of row headers.
	indentStep = 12
	// glyph metrics of basicfont.Face7x13.
	glyphWidth = 7
	lineHeight = 13
	ascent     = 11
)

func (s *Surface) drawCell(dc *gg.Context, cell header.Cell, x, y, w, h float64) {
	var v model.CellValue
	if !cell.IsEmpty() && s.opts.Cells != nil {
		v = s.opts.Cells(cell.RowKey, cell.ColKey)
	}

	bg := colorBackground
	if v.Disabled {
		bg = colorDisabled
	}
	fillRect(dc, x, y, w, h, bg)

	icon := float64(s.opts.CellIconSize + 2)
	iconFits := w >= icon && h >= icon
	switch {
	case cell.IsEmpty():
		s.drawEmptyMark(dc, x, y, w, h)
	case v.Kind == model.CellCheckbox && iconFits:
		s.drawCheckbox(dc, v, x+w/2, y+h/2)
	case v.Kind == model.CellImage && iconFits:
		s.drawImageMark(dc, x+w/2, y+h/2)
	case v.Kind == model.CellText && h >= lineHeight:
		text := runewidth.Truncate(v.Value, max(1, int(w)/glyphWidth), "")
		dc.SetColor(colorText)
		drawText(dc, text, x+w/2, y+h/2, 0.5, 0.35)
	}
	strokeRect(dc, x, y, w, h, colorGrid)
}

// drawEmptyMark fills a cell that belongs to an empty axis. Text lines and
// the cross stay inside the cell so neighbouring cells never see them.
func (s *Surface) drawEmptyMark(dc *gg.Context, x, y, w, h float64) {
	if s.opts.EmptyDataText != "" {
		cells := max(1, int(w-8)/glyphWidth)
		lines := dc.WordWrap(s.opts.EmptyDataText, float64(cells*glyphWidth))
		lines = lines[:min(len(lines), int(h)/lineHeight)]
		top := math.Floor(y + (h-float64(len(lines)*lineHeight))/2)
		dc.SetColor(colorEmptyText)
		for i, line := range lines {
			drawText(dc, runewidth.Truncate(line, cells, ""), x+w/2, top+float64(i*lineHeight+ascent), 0.5, 0)
		}
		return
	}
	const inset = 2
	if w <= 2*inset || h <= 2*inset {
		return
	}
	dc.SetColor(colorGrid)
	dc.SetLineWidth(1)
	dc.DrawLine(x+inset, y+inset, x+w-inset, y+h-inset)
	dc.DrawLine(x+inset, y+h-inset, x+w-inset, y+inset)
	dc.Stroke()
}

func (s *Surface) drawCheckbox(dc *gg.Context, v model.CellValue, cx, cy float64) {
	size := float64(s.opts.CellIconSize)
	x, y := cx-size/2, cy-size/2

	stroke := colorSubtle
	if v.Disabled {
		stroke = colorIcon
	}
	if v.Checked {
		dc.SetColor(s.opts.CheckboxColor)
		dc.DrawRoundedRectangle(x, y, size, size, 2)
		dc.Fill()
		dc.SetColor(colorBackground)
		dc.SetLineWidth(1.5)
		dc.MoveTo(x+size*0.22, y+size*0.52)
		dc.LineTo(x+size*0.42, y+size*0.72)
		dc.LineTo(x+size*0.78, y+size*0.30)
		dc.Stroke()
		return
	}
	dc.SetColor(stroke)
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x, y, size, size, 2)
	dc.Stroke()
}

// drawImageMark stands in for a cell image; the headless surface has no way
// to fetch the referenced picture.
func (s *Surface) drawImageMark(dc *gg.Context, cx, cy float64) {
	size := float64(s.opts.CellIconSize)
	dc.SetColor(colorIcon)
	dc.SetLineWidth(1)
	dc.DrawRectangle(cx-size/2, cy-size/2, size, size)
	dc.Stroke()
	dc.DrawCircle(cx, cy, size/5)
	dc.Fill()
}

// drawColHeader draws one column header and, below it, its count cell. Titles
// run top to bottom one character per line, pushed down by nesting depth.
func (s *Surface) drawColHeader(dc *gg.Context, node model.HeaderNode, x float64) {
	l := s.layout
	w := float64(l.ColumnWidth)
	hh := float64(l.ColHeaderSize)
	meta, _ := s.axes.Cols.Lookup(node.Key)

	fillRect(dc, x, 0, w, hh, colorHeaderBG)

	startY := float64(layout.HeaderPadding)
	if meta.ChildrenCount > 0 {
		drawToggle(dc, x+math.Floor((w-collapseIconSize)/2), startY, meta.IsCollapsed)
		startY += collapseIconSize
	}
	startY += float64(meta.Depth() * lineHeight)

	titleColor := colorText
	if header.IsEmptyKey(node.Key) {
		titleColor = colorEmptyText
	}
	dc.SetColor(titleColor)
	for i, line := range verticalLines(meta.Title, int((hh-startY-layout.HeaderPadding)/lineHeight)) {
		drawText(dc, line, x+w/2, startY+float64(i+1)*lineHeight, 0.5, 0)
	}
	strokeRect(dc, x, 0, w, hh, colorGrid)

	if l.CountSize > 0 {
		s.drawCount(dc, model.AxisCol, node.Key, x, hh, w, float64(l.CountSize))
	}
}

// verticalLines splits title into one line per character, at most fit lines.
// A title that does not fit ends in an ellipsis line.
func verticalLines(title string, fit int) []string {
	if fit <= 0 {
		return nil
	}
	runes := []rune(title)
	lines := make([]string, 0, min(fit, len(runes)))
	for i, r := range runes {
		if i == fit {
			lines[fit-1] = "..."
			break
		}
		lines = append(lines, string(r))
	}
	return lines
}

// drawRowHeader draws one row header and, right of it, its count cell.
func (s *Surface) drawRowHeader(dc *gg.Context, node model.HeaderNode, y float64) {
	l := s.layout
	h := float64(l.RowHeight)
	hw := float64(l.RowHeaderSize)
	meta, _ := s.axes.Rows.Lookup(node.Key)

	fillRect(dc, 0, y, hw, h, colorHeaderBG)

	x := float64(layout.HeaderPadding + meta.Depth()*indentStep)
	if meta.ChildrenCount > 0 && h >= collapseIconSize {
		drawToggle(dc, x, y+math.Floor((h-collapseIconSize)/2), meta.IsCollapsed)
		x += collapseIconSize + 4
	}

	titleColor := colorText
	if header.IsEmptyKey(node.Key) {
		titleColor = colorEmptyText
	}
	cells := int((hw - x - layout.HeaderPadding) / glyphWidth)
	if cells > 0 && h >= lineHeight {
		dc.SetColor(titleColor)
		drawText(dc, runewidth.Truncate(meta.Title, cells, "..."), x, y+h/2, 0, 0.35)
	}
	strokeRect(dc, 0, y, hw, h, colorGrid)

	if l.CountSize > 0 {
		s.drawCount(dc, model.AxisRow, node.Key, hw, y, float64(l.CountSize), h)
	}
}

func (s *Surface) drawCount(dc *gg.Context, axis model.Axis, key string, x, y, w, h float64) {
	fillRect(dc, x, y, w, h, colorHeaderBG)
	if s.opts.Count != nil && !header.IsEmptyKey(key) {
		if n, ok := s.opts.Count(axis, key); ok && h >= lineHeight {
			dc.SetColor(colorSubtle)
			text := runewidth.Truncate(strconv.Itoa(n), max(1, int(w)/glyphWidth), "")
			drawText(dc, text, x+w/2, y+h/2, 0.5, 0.35)
		}
	}
	strokeRect(dc, x, y, w, h, colorGrid)
}

// drawCorner draws the frozen corner: a diagonal with the row-axis label
// bottom left and the column-axis label top right.
func (s *Surface) drawCorner(dc *gg.Context) {
	w, h := float64(s.layout.Corner.Width), float64(s.layout.Corner.Height)
	if w <= 0 || h <= 0 {
		return
	}
	fillRect(dc, 0, 0, w, h, colorCornerBG)

	rowLabel, colLabel := s.opts.Corner[0], s.opts.Corner[1]
	if rowLabel != "" || colLabel != "" {
		dc.SetColor(colorGrid)
		dc.SetLineWidth(1)
		dc.DrawLine(0, 0, w, h)
		dc.Stroke()

		dc.SetColor(colorSubtle)
		half := max(1, int(w/2)/glyphWidth)
		drawText(dc, runewidth.Truncate(rowLabel, half, ""), w*0.3, h*0.8, 0.5, 0.5)
		drawText(dc, runewidth.Truncate(colLabel, half, ""), w*0.7, h*0.3, 0.5, 0.5)
	}
	strokeRect(dc, 0, 0, w, h, colorGrid)
}

func drawToggle(dc *gg.Context, x, y float64, collapsed bool) {
	const size, mid, arm = collapseIconSize, collapseIconSize/2 - 1, 3
	fillRect(dc, x, y, size, size, colorBackground)
	fillRect(dc, x, y, size, 1, colorSubtle)
	fillRect(dc, x, y, 1, size, colorSubtle)
	strokeRect(dc, x, y, size, size, colorSubtle)
	fillRect(dc, x+arm, y+mid, size-2*arm, 1, colorSubtle)
	if collapsed {
		fillRect(dc, x+mid, y+arm, 1, size-2*arm, colorSubtle)
	}
}

func fillRect(dc *gg.Context, x, y, w, h float64, c color.Color) {
	dc.SetColor(c)
	dc.DrawRectangle(x, y, w, h)
	dc.Fill()
}

// strokeRect draws the right and bottom edges of a box as one-pixel fills, so
// adjacent cells share one grid line and nothing spills outside the box.
// Coordinates are whole pixels.
func strokeRect(dc *gg.Context, x, y, w, h float64, c color.Color) {
	if w < 1 || h < 1 {
		return
	}
	fillRect(dc, x+w-1, y, 1, h, c)
	fillRect(dc, x, y+h-1, w, 1, c)
}

// drawText places s at anchor (ax, ay) of point (x, y) on whole pixels.
// Offsets are rounded relative to the snapped point, so the same cell renders
// identically whatever its position on the canvas.
func drawText(dc *gg.Context, s string, x, y, ax, ay float64) {
	w, h := dc.MeasureString(s)
	dc.DrawString(s, math.Floor(x)+math.Round(-ax*w), math.Floor(y)+math.Round(ay*h))
}
