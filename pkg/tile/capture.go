package tile

import (
	"fmt"
	"image"
)

// Phase is the orchestrator's position in a frame's capture cycle.
type Phase int

const (
	PhasePending Phase = iota
	PhaseCapturing
	PhaseStitching
	PhaseComplete
	PhaseNextTile
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseCapturing:
		return "capturing"
	case PhaseStitching:
		return "stitching"
	case PhaseComplete:
		return "complete"
	case PhaseNextTile:
		return "next_tile"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is the fill cursor of one frame. AppendX counts content pixels filled
// in the current horizontal pass; AppendY counts completed content rows.
type State struct {
	AppendX int `json:"appendX"`
	AppendY int `json:"appendY"`
}

// RemainWidth is the content width still to fill in the current pass.
func (f Frame) RemainWidth(s State) int {
	return f.ContentWidth - s.AppendX
}

// RemainHeight is the content height still to fill.
func (f Frame) RemainHeight(s State) int {
	return f.ContentHeight - s.AppendY
}

// IsComplete reports whether both remainders are exhausted.
func (f Frame) IsComplete(s State) bool {
	return f.RemainWidth(s) <= 0 && f.RemainHeight(s) <= 0
}

// Filled returns the state of a frame that is treated as fully drawn.
func (f Frame) Filled() State {
	return State{AppendX: f.ContentWidth, AppendY: f.ContentHeight}
}

// Bounds returns the frame rectangle in composite space.
func (f Frame) Bounds() image.Rectangle {
	return image.Rect(f.X, f.Y, f.X+f.Width, f.Y+f.Height)
}

// Step is one planned capture: where to scroll, which part of the captured
// image to keep, and where it lands in the frame.
type Step struct {
	ScrollX int `json:"scrollX"`
	ScrollY int `json:"scrollY"`
	// Src is the crop rectangle in capture coordinates.
	Src image.Rectangle `json:"src"`
	// Dst is the top-left of the crop in frame coordinates.
	Dst image.Point `json:"dst"`
	// TakeX and TakeY are the content pixels this step consumes.
	TakeX int `json:"takeX"`
	TakeY int `json:"takeY"`
}

// axisPlan is the one-dimensional half of a step.
type axisPlan struct {
	scroll   int
	srcStart int
	srcEnd   int
	dst      int
	take     int
}

// planAxis plans one axis. Scroll is clamped to maxScroll and the crop offset
// is derived from the clamped scroll, so the final step of the last tile reads
// the tail of the viewport instead of scrolling past the content.
func planAxis(contentStart, appended, remain, corner, viewport, maxScroll int, first bool) axisPlan {
	need := contentStart + appended
	scroll := min(need, maxScroll)
	offset := need - scroll
	take := max(0, min(remain, viewport-offset))

	p := axisPlan{
		scroll:   scroll,
		srcStart: corner + offset,
		srcEnd:   corner + offset + take,
		dst:      appended,
		take:     take,
	}
	if first {
		p.dst += corner
		if appended == 0 {
			// The first pass of a leading frame keeps the frozen header strip.
			p.srcStart = 0
			p.dst = 0
		}
	}
	return p
}

// Plan computes the next capture for frame f in state s.
func (g *Graph) Plan(f Frame, s State) Step {
	vw, vh := g.Geometry.Viewport()
	maxX, maxY := g.Geometry.MaxScroll()

	h := planAxis(f.ContentX, s.AppendX, f.RemainWidth(s), g.Geometry.CornerWidth, vw, maxX, f.IsFirstCol)
	v := planAxis(f.ContentY, s.AppendY, f.RemainHeight(s), g.Geometry.CornerHeight, vh, maxY, f.IsFirstRow)

	return Step{
		ScrollX: h.scroll,
		ScrollY: v.scroll,
		Src:     image.Rect(h.srcStart, v.srcStart, h.srcEnd, v.srcEnd),
		Dst:     image.Pt(h.dst, v.dst),
		TakeX:   h.take,
		TakeY:   v.take,
	}
}

// Advance returns the state after step has been composited. A finished
// horizontal pass moves down by the consumed height and rewinds AppendX
// unless the frame is done.
func Advance(f Frame, s State, step Step) State {
	s.AppendX += step.TakeX
	if f.RemainWidth(s) <= 0 {
		s.AppendY += step.TakeY
		if f.RemainHeight(s) > 0 {
			s.AppendX = 0
		}
	}
	return s
}

// Steps returns every step needed to fill f from an empty state. A frame
// always gets at least one step so a corner-only frame still receives its
// corner.
func (g *Graph) Steps(f Frame) []Step {
	var steps []Step
	s := State{}
	for {
		step := g.Plan(f, s)
		steps = append(steps, step)
		s = Advance(f, s, step)
		if f.IsComplete(s) {
			return steps
		}
	}
}
