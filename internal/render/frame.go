package render

import (
	"math"
	"strconv"

	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/sim"
)

// Layer orders draw calls back to front.
type Layer uint8

const (
	LayerGhost Layer = iota
	LayerPlatform
	LayerRope
	LayerAvatar
	LayerHazard
	LayerHUD
)

// Rect is one filled rectangle in screen coordinates.
type Rect struct {
	Layer   Layer
	X       float64
	Y       float64
	Width   float64
	Height  float64
	Color   string
	Opacity float64
	Label   string
}

// Line is one rope segment in screen coordinates.
type Line struct {
	X1, Y1 float64
	X2, Y2 float64
	Color  string
}

// Indicator is the vertical height gauge on the left edge.
type Indicator struct {
	X       float64
	Top     float64
	Height  float64
	MarkerY float64
	Value   int
}

const (
	indicatorX      = 40
	indicatorTop    = 100
	indicatorHeight = 400
	indicatorScale  = 100
	birdWidthScale  = 3
	birdHeightScale = 1.5
)

// Frame is a backend-neutral description of one rendered frame.
type Frame struct {
	Frame       uint64
	Background  string
	Rects       []Rect
	Lines       []Line
	Score       int
	HighScore   int
	DoubleJumps int
	Hooks       int
	Indicator   Indicator
}

// Build lays out snap for drawing. World y is shifted by the camera offset.
func Build(snap sim.Snapshot, palette Palette) Frame {
	frame := Frame{
		Frame:       snap.Frame,
		Background:  palette.Background,
		Score:       snap.Score,
		HighScore:   snap.HighScore,
		DoubleJumps: snap.DoubleJumps,
		Hooks:       snap.Hooks,
		Indicator:   heightIndicator(snap.Elevation),
	}
	dy := snap.CameraY

	for _, ghost := range snap.Ghosts {
		frame.Rects = append(frame.Rects, Rect{
			Layer: LayerGhost, X: ghost.X, Y: ghost.Y + dy,
			Width: sim.AvatarSize, Height: sim.AvatarSize,
			Color: palette.Foreground, Opacity: ghost.Opacity,
		})
	}
	for _, p := range snap.Platforms {
		rect := Rect{
			Layer: LayerPlatform, X: p.X, Y: p.Y + dy, Width: p.Width, Height: p.Height,
			Color: palette.PlatformColor(p.Kind), Opacity: 1,
		}
		if p.Running {
			rect.Label = strconv.Itoa(p.Countdown)
		}
		frame.Rects = append(frame.Rects, rect)
	}
	for _, rope := range snap.Ropes {
		for i := 1; i < len(rope.Points); i++ {
			a, b := rope.Points[i-1], rope.Points[i]
			frame.Lines = append(frame.Lines, Line{X1: a.X, Y1: a.Y + dy, X2: b.X, Y2: b.Y + dy, Color: palette.Foreground})
		}
	}
	frame.addAvatar(snap.Local, dy, palette)
	if snap.Remote != nil {
		frame.addAvatar(*snap.Remote, dy, palette)
	}
	for _, bird := range snap.Birds {
		w, h := sim.BirdSize*birdWidthScale, sim.BirdSize*birdHeightScale
		frame.Rects = append(frame.Rects, Rect{
			Layer: LayerHazard, X: bird.X - w/2, Y: bird.Y + dy - h/2, Width: w, Height: h,
			Color: palette.Bird, Opacity: 1,
		})
	}
	return frame
}

func (f *Frame) addAvatar(view sim.AvatarView, dy float64, palette Palette) {
	f.Rects = append(f.Rects, Rect{
		Layer: LayerAvatar, X: view.X, Y: view.Y + dy, Width: view.Width, Height: view.Height,
		Color: palette.Foreground, Opacity: 1,
	})
	if view.Hook == nil {
		return
	}
	f.Lines = append(f.Lines, Line{
		X1: view.X + view.Width/2, Y1: view.Y + view.Height/2 + dy,
		X2: view.Hook.AnchorX, Y2: view.Hook.AnchorY + dy,
		Color: palette.Foreground,
	})
}

// heightIndicator fills the gauge proportionally up to an elevation of 100.
func heightIndicator(elevation int) Indicator {
	fraction := math.Max(0, math.Min(1, float64(elevation)/indicatorScale))
	return Indicator{
		X:       indicatorX,
		Top:     indicatorTop,
		Height:  indicatorHeight,
		MarkerY: indicatorTop + (1-fraction)*indicatorHeight,
		Value:   max(0, elevation),
	}
}
