package sim

// GhostFrame is one recorded avatar position.
type GhostFrame struct {
	X float64
	Y float64
}

// GhostRun is an archived run replayed alongside the current one.
type GhostRun struct {
	Frames []GhostFrame
	cursor int
}

// GhostHistory records the current run and keeps the most recent finished runs.
type GhostHistory struct {
	maxFrames int
	current   []GhostFrame
	runs      []GhostRun
}

func newGhostHistory(maxFrames int) GhostHistory {
	return GhostHistory{maxFrames: maxFrames}
}

// Record appends a frame to the current run until the frame cap is reached.
func (g *GhostHistory) Record(x, y float64) {
	if g.maxFrames > 0 && len(g.current) >= g.maxFrames {
		return
	}
	g.current = append(g.current, GhostFrame{X: x, Y: y})
}

// Archive moves the current run into history, evicting the oldest run when
// the history is full, and rewinds every replay. It returns false when there
// was nothing to archive.
func (g *GhostHistory) Archive() bool {
	if len(g.current) == 0 {
		return false
	}
	if len(g.runs) >= GhostHistoryLimit {
		g.runs = append(g.runs[:0], g.runs[1:]...)
	}
	g.runs = append(g.runs, GhostRun{Frames: g.current})
	g.current = nil
	for i := range g.runs {
		g.runs[i].cursor = 0
	}
	return true
}

// Discard drops the current run without archiving it.
func (g *GhostHistory) Discard() {
	g.current = nil
}

// Advance moves every replay forward by one frame.
func (g *GhostHistory) Advance() {
	for i := range g.runs {
		if g.runs[i].cursor < len(g.runs[i].Frames) {
			g.runs[i].cursor++
		}
	}
}

// Runs reports how many finished runs are stored.
func (g *GhostHistory) Runs() int {
	return len(g.runs)
}

// CurrentFrames reports how many frames the current run has recorded.
func (g *GhostHistory) CurrentFrames() int {
	return len(g.current)
}

// Visible returns the replay position of every ghost still playing, oldest
// first, with its draw opacity.
func (g *GhostHistory) Visible() []GhostView {
	var views []GhostView
	for i, run := range g.runs {
		opacity := 0.5 - float64(i)*0.08
		if opacity <= 0 || run.cursor >= len(run.Frames) {
			continue
		}
		frame := run.Frames[run.cursor]
		views = append(views, GhostView{X: frame.X, Y: frame.Y, Opacity: opacity})
	}
	return views
}

// GhostView is a ghost's pose for the current frame.
type GhostView struct {
	X       float64
	Y       float64
	Opacity float64
}
