package sim

import "math"

// generationTrigger is the highest avatar in the session.
func (w *World) generationTrigger() float64 {
	y := w.avatar.Y
	if w.mirror != nil && w.mirror.Y < y {
		y = w.mirror.Y
	}
	return y
}

// lowestAvatar is the lowest avatar in the session, used for pruning.
func (w *World) lowestAvatar() float64 {
	y := w.avatar.Y
	if w.mirror != nil && w.mirror.Y > y {
		y = w.mirror.Y
	}
	return y
}

func (w *World) maybeGenerate(events *StepEvents) {
	if w.generationTrigger() >= w.highestGenerated-GenerationMargin {
		return
	}
	if !w.role.Authoritative() {
		target := w.highestGenerated - RowGap
		if w.lastRequested == target {
			return
		}
		w.lastRequested = target
		events.Request = &GenerationRequest{Elevation: target}
		return
	}
	events.Pruned += w.generateRow()
	events.RowsGenerated++
}

// generateRow appends one row above the current top and prunes rows far
// below the lowest avatar. It returns the number of pruned platforms.
func (w *World) generateRow() int {
	count := MinRowPlatforms + w.genRNG.Intn(MaxRowPlatforms-MinRowPlatforms+1)
	y := w.highestGenerated - RowGap
	span := w.cfg.ViewWidth - PlatformSize
	if span < 0 {
		span = 0
	}

	row := make([]Platform, 0, count)
	for i := 0; i < count; i++ {
		var x float64
		for attempt := 0; attempt < PlacementAttempts; attempt++ {
			x = randomRange(w.genRNG, 0, span)
			if spacedFrom(x, row) {
				break
			}
		}
		kind := KindSuperJump
		if i > 0 {
			kind = KindCollapsing
			if w.genRNG.Intn(2) == 1 {
				kind = KindHookGrant
			}
		}
		row = append(row, NewPlatform(w.allocID(), kind, x, y))
	}
	w.platforms = append(w.platforms, row...)
	w.highestGenerated = y
	return w.prune()
}

func spacedFrom(x float64, row []Platform) bool {
	for _, p := range row {
		if math.Abs(x-p.X) < PlatformSize+MinPlatformSpacing {
			return false
		}
	}
	return true
}

func (w *World) prune() int {
	limit := w.lowestAvatar() + w.cfg.ViewHeight*PruneScreens
	kept := w.platforms[:0]
	for _, p := range w.platforms {
		if p.Y < limit {
			kept = append(kept, p)
		}
	}
	pruned := len(w.platforms) - len(kept)
	for i := len(kept); i < len(w.platforms); i++ {
		w.platforms[i] = Platform{}
	}
	w.platforms = kept
	return pruned
}

// GenerateUntil extends the field until the highest row is at or above
// elevation. Only authoritative roles generate; at most MaxRowsPerRequest rows
// are added per call. It returns the number of rows generated.
func (w *World) GenerateUntil(elevation float64) int {
	if !w.role.Authoritative() || !finite(elevation) {
		return 0
	}
	rows := 0
	for w.highestGenerated > elevation && rows < w.cfg.MaxRowsPerRequest {
		w.generateRow()
		rows++
	}
	return rows
}
