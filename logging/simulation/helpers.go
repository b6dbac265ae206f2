package simulation

import (
	"context"

	"github.com/VasilisChatzivasileiou/forlackofabettername/logging"
)

const (
	// EventRunReset is emitted when a fall ends the current run.
	EventRunReset logging.EventType = "simulation.run_reset"
	// EventRowGenerated is emitted for every platform row added to the world.
	EventRowGenerated logging.EventType = "simulation.row_generated"
	// EventHighScore is emitted when a run beats the stored record.
	EventHighScore logging.EventType = "simulation.high_score"
)

// RunResetPayload summarises the finished run.
type RunResetPayload struct {
	Score        int  `json:"score"`
	GhostFrames  int  `json:"ghostFrames"`
	GhostsStored int  `json:"ghostsStored"`
	Archived     bool `json:"archived"`
}

// RowGeneratedPayload captures the new top of the platform field.
type RowGeneratedPayload struct {
	Elevation float64 `json:"elevation"`
	Platforms int     `json:"platforms"`
	Pruned    int     `json:"pruned"`
}

// HighScorePayload captures a new record.
type HighScorePayload struct {
	Previous int `json:"previous"`
	Score    int `json:"score"`
}

func RunReset(ctx context.Context, pub logging.Publisher, frame uint64, payload RunResetPayload) {
	publish(ctx, pub, EventRunReset, logging.SeverityInfo, frame, payload)
}

func RowGenerated(ctx context.Context, pub logging.Publisher, frame uint64, payload RowGeneratedPayload) {
	publish(ctx, pub, EventRowGenerated, logging.SeverityDebug, frame, payload)
}

func HighScore(ctx context.Context, pub logging.Publisher, frame uint64, payload HighScorePayload) {
	publish(ctx, pub, EventHighScore, logging.SeverityInfo, frame, payload)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, frame uint64, payload any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Frame:    frame,
		Actor:    logging.World(),
		Severity: severity,
		Category: "simulation",
		Payload:  payload,
	})
}
