package sim

import "strings"

// DefaultSeed seeds platform and hazard generation when none is configured.
const DefaultSeed = "climb"

// WorldConfig tunes one local world. Zero values fall back to defaults via Normalized.
type WorldConfig struct {
	ViewWidth         float64 `yaml:"viewWidth"`
	ViewHeight        float64 `yaml:"viewHeight"`
	Seed              string  `yaml:"seed"`
	Hazards           bool    `yaml:"hazards"`
	RequireHookCharge bool    `yaml:"requireHookCharge"`
	MaxGhostFrames    int     `yaml:"maxGhostFrames"`
	MaxRowsPerRequest int     `yaml:"maxRowsPerRequest"`
}

// DefaultWorldConfig is the 800x600 viewport with hazards on and hooks gated
// behind charges.
func DefaultWorldConfig() WorldConfig {
	return WorldConfig{
		ViewWidth:         DefaultViewWidth,
		ViewHeight:        DefaultViewHeight,
		Seed:              DefaultSeed,
		Hazards:           true,
		RequireHookCharge: true,
		MaxGhostFrames:    DefaultGhostFrames,
		MaxRowsPerRequest: DefaultMaxRowsPerReq,
	}
}

// Normalized returns a config with the seed trimmed and defaults applied to
// non-positive sizes and limits.
func (cfg WorldConfig) Normalized() WorldConfig {
	normalized := cfg
	normalized.Seed = strings.TrimSpace(normalized.Seed)
	if normalized.Seed == "" {
		normalized.Seed = DefaultSeed
	}
	if normalized.ViewWidth <= 0 {
		normalized.ViewWidth = DefaultViewWidth
	}
	if normalized.ViewHeight <= 0 {
		normalized.ViewHeight = DefaultViewHeight
	}
	if normalized.MaxGhostFrames <= 0 {
		normalized.MaxGhostFrames = DefaultGhostFrames
	}
	if normalized.MaxRowsPerRequest <= 0 {
		normalized.MaxRowsPerRequest = DefaultMaxRowsPerReq
	}
	return normalized
}
