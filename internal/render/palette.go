package render

import "github.com/VasilisChatzivasileiou/forlackofabettername/internal/sim"

// Palette maps world entities to display colours.
type Palette struct {
	Background string
	Foreground string
	Indicator  string
	Bird       string
	Platforms  map[sim.PlatformKind]string
}

// DefaultPalette is the game's dark theme.
func DefaultPalette() Palette {
	return Palette{
		Background: "#1D201F",
		Foreground: "#D1D1D1",
		Indicator:  "#2A2E2D",
		Bird:       "#F8DC6B",
		Platforms: map[sim.PlatformKind]string{
			sim.KindCollapsing: "#79312D",
			sim.KindHookGrant:  "#273D3E",
			sim.KindSuperJump:  "#21282B",
		},
	}
}

// PlatformColor returns the colour for kind, falling back to the foreground.
func (p Palette) PlatformColor(kind sim.PlatformKind) string {
	if color, ok := p.Platforms[kind]; ok {
		return color
	}
	return p.Foreground
}
