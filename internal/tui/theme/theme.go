// Package theme contains theme-related code. This is influenced by Material
// Design, although that analogy only goes so far in a text UI.
package theme

import (
	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"
)

var (
	defaultColors = Colors{
		// Using the terminal background. See
		// https://github.com/charmbracelet/bubbles/issues/572
		Surface: lipgloss.NoColor{},
		OnSurface: lipgloss.AdaptiveColor{
			Light: "#222222",
			Dark:  "#BBBBBB",
		},
		OnSurfaceVariant: lipgloss.AdaptiveColor{
			Light: "#444444",
			Dark:  "#888888",
		},
		Primary: lipgloss.CompleteAdaptiveColor{
			Light: lipgloss.CompleteColor{
				TrueColor: "#68a3ff",
				ANSI256:   "33",
				ANSI:      "12",
			},
			Dark: lipgloss.CompleteColor{
				TrueColor: "#1c3965",
				ANSI256:   "18",
				ANSI:      "4",
			},
		},
		OnPrimary: lipgloss.AdaptiveColor{
			Light: "#111111",
			Dark:  "#CCCCCC",
		},
		Error: lipgloss.CompleteAdaptiveColor{
			Light: lipgloss.CompleteColor{
				TrueColor: "#f3c1c3",
				ANSI256:   "217",
				ANSI:      "9",
			},
			Dark: lipgloss.CompleteColor{
				TrueColor: "#a8242a",
				ANSI256:   "124",
				ANSI:      "1",
			},
		},
		OnError: lipgloss.CompleteAdaptiveColor{
			Light: lipgloss.CompleteColor{
				TrueColor: "#d22f37",
				ANSI256:   "124",
				ANSI:      "1",
			},
			Dark: lipgloss.CompleteColor{
				TrueColor: "#CCCCCC",
				ANSI256:   "252",
				ANSI:      "7",
			},
		},
	}

	base = lipgloss.NewStyle().
		Foreground(defaultColors.OnSurface).
		Background(defaultColors.Surface)
)

// Default contains the default theme.
var Default = Theme{
	Base: base,
	Text: Text{
		Normal: base,
		Important: base.
			Bold(true),
		Unimportant: base.
			Foreground(defaultColors.OnSurfaceVariant),
	},
	Colors: defaultColors,
	Header: base.
		Bold(true).
		Foreground(defaultColors.OnPrimary).
		Background(defaultColors.Primary).
		Padding(0, 1),
	Selected: base.
		Bold(true).
		Foreground(defaultColors.OnPrimary).
		Background(defaultColors.Primary),
	Status: base.
		Padding(0, 1),
	StatusError: base.
		Foreground(defaultColors.OnError).
		Background(defaultColors.Error).
		Padding(0, 1),
	Targets: Gradient{
		LightLow:  "#3a8a1e",
		LightHigh: "#d22f37",
		DarkLow:   "#5ad02d",
		DarkHigh:  "#e0474f",
	},
}

// Theme contains common styles for use throughout the program.
type Theme struct {
	Base        lipgloss.Style // Base style that everything else inherits from
	Text        Text
	Colors      Colors
	Header      lipgloss.Style
	Selected    lipgloss.Style
	Status      lipgloss.Style
	StatusError lipgloss.Style

	// Targets colors rule targets from permissive (0) to restrictive (1).
	Targets Gradient
}

// Text contains common text styles.
type Text struct {
	Normal      lipgloss.Style
	Important   lipgloss.Style
	Unimportant lipgloss.Style
}

// Colors contains some common colors that recur through the theme.
type Colors struct {
	Surface          lipgloss.TerminalColor
	OnSurface        lipgloss.TerminalColor
	OnSurfaceVariant lipgloss.TerminalColor
	Primary          lipgloss.TerminalColor
	OnPrimary        lipgloss.TerminalColor
	Error            lipgloss.TerminalColor
	OnError          lipgloss.TerminalColor
}

// Creates a colorful.Color from a hex string or returns primary red so that the
// mistake (hopefully) stands out.
func hexColor(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		return colorful.Color{R: 1}
	}
	return c
}

// Gradient contains a color gradient representing a fraction from 0 to 1.
type Gradient struct {
	DarkLow   string
	DarkHigh  string
	LightLow  string
	LightHigh string
}

// At returns the color for the given value. The value must be in the interval
// [0, 1].
func (g Gradient) At(v float64) lipgloss.TerminalColor {
	return lipgloss.AdaptiveColor{
		Light: hexColor(g.LightLow).BlendHcl(hexColor(g.LightHigh), v).Clamped().Hex(),
		Dark:  hexColor(g.DarkLow).BlendHcl(hexColor(g.DarkHigh), v).Clamped().Hex(),
	}
}

// Target returns the style for a rule target such as ACCEPT or DROP.
func (t Theme) Target(target string) lipgloss.Style {
	var v float64
	switch target {
	case "ACCEPT":
		v = 0
	case "DROP", "REJECT":
		v = 1
	default:
		v = 0.5
	}
	return t.Base.Foreground(t.Targets.At(v)).Inline(true)
}
