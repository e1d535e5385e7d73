package tools

import (
	"context"
	"encoding/json"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/atelier-sh/atelier/internal/llm"
)

// ThemeTool derives a color palette from a seed color. The result is a
// structured value so the model receives the palette as JSON.
type ThemeTool struct{}

// NewThemeTool creates a new ThemeTool.
func NewThemeTool() *ThemeTool {
	return &ThemeTool{}
}

// ThemeArgs are the arguments for generate_theme.
type ThemeArgs struct {
	SeedColor string `json:"seed_color"`
	Mode      string `json:"mode,omitempty"`
}

// Theme is the generated palette.
type Theme struct {
	Seed       string   `json:"seed"`
	Mode       string   `json:"mode"`
	Background string   `json:"background"`
	Foreground string   `json:"foreground"`
	Primary    string   `json:"primary"`
	Secondary  string   `json:"secondary"`
	Accent     string   `json:"accent"`
	Muted      string   `json:"muted"`
	Shades     []string `json:"shades"`
}

func (t *ThemeTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        ThemeToolName,
		Description: "Generate a color theme from a seed color. Returns a JSON palette with background, foreground, primary, secondary, accent, muted, and a shade ramp.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"seed_color": map[string]any{
					"type":        "string",
					"description": "Seed color as a hex string, e.g. #4F46E5",
				},
				"mode": map[string]any{
					"type":        "string",
					"enum":        []string{"light", "dark"},
					"description": "Palette mode (default: dark)",
				},
			},
			"required":             []string{"seed_color"},
			"additionalProperties": false,
		},
	}
}

func (t *ThemeTool) Execute(ctx context.Context, args json.RawMessage, ec *Context) (any, error) {
	var a ThemeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, NewToolError(ErrInvalidParams, err.Error())
	}
	if a.SeedColor == "" {
		return nil, NewToolError(ErrInvalidParams, "seed_color is required")
	}
	seed, err := colorful.Hex(a.SeedColor)
	if err != nil {
		return nil, NewToolErrorf(ErrInvalidParams, "invalid seed_color: %v", err)
	}
	mode := a.Mode
	switch mode {
	case "":
		mode = "dark"
	case "light", "dark":
	default:
		return nil, NewToolErrorf(ErrInvalidParams, "mode must be light or dark, got %q", a.Mode)
	}

	ec.Log.Debug().Str("seed", a.SeedColor).Str("mode", mode).Msg("generate theme")

	return buildTheme(seed, mode), nil
}

// buildTheme derives the palette in HCL space so hue rotations keep
// perceived lightness stable.
func buildTheme(seed colorful.Color, mode string) *Theme {
	h, c, l := seed.Hcl()

	bgL, fgL := 0.12, 0.95
	if mode == "light" {
		bgL, fgL = 0.97, 0.15
	}

	background := colorful.Hcl(h, math.Min(c, 0.04), bgL).Clamped()
	foreground := colorful.Hcl(h, math.Min(c, 0.03), fgL).Clamped()
	primary := seed.Clamped()
	secondary := colorful.Hcl(rotateHue(h, 30), c*0.8, l).Clamped()
	accent := colorful.Hcl(rotateHue(h, 180), c, l).Clamped()
	muted := colorful.Hcl(h, c*0.25, (bgL+l)/2).Clamped()

	shades := make([]string, 0, 9)
	for i := 1; i <= 9; i++ {
		shadeL := float64(i) / 10.0
		shades = append(shades, colorful.Hcl(h, c, shadeL).Clamped().Hex())
	}

	return &Theme{
		Seed:       primary.Hex(),
		Mode:       mode,
		Background: background.Hex(),
		Foreground: foreground.Hex(),
		Primary:    primary.Hex(),
		Secondary:  secondary.Hex(),
		Accent:     accent.Hex(),
		Muted:      muted.Hex(),
		Shades:     shades,
	}
}

func rotateHue(h, degrees float64) float64 {
	return math.Mod(h+degrees+360, 360)
}
