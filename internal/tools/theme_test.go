package tools

import (
	"context"
	"errors"
	"regexp"
	"testing"
)

var hexRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func TestThemeToolPalette(t *testing.T) {
	tool := NewThemeTool()
	args := mustArgs(t, ThemeArgs{SeedColor: "#4F46E5"})

	out, err := tool.Execute(context.Background(), args, testContext(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	theme, ok := out.(*Theme)
	if !ok {
		t.Fatalf("out = %T", out)
	}

	if theme.Mode != "dark" {
		t.Errorf("default mode = %q", theme.Mode)
	}
	for name, hex := range map[string]string{
		"background": theme.Background,
		"foreground": theme.Foreground,
		"primary":    theme.Primary,
		"secondary":  theme.Secondary,
		"accent":     theme.Accent,
		"muted":      theme.Muted,
	} {
		if !hexRe.MatchString(hex) {
			t.Errorf("%s = %q", name, hex)
		}
	}
	if len(theme.Shades) != 9 {
		t.Errorf("shades = %d", len(theme.Shades))
	}
}

func TestThemeToolLightMode(t *testing.T) {
	tool := NewThemeTool()
	out, err := tool.Execute(context.Background(), mustArgs(t, ThemeArgs{SeedColor: "#22C55E", Mode: "light"}), testContext(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	theme := out.(*Theme)
	if theme.Mode != "light" {
		t.Errorf("mode = %q", theme.Mode)
	}
	if theme.Background == theme.Foreground {
		t.Error("background and foreground identical")
	}
}

func TestThemeToolInvalidSeed(t *testing.T) {
	tool := NewThemeTool()
	_, err := tool.Execute(context.Background(), mustArgs(t, ThemeArgs{SeedColor: "not-a-color"}), testContext(t.TempDir()))
	var te *ToolError
	if !errors.As(err, &te) || te.Type != ErrInvalidParams {
		t.Fatalf("err = %v", err)
	}
}

func TestThemeToolInvalidMode(t *testing.T) {
	tool := NewThemeTool()
	_, err := tool.Execute(context.Background(), mustArgs(t, ThemeArgs{SeedColor: "#000000", Mode: "sepia"}), testContext(t.TempDir()))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestRegistryDefaults(t *testing.T) {
	reg, err := NewDefaultRegistry(nil, DefaultOutputLimits())
	if err != nil {
		t.Fatal(err)
	}
	if got, want := len(reg.Names()), len(AllToolNames()); got != want {
		t.Errorf("registered %d tools, want %d", got, want)
	}
	if _, ok := reg.Get(ThemeToolName); !ok {
		t.Error("theme tool missing")
	}
}

func TestRegistryRejectsUnknownName(t *testing.T) {
	if _, err := NewDefaultRegistry([]string{"teleport"}, DefaultOutputLimits()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRegistrySubset(t *testing.T) {
	reg, err := NewDefaultRegistry([]string{ReadToolName, GrepToolName}, DefaultOutputLimits())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := reg.Get(WriteToolName); ok {
		t.Error("write registered despite subset")
	}
	specs := reg.Specs()
	if len(specs) != 2 || specs[0].Name != ReadToolName || specs[1].Name != GrepToolName {
		t.Errorf("specs = %+v", specs)
	}
}
