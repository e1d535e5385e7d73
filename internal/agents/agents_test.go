package agents

import (
	"os"
	"path/filepath"
	"testing"
)

func writeProfile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "reviewer", `
name: reviewer
description: Reads code and comments on it
instructions: Review the code without editing anything.
tools: [read, grep, glob, ls]
`)

	p, err := Load(dir, "reviewer")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "reviewer" || len(p.Tools) != 4 {
		t.Errorf("profile = %+v", p)
	}
	if got := p.ToolNames(); len(got) != 4 {
		t.Errorf("tool names = %v", got)
	}
}

func TestLoadProfileDefaultsName(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "fixer", "instructions: Fix the failing tests.\n")

	p, err := Load(dir, "fixer")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "fixer" {
		t.Errorf("name = %q", p.Name)
	}
	if got := p.ToolNames(); len(got) == 0 {
		t.Error("empty tools should default to all")
	}
}

func TestLoadProfileUnknownTool(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "bad", `
instructions: do things
tools: [read, teleport]
`)
	if _, err := Load(dir, "bad"); err == nil {
		t.Fatal("expected error for unknown tool")
	}
}

func TestLoadProfileMissingInstructions(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "empty", "name: empty\n")
	if _, err := Load(dir, "empty"); err == nil {
		t.Fatal("expected error")
	}
}

func TestListSkipsBroken(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "good", "instructions: ok\n")
	writeProfile(t, dir, "broken", "tools: [nope]\ninstructions: x\n")

	profiles, err := List(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(profiles) != 1 || profiles[0].Name != "good" {
		t.Errorf("profiles = %+v", profiles)
	}
}

func TestListMissingDir(t *testing.T) {
	profiles, err := List(filepath.Join(t.TempDir(), "absent"))
	if err != nil || profiles != nil {
		t.Errorf("got %v, %v", profiles, err)
	}
}

func TestDefaultProfileValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Error(err)
	}
}
