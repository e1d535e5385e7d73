// Package agents loads named agent profiles: instructions plus a tool
// allowlist, stored as YAML files in the config directory.
package agents

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/atelier-sh/atelier/internal/tools"
)

// Profile is one named agent configuration.
type Profile struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description,omitempty"`
	Instructions string   `yaml:"instructions"`
	Tools        []string `yaml:"tools,omitempty"`
}

// Validate checks the profile for structural problems.
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("agent profile missing name")
	}
	if strings.TrimSpace(p.Instructions) == "" {
		return fmt.Errorf("agent %q missing instructions", p.Name)
	}
	for _, name := range p.Tools {
		if !tools.ValidToolName(name) {
			return fmt.Errorf("agent %q references unknown tool %q", p.Name, name)
		}
	}
	return nil
}

// ToolNames returns the profile's tool allowlist, defaulting to all tools.
func (p *Profile) ToolNames() []string {
	if len(p.Tools) == 0 {
		return tools.AllToolNames()
	}
	return p.Tools
}

// Default is the profile used when none is named.
func Default() *Profile {
	return &Profile{
		Name: "atelier",
		Instructions: "You are atelier, a terminal coding and design agent. " +
			"Work in the user's project directory using the available tools. " +
			"Prefer reading files before editing them, keep edits minimal, and " +
			"report what you changed.",
		Tools: tools.AllToolNames(),
	}
}

// Load reads the named profile from dir. The file is <name>.yaml.
func Load(dir, name string) (*Profile, error) {
	data, err := os.ReadFile(filepath.Join(dir, name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("agent profile %q: %w", name, err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("agent profile %q: %w", name, err)
	}
	if p.Name == "" {
		p.Name = name
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns the profiles available in dir, skipping unparseable files.
func List(dir string) ([]*Profile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []*Profile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".yaml")
		p, err := Load(dir, name)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
