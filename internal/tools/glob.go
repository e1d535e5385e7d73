package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/atelier-sh/atelier/internal/llm"
)

const globMaxResults = 200

// GlobTool finds files matching a doublestar pattern, newest first.
type GlobTool struct{}

// NewGlobTool creates a new GlobTool.
func NewGlobTool() *GlobTool {
	return &GlobTool{}
}

// GlobArgs are the arguments for glob.
type GlobArgs struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path,omitempty"`
}

func (t *GlobTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        GlobToolName,
		Description: "Find files matching a glob pattern such as **/*.go. Results are sorted by modification time, newest first.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"pattern": map[string]any{
					"type":        "string",
					"description": "Glob pattern, ** matches any number of directories",
				},
				"path": map[string]any{
					"type":        "string",
					"description": "Directory to search in (default: workspace root)",
				},
			},
			"required":             []string{"pattern"},
			"additionalProperties": false,
		},
	}
}

func (t *GlobTool) Execute(ctx context.Context, args json.RawMessage, ec *Context) (any, error) {
	warning := WarnUnknownParams(args, []string{"pattern", "path"})

	var a GlobArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, NewToolError(ErrInvalidParams, err.Error())
	}
	if a.Pattern == "" {
		return nil, NewToolError(ErrInvalidParams, "pattern is required")
	}
	if !doublestar.ValidatePattern(a.Pattern) {
		return nil, NewToolErrorf(ErrInvalidParams, "invalid glob pattern: %s", a.Pattern)
	}

	root := ec.WorkDir
	if a.Path != "" {
		root = resolvePath(a.Path, ec)
	}
	ec.Log.Debug().Str("pattern", a.Pattern).Str("root", root).Msg("glob")

	type match struct {
		path string
		mod  time.Time
	}
	var matches []match

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		ok, err := doublestar.Match(a.Pattern, filepath.ToSlash(rel))
		if err != nil || !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		matches = append(matches, match{path: rel, mod: info.ModTime()})
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if os.IsNotExist(err) {
			return nil, NewToolError(ErrFileNotFound, root)
		}
		return nil, NewToolErrorf(ErrExecutionFailed, "walk error: %v", err)
	}

	if len(matches) == 0 {
		return warning + "No files matched.", nil
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].mod.After(matches[j].mod)
	})

	truncated := false
	if len(matches) > globMaxResults {
		matches = matches[:globMaxResults]
		truncated = true
	}

	var sb strings.Builder
	for _, m := range matches {
		sb.WriteString(m.path)
		sb.WriteByte('\n')
	}
	output := strings.TrimSuffix(sb.String(), "\n")
	if truncated {
		output += fmt.Sprintf("\n\n[Showing first %d matches. Narrow the pattern to see more.]", globMaxResults)
	}
	return warning + output, nil
}
