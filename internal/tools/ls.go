package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/atelier-sh/atelier/internal/llm"
)

// LsTool lists the entries of a directory.
type LsTool struct{}

// NewLsTool creates a new LsTool.
func NewLsTool() *LsTool {
	return &LsTool{}
}

// LsArgs are the arguments for ls.
type LsArgs struct {
	Path       string `json:"path,omitempty"`
	ShowHidden bool   `json:"show_hidden,omitempty"`
}

func (t *LsTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        LsToolName,
		Description: "List directory entries. Directories are listed first with a trailing slash.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Directory to list (default: workspace root)",
				},
				"show_hidden": map[string]any{
					"type":        "boolean",
					"description": "Include dotfiles",
				},
			},
			"additionalProperties": false,
		},
	}
}

func (t *LsTool) Execute(ctx context.Context, args json.RawMessage, ec *Context) (any, error) {
	warning := WarnUnknownParams(args, []string{"path", "show_hidden"})

	var a LsArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, NewToolError(ErrInvalidParams, err.Error())
		}
	}

	dir := ec.WorkDir
	if a.Path != "" {
		dir = resolvePath(a.Path, ec)
	}
	ec.Log.Debug().Str("path", dir).Msg("ls")

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewToolError(ErrFileNotFound, dir)
		}
		return nil, NewToolErrorf(ErrExecutionFailed, "readdir error: %v", err)
	}

	var dirs, files []string
	for _, e := range entries {
		name := e.Name()
		if !a.ShowHidden && strings.HasPrefix(name, ".") {
			continue
		}
		if e.IsDir() {
			dirs = append(dirs, name+"/")
		} else {
			info, err := e.Info()
			if err != nil {
				files = append(files, name)
				continue
			}
			files = append(files, fmt.Sprintf("%s (%d bytes)", name, info.Size()))
		}
	}
	sort.Strings(dirs)
	sort.Strings(files)

	if len(dirs) == 0 && len(files) == 0 {
		return warning + "Empty directory.", nil
	}

	var sb strings.Builder
	for _, d := range dirs {
		sb.WriteString(d)
		sb.WriteByte('\n')
	}
	for _, f := range files {
		sb.WriteString(f)
		sb.WriteByte('\n')
	}
	return warning + strings.TrimSuffix(sb.String(), "\n"), nil
}
