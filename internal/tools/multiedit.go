package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/atelier-sh/atelier/internal/llm"
)

// MultiEditTool applies a sequence of edits to one file atomically. Either
// every edit applies or the file is left untouched.
type MultiEditTool struct{}

// NewMultiEditTool creates a new MultiEditTool.
func NewMultiEditTool() *MultiEditTool {
	return &MultiEditTool{}
}

// MultiEditArgs are the arguments for multiedit.
type MultiEditArgs struct {
	FilePath string          `json:"file_path"`
	Edits    []MultiEditItem `json:"edits"`
}

// MultiEditItem is one replacement within a multiedit call.
type MultiEditItem struct {
	OldString  string `json:"old_string"`
	NewString  string `json:"new_string"`
	ReplaceAll bool   `json:"replace_all,omitempty"`
}

func (t *MultiEditTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        MultiEditToolName,
		Description: "Apply multiple exact string replacements to one file in order. All edits succeed or none are written.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"file_path": map[string]any{
					"type":        "string",
					"description": "Absolute or workspace-relative path to the file to edit",
				},
				"edits": map[string]any{
					"type":        "array",
					"description": "Replacements applied in order, each against the result of the previous",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"old_string":  map[string]any{"type": "string"},
							"new_string":  map[string]any{"type": "string"},
							"replace_all": map[string]any{"type": "boolean"},
						},
						"required":             []string{"old_string", "new_string"},
						"additionalProperties": false,
					},
				},
			},
			"required":             []string{"file_path", "edits"},
			"additionalProperties": false,
		},
	}
}

func (t *MultiEditTool) Execute(ctx context.Context, args json.RawMessage, ec *Context) (any, error) {
	warning := WarnUnknownParams(args, []string{"file_path", "edits"})

	var a MultiEditArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, NewToolError(ErrInvalidParams, err.Error())
	}
	if a.FilePath == "" {
		return nil, NewToolError(ErrInvalidParams, "file_path is required")
	}
	if len(a.Edits) == 0 {
		return nil, NewToolError(ErrInvalidParams, "edits must not be empty")
	}

	path := resolvePath(a.FilePath, ec)
	ec.Log.Debug().Str("path", path).Int("edits", len(a.Edits)).Msg("multiedit file")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewToolError(ErrFileNotFound, a.FilePath)
		}
		return nil, NewToolErrorf(ErrExecutionFailed, "read error: %v", err)
	}

	content := string(data)
	total := 0
	for i, e := range a.Edits {
		if e.OldString == "" {
			return nil, NewToolErrorf(ErrInvalidParams, "edit %d: old_string must not be empty", i+1)
		}
		if e.OldString == e.NewString {
			return nil, NewToolErrorf(ErrInvalidParams, "edit %d: old_string and new_string are identical", i+1)
		}
		edited, count, err := applyEdit(content, e.OldString, e.NewString, e.ReplaceAll)
		if err != nil {
			var te *ToolError
			if errors.As(err, &te) {
				return nil, NewToolErrorf(te.Type, "edit %d: %s", i+1, te.Message)
			}
			return nil, err
		}
		content = edited
		total += count
	}

	mode := os.FileMode(0o644)
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode().Perm()
	}
	if err := atomicWrite(path, []byte(content), mode); err != nil {
		return nil, NewToolErrorf(ErrExecutionFailed, "write error: %v", err)
	}

	return warning + fmt.Sprintf("Edited %s (%d edits, %d replacement(s))", a.FilePath, len(a.Edits), total), nil
}
