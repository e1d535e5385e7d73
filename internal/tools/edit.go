package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/atelier-sh/atelier/internal/llm"
)

// EditTool performs an exact string replacement in a file.
type EditTool struct{}

// NewEditTool creates a new EditTool.
func NewEditTool() *EditTool {
	return &EditTool{}
}

// EditArgs are the arguments for edit.
type EditArgs struct {
	FilePath   string `json:"file_path"`
	OldString  string `json:"old_string"`
	NewString  string `json:"new_string"`
	ReplaceAll bool   `json:"replace_all,omitempty"`
}

func (t *EditTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        EditToolName,
		Description: "Replace an exact string in a file. old_string must match exactly once unless replace_all is set.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"file_path": map[string]any{
					"type":        "string",
					"description": "Absolute or workspace-relative path to the file to edit",
				},
				"old_string": map[string]any{
					"type":        "string",
					"description": "Exact text to replace, including whitespace",
				},
				"new_string": map[string]any{
					"type":        "string",
					"description": "Replacement text",
				},
				"replace_all": map[string]any{
					"type":        "boolean",
					"description": "Replace every occurrence instead of requiring a unique match",
				},
			},
			"required":             []string{"file_path", "old_string", "new_string"},
			"additionalProperties": false,
		},
	}
}

func (t *EditTool) Execute(ctx context.Context, args json.RawMessage, ec *Context) (any, error) {
	warning := WarnUnknownParams(args, []string{"file_path", "old_string", "new_string", "replace_all"})

	var a EditArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, NewToolError(ErrInvalidParams, err.Error())
	}
	if a.FilePath == "" {
		return nil, NewToolError(ErrInvalidParams, "file_path is required")
	}
	if a.OldString == "" {
		return nil, NewToolError(ErrInvalidParams, "old_string must not be empty")
	}
	if a.OldString == a.NewString {
		return nil, NewToolError(ErrInvalidParams, "old_string and new_string are identical")
	}

	path := resolvePath(a.FilePath, ec)
	ec.Log.Debug().Str("path", path).Bool("replace_all", a.ReplaceAll).Msg("edit file")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewToolError(ErrFileNotFound, a.FilePath)
		}
		return nil, NewToolErrorf(ErrExecutionFailed, "read error: %v", err)
	}

	content := string(data)
	edited, count, err := applyEdit(content, a.OldString, a.NewString, a.ReplaceAll)
	if err != nil {
		return nil, err
	}

	mode := os.FileMode(0o644)
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode().Perm()
	}
	if err := atomicWrite(path, []byte(edited), mode); err != nil {
		return nil, NewToolErrorf(ErrExecutionFailed, "write error: %v", err)
	}

	return warning + fmt.Sprintf("Edited %s (%d replacement(s))", a.FilePath, count), nil
}

// applyEdit replaces oldStr with newStr in content. Without replaceAll the
// match must be unique.
func applyEdit(content, oldStr, newStr string, replaceAll bool) (string, int, error) {
	count := strings.Count(content, oldStr)
	if count == 0 {
		return "", 0, NewToolError(ErrExecutionFailed, "old_string not found in file")
	}
	if count > 1 && !replaceAll {
		return "", 0, NewToolErrorf(ErrExecutionFailed,
			"old_string matches %d times; add more context to make it unique or set replace_all", count)
	}
	if replaceAll {
		return strings.ReplaceAll(content, oldStr, newStr), count, nil
	}
	return strings.Replace(content, oldStr, newStr, 1), 1, nil
}
