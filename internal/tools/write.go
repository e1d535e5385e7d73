package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/atelier-sh/atelier/internal/llm"
)

// WriteTool writes file contents atomically.
type WriteTool struct{}

// NewWriteTool creates a new WriteTool.
func NewWriteTool() *WriteTool {
	return &WriteTool{}
}

// WriteArgs are the arguments for write.
type WriteArgs struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

func (t *WriteTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        WriteToolName,
		Description: "Write content to a file, creating it and any parent directories if needed. Overwrites existing content.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"file_path": map[string]any{
					"type":        "string",
					"description": "Absolute or workspace-relative path to the file to write",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Full content to write",
				},
			},
			"required":             []string{"file_path", "content"},
			"additionalProperties": false,
		},
	}
}

func (t *WriteTool) Execute(ctx context.Context, args json.RawMessage, ec *Context) (any, error) {
	warning := WarnUnknownParams(args, []string{"file_path", "content"})

	var a WriteArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, NewToolError(ErrInvalidParams, err.Error())
	}
	if a.FilePath == "" {
		return nil, NewToolError(ErrInvalidParams, "file_path is required")
	}

	path := resolvePath(a.FilePath, ec)
	ec.Log.Debug().Str("path", path).Int("bytes", len(a.Content)).Msg("write file")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, NewToolErrorf(ErrExecutionFailed, "mkdir error: %v", err)
	}

	// Preserve mode of an existing file; new files get 0644.
	mode := fs.FileMode(0o644)
	existed := false
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
		existed = true
	}

	if err := atomicWrite(path, []byte(a.Content), mode); err != nil {
		return nil, NewToolErrorf(ErrExecutionFailed, "write error: %v", err)
	}

	verb := "Created"
	if existed {
		verb = "Updated"
	}
	lines := countLines(a.Content)
	return warning + fmt.Sprintf("%s %s (%d lines)", verb, a.FilePath, lines), nil
}

// atomicWrite writes data to a temp file in the same directory and renames
// it over the target, so readers never observe a partial write.
func atomicWrite(path string, data []byte, mode fs.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
