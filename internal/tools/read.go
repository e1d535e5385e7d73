package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/atelier-sh/atelier/internal/llm"
)

// ReadTool reads file contents with line numbers and range pagination.
type ReadTool struct {
	limits OutputLimits
}

// NewReadTool creates a new ReadTool.
func NewReadTool(limits OutputLimits) *ReadTool {
	return &ReadTool{limits: limits}
}

// ReadArgs are the arguments for read.
type ReadArgs struct {
	FilePath  string `json:"file_path"`
	StartLine int    `json:"start_line,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
}

func (t *ReadTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        ReadToolName,
		Description: "Read file contents. Returns line-numbered output. Use start_line/end_line for pagination.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"file_path": map[string]any{
					"type":        "string",
					"description": "Absolute or workspace-relative path to the file to read",
				},
				"start_line": map[string]any{
					"type":        "integer",
					"description": "1-indexed start line (default: 1)",
				},
				"end_line": map[string]any{
					"type":        "integer",
					"description": "1-indexed end line (default: EOF)",
				},
			},
			"required":             []string{"file_path"},
			"additionalProperties": false,
		},
	}
}

func (t *ReadTool) Execute(ctx context.Context, args json.RawMessage, ec *Context) (any, error) {
	warning := WarnUnknownParams(args, []string{"file_path", "start_line", "end_line"})

	var a ReadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, NewToolError(ErrInvalidParams, err.Error())
	}
	if a.FilePath == "" {
		return nil, NewToolError(ErrInvalidParams, "file_path is required")
	}

	path := resolvePath(a.FilePath, ec)
	ec.Log.Debug().Str("path", path).Msg("read file")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewToolError(ErrFileNotFound, a.FilePath)
		}
		return nil, NewToolErrorf(ErrExecutionFailed, "read error: %v", err)
	}

	if isBinaryContent(data) {
		return nil, NewToolErrorf(ErrBinaryFile, "%s appears to be a binary file", a.FilePath)
	}

	lines := strings.Split(string(data), "\n")
	totalLines := len(lines)

	start := 0
	if a.StartLine > 0 {
		start = a.StartLine - 1
	}
	if start >= totalLines {
		return nil, NewToolErrorf(ErrInvalidParams, "start_line %d exceeds file length %d", a.StartLine, totalLines)
	}

	end := totalLines
	if a.EndLine > 0 && a.EndLine < totalLines {
		end = a.EndLine
	}
	if start >= end {
		return warning + "No content in requested range.", nil
	}

	selected := lines[start:end]
	truncated := false
	if len(selected) > t.limits.MaxLines {
		selected = selected[:t.limits.MaxLines]
		truncated = true
	}

	var sb strings.Builder
	for i, line := range selected {
		sb.WriteString(fmt.Sprintf("%d: %s\n", start+i+1, line))
	}
	output := strings.TrimSuffix(sb.String(), "\n")

	if int64(len(output)) > t.limits.MaxBytes {
		output = output[:t.limits.MaxBytes]
		truncated = true
	}
	if truncated {
		output += fmt.Sprintf("\n\n[Output truncated. Total lines: %d. Use start_line/end_line for pagination.]", totalLines)
	}

	return warning + output, nil
}

// isBinaryContent detects if content is binary using http.DetectContentType.
func isBinaryContent(data []byte) bool {
	if len(data) == 0 {
		return false
	}

	sample := data
	if len(sample) > 512 {
		sample = sample[:512]
	}

	contentType := http.DetectContentType(sample)
	if strings.HasPrefix(contentType, "text/") {
		return false
	}
	if strings.Contains(contentType, "json") || strings.Contains(contentType, "xml") {
		return false
	}

	for _, b := range sample {
		if b == 0 {
			return true
		}
	}
	return false
}
