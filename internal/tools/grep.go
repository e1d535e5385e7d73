package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/atelier-sh/atelier/internal/llm"
)

// GrepTool searches file contents with a regular expression.
type GrepTool struct {
	limits OutputLimits
}

// NewGrepTool creates a new GrepTool.
func NewGrepTool(limits OutputLimits) *GrepTool {
	return &GrepTool{limits: limits}
}

// GrepArgs are the arguments for grep.
type GrepArgs struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path,omitempty"`
	Include string `json:"include,omitempty"`
}

func (t *GrepTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        GrepToolName,
		Description: "Search file contents with a Go regular expression. Returns path:line: matches. Use include to filter files by glob.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"pattern": map[string]any{
					"type":        "string",
					"description": "Regular expression to search for",
				},
				"path": map[string]any{
					"type":        "string",
					"description": "Directory to search in (default: workspace root)",
				},
				"include": map[string]any{
					"type":        "string",
					"description": "Glob filter for file names, e.g. *.go",
				},
			},
			"required":             []string{"pattern"},
			"additionalProperties": false,
		},
	}
}

func (t *GrepTool) Execute(ctx context.Context, args json.RawMessage, ec *Context) (any, error) {
	warning := WarnUnknownParams(args, []string{"pattern", "path", "include"})

	var a GrepArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, NewToolError(ErrInvalidParams, err.Error())
	}
	if a.Pattern == "" {
		return nil, NewToolError(ErrInvalidParams, "pattern is required")
	}
	re, err := regexp.Compile(a.Pattern)
	if err != nil {
		return nil, NewToolErrorf(ErrInvalidParams, "invalid regex: %v", err)
	}
	if a.Include != "" && !doublestar.ValidatePattern(a.Include) {
		return nil, NewToolErrorf(ErrInvalidParams, "invalid include glob: %s", a.Include)
	}

	root := ec.WorkDir
	if a.Path != "" {
		root = resolvePath(a.Path, ec)
	}
	ec.Log.Debug().Str("pattern", a.Pattern).Str("root", root).Str("include", a.Include).Msg("grep")

	var sb strings.Builder
	lineCount := 0
	truncated := false

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if truncated {
			return filepath.SkipAll
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
		if a.Include != "" {
			ok, _ := doublestar.Match(a.Include, name)
			if !ok {
				return nil
			}
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		t.grepFile(path, rel, re, &sb, &lineCount, &truncated)
		return nil
	})
	if walkErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if os.IsNotExist(walkErr) {
			return nil, NewToolError(ErrFileNotFound, root)
		}
		return nil, NewToolErrorf(ErrExecutionFailed, "walk error: %v", walkErr)
	}

	if lineCount == 0 {
		return warning + "No matches found.", nil
	}

	output := strings.TrimSuffix(sb.String(), "\n")
	if truncated {
		output += fmt.Sprintf("\n\n[Output truncated after %d matching lines. Narrow the pattern to see more.]", t.limits.MaxLines)
	}
	return warning + output, nil
}

func (t *GrepTool) grepFile(path, rel string, re *regexp.Regexp, sb *strings.Builder, lineCount *int, truncated *bool) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	// Skip binary files cheaply.
	head := make([]byte, 512)
	n, _ := f.Read(head)
	if isBinaryContent(head[:n]) {
		return
	}
	if _, err := f.Seek(0, 0); err != nil {
		return
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if !re.MatchString(line) {
			continue
		}
		fmt.Fprintf(sb, "%s:%d: %s\n", rel, lineNo, line)
		*lineCount++
		if *lineCount >= t.limits.MaxLines || int64(sb.Len()) >= t.limits.MaxBytes {
			*truncated = true
			return
		}
	}
}
