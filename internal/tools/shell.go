package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/atelier-sh/atelier/internal/llm"
)

const (
	shellDefaultTimeout = 60 * time.Second
	shellMaxTimeout     = 300 * time.Second
)

// ShellTool runs a command through the shell in the workspace directory.
type ShellTool struct {
	limits OutputLimits
}

// NewShellTool creates a new ShellTool.
func NewShellTool(limits OutputLimits) *ShellTool {
	return &ShellTool{limits: limits}
}

// ShellArgs are the arguments for shell.
type ShellArgs struct {
	Command string `json:"command"`
	Timeout int    `json:"timeout,omitempty"`
}

func (t *ShellTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        ShellToolName,
		Description: "Run a shell command in the workspace directory. Returns stdout, stderr, and the exit code.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"command": map[string]any{
					"type":        "string",
					"description": "Command to run with sh -c",
				},
				"timeout": map[string]any{
					"type":        "integer",
					"description": "Timeout in seconds (default 60, max 300)",
				},
			},
			"required":             []string{"command"},
			"additionalProperties": false,
		},
	}
}

func (t *ShellTool) Execute(ctx context.Context, args json.RawMessage, ec *Context) (any, error) {
	warning := WarnUnknownParams(args, []string{"command", "timeout"})

	var a ShellArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, NewToolError(ErrInvalidParams, err.Error())
	}
	if strings.TrimSpace(a.Command) == "" {
		return nil, NewToolError(ErrInvalidParams, "command is required")
	}

	timeout := shellDefaultTimeout
	if a.Timeout > 0 {
		timeout = time.Duration(a.Timeout) * time.Second
		if timeout > shellMaxTimeout {
			timeout = shellMaxTimeout
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ec.Log.Debug().Str("command", a.Command).Dur("timeout", timeout).Msg("shell")

	cmd := exec.CommandContext(runCtx, "sh", "-c", a.Command)
	cmd.Dir = ec.WorkDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if runCtx.Err() == context.DeadlineExceeded {
		return nil, NewToolErrorf(ErrTimeout, "command timed out after %s", timeout)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, NewToolErrorf(ErrExecutionFailed, "command failed to start: %v", runErr)
		}
	}

	output := formatShellOutput(stdout.String(), stderr.String(), exitCode, t.limits)
	if exitCode != 0 {
		return nil, NewToolError(ErrExecutionFailed, output)
	}
	return warning + output, nil
}

// formatShellOutput combines stdout, stderr, and the exit code into the text
// the model sees, truncating each stream to the configured limits.
func formatShellOutput(stdout, stderr string, exitCode int, limits OutputLimits) string {
	var sb strings.Builder
	if stdout != "" {
		sb.WriteString(truncateOutput(stdout, limits))
	}
	if stderr != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("stderr:\n")
		sb.WriteString(truncateOutput(stderr, limits))
	}
	if exitCode != 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "exit code: %d", exitCode)
	}
	if sb.Len() == 0 {
		return "(no output)"
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// truncateOutput caps s to the configured byte and line limits.
func truncateOutput(s string, limits OutputLimits) string {
	truncated := false
	if int64(len(s)) > limits.MaxBytes {
		s = s[:limits.MaxBytes]
		truncated = true
	}
	lines := strings.Split(s, "\n")
	if len(lines) > limits.MaxLines {
		lines = lines[:limits.MaxLines]
		s = strings.Join(lines, "\n")
		truncated = true
	}
	if truncated {
		s += "\n[output truncated]"
	}
	return s
}
