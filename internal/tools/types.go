// Package tools provides the capability registry the agent dispatches model
// tool calls against, along with the file, search, shell, and theme tools.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/atelier-sh/atelier/internal/llm"
)

// Context is the per-turn execution context shared by reference with every
// tool invocation. Tools read from it; none of them mutate it.
type Context struct {
	WorkDir   string
	SessionID string
	Log       zerolog.Logger
}

// Tool is a callable capability with a declared input schema.
type Tool interface {
	Spec() llm.ToolSpec
	// Execute runs the tool. The returned value is classified into a text
	// or structured output by the dispatcher; a returned error becomes an
	// error output fed back to the model.
	Execute(ctx context.Context, args json.RawMessage, ec *Context) (any, error)
}

// ToolErrorType provides structured errors for agent retry logic.
type ToolErrorType string

const (
	ErrFileNotFound    ToolErrorType = "FILE_NOT_FOUND"
	ErrInvalidParams   ToolErrorType = "INVALID_PARAMS"
	ErrExecutionFailed ToolErrorType = "EXECUTION_FAILED"
	ErrBinaryFile      ToolErrorType = "BINARY_FILE"
	ErrFileTooLarge    ToolErrorType = "FILE_TOO_LARGE"
	ErrTimeout         ToolErrorType = "TIMEOUT"
)

// ToolError provides structured error information for retry logic.
type ToolError struct {
	Type    ToolErrorType `json:"type"`
	Message string        `json:"message"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewToolError creates a new ToolError.
func NewToolError(errType ToolErrorType, message string) *ToolError {
	return &ToolError{Type: errType, Message: message}
}

// NewToolErrorf creates a new ToolError with a formatted message.
func NewToolErrorf(errType ToolErrorType, format string, args ...any) *ToolError {
	return &ToolError{Type: errType, Message: fmt.Sprintf(format, args...)}
}

// OutputLimits caps tool output size.
type OutputLimits struct {
	MaxBytes int64
	MaxLines int
}

// DefaultOutputLimits returns the default output limits.
func DefaultOutputLimits() OutputLimits {
	return OutputLimits{
		MaxBytes: 64 * 1024,
		MaxLines: 2000,
	}
}

// Tool spec names.
const (
	ReadToolName      = "read"
	WriteToolName     = "write"
	EditToolName      = "edit"
	MultiEditToolName = "multiedit"
	GlobToolName      = "glob"
	GrepToolName      = "grep"
	LsToolName        = "ls"
	ShellToolName     = "shell"
	ThemeToolName     = "generate_theme"
)

// AllToolNames returns all valid tool spec names.
func AllToolNames() []string {
	return []string{
		ReadToolName,
		WriteToolName,
		EditToolName,
		MultiEditToolName,
		GlobToolName,
		GrepToolName,
		LsToolName,
		ShellToolName,
		ThemeToolName,
	}
}

var validToolNames = func() map[string]bool {
	m := make(map[string]bool)
	for _, name := range AllToolNames() {
		m[name] = true
	}
	return m
}()

// ValidToolName checks if a name is a valid tool spec name.
func ValidToolName(name string) bool {
	return validToolNames[name]
}
