package tools

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
}

func TestShellToolStdout(t *testing.T) {
	skipWithoutShell(t)
	tool := NewShellTool(DefaultOutputLimits())
	args := mustArgs(t, ShellArgs{Command: "echo hello"})

	out, err := tool.Execute(context.Background(), args, testContext(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.(string), "hello") {
		t.Errorf("output = %q", out)
	}
}

func TestShellToolRunsInWorkDir(t *testing.T) {
	skipWithoutShell(t)
	dir := t.TempDir()
	writeTestFile(t, dir, "marker.txt", "x")

	tool := NewShellTool(DefaultOutputLimits())
	out, err := tool.Execute(context.Background(), mustArgs(t, ShellArgs{Command: "ls"}), testContext(dir))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.(string), "marker.txt") {
		t.Errorf("output = %q", out)
	}
}

func TestShellToolNonZeroExit(t *testing.T) {
	skipWithoutShell(t)
	tool := NewShellTool(DefaultOutputLimits())
	args := mustArgs(t, ShellArgs{Command: "echo oops >&2; exit 3"})

	_, err := tool.Execute(context.Background(), args, testContext(t.TempDir()))
	var te *ToolError
	if !errors.As(err, &te) || te.Type != ErrExecutionFailed {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(te.Message, "exit code: 3") || !strings.Contains(te.Message, "oops") {
		t.Errorf("message = %q", te.Message)
	}
}

func TestShellToolTimeout(t *testing.T) {
	skipWithoutShell(t)
	tool := NewShellTool(DefaultOutputLimits())
	args := mustArgs(t, ShellArgs{Command: "sleep 5", Timeout: 1})

	_, err := tool.Execute(context.Background(), args, testContext(t.TempDir()))
	var te *ToolError
	if !errors.As(err, &te) || te.Type != ErrTimeout {
		t.Fatalf("err = %v", err)
	}
}

func TestFormatShellOutput(t *testing.T) {
	limits := DefaultOutputLimits()
	if got := formatShellOutput("", "", 0, limits); got != "(no output)" {
		t.Errorf("empty = %q", got)
	}
	got := formatShellOutput("out\n", "err\n", 2, limits)
	for _, want := range []string{"out", "stderr:", "err", "exit code: 2"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in %q", want, got)
		}
	}
}

func TestTruncateOutput(t *testing.T) {
	limits := OutputLimits{MaxBytes: 1024, MaxLines: 3}
	in := "1\n2\n3\n4\n5"
	got := truncateOutput(in, limits)
	if !strings.Contains(got, "[output truncated]") {
		t.Errorf("got %q", got)
	}
	if strings.Contains(got, "4") {
		t.Errorf("line past limit kept: %q", got)
	}
}
