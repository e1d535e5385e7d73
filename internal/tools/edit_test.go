package tools

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func testContext(dir string) *Context {
	return &Context{WorkDir: dir, SessionID: "sess-test", Log: zerolog.Nop()}
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func mustArgs(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestApplyEdit(t *testing.T) {
	cases := []struct {
		name       string
		content    string
		oldStr     string
		newStr     string
		replaceAll bool
		want       string
		wantCount  int
		wantErr    ToolErrorType
	}{
		{name: "unique match", content: "a b c", oldStr: "b", newStr: "x", want: "a x c", wantCount: 1},
		{name: "not found", content: "a b c", oldStr: "z", newStr: "x", wantErr: ErrExecutionFailed},
		{name: "ambiguous", content: "a a", oldStr: "a", newStr: "x", wantErr: ErrExecutionFailed},
		{name: "replace all", content: "a a a", oldStr: "a", newStr: "x", replaceAll: true, want: "x x x", wantCount: 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, count, err := applyEdit(tc.content, tc.oldStr, tc.newStr, tc.replaceAll)
			if tc.wantErr != "" {
				var te *ToolError
				if !errors.As(err, &te) || te.Type != tc.wantErr {
					t.Fatalf("err = %v, want type %s", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want || count != tc.wantCount {
				t.Errorf("got %q (%d), want %q (%d)", got, count, tc.want, tc.wantCount)
			}
		})
	}
}

func TestEditToolExecute(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "greet.go", "package main\n\nfunc greet() string { return \"hi\" }\n")

	tool := NewEditTool()
	args := mustArgs(t, EditArgs{
		FilePath:  "greet.go",
		OldString: `return "hi"`,
		NewString: `return "hello"`,
	})
	if _, err := tool.Execute(context.Background(), args, testContext(dir)); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "greet.go"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "package main\n\nfunc greet() string { return \"hello\" }\n" {
		t.Errorf("content = %q", data)
	}
}

func TestEditToolMissingFile(t *testing.T) {
	tool := NewEditTool()
	args := mustArgs(t, EditArgs{FilePath: "nope.txt", OldString: "a", NewString: "b"})

	_, err := tool.Execute(context.Background(), args, testContext(t.TempDir()))
	var te *ToolError
	if !errors.As(err, &te) || te.Type != ErrFileNotFound {
		t.Fatalf("err = %v", err)
	}
}

func TestMultiEditAllOrNothing(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "f.txt", "one two three")

	tool := NewMultiEditTool()
	args := mustArgs(t, MultiEditArgs{
		FilePath: "f.txt",
		Edits: []MultiEditItem{
			{OldString: "one", NewString: "1"},
			{OldString: "missing", NewString: "x"},
		},
	})
	if _, err := tool.Execute(context.Background(), args, testContext(dir)); err == nil {
		t.Fatal("expected failure on second edit")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "one two three" {
		t.Errorf("file modified despite failed edit: %q", data)
	}
}

func TestMultiEditSequential(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "f.txt", "alpha beta")

	tool := NewMultiEditTool()
	args := mustArgs(t, MultiEditArgs{
		FilePath: "f.txt",
		Edits: []MultiEditItem{
			{OldString: "alpha", NewString: "gamma"},
			{OldString: "gamma beta", NewString: "done"},
		},
	})
	if _, err := tool.Execute(context.Background(), args, testContext(dir)); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "done" {
		t.Errorf("content = %q", data)
	}
}
