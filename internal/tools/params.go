package tools

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// WarnUnknownParams checks args JSON for keys not in knownKeys. Returns a
// warning string (with trailing newline) to prepend to tool output, or ""
// if no unknown keys were found.
func WarnUnknownParams(args json.RawMessage, knownKeys []string) string {
	var m map[string]any
	if err := json.Unmarshal(args, &m); err != nil {
		return ""
	}
	known := make(map[string]bool, len(knownKeys))
	for _, k := range knownKeys {
		known[k] = true
	}
	var unknown []string
	for k := range m {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return ""
	}
	sort.Strings(unknown)
	var sb strings.Builder
	for _, k := range unknown {
		sb.WriteString(fmt.Sprintf("Unknown parameter '%s' was ignored\n", k))
	}
	return sb.String()
}

// resolvePath resolves a possibly relative path against the execution
// context's working directory.
func resolvePath(path string, ec *Context) string {
	if filepath.IsAbs(path) {
		return path
	}
	if ec != nil && ec.WorkDir != "" {
		return filepath.Join(ec.WorkDir, path)
	}
	return path
}

// countLines counts the number of lines in a string.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	count := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		count++
	}
	return count
}
