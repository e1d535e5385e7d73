package cmd

import (
	"fmt"
	"io"

	"github.com/atelier-sh/atelier/internal/transcript"
)

// progressPrinter renders transcript snapshots incrementally: it remembers
// how much of each turn it has already written and prints only the delta,
// so streamed text appears as it arrives.
type progressPrinter struct {
	w       io.Writer
	turn    int
	written int
}

// newProgressPrinter creates a printer that skips the first skip turns,
// which are history the user has already seen.
func newProgressPrinter(w io.Writer, skip int) *progressPrinter {
	return &progressPrinter{w: w, turn: skip}
}

// Observe prints whatever the snapshot adds over the previous one.
func (p *progressPrinter) Observe(ts transcript.Transcript) {
	for ; p.turn < len(ts); p.turn++ {
		turn := ts[p.turn]
		// The last turn may still be growing; print its delta and stay on it.
		if p.turn == len(ts)-1 && turn.Role == transcript.RoleAssistant && turn.IsPlainText() {
			p.printDelta(turn)
			return
		}
		p.printDelta(turn)
		p.finishTurn(turn)
		p.written = 0
	}
}

func (p *progressPrinter) printDelta(turn transcript.Turn) {
	switch {
	case turn.Role == transcript.RoleAssistant && turn.IsPlainText():
		text := turn.Text
		if p.written < len(text) {
			fmt.Fprint(p.w, text[p.written:])
			p.written = len(text)
		}
	case turn.Role == transcript.RoleAssistant:
		for _, part := range turn.Parts {
			if part.Kind == transcript.PartToolCall && part.ToolCall != nil {
				fmt.Fprintf(p.w, "\n[%s %s]\n", part.ToolCall.Name, part.ToolCall.Input)
			}
		}
	case turn.Role == transcript.RoleTool:
		for _, part := range turn.Parts {
			if part.Kind == transcript.PartToolResult && part.ToolResult != nil {
				p.printResult(part.ToolResult, turn.IsError())
			}
		}
	}
}

func (p *progressPrinter) printResult(res *transcript.ToolResult, isErr bool) {
	label := "ok"
	if isErr {
		label = "error"
	}
	out := res.Output.String()
	if len(out) > 200 {
		out = out[:200] + "..."
	}
	fmt.Fprintf(p.w, "[%s %s] %s\n", res.Name, label, out)
}

func (p *progressPrinter) finishTurn(turn transcript.Turn) {
	if turn.Role == transcript.RoleAssistant && turn.IsPlainText() {
		fmt.Fprintln(p.w)
	}
}

// Finish closes out a still-growing final text turn with a newline.
func (p *progressPrinter) Finish() {
	if p.written > 0 {
		fmt.Fprintln(p.w)
	}
}
