package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/atelier-sh/atelier/internal/llm"
	"github.com/atelier-sh/atelier/internal/tools"
	"github.com/atelier-sh/atelier/internal/transcript"
	"github.com/atelier-sh/atelier/internal/workspace"
)

// ErrTurnCanceled reports that the turn's cancellation signal fired. The
// underlying context error is wrapped alongside it.
var ErrTurnCanceled = errors.New("turn canceled")

// Config holds the per-runner settings that do not change between turns.
type Config struct {
	Instructions string
	Model        string
	ToolNames    []string
	Limits       tools.OutputLimits
}

// Runner owns one full turn end to end: workspace init, the model call,
// stream reduction, and tool dispatch.
type Runner struct {
	provider llm.Provider
	ws       *workspace.Workspace
	cfg      Config
	log      zerolog.Logger
}

// NewRunner creates a turn runner.
func NewRunner(provider llm.Provider, ws *workspace.Workspace, cfg Config, log zerolog.Logger) *Runner {
	return &Runner{provider: provider, ws: ws, cfg: cfg, log: log}
}

// RunTurn sends history to the model and folds the resulting event stream
// into a new transcript, dispatching tool calls as they finalize. onProgress
// receives a snapshot after every applied event. On failure the returned
// transcript ends with an error turn, delivered to onProgress before the
// error is returned.
func (r *Runner) RunTurn(ctx context.Context, history transcript.Transcript, onProgress func(transcript.Transcript)) (transcript.Transcript, error) {
	emit := func(ts transcript.Transcript) {
		if onProgress != nil {
			onProgress(ts)
		}
	}

	sessionID := newSessionID()
	log := r.log.With().Str("session_id", sessionID).Logger()
	red := NewReducer(history, sessionID, log)

	fail := func(err error) (transcript.Transcript, error) {
		log.Error().Err(err).Msg("turn failed")
		ts := red.Transcript().AppendErrorTurn(normalizeError(err), sessionID)
		emit(ts)
		return ts, err
	}

	dir, err := r.ws.Ensure()
	if err != nil {
		return fail(fmt.Errorf("workspace init: %w", err))
	}

	registry, err := tools.NewDefaultRegistry(r.cfg.ToolNames, r.cfg.Limits)
	if err != nil {
		return fail(err)
	}
	ec := &tools.Context{WorkDir: dir, SessionID: sessionID, Log: log}
	disp := NewDispatcher(registry, ec)

	stream, err := r.provider.Stream(ctx, llm.Request{
		Model:        r.cfg.Model,
		Instructions: r.cfg.Instructions,
		History:      history,
		Tools:        registry.Specs(),
	})
	if err != nil {
		return fail(fmt.Errorf("start stream: %w", err))
	}
	defer stream.Close()

	// Tool calls the model issues back to back are dispatched together;
	// the batch flushes before any other event is folded in.
	var pending []*transcript.ToolCall
	flush := func() {
		if len(pending) == 0 {
			return
		}
		events := disp.DispatchAll(ctx, pending)
		pending = nil
		for _, resultEv := range events {
			red.Apply(resultEv)
			emit(red.Transcript())
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return fail(fmt.Errorf("%w: %w", ErrTurnCanceled, err))
		}
		ev, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(fmt.Errorf("stream: %w", err))
		}
		if ev.Type != llm.EventToolCall {
			flush()
		}
		call := red.Apply(ev)
		emit(red.Transcript())
		if call != nil {
			pending = append(pending, call)
		}
	}
	flush()
	if err := ctx.Err(); err != nil {
		return fail(fmt.Errorf("%w: %w", ErrTurnCanceled, err))
	}

	usage := red.Usage()
	log.Info().
		Int("input_tokens", usage.InputTokens).
		Int("output_tokens", usage.OutputTokens).
		Str("finish_reason", red.FinishReason()).
		Msg("turn complete")
	return red.Transcript(), nil
}

// newSessionID returns a turn-start timestamp identifier with a short
// random suffix to keep ids unique within one second.
func newSessionID() string {
	return time.Now().UTC().Format("20060102T150405") + "-" + uuid.NewString()[:8]
}
