package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/atelier-sh/atelier/internal/agent"
	"github.com/atelier-sh/atelier/internal/agents"
	"github.com/atelier-sh/atelier/internal/config"
	"github.com/atelier-sh/atelier/internal/llm"
	"github.com/atelier-sh/atelier/internal/session"
	"github.com/atelier-sh/atelier/internal/tools"
	"github.com/atelier-sh/atelier/internal/transcript"
	"github.com/atelier-sh/atelier/internal/workspace"
)

// maxTurns bounds the agentic loop: after each turn that ends in tool
// results the model is called again to read them and continue.
const maxTurns = 25

var flagResume string

var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Run the agent with a prompt",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt := strings.Join(args, " ")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		provider, err := llm.NewProvider(cfg)
		if err != nil {
			return err
		}

		profile := agents.Default()
		if cfg.Agent != "" {
			profile, err = agents.Load(filepath.Join(config.DefaultConfigDir(), "agents"), cfg.Agent)
			if err != nil {
				return err
			}
		}
		instructions := profile.Instructions
		if cfg.Instructions != "" {
			instructions = cfg.Instructions
		}
		toolNames := profile.ToolNames()
		if len(cfg.Tools.Enabled) > 0 {
			toolNames = cfg.Tools.Enabled
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		history := transcript.Transcript{}
		sessionID := flagResume
		if sessionID != "" {
			history, err = store.Load(ctx, sessionID)
			if err != nil {
				return err
			}
		}

		ws := workspace.New(cfg.WorkDir, log)
		runner := agent.NewRunner(provider, ws, agent.Config{
			Instructions: instructions,
			Model:        modelFor(cfg),
			ToolNames:    toolNames,
			Limits:       tools.DefaultOutputLimits(),
		}, log)

		history = history.AppendTurn(transcript.UserText(prompt))
		printer := newProgressPrinter(os.Stdout, len(history))

		for turn := 0; turn < maxTurns; turn++ {
			history, err = runner.RunTurn(ctx, history, printer.Observe)
			if saveErr := saveSession(ctx, store, &sessionID, history); saveErr != nil {
				log.Warn().Err(saveErr).Msg("session save failed")
			}
			if err != nil {
				printer.Finish()
				return err
			}
			if !endsInToolResults(history) {
				break
			}
		}
		printer.Finish()
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&flagResume, "resume", "", "resume a stored session by id")
	rootCmd.AddCommand(runCmd)
}

func modelFor(cfg *config.Config) string {
	switch cfg.Provider {
	case "openai":
		return cfg.OpenAI.Model
	default:
		return cfg.Anthropic.Model
	}
}

func openStore() (session.Store, error) {
	if !cfg.Session.Enabled {
		return session.NoopStore{}, nil
	}
	path := cfg.Session.Path
	if path == "" {
		path = filepath.Join(config.DefaultDataDir(), "sessions.db")
	}
	return session.OpenSQLite(path)
}

func saveSession(ctx context.Context, store session.Store, id *string, ts transcript.Transcript) error {
	if len(ts) == 0 {
		return nil
	}
	if *id == "" {
		*id = newStoredSessionID()
	}
	return store.Save(ctx, *id, session.Title(ts), ts)
}

func newStoredSessionID() string {
	return "session-" + time.Now().UTC().Format("20060102T150405") + "-" + uuid.NewString()[:8]
}

// endsInToolResults reports whether the transcript's trailing turn is a tool
// result the model has not yet seen. Failed tool calls count too; the model
// reads the error and reacts.
func endsInToolResults(ts transcript.Transcript) bool {
	if len(ts) == 0 {
		return false
	}
	return ts[len(ts)-1].Role == transcript.RoleTool
}
