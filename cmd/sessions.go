package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/atelier-sh/atelier/internal/transcript"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage stored sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		sessions, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No stored sessions.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUPDATED\tTURNS\tTITLE")
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.ID, s.UpdatedAt.Format("2006-01-02 15:04"), s.TurnCount, s.Title)
		}
		return w.Flush()
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a stored session transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ts, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, turn := range ts {
			printStoredTurn(turn)
		}
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("Deleted", args[0])
		return nil
	},
}

func printStoredTurn(turn transcript.Turn) {
	switch {
	case turn.IsPlainText():
		label := string(turn.Role)
		if turn.IsError() {
			label += " (error)"
		}
		fmt.Printf("%s: %s\n", label, turn.Text)
	default:
		for _, part := range turn.Parts {
			switch part.Kind {
			case transcript.PartText:
				fmt.Printf("%s: %s\n", turn.Role, part.Text)
			case transcript.PartToolCall:
				fmt.Printf("%s: [call %s %s]\n", turn.Role, part.ToolCall.Name, part.ToolCall.Input)
			case transcript.PartToolResult:
				fmt.Printf("%s: [result %s] %s\n", turn.Role, part.ToolResult.Name, part.ToolResult.Output.String())
			}
		}
	}
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}
