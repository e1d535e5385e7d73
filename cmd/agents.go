package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/atelier-sh/atelier/internal/agents"
	"github.com/atelier-sh/atelier/internal/config"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List available agent profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		profiles, err := agents.List(filepath.Join(config.DefaultConfigDir(), "agents"))
		if err != nil {
			return err
		}
		profiles = append([]*agents.Profile{agents.Default()}, profiles...)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTOOLS\tDESCRIPTION")
		for _, p := range profiles {
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, strings.Join(p.ToolNames(), ","), p.Description)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(agentsCmd)
}
