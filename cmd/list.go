package cmd

import (
	"github.com/spf13/cobra"

	"servermanager/internal/formatting"
)

var listOutput string

// newListCmd creates the command that prints the fleet status.
func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls", "status"},
		Short:   "List server profiles and their state",
		Long: `Lists every server profile together with the state of its server process.
Running servers started by an earlier session are detected through their pid files.`,
		Args: cobra.NoArgs,
		RunE: runList,
	}
	cmd.Flags().StringVarP(&listOutput, "output", "o", "table", "Output format (table, console, json, yaml)")
	return cmd
}

func runList(cmd *cobra.Command, _ []string) error {
	format, err := formatting.ParseOutputFormat(listOutput)
	if err != nil {
		return err
	}
	a, err := newApplication()
	if err != nil {
		return err
	}
	a.Refresh(commandContext(cmd))

	f := formatting.New(formatting.Options{Format: format, Color: format == formatting.FormatTable})
	return f.FormatServers(cmd.OutOrStdout(), a.ServerRows())
}
