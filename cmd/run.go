package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"servermanager/internal/formatting"
	"servermanager/internal/lifecycle"
)

var runOutput string

// newRunCmd creates the command that performs one lifecycle action.
func newRunCmd() *cobra.Command {
	verbs := make([]string, 0, len(lifecycle.AllActions))
	for _, k := range lifecycle.AllActions {
		verbs = append(verbs, k.String())
	}

	cmd := &cobra.Command{
		Use:   "run <action> <profile>",
		Short: "Perform a lifecycle action on a server",
		Long: fmt.Sprintf(`Performs one lifecycle action on the server of a profile and prints its output.

Actions: %s

The exit code is the action's own result code.`, strings.Join(verbs, ", ")),
		Example:   "  servermanager run restart island\n  servermanager run backup island -o json",
		Args:      cobra.ExactArgs(2),
		ValidArgs: verbs,
		RunE:      runAction,
	}
	cmd.Flags().StringVarP(&runOutput, "output", "o", "console", "Output format (console, json, yaml)")
	return cmd
}

func runAction(cmd *cobra.Command, args []string) error {
	kind, err := lifecycle.ParseActionKind(args[0])
	if err != nil {
		return lifecycle.NewExitError(lifecycle.ExitInvalidArgument, err)
	}
	format, err := formatting.ParseOutputFormat(runOutput)
	if err != nil {
		return lifecycle.NewExitError(lifecycle.ExitInvalidArgument, err)
	}

	a, err := newApplication()
	if err != nil {
		return err
	}

	lines, actionErr := a.Perform(commandContext(cmd), kind, args[1])
	if err := formatting.New(formatting.Options{Format: format}).FormatLines(cmd.OutOrStdout(), lines); err != nil {
		return err
	}
	return actionErr
}
