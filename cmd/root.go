package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"servermanager/internal/app"
	"servermanager/internal/launch"
	"servermanager/internal/lifecycle"
)

var (
	configPath string
	debug      bool

	// launchOptions holds the legacy single-dash arguments consumed before cobra.
	launchOptions launch.Options
)

// rootCmd represents the base command for the servermanager application.
// Without a subcommand it starts the interactive shell.
var rootCmd = &cobra.Command{
	Use:   "servermanager",
	Short: "Manage a fleet of dedicated game servers",
	Long: `servermanager starts, stops, updates and backs up dedicated game servers
described by profiles. It runs as an interactive shell, optionally with a chat
bot for remote commands, or performs a single unattended action when started
with one of the automation arguments (-autoupdate, -autobackup,
-autoshutdown1<profile>, -autoshutdown2<profile>).`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage:  true,
	SilenceErrors: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application. Legacy launch
// arguments are extracted first. An automation argument runs its action and
// exits without cobra; otherwise the remaining arguments go to cobra.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "servermanager version %s\n" .Version}}`)

	launchOptions = launch.Parse(os.Args[1:])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if launchOptions.Headless != nil {
		code := runHeadless(ctx, launchOptions.Rest)
		stop()
		os.Exit(code)
	}

	// A nil slice would make cobra fall back to os.Args.
	rest := append([]string{}, launchOptions.Rest...)
	rootCmd.SetArgs(rest)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the process exit code for err. Lifecycle actions
// report their own code verbatim.
func getExitCode(err error) int {
	return lifecycle.ExitCodeOf(err)
}

// runHeadless performs the unattended action selected by an automation
// argument and returns its exit code. Only --config-path and --debug are
// honoured from args; anything else is ignored.
func runHeadless(ctx context.Context, args []string) int {
	fs := pflag.NewFlagSet("headless", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&configPath, "config-path", configPath, "")
	fs.BoolVar(&debug, "debug", debug, "")
	if err := fs.Parse(headlessFlagArgs(args)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	a, err := newApplication()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return lifecycle.ExitFailed
	}
	return a.RunHeadless(ctx)
}

// headlessFlagArgs returns the root persistent flags in args, with their values.
func headlessFlagArgs(args []string) []string {
	var keep []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			continue
		}
		name, _, hasValue := strings.Cut(arg[2:], "=")
		switch name {
		case "debug":
			keep = append(keep, arg)
		case "config-path":
			keep = append(keep, arg)
			if !hasValue && i+1 < len(args) {
				keep = append(keep, args[i+1])
				i++
			}
		}
	}
	return keep
}

func runInteractive(cmd *cobra.Command, _ []string) error {
	a, err := newApplication()
	if err != nil {
		return err
	}
	return a.Run(commandContext(cmd))
}

// commandContext returns the command's context, or Background outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newApplication() (*app.Application, error) {
	cfg := app.NewConfig(debug, configPath, launchOptions)
	cfg.Version = rootCmd.Version
	return app.NewApplication(cfg)
}

// init is a special Go function that is executed when the package is initialized.
// It is used here to add subcommands to the root command.
func init() {
	// Assigned here rather than in the literal to avoid an initialization cycle
	// (runInteractive -> newApplication -> rootCmd).
	rootCmd.RunE = runInteractive

	rootCmd.PersistentFlags().StringVar(&configPath, "config-path", "", "Directory holding config.yaml (default is $HOME/.config/servermanager)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newScheduleCmd())
}
