// Package shell implements the interactive operator console and the
// read-only server monitor.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/jedib0t/go-pretty/v6/text"

	"servermanager/internal/bridge"
	"servermanager/internal/formatting"
	"servermanager/internal/lifecycle"
	"servermanager/pkg/logging"
)

// LocalSystemID is the origin system of commands typed into the shell.
const LocalSystemID = "local"

// errExit ends the read loop.
var errExit = errors.New("exit")

// BotControl starts and stops the chat bot from the shell.
type BotControl interface {
	StartBot() error
	StopBot()
	BotState() string
}

// Config configures a Shell.
type Config struct {
	Dispatcher bridge.LifecycleDispatcher

	// Status returns the current fleet rows.
	Status func() []formatting.ServerRow

	Bot BotControl

	Banner string
	Prompt string

	// Logs are printed above the prompt as they arrive.
	Logs <-chan logging.LogEntry

	// SwitchRequests fire when another instance asked this one to come forward.
	SwitchRequests <-chan struct{}

	// Translate resolves message keys. Keys are used verbatim when nil.
	Translate func(key string) string

	Stdin       io.ReadCloser
	Stdout      io.Writer
	HistoryFile string

	// Quiet disables the spinner.
	Quiet bool
}

// Shell is the interactive console.
type Shell struct {
	cfg      Config
	out      io.Writer
	mu       sync.Mutex
	commands map[string]command
}

type command struct {
	usage   string
	summary string
	run     func(ctx context.Context, args []string) error
}

// New creates a Shell.
func New(cfg Config) *Shell {
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stdin == nil {
		cfg.Stdin = os.Stdin
	}
	if cfg.Prompt == "" {
		cfg.Prompt = "servermanager> "
	}
	if cfg.Translate == nil {
		cfg.Translate = func(key string) string { return key }
	}
	s := &Shell{cfg: cfg, out: cfg.Stdout}
	s.registerCommands()
	return s
}

func (s *Shell) registerCommands() {
	s.commands = map[string]command{
		"help":   {usage: "help", summary: "Show available commands", run: s.cmdHelp},
		"list":   {usage: "list [table|console|json|yaml]", summary: "Show all servers and their state", run: s.cmdList},
		"status": {usage: "status [table|console|json|yaml]", summary: "Alias for list", run: s.cmdList},
		"bot":    {usage: "bot [start|stop|status]", summary: "Control the chat bot", run: s.cmdBot},
		"exit":   {usage: "exit", summary: "Leave the shell", run: func(context.Context, []string) error { return errExit }},
		"quit":   {usage: "quit", summary: "Alias for exit", run: func(context.Context, []string) error { return errExit }},
	}
	for _, kind := range lifecycle.AllActions {
		kind := kind
		s.commands[kind.String()] = command{
			usage:   kind.String() + " <profile>",
			summary: actionSummary(kind),
			run: func(ctx context.Context, args []string) error {
				return s.cmdAction(ctx, kind, args)
			},
		}
	}
}

func actionSummary(kind lifecycle.ActionKind) string {
	switch kind {
	case lifecycle.ActionStart:
		return "Start a server"
	case lifecycle.ActionStop:
		return "Stop a server"
	case lifecycle.ActionRestart:
		return "Restart a server"
	case lifecycle.ActionUpdate:
		return "Update a server"
	case lifecycle.ActionBackup:
		return "Back up a server's save data"
	case lifecycle.ActionShutdown:
		return "Announce and perform a graceful shutdown"
	default:
		return ""
	}
}

// SetBotControl attaches the chat bot control used by the bot command.
func (s *Shell) SetBotControl(b BotControl) {
	s.cfg.Bot = b
}

// ReportError prints a fault notice. It is safe for concurrent use.
func (s *Shell) ReportError(title, message string) {
	s.printf("%s %s\n", text.FgRed.Sprint(title+":"), message)
}

func (s *Shell) printf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

// Run reads and executes commands until exit, EOF or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	historyFile := s.cfg.HistoryFile
	if historyFile == "" {
		historyFile = filepath.Join(os.TempDir(), ".servermanager_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            s.cfg.Prompt,
		HistoryFile:       historyFile,
		AutoComplete:      s.completer(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		Stdin:             s.cfg.Stdin,
		Stdout:            s.cfg.Stdout,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer rl.Close()

	s.mu.Lock()
	s.out = rl.Stdout()
	s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.background(runCtx)
	}()
	defer wg.Wait()

	if s.cfg.Banner != "" {
		s.printf("%s\n", text.Bold.Sprint(s.cfg.Banner))
	}
	s.printf("Type 'help' for available commands. Use TAB for completion.\n\n")

	// Closing readline unblocks Readline when ctx ends.
	go func() {
		<-runCtx.Done()
		rl.Close()
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			s.printf("Goodbye!\n")
			return nil
		} else if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("readline error: %w", err)
		}

		if err := s.Execute(ctx, line); err != nil {
			if errors.Is(err, errExit) {
				s.printf("Goodbye!\n")
				return nil
			}
			s.printf("%s %v\n", text.FgRed.Sprint("Error:"), err)
		}
	}
}

// background prints log entries and switch acknowledgements until ctx is done.
func (s *Shell) background(ctx context.Context) {
	logs := s.cfg.Logs
	switches := s.cfg.SwitchRequests
	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-logs:
			if !ok {
				logs = nil
				continue
			}
			s.printf("%s\n", formatEntry(entry))
		case _, ok := <-switches:
			if !ok {
				switches = nil
				continue
			}
			s.printf("%s\n", text.FgCyan.Sprint(s.cfg.Translate("Application_FocusRequested")))
		}
	}
}

func formatEntry(e logging.LogEntry) string {
	msg := fmt.Sprintf("%s %-5s [%s] %s", e.Timestamp.Format(time.TimeOnly), e.Level, e.Subsystem, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	switch e.Level {
	case logging.LevelError:
		return text.FgRed.Sprint(msg)
	case logging.LevelWarn:
		return text.FgYellow.Sprint(msg)
	case logging.LevelDebug:
		return text.FgHiBlack.Sprint(msg)
	default:
		return msg
	}
}

// Execute runs a single command line.
func (s *Shell) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, ok := s.commands[strings.ToLower(fields[0])]
	if !ok {
		return fmt.Errorf("unknown command %q, type 'help' for available commands", fields[0])
	}
	return cmd.run(ctx, fields[1:])
}

func (s *Shell) cmdHelp(context.Context, []string) error {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, name := range names {
		c := s.commands[name]
		fmt.Fprintf(&b, "  %-36s %s\n", c.usage, c.summary)
	}
	s.printf("%s", b.String())
	return nil
}

func (s *Shell) cmdList(_ context.Context, args []string) error {
	if s.cfg.Status == nil {
		return errors.New("server status is not available")
	}
	format := ""
	if len(args) > 0 {
		format = args[0]
	}
	f, err := formatting.ParseOutputFormat(format)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return formatting.New(formatting.Options{Format: f, Color: true}).FormatServers(s.out, s.cfg.Status())
}

func (s *Shell) cmdBot(_ context.Context, args []string) error {
	if s.cfg.Bot == nil {
		return errors.New("the chat bot is not configured")
	}
	sub := "status"
	if len(args) > 0 {
		sub = strings.ToLower(args[0])
	}
	switch sub {
	case "start":
		if err := s.cfg.Bot.StartBot(); err != nil {
			return err
		}
		s.printf("Bot starting.\n")
	case "stop":
		s.cfg.Bot.StopBot()
		s.printf("Bot stopped.\n")
	case "status":
		s.printf("Bot is %s.\n", s.cfg.Bot.BotState())
	default:
		return fmt.Errorf("unknown bot command %q (use start, stop or status)", sub)
	}
	return nil
}

func (s *Shell) cmdAction(ctx context.Context, kind lifecycle.ActionKind, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s <profile>", kind)
	}
	if s.cfg.Dispatcher == nil {
		return errors.New("no dispatcher configured")
	}
	profileID := args[0]

	var sp *spinner.Spinner
	if !s.cfg.Quiet {
		sp = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(s.out))
		sp.Suffix = fmt.Sprintf(" %s %s...", kind, profileID)
		sp.Start()
	}

	lines, ok := s.cfg.Dispatcher.Dispatch(ctx, bridge.CommandRequest{
		Action:         kind,
		OriginSystemID: LocalSystemID,
		ProfileID:      profileID,
	})

	if sp != nil {
		sp.Stop()
	}

	if !ok {
		return fmt.Errorf("profile %q not found", profileID)
	}
	for _, line := range lines {
		s.printf("%s\n", line)
	}
	return nil
}

func (s *Shell) completer() *readline.PrefixCompleter {
	profiles := func(string) []string {
		if s.cfg.Status == nil {
			return nil
		}
		rows := s.cfg.Status()
		ids := make([]string, 0, len(rows))
		for _, r := range rows {
			ids = append(ids, r.ID)
		}
		return ids
	}

	var items []readline.PrefixCompleterInterface
	for _, kind := range lifecycle.AllActions {
		items = append(items, readline.PcItem(kind.String(), readline.PcItemDynamic(profiles)))
	}
	formats := []readline.PrefixCompleterInterface{
		readline.PcItem("table"), readline.PcItem("console"), readline.PcItem("json"), readline.PcItem("yaml"),
	}
	items = append(items,
		readline.PcItem("list", formats...),
		readline.PcItem("status", formats...),
		readline.PcItem("bot", readline.PcItem("start"), readline.PcItem("stop"), readline.PcItem("status")),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
	return readline.NewPrefixCompleter(items...)
}
