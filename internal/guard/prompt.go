package guard

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"
)

// TerminalPrompter prompts on the controlling terminal.
type TerminalPrompter struct {
	Stdin  io.ReadCloser
	Stdout io.Writer

	isTerminal func() bool
}

// NewTerminalPrompter returns a prompter on the process's stdin and stdout.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		isTerminal: func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
	}
}

// Confirm asks a yes/no question. Anything but yes is a no.
func (p *TerminalPrompter) Confirm(title, label string) (bool, error) {
	if p.isTerminal != nil && !p.isTerminal() {
		return false, ErrNotInteractive
	}

	fmt.Fprintf(p.Stdout, "%s\n%s\n", title, label)
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "[y/N] ",
		Stdin:           p.Stdin,
		Stdout:          p.Stdout,
		InterruptPrompt: "^C",
	})
	if err != nil {
		return false, fmt.Errorf("failed to create prompt: %w", err)
	}
	defer rl.Close()

	line, err := rl.Readline()
	if err != nil {
		// Interrupt or EOF answers no.
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "j", "ja":
		return true, nil
	default:
		return false, nil
	}
}

// Alert prints a notice.
func (p *TerminalPrompter) Alert(title, label string) {
	fmt.Fprintf(p.Stdout, "%s: %s\n", title, label)
}
