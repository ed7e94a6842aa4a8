package shell

import (
	"context"
	"fmt"
	"io"
	"time"

	"servermanager/internal/formatting"
)

// DefaultMonitorInterval is the refresh interval of the server monitor.
const DefaultMonitorInterval = 5 * time.Second

// Monitor periodically renders the fleet status. It accepts no commands.
type Monitor struct {
	Status   func() []formatting.ServerRow
	Title    string
	Interval time.Duration
	Out      io.Writer

	now func() time.Time
}

// Run renders until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	interval := m.Interval
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := m.render(true); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (m *Monitor) render(clear bool) error {
	now := time.Now
	if m.now != nil {
		now = m.now
	}
	if clear {
		// ANSI: cursor home and clear screen.
		fmt.Fprint(m.Out, "\033[H\033[2J")
	}
	fmt.Fprintf(m.Out, "%s  %s\n\n", m.Title, now().Format(time.DateTime))
	return formatting.New(formatting.Options{Format: formatting.FormatTable, Color: true}).FormatServers(m.Out, m.Status())
}
