package bot

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"servermanager/internal/bridge"
	"servermanager/pkg/logging"
)

// session is the service context of one connected session. It is created on
// connection and torn down as a unit.
type session struct {
	id         string
	client     Client
	commands   *CommandService
	dispatcher bridge.LifecycleDispatcher
	translate  func(string) (string, bool)

	onStartup  func(context.Context) error
	onShutdown func() error
}

func newSession(ctx context.Context, client Client, prefix string, dispatcher bridge.LifecycleDispatcher,
	translate func(string) (string, bool), interval time.Duration) *session {
	s := &session{
		id:         uuid.NewString(),
		client:     client,
		dispatcher: dispatcher,
		translate:  translate,
	}
	s.commands = newCommandService(ctx, prefix, dispatcher, translate, client, interval)

	s.onStartup = func(context.Context) error {
		client.OnMessage(s.commands.Handle)
		logging.Info("Bot", "Session %s is accepting commands with prefix %s", s.id, prefix)
		return nil
	}
	s.onShutdown = func() error {
		s.commands.close()
		return client.Close()
	}
	return s
}

// teardown runs the shutdown hook exactly once.
func (s *session) teardown() error {
	if s.onShutdown == nil {
		return nil
	}
	err := s.onShutdown()
	s.onShutdown = nil
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Warn("Bot", "Session %s did not close cleanly: %v", s.id, err)
	}
	logging.Info("Bot", "Session %s stopped", s.id)
	return err
}
