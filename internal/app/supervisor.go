package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"servermanager/internal/bot"
	"servermanager/internal/i18n"
	"servermanager/pkg/logging"
)

// botRunner is the part of bot.Host the supervisor drives.
type botRunner interface {
	Start(ctx context.Context) error
	State() bot.State
}

// botSupervisor runs the bot session host in the background and reports its
// faults through a single consumer.
type botSupervisor struct {
	host      botRunner
	translate func(string) (string, bool)
	report    func(title, message string)
	title     string

	results   chan error
	reporting atomic.Bool
	reports   sync.WaitGroup

	mu     sync.Mutex
	parent context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newBotSupervisor(parent context.Context, host botRunner, translate func(string) (string, bool), report func(title, message string), title string) *botSupervisor {
	return &botSupervisor{
		host:      host,
		translate: translate,
		report:    report,
		title:     title,
		results:   make(chan error, 4),
		parent:    parent,
	}
}

// StartBot launches a session unless one is running.
func (s *botSupervisor) StartBot() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		select {
		case <-s.done:
		default:
			return nil
		}
	}

	ctx, cancel := context.WithCancel(s.parent)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done

	go func() {
		defer close(done)
		err := s.host.Start(ctx)
		select {
		case s.results <- err:
		default:
			logging.Warn("Bot", "Dropped bot result: %v", err)
		}
	}()
	return nil
}

// StopBot cancels the running session and waits for it to end.
func (s *botSupervisor) StopBot() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// BotState reports the host state.
func (s *botSupervisor) BotState() string {
	return s.host.State().String()
}

// consume receives session results until ctx is done and reports faults.
func (s *botSupervisor) consume(ctx context.Context) {
	defer s.reports.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-s.results:
			s.handle(err)
		}
	}
}

func (s *botSupervisor) handle(err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	if !s.reporting.CompareAndSwap(false, true) {
		logging.Debug("Bot", "Fault report already in flight, dropping: %v", err)
		return
	}

	message := i18n.ResolveKey(innermost(err).Error(), s.translate)
	logging.Error("Bot", err, "Chat bot session failed")

	s.reports.Add(1)
	go func() {
		defer s.reports.Done()
		defer s.reporting.Store(false)
		s.report(s.title, message)
	}()
}

// innermost returns the deepest wrapped cause of err.
func innermost(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
