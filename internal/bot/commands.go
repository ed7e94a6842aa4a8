package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"servermanager/internal/bridge"
	"servermanager/internal/i18n"
	"servermanager/internal/lifecycle"
	"servermanager/pkg/logging"
	pkgstrings "servermanager/pkg/strings"
)

// NoServersReply is sent when a command names no profile bound to the channel.
const NoServersReply = "No servers associated with this channel."

// DefaultReplyInterval is the pause between two reply lines of one command.
const DefaultReplyInterval = time.Second

// CommandService turns chat messages into lifecycle requests for the lifetime of
// one session.
type CommandService struct {
	prefix     string
	dispatcher bridge.LifecycleDispatcher
	translate  func(string) (string, bool)
	client     Client
	interval   time.Duration

	// ctx is not cancelled when the session stops so in-flight commands complete.
	ctx context.Context

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

func newCommandService(ctx context.Context, prefix string, dispatcher bridge.LifecycleDispatcher,
	translate func(string) (string, bool), client Client, interval time.Duration) *CommandService {
	if interval <= 0 {
		interval = DefaultReplyInterval
	}
	return &CommandService{
		prefix:     prefix,
		dispatcher: dispatcher,
		translate:  translate,
		client:     client,
		interval:   interval,
		ctx:        context.WithoutCancel(ctx),
	}
}

// Handle processes one inbound message. It never blocks on the command itself
// and never panics into the caller.
func (s *CommandService) Handle(msg Message) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Bot", fmt.Errorf("%v", r), "Recovered while handling message in %s", msg.ChannelID)
		}
	}()

	if msg.FromBot {
		return
	}
	kind, profileID, ok := s.parse(msg.Content)
	if !ok {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.inflight.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.inflight.Done()
		s.run(msg, kind, profileID)
	}()
}

// parse splits "<prefix><verb> <profile>". Messages that are not commands yield ok == false.
func (s *CommandService) parse(content string) (lifecycle.ActionKind, string, bool) {
	content = strings.TrimSpace(content)
	if len(content) < len(s.prefix) || !strings.EqualFold(content[:len(s.prefix)], s.prefix) {
		return 0, "", false
	}
	fields := strings.Fields(content[len(s.prefix):])
	if len(fields) == 0 {
		return 0, "", false
	}
	kind, err := lifecycle.ParseActionKind(fields[0])
	if err != nil {
		return 0, "", false
	}
	profileID := ""
	if len(fields) > 1 {
		profileID = fields[1]
	}
	return kind, profileID, true
}

func (s *CommandService) run(msg Message, kind lifecycle.ActionKind, profileID string) {
	lines, found, err := s.dispatch(bridge.CommandRequest{
		Action:          kind,
		OriginSystemID:  msg.SystemID,
		OriginChannelID: msg.ChannelID,
		ProfileID:       profileID,
		IssuerToken:     msg.AuthorID,
	})

	switch {
	case err != nil:
		reason := i18n.ResolveKey(err.Error(), s.translate)
		s.reply(msg.ChannelID, []string{bridge.FaultLine(msg.Content, reason)})
	case !found:
		s.reply(msg.ChannelID, []string{NoServersReply})
	default:
		s.reply(msg.ChannelID, lines)
	}
}

func (s *CommandService) dispatch(req bridge.CommandRequest) (lines []string, found bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	lines, found = s.dispatcher.Dispatch(s.ctx, req)
	return lines, found, nil
}

// reply sends lines in order with at least the configured interval between them.
func (s *CommandService) reply(channelID string, lines []string) {
	limiter := rate.NewLimiter(rate.Every(s.interval), 1)
	for _, line := range lines {
		if err := limiter.Wait(s.ctx); err != nil {
			return
		}
		text := strings.ReplaceAll(line, "&", "_")
		if utf8.RuneCountInString(text) > pkgstrings.MaxChatMessageLen {
			text = pkgstrings.Truncate(text, pkgstrings.MaxChatMessageLen)
		}
		if err := s.client.Send(s.ctx, channelID, text); err != nil {
			logging.Warn("Bot", "Failed to reply in channel %s: %v", channelID, err)
		}
	}
}

// close stops accepting commands and waits for the in-flight ones.
func (s *CommandService) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.inflight.Wait()
}
