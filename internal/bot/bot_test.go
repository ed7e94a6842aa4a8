package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"servermanager/internal/bridge"
	"servermanager/internal/lifecycle"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type sent struct {
	channel string
	content string
	at      time.Time
}

type fakeClient struct {
	mu      sync.Mutex
	handler func(Message)
	sent    []sent
	opened  bool
	closed  bool
	openErr error
}

func (c *fakeClient) Open(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opened = true
	return c.openErr
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeClient) OnMessage(handler func(Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

func (c *fakeClient) Send(_ context.Context, channelID, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sent{channel: channelID, content: content, at: time.Now()})
	return nil
}

func (c *fakeClient) deliver(msg Message) {
	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()
	h(msg)
}

func (c *fakeClient) replies() []sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sent(nil), c.sent...)
}

func (c *fakeClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeDispatcher struct {
	mu       sync.Mutex
	profiles map[string][]string
	requests []bridge.CommandRequest
	fail     error
	block    chan struct{}
}

func (d *fakeDispatcher) Dispatch(_ context.Context, req bridge.CommandRequest) ([]string, bool) {
	d.mu.Lock()
	d.requests = append(d.requests, req)
	block := d.block
	d.mu.Unlock()

	if block != nil {
		<-block
	}
	if d.fail != nil {
		panic(d.fail)
	}
	lines, ok := d.profiles[req.ProfileID]
	return lines, ok
}

func noTranslation(string) (string, bool) { return "", false }

type harness struct {
	host   *Host
	client *fakeClient
	cancel context.CancelFunc
	done   chan error
}

func startHost(t *testing.T, cfg Config) *harness {
	t.Helper()
	client := &fakeClient{}
	cfg.NewClient = func(string) (Client, error) { return client, nil }
	if cfg.Token == "" {
		cfg.Token = "token"
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "sm"
	}
	if cfg.Translate == nil {
		cfg.Translate = noTranslation
	}
	if cfg.ReplyInterval == 0 {
		cfg.ReplyInterval = 10 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{host: NewHost(cfg), client: client, cancel: cancel, done: make(chan error, 1)}
	go func() { h.done <- h.host.Start(ctx) }()

	require.Eventually(t, func() bool { return h.host.State() == StateRunning }, time.Second, time.Millisecond)
	return h
}

func (h *harness) stop(t *testing.T) {
	t.Helper()
	h.cancel()
	select {
	case err := <-h.done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("session host did not stop")
	}
}

func TestNormalizePrefix(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		want    string
		wantErr bool
	}{
		{name: "appends delimiter", prefix: "srv", want: "srv!"},
		{name: "keeps delimiter", prefix: "srv!", want: "srv!"},
		{name: "digits", prefix: "sm2", want: "sm2!"},
		{name: "space", prefix: "sr v", wantErr: true},
		{name: "symbol", prefix: "s-r", wantErr: true},
		{name: "empty", prefix: "", wantErr: true},
		{name: "only delimiter", prefix: "!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePrefix(tt.prefix)
			if tt.wantErr {
				var cfgErr *ConfigError
				require.ErrorAs(t, err, &cfgErr)
				assert.Equal(t, InvalidPrefixKey, cfgErr.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := NormalizePrefix(got)
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestHost_NotConfigured(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		prefix string
	}{
		{name: "missing token", prefix: "sm"},
		{name: "blank token", token: "  ", prefix: "sm"},
		{name: "missing prefix", token: "token"},
		{name: "blank prefix", token: "token", prefix: "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			host := NewHost(Config{
				Token:      tt.token,
				Prefix:     tt.prefix,
				Dispatcher: &fakeDispatcher{},
				Translate:  noTranslation,
				NewClient:  func(string) (Client, error) { called = true; return &fakeClient{}, nil },
			})

			require.NoError(t, host.Start(context.Background()))
			assert.Equal(t, StateRejected, host.State())
			assert.False(t, called)
		})
	}
}

func TestHost_InvalidPrefixIsRejected(t *testing.T) {
	called := false
	host := NewHost(Config{
		Token:      "token",
		Prefix:     "sr v",
		Dispatcher: &fakeDispatcher{},
		Translate:  noTranslation,
		NewClient:  func(string) (Client, error) { called = true; return &fakeClient{}, nil },
	})

	err := host.Start(context.Background())
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "#DiscordBot_InvalidPrefixError", cfgErr.Key)
	assert.Equal(t, StateRejected, host.State())
	assert.False(t, called)
}

func TestHost_ConnectFailureIsRejected(t *testing.T) {
	client := &fakeClient{openErr: errors.New("401 unauthorized")}
	host := NewHost(Config{
		Token:      "token",
		Prefix:     "sm",
		Dispatcher: &fakeDispatcher{},
		Translate:  noTranslation,
		NewClient:  func(string) (Client, error) { return client, nil },
	})

	err := host.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401 unauthorized")
	assert.Equal(t, StateRejected, host.State())
	assert.True(t, client.isClosed())
}

func TestHost_LifecycleAndIdempotentStart(t *testing.T) {
	var mu sync.Mutex
	var transitions []State

	client := &fakeClient{}
	host := NewHost(Config{
		Token:      "token",
		Prefix:     "sm",
		Dispatcher: &fakeDispatcher{},
		Translate:  noTranslation,
		NewClient:  func(string) (Client, error) { return client, nil },
	})
	host.OnStateChange(func(_, s State) {
		mu.Lock()
		transitions = append(transitions, s)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- host.Start(ctx) }()
	require.Eventually(t, func() bool { return host.State() == StateRunning }, time.Second, time.Millisecond)

	require.NoError(t, host.Start(context.Background()))
	assert.Equal(t, StateRunning, host.State())

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, StateStopped, host.State())
	assert.True(t, client.isClosed())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateValidating, StateConnected, StateRunning, StateStopping, StateStopped}, transitions)
}

func TestCommand_UnknownProfileReply(t *testing.T) {
	h := startHost(t, Config{Dispatcher: &fakeDispatcher{}})
	defer h.stop(t)

	h.client.deliver(Message{ChannelID: "c1", Content: "sm!backup myprofile"})

	require.Eventually(t, func() bool { return len(h.client.replies()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, "No servers associated with this channel.", h.client.replies()[0].content)
}

func TestCommand_LinesArePacedInOrder(t *testing.T) {
	interval := 50 * time.Millisecond
	d := &fakeDispatcher{profiles: map[string][]string{"myprofile": {"Stopping...", "Stopped."}}}
	h := startHost(t, Config{Dispatcher: d, ReplyInterval: interval})
	defer h.stop(t)

	h.client.deliver(Message{SystemID: "guild", ChannelID: "c1", AuthorID: "u1", Content: "sm!stop myprofile"})

	require.Eventually(t, func() bool { return len(h.client.replies()) == 2 }, time.Second, time.Millisecond)
	replies := h.client.replies()
	assert.Equal(t, "Stopping...", replies[0].content)
	assert.Equal(t, "Stopped.", replies[1].content)
	assert.Equal(t, "c1", replies[1].channel)
	assert.GreaterOrEqual(t, replies[1].at.Sub(replies[0].at), interval-5*time.Millisecond)

	d.mu.Lock()
	defer d.mu.Unlock()
	require.Len(t, d.requests, 1)
	assert.Equal(t, bridge.CommandRequest{
		Action:          lifecycle.ActionStop,
		OriginSystemID:  "guild",
		OriginChannelID: "c1",
		ProfileID:       "myprofile",
		IssuerToken:     "u1",
	}, d.requests[0])
}

func TestCommand_AmpersandIsReplaced(t *testing.T) {
	d := &fakeDispatcher{profiles: map[string][]string{"p": {"Tom & Jerry"}}}
	h := startHost(t, Config{Dispatcher: d})
	defer h.stop(t)

	h.client.deliver(Message{ChannelID: "c1", Content: "SM!Update p"})

	require.Eventually(t, func() bool { return len(h.client.replies()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, "Tom _ Jerry", h.client.replies()[0].content)
}

func TestCommand_LongLinesAreTruncated(t *testing.T) {
	long := strings.Repeat("x", 2100)
	d := &fakeDispatcher{profiles: map[string][]string{"p": {long}}}
	h := startHost(t, Config{Dispatcher: d})
	defer h.stop(t)

	h.client.deliver(Message{ChannelID: "c1", Content: "sm!backup p"})

	require.Eventually(t, func() bool { return len(h.client.replies()) == 1 }, time.Second, time.Millisecond)
	content := h.client.replies()[0].content
	assert.Len(t, content, 2000)
	assert.True(t, strings.HasSuffix(content, "..."))
}

func TestCommand_FailureReply(t *testing.T) {
	d := &fakeDispatcher{fail: errors.New("boom")}
	h := startHost(t, Config{Dispatcher: d})
	defer h.stop(t)

	h.client.deliver(Message{ChannelID: "c1", Content: "sm!start valheim"})

	require.Eventually(t, func() bool { return len(h.client.replies()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, "'sm!start valheim' command sent and failed with exception (boom)", h.client.replies()[0].content)
}

func TestCommand_IgnoresNonCommands(t *testing.T) {
	d := &fakeDispatcher{profiles: map[string][]string{"p": {"ok"}}}
	h := startHost(t, Config{Dispatcher: d})

	h.client.deliver(Message{ChannelID: "c1", Content: "hello there"})
	h.client.deliver(Message{ChannelID: "c1", Content: "sm!dance p"})
	h.client.deliver(Message{ChannelID: "c1", Content: "sm!start p", FromBot: true})
	h.client.deliver(Message{ChannelID: "c1", Content: "sm!"})

	h.stop(t)
	assert.Empty(t, h.client.replies())
	assert.Empty(t, d.requests)
}

func TestHost_ShutdownWaitsForInflightCommands(t *testing.T) {
	d := &fakeDispatcher{profiles: map[string][]string{"p": {"done"}}, block: make(chan struct{})}
	h := startHost(t, Config{Dispatcher: d})

	h.client.deliver(Message{ChannelID: "c1", Content: "sm!restart p"})
	require.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return len(d.requests) == 1
	}, time.Second, time.Millisecond)

	h.cancel()
	select {
	case <-h.done:
		t.Fatal("session stopped while a command was in flight")
	case <-time.After(50 * time.Millisecond):
	}
	assert.False(t, h.client.isClosed())

	close(d.block)
	require.NoError(t, <-h.done)
	assert.True(t, h.client.isClosed())
	require.Len(t, h.client.replies(), 1)
	assert.Equal(t, "done", h.client.replies()[0].content)
}
