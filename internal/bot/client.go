package bot

import "context"

// Message is an inbound chat message.
type Message struct {
	// SystemID identifies the chat system or server (guild) the message came from.
	SystemID  string
	ChannelID string
	AuthorID  string
	Content   string
	FromBot   bool
}

// Client is a connection to a chat service.
type Client interface {
	// Open connects the client. Messages are delivered to the registered handler
	// from the client's own goroutines.
	Open(ctx context.Context) error
	Close() error
	OnMessage(handler func(Message))
	Send(ctx context.Context, channelID, content string) error
}

// ClientFactory creates a client authenticated with token.
type ClientFactory func(token string) (Client, error)
