// Package discord implements bot.Client on top of discordgo.
package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"servermanager/internal/bot"
)

// Client is a Discord gateway connection.
type Client struct {
	session *discordgo.Session

	mu      sync.Mutex
	removes []func()
}

var _ bot.Client = (*Client)(nil)

// New creates a client for a bot token. It does not connect.
func New(token string) (*Client, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentGuildMessages | discordgo.IntentDirectMessages | discordgo.IntentMessageContent
	return &Client{session: s}, nil
}

// Factory adapts New to bot.ClientFactory.
func Factory(token string) (bot.Client, error) {
	return New(token)
}

// Open connects to the gateway.
func (c *Client) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.session.Open()
}

// Close removes the registered handlers and disconnects.
func (c *Client) Close() error {
	c.mu.Lock()
	removes := c.removes
	c.removes = nil
	c.mu.Unlock()

	for _, remove := range removes {
		remove()
	}
	return c.session.Close()
}

// OnMessage registers handler for created messages.
func (c *Client) OnMessage(handler func(bot.Message)) {
	remove := c.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Message == nil || m.Author == nil {
			return
		}
		handler(bot.Message{
			SystemID:  m.GuildID,
			ChannelID: m.ChannelID,
			AuthorID:  m.Author.ID,
			Content:   m.Content,
			FromBot:   m.Author.Bot,
		})
	})

	c.mu.Lock()
	c.removes = append(c.removes, remove)
	c.mu.Unlock()
}

// Send posts content to a channel.
func (c *Client) Send(ctx context.Context, channelID, content string) error {
	_, err := c.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	return err
}
