package app

import (
	"io"
	"net/http"

	"servermanager/internal/bot"
	"servermanager/internal/guard"
	"servermanager/internal/launch"
)

// Config holds the application configuration
type Config struct {
	// Debug settings
	Debug bool

	// Silent suppresses CLI log output.
	Silent bool

	// Directory holding config.yaml. Empty means the default location.
	ConfigPath string

	// Launch holds the parsed legacy launch arguments.
	Launch launch.Options

	Version string

	// PublicIPEndpoint returns the caller's address as plain text.
	PublicIPEndpoint string
	HTTPClient       *http.Client

	NewBotClient bot.ClientFactory

	Prompter  guard.Prompter
	Instances guard.InstanceLocator
	Elevator  guard.Elevator

	Stdin  io.ReadCloser
	Stdout io.Writer
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, configPath string, opts launch.Options) *Config {
	return &Config{
		Debug:      debug,
		ConfigPath: configPath,
		Launch:     opts,
	}
}
