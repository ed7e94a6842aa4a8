package fleet

import (
	"fmt"
	"strings"
	"time"
)

// AutoShutdown configures one of the two scheduled shutdown variants of a profile.
type AutoShutdown struct {
	Enabled bool `yaml:"enabled"`

	// Schedule is a cron expression used by the scheduler.
	Schedule string `yaml:"schedule,omitempty"`

	// Update runs the update command after the shutdown.
	Update bool `yaml:"update,omitempty"`

	// Restart starts the server again after the shutdown (and update).
	Restart bool `yaml:"restart,omitempty"`
}

// Profile describes a single managed game server.
type Profile struct {
	ID               string            `yaml:"id"`
	Name             string            `yaml:"name,omitempty"`
	InstallDirectory string            `yaml:"installDirectory"`
	Executable       string            `yaml:"executable"`
	Arguments        []string          `yaml:"arguments,omitempty"`
	Environment      map[string]string `yaml:"environment,omitempty"`
	SaveDirectory    string            `yaml:"saveDirectory,omitempty"`

	// UpdateCommand is run with the install directory as working directory.
	UpdateCommand []string `yaml:"updateCommand,omitempty"`

	StopTimeout         time.Duration `yaml:"stopTimeout,omitempty"`
	ShutdownGracePeriod time.Duration `yaml:"shutdownGracePeriod,omitempty"`

	AutoUpdate   bool `yaml:"autoUpdate,omitempty"`
	AutoBackup   bool `yaml:"autoBackup,omitempty"`
	BackupRetain int  `yaml:"backupRetain,omitempty"`

	AutoShutdown1 AutoShutdown `yaml:"autoShutdown1,omitempty"`
	AutoShutdown2 AutoShutdown `yaml:"autoShutdown2,omitempty"`

	// ChatChannels restricts chat commands to these channel ids. Empty means any channel.
	ChatChannels []string `yaml:"chatChannels,omitempty"`
}

const (
	DefaultStopTimeout  = 30 * time.Second
	DefaultBackupRetain = 10
)

// Key returns the case-insensitive lookup key of the profile.
func (p *Profile) Key() string {
	return NormalizeID(p.ID)
}

// DisplayName returns the name, falling back to the id.
func (p *Profile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// EffectiveStopTimeout returns the stop timeout or its default.
func (p *Profile) EffectiveStopTimeout() time.Duration {
	if p.StopTimeout > 0 {
		return p.StopTimeout
	}
	return DefaultStopTimeout
}

// EffectiveBackupRetain returns the number of archives to keep.
func (p *Profile) EffectiveBackupRetain() int {
	if p.BackupRetain > 0 {
		return p.BackupRetain
	}
	return DefaultBackupRetain
}

// AutoShutdownVariant returns the settings of shutdown variant 1 or 2.
func (p *Profile) AutoShutdownVariant(variant int) (AutoShutdown, error) {
	switch variant {
	case 1:
		return p.AutoShutdown1, nil
	case 2:
		return p.AutoShutdown2, nil
	default:
		return AutoShutdown{}, fmt.Errorf("unknown shutdown variant %d", variant)
	}
}

// AllowsChannel reports whether a chat command from channelID may target this profile.
// An empty channel id denotes a local origin and is always allowed.
func (p *Profile) AllowsChannel(channelID string) bool {
	if channelID == "" || len(p.ChatChannels) == 0 {
		return true
	}
	for _, c := range p.ChatChannels {
		if c == channelID {
			return true
		}
	}
	return false
}

// Validate checks the fields every profile needs.
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("profile id is required")
	}
	if strings.ContainsAny(p.ID, `/\`) {
		return fmt.Errorf("profile id %q must not contain path separators", p.ID)
	}
	if p.Executable == "" {
		return fmt.Errorf("profile %s: executable is required", p.ID)
	}
	if p.StopTimeout < 0 || p.ShutdownGracePeriod < 0 {
		return fmt.Errorf("profile %s: durations must not be negative", p.ID)
	}
	return nil
}

// Clone returns a deep copy of the profile.
func (p *Profile) Clone() *Profile {
	c := *p
	c.Arguments = append([]string(nil), p.Arguments...)
	c.UpdateCommand = append([]string(nil), p.UpdateCommand...)
	c.ChatChannels = append([]string(nil), p.ChatChannels...)
	if p.Environment != nil {
		c.Environment = make(map[string]string, len(p.Environment))
		for k, v := range p.Environment {
			c.Environment[k] = v
		}
	}
	return &c
}

// NormalizeID folds a profile id to its lookup key.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
