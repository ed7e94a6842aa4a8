package config

import (
	"os"
	"path/filepath"
)

const (
	DefaultProfilesRelativePath = "profiles"
	DefaultLogsRelativePath     = "logs"
	DefaultBackupRelativePath   = "backups"
	DefaultBotPrefix            = "sm"
	DefaultParallelism          = 2
)

// GetDefaultConfig returns the configuration used when no config file exists.
func GetDefaultConfig() Config {
	return Config{
		DataPath:                    defaultDataPath(),
		ProfilesRelativePath:        DefaultProfilesRelativePath,
		LogsRelativePath:            DefaultLogsRelativePath,
		BackupRelativePath:          DefaultBackupRelativePath,
		ManagePublicIPAutomatically: true,
		Bot: BotConfig{
			Prefix: DefaultBotPrefix,
		},
		Automation: AutomationConfig{
			Parallelism: DefaultParallelism,
		},
	}
}

func defaultDataPath() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(dir, ".local", "share", "servermanager")
	}
	return filepath.Join(os.TempDir(), "servermanager")
}

// applyDefaults fills the relative paths a partial config file left empty.
func applyDefaults(c *Config) {
	d := GetDefaultConfig()
	if c.DataPath == "" {
		c.DataPath = d.DataPath
	}
	if c.ProfilesRelativePath == "" {
		c.ProfilesRelativePath = d.ProfilesRelativePath
	}
	if c.LogsRelativePath == "" {
		c.LogsRelativePath = d.LogsRelativePath
	}
	if c.BackupRelativePath == "" {
		c.BackupRelativePath = d.BackupRelativePath
	}
	if c.Automation.Parallelism <= 0 {
		c.Automation.Parallelism = d.Automation.Parallelism
	}
}
