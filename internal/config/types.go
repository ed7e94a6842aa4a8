package config

import (
	"path/filepath"
)

// Config is the application configuration.
type Config struct {
	// UniqueKey identifies this installation. Generated on first start.
	UniqueKey string `yaml:"uniqueKey,omitempty"`

	DataPath             string `yaml:"dataPath"`
	ProfilesRelativePath string `yaml:"profilesRelativePath,omitempty"`
	LogsRelativePath     string `yaml:"logsRelativePath,omitempty"`
	BackupRelativePath   string `yaml:"backupRelativePath,omitempty"`

	// BackupPath overrides DataPath/BackupRelativePath when set.
	BackupPath string `yaml:"backupPath,omitempty"`

	CultureName string `yaml:"cultureName,omitempty"`

	MachinePublicIP             string `yaml:"machinePublicIP,omitempty"`
	ManagePublicIPAutomatically bool   `yaml:"managePublicIPAutomatically"`

	RunAsAdministratorPrompt bool `yaml:"runAsAdministratorPrompt,omitempty"`

	Bot BotConfig `yaml:"bot,omitempty"`

	Automation AutomationConfig `yaml:"automation,omitempty"`
}

// BotConfig configures the chat bot session.
type BotConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Token   string `yaml:"token,omitempty"`
	Prefix  string `yaml:"prefix,omitempty"`
}

// AutomationConfig configures the unattended update and backup runs.
type AutomationConfig struct {
	// AutoUpdateSchedule and AutoBackupSchedule are cron expressions used by the scheduler.
	AutoUpdateSchedule string `yaml:"autoUpdateSchedule,omitempty"`
	AutoBackupSchedule string `yaml:"autoBackupSchedule,omitempty"`

	// Parallelism bounds how many profiles are updated or backed up at once.
	Parallelism int `yaml:"parallelism,omitempty"`
}

// ProfilesPath returns the directory holding the profile files.
func (c *Config) ProfilesPath() string {
	return filepath.Join(c.DataPath, c.ProfilesRelativePath)
}

// LogsPath returns the log root directory.
func (c *Config) LogsPath() string {
	return filepath.Join(c.DataPath, c.LogsRelativePath)
}

// BackupsPath returns the directory backups are written to.
func (c *Config) BackupsPath() string {
	if c.BackupPath != "" {
		return filepath.Clean(c.BackupPath)
	}
	return filepath.Join(c.DataPath, c.BackupRelativePath)
}

// RunPath returns the directory for pid and lock files.
func (c *Config) RunPath() string {
	return filepath.Join(c.DataPath, "run")
}
