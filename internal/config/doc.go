// Package config loads and persists the servermanager application configuration.
//
// The configuration lives in a single config.yaml, by default in
// ~/.config/servermanager. A missing file yields the defaults. Saving writes the
// file atomically so a crash never leaves a truncated configuration behind.
//
// Profiles are not part of this file; they are stored one per file below
// DataPath/ProfilesRelativePath and handled by package fleet.
package config
