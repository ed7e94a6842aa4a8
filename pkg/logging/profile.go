package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	profileMu      sync.Mutex
	profileLoggers = map[string]*profileLogger{}
)

type profileLogger struct {
	file   *os.File
	logger *slog.Logger
}

// ProfileLogFolder returns the log folder of a single profile below logRoot.
func ProfileLogFolder(logRoot, profileID string) string {
	return filepath.Join(logRoot, strings.ToLower(profileID))
}

// ProfileLogger returns a logger writing to <logRoot>/<profile>/<name>.log.
// Loggers are cached per profile and name, so repeated calls share one file handle.
func ProfileLogger(logRoot, profileID, name string) (*slog.Logger, error) {
	if strings.TrimSpace(profileID) == "" || strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("profile id and logger name are required")
	}

	key := strings.ReplaceAll(strings.ToLower(profileID)+"_"+name, " ", "_")

	profileMu.Lock()
	defer profileMu.Unlock()

	if pl, ok := profileLoggers[key]; ok {
		return pl.logger, nil
	}

	dir := ProfileLogFolder(logRoot, profileID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create profile log folder %s: %w", dir, err)
	}

	f, err := os.OpenFile(filepath.Join(dir, name+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile log: %w", err)
	}

	pl := &profileLogger{
		file:   f,
		logger: slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}
	profileLoggers[key] = pl
	return pl.logger, nil
}

// CloseProfileLoggers closes every cached profile log file.
func CloseProfileLoggers() {
	profileMu.Lock()
	defer profileMu.Unlock()

	for key, pl := range profileLoggers {
		_ = pl.file.Close()
		delete(profileLoggers, key)
	}
}
