package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// errLocked is returned when another process holds a profile lock.
var errLocked = errors.New("locked by another process")

// lockSettleTime is how long an unreadable lock file is assumed to be still
// being written by its creator.
const lockSettleTime = 5 * time.Second

type lockFileInfo struct {
	PID       int    `json:"pid"`
	Timestamp int64  `json:"timestamp"`
	Action    string `json:"action"`
}

// acquireLockFile creates dir/<profile>.lock atomically. Stale locks of dead
// processes are removed once.
func acquireLockFile(dir, profileID, action string) (func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	lockPath := filepath.Join(dir, strings.ToLower(profileID)+".lock")

	data, err := json.Marshal(lockFileInfo{PID: os.Getpid(), Timestamp: time.Now().Unix(), Action: action})
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < 2; attempt++ {
		file, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			if _, err := file.Write(data); err != nil {
				file.Close()
				os.Remove(lockPath)
				return nil, fmt.Errorf("failed to write lock file: %w", err)
			}
			if err := file.Close(); err != nil {
				os.Remove(lockPath)
				return nil, fmt.Errorf("failed to close lock file: %w", err)
			}
			return func() { _ = os.Remove(lockPath) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create lock file: %w", err)
		}

		stat, statErr := os.Stat(lockPath)
		existing, readErr := os.ReadFile(lockPath)
		if statErr != nil || readErr != nil {
			return nil, errLocked
		}
		var info lockFileInfo
		if json.Unmarshal(existing, &info) != nil || info.PID <= 0 {
			if time.Since(stat.ModTime()) < lockSettleTime {
				return nil, errLocked
			}
		} else if alive, _ := process.PidExists(int32(info.PID)); alive {
			return nil, fmt.Errorf("%w (pid %d, %s)", errLocked, info.PID, info.Action)
		}
		if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale lock file: %w", err)
		}
	}
	return nil, errLocked
}
