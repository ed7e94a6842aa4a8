package guard

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/renameio/v2"
	"github.com/shirou/gopsutil/v3/process"
)

// PidFile records the running instance in a pid file.
type PidFile struct {
	Path string

	// sameExecutable reports whether pid runs this program.
	sameExecutable func(pid int) bool
	signal         func(pid int) error
}

// NewPidFile returns a locator backed by path.
func NewPidFile(path string) *PidFile {
	return &PidFile{Path: path, sameExecutable: runsThisExecutable, signal: signalSwitch}
}

// Find implements InstanceLocator. Records of dead or foreign processes are ignored.
func (f *PidFile) Find() (int, bool, error) {
	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read pid file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false, nil
	}
	if pid == os.Getpid() {
		return 0, false, nil
	}
	if alive, _ := process.PidExists(int32(pid)); !alive {
		return 0, false, nil
	}
	if !f.sameExecutable(pid) {
		return 0, false, nil
	}
	return pid, true, nil
}

// Register implements InstanceLocator.
func (f *PidFile) Register() (func(), error) {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}
	pid := os.Getpid()
	if err := renameio.WriteFile(f.Path, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write pid file: %w", err)
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			// Only remove our own record.
			data, err := os.ReadFile(f.Path)
			if err == nil && strings.TrimSpace(string(data)) == strconv.Itoa(pid) {
				_ = os.Remove(f.Path)
			}
		})
	}, nil
}

// SwitchTo implements InstanceLocator.
func (f *PidFile) SwitchTo(pid int) error {
	return f.signal(pid)
}

func runsThisExecutable(pid int) bool {
	self, err := os.Executable()
	if err != nil {
		return false
	}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	exe, err := p.Exe()
	if err != nil {
		return false
	}
	return sameFile(self, exe)
}

func sameFile(a, b string) bool {
	if resolved, err := filepath.EvalSymlinks(a); err == nil {
		a = resolved
	}
	if resolved, err := filepath.EvalSymlinks(b); err == nil {
		b = resolved
	}
	return filepath.Clean(a) == filepath.Clean(b)
}
