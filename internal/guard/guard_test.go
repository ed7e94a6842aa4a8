package guard

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePrompter struct {
	answers []bool
	asked   []string
	alerts  []string
}

func (p *fakePrompter) Confirm(title, _ string) (bool, error) {
	p.asked = append(p.asked, title)
	if len(p.answers) == 0 {
		return false, nil
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, nil
}

func (p *fakePrompter) Alert(title, _ string) {
	p.alerts = append(p.alerts, title)
}

type fakeLocator struct {
	pid       int
	found     bool
	switchErr error
	switched  []int
	registers int
	released  int
}

func (l *fakeLocator) Find() (int, bool, error) { return l.pid, l.found, nil }

func (l *fakeLocator) Register() (func(), error) {
	l.registers++
	return func() { l.released++ }, nil
}

func (l *fakeLocator) SwitchTo(pid int) error {
	l.switched = append(l.switched, pid)
	return l.switchErr
}

type fakeElevator struct {
	elevated    bool
	relaunchErr error
	relaunched  [][]string
}

func (e *fakeElevator) IsElevated() bool { return e.elevated }

func (e *fakeElevator) Relaunch(args []string) error {
	e.relaunched = append(e.relaunched, args)
	return e.relaunchErr
}

func TestRunNoOtherInstance(t *testing.T) {
	p := &fakePrompter{}
	l := &fakeLocator{}
	d := Run(context.Background(), Options{Prompter: p, Instances: l})

	assert.False(t, d.Exit)
	assert.Empty(t, p.asked)
	assert.Equal(t, 1, l.registers)
	d.Release()
	assert.Equal(t, 1, l.released)
}

func TestRunSwitchesToRunningInstance(t *testing.T) {
	p := &fakePrompter{answers: []bool{true}}
	l := &fakeLocator{pid: 4711, found: true}
	d := Run(context.Background(), Options{Prompter: p, Instances: l})

	assert.True(t, d.Exit)
	assert.Equal(t, []int{4711}, l.switched)
	assert.Equal(t, []string{"Application_SingleInstanceTitle"}, p.asked)
	assert.Zero(t, l.registers)
}

func TestRunSwitchFailureContinues(t *testing.T) {
	p := &fakePrompter{answers: []bool{true}}
	l := &fakeLocator{pid: 4711, found: true, switchErr: ErrSwitchUnsupported}
	d := Run(context.Background(), Options{Prompter: p, Instances: l})

	assert.False(t, d.Exit)
	assert.Equal(t, []string{"Application_SingleInstance_FailedTitle"}, p.alerts)
	assert.Zero(t, l.registers)
	assert.NotNil(t, d.Release)
}

func TestRunDeclinedSwitchContinues(t *testing.T) {
	p := &fakePrompter{answers: []bool{false}}
	l := &fakeLocator{pid: 4711, found: true}
	d := Run(context.Background(), Options{Prompter: p, Instances: l})

	assert.False(t, d.Exit)
	assert.Empty(t, l.switched)
	assert.Empty(t, p.alerts)
}

func TestRunElevation(t *testing.T) {
	tests := []struct {
		name        string
		require     bool
		elevated    bool
		answer      bool
		relaunchErr error
		wantExit    bool
		wantAsked   []string
		wantAlerts  []string
		wantRelaunch int
	}{
		{name: "not required", require: false, wantAsked: nil},
		{name: "already elevated", require: true, elevated: true, wantAsked: nil},
		{name: "declined", require: true, answer: false, wantAsked: []string{"Application_RunAsAdministratorTitle"}},
		{
			name: "relaunched", require: true, answer: true, wantExit: true,
			wantAsked: []string{"Application_RunAsAdministratorTitle"}, wantRelaunch: 1,
		},
		{
			name: "relaunch failed", require: true, answer: true, relaunchErr: errors.New("denied"),
			wantAsked:  []string{"Application_RunAsAdministratorTitle"},
			wantAlerts: []string{"Application_RunAsAdministrator_FailedTitle"}, wantRelaunch: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePrompter{answers: []bool{tt.answer}}
			e := &fakeElevator{elevated: tt.elevated, relaunchErr: tt.relaunchErr}
			d := Run(context.Background(), Options{
				Prompter:         p,
				Elevator:         e,
				RequireElevation: tt.require,
				Args:             []string{"-beta"},
			})

			assert.Equal(t, tt.wantExit, d.Exit)
			assert.Equal(t, tt.wantAsked, p.asked)
			assert.Equal(t, tt.wantAlerts, p.alerts)
			assert.Len(t, e.relaunched, tt.wantRelaunch)
			if tt.wantRelaunch > 0 {
				assert.Equal(t, []string{"-beta"}, e.relaunched[0])
			}
		})
	}
}

func TestRunElevationBeforeInstanceCheck(t *testing.T) {
	p := &fakePrompter{answers: []bool{true}}
	l := &fakeLocator{pid: 1, found: true}
	e := &fakeElevator{}
	d := Run(context.Background(), Options{Prompter: p, Instances: l, Elevator: e, RequireElevation: true})

	assert.True(t, d.Exit)
	assert.Empty(t, l.switched)
}

func TestRunTranslates(t *testing.T) {
	p := &fakePrompter{}
	l := &fakeLocator{found: true, pid: 2}
	Run(context.Background(), Options{
		Prompter:  p,
		Instances: l,
		Translate: func(key string) string { return "T:" + key },
	})
	assert.Equal(t, []string{"T:Application_SingleInstanceTitle"}, p.asked)
}

func TestPidFileRegisterAndFind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "servermanager.pid")
	f := NewPidFile(path)

	_, found, err := f.Find()
	require.NoError(t, err)
	assert.False(t, found)

	release, err := f.Register()
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid())+"\n", string(data))

	// Our own record is not another instance.
	_, found, err = f.Find()
	require.NoError(t, err)
	assert.False(t, found)

	release()
	release()
	assert.NoFileExists(t, path)
}

func TestPidFileFindsOtherInstance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servermanager.pid")
	ppid := os.Getppid()
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(ppid)), 0o644))

	f := NewPidFile(path)
	f.sameExecutable = func(pid int) bool { return pid == ppid }
	pid, found, err := f.Find()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, ppid, pid)

	f.sameExecutable = func(int) bool { return false }
	_, found, err = f.Find()
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPidFileIgnoresGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servermanager.pid")
	require.NoError(t, os.WriteFile(path, []byte("not a pid"), 0o644))

	_, found, err := NewPidFile(path).Find()
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPidFileReleaseKeepsForeignRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servermanager.pid")
	f := NewPidFile(path)
	release, err := f.Register()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("12345\n"), 0o644))
	release()
	assert.FileExists(t, path)
}

func TestPidFileSwitchTo(t *testing.T) {
	f := NewPidFile(filepath.Join(t.TempDir(), "x.pid"))
	var got int
	f.signal = func(pid int) error { got = pid; return nil }
	require.NoError(t, f.SwitchTo(99))
	assert.Equal(t, 99, got)
}

func TestTerminalPrompterWithoutTerminal(t *testing.T) {
	var out bytes.Buffer
	p := &TerminalPrompter{Stdout: &out, isTerminal: func() bool { return false }}

	ok, err := p.Confirm("title", "label")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNotInteractive)
	assert.Empty(t, out.String())

	p.Alert("Switch failed", "Continuing.")
	assert.Equal(t, "Switch failed: Continuing.\n", out.String())
}
