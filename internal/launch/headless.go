package launch

import (
	"strings"
)

// Mode is an unattended launch mode.
type Mode int

const (
	ModeShutdown1 Mode = iota + 1
	ModeShutdown2
	ModeUpdate
	ModeBackup
)

func (m Mode) String() string {
	switch m {
	case ModeShutdown1:
		return "autoshutdown1"
	case ModeShutdown2:
		return "autoshutdown2"
	case ModeUpdate:
		return "autoupdate"
	case ModeBackup:
		return "autobackup"
	default:
		return "unknown"
	}
}

// HeadlessInvocation is the single unattended action selected for this process.
type HeadlessInvocation struct {
	Mode Mode

	// Argument is the raw argument that matched.
	Argument string

	// ProfileID is the profile named by a shutdown argument. It may be empty when
	// the argument is malformed; the action still runs and fails with an exit code.
	ProfileID string
}

// matcher pairs a mode with the argument names selecting it, in precedence order.
type matcher struct {
	mode   Mode
	names  []string
	prefix bool
}

var precedence = []matcher{
	{mode: ModeShutdown1, names: []string{ArgAutoShutdown1}, prefix: true},
	{mode: ModeShutdown2, names: []string{ArgAutoShutdown2}, prefix: true},
	{mode: ModeUpdate, names: []string{ArgAutoUpdate, ArgUpdate}},
	{mode: ModeBackup, names: []string{ArgAutoBackup, ArgBackup}},
}

// Classify returns the headless invocation selected by args, or nil when the
// interactive shell should start. When several automation flags are present the
// first mode in precedence order wins: shutdown1, shutdown2, update, backup.
func Classify(args []string) *HeadlessInvocation {
	for _, m := range precedence {
		for _, arg := range args {
			name, ok := m.match(arg)
			if !ok {
				continue
			}
			inv := &HeadlessInvocation{Mode: m.mode, Argument: arg}
			if m.prefix {
				inv.ProfileID = profilePayload(arg[len(name):])
			}
			return inv
		}
	}
	return nil
}

// match returns the name that arg matched.
func (m matcher) match(arg string) (string, bool) {
	for _, name := range m.names {
		if m.prefix && hasPrefixFold(arg, name) || !m.prefix && equalFold(arg, name) {
			return name, true
		}
	}
	return "", false
}

// profilePayload strips an optional separator in front of the profile id.
func profilePayload(rest string) string {
	return strings.TrimSpace(strings.TrimLeft(rest, "=:_"))
}
