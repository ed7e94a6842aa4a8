package launch

import (
	"strings"
)

// Legacy launch argument names. Matching is case-insensitive.
const (
	ArgBeta          = "-beta"
	ArgTest          = "-test"
	ArgTitle         = "-title"
	ArgPublicIP      = "-publicip"
	ArgServerMonitor = "-servermonitor"
	ArgAutoShutdown1 = "-autoshutdown1"
	ArgAutoShutdown2 = "-autoshutdown2"
	ArgAutoUpdate    = "-autoupdate"
	ArgAutoBackup    = "-autobackup"
	ArgUpdate        = "-update"
	ArgBackup        = "-backup"
)

// Options are the launch options recognized from the argument vector.
type Options struct {
	// Args is the raw argument vector.
	Args []string

	Beta          bool
	Title         string
	ForcePublicIP bool
	ServerMonitor bool

	// Headless is set when an automation flag matched.
	Headless *HeadlessInvocation

	// Rest holds the arguments that are not legacy launch arguments.
	Rest []string
}

// Parse extracts the launch options from args.
func Parse(args []string) Options {
	opts := Options{
		Args:     append([]string(nil), args...),
		Headless: Classify(args),
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case equalFold(arg, ArgBeta), equalFold(arg, ArgTest):
			opts.Beta = true
		case equalFold(arg, ArgTitle):
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				opts.Title = strings.TrimSpace(args[i+1])
				i++
			}
		case equalFold(arg, ArgPublicIP):
			opts.ForcePublicIP = true
		case hasPrefixFold(arg, ArgServerMonitor):
			opts.ServerMonitor = true
		case hasPrefixFold(arg, ArgAutoShutdown1), hasPrefixFold(arg, ArgAutoShutdown2),
			equalFold(arg, ArgAutoUpdate), equalFold(arg, ArgAutoBackup),
			equalFold(arg, ArgUpdate), equalFold(arg, ArgBackup):
			// consumed by Classify
		default:
			opts.Rest = append(opts.Rest, arg)
		}
	}

	return opts
}

func equalFold(arg, name string) bool {
	return strings.EqualFold(arg, name)
}

func hasPrefixFold(arg, prefix string) bool {
	return len(arg) >= len(prefix) && strings.EqualFold(arg[:len(prefix)], prefix)
}
