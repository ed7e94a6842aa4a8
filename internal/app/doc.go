// Package app wires the application context together and runs it.
//
// An Application owns the loaded configuration, the translation catalog, the
// fleet of server profiles, the orchestrator that implements the lifecycle
// actions, the action registry and the command bridge. It runs in one of two
// modes per launch:
//
//   - RunHeadless performs a single unattended action selected by a launch
//     argument and returns the process exit code.
//   - Run starts the interactive session: startup guard, profile watcher,
//     shell (or the read-only server monitor) and the supervised chat bot.
//
// Faults of the chat bot are delivered to a single consumer that reports the
// innermost cause once through the shell.
package app
