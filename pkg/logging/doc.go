// Package logging provides the subsystem logger used across servermanager.
//
// It is a thin layer over log/slog with two sinks:
//
//   - CLI mode: entries are written by a text handler to the configured writer.
//     Headless runs, the scheduler and one-shot commands use this mode.
//   - Shell mode: entries are pushed on a buffered channel which the interactive
//     shell drains and prints above its prompt, so log output never tears the
//     line being edited.
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Bootstrap", "Loaded %d profiles", n)
//	logging.Error("Orchestrator", err, "Failed to stop %s", profileID)
//
// Every call names a subsystem ("Bootstrap", "Bridge", "BotHost", ...), which is
// emitted as the subsystem attribute.
//
// # Profile logs
//
// ProfileLogger returns a logger writing to <logs>/<profile>/<name>.log. The
// orchestrator records every action executed against a profile there, which gives
// operators a per-server history independent of the process log.
package logging
