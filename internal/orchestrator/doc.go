// Package orchestrator performs lifecycle actions on the game servers of the fleet.
//
// The Orchestrator implements lifecycle.Implementation (start, stop, restart,
// update, backup and shutdown of one profile) and launch.Performer (the
// unattended shutdown, update and backup runs driven by an external scheduler).
//
// # Serialization
//
// Actions on one profile never overlap. Inside a process a per-profile mutex is
// held for the duration of an action; across processes (an interactive manager
// and a headless run started by the scheduler) a lock file in the run directory
// carries the same guarantee. An action that finds its profile locked fails with
// exit code lifecycle.ExitProfileBusy instead of waiting.
//
// # Services
//
// Each profile is backed by a gameserver.Service registered under the profile id.
// Services are created lazily, attach to processes started by earlier runs
// through their pid files, and publish state changes to subscribers.
//
// # Output
//
// Every action returns human-readable lines that are shown in the shell or sent
// back to chat, and writes them to the profile's "actions" log.
package orchestrator
