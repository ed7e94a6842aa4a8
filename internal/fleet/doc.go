// Package fleet holds the server profiles managed by servermanager.
//
// A profile is one independently configured game server. Profiles live as yaml
// files in the profiles directory and are keyed by a case-insensitive id. The
// Fleet type is shared between the interactive shell, the chat bot session and
// the orchestrator; it is read-mostly and guarded by an RWMutex. A Watcher keeps
// the in-memory fleet in sync with the files on disk.
package fleet
