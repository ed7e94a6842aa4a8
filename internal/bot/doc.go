// Package bot hosts the remote chat command session.
//
// A Host owns at most one session at a time. Starting it validates the
// configuration, connects a protocol Client and registers the command service,
// then blocks until the context passed to Start is cancelled. Cancellation is the
// only way to end a session; teardown waits for in-flight commands and closes the
// client.
//
// Chat messages of the form "<prefix><verb> <profile>" are turned into
// bridge.CommandRequest values and handed to a bridge.LifecycleDispatcher. Each
// command runs on its own goroutine and its reply lines are delivered in order,
// paced by a rate limiter.
package bot
