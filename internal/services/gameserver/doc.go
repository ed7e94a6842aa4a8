// Package gameserver implements services.Service for a game server process.
//
// The process is started detached from the manager (in its own process group)
// and its pid is recorded in a pid file, so a later manager run, including a
// headless one, can attach to it and stop it.
package gameserver
