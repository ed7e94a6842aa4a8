// Package lifecycle defines the lifecycle actions that can be applied to a server
// profile and the registry that binds an action kind to its implementation.
//
// The registry is a pure lookup table: it performs no I/O and holds no profile
// state. Both dispatch surfaces (the headless driver and the command bridge) go
// through it, so the set of actions and their names is defined exactly once.
package lifecycle
