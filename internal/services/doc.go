// Package services tracks the runtime state of managed game servers.
//
// Every profile in the fleet gets one Service in a ServiceRegistry. A Service
// knows how to start, stop and restart its process and reports its state and
// health through a StateChangeCallback. Concrete implementations embed
// BaseService for the bookkeeping; see the gameserver subpackage for the
// process-backed one.
//
// Service names are profile ids and are matched case-insensitively by the
// registry.
//
// # Thread Safety
//
// The registry and BaseService are safe for concurrent use. Serializing
// operations on one service is the caller's concern; the orchestrator holds a
// per-profile lock around every lifecycle action.
package services
