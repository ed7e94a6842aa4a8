// Package bridge connects remote command sources to the lifecycle action registry.
//
// A remote surface (the chat bot, the interactive shell) builds a CommandRequest
// and hands it to a LifecycleDispatcher. The dispatcher resolves the profile
// against the live fleet and runs the matching action synchronously. A request
// that matches no profile yields no response at all, which is distinct from a
// response without lines.
package bridge

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"servermanager/internal/lifecycle"
	"servermanager/pkg/logging"
)

// CommandRequest describes one remote request for a lifecycle action.
type CommandRequest struct {
	Action          lifecycle.ActionKind
	OriginSystemID  string
	OriginChannelID string
	ProfileID       string
	IssuerToken     string
}

// LifecycleDispatcher runs lifecycle actions on behalf of a remote surface.
//
// Dispatch returns ok == false when no profile matched the request. Otherwise it
// returns the ordered output lines of the action, which may be empty. Faults
// never escape Dispatch; they are reported as a single line.
type LifecycleDispatcher interface {
	Dispatch(ctx context.Context, req CommandRequest) (lines []string, ok bool)
}

// ProfileResolver maps a requested profile id to its canonical id.
type ProfileResolver interface {
	Resolve(id, channelID string) (string, bool)
}

// Bridge is the LifecycleDispatcher backed by a profile resolver and an action registry.
type Bridge struct {
	resolver ProfileResolver
	registry *lifecycle.Registry
}

var _ LifecycleDispatcher = (*Bridge)(nil)

// New creates a Bridge.
func New(resolver ProfileResolver, registry *lifecycle.Registry) *Bridge {
	return &Bridge{resolver: resolver, registry: registry}
}

// Dispatch implements LifecycleDispatcher.
func (b *Bridge) Dispatch(ctx context.Context, req CommandRequest) (lines []string, ok bool) {
	profileID, found := b.resolver.Resolve(req.ProfileID, req.OriginChannelID)
	if !found {
		logging.Debug("Bridge", "No profile %q for origin %s/%s", req.ProfileID, req.OriginSystemID, req.OriginChannelID)
		return nil, false
	}

	correlation := uuid.NewString()
	logging.Info("Bridge", "[%s] %s %s requested from %s", correlation, req.Action, profileID, originLabel(req))

	op, err := b.registry.Bind(req.Action, lifecycle.Request{
		ProfileID:       profileID,
		OriginSystemID:  req.OriginSystemID,
		OriginChannelID: req.OriginChannelID,
		IssuerToken:     req.IssuerToken,
	})
	if err != nil {
		logging.Error("Bridge", err, "[%s] Cannot bind %s", correlation, req.Action)
		return []string{faultLine(req.Action, profileID, err)}, true
	}

	lines, err = invoke(ctx, op)
	if err != nil {
		logging.Error("Bridge", err, "[%s] %s %s failed", correlation, req.Action, profileID)
		return []string{faultLine(req.Action, profileID, err)}, true
	}
	if lines == nil {
		lines = []string{}
	}
	logging.Debug("Bridge", "[%s] %s %s produced %d line(s)", correlation, req.Action, profileID, len(lines))
	return lines, true
}

func invoke(ctx context.Context, op lifecycle.Operation) (lines []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			lines = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return op(ctx)
}

// FaultLine is the single line reported for a command that failed.
func FaultLine(command, reason string) string {
	return fmt.Sprintf("'%s' command sent and failed with exception (%s)", command, reason)
}

func faultLine(action lifecycle.ActionKind, profileID string, err error) string {
	return FaultLine(action.String()+" "+profileID, err.Error())
}

func originLabel(req CommandRequest) string {
	if req.OriginSystemID == "" && req.OriginChannelID == "" {
		return "local"
	}
	return req.OriginSystemID + "/" + req.OriginChannelID
}
