package lifecycle

import (
	"context"
	"fmt"
)

// Request carries everything an action needs to know about who asked for it.
type Request struct {
	// ProfileID is the canonical id of an already resolved profile.
	ProfileID string

	// OriginSystemID and OriginChannelID identify the remote origin, if any.
	OriginSystemID  string
	OriginChannelID string

	// IssuerToken is passed through untouched; authorization is the action's concern.
	IssuerToken string
}

// Action implements one kind of lifecycle operation. It returns the ordered,
// human-readable output lines it produced.
type Action func(ctx context.Context, req Request) ([]string, error)

// Operation is an action bound to a concrete request, ready to be invoked.
type Operation func(ctx context.Context) ([]string, error)

// Registry maps action kinds to their implementations. It is built once and
// never modified afterwards, so it is safe for concurrent use.
type Registry struct {
	actions map[ActionKind]Action
}

// NewRegistry builds a registry from the given actions. Every action kind must be
// provided exactly once.
func NewRegistry(actions map[ActionKind]Action) (*Registry, error) {
	r := &Registry{actions: make(map[ActionKind]Action, len(AllActions))}
	for kind, action := range actions {
		if !kind.Valid() {
			return nil, fmt.Errorf("cannot register invalid action kind %d", int(kind))
		}
		if action == nil {
			return nil, fmt.Errorf("action %s has no implementation", kind)
		}
		r.actions[kind] = action
	}
	for _, kind := range AllActions {
		if _, ok := r.actions[kind]; !ok {
			return nil, fmt.Errorf("action %s is not registered", kind)
		}
	}
	return r, nil
}

// Bind returns the operation for kind applied to req.
func (r *Registry) Bind(kind ActionKind, req Request) (Operation, error) {
	action, ok := r.actions[kind]
	if !ok {
		return nil, fmt.Errorf("action %s is not registered", kind)
	}
	if req.ProfileID == "" {
		return nil, fmt.Errorf("action %s requires a profile", kind)
	}
	return func(ctx context.Context) ([]string, error) {
		return action(ctx, req)
	}, nil
}

// Implementation is satisfied by anything that can perform all six actions.
type Implementation interface {
	Start(ctx context.Context, req Request) ([]string, error)
	Stop(ctx context.Context, req Request) ([]string, error)
	Restart(ctx context.Context, req Request) ([]string, error)
	Update(ctx context.Context, req Request) ([]string, error)
	Backup(ctx context.Context, req Request) ([]string, error)
	Shutdown(ctx context.Context, req Request) ([]string, error)
}

// RegistryFor builds a registry whose entries delegate to impl.
func RegistryFor(impl Implementation) (*Registry, error) {
	return NewRegistry(map[ActionKind]Action{
		ActionStart:    impl.Start,
		ActionStop:     impl.Stop,
		ActionRestart:  impl.Restart,
		ActionUpdate:   impl.Update,
		ActionBackup:   impl.Backup,
		ActionShutdown: impl.Shutdown,
	})
}
