package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActionKind(t *testing.T) {
	tests := []struct {
		verb    string
		want    ActionKind
		wantErr bool
	}{
		{verb: "start", want: ActionStart},
		{verb: "STOP", want: ActionStop},
		{verb: " Restart ", want: ActionRestart},
		{verb: "update", want: ActionUpdate},
		{verb: "backup", want: ActionBackup},
		{verb: "shutdown", want: ActionShutdown},
		{verb: "reboot", wantErr: true},
		{verb: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.verb, func(t *testing.T) {
			got, err := ParseActionKind(tt.verb)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()), "String and Parse agree")
		})
	}
}

func mustParse(t *testing.T, verb string) ActionKind {
	t.Helper()
	k, err := ParseActionKind(verb)
	require.NoError(t, err)
	return k
}

func TestActionKind_Valid(t *testing.T) {
	for _, k := range AllActions {
		assert.True(t, k.Valid(), k.String())
	}
	assert.False(t, ActionKind(0).Valid())
	assert.False(t, ActionKind(42).Valid())
	assert.Equal(t, "unknown(42)", ActionKind(42).String())
}

func TestExitCodeOf(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCodeOf(nil))
	assert.Equal(t, ExitFailed, ExitCodeOf(errors.New("plain")))
	assert.Equal(t, ExitProfileNotFound, ExitCodeOf(NewExitError(ExitProfileNotFound, errors.New("missing"))))

	wrapped := fmt.Errorf("headless: %w", NewExitError(ExitProfileBusy, errors.New("locked")))
	assert.Equal(t, ExitProfileBusy, ExitCodeOf(wrapped))
	assert.Equal(t, "locked", NewExitError(ExitProfileBusy, errors.New("locked")).Error())
	assert.Equal(t, "exit code 7", (&ExitError{Code: 7}).Error())
}

func allActions(record *[]string) map[ActionKind]Action {
	actions := map[ActionKind]Action{}
	for _, k := range AllActions {
		kind := k
		actions[kind] = func(_ context.Context, req Request) ([]string, error) {
			*record = append(*record, kind.String()+":"+req.ProfileID)
			return []string{kind.String()}, nil
		}
	}
	return actions
}

func TestNewRegistry(t *testing.T) {
	var calls []string

	t.Run("complete", func(t *testing.T) {
		r, err := NewRegistry(allActions(&calls))
		require.NoError(t, err)
		require.NotNil(t, r)
	})

	t.Run("missing action", func(t *testing.T) {
		actions := allActions(&calls)
		delete(actions, ActionBackup)
		_, err := NewRegistry(actions)
		assert.ErrorContains(t, err, "backup")
	})

	t.Run("nil action", func(t *testing.T) {
		actions := allActions(&calls)
		actions[ActionStop] = nil
		_, err := NewRegistry(actions)
		assert.ErrorContains(t, err, "stop")
	})

	t.Run("invalid kind", func(t *testing.T) {
		actions := allActions(&calls)
		actions[ActionKind(99)] = actions[ActionStart]
		_, err := NewRegistry(actions)
		assert.Error(t, err)
	})
}

func TestRegistry_Bind(t *testing.T) {
	var calls []string
	r, err := NewRegistry(allActions(&calls))
	require.NoError(t, err)

	for _, k := range AllActions {
		op, err := r.Bind(k, Request{ProfileID: "alpha"})
		require.NoError(t, err)

		// Binding alone performs no work.
		assert.Empty(t, calls)

		lines, err := op(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{k.String()}, lines)
		calls = nil
	}

	_, err = r.Bind(ActionStart, Request{})
	assert.Error(t, err, "a profile is required")

	_, err = r.Bind(ActionKind(0), Request{ProfileID: "alpha"})
	assert.Error(t, err)
}
