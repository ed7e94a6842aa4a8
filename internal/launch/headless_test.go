package launch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"servermanager/internal/lifecycle"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantMode    Mode
		wantProfile string
	}{
		{name: "no args", args: nil},
		{name: "interactive flags only", args: []string{"-beta", "-title", "Main"}},
		{name: "update", args: []string{"-update"}, wantMode: ModeUpdate},
		{name: "backup alias mixed case", args: []string{"-Backup"}, wantMode: ModeBackup},
		{name: "update alias beats backup", args: []string{"-autobackup", "-UPDATE"}, wantMode: ModeUpdate},
		{name: "shutdown1 beats update alias", args: []string{"-update", "-autoshutdown1a"}, wantMode: ModeShutdown1, wantProfile: "a"},
		{name: "update requires exact match", args: []string{"-updates"}},
		{name: "autoupdate", args: []string{"-autoupdate"}, wantMode: ModeUpdate},
		{name: "autobackup upper case", args: []string{"-AUTOBACKUP"}, wantMode: ModeBackup},
		{name: "backup requires exact match", args: []string{"-autobackupnow"}},
		{name: "shutdown1 with id", args: []string{"-autoshutdown1alpha"}, wantMode: ModeShutdown1, wantProfile: "alpha"},
		{name: "shutdown1 with separator", args: []string{"-AutoShutdown1=Alpha"}, wantMode: ModeShutdown1, wantProfile: "Alpha"},
		{name: "shutdown2 with underscore", args: []string{"-autoshutdown2_beta"}, wantMode: ModeShutdown2, wantProfile: "beta"},
		{name: "shutdown without id", args: []string{"-autoshutdown2"}, wantMode: ModeShutdown2},
		{name: "shutdown1 beats update", args: []string{"-autoupdate", "-autoshutdown1alpha"}, wantMode: ModeShutdown1, wantProfile: "alpha"},
		{name: "shutdown1 beats shutdown2", args: []string{"-autoshutdown2b", "-autoshutdown1a"}, wantMode: ModeShutdown1, wantProfile: "a"},
		{name: "update beats backup", args: []string{"-autobackup", "-autoupdate"}, wantMode: ModeUpdate},
		{name: "order independent", args: []string{"-beta", "-autobackup", "-title", "x"}, wantMode: ModeBackup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := Classify(tt.args)
			if tt.wantMode == 0 {
				assert.Nil(t, inv)
				return
			}
			require.NotNil(t, inv)
			assert.Equal(t, tt.wantMode, inv.Mode)
			assert.Equal(t, tt.wantProfile, inv.ProfileID)
		})
	}
}

func TestClassify_IsDeterministic(t *testing.T) {
	args := []string{"-autobackup", "-autoupdate", "-autoshutdown2x", "-autoshutdown1y"}
	first := Classify(args)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify(args))
	}
}

type fakePerformer struct {
	calls     []string
	profileID string
	variant   int
	code      int
}

func (f *fakePerformer) AutoShutdown(_ context.Context, profileID string, variant int) int {
	f.calls = append(f.calls, "shutdown")
	f.profileID = profileID
	f.variant = variant
	return f.code
}

func (f *fakePerformer) AutoUpdate(context.Context) int {
	f.calls = append(f.calls, "update")
	return f.code
}

func (f *fakePerformer) AutoBackup(context.Context) int {
	f.calls = append(f.calls, "backup")
	return f.code
}

func TestRun_Update(t *testing.T) {
	p := &fakePerformer{code: lifecycle.ExitOK}

	code := Run(context.Background(), Classify([]string{"-autoupdate"}), p)

	assert.Equal(t, lifecycle.ExitOK, code)
	assert.Equal(t, []string{"update"}, p.calls)
}

func TestRun_ShutdownWinsOverUpdate(t *testing.T) {
	p := &fakePerformer{code: 17}

	code := Run(context.Background(), Classify([]string{"-autoupdate", "-autoshutdown1alpha"}), p)

	assert.Equal(t, 17, code, "exit code is the action's own code")
	assert.Equal(t, []string{"shutdown"}, p.calls, "update is never invoked")
	assert.Equal(t, "alpha", p.profileID)
	assert.Equal(t, 1, p.variant)
}

func TestRun_MalformedShutdownStillAttempted(t *testing.T) {
	p := &fakePerformer{code: lifecycle.ExitInvalidArgument}

	code := Run(context.Background(), Classify([]string{"-autoshutdown2"}), p)

	assert.Equal(t, lifecycle.ExitInvalidArgument, code)
	assert.Equal(t, []string{"shutdown"}, p.calls)
	assert.Equal(t, "", p.profileID)
	assert.Equal(t, 2, p.variant)
}

func TestRun_UpdateAlias(t *testing.T) {
	p := &fakePerformer{}
	code := Run(context.Background(), Parse([]string{"-update"}).Headless, p)

	assert.Equal(t, lifecycle.ExitOK, code)
	assert.Equal(t, []string{"update"}, p.calls)
}

func TestRun_NilInvocation(t *testing.T) {
	p := &fakePerformer{}
	assert.Equal(t, lifecycle.ExitInvalidArgument, Run(context.Background(), nil, p))
	assert.Empty(t, p.calls)
}
