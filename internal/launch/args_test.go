package launch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Options
	}{
		{
			name: "empty",
			args: nil,
			want: Options{},
		},
		{
			name: "beta and test",
			args: []string{"-TEST"},
			want: Options{Beta: true},
		},
		{
			name: "title",
			args: []string{"-title", " Weekend Server "},
			want: Options{Title: "Weekend Server"},
		},
		{
			name: "title without value",
			args: []string{"-title", "-beta"},
			want: Options{Beta: true},
		},
		{
			name: "title at end",
			args: []string{"-title"},
			want: Options{},
		},
		{
			name: "public ip and monitor",
			args: []string{"-PublicIP", "-servermonitor"},
			want: Options{ForcePublicIP: true, ServerMonitor: true},
		},
		{
			name: "cobra arguments pass through",
			args: []string{"list", "--output", "json", "-beta"},
			want: Options{Beta: true, Rest: []string{"list", "--output", "json"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.args)
			assert.Equal(t, tt.want.Beta, got.Beta)
			assert.Equal(t, tt.want.Title, got.Title)
			assert.Equal(t, tt.want.ForcePublicIP, got.ForcePublicIP)
			assert.Equal(t, tt.want.ServerMonitor, got.ServerMonitor)
			assert.Equal(t, tt.want.Rest, got.Rest)
			assert.Nil(t, got.Headless)
		})
	}
}

func TestParse_HeadlessArgumentsAreConsumed(t *testing.T) {
	got := Parse([]string{"-autobackup", "--debug"})

	require.NotNil(t, got.Headless)
	assert.Equal(t, ModeBackup, got.Headless.Mode)
	assert.Equal(t, []string{"--debug"}, got.Rest)

	got = Parse([]string{"-update"})
	require.NotNil(t, got.Headless)
	assert.Equal(t, ModeUpdate, got.Headless.Mode)
	assert.Empty(t, got.Rest)
}
