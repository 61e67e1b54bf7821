package infra

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/openmime/internal/domain"
)

// TestBuildCommand verifies placeholder expansion for both exec modes
func TestBuildCommand(t *testing.T) {
	cases := []struct {
		name string
		exec string
		mode domain.ExecMode
		args []string
		want []string
	}{
		{
			name: "single target placeholder",
			exec: "mpv %u",
			mode: domain.ExecModeOpen,
			args: []string{"a.mp4", "b.mp4"},
			want: []string{"mpv", "a.mp4"},
		},
		{
			name: "multi target placeholder",
			exec: "mpv %U",
			mode: domain.ExecModeOpen,
			args: []string{"a.mp4", "b.mp4"},
			want: []string{"mpv", "a.mp4", "b.mp4"},
		},
		{
			name: "file placeholder",
			exec: "feh %f",
			mode: domain.ExecModeOpen,
			args: []string{"x.png"},
			want: []string{"feh", "x.png"},
		},
		{
			name: "no placeholder appends in open mode",
			exec: "xdg-screensaver",
			mode: domain.ExecModeOpen,
			args: []string{"a", "b"},
			want: []string{"xdg-screensaver", "a", "b"},
		},
		{
			name: "no placeholder appends nothing in launch mode",
			exec: "blender",
			mode: domain.ExecModeLaunch,
			args: []string{"a"},
			want: []string{"blender"},
		},
		{
			name: "placeholder honored in launch mode",
			exec: "code %F",
			mode: domain.ExecModeLaunch,
			args: []string{"a", "b"},
			want: []string{"code", "a", "b"},
		},
		{
			name: "embedded placeholder",
			exec: "viewer --file=%f",
			mode: domain.ExecModeOpen,
			args: []string{"x.png"},
			want: []string{"viewer", "--file=x.png"},
		},
		{
			name: "literal percent",
			exec: "printf %%s",
			mode: domain.ExecModeLaunch,
			args: nil,
			want: []string{"printf", "%s"},
		},
		{
			name: "deprecated codes dropped",
			exec: "gimp %i %f",
			mode: domain.ExecModeOpen,
			args: []string{"x.png"},
			want: []string{"gimp", "x.png"},
		},
		{
			name: "placeholder with no targets",
			exec: "mpv %u",
			mode: domain.ExecModeLaunch,
			args: nil,
			want: []string{"mpv"},
		},
		{
			name: "quoted template token",
			exec: `sh -c 'notify-send hi'`,
			mode: domain.ExecModeLaunch,
			args: nil,
			want: []string{"sh", "-c", "notify-send hi"},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := BuildCommand(c.exec, c.mode, c.args)
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
}

// TestBuildCommand_BadTemplate verifies rejection of untokenizable templates
func TestBuildCommand_BadTemplate(t *testing.T) {
	var cmdErr *domain.BadCmdError

	_, err := BuildCommand("", domain.ExecModeOpen, nil)
	require.Error(t, err)
	assert.True(t, errors.As(err, &cmdErr))

	_, err = BuildCommand(`viewer "unterminated`, domain.ExecModeOpen, nil)
	require.Error(t, err)
	assert.True(t, errors.As(err, &cmdErr))
}
