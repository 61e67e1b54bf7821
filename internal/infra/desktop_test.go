package infra

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/openmime/internal/domain"
)

const mpvDesktop = `[Desktop Entry]
Type=Application
Name=mpv Media Player
Exec=mpv --player-operation-mode=pseudo-gui -- %U
Terminal=false
Categories=AudioVideo;Audio;Video;Player;TV;
MimeType=video/webm;video/mp4;audio/mpeg;
`

const alacrittyDesktop = `[Desktop Entry]
Type=Application
Name=Alacritty
Exec=alacritty
Terminal=false
Categories=System;TerminalEmulator;

[Desktop Action New]
Name=New Terminal
Exec=alacritty
`

func writeEntries(t *testing.T, dir string, entries map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range entries {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

// TestFindEntry verifies descriptor parsing
func TestFindEntry(t *testing.T) {
	dir := t.TempDir()
	writeEntries(t, dir, map[string]string{"mpv.desktop": mpvDesktop})
	s := NewDesktopScannerWithDirs([]string{dir}, zap.NewNop())

	entry, err := s.FindEntry("mpv.desktop")
	require.NoError(t, err)
	assert.Equal(t, "mpv.desktop", entry.FileName)
	assert.Equal(t, "mpv Media Player", entry.Name)
	assert.Equal(t, "mpv --player-operation-mode=pseudo-gui -- %U", entry.Exec)
	assert.False(t, entry.Terminal)
	assert.Contains(t, entry.MimeTypes, domain.MimeType("video/webm"))
	assert.Contains(t, entry.Categories, "AudioVideo")
}

// TestFindEntry_Missing verifies the NotFound path
func TestFindEntry_Missing(t *testing.T) {
	s := NewDesktopScannerWithDirs([]string{t.TempDir()}, zap.NewNop())

	_, err := s.FindEntry("missing.desktop")
	assert.True(t, domain.IsNotFound(err))
}

// TestFindEntry_FirstDirectoryWins verifies XDG precedence
func TestFindEntry_FirstDirectoryWins(t *testing.T) {
	userDir, sysDir := t.TempDir(), t.TempDir()
	writeEntries(t, userDir, map[string]string{"mpv.desktop": "[Desktop Entry]\nName=User mpv\nExec=mpv-user\n"})
	writeEntries(t, sysDir, map[string]string{"mpv.desktop": mpvDesktop})
	s := NewDesktopScannerWithDirs([]string{userDir, sysDir}, zap.NewNop())

	entry, err := s.FindEntry("mpv.desktop")
	require.NoError(t, err)
	assert.Equal(t, "User mpv", entry.Name)
}

// TestParseDesktopEntry_OnlyMainGroup verifies that action groups are ignored
func TestParseDesktopEntry_OnlyMainGroup(t *testing.T) {
	dir := t.TempDir()
	writeEntries(t, dir, map[string]string{"alacritty.desktop": alacrittyDesktop})
	s := NewDesktopScannerWithDirs([]string{dir}, zap.NewNop())

	entry, err := s.FindEntry("alacritty.desktop")
	require.NoError(t, err)
	assert.Equal(t, "Alacritty", entry.Name)
	assert.True(t, entry.IsTerminalEmulator())
}

// TestParseDesktopEntry_Rejections verifies unparseable descriptors
func TestParseDesktopEntry_Rejections(t *testing.T) {
	dir := t.TempDir()
	writeEntries(t, dir, map[string]string{
		"link.desktop":   "[Desktop Entry]\nType=Link\nName=A Link\nExec=true\n",
		"noexec.desktop": "[Desktop Entry]\nType=Application\nName=No Exec\n",
	})
	s := NewDesktopScannerWithDirs([]string{dir}, zap.NewNop())

	_, err := s.FindEntry("link.desktop")
	assert.Error(t, err)
	_, err = s.FindEntry("noexec.desktop")
	assert.Error(t, err)
}

// TestEntries verifies enumeration, shadowing and filtering
func TestEntries(t *testing.T) {
	userDir, sysDir := t.TempDir(), t.TempDir()
	writeEntries(t, userDir, map[string]string{
		"mpv.desktop":    "[Desktop Entry]\nName=User mpv\nExec=mpv-user\n",
		"broken.desktop": "[Desktop Entry]\nName=Broken\n",
		"notes.txt":      "not a desktop file",
	})
	writeEntries(t, sysDir, map[string]string{
		"mpv.desktop":  mpvDesktop,
		"feh.desktop":  "[Desktop Entry]\nName=feh\nExec=feh %F\n",
	})
	s := NewDesktopScannerWithDirs([]string{userDir, sysDir}, zap.NewNop())

	entries, err := s.Entries()
	require.NoError(t, err)

	got := make(map[string]domain.DesktopEntry)
	for name, entry := range entries {
		got[name] = entry
	}

	require.Len(t, got, 2)
	assert.Equal(t, "User mpv", got["mpv.desktop"].Name)
	assert.Equal(t, "feh", got["feh.desktop"].Name)
	assert.NotContains(t, got, "broken.desktop")
	assert.NotContains(t, got, "notes.txt")
}

// TestEntries_EarlyStop verifies the one-shot sequence honors yield
func TestEntries_EarlyStop(t *testing.T) {
	dir := t.TempDir()
	writeEntries(t, dir, map[string]string{
		"a.desktop": "[Desktop Entry]\nName=A\nExec=a\n",
		"b.desktop": "[Desktop Entry]\nName=B\nExec=b\n",
	})
	s := NewDesktopScannerWithDirs([]string{dir}, zap.NewNop())

	entries, err := s.Entries()
	require.NoError(t, err)

	count := 0
	for range entries {
		count++
		break
	}
	assert.Equal(t, 1, count)
}
