// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// MimeType is a normalized content-type identifier of the form
// "type/subtype". The subtype (or any part of the string) may contain
// the glob wildcard '*' when used as an association pattern.
type MimeType string

// ParseMime validates and normalizes a raw mime string.
func ParseMime(s string) (MimeType, error) {
	s = strings.TrimSpace(s)
	major, sub, ok := strings.Cut(s, "/")
	if !ok || major == "" || sub == "" {
		return "", fmt.Errorf("invalid mime type %q", s)
	}
	return MimeType(strings.ToLower(s)), nil
}

// MimeFromScheme maps a URL scheme to its handler pseudo-mime,
// e.g. "https" -> "x-scheme-handler/https".
func MimeFromScheme(scheme string) MimeType {
	return MimeType("x-scheme-handler/" + strings.ToLower(scheme))
}

// MimeTerminal is the pseudo-mime used to associate a terminal emulator.
const MimeTerminal = MimeType("x-scheme-handler/terminal")

// Type returns the primary type, e.g. "video" for "video/webm".
func (m MimeType) Type() string {
	major, _, _ := strings.Cut(string(m), "/")
	return major
}

// Subtype returns the part after the slash.
func (m MimeType) Subtype() string {
	_, sub, _ := strings.Cut(string(m), "/")
	return sub
}

// HasWildcard reports whether the mime string is a glob pattern.
func (m MimeType) HasWildcard() bool {
	return strings.Contains(string(m), "*")
}

// TypeWildcard returns the type-level wildcard pattern for this mime,
// e.g. "video/*" for "video/webm".
func (m MimeType) TypeWildcard() MimeType {
	return MimeType(m.Type() + "/*")
}

func (m MimeType) String() string {
	return string(m)
}

// UserPath is a caller-supplied target: either a local file path or a URL.
// file:// URLs are converted to local paths at parse time.
type UserPath struct {
	url  *url.URL
	file string
}

// ParseUserPath normalizes a raw argument into a UserPath.
// Anything that does not parse as an absolute URL is treated as a file path.
func ParseUserPath(s string) (UserPath, error) {
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return UserPath{file: s}, nil
	}
	if u.Scheme == "file" {
		if (u.Host != "" && u.Host != "localhost") || u.Path == "" {
			return UserPath{}, &BadPathError{Path: s}
		}
		return UserPath{file: filepath.FromSlash(u.Path)}, nil
	}
	return UserPath{url: u}, nil
}

// IsURL reports whether the path is a non-file URL.
func (p UserPath) IsURL() bool {
	return p.url != nil
}

// Scheme returns the URL scheme, or "" for local files.
func (p UserPath) Scheme() string {
	if p.url == nil {
		return ""
	}
	return p.url.Scheme
}

// File returns the local file path, or "" for URLs.
func (p UserPath) File() string {
	return p.file
}

// String returns the canonical textual form used for regex matching
// and for handler argument lists.
func (p UserPath) String() string {
	if p.url != nil {
		return p.url.String()
	}
	return p.file
}

// Mime derives the content type: URL scheme pseudo-mime for URLs,
// content detection for local files.
func (p UserPath) Mime(det MimeDetector) (MimeType, error) {
	if p.url != nil {
		return MimeFromScheme(p.url.Scheme), nil
	}
	return det.DetectFile(p.file)
}

// ExecMode selects how a handler's exec template is expanded.
type ExecMode int

const (
	// ExecModeOpen opens existing files/URLs (targets substituted into
	// the template, or appended when no placeholder is present).
	ExecModeOpen ExecMode = iota
	// ExecModeLaunch starts the application bare; targets are only
	// substituted where the template explicitly asks for them.
	ExecModeLaunch
)

// DesktopEntry is the structured record derived from an installed
// application's .desktop file, or synthesized for a regex handler.
type DesktopEntry struct {
	FileName   string // e.g. "mpv.desktop"; empty for synthetic entries
	Name       string // display name; empty for synthetic entries
	Exec       string // exec template, may contain %f/%F/%u/%U placeholders
	Terminal   bool
	MimeTypes  []MimeType
	Categories []string
}

// IsTerminalEmulator reports whether the entry self-identifies as a
// terminal emulator via its category markers.
func (e DesktopEntry) IsTerminalEmulator() bool {
	for _, c := range e.Categories {
		if c == "TerminalEmulator" {
			return true
		}
	}
	return false
}

// SyntheticEntry builds an in-memory entry for handlers that have no
// backing .desktop file (regex handlers).
func SyntheticEntry(exec string, terminal bool) DesktopEntry {
	return DesktopEntry{Exec: exec, Terminal: terminal}
}
