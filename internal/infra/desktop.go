// Package infra implements infrastructure concerns (desktop entry
// scanning, process launching, selector subprocess, notifications,
// content detection).
package infra

import (
	"bufio"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"go.uber.org/zap"

	"github.com/eliteGoblin/openmime/internal/domain"
)

// DesktopScanner reads installed application descriptors from the XDG
// "applications" data directories. It implements both
// domain.EntryFinder and domain.EntryScanner.
type DesktopScanner struct {
	dirs   []string
	logger *zap.Logger
}

// NewDesktopScanner creates a scanner over $XDG_DATA_HOME and
// $XDG_DATA_DIRS in precedence order.
func NewDesktopScanner(logger *zap.Logger) *DesktopScanner {
	roots := append([]string{xdg.DataHome}, xdg.DataDirs...)
	dirs := make([]string, 0, len(roots))
	for _, root := range roots {
		dirs = append(dirs, filepath.Join(root, "applications"))
	}
	return &DesktopScanner{dirs: dirs, logger: logger}
}

// NewDesktopScannerWithDirs creates a scanner over explicit
// applications directories (for testing).
func NewDesktopScannerWithDirs(dirs []string, logger *zap.Logger) *DesktopScanner {
	return &DesktopScanner{dirs: dirs, logger: logger}
}

// FindEntry reads the descriptor for name from the first directory
// containing it. The descriptor is parsed fresh on every call.
func (s *DesktopScanner) FindEntry(name string) (domain.DesktopEntry, error) {
	for _, dir := range s.dirs {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		entry, err := parseDesktopEntry(path)
		if err != nil {
			return domain.DesktopEntry{}, fmt.Errorf("parsing %s: %w", path, err)
		}
		return entry, nil
	}
	return domain.DesktopEntry{}, &domain.NotFoundError{Key: name}
}

// Entries returns a lazy one-shot sequence over every parseable
// .desktop file. A file name appearing in an earlier directory shadows
// the same name in later ones, matching XDG precedence. Unparseable
// files are skipped.
func (s *DesktopScanner) Entries() (iter.Seq2[string, domain.DesktopEntry], error) {
	return func(yield func(string, domain.DesktopEntry) bool) {
		seen := make(map[string]struct{})
		for _, dir := range s.dirs {
			files, err := os.ReadDir(dir)
			if err != nil {
				continue
			}
			for _, f := range files {
				name := f.Name()
				if f.IsDir() || filepath.Ext(name) != ".desktop" {
					continue
				}
				if _, dup := seen[name]; dup {
					continue
				}
				seen[name] = struct{}{}
				entry, err := parseDesktopEntry(filepath.Join(dir, name))
				if err != nil {
					s.logger.Debug("skipping desktop entry",
						zap.String("file", name),
						zap.Error(err))
					continue
				}
				if !yield(name, entry) {
					return
				}
			}
		}
	}, nil
}

// parseDesktopEntry extracts the record openmime cares about from a
// .desktop file: display name, exec template, terminal flag, declared
// mimes and categories. Only the [Desktop Entry] group is read.
func parseDesktopEntry(path string) (domain.DesktopEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.DesktopEntry{}, err
	}
	defer f.Close()

	entry := domain.DesktopEntry{FileName: filepath.Base(path)}
	inGroup := false
	appType := ""

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			inGroup = line == "[Desktop Entry]"
			continue
		}
		if !inGroup {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		switch key {
		case "Type":
			appType = value
		case "Name":
			entry.Name = value
		case "Exec":
			entry.Exec = value
		case "Terminal":
			entry.Terminal = value == "true"
		case "MimeType":
			for _, m := range strings.Split(value, ";") {
				if mime, err := domain.ParseMime(m); err == nil {
					entry.MimeTypes = append(entry.MimeTypes, mime)
				}
			}
		case "Categories":
			for _, c := range strings.Split(value, ";") {
				if c != "" {
					entry.Categories = append(entry.Categories, c)
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return domain.DesktopEntry{}, err
	}
	if appType != "" && appType != "Application" {
		return domain.DesktopEntry{}, fmt.Errorf("not an application entry (Type=%s)", appType)
	}
	if entry.Exec == "" {
		return domain.DesktopEntry{}, fmt.Errorf("missing Exec key")
	}
	return entry, nil
}
