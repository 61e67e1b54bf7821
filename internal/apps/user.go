// Package apps holds the two association stores: the user's mutable
// mimeapps.list and the read-only system-wide associations built from
// installed desktop entries.
package apps

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/eliteGoblin/openmime/internal/domain"
)

// MimeApps is the user-configured association store backed by
// mimeapps.list. It is loaded once per session, mutated in memory by a
// single owner, and persisted synchronously; saving overwrites the file
// in full (last writer wins).
type MimeApps struct {
	Added   map[domain.MimeType]domain.HandlerList
	Default map[domain.MimeType]domain.HandlerList

	path string
}

// NewMimeApps creates an empty store backed by the given file path.
func NewMimeApps(path string) *MimeApps {
	return &MimeApps{
		Added:   make(map[domain.MimeType]domain.HandlerList),
		Default: make(map[domain.MimeType]domain.HandlerList),
		path:    path,
	}
}

// DefaultMimeAppsPath returns the user's mimeapps.list location under
// the XDG config home.
func DefaultMimeAppsPath() string {
	return filepath.Join(xdg.ConfigHome, "mimeapps.list")
}

// Path returns the backing file path.
func (m *MimeApps) Path() string {
	return m.path
}

// AddHandler appends a handler to the default-association list for
// mime. It does not deduplicate; resolution only reads the front or
// consults the selector, so duplicates are harmless and collapse on the
// next load.
func (m *MimeApps) AddHandler(mime domain.MimeType, handler domain.DesktopID) {
	m.Default[mime] = append(m.Default[mime], handler)
}

// SetHandler replaces the whole default-association list for mime with
// a single handler.
func (m *MimeApps) SetHandler(mime domain.MimeType, handler domain.DesktopID) {
	m.Default[mime] = domain.HandlerList{handler}
}

// UnsetHandler removes the mapping entirely and returns the removed
// list, if any.
func (m *MimeApps) UnsetHandler(mime domain.MimeType) (domain.HandlerList, bool) {
	list, ok := m.Default[mime]
	if ok {
		delete(m.Default, mime)
	}
	return list, ok
}

// RemoveHandler removes the first list element equal to handler. When
// mime has no existing entry an empty one is created, which the next
// load prunes.
func (m *MimeApps) RemoveHandler(mime domain.MimeType, handler domain.DesktopID) (domain.DesktopID, bool) {
	list, ok := m.Default[mime]
	if !ok {
		m.Default[mime] = domain.HandlerList{}
		return "", false
	}
	for i, h := range list {
		if h == handler {
			m.Default[mime] = append(list[:i:i], list[i+1:]...)
			return h, true
		}
	}
	return "", false
}

// getFromWildcard matches mime against every default-association key as
// a shell glob ('*' is the only wildcard token) over the full
// type/subtype string. The longest matching pattern wins; equal-length
// ties resolve to the lexicographically smallest pattern so resolution
// is deterministic.
func (m *MimeApps) getFromWildcard(mime domain.MimeType) (domain.HandlerList, bool) {
	var best domain.MimeType
	found := false
	for pattern := range m.Default {
		if !globMatch(string(pattern), string(mime)) {
			continue
		}
		if !found ||
			len(pattern) > len(best) ||
			(len(pattern) == len(best) && pattern < best) {
			best = pattern
			found = true
		}
	}
	if !found {
		return nil, false
	}
	return m.Default[best], true
}

// GetHandlerFromUser resolves mime against the default associations:
// exact match first, wildcard match second. When the resolved list has
// more than one entry and useSelector is set, the interactive selector
// picks among the candidates' display names; otherwise the front entry
// wins.
func (m *MimeApps) GetHandlerFromUser(
	mime domain.MimeType,
	finder domain.EntryFinder,
	selector domain.Selector,
	useSelector bool,
) (domain.DesktopID, error) {
	list, ok := m.Default[mime]
	if !ok {
		list, ok = m.getFromWildcard(mime)
	}
	if !ok {
		return "", &domain.NotFoundError{Key: mime.String()}
	}

	if useSelector && len(list) > 1 && selector != nil {
		names := make([]string, len(list))
		for i, id := range list {
			entry, err := id.Entry(finder)
			if err != nil {
				return "", err
			}
			names[i] = entry.Name
		}
		choice, err := selector.Select(names)
		if err != nil {
			return "", err
		}
		for i, name := range names {
			if name == choice {
				return list[i], nil
			}
		}
		return "", &domain.NotFoundError{Key: mime.String()}
	}

	front, ok := list.Front()
	if !ok {
		return "", &domain.NotFoundError{Key: mime.String()}
	}
	return front, nil
}

// Load reads and parses the backing file, creating an empty one when
// absent (file existence is a side effect of the read path, not a
// failure). Mappings whose handler list came out empty - all listed
// names were stale and filtered by valid - are pruned.
func (m *MimeApps) Load(valid func(name string) bool) error {
	if _, err := os.Stat(m.path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
		if err := os.WriteFile(m.path, nil, 0o644); err != nil {
			return fmt.Errorf("creating %s: %w", m.path, err)
		}
	}

	data, err := os.ReadFile(m.path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", m.path, err)
	}

	added, defaults, err := decodeAssociations(data, valid)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", m.path, err)
	}

	for mime, list := range defaults {
		if len(list) == 0 {
			delete(defaults, mime)
		}
	}
	for mime, list := range added {
		if len(list) == 0 {
			delete(added, mime)
		}
	}

	m.Added = added
	m.Default = defaults
	return nil
}

// Save serializes both mappings back to the backing file, replacing its
// whole contents. No merge with concurrent external edits is attempted.
func (m *MimeApps) Save() error {
	data := encodeAssociations(m.Added, m.Default)

	dir := filepath.Dir(m.path)
	tmp, err := os.CreateTemp(dir, ".mimeapps-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", m.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", m.path, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("saving %s: %w", m.path, err)
	}
	return nil
}

// globMatch reports whether s matches pattern, where '*' matches any
// run of characters (including '/') and every other byte matches
// itself.
func globMatch(pattern, s string) bool {
	pi, si := 0, 0
	star, mark := -1, 0
	for si < len(s) {
		switch {
		case pi < len(pattern) && pattern[pi] == '*':
			star, mark = pi, si
			pi++
		case pi < len(pattern) && pattern[pi] == s[si]:
			pi++
			si++
		case star >= 0:
			mark++
			si = mark
			pi = star + 1
		default:
			return false
		}
	}
	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern)
}
