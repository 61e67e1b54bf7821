package apps

import (
	"github.com/eliteGoblin/openmime/internal/domain"
)

// SystemApps maps each mime type to the ordered list of installed
// applications declaring it. Built once per resolution session from the
// scanned desktop entries and never mutated afterwards.
type SystemApps map[domain.MimeType][]domain.DesktopID

// PopulateSystemApps scans every installed descriptor and appends its
// handler identity to each mime type it declares, preserving
// enumeration order (later descriptors append to the back).
func PopulateSystemApps(scanner domain.EntryScanner) (SystemApps, error) {
	entries, err := scanner.Entries()
	if err != nil {
		return nil, err
	}

	s := make(SystemApps, 50)
	for name, entry := range entries {
		for _, mime := range entry.MimeTypes {
			// Names come straight from the disk enumeration, so the
			// validity check is deliberately bypassed here.
			s[mime] = append(s[mime], domain.AssumeValidID(name))
		}
	}
	return s, nil
}

// GetHandler returns the first-declared (assumed most canonical)
// handler for an exact mime match.
func (s SystemApps) GetHandler(mime domain.MimeType) (domain.DesktopID, bool) {
	handlers, ok := s[mime]
	if !ok || len(handlers) == 0 {
		return "", false
	}
	return handlers[0], true
}

// GetHandlers returns the full ordered list for an exact mime match.
func (s SystemApps) GetHandlers(mime domain.MimeType) ([]domain.DesktopID, bool) {
	handlers, ok := s[mime]
	if !ok {
		return nil, false
	}
	return handlers, true
}
