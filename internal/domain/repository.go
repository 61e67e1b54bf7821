package domain

import "iter"

// EntryFinder resolves an installed application descriptor by its
// .desktop file name. Descriptors are read fresh from disk per lookup.
type EntryFinder interface {
	// FindEntry returns the descriptor for name, or NotFoundError if no
	// descriptor file exists.
	FindEntry(name string) (DesktopEntry, error)
}

// EntryScanner enumerates all installed application descriptors.
// Implementation: reads the platform's standard "applications" data
// directories in listing order.
type EntryScanner interface {
	// Entries returns a lazy, finite, one-shot sequence of
	// (file name, descriptor) pairs, filtered to parseable descriptor
	// files. Enumeration order follows directory-listing order and is
	// not further sorted.
	Entries() (iter.Seq2[string, DesktopEntry], error)
}

// Launcher executes a resolved descriptor with the given targets.
// Exec-string placeholder expansion happens behind this interface.
type Launcher interface {
	Exec(entry DesktopEntry, mode ExecMode, args []string) error
}

// Selector disambiguates between tied handler candidates.
// Implementation: external subprocess reading newline-joined candidate
// names on stdin and writing the chosen name on stdout.
type Selector interface {
	// Select blocks until the user chooses one of the candidates.
	// Returns ErrCancelled when the user aborts (empty output).
	Select(candidates []string) (string, error)
}

// MimeDetector derives a content type from a local file.
type MimeDetector interface {
	DetectFile(path string) (MimeType, error)
}

// Notifier delivers a user-facing message outside the terminal.
type Notifier interface {
	Notify(summary, body string) error
}
