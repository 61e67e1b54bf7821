package domain

import (
	"errors"
	"fmt"
)

// ErrCancelled signals that the user explicitly cancelled an
// interactive selection (empty selector output). It is terminal for the
// whole resolution chain: no fallback step runs after it.
var ErrCancelled = errors.New("selection cancelled")

// ErrNoTerminal signals that no terminal emulator could be resolved or
// discovered.
var ErrNoTerminal = errors.New("no terminal emulator found")

// NotFoundError reports that no handler, descriptor or mapping exists
// for the given mime or path. The precedence chain treats it as "try
// the next step".
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no handler found for %q", e.Key)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// BadPathError reports a file-scheme URL that could not be converted to
// a local path.
type BadPathError struct {
	Path string
}

func (e *BadPathError) Error() string {
	return fmt.Sprintf("could not convert %q to a local path", e.Path)
}

// BadCmdError reports a configured selector command that failed to
// tokenize.
type BadCmdError struct {
	Cmd string
}

func (e *BadCmdError) Error() string {
	return fmt.Sprintf("could not parse command %q", e.Cmd)
}

// SelectorError reports that the selector subprocess's input or output
// stream was unexpectedly unavailable.
type SelectorError struct {
	Cmd string
}

func (e *SelectorError) Error() string {
	return fmt.Sprintf("selector %q failed", e.Cmd)
}
