package infra

import (
	"bytes"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/google/shlex"
	"go.uber.org/zap"

	"github.com/eliteGoblin/openmime/internal/domain"
)

// CommandSelector implements domain.Selector by running an external
// command (rofi, dmenu, fzf, ...). Candidates are written newline-
// joined to its stdin; its trimmed stdout picks the candidate by exact
// name. The wait is unbounded: this is a user-facing interaction,
// cancellable only by the subprocess exiting.
type CommandSelector struct {
	Command string

	logger *zap.Logger
}

// NewCommandSelector creates a selector around the given command
// string.
func NewCommandSelector(command string, logger *zap.Logger) *CommandSelector {
	return &CommandSelector{Command: command, logger: logger}
}

// Select blocks until the selector subprocess exits. Empty output after
// completion means the user cancelled.
func (s *CommandSelector) Select(candidates []string) (string, error) {
	tokens, err := shlex.Split(s.Command)
	if err != nil || len(tokens) == 0 {
		return "", &domain.BadCmdError{Cmd: s.Command}
	}

	cmd := exec.Command(tokens[0], tokens[1:]...)
	var out bytes.Buffer
	cmd.Stdout = &out

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return "", &domain.SelectorError{Cmd: s.Command}
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("starting selector: %w", err)
	}

	_, writeErr := io.WriteString(stdin, strings.Join(candidates, "\n"))
	closeErr := stdin.Close()
	// Selector exit status is ignored: pickers commonly exit nonzero on
	// escape, and empty output already encodes cancellation. The wait
	// itself must happen on every path so the child is reaped.
	waitErr := cmd.Wait()

	if writeErr != nil || closeErr != nil {
		return "", &domain.SelectorError{Cmd: s.Command}
	}
	if waitErr != nil {
		s.logger.Debug("selector exited nonzero", zap.Error(waitErr))
	}

	choice := strings.TrimSpace(out.String())
	if choice == "" {
		return "", domain.ErrCancelled
	}
	return choice, nil
}
