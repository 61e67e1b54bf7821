package infra

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/google/shlex"
	"go.uber.org/zap"

	"github.com/eliteGoblin/openmime/internal/domain"
)

// ExecLauncher runs a resolved descriptor's command detached from the
// current process, expanding %f/%F/%u/%U placeholders first.
type ExecLauncher struct {
	// TermCommand lazily resolves the terminal emulator exec string for
	// Terminal=true entries. Left nil, such entries run unwrapped.
	TermCommand func() (string, error)

	logger *zap.Logger
}

// NewExecLauncher creates a launcher.
func NewExecLauncher(logger *zap.Logger) *ExecLauncher {
	return &ExecLauncher{logger: logger}
}

// Exec expands the entry's command for the given targets and starts it
// in its own process group, without waiting for completion.
func (l *ExecLauncher) Exec(entry domain.DesktopEntry, mode domain.ExecMode, args []string) error {
	argv, err := BuildCommand(entry.Exec, mode, args)
	if err != nil {
		return err
	}

	if entry.Terminal && l.TermCommand != nil && stdoutIsTerminal() {
		term, err := l.TermCommand()
		if err != nil {
			return err
		}
		termArgv, err := shlex.Split(term)
		if err != nil || len(termArgv) == 0 {
			return &domain.BadCmdError{Cmd: term}
		}
		argv = append(termArgv, argv...)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", argv[0], err)
	}
	l.logger.Debug("launched handler",
		zap.String("cmd", argv[0]),
		zap.Int("args", len(argv)-1),
		zap.Int("pid", cmd.Process.Pid))
	return cmd.Process.Release()
}

// BuildCommand tokenizes an exec template and substitutes the target
// arguments. %f/%u consume the first target, %F/%U splice in all of
// them, %% is a literal percent and other field codes are dropped. A
// template without any placeholder gets the targets appended in open
// mode and none in launch mode.
func BuildCommand(execLine string, mode domain.ExecMode, args []string) ([]string, error) {
	tokens, err := shlex.Split(execLine)
	if err != nil || len(tokens) == 0 {
		return nil, &domain.BadCmdError{Cmd: execLine}
	}

	argv := make([]string, 0, len(tokens)+len(args))
	substituted := false
	for _, tok := range tokens {
		switch tok {
		case "%f", "%u":
			substituted = true
			if len(args) > 0 {
				argv = append(argv, args[0])
			}
		case "%F", "%U":
			substituted = true
			argv = append(argv, args...)
		default:
			expanded, sub := expandToken(tok, args)
			substituted = substituted || sub
			// A token reduced to nothing (a lone dropped field code, or
			// %f with no targets) contributes no argument.
			if expanded == "" && strings.Contains(tok, "%") {
				continue
			}
			argv = append(argv, expanded)
		}
	}
	if !substituted && mode == domain.ExecModeOpen {
		argv = append(argv, args...)
	}
	return argv, nil
}

// expandToken handles field codes embedded inside a larger token, e.g.
// "--file=%f".
func expandToken(tok string, args []string) (string, bool) {
	if !strings.Contains(tok, "%") {
		return tok, false
	}
	var b strings.Builder
	sub := false
	for i := 0; i < len(tok); i++ {
		if tok[i] != '%' || i+1 == len(tok) {
			b.WriteByte(tok[i])
			continue
		}
		i++
		switch tok[i] {
		case '%':
			b.WriteByte('%')
		case 'f', 'u':
			sub = true
			if len(args) > 0 {
				b.WriteString(args[0])
			}
		case 'F', 'U':
			sub = true
			b.WriteString(strings.Join(args, " "))
		default:
			// Deprecated field codes (%i, %c, %k, ...) are dropped.
		}
	}
	return b.String(), sub
}

func stdoutIsTerminal() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
