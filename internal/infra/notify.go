package infra

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/eliteGoblin/openmime/internal/domain"
)

// notificationDaemons are process names that indicate a desktop
// notification service is available.
var notificationDaemons = []string{
	"dunst",
	"mako",
	"swaync",
	"xfce4-notifyd",
	"notification-daemon",
	"plasma_waitforname",
}

// DesktopNotifier sends desktop notifications via notify-send when a
// notification daemon is running, falling back to stderr otherwise.
type DesktopNotifier struct {
	logger *zap.Logger
}

// NewDesktopNotifier creates a notifier.
func NewDesktopNotifier(logger *zap.Logger) *DesktopNotifier {
	return &DesktopNotifier{logger: logger}
}

// Notify delivers the message.
func (n *DesktopNotifier) Notify(summary, body string) error {
	if n.daemonRunning() {
		if path, err := exec.LookPath("notify-send"); err == nil {
			if err := exec.Command(path, summary, body).Run(); err == nil {
				return nil
			}
			n.logger.Warn("notify-send failed, falling back to stderr")
		}
	}
	_, err := fmt.Fprintf(os.Stderr, "%s: %s\n", summary, body)
	return err
}

// daemonRunning probes the process table for a known notification
// daemon so we don't block on a notify-send that nothing will answer.
func (n *DesktopNotifier) daemonRunning() bool {
	procs, err := process.Processes()
	if err != nil {
		return false
	}
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue // process may have exited
		}
		for _, daemon := range notificationDaemons {
			if strings.EqualFold(name, daemon) {
				return true
			}
		}
	}
	return false
}

var _ domain.Notifier = (*DesktopNotifier)(nil)
