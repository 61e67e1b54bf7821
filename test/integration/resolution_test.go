//go:build integration

package integration

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/openmime/internal/apps"
	"github.com/eliteGoblin/openmime/internal/domain"
	"github.com/eliteGoblin/openmime/internal/infra"
	"github.com/eliteGoblin/openmime/internal/usecase"
)

// recordingLauncher stands in for the process launcher so specs can
// observe what would have been spawned.
type recordingLauncher struct {
	entries []domain.DesktopEntry
	modes   []domain.ExecMode
	args    [][]string
}

func (l *recordingLauncher) Exec(entry domain.DesktopEntry, mode domain.ExecMode, args []string) error {
	l.entries = append(l.entries, entry)
	l.modes = append(l.modes, mode)
	l.args = append(l.args, args)
	return nil
}

var desktopFixtures = map[string]string{
	"mpv.desktop": `[Desktop Entry]
Type=Application
Name=mpv Media Player
Exec=mpv -- %U
MimeType=video/webm;video/mp4;
`,
	"vlc.desktop": `[Desktop Entry]
Type=Application
Name=VLC media player
Exec=vlc %U
MimeType=video/webm;
`,
	"firefox.desktop": `[Desktop Entry]
Type=Application
Name=Firefox
Exec=firefox %u
MimeType=x-scheme-handler/https;x-scheme-handler/http;text/html;
`,
	"alacritty.desktop": `[Desktop Entry]
Type=Application
Name=Alacritty
Exec=alacritty
Categories=System;TerminalEmulator;
`,
	"feh.desktop": `[Desktop Entry]
Type=Application
Name=feh
Exec=feh %F
MimeType=image/png;image/jpeg;
`,
}

var _ = Describe("Handler resolution", func() {
	var (
		tmpDir   string
		scanner  *infra.DesktopScanner
		mimeApps *apps.MimeApps
		launcher *recordingLauncher
		resolver *usecase.Resolver
	)

	newResolver := func() *usecase.Resolver {
		systemApps, err := apps.PopulateSystemApps(scanner)
		Expect(err).NotTo(HaveOccurred())
		return usecase.NewResolver(usecase.ResolverParams{
			MimeApps:     mimeApps,
			SystemApps:   systemApps,
			TermExecArgs: "-e",
			Entries:      scanner,
			Launcher:     launcher,
			Detector:     infra.NewFileTypeDetector(),
			Notifier:     infra.NewDesktopNotifier(zap.NewNop()),
			Logger:       zap.NewNop(),
		})
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "openmime-integration-*")
		Expect(err).NotTo(HaveOccurred())

		appsDir := filepath.Join(tmpDir, "applications")
		Expect(os.MkdirAll(appsDir, 0o755)).To(Succeed())
		for name, content := range desktopFixtures {
			Expect(os.WriteFile(filepath.Join(appsDir, name), []byte(content), 0o644)).To(Succeed())
		}

		scanner = infra.NewDesktopScannerWithDirs([]string{appsDir}, zap.NewNop())
		mimeApps = apps.NewMimeApps(filepath.Join(tmpDir, "mimeapps.list"))
		valid := func(name string) bool {
			_, err := scanner.FindEntry(name)
			return err == nil
		}
		Expect(mimeApps.Load(valid)).To(Succeed())

		launcher = &recordingLauncher{}
		resolver = newResolver()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("precedence", func() {
		Context("with a user default configured", func() {
			It("resolves the user handler over the system one", func() {
				mimeApps.SetHandler("video/webm", "vlc.desktop")

				h, err := resolver.GetHandler("video/webm", nil, false)
				Expect(err).NotTo(HaveOccurred())
				Expect(h).To(Equal(domain.DesktopID("vlc.desktop")))
			})
		})

		Context("with no user configuration", func() {
			It("falls back to the installed entries' declared mimes", func() {
				h, err := resolver.GetHandler("video/mp4", nil, false)
				Expect(err).NotTo(HaveOccurred())
				Expect(h).To(Equal(domain.DesktopID("mpv.desktop")))
			})
		})

		Context("with a wildcard association", func() {
			It("matches any subtype", func() {
				mimeApps.SetHandler("video/*", "mpv.desktop")

				h, err := resolver.GetHandler("video/x-matroska", nil, false)
				Expect(err).NotTo(HaveOccurred())
				Expect(h).To(Equal(domain.DesktopID("mpv.desktop")))
			})
		})
	})

	Describe("persistence", func() {
		It("round-trips associations through mimeapps.list", func() {
			mimeApps.SetHandler("video/webm", "vlc.desktop")
			mimeApps.AddHandler("video/webm", "mpv.desktop")
			Expect(mimeApps.Save()).To(Succeed())

			reloaded := apps.NewMimeApps(mimeApps.Path())
			Expect(reloaded.Load(nil)).To(Succeed())
			Expect(reloaded.Default["video/webm"]).To(Equal(
				domain.HandlerList{"vlc.desktop", "mpv.desktop"}))
		})

		It("drops handlers whose desktop entry no longer exists", func() {
			mimeApps.SetHandler("video/webm", "vlc.desktop")
			mimeApps.AddHandler("video/webm", "mpv.desktop")
			Expect(mimeApps.Save()).To(Succeed())
			Expect(os.Remove(filepath.Join(tmpDir, "applications", "vlc.desktop"))).To(Succeed())

			reloaded := apps.NewMimeApps(mimeApps.Path())
			valid := func(name string) bool {
				_, err := scanner.FindEntry(name)
				return err == nil
			}
			Expect(reloaded.Load(valid)).To(Succeed())
			Expect(reloaded.Default["video/webm"]).To(Equal(
				domain.HandlerList{"mpv.desktop"}))
		})
	})

	Describe("opening paths", func() {
		It("opens each distinct handler once with its full batch", func() {
			mimeApps.SetHandler("image/png", "feh.desktop")
			mimeApps.SetHandler("x-scheme-handler/https", "firefox.desktop")

			img := filepath.Join(tmpDir, "img.png")
			Expect(os.WriteFile(img, []byte("\x89PNG\r\n\x1a\n"), 0o644)).To(Succeed())

			paths := make([]domain.UserPath, 0, 3)
			for _, raw := range []string{img, "https://example.com/a", "https://example.com/b"} {
				p, err := domain.ParseUserPath(raw)
				Expect(err).NotTo(HaveOccurred())
				paths = append(paths, p)
			}

			Expect(resolver.OpenPaths(paths, nil, false)).To(Succeed())
			Expect(launcher.args).To(HaveLen(2))
			Expect(launcher.entries[0].Name).To(Equal("feh"))
			Expect(launcher.args[0]).To(Equal([]string{img}))
			Expect(launcher.entries[1].Name).To(Equal("Firefox"))
			Expect(launcher.args[1]).To(Equal([]string{
				"https://example.com/a", "https://example.com/b"}))
		})
	})

	Describe("regex handlers", func() {
		It("claims matching URLs before any mime lookup", func() {
			youtube, err := domain.NewRegexHandler("freetube %u", false,
				[]string{`(https://)?(www\.)?youtu(be\.com|\.be)/*`})
			Expect(err).NotTo(HaveOccurred())
			mimeApps.SetHandler("x-scheme-handler/https", "firefox.desktop")

			resolver = usecase.NewResolver(usecase.ResolverParams{
				MimeApps: mimeApps,
				RegexSet: domain.RegexSet{youtube},
				Entries:  scanner,
				Launcher: launcher,
				Detector: infra.NewFileTypeDetector(),
				Notifier: infra.NewDesktopNotifier(zap.NewNop()),
				Logger:   zap.NewNop(),
			})

			p, err := domain.ParseUserPath("https://youtu.be/dQw4w9WgXcQ")
			Expect(err).NotTo(HaveOccurred())
			h, err := resolver.GetHandlerForPath(p, nil, false)
			Expect(err).NotTo(HaveOccurred())

			Expect(h.Open(scanner, launcher, []string{p.String()})).To(Succeed())
			Expect(launcher.entries).To(HaveLen(1))
			Expect(launcher.entries[0].Exec).To(Equal("freetube %u"))
		})
	})

	Describe("interactive selection", func() {
		It("drives a real selector subprocess over stdin/stdout", func() {
			mimeApps.AddHandler("video/webm", "mpv.desktop")
			mimeApps.AddHandler("video/webm", "vlc.desktop")
			selector := infra.NewCommandSelector("head -n1", zap.NewNop())

			h, err := resolver.GetHandler("video/webm", selector, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(h).To(Equal(domain.DesktopID("mpv.desktop")))
		})

		It("treats empty selector output as cancellation", func() {
			mimeApps.AddHandler("video/webm", "mpv.desktop")
			mimeApps.AddHandler("video/webm", "vlc.desktop")
			selector := infra.NewCommandSelector("sh -c 'cat >/dev/null'", zap.NewNop())

			_, err := resolver.GetHandler("video/webm", selector, true)
			Expect(err).To(MatchError(domain.ErrCancelled))
		})
	})

	Describe("terminal discovery", func() {
		It("guesses an installed emulator and persists the choice", func() {
			execLine, err := resolver.Terminal(nil, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(execLine).To(Equal("alacritty -e"))

			reloaded := apps.NewMimeApps(mimeApps.Path())
			Expect(reloaded.Load(nil)).To(Succeed())
			Expect(reloaded.Default[domain.MimeTerminal]).To(Equal(
				domain.HandlerList{"alacritty.desktop"}))
		})
	})
})
