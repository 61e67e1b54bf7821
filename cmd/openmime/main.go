// Package main is the CLI entry point for openmime.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/openmime/internal/apps"
	"github.com/eliteGoblin/openmime/internal/config"
	"github.com/eliteGoblin/openmime/internal/domain"
	"github.com/eliteGoblin/openmime/internal/infra"
	"github.com/eliteGoblin/openmime/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	if err := rootCmd.Execute(); err != nil {
		reportError(err)
		os.Exit(1)
	}
}

// reportError implements the boundary policy: selector cancellation
// exits silently, interactive sessions get stderr, non-interactive
// sessions (keybindings, file managers) get a desktop notification.
func reportError(err error) {
	if errors.Is(err, domain.ErrCancelled) {
		return
	}
	if isTerminal(os.Stdout) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	logger := createLogger()
	defer func() { _ = logger.Sync() }()
	_ = infra.NewDesktopNotifier(logger).Notify("openmime error", err.Error())
}

var rootCmd = &cobra.Command{
	Use:   "openmime",
	Short: "Manage default applications per mime type and open files with them",
	Long: `openmime resolves which installed application opens a given mime
type, file, or URL. It reads and writes the standard mimeapps.list,
falls back to system-wide associations from installed .desktop files,
and supports regex handlers and interactive disambiguation.`,
	Version: Version,
}

var getCmd = &cobra.Command{
	Use:   "get MIME",
	Short: "Print the handler for a mime type",
	Long:  `Resolves the handler for a mime type and prints its .desktop name. Use --json for machine-readable output.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

var openCmd = &cobra.Command{
	Use:   "open PATH...",
	Short: "Open files or URLs with their handlers",
	Long: `Resolves a handler per path (regex handlers first, then mime lookup)
and opens each distinct handler once with all of its paths.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOpen,
}

var launchCmd = &cobra.Command{
	Use:   "launch MIME [ARGS...]",
	Short: "Launch the handler for a mime type",
	Long:  `Resolves the handler for a mime type and starts it with the given arguments, without "open target" semantics.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLaunch,
}

var setCmd = &cobra.Command{
	Use:   "set MIME HANDLER",
	Short: "Set the default handler for a mime type",
	Long: `Replaces the default association for MIME (which may be a wildcard
pattern like "video/*") with HANDLER, a .desktop file name.`,
	Args: cobra.ExactArgs(2),
	RunE: runSet,
}

var addCmd = &cobra.Command{
	Use:   "add MIME HANDLER",
	Short: "Add a handler for a mime type",
	Long:  `Appends HANDLER to the default-association list for MIME, keeping existing entries.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runAdd,
}

var unsetCmd = &cobra.Command{
	Use:   "unset MIME",
	Short: "Remove all handlers for a mime type",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnset,
}

var removeCmd = &cobra.Command{
	Use:   "remove MIME HANDLER",
	Short: "Remove one handler from a mime type",
	Args:  cobra.ExactArgs(2),
	RunE:  runRemove,
}

var mimeCmd = &cobra.Command{
	Use:   "mime PATH...",
	Short: "Print the detected mime type of files or URLs",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMime,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List default applications",
	Long:  `Prints the configured default associations. --all also shows added associations and system-wide associations.`,
	RunE:  runList,
}

var handlersCmd = &cobra.Command{
	Use:   "handlers",
	Short: "List installed desktop entries",
	Long:  `Prints every installed .desktop file with its display name, one per line. Intended for shell completion.`,
	RunE:  runHandlers,
}

var (
	cfgFile         string
	debugMode       bool
	selectorFlag    string
	enableSelector  bool
	disableSelector bool
	jsonOutput      bool
	listAll         bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: $XDG_CONFIG_HOME/openmime/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().StringVar(&selectorFlag, "selector", "", "Selector command for interactive disambiguation")
	rootCmd.PersistentFlags().BoolVar(&enableSelector, "enable-selector", false, "Enable the interactive selector")
	rootCmd.PersistentFlags().BoolVar(&disableSelector, "disable-selector", false, "Disable the interactive selector")

	getCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output handler info as JSON")
	listCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output associations as JSON")
	listCmd.Flags().BoolVar(&listAll, "all", false, "Include added and system associations")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(launchCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(unsetCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(mimeCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(handlersCmd)
}

// session wires one command invocation: configuration, logger, stores
// and the resolver, built fresh per run.
type session struct {
	cfg         config.Config
	logger      *zap.Logger
	scanner     *infra.DesktopScanner
	detector    *infra.FileTypeDetector
	mimeApps    *apps.MimeApps
	systemApps  apps.SystemApps
	resolver    *usecase.Resolver
	selector    domain.Selector
	useSelector bool
}

func newSession() (*session, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if selectorFlag != "" {
		cfg.Selector = selectorFlag
	}
	if enableSelector {
		cfg.EnableSelector = true
	}
	if disableSelector {
		cfg.EnableSelector = false
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	logger := createLogger()
	scanner := infra.NewDesktopScanner(logger)

	mimeApps := apps.NewMimeApps(apps.DefaultMimeAppsPath())
	valid := func(name string) bool {
		_, err := scanner.FindEntry(name)
		return err == nil
	}
	if err := mimeApps.Load(valid); err != nil {
		return nil, err
	}

	systemApps, err := apps.PopulateSystemApps(scanner)
	if err != nil {
		return nil, err
	}

	regexSet, err := cfg.RegexSet()
	if err != nil {
		return nil, err
	}

	detector := infra.NewFileTypeDetector()
	launcher := infra.NewExecLauncher(logger)
	selector := infra.NewCommandSelector(cfg.Selector, logger)

	resolver := usecase.NewResolver(usecase.ResolverParams{
		MimeApps:     mimeApps,
		SystemApps:   systemApps,
		RegexSet:     regexSet,
		TermExecArgs: cfg.TermExecArgs,
		Entries:      scanner,
		Launcher:     launcher,
		Detector:     detector,
		Notifier:     infra.NewDesktopNotifier(logger),
		Logger:       logger,
	})
	// Terminal=true handlers are wrapped in whatever terminal emulator
	// the resolver finds (or guesses) at launch time.
	launcher.TermCommand = func() (string, error) {
		return resolver.Terminal(selector, cfg.EnableSelector)
	}

	return &session{
		cfg:         cfg,
		logger:      logger,
		scanner:     scanner,
		detector:    detector,
		mimeApps:    mimeApps,
		systemApps:  systemApps,
		resolver:    resolver,
		selector:    selector,
		useSelector: cfg.EnableSelector,
	}, nil
}

func (s *session) close() {
	_ = s.logger.Sync()
}

func runGet(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	mime, err := domain.ParseMime(args[0])
	if err != nil {
		return err
	}
	return s.resolver.ShowHandler(os.Stdout, mime, jsonOutput, s.selector, s.useSelector)
}

func runOpen(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	paths := make([]domain.UserPath, 0, len(args))
	for _, a := range args {
		p, err := domain.ParseUserPath(a)
		if err != nil {
			return err
		}
		paths = append(paths, p)
	}
	return s.resolver.OpenPaths(paths, s.selector, s.useSelector)
}

func runLaunch(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	mime, err := domain.ParseMime(args[0])
	if err != nil {
		return err
	}
	return s.resolver.LaunchHandler(mime, args[1:], s.selector, s.useSelector)
}

func runSet(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	mime, err := domain.ParseMime(args[0])
	if err != nil {
		return err
	}
	handler, err := domain.ResolveDesktopID(args[1], s.scanner)
	if err != nil {
		return err
	}
	s.mimeApps.SetHandler(mime, handler)
	return s.mimeApps.Save()
}

func runAdd(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	mime, err := domain.ParseMime(args[0])
	if err != nil {
		return err
	}
	handler, err := domain.ResolveDesktopID(args[1], s.scanner)
	if err != nil {
		return err
	}
	s.mimeApps.AddHandler(mime, handler)
	return s.mimeApps.Save()
}

func runUnset(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	mime, err := domain.ParseMime(args[0])
	if err != nil {
		return err
	}
	s.mimeApps.UnsetHandler(mime)
	return s.mimeApps.Save()
}

func runRemove(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	mime, err := domain.ParseMime(args[0])
	if err != nil {
		return err
	}
	handler, err := domain.ResolveDesktopID(args[1], s.scanner)
	if err != nil {
		return err
	}
	s.mimeApps.RemoveHandler(mime, handler)
	return s.mimeApps.Save()
}

func runMime(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "Path\tMime")
	for _, a := range args {
		p, err := domain.ParseUserPath(a)
		if err != nil {
			return err
		}
		mime, err := p.Mime(s.detector)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\n", p, mime)
	}
	return w.Flush()
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	system := make(map[domain.MimeType]domain.HandlerList, len(s.systemApps))
	for mime, handlers := range s.systemApps {
		system[mime] = domain.HandlerList(handlers)
	}

	if jsonOutput {
		out := map[string]map[string]string{
			"default_apps": listToStrings(s.mimeApps.Default),
		}
		if listAll {
			out["added_associations"] = listToStrings(s.mimeApps.Added)
			out["system_apps"] = listToStrings(system)
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "Mime\tHandlers")
	printAssociations(w, s.mimeApps.Default)
	if listAll {
		if len(s.mimeApps.Added) > 0 {
			fmt.Fprintln(w, "\nAdded associations")
			printAssociations(w, s.mimeApps.Added)
		}
		fmt.Fprintln(w, "\nSystem associations")
		printAssociations(w, system)
	}
	return w.Flush()
}

func printAssociations(w *tabwriter.Writer, m map[domain.MimeType]domain.HandlerList) {
	mimes := make([]string, 0, len(m))
	for mime := range m {
		mimes = append(mimes, string(mime))
	}
	sort.Strings(mimes)
	for _, mime := range mimes {
		fmt.Fprintf(w, "%s\t%s\n", mime, m[domain.MimeType(mime)])
	}
}

func listToStrings(m map[domain.MimeType]domain.HandlerList) map[string]string {
	out := make(map[string]string, len(m))
	for mime, list := range m {
		out[mime.String()] = list.String()
	}
	return out
}

func runHandlers(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	entries, err := s.scanner.Entries()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	for name, entry := range entries {
		fmt.Fprintf(w, "%s\t%s\n", name, entry.Name)
	}
	return w.Flush()
}

func createLogger() *zap.Logger {
	if debugMode {
		logger, _ := zap.NewDevelopment()
		return logger
	}

	logDir := filepath.Join(xdg.StateHome, "openmime")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return zap.NewNop()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{filepath.Join(logDir, "openmime.log")}
	cfg.ErrorOutputPaths = cfg.OutputPaths
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
