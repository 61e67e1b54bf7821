package domain

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Handler is a program capable of opening content: either an installed
// application identified by its .desktop file name, or an inline
// regex-pattern rule from local configuration. Dispatch is closed over
// exactly these two variants.
type Handler interface {
	// Entry resolves the descriptor backing this handler.
	Entry(f EntryFinder) (DesktopEntry, error)
	// Open opens the given targets with the handler.
	Open(f EntryFinder, l Launcher, args []string) error
	// Launch starts the handler without an "open target" semantic.
	Launch(f EntryFinder, l Launcher, args []string) error
	// String returns a stable identity used for grouping and display.
	String() string
}

// DesktopID identifies an installed application by its .desktop file
// name, e.g. "mpv.desktop". A DesktopID is only meaningful when a
// descriptor for that name exists on disk; use ResolveDesktopID to
// construct a validated instance.
type DesktopID string

// ResolveDesktopID validates that a descriptor exists for name and
// returns the handler identity.
func ResolveDesktopID(name string, f EntryFinder) (DesktopID, error) {
	if _, err := f.FindEntry(name); err != nil {
		return "", err
	}
	return DesktopID(name), nil
}

// AssumeValidID constructs a DesktopID without checking that a
// descriptor exists. This bypasses the validity invariant and is only
// for trusted callers that already enumerated the name from disk.
func AssumeValidID(name string) DesktopID {
	return DesktopID(name)
}

func (d DesktopID) String() string {
	return string(d)
}

// Entry reads the descriptor from disk by name.
func (d DesktopID) Entry(f EntryFinder) (DesktopEntry, error) {
	return f.FindEntry(string(d))
}

// Open opens the given targets with the application.
func (d DesktopID) Open(f EntryFinder, l Launcher, args []string) error {
	entry, err := d.Entry(f)
	if err != nil {
		return err
	}
	return l.Exec(entry, ExecModeOpen, args)
}

// Launch starts the application bare.
func (d DesktopID) Launch(f EntryFinder, l Launcher, args []string) error {
	entry, err := d.Entry(f)
	if err != nil {
		return err
	}
	return l.Exec(entry, ExecModeLaunch, args)
}

// RegexHandler is an inline handler from local configuration that
// claims targets by regex match on their textual form. It never touches
// disk; its descriptor is synthesized from the exec template.
type RegexHandler struct {
	ExecLine string
	Terminal bool
	patterns []string
	regexes  []*regexp.Regexp
}

// NewRegexHandler compiles the pattern set. An empty or uncompilable
// pattern set is a configuration error.
func NewRegexHandler(exec string, terminal bool, patterns []string) (RegexHandler, error) {
	if len(patterns) == 0 {
		return RegexHandler{}, fmt.Errorf("regex handler %q: no patterns", exec)
	}
	regexes := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return RegexHandler{}, fmt.Errorf("regex handler %q: %w", exec, err)
		}
		regexes = append(regexes, re)
	}
	return RegexHandler{ExecLine: exec, Terminal: terminal, patterns: patterns, regexes: regexes}, nil
}

// Match reports whether any pattern matches the target.
func (h RegexHandler) Match(target string) bool {
	for _, re := range h.regexes {
		if re.MatchString(target) {
			return true
		}
	}
	return false
}

// Patterns returns the pattern source strings.
func (h RegexHandler) Patterns() []string {
	return h.patterns
}

// Equal compares handlers over their pattern source strings, exec
// template and terminal flag. Compiled matchers are not comparable.
func (h RegexHandler) Equal(o RegexHandler) bool {
	return h.ExecLine == o.ExecLine &&
		h.Terminal == o.Terminal &&
		slices.Equal(h.patterns, o.patterns)
}

// String identity is defined over the pattern sources, not the compiled
// representation.
func (h RegexHandler) String() string {
	return "regex:" + strings.Join(h.patterns, "|")
}

// Entry returns the synthetic in-memory descriptor.
func (h RegexHandler) Entry(_ EntryFinder) (DesktopEntry, error) {
	return SyntheticEntry(h.ExecLine, h.Terminal), nil
}

// Open opens the given targets with the handler command.
func (h RegexHandler) Open(f EntryFinder, l Launcher, args []string) error {
	entry, err := h.Entry(f)
	if err != nil {
		return err
	}
	return l.Exec(entry, ExecModeOpen, args)
}

// Launch starts the handler command bare.
func (h RegexHandler) Launch(f EntryFinder, l Launcher, args []string) error {
	entry, err := h.Entry(f)
	if err != nil {
		return err
	}
	return l.Exec(entry, ExecModeLaunch, args)
}

// RegexSet is the ordered collection of configured regex handlers.
// Resolution is first-match-wins in configuration order.
type RegexSet []RegexHandler

// GetHandler returns the first handler whose pattern set matches the
// target's textual form.
func (s RegexSet) GetHandler(target string) (RegexHandler, error) {
	for _, h := range s {
		if h.Match(target) {
			return h, nil
		}
	}
	return RegexHandler{}, &NotFoundError{Key: target}
}

// HandlerList is an ordered, duplicate-free (first occurrence wins)
// preference list of desktop handlers. The front entry is the most
// preferred. Serialized as a semicolon-delimited string with a trailing
// semicolon, e.g. "mpv.desktop;vlc.desktop;".
type HandlerList []DesktopID

// ParseHandlerList parses the semicolon-delimited form. Empty segments
// (including the trailing semicolon) are skipped, duplicates collapse
// to their first occurrence, and names rejected by valid are dropped
// rather than failing the parse.
func ParseHandlerList(s string, valid func(name string) bool) HandlerList {
	parts := lo.Filter(strings.Split(s, ";"), func(p string, _ int) bool {
		return p != ""
	})
	parts = lo.Uniq(parts)
	list := make(HandlerList, 0, len(parts))
	for _, p := range parts {
		if valid == nil || valid(p) {
			list = append(list, DesktopID(p))
		}
	}
	return list
}

// String renders the semicolon-delimited form with the trailing
// semicolon mandated by the mimeapps.list grammar.
func (l HandlerList) String() string {
	names := lo.Map(l, func(d DesktopID, _ int) string { return string(d) })
	return strings.Join(names, ";") + ";"
}

// Front returns the most preferred handler.
func (l HandlerList) Front() (DesktopID, bool) {
	if len(l) == 0 {
		return "", false
	}
	return l[0], true
}
