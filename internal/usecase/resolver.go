// Package usecase contains application business logic.
package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/eliteGoblin/openmime/internal/apps"
	"github.com/eliteGoblin/openmime/internal/domain"
)

// EntryProvider is the descriptor access the resolver needs: by-name
// lookup plus full enumeration.
type EntryProvider interface {
	domain.EntryFinder
	domain.EntryScanner
}

// Resolver composes the user associations, the system associations and
// the regex handlers to answer "which handler opens this mime/path",
// and to launch resolved handlers.
type Resolver struct {
	mimeApps     *apps.MimeApps
	systemApps   apps.SystemApps
	regexSet     domain.RegexSet
	termExecArgs string
	entries      EntryProvider
	launcher     domain.Launcher
	detector     domain.MimeDetector
	notifier     domain.Notifier
	logger       *zap.Logger
}

// ResolverParams bundles the resolver's collaborators.
type ResolverParams struct {
	MimeApps     *apps.MimeApps
	SystemApps   apps.SystemApps
	RegexSet     domain.RegexSet
	TermExecArgs string
	Entries      EntryProvider
	Launcher     domain.Launcher
	Detector     domain.MimeDetector
	Notifier     domain.Notifier
	Logger       *zap.Logger
}

// NewResolver creates a resolver for one session.
func NewResolver(p ResolverParams) *Resolver {
	return &Resolver{
		mimeApps:     p.MimeApps,
		systemApps:   p.SystemApps,
		regexSet:     p.RegexSet,
		termExecArgs: p.TermExecArgs,
		entries:      p.Entries,
		launcher:     p.Launcher,
		detector:     p.Detector,
		notifier:     p.Notifier,
		logger:       p.Logger,
	}
}

// GetHandler resolves the handler for a mime type. Precedence, each
// step tried when the previous yields nothing:
//
//  1. user default associations, exact then wildcard
//  2. the same lookup for the type-level wildcard ("video/*")
//  3. user added associations, front entry, no disambiguation
//  4. system default for the exact mime
//
// Selector cancellation at any interactive step aborts the whole chain.
func (r *Resolver) GetHandler(
	mime domain.MimeType,
	selector domain.Selector,
	useSelector bool,
) (domain.DesktopID, error) {
	h, err := r.mimeApps.GetHandlerFromUser(mime, r.entries, selector, useSelector)
	if err == nil {
		return h, nil
	}
	if errors.Is(err, domain.ErrCancelled) {
		return "", err
	}

	h, err = r.mimeApps.GetHandlerFromUser(mime.TypeWildcard(), r.entries, selector, useSelector)
	if err == nil {
		return h, nil
	}
	if errors.Is(err, domain.ErrCancelled) {
		return "", err
	}

	return r.getHandlerFromAdded(mime)
}

// getHandlerFromAdded consults the added associations, defaulting to
// the system associations when the mime has no added entry at all.
func (r *Resolver) getHandlerFromAdded(mime domain.MimeType) (domain.DesktopID, error) {
	if list, ok := r.mimeApps.Added[mime]; ok {
		front, ok := list.Front()
		if !ok {
			return "", &domain.NotFoundError{Key: mime.String()}
		}
		return front, nil
	}
	if h, ok := r.systemApps.GetHandler(mime); ok {
		return h, nil
	}
	return "", &domain.NotFoundError{Key: mime.String()}
}

// GetHandlerForPath resolves the handler for a file path or URL. A
// regex handler match on the textual form takes precedence over any
// mime-based resolution.
func (r *Resolver) GetHandlerForPath(
	path domain.UserPath,
	selector domain.Selector,
	useSelector bool,
) (domain.Handler, error) {
	if h, err := r.regexSet.GetHandler(path.String()); err == nil {
		return h, nil
	}

	mime, err := path.Mime(r.detector)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("resolved path mime",
		zap.String("path", path.String()),
		zap.String("mime", mime.String()))

	id, err := r.GetHandler(mime, selector, useSelector)
	if err != nil {
		return nil, err
	}
	return id, nil
}

// OpenPaths resolves a handler per path, groups the paths by handler
// identity, and opens each distinct handler exactly once with its full
// batch - five images resolving to one viewer spawn one process with
// five arguments. Handlers run in first-seen order.
func (r *Resolver) OpenPaths(
	paths []domain.UserPath,
	selector domain.Selector,
	useSelector bool,
) error {
	type batch struct {
		handler domain.Handler
		args    []string
	}
	groups := make(map[string]*batch)
	var order []string

	for _, path := range paths {
		handler, err := r.GetHandlerForPath(path, selector, useSelector)
		if err != nil {
			return err
		}
		key := handler.String()
		g, ok := groups[key]
		if !ok {
			g = &batch{handler: handler}
			groups[key] = g
			order = append(order, key)
		}
		g.args = append(g.args, path.String())
	}

	for _, key := range order {
		g := groups[key]
		r.logger.Debug("opening batch",
			zap.String("handler", key),
			zap.Int("paths", len(g.args)))
		if err := g.handler.Open(r.entries, r.launcher, g.args); err != nil {
			return err
		}
	}
	return nil
}

// LaunchHandler resolves the handler for mime and launches it bare with
// the given arguments.
func (r *Resolver) LaunchHandler(
	mime domain.MimeType,
	args []string,
	selector domain.Selector,
	useSelector bool,
) error {
	h, err := r.GetHandler(mime, selector, useSelector)
	if err != nil {
		return err
	}
	return h.Launch(r.entries, r.launcher, args)
}

// OpenWithMime resolves the handler for mime and opens the given
// targets with it.
func (r *Resolver) OpenWithMime(
	mime domain.MimeType,
	args []string,
	selector domain.Selector,
	useSelector bool,
) error {
	h, err := r.GetHandler(mime, selector, useSelector)
	if err != nil {
		return err
	}
	return h.Open(r.entries, r.launcher, args)
}

// ShowHandler resolves the handler for mime and writes it to w: the
// bare handler name by default, or a JSON object carrying the handler,
// its display name and its command when asJSON is set.
func (r *Resolver) ShowHandler(
	w io.Writer,
	mime domain.MimeType,
	asJSON bool,
	selector domain.Selector,
	useSelector bool,
) error {
	id, err := r.GetHandler(mime, selector, useSelector)
	if err != nil {
		return err
	}
	if !asJSON {
		_, err = fmt.Fprintln(w, id)
		return err
	}
	entry, err := id.Entry(r.entries)
	if err != nil {
		return err
	}
	out := struct {
		Handler string `json:"handler"`
		Name    string `json:"name"`
		Cmd     string `json:"cmd"`
	}{
		Handler: id.String(),
		Name:    entry.Name,
		Cmd:     entry.Exec,
	}
	return json.NewEncoder(w).Encode(out)
}

// Terminal returns the exec string of the configured terminal emulator.
// When x-scheme-handler/terminal is unresolved it scans the system
// descriptors for one flagged as a terminal emulator, persists that
// guess as the new default, and notifies the user once about it.
// Configured extra terminal arguments are appended.
func (r *Resolver) Terminal(selector domain.Selector, useSelector bool) (string, error) {
	var entry domain.DesktopEntry
	found := false

	id, err := r.GetHandler(domain.MimeTerminal, selector, useSelector)
	if err == nil {
		if e, entryErr := id.Entry(r.entries); entryErr == nil {
			entry, found = e, true
		}
	} else if errors.Is(err, domain.ErrCancelled) {
		return "", err
	}

	if !found {
		entries, err := r.entries.Entries()
		if err != nil {
			return "", err
		}
		for name, e := range entries {
			if !e.IsTerminalEmulator() {
				continue
			}
			r.logger.Info("guessed terminal emulator", zap.String("handler", name))
			if err := r.notifier.Notify("openmime",
				fmt.Sprintf("Guessed terminal emulator: %s.\n\nIf this is wrong, use `openmime set x-scheme-handler/terminal` to update it.", name),
			); err != nil {
				r.logger.Warn("terminal guess notification failed", zap.Error(err))
			}
			r.mimeApps.SetHandler(domain.MimeTerminal, domain.AssumeValidID(name))
			if err := r.mimeApps.Save(); err != nil {
				r.logger.Warn("persisting terminal guess failed", zap.Error(err))
			}
			entry, found = e, true
			break
		}
	}

	if !found {
		return "", domain.ErrNoTerminal
	}

	execLine := entry.Exec
	if r.termExecArgs != "" {
		execLine += " " + r.termExecArgs
	}
	return execLine, nil
}
