package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"quickclip/internal/clipboard"
	"quickclip/internal/history"
	"quickclip/internal/navigation"
	"quickclip/pkg/types"
)

// Mode selects what the navigable list shows.
type Mode string

const (
	ModeClipboard Mode = "clipboard"
	ModeLauncher  Mode = "launcher"
)

// Category labels of the clipboard view.
const (
	LabelPinned     = "Pinned"
	LabelRecent     = "Recent"
	LabelQuickLinks = "Quick Links"
)

// ClipboardError reports a failed service operation.
type ClipboardError struct {
	Op      string // Operation that failed
	ID      string // Entry involved (if applicable)
	Message string // Error message
	Err     error  // Underlying error
}

func (e *ClipboardError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.ID != "" {
		return fmt.Sprintf("%s failed for clip %s: %s", e.Op, e.ID, msg)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, msg)
}

func (e *ClipboardError) Unwrap() error {
	return e.Err
}

// Options wires the service to its collaborators. Poller, Apps and Links are
// optional.
type Options struct {
	Store     *history.Store
	Clipboard clipboard.Accessor
	Poller    *clipboard.Poller
	Apps      []AppSuggestion
	Links     []QuickLink
	Launcher  AppLauncher
	Runner    QuickLinkRunner
}

// ClipboardService connects the poller, the history store and the
// navigation controller, and is the single entry point for front ends.
type ClipboardService struct {
	store  *history.Store
	acc    clipboard.Accessor
	poller *clipboard.Poller
	nav    *navigation.Controller[navigation.Entity]
	log    *slog.Logger

	apps     []AppSuggestion
	links    []QuickLink
	launcher AppLauncher
	runner   QuickLinkRunner

	mu       sync.RWMutex
	mode     Mode
	query    string
	handlers []ViewHandler

	unsubscribe func()
	unwatch     func()
}

// New creates a ClipboardService in clipboard mode.
func New(opts Options) *ClipboardService {
	s := &ClipboardService{
		store:    opts.Store,
		acc:      opts.Clipboard,
		poller:   opts.Poller,
		log:      slog.Default().With("component", "service"),
		apps:     opts.Apps,
		links:    opts.Links,
		launcher: opts.Launcher,
		runner:   opts.Runner,
		mode:     ModeClipboard,
	}
	s.nav = navigation.NewController[navigation.Entity](s, clipMutator{s})
	s.unsubscribe = s.store.Subscribe(func(history.Snapshot) {
		s.nav.Refresh()
		s.publish()
	})
	s.unwatch = s.nav.Watch(func(navigation.Cursor) { s.publish() })
	return s
}

// RegisterHandler adds a new view handler
func (s *ClipboardService) RegisterHandler(handler ViewHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// Start loads persisted history and starts the poller.
func (s *ClipboardService) Start(ctx context.Context) error {
	if err := s.store.Load(ctx); err != nil {
		return &ClipboardError{
			Op:      "Start",
			Message: "failed to load history",
			Err:     err,
		}
	}
	if s.poller != nil {
		s.poller.Start(ctx)
	}
	return nil
}

// Stop stops the poller and flushes the history.
func (s *ClipboardService) Stop(ctx context.Context) error {
	if s.poller != nil {
		s.poller.Stop()
	}
	s.unwatch()
	s.unsubscribe()
	if err := s.store.Persist(ctx); err != nil {
		return &ClipboardError{
			Op:      "Stop",
			Message: "failed to persist history",
			Err:     err,
		}
	}
	return nil
}

// Controller exposes the navigation controller for keyboard intents.
func (s *ClipboardService) Controller() *navigation.Controller[navigation.Entity] {
	return s.nav
}

// Store exposes the history store.
func (s *ClipboardService) Store() *history.Store {
	return s.store
}

// SetQuery changes the filter text and rebuilds the list.
func (s *ClipboardService) SetQuery(query string) {
	s.mu.Lock()
	s.query = query
	s.mu.Unlock()
	s.nav.Refresh()
	s.publish()
}

// SetMode switches between the clipboard and launcher lists.
func (s *ClipboardService) SetMode(mode Mode) {
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
	s.nav.Refresh()
	s.publish()
}

// FocusGained tells the poller the window came to the front.
func (s *ClipboardService) FocusGained() {
	if s.poller != nil {
		s.poller.OnFocusGained()
	}
}

// Groups implements navigation.Source.
func (s *ClipboardService) Groups() navigation.Groups[navigation.Entity] {
	s.mu.RLock()
	mode, query := s.mode, s.query
	s.mu.RUnlock()

	if mode == ModeLauncher {
		return s.launcherGroups(query)
	}
	return s.clipboardGroups(query)
}

// View returns the current grouped list and selection.
func (s *ClipboardService) View() View {
	s.mu.RLock()
	mode, query := s.mode, s.query
	s.mu.RUnlock()
	groups, cur := s.nav.State()
	return buildView(mode, query, groups, cur)
}

// Clips returns pinned then recent entries matching query.
func (s *ClipboardService) Clips(query string) []types.Entry {
	return s.store.Filter(query)
}

// Copy writes an entry back to the system clipboard and records the use.
func (s *ClipboardService) Copy(ctx context.Context, id string) error {
	e, ok := s.store.Get(id)
	if !ok {
		return &ClipboardError{Op: "Copy", ID: id, Message: "clip not found"}
	}

	var err error
	if e.Kind == types.KindImage && e.Image != nil {
		err = s.acc.WriteImage(ctx, e.Image.Ref)
	} else {
		err = s.acc.WriteText(ctx, e.Text)
	}
	if err != nil {
		return &ClipboardError{Op: "Copy", ID: id, Message: "failed to set clipboard content", Err: err}
	}

	if s.poller != nil {
		s.poller.OnUserCopy()
	}
	if err := s.store.RecordCopy(ctx, id); err != nil {
		s.log.Warn("copy not persisted", "id", id, "err", err)
	}
	s.log.Debug("clip copied", "id", id, "kind", e.Kind)
	return nil
}

// DeleteClip removes an entry. When it was the live clipboard content the
// clipboard is replaced with the most recent remaining text, or cleared.
func (s *ClipboardService) DeleteClip(ctx context.Context, id string) (history.DeleteResult, error) {
	res, err := s.store.Delete(ctx, id)
	if err != nil {
		s.log.Warn("delete not persisted", "id", id, "err", err)
	}
	if !res.Found {
		return res, &ClipboardError{Op: "DeleteClip", ID: id, Message: "clip not found"}
	}
	if !res.WasActive {
		return res, nil
	}

	if next, ok := s.mostRecentText(); ok {
		err = s.acc.WriteText(ctx, next.Text)
	} else {
		err = s.acc.Clear(ctx)
	}
	if err != nil {
		return res, &ClipboardError{Op: "DeleteClip", ID: id, Message: "failed to replace clipboard content", Err: err}
	}
	return res, nil
}

// TogglePin pins or unpins an entry.
func (s *ClipboardService) TogglePin(ctx context.Context, id string) (navigation.PinOutcome, error) {
	res, err := s.store.TogglePin(ctx, id)
	if err != nil {
		s.log.Warn("pin not persisted", "id", id, "err", err)
	}
	switch res {
	case history.PinPinned, history.PinAlreadyPinned:
		return navigation.PinOutcomePinned, nil
	case history.PinUnpinned:
		return navigation.PinOutcomeUnpinned, nil
	case history.PinQuotaExceeded:
		s.log.Info("pin quota reached", "id", id)
		return navigation.PinOutcomeQuotaExceeded, nil
	default:
		return navigation.PinOutcomeNone, &ClipboardError{Op: "TogglePin", ID: id, Message: "clip not found"}
	}
}

// ClearClips deletes all entries and clears the system clipboard.
func (s *ClipboardService) ClearClips(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return &ClipboardError{Op: "ClearClips", Message: "failed to clear history", Err: err}
	}
	return nil
}

func (s *ClipboardService) mostRecentText() (types.Entry, bool) {
	var best types.Entry
	found := false
	for _, e := range append(s.store.Unpinned(), s.store.Pinned()...) {
		if e.Kind != types.KindText {
			continue
		}
		if !found || e.CreatedAt.After(best.CreatedAt) {
			best, found = e, true
		}
	}
	return best, found
}

func (s *ClipboardService) clipboardGroups(query string) navigation.Groups[navigation.Entity] {
	var pinned, recent []navigation.Entity
	for _, e := range s.store.Filter(query) {
		ent := &ClipEntity{Entry: e, svc: s}
		if e.Pinned {
			pinned = append(pinned, ent)
		} else {
			recent = append(recent, ent)
		}
	}
	var groups navigation.Groups[navigation.Entity]
	if len(pinned) > 0 {
		groups = append(groups, navigation.Group[navigation.Entity]{Label: LabelPinned, Items: pinned})
	}
	if len(recent) > 0 {
		groups = append(groups, navigation.Group[navigation.Entity]{Label: LabelRecent, Items: recent})
	}
	return groups
}

func (s *ClipboardService) launcherGroups(query string) navigation.Groups[navigation.Entity] {
	q := strings.ToLower(strings.TrimSpace(query))

	var apps []navigation.Entity
	for i := range s.apps {
		a := s.apps[i]
		if q != "" && !strings.Contains(strings.ToLower(a.Name), q) {
			continue
		}
		if a.Launcher == nil {
			a.Launcher = s.launcher
		}
		apps = append(apps, &a)
	}
	groups := navigation.GroupBy(apps, func(e navigation.Entity) string {
		return e.(*AppSuggestion).Category
	}, "")

	var links []navigation.Entity
	for i := range s.links {
		l := s.links[i]
		l.Query = query
		if l.Runner == nil {
			l.Runner = s.runner
		}
		// Links without a placeholder only match on their name.
		if q != "" && !l.NeedsQuery() && !strings.Contains(strings.ToLower(l.Name), q) {
			continue
		}
		links = append(links, &l)
	}
	if len(links) > 0 {
		groups = append(groups, navigation.Group[navigation.Entity]{Label: LabelQuickLinks, Items: links})
	}
	return groups
}

func (s *ClipboardService) publish() {
	s.mu.RLock()
	handlers := s.handlers // Copy to avoid holding lock during callbacks
	s.mu.RUnlock()
	if len(handlers) == 0 {
		return
	}

	view := s.View()
	for _, h := range handlers {
		h.HandleView(view)
	}
}

// clipMutator routes the clipboard intents to the service. Entities that
// are not clips are ignored.
type clipMutator struct {
	s *ClipboardService
}

func (m clipMutator) Delete(ctx context.Context, e navigation.Entity) error {
	clip, ok := e.(*ClipEntity)
	if !ok {
		return nil
	}
	_, err := m.s.DeleteClip(ctx, clip.Entry.ID)
	return err
}

func (m clipMutator) TogglePin(ctx context.Context, e navigation.Entity) (navigation.PinOutcome, error) {
	clip, ok := e.(*ClipEntity)
	if !ok {
		return navigation.PinOutcomeNone, nil
	}
	return m.s.TogglePin(ctx, clip.Entry.ID)
}

func (m clipMutator) ClearAll(ctx context.Context) error {
	m.s.mu.RLock()
	mode := m.s.mode
	m.s.mu.RUnlock()
	if mode != ModeClipboard {
		return nil
	}
	return m.s.ClearClips(ctx)
}
