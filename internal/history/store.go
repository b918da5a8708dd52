// Package history holds the bounded, deduplicated clipboard history.
//
// The store keeps two ordered lists: unpinned entries, most recent capture
// first, capped at MaxHistory; and pinned entries in pin order, capped at
// MaxPins and exempt from the history cap. Every successful mutation is
// written through the Persister. Persistence failures are reported to the
// caller but never undo the in-memory change.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"quickclip/internal/fingerprint"
	"quickclip/internal/storage"
	"quickclip/pkg/types"
)

const (
	DefaultMaxHistory = 100
	DefaultMaxPins    = 3
)

// Persister is the opaque snapshot store.
type Persister interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// ImageReleaser frees externally stored image bytes.
type ImageReleaser interface {
	Release(ctx context.Context, ref string) error
}

// SystemClipboard is the part of the system clipboard Clear needs.
type SystemClipboard interface {
	Clear(ctx context.Context) error
}

// Options configures a Store. Zero values select defaults.
type Options struct {
	Persister  Persister
	Images     ImageReleaser
	Clipboard  SystemClipboard
	Now        func() time.Time
	NewID      func() string
	MaxHistory int
	MaxPins    int
	Logger     *slog.Logger
}

// Snapshot is a copy of the store state handed to observers.
type Snapshot struct {
	Unpinned []types.Entry
	Pinned   []types.Entry
	ActiveID string
}

// Store is safe for concurrent use; mutations are serialized.
type Store struct {
	opts Options
	log  *slog.Logger

	mu       sync.Mutex
	unpinned []types.Entry
	pinned   []types.Entry
	active   string

	busy atomic.Int32

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

// New creates an empty store. Call Load to restore persisted history.
func New(opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = NewIDGenerator()
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = DefaultMaxHistory
	}
	if opts.MaxPins <= 0 {
		opts.MaxPins = DefaultMaxPins
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		opts: opts,
		log:  log.With("component", "history"),
		subs: make(map[int]func(Snapshot)),
	}
}

// Append records a freshly observed payload.
func (s *Store) Append(ctx context.Context, p types.Payload) (AppendResult, error) {
	fp := fingerprint.Of(p)
	if fp.IsZero() {
		return AppendResult{Outcome: AppendIgnored}, nil
	}

	s.mu.Lock()
	if e, ok := s.findByFingerprint(fp); ok {
		// The content is on the clipboard again, so it is the active entry.
		s.active = e.ID
		s.mu.Unlock()
		return AppendResult{Outcome: AppendDuplicate, Entry: e}, nil
	}

	now := s.opts.Now()
	e := types.Entry{
		ID:         s.opts.NewID(),
		Kind:       fp.Kind,
		CreatedAt:  now,
		LastUsedAt: now,
		UseCount:   1,
	}
	if fp.Kind == types.KindImage {
		img := *p.Image
		e.Image = &img
	} else {
		e.Text = p.Text
	}
	s.unpinned = append([]types.Entry{e}, s.unpinned...)
	s.active = e.ID
	evicted := s.trimLocked()
	err := s.persistLocked(ctx, "append")
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.release(ctx, evicted)
	s.notify(snap)
	if len(evicted) > 0 {
		s.log.Debug("history cap reached", "evicted", len(evicted))
	}
	return AppendResult{Outcome: AppendCreated, Entry: e, Evicted: evicted}, err
}

// Pin marks id as pinned, subject to the pin quota.
func (s *Store) Pin(ctx context.Context, id string) (PinResult, error) {
	s.mu.Lock()
	if s.indexPinned(id) >= 0 {
		s.mu.Unlock()
		return PinAlreadyPinned, nil
	}
	i := s.indexUnpinned(id)
	if i < 0 {
		s.mu.Unlock()
		return PinNotFound, nil
	}
	if len(s.pinned) >= s.opts.MaxPins {
		s.mu.Unlock()
		return PinQuotaExceeded, nil
	}

	e := s.unpinned[i]
	e.Pinned = true
	s.unpinned = append(s.unpinned[:i], s.unpinned[i+1:]...)
	s.pinned = append(s.pinned, e)
	err := s.persistLocked(ctx, "pin")
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return PinPinned, err
}

// Unpin returns a pinned entry to the unpinned list at its creation-time
// position. It reports false when id was not pinned.
func (s *Store) Unpin(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	i := s.indexPinned(id)
	if i < 0 {
		s.mu.Unlock()
		return false, nil
	}

	e := s.pinned[i]
	e.Pinned = false
	s.pinned = append(s.pinned[:i], s.pinned[i+1:]...)
	s.insertUnpinnedLocked(e)
	evicted := s.trimLocked()
	err := s.persistLocked(ctx, "unpin")
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.release(ctx, evicted)
	s.notify(snap)
	return true, err
}

// TogglePin pins an unpinned entry or unpins a pinned one.
func (s *Store) TogglePin(ctx context.Context, id string) (PinResult, error) {
	s.mu.Lock()
	pinned := s.indexPinned(id) >= 0
	s.mu.Unlock()

	if pinned {
		ok, err := s.Unpin(ctx, id)
		if !ok {
			return PinNotFound, err
		}
		return PinUnpinned, err
	}
	return s.Pin(ctx, id)
}

// RecordCopy notes an explicit copy of id back to the clipboard. Unknown ids
// are ignored; a copy may race with a delete.
func (s *Store) RecordCopy(ctx context.Context, id string) error {
	s.mu.Lock()
	e := s.lookupLocked(id)
	if e == nil {
		s.mu.Unlock()
		return nil
	}
	e.LastUsedAt = s.opts.Now()
	e.UseCount++
	s.active = id
	err := s.persistLocked(ctx, "copy")
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return err
}

// Delete removes id whatever its pin state.
func (s *Store) Delete(ctx context.Context, id string) (DeleteResult, error) {
	s.busy.Add(1)
	defer s.busy.Add(-1)

	s.mu.Lock()
	var res DeleteResult
	if i := s.indexPinned(id); i >= 0 {
		res.Entry = s.pinned[i]
		s.pinned = append(s.pinned[:i], s.pinned[i+1:]...)
		res.Found = true
	} else if i := s.indexUnpinned(id); i >= 0 {
		res.Entry = s.unpinned[i]
		s.unpinned = append(s.unpinned[:i], s.unpinned[i+1:]...)
		res.Found = true
	}
	if !res.Found {
		s.mu.Unlock()
		return res, nil
	}
	if s.active == id {
		res.WasActive = true
		s.active = ""
	}
	err := s.persistLocked(ctx, "delete")
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.release(ctx, []types.Entry{res.Entry})
	s.notify(snap)
	return res, err
}

// Clear removes every entry, releases all images and clears the system
// clipboard.
func (s *Store) Clear(ctx context.Context) error {
	s.busy.Add(1)
	defer s.busy.Add(-1)

	s.mu.Lock()
	removed := make([]types.Entry, 0, len(s.pinned)+len(s.unpinned))
	removed = append(removed, s.pinned...)
	removed = append(removed, s.unpinned...)
	s.pinned = nil
	s.unpinned = nil
	s.active = ""
	err := s.persistLocked(ctx, "clear")
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.release(ctx, removed)
	if s.opts.Clipboard != nil {
		if cerr := s.opts.Clipboard.Clear(ctx); cerr != nil {
			err = errors.Join(err, fmt.Errorf("clear system clipboard: %w", cerr))
		}
	}
	s.notify(snap)
	return err
}

// Filter returns pinned then unpinned entries whose text contains query,
// ignoring case. Images are only listed when query is empty.
func (s *Store) Filter(query string) []types.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]types.Entry, 0, len(s.pinned)+len(s.unpinned))
	for _, list := range [][]types.Entry{s.pinned, s.unpinned} {
		for _, e := range list {
			if q == "" {
				out = append(out, e)
				continue
			}
			if e.Kind == types.KindText && strings.Contains(strings.ToLower(e.Text), q) {
				out = append(out, e)
			}
		}
	}
	return out
}

// Load replaces the in-memory state with the persisted snapshot. On error
// the current state is left untouched.
func (s *Store) Load(ctx context.Context) error {
	if s.opts.Persister == nil {
		return nil
	}
	data, err := s.opts.Persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	decoded, err := storage.DecodeSnapshot(data)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	s.mu.Lock()
	s.pinned = s.pinned[:0]
	s.unpinned = s.unpinned[:0]
	s.active = ""
	seen := make(map[string]bool, decoded.Len())
	keep := func(e types.Entry) bool {
		fp := fingerprint.OfEntry(e)
		if fp.IsZero() || seen[fp.String()] {
			return false
		}
		seen[fp.String()] = true
		return true
	}
	for _, e := range decoded.Pinned {
		if !keep(e) {
			continue
		}
		if len(s.pinned) >= s.opts.MaxPins {
			e.Pinned = false
			s.insertUnpinnedLocked(e)
			continue
		}
		s.pinned = append(s.pinned, e)
	}
	for _, e := range decoded.Unpinned {
		if keep(e) {
			s.insertUnpinnedLocked(e)
		}
	}
	dropped := s.trimLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if len(dropped) > 0 {
		s.log.Warn("persisted history exceeded cap", "dropped", len(dropped))
	}
	s.log.Info("history loaded", "unpinned", len(snap.Unpinned), "pinned", len(snap.Pinned))
	s.notify(snap)
	return nil
}

// Persist writes the full state through the persister.
func (s *Store) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx, "persist")
}

// Busy reports whether a Clear or Delete is in flight.
func (s *Store) Busy() bool {
	return s.busy.Load() > 0
}

// Subscribe registers fn to receive the state after every mutation. The
// returned function removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Unpinned returns the unpinned entries, most recent first.
func (s *Store) Unpinned() []types.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEntries(s.unpinned)
}

// Pinned returns the pinned entries in pin order.
func (s *Store) Pinned() []types.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEntries(s.pinned)
}

// Get returns the entry with the given id.
func (s *Store) Get(id string) (types.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.lookupLocked(id); e != nil {
		return cloneEntry(*e), true
	}
	return types.Entry{}, false
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pinned) + len(s.unpinned)
}

func (s *Store) PinnedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pinned)
}

func (s *Store) UnpinnedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.unpinned)
}

// ActiveID returns the id of the entry last written to or observed on the
// system clipboard, or "".
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Store) findByFingerprint(fp fingerprint.Fingerprint) (types.Entry, bool) {
	for _, list := range [][]types.Entry{s.pinned, s.unpinned} {
		for _, e := range list {
			if fingerprint.OfEntry(e).Equal(fp) {
				return e, true
			}
		}
	}
	return types.Entry{}, false
}

func (s *Store) indexPinned(id string) int {
	for i := range s.pinned {
		if s.pinned[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) indexUnpinned(id string) int {
	for i := range s.unpinned {
		if s.unpinned[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) lookupLocked(id string) *types.Entry {
	if i := s.indexPinned(id); i >= 0 {
		return &s.pinned[i]
	}
	if i := s.indexUnpinned(id); i >= 0 {
		return &s.unpinned[i]
	}
	return nil
}

// insertUnpinnedLocked places e before the first strictly older entry.
func (s *Store) insertUnpinnedLocked(e types.Entry) {
	i := 0
	for i < len(s.unpinned) && !s.unpinned[i].CreatedAt.Before(e.CreatedAt) {
		i++
	}
	s.unpinned = append(s.unpinned, types.Entry{})
	copy(s.unpinned[i+1:], s.unpinned[i:])
	s.unpinned[i] = e
}

// trimLocked evicts the oldest unpinned entries until the cap holds. Ties on
// CreatedAt evict the entry furthest down the list.
func (s *Store) trimLocked() []types.Entry {
	var evicted []types.Entry
	for len(s.unpinned) > s.opts.MaxHistory {
		oldest := len(s.unpinned) - 1
		for i := oldest - 1; i >= 0; i-- {
			if s.unpinned[i].CreatedAt.Before(s.unpinned[oldest].CreatedAt) {
				oldest = i
			}
		}
		e := s.unpinned[oldest]
		if e.ID == s.active {
			s.active = ""
		}
		evicted = append(evicted, e)
		s.unpinned = append(s.unpinned[:oldest], s.unpinned[oldest+1:]...)
	}
	return evicted
}

func (s *Store) persistLocked(ctx context.Context, op string) error {
	if s.opts.Persister == nil {
		return nil
	}
	data, err := storage.EncodeSnapshot(storage.Snapshot{Unpinned: s.unpinned, Pinned: s.pinned})
	if err == nil {
		err = s.opts.Persister.Save(ctx, data)
	}
	if err != nil {
		s.log.Error("failed to persist history", "op", op, "err", err)
		return &PersistError{Op: op, Err: err}
	}
	return nil
}

func (s *Store) release(ctx context.Context, entries []types.Entry) {
	if s.opts.Images == nil {
		return
	}
	for _, e := range entries {
		if e.Kind != types.KindImage || e.Image == nil || e.Image.Ref == "" {
			continue
		}
		if err := s.opts.Images.Release(ctx, e.Image.Ref); err != nil {
			s.log.Warn("failed to release image", "id", e.ID, "ref", e.Image.Ref, "err", err)
		}
	}
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Unpinned: cloneEntries(s.unpinned),
		Pinned:   cloneEntries(s.pinned),
		ActiveID: s.active,
	}
}

func (s *Store) notify(snap Snapshot) {
	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func cloneEntries(in []types.Entry) []types.Entry {
	out := make([]types.Entry, len(in))
	for i, e := range in {
		out[i] = cloneEntry(e)
	}
	return out
}

func cloneEntry(e types.Entry) types.Entry {
	if e.Image != nil {
		img := *e.Image
		e.Image = &img
	}
	return e
}
