package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"gorm.io/gorm"

	"quickclip/pkg/types"
)

// SnapshotModel is the gorm row holding one serialized history snapshot.
type SnapshotModel struct {
	gorm.Model
	Name string `gorm:"type:string;uniqueIndex;not null"`
	Data []byte `gorm:"type:blob"`
	Size int64
}

// Snapshot is the decoded history: unpinned entries most recent first and
// pinned entries in pin order.
type Snapshot struct {
	Unpinned []types.Entry
	Pinned   []types.Entry
}

// Len returns the total number of entries.
func (s Snapshot) Len() int { return len(s.Unpinned) + len(s.Pinned) }

type snapshotFile struct {
	Items []itemModel `json:"items"`
}

// itemModel is the persisted form of an entry. Optional fields are pointers
// so that older files missing them can be defaulted on load. The legacy keys
// (timestamp, last_copied, copy_count) are millisecond timestamps and counts
// written by earlier releases.
type itemModel struct {
	ID         flexID          `json:"id"`
	Kind       types.Kind      `json:"kind,omitempty"`
	Text       string          `json:"text,omitempty"`
	Image      *types.ImageRef `json:"image,omitempty"`
	CreatedAt  *time.Time      `json:"created_at,omitempty"`
	LastUsedAt *time.Time      `json:"last_used_at,omitempty"`
	UseCount   *int            `json:"use_count,omitempty"`
	Pinned     *bool           `json:"pinned,omitempty"`
	PinOrder   *int            `json:"pin_order,omitempty"`

	Timestamp  *int64 `json:"timestamp,omitempty"`
	LastCopied *int64 `json:"last_copied,omitempty"`
	CopyCount  *int   `json:"copy_count,omitempty"`
}

// flexID accepts both string ids and the numeric ids of older files.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// EncodeSnapshot serializes s as {"items": [...]}, pinned entries first.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	file := snapshotFile{Items: make([]itemModel, 0, s.Len())}
	for i, e := range s.Pinned {
		order := i
		file.Items = append(file.Items, toItemModel(e, &order))
	}
	for _, e := range s.Unpinned {
		file.Items = append(file.Items, toItemModel(e, nil))
	}
	return json.Marshal(file)
}

func toItemModel(e types.Entry, pinOrder *int) itemModel {
	created := e.CreatedAt.UTC()
	lastUsed := e.LastUsedAt.UTC()
	useCount := e.UseCount
	pinned := e.Pinned
	return itemModel{
		ID:         flexID(e.ID),
		Kind:       e.Kind,
		Text:       e.Text,
		Image:      e.Image,
		CreatedAt:  &created,
		LastUsedAt: &lastUsed,
		UseCount:   &useCount,
		Pinned:     &pinned,
		PinOrder:   pinOrder,
	}
}

// DecodeSnapshot parses a snapshot, applying defaults for fields missing in
// older files: pinned=false, use_count=1, last_used_at=created_at, kind=text.
// Items without an id are dropped.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if len(bytes.TrimSpace(data)) == 0 {
		return snap, nil
	}
	if len(data) > MaxSnapshotSize {
		return snap, ErrSnapshotTooLarge
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return snap, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	type pinnedItem struct {
		entry types.Entry
		order int
		pos   int
	}
	var pinned []pinnedItem

	for pos, it := range file.Items {
		if it.ID == "" {
			continue
		}
		e := fromItemModel(it)
		if e.Pinned {
			order := pos
			if it.PinOrder != nil {
				order = *it.PinOrder
			}
			pinned = append(pinned, pinnedItem{entry: e, order: order, pos: pos})
			continue
		}
		snap.Unpinned = append(snap.Unpinned, e)
	}

	sort.SliceStable(snap.Unpinned, func(i, j int) bool {
		return snap.Unpinned[i].CreatedAt.After(snap.Unpinned[j].CreatedAt)
	})
	sort.SliceStable(pinned, func(i, j int) bool {
		if pinned[i].order != pinned[j].order {
			return pinned[i].order < pinned[j].order
		}
		return pinned[i].pos < pinned[j].pos
	})
	for _, p := range pinned {
		snap.Pinned = append(snap.Pinned, p.entry)
	}
	return snap, nil
}

func fromItemModel(it itemModel) types.Entry {
	e := types.Entry{
		ID:    string(it.ID),
		Kind:  it.Kind,
		Text:  it.Text,
		Image: it.Image,
	}
	if e.Kind == "" {
		e.Kind = types.KindText
		if it.Image != nil && it.Text == "" {
			e.Kind = types.KindImage
		}
	}

	switch {
	case it.CreatedAt != nil:
		e.CreatedAt = *it.CreatedAt
	case it.Timestamp != nil:
		e.CreatedAt = time.UnixMilli(*it.Timestamp).UTC()
	default:
		e.CreatedAt = legacyIDTime(string(it.ID))
	}

	switch {
	case it.LastUsedAt != nil && !it.LastUsedAt.IsZero():
		e.LastUsedAt = *it.LastUsedAt
	case it.LastCopied != nil && *it.LastCopied > 0:
		e.LastUsedAt = time.UnixMilli(*it.LastCopied).UTC()
	default:
		e.LastUsedAt = e.CreatedAt
	}

	e.UseCount = 1
	switch {
	case it.UseCount != nil && *it.UseCount > 0:
		e.UseCount = *it.UseCount
	case it.CopyCount != nil && *it.CopyCount > 0:
		e.UseCount = *it.CopyCount
	}

	if it.Pinned != nil {
		e.Pinned = *it.Pinned
	}
	return e
}

// legacyIDTime recovers a creation time from the millisecond ids written by
// earlier releases. Anything else yields the zero time.
func legacyIDTime(id string) time.Time {
	ms, err := strconv.ParseInt(id, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
