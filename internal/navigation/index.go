// Package navigation implements the two-level (category, index) cursor used
// by every list in the launcher, and the controller that binds keyboard
// intents to it.
package navigation

import "fmt"

// Group is one labelled category of navigable items.
type Group[E any] struct {
	Label string
	Items []E
}

// Groups is an ordered list of categories. Order is display order and is
// never sorted here.
type Groups[E any] []Group[E]

// Len returns the number of items across all groups.
func (g Groups[E]) Len() int {
	n := 0
	for _, grp := range g {
		n += len(grp.Items)
	}
	return n
}

// Cursor points at one item. The zero Cursor selects nothing.
type Cursor struct {
	Category string
	Index    int
	Valid    bool
}

// None is the empty selection.
var None = Cursor{}

func (c Cursor) String() string {
	if !c.Valid {
		return "none"
	}
	return fmt.Sprintf("%s[%d]", c.Category, c.Index)
}

// First returns index 0 of the first non-empty group, or None.
func First[E any](groups Groups[E]) Cursor {
	for _, g := range groups {
		if len(g.Items) > 0 {
			return Cursor{Category: g.Label, Index: 0, Valid: true}
		}
	}
	return None
}

// Advance moves one item forward, rolling into the next non-empty group and
// wrapping from the last item to the first.
func Advance[E any](groups Groups[E], c Cursor) Cursor {
	gi, ok := locate(groups, c)
	if !ok {
		return First(groups)
	}
	if c.Index+1 < len(groups[gi].Items) {
		return Cursor{Category: c.Category, Index: c.Index + 1, Valid: true}
	}
	for step := 1; step <= len(groups); step++ {
		g := groups[(gi+step)%len(groups)]
		if len(g.Items) > 0 {
			return Cursor{Category: g.Label, Index: 0, Valid: true}
		}
	}
	return First(groups)
}

// Retreat is the inverse of Advance.
func Retreat[E any](groups Groups[E], c Cursor) Cursor {
	gi, ok := locate(groups, c)
	if !ok {
		return First(groups)
	}
	if c.Index > 0 {
		return Cursor{Category: c.Category, Index: c.Index - 1, Valid: true}
	}
	n := len(groups)
	for step := 1; step <= n; step++ {
		g := groups[((gi-step)%n+n)%n]
		if len(g.Items) > 0 {
			return Cursor{Category: g.Label, Index: len(g.Items) - 1, Valid: true}
		}
	}
	return First(groups)
}

// Resolve returns the item c points at.
func Resolve[E any](groups Groups[E], c Cursor) (E, bool) {
	var zero E
	if !c.Valid {
		return zero, false
	}
	gi, ok := locate(groups, c)
	if !ok {
		c = First(groups)
		if !c.Valid {
			return zero, false
		}
		gi, _ = locate(groups, c)
	}
	return groups[gi].Items[c.Index], true
}

// Contains reports whether c denotes an item of groups.
func Contains[E any](groups Groups[E], c Cursor) bool {
	if !c.Valid {
		return false
	}
	gi := indexOf(groups, c.Category)
	return gi >= 0 && c.Index >= 0 && c.Index < len(groups[gi].Items)
}

// locate finds the group of a valid cursor. A cursor that does not denote an
// item is a caller bug; see invalidCursor.
func locate[E any](groups Groups[E], c Cursor) (int, bool) {
	if !c.Valid {
		return -1, false
	}
	if !Contains(groups, c) {
		invalidCursor(c)
		return -1, false
	}
	return indexOf(groups, c.Category), true
}

func indexOf[E any](groups Groups[E], label string) int {
	for i, g := range groups {
		if g.Label == label {
			return i
		}
	}
	return -1
}

// GroupBy buckets items by label in first-seen order. Items with an empty
// label go to fallback, or "Other" when fallback is empty.
func GroupBy[E any](items []E, label func(E) string, fallback string) Groups[E] {
	if fallback == "" {
		fallback = "Other"
	}
	var groups Groups[E]
	pos := make(map[string]int)
	for _, it := range items {
		l := label(it)
		if l == "" {
			l = fallback
		}
		i, ok := pos[l]
		if !ok {
			i = len(groups)
			pos[l] = i
			groups = append(groups, Group[E]{Label: l})
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	return groups
}
