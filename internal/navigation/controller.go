package navigation

import (
	"context"
	"slices"
	"sync"
)

// Controller owns the cursor over a changing grouping and turns keyboard
// intents into cursor moves and entity actions. Every intent is a no-op when
// nothing is selected.
type Controller[E Entity] struct {
	source  Source[E]
	mutator Mutator[E]

	mu        sync.Mutex
	groups    Groups[E]
	signature []string
	cursor    Cursor
	watchers  map[int]func(Cursor)
	nextWatch int
}

// NewController builds a controller and loads the initial grouping from
// source. mutator may be nil for lists without clipboard intents.
func NewController[E Entity](source Source[E], mutator Mutator[E]) *Controller[E] {
	c := &Controller[E]{
		source:   source,
		mutator:  mutator,
		watchers: make(map[int]func(Cursor)),
	}
	if source != nil {
		c.SetGroups(source.Groups())
	}
	return c
}

// SetGroups replaces the grouping. The cursor resets to First unless the
// categories and their members are unchanged.
func (c *Controller[E]) SetGroups(groups Groups[E]) {
	sig := signatureOf(groups)

	c.mu.Lock()
	changed := !slices.Equal(sig, c.signature)
	c.groups = groups
	c.signature = sig
	if changed {
		c.cursor = First(groups)
	}
	cur := c.cursor
	c.mu.Unlock()

	if changed {
		c.emit(cur)
	}
}

// Refresh re-reads the grouping from the source.
func (c *Controller[E]) Refresh() {
	if c.source != nil {
		c.SetGroups(c.source.Groups())
	}
}

// Groups returns the current grouping.
func (c *Controller[E]) Groups() Groups[E] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.groups
}

// Cursor returns the current cursor.
func (c *Controller[E]) Cursor() Cursor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// State returns the grouping and cursor as one consistent pair.
func (c *Controller[E]) State() (Groups[E], Cursor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.groups, c.cursor
}

// Selected resolves the cursor.
func (c *Controller[E]) Selected() (E, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Resolve(c.groups, c.cursor)
}

// Watch registers fn to be called with the cursor after it moves or resets.
func (c *Controller[E]) Watch(fn func(Cursor)) (cancel func()) {
	c.mu.Lock()
	id := c.nextWatch
	c.nextWatch++
	c.watchers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.watchers, id)
		c.mu.Unlock()
	}
}

func (c *Controller[E]) OnNext() {
	c.move(Advance[E])
}

func (c *Controller[E]) OnPrev() {
	c.move(Retreat[E])
}

// OnActivate dispatches the selected entity's own action.
func (c *Controller[E]) OnActivate(ctx context.Context) (Outcome, error) {
	e, ok := c.Selected()
	if !ok {
		return OutcomeNone, nil
	}
	return e.Activate(ctx)
}

// OnDeleteSelected deletes the selection and resets the cursor.
func (c *Controller[E]) OnDeleteSelected(ctx context.Context) error {
	if c.mutator == nil {
		return nil
	}
	e, ok := c.Selected()
	if !ok {
		return nil
	}
	err := c.mutator.Delete(ctx, e)
	c.resetFromSource()
	return err
}

// OnTogglePin pins or unpins the selection.
func (c *Controller[E]) OnTogglePin(ctx context.Context) (PinOutcome, error) {
	if c.mutator == nil {
		return PinOutcomeNone, nil
	}
	e, ok := c.Selected()
	if !ok {
		return PinOutcomeNone, nil
	}
	out, err := c.mutator.TogglePin(ctx, e)
	if out == PinOutcomeQuotaExceeded {
		return out, err
	}
	c.resetFromSource()
	return out, err
}

// OnClearAll clears every entry. Like the other intents it does nothing when
// the list is empty.
func (c *Controller[E]) OnClearAll(ctx context.Context) error {
	if c.mutator == nil {
		return nil
	}
	if _, ok := c.Selected(); !ok {
		return nil
	}
	err := c.mutator.ClearAll(ctx)
	c.resetFromSource()
	return err
}

func (c *Controller[E]) move(step func(Groups[E], Cursor) Cursor) {
	c.mu.Lock()
	if !c.cursor.Valid {
		c.mu.Unlock()
		return
	}
	c.cursor = step(c.groups, c.cursor)
	cur := c.cursor
	c.mu.Unlock()

	c.emit(cur)
}

// resetFromSource re-reads the grouping after a mutation and always puts
// the cursor back on First.
func (c *Controller[E]) resetFromSource() {
	c.mu.Lock()
	groups := c.groups
	c.mu.Unlock()
	if c.source != nil {
		groups = c.source.Groups()
	}

	c.mu.Lock()
	c.groups = groups
	c.signature = signatureOf(groups)
	c.cursor = First(groups)
	cur := c.cursor
	c.mu.Unlock()

	c.emit(cur)
}

func (c *Controller[E]) emit(cur Cursor) {
	c.mu.Lock()
	fns := make([]func(Cursor), 0, len(c.watchers))
	for _, fn := range c.watchers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(cur)
	}
}

// signatureOf flattens labels and keys; equal signatures mean the same
// categories with the same members in the same order.
func signatureOf[E Entity](groups Groups[E]) []string {
	sig := make([]string, 0, len(groups)+groups.Len())
	for _, g := range groups {
		sig = append(sig, "\x00"+g.Label)
		for _, it := range g.Items {
			sig = append(sig, it.Key())
		}
	}
	return sig
}
