// Package clipboard samples the system clipboard and feeds novel content
// into the history store.
package clipboard

import (
	"context"

	"quickclip/pkg/types"
)

// Accessor reads and writes the system clipboard. Text and image channels
// fail independently. Absent content is ("", nil) or (nil, nil).
type Accessor interface {
	ReadText(ctx context.Context) (string, error)
	ReadImage(ctx context.Context) (*types.ImageRef, error)
	WriteText(ctx context.Context, text string) error
	WriteImage(ctx context.Context, ref string) error
	Clear(ctx context.Context) error
}

// ChangeCounter exposes a counter the OS bumps on every clipboard write.
// When it has not moved since the last cycle the poller skips the reads.
type ChangeCounter interface {
	ChangeCount() int
}

// Headless is the no-op Accessor used when no display server is available.
type Headless struct{}

func (Headless) ReadText(context.Context) (string, error)           { return "", nil }
func (Headless) ReadImage(context.Context) (*types.ImageRef, error) { return nil, nil }
func (Headless) WriteText(context.Context, string) error            { return nil }
func (Headless) WriteImage(context.Context, string) error           { return nil }
func (Headless) Clear(context.Context) error                        { return nil }
