//go:build darwin

package clipboard

import (
	"github.com/progrium/darwinkit/macos/appkit"
)

type pasteboardCounter struct {
	pasteboard appkit.Pasteboard
}

// SystemChangeCounter returns the NSPasteboard change count.
func SystemChangeCounter() ChangeCounter {
	return &pasteboardCounter{pasteboard: appkit.Pasteboard_GeneralPasteboard()}
}

func (c *pasteboardCounter) ChangeCount() int {
	return c.pasteboard.ChangeCount()
}
