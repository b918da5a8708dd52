//go:build !quickclipdebug

package navigation

import "log/slog"

// invalidCursor logs and lets the caller fall back to First. Build with
// -tags quickclipdebug to panic instead.
func invalidCursor(c Cursor) {
	slog.Warn("navigation: stale cursor, resetting", "cursor", c.String())
}
