package storage

import "errors"

const (
	// DefaultSnapshotName is the key the history snapshot is stored under.
	DefaultSnapshotName = "clipboard_history"

	// Size thresholds
	DefaultMaxImageBytes = 20 * 1024 * 1024 // 20MB - larger images are not captured
	MaxSnapshotSize      = 64 * 1024 * 1024 // 64MB - refuse to load anything larger
)

// Storage errors
var (
	ErrImageTooLarge    = errors.New("image size exceeds maximum allowed size")
	ErrNotFound         = errors.New("not found")
	ErrCorruptSnapshot  = errors.New("corrupt history snapshot")
	ErrSnapshotTooLarge = errors.New("history snapshot exceeds maximum allowed size")
)
