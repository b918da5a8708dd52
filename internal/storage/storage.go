package storage

import "context"

// Persister stores the serialized clipboard history as an opaque blob.
type Persister interface {
	// Load returns the last saved snapshot, or nil, nil if nothing has been
	// saved yet.
	Load(ctx context.Context) ([]byte, error)

	// Save replaces the stored snapshot.
	Save(ctx context.Context, data []byte) error

	// Close releases the underlying database handle.
	Close() error
}

// Config holds storage configuration
type Config struct {
	DBPath string // Path to the snapshot database (sqlite or bolt)
	FSPath string // Path to filesystem storage for captured images
	Name   string // Snapshot name; defaults to DefaultSnapshotName
}

// SnapshotName returns the configured snapshot name or the default.
func (c Config) SnapshotName() string {
	if c.Name == "" {
		return DefaultSnapshotName
	}
	return c.Name
}
