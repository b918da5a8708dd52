package storage

import (
	"context"
	"fmt"

	"quickclip/internal/crypto"
)

// Sealed wraps a Persister so that snapshots are encrypted at rest.
type Sealed struct {
	inner Persister
	key   *crypto.Key
}

// NewSealed returns a Persister that seals data with key before handing it
// to inner.
func NewSealed(inner Persister, key *crypto.Key) *Sealed {
	return &Sealed{inner: inner, key: key}
}

// Load implements Persister.
func (s *Sealed) Load(ctx context.Context) ([]byte, error) {
	data, err := s.inner.Load(ctx)
	if err != nil || data == nil {
		return data, err
	}
	plain, err := crypto.Open(data, s.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return plain, nil
}

// Save implements Persister.
func (s *Sealed) Save(ctx context.Context, data []byte) error {
	sealed, err := crypto.Seal(data, s.key)
	if err != nil {
		return fmt.Errorf("seal snapshot: %w", err)
	}
	return s.inner.Save(ctx, sealed)
}

// Close implements Persister.
func (s *Sealed) Close() error { return s.inner.Close() }
