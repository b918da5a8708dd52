// Package imagefs stores captured clipboard images on disk, addressed by the
// SHA-256 of their PNG bytes.
package imagefs

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"quickclip/internal/storage"
	"quickclip/pkg/types"
)

const ext = ".png"

// Store writes images as <dir>/<hash>.png.
type Store struct {
	dir      string
	maxBytes int
}

// New creates the image directory if needed. maxBytes <= 0 selects
// storage.DefaultMaxImageBytes.
func New(dir string, maxBytes int) (*Store, error) {
	if maxBytes <= 0 {
		maxBytes = storage.DefaultMaxImageBytes
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	return &Store{dir: dir, maxBytes: maxBytes}, nil
}

// Dir returns the directory images are written to.
func (s *Store) Dir() string { return s.dir }

// Put stores PNG bytes and returns their descriptor. Writing the same image
// twice is a no-op; the returned Hash is the fingerprint used for dedup.
func (s *Store) Put(data []byte) (*types.ImageRef, error) {
	if len(data) > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", storage.ErrImageTooLarge, len(data))
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode png header: %w", err)
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	ref := hash + ext
	path := filepath.Join(s.dir, ref)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, data, 0600); err != nil {
			return nil, fmt.Errorf("failed to write image: %w", err)
		}
		if err := os.Rename(tmp, path); err != nil {
			os.Remove(tmp)
			return nil, fmt.Errorf("failed to write image: %w", err)
		}
	}

	return &types.ImageRef{
		Width:  cfg.Width,
		Height: cfg.Height,
		Hash:   hash,
		Ref:    ref,
	}, nil
}

// Read returns the bytes behind ref.
func (s *Store) Read(ref string) ([]byte, error) {
	path, err := s.path(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return data, nil
}

// Release removes the bytes behind ref. Missing files are not an error.
func (s *Store) Release(_ context.Context, ref string) error {
	path, err := s.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to release image: %w", err)
	}
	return nil
}

func (s *Store) path(ref string) (string, error) {
	if ref == "" || filepath.Base(ref) != ref || !strings.HasSuffix(ref, ext) {
		return "", fmt.Errorf("invalid image ref %q", ref)
	}
	return filepath.Join(s.dir, ref), nil
}
