package clipboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.design/x/clipboard"

	"quickclip/internal/storage"
	"quickclip/pkg/types"
)

// ImageStore persists captured image bytes and hands back their descriptor.
type ImageStore interface {
	Put(data []byte) (*types.ImageRef, error)
	Read(ref string) ([]byte, error)
}

// System is the Accessor backed by golang.design/x/clipboard. Image bytes
// never leave this type: reads are stored through ImageStore and only the
// descriptor is returned.
type System struct {
	images ImageStore

	mu      sync.Mutex
	lastImg []byte
	lastRef *types.ImageRef
}

// NewSystem initializes the clipboard. It fails on hosts without a display
// server; callers fall back to Headless.
func NewSystem(images ImageStore) (*System, error) {
	if err := clipboard.Init(); err != nil {
		return nil, fmt.Errorf("clipboard init: %w", err)
	}
	return &System{images: images}, nil
}

func (s *System) ReadText(_ context.Context) (string, error) {
	return string(clipboard.Read(clipboard.FmtText)), nil
}

// ReadImage stores the current clipboard image, reusing the previous
// descriptor while the bytes are unchanged. Images over the size limit are
// reported as absent.
func (s *System) ReadImage(_ context.Context) (*types.ImageRef, error) {
	data := clipboard.Read(clipboard.FmtImage)

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(data) == 0 {
		s.lastImg, s.lastRef = nil, nil
		return nil, nil
	}
	if bytes.Equal(data, s.lastImg) {
		return copyRef(s.lastRef), nil
	}

	s.lastImg = data
	s.lastRef = nil
	if s.images == nil {
		return nil, nil
	}
	ref, err := s.images.Put(data)
	if errors.Is(err, storage.ErrImageTooLarge) {
		slog.Debug("skipping oversize clipboard image", "bytes", len(data))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.lastRef = ref
	return copyRef(ref), nil
}

func (s *System) WriteText(_ context.Context, text string) error {
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

func (s *System) WriteImage(_ context.Context, ref string) error {
	if s.images == nil {
		return fmt.Errorf("no image store configured")
	}
	data, err := s.images.Read(ref)
	if err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	clipboard.Write(clipboard.FmtImage, data)
	return nil
}

func (s *System) Clear(_ context.Context) error {
	clipboard.Write(clipboard.FmtText, []byte{})
	return nil
}

func copyRef(ref *types.ImageRef) *types.ImageRef {
	if ref == nil {
		return nil
	}
	r := *ref
	return &r
}
