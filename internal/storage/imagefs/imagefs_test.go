package imagefs

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickclip/internal/storage"
)

func encodePNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func setupTestStore(t *testing.T, maxBytes int) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "images"), maxBytes)
	require.NoError(t, err)
	return s
}

func TestPut_DescribesImage(t *testing.T) {
	s := setupTestStore(t, 0)
	data := encodePNG(t, 7, 3, color.White)

	ref, err := s.Put(data)
	require.NoError(t, err)
	assert.Equal(t, 7, ref.Width)
	assert.Equal(t, 3, ref.Height)
	assert.Len(t, ref.Hash, 64)
	assert.Equal(t, ref.Hash+".png", ref.Ref)

	got, err := s.Read(ref.Ref)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestPut_SameBytesSameHash(t *testing.T) {
	s := setupTestStore(t, 0)
	data := encodePNG(t, 2, 2, color.Black)

	a, err := s.Put(data)
	require.NoError(t, err)
	b, err := s.Put(data)
	require.NoError(t, err)
	assert.Equal(t, a.Hash, b.Hash)

	other, err := s.Put(encodePNG(t, 2, 2, color.White))
	require.NoError(t, err)
	assert.NotEqual(t, a.Hash, other.Hash)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestPut_Rejects(t *testing.T) {
	s := setupTestStore(t, 16)

	_, err := s.Put(encodePNG(t, 4, 4, color.White))
	assert.ErrorIs(t, err, storage.ErrImageTooLarge)

	_, err = s.Put([]byte("not a png"))
	assert.Error(t, err)
}

func TestRelease(t *testing.T) {
	s := setupTestStore(t, 0)
	ctx := context.Background()

	ref, err := s.Put(encodePNG(t, 1, 1, color.White))
	require.NoError(t, err)

	require.NoError(t, s.Release(ctx, ref.Ref))
	_, err = s.Read(ref.Ref)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.NoError(t, s.Release(ctx, ref.Ref), "releasing twice is harmless")
	assert.Error(t, s.Release(ctx, "../escape.png"))
}
