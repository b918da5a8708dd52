package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickclip/internal/crypto"
)

type memPersister struct {
	data   []byte
	closed bool
}

func (m *memPersister) Load(context.Context) ([]byte, error) { return m.data, nil }

func (m *memPersister) Save(_ context.Context, data []byte) error {
	m.data = append([]byte(nil), data...)
	return nil
}

func (m *memPersister) Close() error {
	m.closed = true
	return nil
}

func TestSealed_RoundTrip(t *testing.T) {
	key, err := crypto.DeriveKey("correct horse")
	require.NoError(t, err)
	inner := &memPersister{}
	p := NewSealed(inner, key)
	ctx := context.Background()

	got, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got, "empty store stays empty")

	require.NoError(t, p.Save(ctx, []byte(`{"items":[{"text":"secret"}]}`)))
	assert.NotContains(t, string(inner.data), "secret")

	got, err = p.Load(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[{"text":"secret"}]}`, string(got))

	require.NoError(t, p.Close())
	assert.True(t, inner.closed)
}

func TestSealed_WrongKey(t *testing.T) {
	k1, err := crypto.DeriveKey("one")
	require.NoError(t, err)
	k2, err := crypto.DeriveKey("two")
	require.NoError(t, err)
	inner := &memPersister{}

	require.NoError(t, NewSealed(inner, k1).Save(context.Background(), []byte("{}")))
	_, err = NewSealed(inner, k2).Load(context.Background())
	assert.ErrorIs(t, err, ErrCorruptSnapshot)
}
