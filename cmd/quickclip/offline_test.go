package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickclip/internal/config"
	"quickclip/internal/history"
	"quickclip/pkg/types"
)

type memPersister struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

func (m *memPersister) Load(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data, nil
}

func (m *memPersister) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	m.saves++
	return nil
}

func (m *memPersister) Close() error { return nil }

func offlineConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:  t.TempDir(),
		Backend:  config.BackendSQLite,
		Headless: true,
	}
}

func TestReadClipsDoesNotWriteBack(t *testing.T) {
	ctx := context.Background()
	p := &memPersister{}
	seed := history.New(history.Options{Persister: p})
	_, err := seed.Append(ctx, types.TextPayload("alpha"))
	require.NoError(t, err)
	_, err = seed.Append(ctx, types.TextPayload("beta"))
	require.NoError(t, err)
	saved := p.saves

	clips, err := readClips(ctx, history.New(history.Options{Persister: p}), "alp")
	require.NoError(t, err)
	require.Len(t, clips, 1)
	assert.Equal(t, "alpha", clips[0].Text)
	assert.Equal(t, saved, p.saves, "listing must not persist a snapshot")
}

func TestListOfflineEmptyDataDir(t *testing.T) {
	clips, err := listOffline(context.Background(), offlineConfig(t), "")
	require.NoError(t, err)
	assert.Empty(t, clips)
}

func TestClearOfflineRefusesWhileOwned(t *testing.T) {
	cfg := offlineConfig(t)
	pidPath := filepath.Join(cfg.DataDir, "quickclip.pid")
	require.NoError(t, os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getppid())), 0o644))

	err := clearOffline(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
	_, statErr := os.Stat(filepath.Join(cfg.DataDir, "history.db"))
	assert.True(t, os.IsNotExist(statErr), "history must stay untouched")
}

func TestClearOfflineReleasesPID(t *testing.T) {
	cfg := offlineConfig(t)
	require.NoError(t, clearOffline(context.Background(), cfg))
	_, err := os.Stat(filepath.Join(cfg.DataDir, "quickclip.pid"))
	assert.True(t, os.IsNotExist(err))
}

func TestPrintClipsShowsLastUse(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)
	used := time.Date(2025, 6, 7, 8, 9, 10, 0, time.Local)
	var buf bytes.Buffer
	printClips(&buf, []types.Entry{{
		ID:         "01",
		Kind:       types.KindText,
		Text:       "hello\tworld",
		CreatedAt:  created,
		LastUsedAt: used,
		UseCount:   3,
		Pinned:     true,
	}}, 40)

	out := buf.String()
	assert.Contains(t, out, "LAST USED")
	assert.Contains(t, out, used.Format(time.DateTime))
	assert.NotContains(t, out, created.Format(time.DateTime))
	assert.Contains(t, out, "hello world")
	assert.True(t, strings.HasPrefix(out, "ID"))

	buf.Reset()
	printClips(&buf, nil, 40)
	assert.Equal(t, "no clips\n", buf.String())
}
