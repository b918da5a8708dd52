package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestDefaults(t *testing.T) {
	cfg, err := FromViper(newViper(t))
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, 100, cfg.MaxHistory)
	assert.Equal(t, 3, cfg.MaxPins)
	assert.Equal(t, time.Second, cfg.Poll.Base)
	assert.Equal(t, 5*time.Second, cfg.Poll.Max)
	assert.Equal(t, 1.5, cfg.Poll.Factor)
	assert.Equal(t, 5, cfg.Poll.Threshold)
	assert.Equal(t, DefaultAddr, cfg.Addr)
	assert.Equal(t, int64(20*1024*1024), cfg.MaxImageBytes)
	assert.False(t, cfg.Encrypt)
	assert.Equal(t, DefaultDataDir(), cfg.DataDir)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quickclip.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
data-dir = "`+dir+`"
backend = "BOLT"
poll-base = "500ms"
poll-max = "2s"
max-history = 50

[quick-links]
"Web Search" = "https://example.com/?q={query}"
`), 0o600))

	v := newViper(t)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, BackendBolt, cfg.Backend)
	assert.Equal(t, 500*time.Millisecond, cfg.Poll.Base)
	assert.Equal(t, 2*time.Second, cfg.Poll.Max)
	assert.Equal(t, 50, cfg.MaxHistory)
	assert.Equal(t, "https://example.com/?q={query}", cfg.QuickLinks["web search"])

	st := cfg.Storage()
	assert.Equal(t, filepath.Join(dir, "history.bolt"), st.DBPath)
	assert.Equal(t, filepath.Join(dir, "images"), st.FSPath)
	assert.Equal(t, filepath.Join(dir, "history.key"), cfg.KeyFile())
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("QUICKCLIP_MAX_PINS", "7")

	v := newViper(t)
	v.SetEnvPrefix("QUICKCLIP")
	v.SetEnvKeyReplacer(EnvKeyReplacer())
	v.AutomaticEnv()

	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxPins)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"unknown backend", KeyBackend, "postgres"},
		{"negative history", KeyMaxHistory, -1},
		{"negative pins", KeyMaxPins, -2},
		{"base above max", KeyPollBase, 10 * time.Second},
		{"factor below one", KeyPollFactor, 0.5},
		{"negative image limit", KeyMaxImageBytes, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper(t)
			v.Set(tt.key, tt.val)
			_, err := FromViper(v)
			assert.Error(t, err)
		})
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "clips"), expandHome("~/clips"))
	assert.Equal(t, "/tmp/clips", expandHome("/tmp/clips"))
}
