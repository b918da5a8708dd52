// Package config resolves quickclip settings from viper (defaults, config
// file, QUICKCLIP_* env vars and flags).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"quickclip/internal/clipboard"
	"quickclip/internal/history"
	"quickclip/internal/storage"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

const DefaultAddr = "127.0.0.1:9573"

// Keys shared by flags, env vars and the config file.
const (
	KeyDataDir       = "data-dir"
	KeyBackend       = "backend"
	KeyEncrypt       = "encrypt"
	KeyPassphrase    = "passphrase"
	KeyMaxHistory    = "max-history"
	KeyMaxPins       = "max-pins"
	KeyPollBase      = "poll-base"
	KeyPollMax       = "poll-max"
	KeyPollFactor    = "poll-factor"
	KeyPollThreshold = "poll-threshold"
	KeyAddr          = "addr"
	KeyMaxImageBytes = "max-image-bytes"
	KeyHeadless      = "headless"
	KeyQuickLinks    = "quick-links"
	KeyLogFormat     = "log-format"
	KeyLogLevel      = "log-level"
)

// Config holds the resolved application configuration.
type Config struct {
	// DataDir holds the history database, images, key file and PID file.
	DataDir string

	// Backend is BackendSQLite or BackendBolt.
	Backend string

	// Encrypt seals the stored history. The key comes from Passphrase when
	// set, otherwise from a generated key file in DataDir.
	Encrypt    bool
	Passphrase string

	MaxHistory int
	MaxPins    int

	Poll clipboard.PollConfig

	Addr          string
	MaxImageBytes int64

	// Headless disables the system clipboard.
	Headless bool

	// QuickLinks maps a display name to a URL template.
	QuickLinks map[string]string

	LogFormat string
	LogLevel  string
}

// DefaultDataDir returns ~/.quickclip.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".quickclip"
	}
	return filepath.Join(home, ".quickclip")
}

// SetDefaults registers the default for every key on v.
func SetDefaults(v *viper.Viper) {
	poll := clipboard.DefaultPollConfig()
	v.SetDefault(KeyDataDir, DefaultDataDir())
	v.SetDefault(KeyBackend, BackendSQLite)
	v.SetDefault(KeyEncrypt, false)
	v.SetDefault(KeyMaxHistory, history.DefaultMaxHistory)
	v.SetDefault(KeyMaxPins, history.DefaultMaxPins)
	v.SetDefault(KeyPollBase, poll.Base)
	v.SetDefault(KeyPollMax, poll.Max)
	v.SetDefault(KeyPollFactor, poll.Factor)
	v.SetDefault(KeyPollThreshold, poll.Threshold)
	v.SetDefault(KeyAddr, DefaultAddr)
	v.SetDefault(KeyMaxImageBytes, storage.DefaultMaxImageBytes)
	v.SetDefault(KeyLogFormat, "auto")
}

// FromViper reads and validates the configuration.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DataDir:    expandHome(v.GetString(KeyDataDir)),
		Backend:    strings.ToLower(v.GetString(KeyBackend)),
		Encrypt:    v.GetBool(KeyEncrypt),
		Passphrase: v.GetString(KeyPassphrase),
		MaxHistory: v.GetInt(KeyMaxHistory),
		MaxPins:    v.GetInt(KeyMaxPins),
		Poll: clipboard.PollConfig{
			Base:      v.GetDuration(KeyPollBase),
			Max:       v.GetDuration(KeyPollMax),
			Factor:    v.GetFloat64(KeyPollFactor),
			Threshold: v.GetInt(KeyPollThreshold),
		},
		Addr:          v.GetString(KeyAddr),
		MaxImageBytes: v.GetInt64(KeyMaxImageBytes),
		Headless:      v.GetBool(KeyHeadless),
		QuickLinks:    v.GetStringMapString(KeyQuickLinks),
		LogFormat:     v.GetString(KeyLogFormat),
		LogLevel:      v.GetString(KeyLogLevel),
	}
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir()
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendSQLite
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the components cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendSQLite, BackendBolt:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendSQLite, BackendBolt))
	}
	if c.MaxHistory < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyMaxHistory))
	}
	if c.MaxPins < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyMaxPins))
	}
	if c.Poll.Base < 0 || c.Poll.Max < 0 {
		errs = append(errs, errors.New("poll intervals must not be negative"))
	}
	if c.Poll.Max > 0 && c.Poll.Base > c.Poll.Max {
		errs = append(errs, fmt.Errorf("%s (%s) exceeds %s (%s)", KeyPollBase, c.Poll.Base, KeyPollMax, c.Poll.Max))
	}
	if c.Poll.Factor != 0 && c.Poll.Factor < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1", KeyPollFactor))
	}
	if c.MaxImageBytes < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyMaxImageBytes))
	}
	return errors.Join(errs...)
}

// Storage returns the storage location for the configured backend.
func (c *Config) Storage() storage.Config {
	cfg := storage.Config{FSPath: c.ImageDir()}
	if c.Backend == BackendBolt {
		cfg.DBPath = filepath.Join(c.DataDir, "history.bolt")
	} else {
		cfg.DBPath = filepath.Join(c.DataDir, "history.db")
	}
	return cfg
}

func (c *Config) ImageDir() string {
	return filepath.Join(c.DataDir, "images")
}

func (c *Config) KeyFile() string {
	return filepath.Join(c.DataDir, "history.key")
}

// PollInterval is the effective base interval, used in log lines.
func (c *Config) PollInterval() time.Duration {
	if c.Poll.Base <= 0 {
		return clipboard.DefaultPollConfig().Base
	}
	return c.Poll.Base
}

// EnvKeyReplacer maps dashed keys to QUICKCLIP_* variable names.
func EnvKeyReplacer() *strings.Replacer {
	return strings.NewReplacer("-", "_")
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
