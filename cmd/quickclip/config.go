package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"quickclip/internal/config"
	"quickclip/internal/logging"
)

// bindViper wires a command's flags into a viper instance with the standard
// config file search order and QUICKCLIP_* env var prefix.
//
// Precedence (lowest to highest): defaults, config file, QUICKCLIP_* env vars, flags
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	config.SetDefaults(v)

	configFlag, _ := cmd.Flags().GetString("config")
	if configFlag != "" {
		v.SetConfigFile(configFlag)
	} else {
		v.SetConfigName("quickclip")
		v.SetConfigType("toml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "quickclip"))
		}
		v.AddConfigPath("/etc/quickclip/")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("config: %w", err)
		}
	}

	v.SetEnvPrefix("QUICKCLIP")
	v.SetEnvKeyReplacer(config.EnvKeyReplacer())
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// addConfigFlag adds the --config flag to a command.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to config file (overrides auto-discovery)")
}

// addLoggingFlags adds the standard logging flags to a command.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().String(config.KeyLogFormat, "auto", "log format: auto|text|json")
	cmd.Flags().String(config.KeyLogLevel, "", "log level: debug|info|warn|error (default: info)")
}

// addStorageFlags adds the flags every command that opens the history needs.
func addStorageFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String(config.KeyDataDir, config.DefaultDataDir(), "directory for history, images and the key file")
	f.String(config.KeyBackend, config.BackendSQLite, "history backend: sqlite|bolt")
	f.Bool(config.KeyEncrypt, false, "encrypt the stored history")
	f.String(config.KeyPassphrase, "", "derive the encryption key from a passphrase instead of the key file")
	f.Int(config.KeyMaxHistory, 100, "unpinned entries to keep")
	f.Int(config.KeyMaxPins, 3, "pinned entries allowed")
}

// loadConfig resolves the configuration and sets up logging.
func loadConfig(v *viper.Viper, defaultLevel slog.Level) (*config.Config, error) {
	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, err
	}
	logging.Setup(os.Stderr, logging.ParseFormat(cfg.LogFormat), logging.ParseLevel(cfg.LogLevel, defaultLevel))
	return cfg, nil
}
