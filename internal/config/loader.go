package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	configDir  = ".tabula"
	configFile = "config"
	configType = "yaml"
	logFile    = "tabula.log"

	defaultDatabaseDir = "databases"
)

// Load reads the configuration from path, or ~/.tabula/config.yaml when
// path is empty. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return nil, fmt.Errorf("config dir: %w", err)
		}
		path = filepath.Join(dir, configFile+"."+configType)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(configType)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.path = path
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultSettings()
	v.SetDefault("database_dir", defaultDatabaseDir)
	v.SetDefault("settings.autoprint_table", d.AutoprintTable)
	v.SetDefault("settings.auto_update", d.AutoUpdate)
	v.SetDefault("settings.infer_data_types", d.InferDataTypes)
	v.SetDefault("settings.hide_instructions", d.HideInstructions)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
}

// Save writes the configuration back to its file.
func Save(cfg *Config) error {
	path := cfg.path
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return fmt.Errorf("config dir: %w", err)
		}
		path = filepath.Join(dir, configFile+"."+configType)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType(configType)
	v.Set("database_dir", cfg.DatabaseDir)
	v.Set("settings", cfg.Settings)
	v.Set("connections", cfg.Connections)
	v.Set("preferences", cfg.Preferences)
	v.Set("logging", cfg.Logging)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	cfg.path = path
	return nil
}

// DefaultConnection returns the default connection from config, or the first one.
func DefaultConnection(cfg *Config) *Connection {
	if len(cfg.Connections) == 0 {
		return nil
	}

	if cfg.Preferences.DefaultConnection != "" {
		for i := range cfg.Connections {
			if cfg.Connections[i].Name == cfg.Preferences.DefaultConnection {
				return &cfg.Connections[i]
			}
		}
	}

	return &cfg.Connections[0]
}

// LogPath returns the configured log file, defaulting to ~/.tabula/tabula.log.
func (cfg *Config) LogPath() (string, error) {
	if cfg.Logging.File != "" {
		return cfg.Logging.File, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, logFile), nil
}

// Dir returns ~/.tabula.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDir), nil
}
