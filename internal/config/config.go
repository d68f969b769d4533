package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Config represents the application configuration.
type Config struct {
	DatabaseDir string       `mapstructure:"database_dir" yaml:"database_dir"`
	Settings    Settings     `mapstructure:"settings" yaml:"settings"`
	Connections []Connection `mapstructure:"connections" yaml:"connections"`
	Preferences Preferences  `mapstructure:"preferences" yaml:"preferences"`
	Logging     Logging      `mapstructure:"logging" yaml:"logging"`

	path string
}

// Settings are the user-toggleable behaviours. The core only ever sees a
// copy of this struct.
type Settings struct {
	AutoprintTable   bool `mapstructure:"autoprint_table" yaml:"autoprint_table"`
	AutoUpdate       bool `mapstructure:"auto_update" yaml:"auto_update"`
	InferDataTypes   bool `mapstructure:"infer_data_types" yaml:"infer_data_types"`
	HideInstructions bool `mapstructure:"hide_instructions" yaml:"hide_instructions"`
}

// Connection represents a saved PostgreSQL connection profile. The password
// lives in the OS keyring and is only filled in by ResolveConnection.
type Connection struct {
	Name     string `mapstructure:"name" yaml:"name"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Database string `mapstructure:"database" yaml:"database"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"-" yaml:"-"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode"`
}

// Preferences holds user preferences.
type Preferences struct {
	DefaultConnection string `mapstructure:"default_connection" yaml:"default_connection"`
}

// Logging configures the log file.
type Logging struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// ErrUnknownSetting is returned for a setting name that does not exist.
var ErrUnknownSetting = errors.New("unknown setting")

// Setting describes one toggle for listing.
type Setting struct {
	Name        string
	Description string
	On          bool
}

var settingDescriptions = []struct{ name, desc string }{
	{"autoprint_table", "Automatically prints the table after a change has been made."},
	{"hide_instructions", "Hide the instructions message when using the app."},
	{"auto_update", "Automatically update the database table when a change is made."},
	{"infer_data_types", "Enable automatic type inference when loading data."},
}

// DefaultSettings returns the factory settings: only type inference is on.
func DefaultSettings() Settings {
	return Settings{InferDataTypes: true}
}

// List returns every setting with its description and current state.
func (s Settings) List() []Setting {
	out := make([]Setting, 0, len(settingDescriptions))
	for _, d := range settingDescriptions {
		on, _ := s.Get(d.name)
		out = append(out, Setting{Name: d.name, Description: d.desc, On: on})
	}
	return out
}

// Names returns the setting names in display order.
func (s Settings) Names() []string {
	names := make([]string, len(settingDescriptions))
	for i, d := range settingDescriptions {
		names[i] = d.name
	}
	return names
}

// Get reports the value of a named setting.
func (s Settings) Get(name string) (bool, error) {
	p, err := s.field(name)
	if err != nil {
		return false, err
	}
	return *p, nil
}

// Set changes a named setting.
func (s *Settings) Set(name string, on bool) error {
	p, err := s.field(name)
	if err != nil {
		return err
	}
	*p = on
	return nil
}

func (s *Settings) field(name string) (*bool, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "autoprint_table":
		return &s.AutoprintTable, nil
	case "auto_update":
		return &s.AutoUpdate, nil
	case "infer_data_types":
		return &s.InferDataTypes, nil
	case "hide_instructions":
		return &s.HideInstructions, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSetting, name)
}

// OnOff renders a boolean setting the way it is shown and typed.
func OnOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// ParseOnOff accepts "on"/"off" (and true/false).
func ParseOnOff(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "yes", "y":
		return true, nil
	case "off", "false", "no", "n":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

// DSN builds a PostgreSQL connection string from the connection profile.
func (c Connection) DSN() string {
	u := url.URL{Scheme: "postgresql", Host: c.Host, Path: "/" + c.Database}
	if c.Port > 0 {
		u.Host += ":" + strconv.Itoa(c.Port)
	}
	if c.Username != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.Username, c.Password)
		} else {
			u.User = url.User(c.Username)
		}
	}
	if c.SSLMode != "" {
		u.RawQuery = "sslmode=" + url.QueryEscape(c.SSLMode)
	}
	return u.String()
}

// DisplayString returns a human-readable summary of the connection.
func (c Connection) DisplayString() string {
	s := c.Host
	if c.Port > 0 {
		s += ":" + strconv.Itoa(c.Port)
	}
	s += "/" + c.Database
	if c.Username != "" {
		s = c.Username + "@" + s
	}
	return s
}

// ParseDSN parses a PostgreSQL connection string into a Connection.
func ParseDSN(dsn string) (Connection, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return Connection{}, fmt.Errorf("invalid DSN: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return Connection{}, fmt.Errorf("invalid DSN: unsupported scheme %q", u.Scheme)
	}

	conn := Connection{
		Host:     u.Hostname(),
		Database: strings.TrimPrefix(u.Path, "/"),
		SSLMode:  u.Query().Get("sslmode"),
	}

	if u.User != nil {
		conn.Username = u.User.Username()
		if p, ok := u.User.Password(); ok {
			conn.Password = p
		}
	}

	if portStr := u.Port(); portStr != "" {
		conn.Port, _ = strconv.Atoi(portStr)
	}
	if conn.Port == 0 {
		conn.Port = 5432
	}

	conn.Name = fmt.Sprintf("postgres-%s-%d-%s", conn.Host, conn.Port, conn.Database)

	return conn, nil
}

// IsPostgresDSN reports whether dsn names a PostgreSQL server rather than
// a SQLite file.
func IsPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// HasConnection checks if a connection with the given name already exists.
func (cfg *Config) HasConnection(name string) bool {
	_, ok := cfg.Connection(name)
	return ok
}

// Connection returns the saved profile with the given name.
func (cfg *Config) Connection(name string) (Connection, bool) {
	for _, c := range cfg.Connections {
		if c.Name == name {
			return c, true
		}
	}
	return Connection{}, false
}

// AddConnection appends a connection if it doesn't already exist.
func (cfg *Config) AddConnection(conn Connection) {
	if !cfg.HasConnection(conn.Name) {
		conn.Password = ""
		cfg.Connections = append(cfg.Connections, conn)
	}
}

// Clone returns a copy that can be changed and saved without touching cfg.
func (cfg *Config) Clone() *Config {
	c := *cfg
	c.Connections = append([]Connection(nil), cfg.Connections...)
	return &c
}

// Path returns the file the configuration was loaded from or will be saved to.
func (cfg *Config) Path() string {
	return cfg.path
}
