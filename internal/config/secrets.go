package config

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = "tabula"

// SaveConnection stores a connection profile: the password goes to the OS
// keyring, everything else to the config file.
func SaveConnection(cfg *Config, conn Connection) error {
	if conn.Password != "" {
		if err := keyring.Set(keyringService, conn.Name, conn.Password); err != nil {
			return fmt.Errorf("store password: %w", err)
		}
	}
	cfg.AddConnection(conn)
	return Save(cfg)
}

// ResolveConnection returns the named profile with its keyring password.
func ResolveConnection(cfg *Config, name string) (Connection, error) {
	conn, ok := cfg.Connection(name)
	if !ok {
		return Connection{}, fmt.Errorf("connection %q not found", name)
	}
	pw, err := keyring.Get(keyringService, name)
	switch {
	case errors.Is(err, keyring.ErrNotFound):
	case err != nil:
		return Connection{}, fmt.Errorf("read password: %w", err)
	default:
		conn.Password = pw
	}
	return conn, nil
}

// RemoveConnection deletes a profile and its stored password.
func RemoveConnection(cfg *Config, name string) error {
	kept := cfg.Connections[:0]
	found := false
	for _, c := range cfg.Connections {
		if c.Name == name {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return fmt.Errorf("connection %q not found", name)
	}
	cfg.Connections = kept

	if err := keyring.Delete(keyringService, name); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete password: %w", err)
	}
	return Save(cfg)
}
