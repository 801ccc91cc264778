package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/platinummonkey/hub/pkg/storage"
)

// LocalConfigFile holds per-developer database settings, relative to the project root
var LocalConfigFile = filepath.Join("test", "data", "cfg", "local.json")

// LocalConfig holds the connection settings of every test database kind
type LocalConfig struct {
	MariaDB      *storage.DBConfig `json:"mariadb,omitempty"`
	Pg           *storage.DBConfig `json:"pg,omitempty"`
	SQLite       *storage.DBConfig `json:"sqlite,omitempty"`
	SQLiteBetter *storage.DBConfig `json:"sqliteBetter,omitempty"`
}

// ReadJSON decodes the JSON file at path into v. A missing file reports
// found=false without an error.
func ReadJSON(path string, v any) (found bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return true, nil
}

// DefaultLocal returns the connection settings used when no local file exists
func DefaultLocal(root string) *LocalConfig {
	server := storage.ConnParams{
		Database: "hub_db_test",
		Host:     "127.0.0.1",
		Password: "PasswordToConnectToHubDb",
		User:     "hub",
	}
	file := storage.ConnParams{
		Filename: filepath.Join(root, "test", "data", "db.sqlite3"),
	}

	return &LocalConfig{
		MariaDB:      &storage.DBConfig{Client: "mysql", Connection: server},
		Pg:           &storage.DBConfig{Client: "pg", Connection: server},
		SQLite:       &storage.DBConfig{Client: "sqlite3", Connection: file, UseNullAsDefault: true},
		SQLiteBetter: &storage.DBConfig{Client: "sqlite3", Connection: file, UseNullAsDefault: true},
	}
}

// LoadLocal reads LocalConfigFile below root, falling back to DefaultLocal
// when it does not exist. found reports whether the file was used.
func LoadLocal(root string) (cfg *LocalConfig, found bool, err error) {
	var local LocalConfig
	found, err = ReadJSON(filepath.Join(root, LocalConfigFile), &local)
	if err != nil {
		return nil, found, err
	}
	if !found {
		return DefaultLocal(root), false, nil
	}
	return &local, true, nil
}

// For returns the settings of one database kind
func (l *LocalConfig) For(kind storage.RDBMS) (*storage.DBConfig, error) {
	var cfg *storage.DBConfig
	switch kind {
	case storage.MariaDB:
		cfg = l.MariaDB
	case storage.Postgres:
		cfg = l.Pg
	case storage.SQLite:
		cfg = l.SQLite
	case storage.SQLiteBetter:
		cfg = l.SQLiteBetter
	default:
		return nil, fmt.Errorf("%w: %q", storage.ErrUnknownRDBMS, kind)
	}

	if cfg == nil {
		return nil, fmt.Errorf("no connection configured for %s", kind)
	}
	return cfg, nil
}
