package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// RDBMS names a kind of test database
type RDBMS string

const (
	MariaDB      RDBMS = "mariadb"
	Postgres     RDBMS = "pg"
	SQLite       RDBMS = "sqlite"
	SQLiteBetter RDBMS = "sqlite_better"
)

// ErrUnknownRDBMS is returned for a database kind without a driver
var ErrUnknownRDBMS = errors.New("unknown RDBMS")

// AllRDBMS lists the supported kinds
var AllRDBMS = []RDBMS{MariaDB, Postgres, SQLite, SQLiteBetter}

// ParseRDBMS parses a kind name
func ParseRDBMS(s string) (RDBMS, error) {
	for _, kind := range AllRDBMS {
		if string(kind) == s {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRDBMS, s)
}

// ConnParams holds the connection parameters of one database
type ConnParams struct {
	Database string `json:"database,omitempty"`
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	SSLMode  string `json:"sslmode,omitempty"`
	Filename string `json:"filename,omitempty"` // SQLite only
}

// DBConfig describes how to reach one test database
type DBConfig struct {
	Client           string     `json:"client"`
	Connection       ConnParams `json:"connection"`
	UseNullAsDefault bool       `json:"useNullAsDefault,omitempty"`
}

// PoolConfig holds connection pool settings
type PoolConfig struct {
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// DefaultPoolConfig returns pool settings suited to tests
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConns:    5,
		MinConns:    1,
		Timeout:     10 * time.Second,
		MaxLifetime: 30 * time.Minute,
		MaxIdleTime: 5 * time.Minute,
	}
}

// DriverName returns the database/sql driver registered for kind
func DriverName(kind RDBMS) (string, error) {
	switch kind {
	case MariaDB:
		return "mysql", nil
	case Postgres:
		return "postgres", nil
	case SQLite, SQLiteBetter:
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRDBMS, kind)
	}
}

// DSN builds the driver data source name for kind
func DSN(kind RDBMS, cfg *DBConfig) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("no connection config for %s", kind)
	}
	conn := cfg.Connection

	switch kind {
	case MariaDB:
		port := conn.Port
		if port == 0 {
			port = 3306
		}
		mc := mysql.NewConfig()
		mc.User = conn.User
		mc.Passwd = conn.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(conn.Host, strconv.Itoa(port))
		mc.DBName = conn.Database
		mc.ParseTime = true
		return mc.FormatDSN(), nil

	case Postgres:
		port := conn.Port
		if port == 0 {
			port = 5432
		}
		sslMode := conn.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(conn.User, conn.Password),
			Host:     net.JoinHostPort(conn.Host, strconv.Itoa(port)),
			Path:     "/" + conn.Database,
			RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
		}
		return u.String(), nil

	case SQLite, SQLiteBetter:
		if conn.Filename == "" {
			return "", fmt.Errorf("sqlite connection requires a filename")
		}
		params := url.Values{"_foreign_keys": {"on"}}
		if kind == SQLiteBetter {
			params.Set("_journal_mode", "WAL")
			params.Set("_busy_timeout", "5000")
		}
		return "file:" + conn.Filename + "?" + params.Encode(), nil

	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRDBMS, kind)
	}
}

// Connect opens and pings a database of the given kind
func Connect(ctx context.Context, kind RDBMS, cfg *DBConfig, pool PoolConfig) (*sql.DB, error) {
	driver, err := DriverName(kind)
	if err != nil {
		return nil, err
	}
	dsn, err := DSN(kind, cfg)
	if err != nil {
		return nil, err
	}

	if kind == SQLite || kind == SQLiteBetter {
		if err := os.MkdirAll(filepath.Dir(cfg.Connection.Filename), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	return ConnectDriver(ctx, driver, dsn, pool)
}

// ConnectDriver opens dsn with a registered driver, configures the pool and pings it
func ConnectDriver(ctx context.Context, driver, dsn string, pool PoolConfig) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", driver, err)
	}

	if pool.MaxConns > 0 {
		db.SetMaxOpenConns(pool.MaxConns)
	}
	if pool.MinConns > 0 {
		db.SetMaxIdleConns(pool.MinConns)
	}
	db.SetConnMaxLifetime(pool.MaxLifetime)
	db.SetConnMaxIdleTime(pool.MaxIdleTime)

	timeout := pool.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", driver, err)
	}
	return db, nil
}
