package database

import (
	"database/sql"
	"errors"
	"sync"

	"github.com/clawearn/clawearn/database/drivers"
)

// Supported database drivers
const (
	DBSQLite     = "sqlite"
	DBSQLite3    = "sqlite3"
	DBPostgreSQL = "postgres"
)

// Config holds all database configurable options
type Config struct {
	Enabled bool
	Verbose bool
	Driver  string
	// Path is the database file for the sqlite drivers
	Path string
	drivers.ConnectionDetails
}

// Instance holds the database connection
type Instance struct {
	SQL       *sql.DB
	config    *Config
	connected bool
	m         sync.RWMutex
}

// Database errors
var (
	ErrNilInstance          = errors.New("database instance is nil")
	ErrNilConfig            = errors.New("received nil config")
	ErrDatabaseNotConnected = errors.New("database is not connected")
	ErrNoDatabaseProvided   = errors.New("no database provided")
	ErrDatabaseDisabled     = errors.New("database support disabled")
	errNilSQL               = errors.New("database SQL connection is nil")
	errUnsupportedDriver    = errors.New("unsupported database driver")
)
