// Package database manages the journal connection
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/clawearn/clawearn/database/drivers/postgres"
	"github.com/clawearn/clawearn/database/drivers/sqlite3"
	"github.com/clawearn/clawearn/log"
)

// Connect opens a connection described by cfg and verifies it with a ping
func Connect(ctx context.Context, cfg *Config) (*Instance, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if !cfg.Enabled {
		return nil, ErrDatabaseDisabled
	}
	inst := new(Instance)
	if err := inst.SetConfig(cfg); err != nil {
		return nil, err
	}
	var err error
	switch cfg.Driver {
	case DBSQLite, DBSQLite3:
		if cfg.Path == "" {
			return nil, ErrNoDatabaseProvided
		}
		var db *sql.DB
		if db, err = sqlite3.Connect(cfg.Path); err == nil {
			err = inst.SetSQLiteConnection(db)
		}
	case DBPostgreSQL:
		var db *sql.DB
		if db, err = postgres.Connect(&cfg.ConnectionDetails); err == nil {
			err = inst.SetPostgresConnection(db)
		}
	default:
		return nil, fmt.Errorf("%w: %q", errUnsupportedDriver, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := inst.SQL.PingContext(pingCtx); err != nil {
		_ = inst.SQL.Close()
		return nil, fmt.Errorf("%s ping: %w", cfg.Driver, err)
	}
	inst.SetConnected(true)
	if cfg.Verbose {
		log.Debugf(log.DatabaseSys, "connected to %s journal", cfg.Driver)
	}
	return inst, nil
}

// SetConfig safely sets the global database instance's config
func (i *Instance) SetConfig(cfg *Config) error {
	if i == nil {
		return ErrNilInstance
	}
	if cfg == nil {
		return ErrNilConfig
	}
	i.m.Lock()
	i.config = cfg
	i.m.Unlock()
	return nil
}

// SetSQLiteConnection safely sets the global database instance's connection
// to use SQLite
func (i *Instance) SetSQLiteConnection(con *sql.DB) error {
	if i == nil {
		return ErrNilInstance
	}
	if con == nil {
		return errNilSQL
	}
	i.m.Lock()
	defer i.m.Unlock()
	i.SQL = con
	i.SQL.SetMaxOpenConns(1)
	return nil
}

// SetPostgresConnection safely sets the global database instance's connection
// to use Postgres
func (i *Instance) SetPostgresConnection(con *sql.DB) error {
	if i == nil {
		return ErrNilInstance
	}
	if con == nil {
		return errNilSQL
	}
	i.m.Lock()
	defer i.m.Unlock()
	i.SQL = con
	i.SQL.SetMaxOpenConns(2)
	i.SQL.SetMaxIdleConns(1)
	i.SQL.SetConnMaxLifetime(time.Hour)
	return nil
}

// SetConnected safely sets the global database instance's connected
// status
func (i *Instance) SetConnected(v bool) {
	if i == nil {
		return
	}
	i.m.Lock()
	i.connected = v
	i.m.Unlock()
}

// CloseConnection safely disconnects the global database instance
func (i *Instance) CloseConnection() error {
	if i == nil {
		return ErrNilInstance
	}
	i.m.Lock()
	defer i.m.Unlock()
	if i.SQL == nil {
		return errNilSQL
	}
	i.connected = false
	return i.SQL.Close()
}

// IsConnected safely checks the SQL connection status
func (i *Instance) IsConnected() bool {
	if i == nil {
		return false
	}
	i.m.RLock()
	defer i.m.RUnlock()
	return i.connected
}

// GetConfig safely returns a copy of the config
func (i *Instance) GetConfig() *Config {
	if i == nil {
		return nil
	}
	i.m.RLock()
	defer i.m.RUnlock()
	if i.config == nil {
		return nil
	}
	cpy := *i.config
	return &cpy
}

// Driver returns the configured driver name
func (i *Instance) Driver() string {
	if cfg := i.GetConfig(); cfg != nil {
		return cfg.Driver
	}
	return ""
}

// Ping pings the database
func (i *Instance) Ping() error {
	if i == nil {
		return ErrNilInstance
	}
	if !i.IsConnected() {
		return ErrDatabaseNotConnected
	}
	i.m.RLock()
	defer i.m.RUnlock()
	if i.SQL == nil {
		return errNilSQL
	}
	return i.SQL.Ping()
}

// GetSQL returns the sql connection
func (i *Instance) GetSQL() (*sql.DB, error) {
	if i == nil {
		return nil, ErrNilInstance
	}
	i.m.RLock()
	defer i.m.RUnlock()
	if i.SQL == nil {
		return nil, errNilSQL
	}
	return i.SQL, nil
}
