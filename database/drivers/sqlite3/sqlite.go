// Package sqlite3 opens the embedded journal database
package sqlite3

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// import sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

// Connect opens the database file at path, creating its directory
func Connect(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	return db, nil
}
