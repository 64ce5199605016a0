package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

type DBManager struct {
	db *sql.DB
	mu sync.Mutex
}

// NewDBManager opens the sqlite database at dbPath, creating its directory
// when missing.
func NewDBManager(dbPath string) (*DBManager, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("could not create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("could not open sqlite3 database: %w", err)
	}

	logrus.WithField("file", dbPath).Debug("Opening Sqlite3 database.")

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to sqlite3 database: %w", err)
	}

	return &DBManager{
		db: db,
	}, nil
}

// ExecuteWrite performs a write operation safely
func (dm *DBManager) ExecuteWrite(query string, args ...any) (sql.Result, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	res, err := dm.db.Exec(query, args...)
	return res, err
}

// QueryRow performs a read operation (Row)
func (dm *DBManager) QueryRow(query string, args ...any) *sql.Row {
	return dm.db.QueryRow(query, args...)
}

// Close closes the database connection
func (dm *DBManager) Close() error {
	return dm.db.Close()
}
