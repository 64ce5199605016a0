package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MuchTitan/go-logwatch/internal/database"
	"github.com/MuchTitan/go-logwatch/internal/fingerprint"
)

// SQLiteStore keeps the state of all watchers in a single tail_state table.
type SQLiteStore struct {
	db *database.DBManager
}

func NewSQLiteStore(dbFile string) (*SQLiteStore, error) {
	dbManager, err := database.NewDBManager(dbFile)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: dbManager}
	if err := s.CreateTables(); err != nil {
		dbManager.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) CreateTables() error {
	query := `CREATE TABLE IF NOT EXISTS tail_state (
        name TEXT NOT NULL PRIMARY KEY,
        main_volume INTEGER,
        main_index INTEGER,
        rotated_volume INTEGER,
        rotated_index INTEGER,
        offset INTEGER NOT NULL DEFAULT 0,
        updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    )`
	if _, err := s.db.ExecuteWrite(query); err != nil {
		return fmt.Errorf("could not create db table tail_state: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(name string) (TailState, error) {
	query := `SELECT main_volume, main_index, rotated_volume, rotated_index, offset
              FROM tail_state
              WHERE name = $1`

	var mainVol, mainIdx, rotVol, rotIdx sql.NullInt64
	var st TailState
	err := s.db.QueryRow(query, name).Scan(&mainVol, &mainIdx, &rotVol, &rotIdx, &st.Offset)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TailState{}, nil
		}
		return TailState{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	if st.MainIdentity, err = identityFromColumns(mainVol, mainIdx); err != nil {
		return TailState{}, fmt.Errorf("%w: main identity: %v", ErrCorrupt, err)
	}
	if st.RotatedIdentity, err = identityFromColumns(rotVol, rotIdx); err != nil {
		return TailState{}, fmt.Errorf("%w: rotated identity: %v", ErrCorrupt, err)
	}
	if err := st.validate(); err != nil {
		return TailState{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return st, nil
}

func (s *SQLiteStore) Save(name string, st TailState) error {
	query := `
        INSERT OR REPLACE INTO tail_state
        (name, main_volume, main_index, rotated_volume, rotated_index, offset, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`

	mainVol, mainIdx := identityToColumns(st.MainIdentity)
	rotVol, rotIdx := identityToColumns(st.RotatedIdentity)
	_, err := s.db.ExecuteWrite(query, name, mainVol, mainIdx, rotVol, rotIdx, st.Offset, time.Now())
	if err != nil {
		return fmt.Errorf("could not save tail state: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(name string) error {
	_, err := s.db.ExecuteWrite(`DELETE FROM tail_state WHERE name = $1`, name)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// sqlite integers are signed, identities are stored bit for bit as int64.
func identityToColumns(id *fingerprint.Identity) (sql.NullInt64, sql.NullInt64) {
	if id == nil {
		return sql.NullInt64{}, sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(id.Volume), Valid: true},
		sql.NullInt64{Int64: int64(id.Index), Valid: true}
}

func identityFromColumns(vol, idx sql.NullInt64) (*fingerprint.Identity, error) {
	if !vol.Valid && !idx.Valid {
		return nil, nil
	}
	if vol.Valid != idx.Valid {
		return nil, errors.New("half of identity is null")
	}
	return &fingerprint.Identity{Volume: uint64(vol.Int64), Index: uint64(idx.Int64)}, nil
}
