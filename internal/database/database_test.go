package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBManager_WriteAndQuery(t *testing.T) {
	dm, err := NewDBManager(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	defer dm.Close()

	_, err = dm.ExecuteWrite(`CREATE TABLE kv (k TEXT PRIMARY KEY, v INTEGER)`)
	require.NoError(t, err)

	res, err := dm.ExecuteWrite(`INSERT INTO kv (k, v) VALUES ($1, $2)`, "a", 42)
	require.NoError(t, err)
	affected, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	var v int
	require.NoError(t, dm.QueryRow(`SELECT v FROM kv WHERE k = $1`, "a").Scan(&v))
	assert.Equal(t, 42, v)
}
