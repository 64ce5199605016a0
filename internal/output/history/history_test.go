package outputhistory

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MuchTitan/go-logwatch/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obs(watcher string, n int) internal.Observation {
	return internal.Observation{
		Watcher:   watcher,
		Matched:   n%2 == 0,
		Timestamp: time.Unix(int64(1700000000+n), 0).UTC(),
		Metadata:  map[string]any{internal.MetaLinesRead: float64(n)},
	}
}

func TestHistory_Init(t *testing.T) {
	assert.Error(t, (&History{}).Init(map[string]any{}))
	assert.Error(t, (&History{}).Init(map[string]any{"Dir": "/tmp", "MaxEntries": 0}))

	h := &History{}
	require.NoError(t, h.Init(map[string]any{"Dir": "/tmp"}))
	assert.Equal(t, defaultMaxEntries, h.maxEntries)
	assert.Equal(t, "history", h.Name())
}

func TestHistory_KeepsLastEntries(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "history")
	h := &History{}
	require.NoError(t, h.Init(map[string]any{"Dir": dir, "MaxEntries": 3}))

	for i := 0; i < 5; i++ {
		require.NoError(t, h.Write([]internal.Observation{obs("app", i)}))
	}

	entries := h.Load("app")
	require.Len(t, entries, 3)
	assert.Equal(t, float64(2), entries[0].Metadata[internal.MetaLinesRead])
	assert.Equal(t, float64(4), entries[2].Metadata[internal.MetaLinesRead])
	assert.True(t, obs("app", 4).Timestamp.Equal(entries[2].Timestamp))
}

func TestHistory_ResumesExistingHistory(t *testing.T) {
	dir := t.TempDir()
	first := &History{}
	require.NoError(t, first.Init(map[string]any{"Dir": dir}))
	require.NoError(t, first.Write([]internal.Observation{obs("app", 1)}))

	second := &History{}
	require.NoError(t, second.Init(map[string]any{"Dir": dir}))
	require.NoError(t, second.Write([]internal.Observation{obs("app", 2), obs("db", 3)}))
	require.NoError(t, second.Exit())

	assert.Len(t, second.Load("app"), 2)
	assert.Len(t, second.Load("db"), 1)
}

func TestHistory_CorruptFileStartsFresh(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.history.json"), []byte("[{"), 0o644))

	h := &History{}
	require.NoError(t, h.Init(map[string]any{"Dir": dir}))
	assert.Nil(t, h.Load("app"))

	require.NoError(t, h.Write([]internal.Observation{obs("app", 1)}))
	assert.Len(t, h.Load("app"), 1)
}

func TestHistory_Match(t *testing.T) {
	dir := t.TempDir()
	h := &History{}
	require.NoError(t, h.Init(map[string]any{"Dir": dir, "Match": "app"}))
	require.NoError(t, h.Write([]internal.Observation{obs("db", 1)}))

	_, err := os.Stat(h.Path("db"))
	assert.True(t, os.IsNotExist(err))
}
