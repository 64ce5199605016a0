package fingerprint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipUnsupported(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "js" || runtime.GOOS == "wasip1" || runtime.GOOS == "plan9" {
		t.Skip("no file identity on " + runtime.GOOS)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestGet_MissingFile(t *testing.T) {
	assert.Nil(t, Get(filepath.Join(t.TempDir(), "missing.log")))
}

func TestGet_StableAcrossRenameAndTruncate(t *testing.T) {
	skipUnsupported(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	writeFile(t, path, "some content\n")

	before := Get(path)
	require.NotNil(t, before)

	require.NoError(t, os.Truncate(path, 0))
	assert.True(t, Equal(before, Get(path)), "truncate must keep identity")

	renamed := filepath.Join(dir, "app.log.1")
	require.NoError(t, os.Rename(path, renamed))
	assert.True(t, Equal(before, Get(renamed)), "rename must keep identity")
}

func TestGet_ChangesAfterRecreate(t *testing.T) {
	skipUnsupported(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	aside := filepath.Join(dir, "app.log.old")
	writeFile(t, path, "first\n")
	first := Get(path)
	require.NotNil(t, first)

	// keep the old file alive so its inode cannot be reused
	require.NoError(t, os.Rename(path, aside))
	writeFile(t, path, "second\n")

	second := Get(path)
	require.NotNil(t, second)
	assert.False(t, Equal(first, second))
}

func TestEqual(t *testing.T) {
	a := &Identity{Volume: 1, Index: 2}
	tests := []struct {
		name string
		a, b *Identity
		want bool
	}{
		{"both unknown", nil, nil, true},
		{"one unknown", a, nil, false},
		{"other unknown", nil, a, false},
		{"same value", a, &Identity{Volume: 1, Index: 2}, true},
		{"different index", a, &Identity{Volume: 1, Index: 3}, false},
		{"different volume", a, &Identity{Volume: 9, Index: 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestIdentity_JSON(t *testing.T) {
	data, err := json.Marshal(&Identity{Volume: 2049, Index: 131})
	require.NoError(t, err)
	assert.JSONEq(t, `[2049, 131]`, string(data))

	var id Identity
	require.NoError(t, json.Unmarshal([]byte(`[7, 1, 5]`), &id))
	assert.Equal(t, Identity{Volume: 7, Index: 1<<32 | 5}, id)

	assert.Error(t, json.Unmarshal([]byte(`[1]`), &id))
	assert.Error(t, json.Unmarshal([]byte(`"1:2"`), &id))
	assert.Error(t, json.Unmarshal([]byte(`[1, 4294967296, 0]`), &id))
}
