package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveOpenDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	rel, err := store.Save("2025/schedule.csv", []byte("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, "2025/schedule.csv", rel)

	file, err := store.Open(rel)
	require.NoError(t, err)
	content, err := io.ReadAll(file)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	assert.Equal(t, "a,b\n", string(content))

	require.NoError(t, store.Delete(rel))
	require.NoError(t, store.Delete(rel))
	_, err = store.Open(rel)
	assert.Error(t, err)
}

func TestLocalStorageRejectsEscapingPaths(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"../outside.csv", "a/../../outside.csv", "/etc/passwd", ""} {
		_, err := store.Save(name, []byte("x"))
		assert.ErrorIs(t, err, ErrOutsideBase, name)
		_, err = store.Open(name)
		assert.ErrorIs(t, err, ErrOutsideBase, name)
	}
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("old.pdf", []byte("old"))
	require.NoError(t, err)
	_, err = store.Save("fresh.pdf", []byte("fresh"))
	require.NoError(t, err)
	past := time.Now().Add(-3 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old.pdf"), past, past))

	deleted, err := store.CleanupOlderThan(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.pdf"}, deleted)

	_, err = os.Stat(filepath.Join(dir, "fresh.pdf"))
	assert.NoError(t, err)
}

func TestLocalStorageSaveReplacesWithoutLeftovers(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("schedule.ics", []byte("v1"))
	require.NoError(t, err)
	_, err = store.Save("schedule.ics", []byte("v2"))
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dir, "schedule.ics"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(content))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "schedule.ics", entries[0].Name())
}

func TestLocalStorageCleanupSkipsInFlightWrites(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	tmp := filepath.Join(dir, tempPrefix+"123")
	require.NoError(t, os.WriteFile(tmp, []byte("partial"), 0o644))
	past := time.Now().Add(-3 * time.Hour)
	require.NoError(t, os.Chtimes(tmp, past, past))

	deleted, err := store.CleanupOlderThan(time.Hour)
	require.NoError(t, err)
	assert.Empty(t, deleted)
	_, err = os.Stat(tmp)
	assert.NoError(t, err)
}
