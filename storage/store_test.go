package storage_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"bitbucket.org/mmdatafocus/kitchen_backend/storage"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDoc struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

func newStore(t *testing.T) *storage.DocumentStore {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return storage.NewDocumentStore(storage.NewPathLocker(), logger)
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	store := newStore(t)
	path := filepath.Join(t.TempDir(), "doc.json")

	require.NoError(t, store.Write(path, &testDoc{Name: "a", Items: []string{"x"}}))

	var got testDoc
	found, err := store.ReadJSON(path, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "a", got.Name)
	assert.Equal(t, []string{"x"}, got.Items)
}

func TestReadReportsAbsenceOnlyWhenBothFilesMissing(t *testing.T) {
	store := newStore(t)
	path := filepath.Join(t.TempDir(), "missing.json")

	res, err := store.Read(path)
	require.NoError(t, err)
	assert.True(t, res.Absent)

	var got testDoc
	found, err := store.ReadJSON(path, &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestWriteRefreshesBackupBeforePublish(t *testing.T) {
	store := newStore(t)
	path := filepath.Join(t.TempDir(), "doc.json")

	require.NoError(t, store.Write(path, &testDoc{Name: "v1"}))
	require.NoError(t, store.Write(path, &testDoc{Name: "v2"}))

	bak, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	assert.Contains(t, string(bak), "v1")
}

func TestReadRecoversFromBackupWhenCanonicalCorrupt(t *testing.T) {
	store := newStore(t)
	path := filepath.Join(t.TempDir(), "doc.json")

	require.NoError(t, store.Write(path, &testDoc{Name: "v1"}))
	require.NoError(t, store.Write(path, &testDoc{Name: "v2"}))
	// Simulate a torn write of the canonical file.
	require.NoError(t, os.WriteFile(path, []byte("{\"name\": \"v"), 0o644))

	var got testDoc
	found, err := store.ReadJSON(path, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v1", got.Name)
}

func TestReadCorruptWithoutBackupIsFatalNotAbsent(t *testing.T) {
	store := newStore(t)
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := store.Read(path)
	var corrupt *storage.CorruptDocumentError
	require.True(t, errors.As(err, &corrupt))
	assert.Equal(t, path, corrupt.Path)
}

func TestReadEmptyFileWithoutBackupIsFatal(t *testing.T) {
	store := newStore(t)
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := store.Read(path)
	var corrupt *storage.CorruptDocumentError
	require.True(t, errors.As(err, &corrupt))
}

func TestWriteLeavesNoTempFilesBehind(t *testing.T) {
	store := newStore(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")

	require.NoError(t, store.Write(path, &testDoc{Name: "a"}))
	require.NoError(t, store.Write(path, &testDoc{Name: "b"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestQuarantineWritesSideFile(t *testing.T) {
	store := newStore(t)
	path := filepath.Join(t.TempDir(), "doc.json")

	side, err := store.Quarantine(path, &testDoc{Name: "rejected"})
	require.NoError(t, err)
	raw, err := os.ReadFile(side)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "rejected")
	assert.Contains(t, side, ".rejected-")
}
