package storage_test

import (
	"errors"
	"io"
	"path/filepath"
	"testing"

	"bitbucket.org/mmdatafocus/kitchen_backend/storage"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type guardedDoc struct {
	Recipes []string `json:"recipes"`
	Orders  []string `json:"orders"`
}

func newGuard(t *testing.T) (*storage.WipeGuard, *storage.DocumentStore) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	store := storage.NewDocumentStore(storage.NewPathLocker(), logger)
	guard := storage.NewWipeGuard([]storage.TrackedList{
		{Key: "recipes", Wipeable: false},
		{Key: "orders", Wipeable: true},
	}, store, logger)
	return guard, store
}

func TestWipeGuardBlocksEmptyingTrackedList(t *testing.T) {
	guard, _ := newGuard(t)
	path := filepath.Join(t.TempDir(), "doc.json")

	current := &guardedDoc{Recipes: []string{"r1"}}
	next := &guardedDoc{Recipes: []string{}}

	err := guard.Check(path, current, next, nil)
	var wipe *storage.WipeGuardError
	require.True(t, errors.As(err, &wipe))
	assert.Equal(t, "recipes", wipe.List)
	assert.FileExists(t, wipe.SideFile)
}

func TestWipeGuardNonWipeableListIgnoresAuthorization(t *testing.T) {
	guard, _ := newGuard(t)
	path := filepath.Join(t.TempDir(), "doc.json")

	current := &guardedDoc{Recipes: []string{"r1"}}
	next := &guardedDoc{Recipes: []string{}}

	err := guard.Check(path, current, next, map[string]bool{"recipes": true})
	var wipe *storage.WipeGuardError
	require.True(t, errors.As(err, &wipe))
}

func TestWipeGuardAuthorizedWipeOfWipeableList(t *testing.T) {
	guard, _ := newGuard(t)
	path := filepath.Join(t.TempDir(), "doc.json")

	current := &guardedDoc{Orders: []string{"o1"}}
	next := &guardedDoc{Orders: []string{}}

	require.Error(t, guard.Check(path, current, next, nil))
	require.NoError(t, guard.Check(path, current, next, map[string]bool{"orders": true}))
}

func TestWipeGuardAllowsShrinkingWithoutEmptying(t *testing.T) {
	guard, _ := newGuard(t)
	path := filepath.Join(t.TempDir(), "doc.json")

	current := &guardedDoc{Recipes: []string{"r1", "r2"}}
	next := &guardedDoc{Recipes: []string{"r1"}}

	require.NoError(t, guard.Check(path, current, next, nil))
}

func TestWipeGuardFirstWritePasses(t *testing.T) {
	guard, _ := newGuard(t)
	path := filepath.Join(t.TempDir(), "doc.json")

	require.NoError(t, guard.Check(path, nil, &guardedDoc{}, nil))
}

func TestWipeGuardMissingKeyCountsAsEmpty(t *testing.T) {
	guard, _ := newGuard(t)
	path := filepath.Join(t.TempDir(), "doc.json")

	// current already has zero recipes; emptying nothing is not a wipe.
	current := map[string]any{"orders": []string{"o1"}}
	next := map[string]any{"orders": []string{"o1"}}
	require.NoError(t, guard.Check(path, current, next, nil))
}
