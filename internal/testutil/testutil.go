// Package testutil provides shared test helpers for setting up note stores.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/notely/internal/storage"
)

// TestFileStore creates a file-backed provider in a temporary directory.
func TestFileStore(t *testing.T) (string, *storage.File) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFile(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestSQLite creates a temporary SQLite-backed provider that is automatically cleaned up.
func TestSQLite(t *testing.T) *storage.SQLite {
	t.Helper()
	dbFile, err := os.CreateTemp("", "notely-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := storage.OpenSQLite(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
