// Package testutil provides shared test helpers for setting up lore stores
// and databases.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/laguz/internal/index"
	"github.com/starford/laguz/internal/lorebook"
	"github.com/starford/laguz/internal/lorefile"
	"github.com/starford/laguz/internal/loreservice"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "laguz-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestService creates a fully wired lore service backed by temp storage,
// with a short debounce so persistence is observable in tests. It returns
// the service and the lore file path.
func TestService(t *testing.T) (*loreservice.Service, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), lorefile.DefaultName)
	svc := loreservice.New(
		lorebook.New("test"),
		TestDB(t),
		lorefile.NewWriter(nil),
		path,
		20*time.Millisecond,
		false,
		nil,
	)
	t.Cleanup(svc.Close)
	return svc, path
}
