// Package metadb opens a db.Database by backend name.
package metadb

import (
	"cmp"
	"fmt"
	"os"
	"testing"

	"github.com/vocdoni/crisp-ballot/db"
	"github.com/vocdoni/crisp-ballot/db/inmemory"
	"github.com/vocdoni/crisp-ballot/db/pebbledb"
)

// New opens a database of type typ stored under dir. The in-memory backend
// ignores dir.
func New(typ, dir string) (db.Database, error) {
	opts := db.Options{Path: dir}
	switch typ {
	case db.TypePebble:
		return pebbledb.New(opts)
	case db.TypeInMemory:
		return inmemory.New(opts)
	default:
		return nil, fmt.Errorf("invalid db type %q, available types: %q %q",
			typ, db.TypePebble, db.TypeInMemory)
	}
}

// ForTest returns the backend used by tests, selected with CRISP_DB_TYPE.
func ForTest() string {
	return cmp.Or(os.Getenv("CRISP_DB_TYPE"), db.TypePebble)
}

// NewTest opens a database in a temporary directory that is closed when the
// test ends.
func NewTest(tb testing.TB) db.Database {
	database, err := New(ForTest(), tb.TempDir())
	if err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(func() { _ = database.Close() })
	return database
}
