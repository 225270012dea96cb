package inmemory

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/crisp-ballot/db"
	"github.com/vocdoni/crisp-ballot/db/internal/dbtest"
)

func newDB(t *testing.T) *InMemoryDB {
	database, err := New(db.Options{})
	qt.Assert(t, err, qt.IsNil)
	return database
}

func TestWriteTx(t *testing.T) {
	dbtest.TestWriteTx(t, newDB(t))
}

func TestIterate(t *testing.T) {
	dbtest.TestIterate(t, newDB(t))
}

func TestConcurrentWriteTx(t *testing.T) {
	dbtest.TestConcurrentWriteTx(t, newDB(t))
}

func TestConflict(t *testing.T) {
	c := qt.New(t)
	database := newDB(t)

	first := database.WriteTx()
	second := database.WriteTx()
	_, err := first.Get([]byte("k"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)

	c.Assert(second.Set([]byte("k"), []byte("second")), qt.IsNil)
	c.Assert(second.Commit(), qt.IsNil)

	c.Assert(first.Set([]byte("k"), []byte("first")), qt.IsNil)
	c.Assert(first.Commit(), qt.ErrorIs, db.ErrConflict)

	v, err := database.Get([]byte("k"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(v), qt.Equals, "second")
}
