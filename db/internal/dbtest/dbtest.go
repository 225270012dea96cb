// Package dbtest holds the conformance tests shared by every db.Database
// implementation.
package dbtest

import (
	"fmt"
	"strconv"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/crisp-ballot/db"
)

func TestWriteTx(t *testing.T, database db.Database) {
	c := qt.New(t)
	wTx := database.WriteTx()

	_, err := wTx.Get([]byte("a"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)

	c.Assert(wTx.Set([]byte("a"), []byte("b")), qt.IsNil)
	v, err := wTx.Get([]byte("a"))
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.DeepEquals, []byte("b"))

	// not visible before commit
	_, err = database.Get([]byte("a"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)

	c.Assert(wTx.Commit(), qt.IsNil)
	c.Assert(wTx.Commit(), qt.ErrorIs, db.ErrTxClosed)
	wTx.Discard()

	v, err = database.Get([]byte("a"))
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.DeepEquals, []byte("b"))

	wTx = database.WriteTx()
	c.Assert(wTx.Delete([]byte("a")), qt.IsNil)
	_, err = wTx.Get([]byte("a"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)
	c.Assert(wTx.Commit(), qt.IsNil)
	_, err = database.Get([]byte("a"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)

	wTx = database.WriteTx()
	c.Assert(wTx.Set([]byte("discarded"), []byte("x")), qt.IsNil)
	wTx.Discard()
	_, err = database.Get([]byte("discarded"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)
}

func TestIterate(t *testing.T, d db.Database) {
	c := qt.New(t)
	prefix0, prefix0NumKeys := []byte("a"), 20
	prefix1, prefix1NumKeys := []byte("b"), 30

	wTx := d.WriteTx()
	for i := range prefix0NumKeys {
		c.Assert(wTx.Set(fmt.Appendf(prefix0, "%02d", i), []byte(strconv.Itoa(i))), qt.IsNil)
	}
	for i := range prefix1NumKeys {
		c.Assert(wTx.Set(fmt.Appendf(prefix1, "%02d", i), []byte(strconv.Itoa(i))), qt.IsNil)
	}
	c.Assert(wTx.Commit(), qt.IsNil)

	count := func(prefix []byte) int {
		n := 0
		c.Assert(d.Iterate(prefix, func(k, v []byte) bool {
			n++
			return true
		}), qt.IsNil)
		return n
	}
	c.Assert(count(nil), qt.Equals, prefix0NumKeys+prefix1NumKeys)
	c.Assert(count(prefix0), qt.Equals, prefix0NumKeys)
	c.Assert(count(prefix1), qt.Equals, prefix1NumKeys)

	var keys []string
	c.Assert(d.Iterate(prefix0, func(k, v []byte) bool {
		keys = append(keys, string(k))
		return len(keys) < 3
	}), qt.IsNil)
	c.Assert(keys, qt.DeepEquals, []string{"00", "01", "02"})
}

func TestConcurrentWriteTx(t *testing.T, database db.Database) {
	c := qt.New(t)
	key := []byte("counter")
	wTx := database.WriteTx()
	c.Assert(wTx.Set(key, []byte{0}), qt.IsNil)
	c.Assert(wTx.Commit(), qt.IsNil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	committed := 0
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx := database.WriteTx()
			defer tx.Discard()
			v, err := tx.Get(key)
			if err != nil {
				return
			}
			if err := tx.Set(key, []byte{v[0] + 1}); err != nil {
				return
			}
			if tx.Commit() == nil {
				mu.Lock()
				committed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	v, err := database.Get(key)
	c.Assert(err, qt.IsNil)
	c.Assert(int(v[0]), qt.Equals, committed)
}
