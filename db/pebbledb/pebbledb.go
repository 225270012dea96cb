package pebbledb

import (
	"errors"
	"fmt"
	"os"

	"github.com/cockroachdb/pebble"
	"github.com/vocdoni/crisp-ballot/db"
)

// WriteTx implements the interface db.WriteTx over an indexed pebble batch.
// Conflicts with concurrent transactions are not detected.
type WriteTx struct {
	batch *pebble.Batch
}

var _ db.WriteTx = (*WriteTx)(nil)

func get(reader pebble.Reader, k []byte) ([]byte, error) {
	v, closer, err := reader.Get(k)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	// v is only valid until closer is closed
	out := make([]byte, len(v))
	copy(out, v)
	if err := closer.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

func iterate(reader pebble.Reader, prefix []byte, callback func(k, v []byte) bool) (err error) {
	iter, err := reader.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer func() {
		if errC := iter.Close(); err == nil {
			err = errC
		}
	}()
	for iter.First(); iter.Valid(); iter.Next() {
		if !callback(iter.Key()[len(prefix):], iter.Value()) {
			break
		}
	}
	return iter.Error()
}

// Get implements the db.WriteTx.Get interface method.
func (tx *WriteTx) Get(k []byte) ([]byte, error) {
	return get(tx.batch, k)
}

// Iterate implements the db.WriteTx.Iterate interface method.
func (tx *WriteTx) Iterate(prefix []byte, callback func(k, v []byte) bool) error {
	return iterate(tx.batch, prefix, callback)
}

// Set implements the db.WriteTx.Set interface method.
func (tx *WriteTx) Set(k, v []byte) error {
	return tx.batch.Set(k, v, nil)
}

// Delete implements the db.WriteTx.Delete interface method.
func (tx *WriteTx) Delete(k []byte) error {
	return tx.batch.Delete(k, nil)
}

// Commit implements the db.WriteTx.Commit interface method.
func (tx *WriteTx) Commit() error {
	if tx.batch == nil {
		return fmt.Errorf("pebble: %w", db.ErrTxClosed)
	}
	err := tx.batch.Commit(pebble.Sync)
	tx.batch = nil
	return err
}

// Discard implements the db.WriteTx.Discard interface method.
func (tx *WriteTx) Discard() {
	if tx.batch == nil {
		// a committed batch is already back in the pebble pool
		return
	}
	_ = tx.batch.Close()
	tx.batch = nil
}

// PebbleDB implements the db.Database interface.
type PebbleDB struct {
	db *pebble.DB
}

var _ db.Database = (*PebbleDB)(nil)

// New opens or creates a PebbleDB under opts.Path.
func New(opts db.Options) (*PebbleDB, error) {
	if err := os.MkdirAll(opts.Path, os.ModePerm); err != nil {
		return nil, err
	}
	o := &pebble.Options{
		Levels: []pebble.LevelOptions{
			{Compression: pebble.SnappyCompression},
		},
	}
	pdb, err := pebble.Open(opts.Path, o)
	if err != nil {
		return nil, fmt.Errorf("open pebble db at %s: %w", opts.Path, err)
	}
	return &PebbleDB{db: pdb}, nil
}

// Get implements the db.Database.Get interface method.
func (d *PebbleDB) Get(k []byte) ([]byte, error) {
	return get(d.db, k)
}

// WriteTx returns a db.WriteTx.
func (d *PebbleDB) WriteTx() db.WriteTx {
	return &WriteTx{batch: d.db.NewIndexedBatch()}
}

// Close closes the PebbleDB. Closing twice is a no-op.
func (d *PebbleDB) Close() error {
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

// Iterate implements the db.Database.Iterate interface method.
func (d *PebbleDB) Iterate(prefix []byte, callback func(k, v []byte) bool) error {
	return iterate(d.db, prefix, callback)
}

// Compact implements the db.Database.Compact interface method.
func (d *PebbleDB) Compact() error {
	iter, err := d.db.NewIter(nil)
	if err != nil {
		return err
	}
	var first, last []byte
	if iter.First() {
		first = append(first, iter.Key()...)
	}
	if iter.Last() {
		last = append(last, iter.Key()...)
	}
	if err := iter.Close(); err != nil {
		return err
	}
	if first == nil {
		return nil
	}
	return d.db.Compact(first, append(last, 0), true)
}

func keyUpperBound(b []byte) []byte {
	end := make([]byte, len(b))
	copy(end, b)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
