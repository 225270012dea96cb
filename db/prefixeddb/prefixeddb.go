// Package prefixeddb namespaces a db.Database under a key prefix.
package prefixeddb

import (
	"github.com/vocdoni/crisp-ballot/db"
)

// PrefixedDatabase wraps a db.Database prefixing all keys with prefix.
type PrefixedDatabase struct {
	prefix []byte
	db     db.Database
}

var _ db.Database = (*PrefixedDatabase)(nil)

func prefixSlice(prefix, v []byte) []byte {
	joint := make([]byte, 0, len(prefix)+len(v))
	joint = append(joint, prefix...)
	joint = append(joint, v...)
	// fixed capacity so later appends never share memory
	return joint[:len(joint):len(joint)]
}

// NewPrefixedDatabase creates a new PrefixedDatabase. Wrapping a
// PrefixedDatabase appends the prefixes instead of adding a layer.
func NewPrefixedDatabase(database db.Database, prefix []byte) *PrefixedDatabase {
	if pdb, ok := database.(*PrefixedDatabase); ok {
		return &PrefixedDatabase{prefixSlice(pdb.prefix, prefix), pdb.db}
	}
	return &PrefixedDatabase{prefixSlice(nil, prefix), database}
}

// Close closes the wrapped db.Database.
func (d *PrefixedDatabase) Close() error {
	return d.db.Close()
}

// Compact compacts the wrapped db.Database.
func (d *PrefixedDatabase) Compact() error {
	return d.db.Compact()
}

// Get implements the db.Database.Get interface method.
func (d *PrefixedDatabase) Get(key []byte) ([]byte, error) {
	return d.db.Get(prefixSlice(d.prefix, key))
}

// WriteTx returns a prefixed db.WriteTx.
func (d *PrefixedDatabase) WriteTx() db.WriteTx {
	return &PrefixedWriteTx{prefix: d.prefix, tx: d.db.WriteTx()}
}

// Iterate implements the db.Database.Iterate interface method.
func (d *PrefixedDatabase) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return d.db.Iterate(prefixSlice(d.prefix, prefix), callback)
}

// PrefixedWriteTx wraps a db.WriteTx prefixing all keys with prefix.
type PrefixedWriteTx struct {
	prefix []byte
	tx     db.WriteTx
}

var _ db.WriteTx = (*PrefixedWriteTx)(nil)

func (t *PrefixedWriteTx) Get(key []byte) ([]byte, error) {
	return t.tx.Get(prefixSlice(t.prefix, key))
}

func (t *PrefixedWriteTx) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return t.tx.Iterate(prefixSlice(t.prefix, prefix), callback)
}

func (t *PrefixedWriteTx) Set(key, value []byte) error {
	return t.tx.Set(prefixSlice(t.prefix, key), value)
}

func (t *PrefixedWriteTx) Delete(key []byte) error {
	return t.tx.Delete(prefixSlice(t.prefix, key))
}

func (t *PrefixedWriteTx) Commit() error {
	return t.tx.Commit()
}

func (t *PrefixedWriteTx) Discard() {
	t.tx.Discard()
}
