// Package inmemory implements an ephemeral db.Database with optimistic
// transactions, used by tests and by provers that do not persist keys.
package inmemory

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/vocdoni/crisp-ballot/db"
)

// entry keeps a tombstone for deleted keys so that their version survives.
type entry struct {
	value   []byte
	version uint64
	deleted bool
}

// InMemoryDB implements an ephemeral in-memory db.Database.
type InMemoryDB struct {
	mu      sync.RWMutex
	data    map[string]entry
	version uint64
}

var _ db.Database = (*InMemoryDB)(nil)

// New returns a new in-memory database. Options are ignored.
func New(_ db.Options) (*InMemoryDB, error) {
	return &InMemoryDB{data: make(map[string]entry)}, nil
}

func (d *InMemoryDB) Close() error   { return nil }
func (d *InMemoryDB) Compact() error { return nil }

func (d *InMemoryDB) WriteTx() db.WriteTx {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return &WriteTx{
		db:      d,
		writes:  make(map[string]*[]byte),
		reads:   make(map[string]uint64),
		baseVer: d.version,
	}
}

func (d *InMemoryDB) Get(key []byte) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ent, ok := d.data[string(key)]
	if !ok || ent.deleted {
		return nil, db.ErrKeyNotFound
	}
	return bytes.Clone(ent.value), nil
}

func (d *InMemoryDB) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	d.mu.RLock()
	entries, _ := d.snapshot(prefix)
	d.mu.RUnlock()
	return iterateEntries(entries, prefix, callback)
}

// snapshot copies the entries under prefix and their versions. The caller
// holds the read lock.
func (d *InMemoryDB) snapshot(prefix []byte) (map[string][]byte, map[string]uint64) {
	entries := make(map[string][]byte)
	versions := make(map[string]uint64)
	for k, ent := range d.data {
		if ent.deleted || !strings.HasPrefix(k, string(prefix)) {
			continue
		}
		entries[k] = bytes.Clone(ent.value)
		versions[k] = ent.version
	}
	return entries, versions
}

// WriteTx buffers writes and records the version of every key it touches.
// Commit fails with db.ErrConflict if any of them changed in between.
type WriteTx struct {
	db      *InMemoryDB
	writes  map[string]*[]byte
	reads   map[string]uint64
	baseVer uint64
	closed  bool
}

var _ db.WriteTx = (*WriteTx)(nil)

func (tx *WriteTx) track(key string) {
	if _, ok := tx.reads[key]; ok {
		return
	}
	tx.db.mu.RLock()
	tx.reads[key] = tx.db.data[key].version
	tx.db.mu.RUnlock()
}

func (tx *WriteTx) Get(key []byte) ([]byte, error) {
	k := string(key)
	if pending, ok := tx.writes[k]; ok {
		if pending == nil {
			return nil, db.ErrKeyNotFound
		}
		return bytes.Clone(*pending), nil
	}
	tx.track(k)
	return tx.db.Get(key)
}

func (tx *WriteTx) Iterate(prefix []byte, callback func(k, v []byte) bool) error {
	tx.db.mu.RLock()
	entries, versions := tx.db.snapshot(prefix)
	tx.db.mu.RUnlock()

	for k, v := range tx.writes {
		if !strings.HasPrefix(k, string(prefix)) {
			continue
		}
		if v == nil {
			delete(entries, k)
			continue
		}
		entries[k] = bytes.Clone(*v)
	}
	for k, ver := range versions {
		if _, ok := tx.reads[k]; !ok {
			tx.reads[k] = ver
		}
	}
	return iterateEntries(entries, prefix, callback)
}

func (tx *WriteTx) Set(key, value []byte) error {
	k := string(key)
	tx.track(k)
	v := bytes.Clone(value)
	tx.writes[k] = &v
	return nil
}

func (tx *WriteTx) Delete(key []byte) error {
	k := string(key)
	tx.track(k)
	tx.writes[k] = nil
	return nil
}

func (tx *WriteTx) Commit() error {
	if tx.closed {
		return fmt.Errorf("inmemory: %w", db.ErrTxClosed)
	}
	tx.closed = true

	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	for key, readVer := range tx.reads {
		if readVer > tx.baseVer || tx.db.data[key].version != readVer {
			return db.ErrConflict
		}
	}
	for key, value := range tx.writes {
		tx.db.version++
		ent := entry{version: tx.db.version, deleted: value == nil}
		if value != nil {
			ent.value = bytes.Clone(*value)
		}
		tx.db.data[key] = ent
	}
	return nil
}

func (tx *WriteTx) Discard() {
	tx.writes = map[string]*[]byte{}
	tx.reads = map[string]uint64{}
	tx.closed = true
}

func iterateEntries(entries map[string][]byte, prefix []byte, callback func(key, value []byte) bool) error {
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if !callback([]byte(key)[len(prefix):], entries[key]) {
			break
		}
	}
	return nil
}
