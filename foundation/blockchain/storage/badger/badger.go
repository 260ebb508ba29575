// Package badger implements the storage contract on an embedded badger
// database.
package badger

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger"
)

// Badger represents the storage implementation for reading and writing
// values on disk with badger. This implements the storage.Storage
// interface.
type Badger struct {
	db *badger.DB
}

// New opens or creates the database under the specified directory.
func New(dbPath string) (*Badger, error) {
	opts := badger.DefaultOptions(dbPath)
	opts = opts.WithLogger(nil)
	opts = opts.WithSyncWrites(true)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger %s: %w", dbPath, err)
	}

	return &Badger{db: db}, nil
}

// Close releases the database files.
func (b *Badger) Close() error {
	return b.db.Close()
}

// Get returns a copy of the value stored for the key.
func (b *Badger) Get(key []byte) ([]byte, bool, error) {
	var value []byte

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		value, err = item.ValueCopy(nil)
		return err
	})

	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}

	if value == nil {
		value = []byte{}
	}

	return value, true, nil
}

// Put stores the value for the key.
func (b *Badger) Put(key []byte, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Delete removes the key. Deleting a missing key is not an error.
func (b *Badger) Delete(key []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}
