// Package leveldb implements the storage contract on an embedded leveldb
// database.
package leveldb

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// LevelDB represents the storage implementation for reading and writing
// values on disk with leveldb. This implements the storage.Storage
// interface.
type LevelDB struct {
	db *leveldb.DB
}

// New opens or creates the database under the specified directory.
func New(dbPath string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(dbPath, &opt.Options{
		ErrorIfMissing: false,
	})
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", dbPath, err)
	}

	return &LevelDB{db: db}, nil
}

// Close releases the database files.
func (l *LevelDB) Close() error {
	return l.db.Close()
}

// Get returns the value stored for the key.
func (l *LevelDB) Get(key []byte) ([]byte, bool, error) {
	v, err := l.db.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return v, true, nil
}

// Put stores the value for the key with a synced write.
func (l *LevelDB) Put(key []byte, value []byte) error {
	return l.db.Put(key, value, &opt.WriteOptions{Sync: true})
}

// Delete removes the key. Leveldb reports no error for a missing key.
func (l *LevelDB) Delete(key []byte) error {
	return l.db.Delete(key, &opt.WriteOptions{Sync: true})
}
