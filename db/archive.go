package db

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"sync"

	"runeRelicServer/game"

	"github.com/dgraph-io/badger/v3"
)

// ErrNotFound is returned by the archive for unknown matches
var ErrNotFound = errors.New("match not found")

const archivePrefix = "transcript:"

// LocalArchive is the global Badger archive, used when Postgres is down
var LocalArchive *Archive

// Archive stores encoded transcripts in an embedded Badger database keyed by
// match id.
type Archive struct {
	mu    sync.RWMutex
	db    *badger.DB
	path  string
	ready bool
}

// OpenArchive opens (or creates) the archive directory
func OpenArchive(dir string) (*Archive, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger archive: %w", err)
	}
	return &Archive{db: bdb, path: dir, ready: true}, nil
}

// InitArchive opens the global archive
func InitArchive(dir string) error {
	log.Printf("🔌 Opening local archive at %s...", dir)
	a, err := OpenArchive(dir)
	if err != nil {
		return err
	}
	LocalArchive = a
	log.Println("✅ Local archive ready")
	return nil
}

// CloseArchive closes the global archive
func CloseArchive() error {
	if LocalArchive == nil {
		return nil
	}
	log.Println("🔌 Closing local archive...")
	err := LocalArchive.Close()
	LocalArchive = nil
	return err
}

func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.ready {
		return nil
	}
	a.ready = false
	return a.db.Close()
}

func archiveKey(id game.MatchID) []byte {
	return []byte(archivePrefix + id.String())
}

func (a *Archive) Put(id game.MatchID, data []byte) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.ready {
		return fmt.Errorf("archive closed")
	}
	err := a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(archiveKey(id), data)
	})
	if err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	return nil
}

func (a *Archive) Get(id game.MatchID) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.ready {
		return nil, fmt.Errorf("archive closed")
	}

	var data []byte
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(archiveKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte{}, val...)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}
	return data, nil
}

// List returns archived match ids in key order, at most limit of them
// (0 means no limit).
func (a *Archive) List(limit int) ([]game.MatchID, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.ready {
		return nil, fmt.Errorf("archive closed")
	}

	var ids []game.MatchID
	prefix := []byte(archivePrefix)
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			id, err := game.ParseMatchID(string(bytes.TrimPrefix(key, prefix)))
			if err != nil {
				log.Printf("⚠️  Skipping malformed archive key %q", key)
				continue
			}
			ids = append(ids, id)
			if limit > 0 && len(ids) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list archive: %w", err)
	}
	return ids, nil
}
