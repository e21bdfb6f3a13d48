package storage

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/janelia-flyem/octview/octview"
)

// BadgerStore is a local tile store on a Badger key-value database.  Tile
// payloads are serialized with compression and checksum before storage.
type BadgerStore struct {
	directory string
	bdp       *badger.DB

	compression octview.Compression
	checksum    octview.Checksum

	stopSyncCh chan bool
}

// NewBadgerStore opens a tile store at path, creating one if it doesn't
// exist.
func NewBadgerStore(path string) (*BadgerStore, error) {
	if path == "" {
		return nil, fmt.Errorf("badger store requires a path")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		octview.Infof("Database not already at path (%s). Creating directory...\n", path)
		if err := os.MkdirAll(path, 0744); err != nil {
			return nil, fmt.Errorf("can't make directory at %s: %v", path, err)
		}
	}

	opts := badger.DefaultOptions(path)
	opts.NumVersionsToKeep = 1
	opts.SyncWrites = false
	opts.ValueThreshold = 100
	opts.Logger = nil

	octview.Infof("Opening badger @ path %s\n", path)
	bdp, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	store := &BadgerStore{
		directory:   path,
		bdp:         bdp,
		compression: octview.DefaultCompression,
		checksum:    octview.DefaultChecksum,
		stopSyncCh:  make(chan bool),
	}
	go store.syncPeriodically()
	return store, nil
}

func (s *BadgerStore) String() string {
	return fmt.Sprintf("badger tile store @ %s", s.directory)
}

// Periodically sync to prevent too many writes from being buffered if the
// process crashes.
func (s *BadgerStore) syncPeriodically() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopSyncCh:
			octview.Infof("Stopping sync goroutine for badger @ %s\n", s.directory)
			return
		case <-ticker.C:
			s.bdp.Sync()
		}
	}
}

// PutTile serializes and stores a tile payload.
func (s *BadgerStore) PutTile(k TileKey, payload []byte) error {
	serialized, err := octview.SerializeData(payload, s.compression, s.checksum)
	if err != nil {
		return err
	}
	return s.bdp.Update(func(txn *badger.Txn) error {
		return txn.Set(k.Bytes(), serialized)
	})
}

// GetTile implements TileSource, returning the deserialized payload.
func (s *BadgerStore) GetTile(ctx context.Context, k TileKey) ([]byte, error) {
	var serialized []byte
	err := s.bdp.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k.Bytes())
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return ErrTileNotFound
			}
			return err
		}
		serialized, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return octview.DeserializeData(serialized)
}

// GetTileSerialized returns a tile payload still in its serialized form,
// for handing to clients that deserialize on their end.
func (s *BadgerStore) GetTileSerialized(k TileKey) ([]byte, error) {
	var serialized []byte
	err := s.bdp.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k.Bytes())
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return ErrTileNotFound
			}
			return err
		}
		serialized, err = item.ValueCopy(nil)
		return err
	})
	return serialized, err
}

// PutMetadata stores the dataset metadata document.
func (s *BadgerStore) PutMetadata(meta []byte) error {
	return s.bdp.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte{keyMetadata}, meta)
	})
}

// GetMetadata returns the stored dataset metadata document, or
// ErrTileNotFound if none has been stored.
func (s *BadgerStore) GetMetadata() ([]byte, error) {
	var meta []byte
	err := s.bdp.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte{keyMetadata})
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return ErrTileNotFound
			}
			return err
		}
		meta, err = item.ValueCopy(nil)
		return err
	})
	return meta, err
}

// NumTiles counts stored tiles by iterating tile-class keys.
func (s *BadgerStore) NumTiles() (n int, err error) {
	err = s.bdp.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte{keyTile}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return
}

// Close stops background syncing and closes the database.
func (s *BadgerStore) Close() {
	close(s.stopSyncCh)
	if err := s.bdp.Close(); err != nil {
		octview.Errorf("error closing badger @ %s: %v\n", s.directory, err)
	}
}
