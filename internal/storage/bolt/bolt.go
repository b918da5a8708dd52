// Package bolt persists history snapshots in a bbolt key/value file.
package bolt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"quickclip/internal/storage"
)

const historyBucket = "history"

// BoltStorage implements storage.Persister on top of bbolt.
type BoltStorage struct {
	db  *bbolt.DB
	key []byte
}

// New opens (or creates) the bolt database at config.DBPath.
func New(config storage.Config) (*BoltStorage, error) {
	if err := os.MkdirAll(filepath.Dir(config.DBPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bbolt.Open(config.DBPath, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(historyBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltStorage{db: db, key: []byte(config.SnapshotName())}, nil
}

// Load implements storage.Persister.
func (s *BoltStorage) Load(_ context.Context) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(historyBucket)).Get(s.key)
		if v == nil {
			return nil
		}
		if len(v) > storage.MaxSnapshotSize {
			return storage.ErrSnapshotTooLarge
		}
		// v is only valid for the life of the transaction.
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return data, nil
}

// Save implements storage.Persister.
func (s *BoltStorage) Save(_ context.Context, data []byte) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(historyBucket)).Put(s.key, data)
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Close implements storage.Persister.
func (s *BoltStorage) Close() error {
	return s.db.Close()
}
