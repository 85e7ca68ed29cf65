// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package devicestore

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/models"
)

const (
	snapshotKey = "snapshot:playlists"
	identityKey = "identity:device"
	cachePrefix = "cache:"
)

// ErrClosed is returned by operations on a closed Store.
var ErrClosed = errors.New("device store is closed")

// Snapshot is the last authoritative assignment set fetched from the registry.
type Snapshot struct {
	Playlists []models.Playlist `json:"playlists"`
	FetchedAt time.Time         `json:"fetchedAt"`
}

// Identity is the persisted registration of this device.
type Identity struct {
	DeviceID     string    `json:"deviceId"`
	Name         string    `json:"name"`
	Location     string    `json:"location,omitempty"`
	APIURL       string    `json:"apiUrl"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// Store is the BadgerDB-backed local state store.
type Store struct {
	db     *badger.DB
	mu     sync.RWMutex
	closed bool
}

// Open opens or creates a store at dir.
func Open(dir string) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open device store: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a store that keeps nothing on disk.
func OpenInMemory() (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory device store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database. It is safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) update(fn func(txn *badger.Txn) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.Update(fn)
}

func (s *Store) view(fn func(txn *badger.Txn) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.View(fn)
}

func (s *Store) putJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// getJSON decodes key into v. It reports false when the key is absent or
// its value does not decode.
func (s *Store) getJSON(key string, v interface{}) (bool, error) {
	var raw []byte
	err := s.view(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("Ignoring corrupt device store entry")
		return false, nil
	}
	return true, nil
}

func (s *Store) delete(key string) error {
	return s.update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// SaveSnapshot overwrites the stored snapshot.
func (s *Store) SaveSnapshot(snap *Snapshot) error {
	return s.putJSON(snapshotKey, snap)
}

// LoadSnapshot returns the stored snapshot, or nil when none is stored or it
// is corrupt.
func (s *Store) LoadSnapshot() (*Snapshot, error) {
	var snap Snapshot
	ok, err := s.getJSON(snapshotKey, &snap)
	if err != nil || !ok {
		return nil, err
	}
	return &snap, nil
}

// ClearSnapshot removes the stored snapshot.
func (s *Store) ClearSnapshot() error {
	return s.delete(snapshotKey)
}

// SaveIdentity stores the device identity.
func (s *Store) SaveIdentity(id *Identity) error {
	return s.putJSON(identityKey, id)
}

// LoadIdentity returns the stored identity, or nil when the device has not
// registered.
func (s *Store) LoadIdentity() (*Identity, error) {
	var id Identity
	ok, err := s.getJSON(identityKey, &id)
	if err != nil || !ok || id.DeviceID == "" {
		return nil, err
	}
	return &id, nil
}

// ClearIdentity removes the stored identity.
func (s *Store) ClearIdentity() error {
	return s.delete(identityKey)
}

// Put records the cached file path for mediaID.
func (s *Store) Put(mediaID, path string) error {
	return s.update(func(txn *badger.Txn) error {
		return txn.Set([]byte(cachePrefix+mediaID), []byte(path))
	})
}

// Get returns the cached file path for mediaID.
func (s *Store) Get(mediaID string) (string, bool, error) {
	var path string
	err := s.view(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cachePrefix + mediaID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			path = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return path, true, nil
}

// Delete drops the index entry for mediaID.
func (s *Store) Delete(mediaID string) error {
	return s.delete(cachePrefix + mediaID)
}

// All returns every index entry keyed by media id.
func (s *Store) All() (map[string]string, error) {
	out := make(map[string]string)
	err := s.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(cachePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id := strings.TrimPrefix(string(item.Key()), cachePrefix)
			if err := item.Value(func(val []byte) error {
				out[id] = string(val)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// Clear removes every index entry.
func (s *Store) Clear() error {
	return s.update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(cachePrefix)
		it := txn.NewIterator(opts)
		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Reset removes the snapshot, identity and cache index.
func (s *Store) Reset() error {
	return errors.Join(s.ClearSnapshot(), s.ClearIdentity(), s.Clear())
}
