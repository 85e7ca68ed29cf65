// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
)

// JTI-related errors
var (
	// ErrJTIAlreadyUsed indicates a replayed registration token.
	ErrJTIAlreadyUsed = errors.New("JTI already used (replay prevented)")

	// ErrJTIStoreClosed indicates the store has been closed.
	ErrJTIStoreClosed = errors.New("JTI store is closed")
)

// JTIEntry represents a redeemed token id.
type JTIEntry struct {
	JTI string `json:"jti"`

	// DeviceID is the device that redeemed the token.
	DeviceID string `json:"device_id,omitempty"`

	FirstSeen time.Time `json:"first_seen"`
	ExpiresAt time.Time `json:"expires_at"`
}

// JTITracker records redeemed token ids until they expire.
type JTITracker interface {
	// CheckAndStore atomically checks if a JTI has been seen and stores it if
	// not. Returns ErrJTIAlreadyUsed on replay. The entry expires after ttl.
	CheckAndStore(ctx context.Context, entry *JTIEntry, ttl time.Duration) error

	// IsUsed checks if a JTI has been used without storing it.
	IsUsed(ctx context.Context, jti string) (bool, error)

	// Close releases resources.
	Close() error
}

// MemoryJTITracker is an in-memory JTI tracker.
type MemoryJTITracker struct {
	mu      sync.Mutex
	entries map[string]*JTIEntry
	closed  bool
	now     func() time.Time
}

// NewMemoryJTITracker creates a new in-memory JTI tracker.
func NewMemoryJTITracker() *MemoryJTITracker {
	return &MemoryJTITracker{
		entries: make(map[string]*JTIEntry),
		now:     time.Now,
	}
}

// CheckAndStore atomically checks and stores a JTI.
func (t *MemoryJTITracker) CheckAndStore(_ context.Context, entry *JTIEntry, ttl time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrJTIStoreClosed
	}

	now := t.now()
	if existing, ok := t.entries[entry.JTI]; ok && now.Before(existing.ExpiresAt) {
		logReplay(entry, existing)
		return ErrJTIAlreadyUsed
	}

	// Expired entries are pruned on write; registration volume is low.
	for jti, e := range t.entries {
		if !now.Before(e.ExpiresAt) {
			delete(t.entries, jti)
		}
	}

	entry.FirstSeen = now
	entry.ExpiresAt = now.Add(ttl)
	t.entries[entry.JTI] = entry
	return nil
}

// IsUsed checks if a JTI has been used.
func (t *MemoryJTITracker) IsUsed(_ context.Context, jti string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return false, ErrJTIStoreClosed
	}
	entry, ok := t.entries[jti]
	if !ok {
		return false, nil
	}
	return t.now().Before(entry.ExpiresAt), nil
}

// Close closes the tracker.
func (t *MemoryJTITracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.entries = nil
	return nil
}

// BadgerJTITracker is a BadgerDB-backed JTI tracker that survives restarts.
type BadgerJTITracker struct {
	db     *badger.DB
	prefix []byte
	owned  bool
	closed bool
	mu     sync.RWMutex
}

// NewBadgerJTITracker creates a tracker on a shared BadgerDB instance.
// The default prefix is "jti:".
func NewBadgerJTITracker(db *badger.DB, prefix string) *BadgerJTITracker {
	if prefix == "" {
		prefix = "jti:"
	}
	return &BadgerJTITracker{
		db:     db,
		prefix: []byte(prefix),
	}
}

// OpenBadgerJTITracker opens a dedicated BadgerDB at path. The database is
// closed with the tracker.
func OpenBadgerJTITracker(path string) (*BadgerJTITracker, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	t := NewBadgerJTITracker(db, "")
	t.owned = true
	return t, nil
}

// makeKey creates a BadgerDB key for a JTI.
func (t *BadgerJTITracker) makeKey(jti string) []byte {
	key := make([]byte, 0, len(t.prefix)+len(jti))
	key = append(key, t.prefix...)
	return append(key, jti...)
}

// CheckAndStore atomically checks and stores a JTI.
func (t *BadgerJTITracker) CheckAndStore(_ context.Context, entry *JTIEntry, ttl time.Duration) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return ErrJTIStoreClosed
	}

	key := t.makeKey(entry.JTI)

	return t.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == nil {
			var existing JTIEntry
			if valErr := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &existing)
			}); valErr == nil && time.Now().Before(existing.ExpiresAt) {
				logReplay(entry, &existing)
				return ErrJTIAlreadyUsed
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		entry.FirstSeen = time.Now()
		entry.ExpiresAt = entry.FirstSeen.Add(ttl)

		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return txn.SetEntry(badger.NewEntry(key, data).WithTTL(ttl))
	})
}

// IsUsed checks if a JTI has been used.
func (t *BadgerJTITracker) IsUsed(_ context.Context, jti string) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return false, ErrJTIStoreClosed
	}

	var used bool
	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(t.makeKey(jti))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		var entry JTIEntry
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &entry); err != nil {
				return err
			}
			used = time.Now().Before(entry.ExpiresAt)
			return nil
		})
	})
	return used, err
}

// Close closes the tracker, and the database when the tracker opened it.
func (t *BadgerJTITracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.owned {
		return t.db.Close()
	}
	return nil
}

func logReplay(entry, existing *JTIEntry) {
	metrics.RegistrationTokens.WithLabelValues("replayed").Inc()
	logging.Warn().
		Str("jti", entry.JTI).
		Str("device_id", entry.DeviceID).
		Str("first_device_id", existing.DeviceID).
		Time("first_seen", existing.FirstSeen).
		Msg("Registration token replay rejected")
}
