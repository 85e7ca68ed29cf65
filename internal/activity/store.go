// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package activity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/marquee/internal/models"
)

// DefaultLimit is the number of entries returned by Recent when the caller
// passes a non-positive limit.
const DefaultLimit = 50

// Store persists activity records.
type Store interface {
	// Save appends an activity. Missing ID and Time are filled in.
	Save(ctx context.Context, a *models.Activity) error

	// Recent returns up to limit activities, newest first.
	Recent(ctx context.Context, limit int) ([]models.Activity, error)
}

// prepare fills in generated fields before an activity is stored.
func prepare(a *models.Activity) error {
	if a == nil {
		return fmt.Errorf("activity cannot be nil")
	}
	if a.Type == "" {
		return fmt.Errorf("activity type is required")
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Time.IsZero() {
		a.Time = time.Now().UTC()
	}
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []models.Activity
	maxLen  int
}

// NewMemoryStore creates a new in-memory activity store holding at most
// maxLen entries. Oldest entries are discarded first.
func NewMemoryStore(maxLen int) *MemoryStore {
	if maxLen <= 0 {
		maxLen = 1000
	}
	return &MemoryStore{
		entries: make([]models.Activity, 0, min(maxLen, 256)),
		maxLen:  maxLen,
	}
}

// Save stores an activity.
func (s *MemoryStore) Save(_ context.Context, a *models.Activity) error {
	if err := prepare(a); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= s.maxLen {
		// Drop the oldest 10% to avoid trimming on every save.
		trim := max(s.maxLen/10, 1)
		s.entries = append(s.entries[:0], s.entries[trim:]...)
	}
	s.entries = append(s.entries, *a)
	return nil
}

// Recent returns up to limit activities, newest first.
func (s *MemoryStore) Recent(_ context.Context, limit int) ([]models.Activity, error) {
	limit = normalizeLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Activity, 0, min(limit, len(s.entries)))
	for i := len(s.entries) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, s.entries[i])
	}
	return result, nil
}

// Len returns the number of stored activities.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
