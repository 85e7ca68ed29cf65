// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package mediacache

import "sync"

// Index is a durable media id -> cached path mapping.
// *devicestore.Store implements it.
type Index interface {
	Put(mediaID, path string) error
	Get(mediaID string) (string, bool, error)
	Delete(mediaID string) error
	All() (map[string]string, error)
	Clear() error
}

// MemoryIndex is an in-process Index.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryIndex creates an empty MemoryIndex.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[string]string)}
}

func (m *MemoryIndex) Put(mediaID, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[mediaID] = path
	return nil
}

func (m *MemoryIndex) Get(mediaID string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.entries[mediaID]
	return p, ok, nil
}

func (m *MemoryIndex) Delete(mediaID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, mediaID)
	return nil
}

func (m *MemoryIndex) All() (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryIndex) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]string)
	return nil
}
