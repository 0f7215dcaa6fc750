// Package storage provides the in-memory implementation of the
// persistence collaborator boundary, used for scaffolding, tests, and
// the CLI import path.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sparkpress/sparkpress/pkg/interfaces"
)

// NotFoundError reports a missing record.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("storage: %s %q not found", e.Resource, e.Key)
}

// Memory is an in-memory Storage implementation.
type Memory struct {
	mu          sync.RWMutex
	manifests   map[string][]byte
	content     map[string]map[string][]byte
	layouts     map[string]map[string][]byte
	themes      map[string]map[string][]byte
	images      map[string]map[string][]byte
	derivatives map[string]map[string][]byte
}

var _ interfaces.Storage = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		manifests:   map[string][]byte{},
		content:     map[string]map[string][]byte{},
		layouts:     map[string]map[string][]byte{},
		themes:      map[string]map[string][]byte{},
		images:      map[string]map[string][]byte{},
		derivatives: map[string]map[string][]byte{},
	}
}

func (m *Memory) GetManifest(_ context.Context, siteID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.manifests[siteID]
	if !ok {
		return nil, &NotFoundError{Resource: "manifest", Key: siteID}
	}
	return cloneBytes(data), nil
}

func (m *Memory) PutManifest(_ context.Context, siteID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manifests[siteID] = cloneBytes(data)
	return nil
}

func (m *Memory) GetContentFiles(_ context.Context, siteID string) (map[string][]byte, error) {
	return m.snapshot(m.content, siteID), nil
}

func (m *Memory) GetLayoutFiles(_ context.Context, siteID string) (map[string][]byte, error) {
	return m.snapshot(m.layouts, siteID), nil
}

func (m *Memory) GetThemeFiles(_ context.Context, siteID string) (map[string][]byte, error) {
	return m.snapshot(m.themes, siteID), nil
}

func (m *Memory) GetImageBlob(_ context.Context, siteID, path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.images[siteID][path]
	if !ok {
		return nil, &NotFoundError{Resource: "image", Key: path}
	}
	return cloneBytes(data), nil
}

func (m *Memory) PutImageBlob(_ context.Context, siteID, path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket := m.images[siteID]
	if bucket == nil {
		bucket = map[string][]byte{}
		m.images[siteID] = bucket
	}
	bucket[path] = cloneBytes(data)
	return nil
}

func (m *Memory) GetDerivative(_ context.Context, siteID, cacheKey string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.derivatives[siteID][cacheKey]
	if !ok {
		return nil, &NotFoundError{Resource: "derivative", Key: cacheKey}
	}
	return cloneBytes(data), nil
}

func (m *Memory) PutDerivative(_ context.Context, siteID, cacheKey string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket := m.derivatives[siteID]
	if bucket == nil {
		bucket = map[string][]byte{}
		m.derivatives[siteID] = bucket
	}
	bucket[cacheKey] = cloneBytes(data)
	return nil
}

func (m *Memory) ListDerivatives(_ context.Context, siteID string) ([]interfaces.BlobRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bucket := m.derivatives[siteID]
	keys := make([]string, 0, len(bucket))
	for key := range bucket {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	records := make([]interfaces.BlobRecord, 0, len(keys))
	for _, key := range keys {
		records = append(records, interfaces.BlobRecord{Path: key, Data: cloneBytes(bucket[key])})
	}
	return records, nil
}

// PutContentFile seeds a content record. Intended for tests and import.
func (m *Memory) PutContentFile(siteID, path string, data []byte) {
	m.put(m.content, siteID, path, data)
}

// PutLayoutFile seeds a layout record.
func (m *Memory) PutLayoutFile(siteID, path string, data []byte) {
	m.put(m.layouts, siteID, path, data)
}

// PutThemeFile seeds a theme record.
func (m *Memory) PutThemeFile(siteID, path string, data []byte) {
	m.put(m.themes, siteID, path, data)
}

func (m *Memory) put(store map[string]map[string][]byte, siteID, path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket := store[siteID]
	if bucket == nil {
		bucket = map[string][]byte{}
		store[siteID] = bucket
	}
	bucket[strings.TrimSpace(path)] = cloneBytes(data)
}

func (m *Memory) snapshot(store map[string]map[string][]byte, siteID string) map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bucket := store[siteID]
	out := make(map[string][]byte, len(bucket))
	for key, value := range bucket {
		out[key] = cloneBytes(value)
	}
	return out
}

func cloneBytes(data []byte) []byte {
	if data == nil {
		return nil
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	return copied
}
