package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"
)

// MemoryStore keeps objects in process memory. It backs the "memory" driver
// for local runs and the use-case tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]MemoryObject
	baseURL string

	// FailUploads makes every Upload fail; tests use it to drive compensation.
	FailUploads error
}

// MemoryObject is a stored blob.
type MemoryObject struct {
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

func NewMemoryStore(baseURL string) *MemoryStore {
	if baseURL == "" {
		baseURL = "memory://pubflow"
	}
	return &MemoryStore{objects: make(map[string]MemoryObject), baseURL: baseURL}
}

func (m *MemoryStore) Upload(ctx context.Context, key string, r io.Reader, size int64, opts UploadOptions) (string, error) {
	if m.FailUploads != nil {
		return "", m.FailUploads
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return "", fmt.Errorf("read object: %w", err)
	}
	if size >= 0 && n != size {
		return "", fmt.Errorf("object %s: read %d bytes, expected %d", key, n, size)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = MemoryObject{Data: buf.Bytes(), ContentType: opts.ContentType, Metadata: opts.Metadata}
	return objectURL(m.baseURL, key), nil
}

func (m *MemoryStore) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("object %s not found", key)
	}
	q := url.Values{"expires": {time.Now().Add(expiry).UTC().Format(time.RFC3339)}}
	return objectURL(m.baseURL, key) + "?" + q.Encode(), nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Object returns a stored blob.
func (m *MemoryStore) Object(key string) (MemoryObject, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// Len is the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
