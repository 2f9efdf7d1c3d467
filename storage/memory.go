package storage

import (
	"context"
	"sync"
)

// Blob is an object held by MemoryStore.
type Blob struct {
	ContentType string
	Data        []byte
}

// MemoryStore keeps uploads in process memory. URLs it hands out are only
// valid while the process lives.
type MemoryStore struct {
	mu      sync.RWMutex
	blobs   map[string]Blob
	baseURL string
}

// NewMemoryStore returns URLs rooted at baseURL + "/blobs".
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{blobs: make(map[string]Blob), baseURL: baseURL}
}

func (m *MemoryStore) Put(ctx context.Context, bucket Bucket, key, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cp := make([]byte, len(data))
	copy(cp, data)

	m.mu.Lock()
	m.blobs[string(bucket)+"/"+key] = Blob{ContentType: contentType, Data: cp}
	m.mu.Unlock()

	return m.baseURL + "/blobs/" + string(bucket) + "/" + key, nil
}

func (m *MemoryStore) Get(bucket Bucket, key string) (Blob, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[string(bucket)+"/"+key]
	return b, ok
}
