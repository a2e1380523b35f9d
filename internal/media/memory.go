package media

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryStorage keeps objects in process. It backs local runs without an
// object store and the tests.
type MemoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	baseURL string
	FailPut bool
}

func NewMemoryStorage(baseURL string) *MemoryStorage {
	return &MemoryStorage{
		objects: make(map[string][]byte),
		baseURL: baseURL,
	}
}

func (s *MemoryStorage) Put(_ context.Context, prefix string, upload Upload) (Object, error) {
	if s.FailPut {
		return Object{}, fmt.Errorf("memory storage: put disabled")
	}
	data, err := io.ReadAll(upload.Body)
	if err != nil {
		return Object{}, fmt.Errorf("read upload: %w", err)
	}

	key := ObjectKey(prefix, upload)
	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()

	return Object{Key: key, URL: s.baseURL + "/" + key}, nil
}

func (s *MemoryStorage) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
