package storage

import (
	"context"
	"net/url"
	"sync"
	"time"
)

// DefaultBaseURL is used for memory download links when none is configured
const DefaultBaseURL = "https://documents.local"

// StoredDocument is one document held by MemoryDocumentStorage
type StoredDocument struct {
	Data        []byte
	ContentType string
	StoredAt    time.Time
}

// MemoryDocumentStorage keeps documents in process memory.
// Download URLs point at BaseURL and are not actually signed.
type MemoryDocumentStorage struct {
	BaseURL string

	mu   sync.RWMutex
	docs map[string]StoredDocument
	now  func() time.Time
}

// NewMemoryDocumentStorage creates an empty store. An empty baseURL uses DefaultBaseURL.
func NewMemoryDocumentStorage(baseURL string) *MemoryDocumentStorage {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &MemoryDocumentStorage{
		BaseURL: baseURL,
		docs:    make(map[string]StoredDocument),
		now:     time.Now,
	}
}

// Upload stores a copy of data
func (s *MemoryDocumentStorage) Upload(_ context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return ErrKeyRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[key] = StoredDocument{
		Data:        append([]byte(nil), data...),
		ContentType: contentType,
		StoredAt:    s.now(),
	}
	return nil
}

// GenerateDownloadURL returns BaseURL/download/key with an expiry parameter
func (s *MemoryDocumentStorage) GenerateDownloadURL(_ context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, ErrKeyRequired
	}
	if expiresIn <= 0 {
		expiresIn = 15 * time.Minute
	}
	expiresAt := s.now().Add(expiresIn)
	u := s.BaseURL + "/download/" + key + "?expires=" + url.QueryEscape(expiresAt.UTC().Format(time.RFC3339))
	return u, expiresAt, nil
}

// ObjectExists reports whether key was uploaded
func (s *MemoryDocumentStorage) ObjectExists(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrKeyRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[key]
	return ok, nil
}

// DeleteObject removes key. Deleting a missing key succeeds.
func (s *MemoryDocumentStorage) DeleteObject(_ context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, key)
	return nil
}

// Get returns the stored document
func (s *MemoryDocumentStorage) Get(key string) (StoredDocument, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[key]
	return doc, ok
}
