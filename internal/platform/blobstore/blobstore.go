// Package blobstore stores uploaded report documents. It defines the Store
// interface, a local-disk implementation, and an in-memory implementation
// for testing and development.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBlobNotFound       = errors.New("blob not found")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("content type is not allowed")
	ErrMissingFileName    = errors.New("file name is required")
)

// MaxFileSize is the maximum allowed document size in bytes (50 MB).
const MaxFileSize = 50 * 1024 * 1024

// AllowedContentTypes lists the report document formats accepted for upload.
var AllowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"image/tiff":      true,
	"text/plain":      true,
}

// FileInfo describes a stored document.
type FileInfo struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Hash        string    `json:"hash"`
	StoredAt    time.Time `json:"stored_at"`
}

// Store is the contract for document storage backends.
type Store interface {
	Put(ctx context.Context, info FileInfo, content io.Reader) (*FileInfo, error)
	Open(ctx context.Context, id string) (io.ReadCloser, *FileInfo, error)
	Stat(ctx context.Context, id string) (*FileInfo, error)
	Delete(ctx context.Context, id string) error
}

// validateAndRead enforces the upload limits shared by both backends and
// returns the content with its SHA-256 hash.
func validateAndRead(info FileInfo, content io.Reader) (FileInfo, []byte, error) {
	if info.FileName == "" {
		return info, nil, ErrMissingFileName
	}
	if info.ContentType != "" && !AllowedContentTypes[info.ContentType] {
		return info, nil, ErrInvalidContentType
	}

	data, err := io.ReadAll(io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		return info, nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		return info, nil, ErrFileTooLarge
	}

	h := sha256.Sum256(data)
	if info.ID == "" {
		info.ID = uuid.New().String()
	}
	info.Size = int64(len(data))
	info.Hash = fmt.Sprintf("%x", h)
	info.StoredAt = time.Now().UTC()
	return info, data, nil
}

// DiskStore stores documents as files under a base directory, with a JSON
// sidecar per document holding its metadata.
type DiskStore struct {
	dir string
}

// NewDiskStore creates the base directory if needed and returns a DiskStore.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

func (s *DiskStore) blobPath(id string) string {
	return filepath.Join(s.dir, id)
}

func (s *DiskStore) metaPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *DiskStore) Put(_ context.Context, info FileInfo, content io.Reader) (*FileInfo, error) {
	info, data, err := validateAndRead(info, content)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(s.blobPath(info.ID), data, 0o640); err != nil {
		return nil, fmt.Errorf("writing blob: %w", err)
	}
	metaJSON, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}
	if err := os.WriteFile(s.metaPath(info.ID), metaJSON, 0o640); err != nil {
		return nil, fmt.Errorf("writing metadata: %w", err)
	}

	out := info
	return &out, nil
}

func (s *DiskStore) Open(ctx context.Context, id string) (io.ReadCloser, *FileInfo, error) {
	info, err := s.Stat(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(s.blobPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrBlobNotFound
		}
		return nil, nil, fmt.Errorf("opening blob: %w", err)
	}
	return f, info, nil
}

func (s *DiskStore) Stat(_ context.Context, id string) (*FileInfo, error) {
	metaJSON, err := os.ReadFile(s.metaPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("reading metadata: %w", err)
	}
	var info FileInfo
	if err := json.Unmarshal(metaJSON, &info); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	return &info, nil
}

func (s *DiskStore) Delete(_ context.Context, id string) error {
	if err := os.Remove(s.blobPath(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrBlobNotFound
		}
		return fmt.Errorf("removing blob: %w", err)
	}
	_ = os.Remove(s.metaPath(id))
	return nil
}

type storedBlob struct {
	info    FileInfo
	content []byte
}

// MemoryStore is a thread-safe in-memory Store for testing and development.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]*storedBlob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]*storedBlob)}
}

func (s *MemoryStore) Put(_ context.Context, info FileInfo, content io.Reader) (*FileInfo, error) {
	info, data, err := validateAndRead(info, content)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.blobs[info.ID] = &storedBlob{info: info, content: data}
	s.mu.Unlock()

	out := info
	return &out, nil
}

func (s *MemoryStore) Open(_ context.Context, id string) (io.ReadCloser, *FileInfo, error) {
	s.mu.RLock()
	blob, ok := s.blobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, ErrBlobNotFound
	}
	info := blob.info
	return io.NopCloser(bytes.NewReader(blob.content)), &info, nil
}

func (s *MemoryStore) Stat(_ context.Context, id string) (*FileInfo, error) {
	s.mu.RLock()
	blob, ok := s.blobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrBlobNotFound
	}
	info := blob.info
	return &info, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[id]; !ok {
		return ErrBlobNotFound
	}
	delete(s.blobs, id)
	return nil
}
