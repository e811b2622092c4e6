package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// FileStore keeps a collection as one JSON array in a flat file. The whole
// array is rewritten on every mutation, through a temp file and a rename.
// Mutations are serialized by mu, so concurrent requests in this process
// cannot lose each other's writes; separate processes sharing the file can.
type FileStore struct {
	mu   sync.Mutex
	fs   afero.Fs
	path string
	name string
}

func NewFileStore(fs afero.Fs, name, path string) (*FileStore, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create %s directory: %w", name, err)
	}
	return &FileStore{fs: fs, path: path, name: name}, nil
}

func (s *FileStore) Name() string { return s.name }

func (s *FileStore) List(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FileStore) Create(ctx context.Context, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return nil, err
	}
	created := newRecord(rec)
	records = append([]Record{created}, records...)
	if err := s.write(records); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *FileStore) Get(ctx context.Context, id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.ID() == id {
			return r, nil
		}
	}
	return nil, notFound(s.name, id)
}

func (s *FileStore) Update(ctx context.Context, id string, patch Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return nil, err
	}
	for i, r := range records {
		if r.ID() != id {
			continue
		}
		records[i] = merge(r, patch)
		if err := s.write(records); err != nil {
			return nil, err
		}
		return records[i], nil
	}
	return nil, notFound(s.name, id)
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return err
	}
	kept := records[:0]
	for _, r := range records {
		if r.ID() != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(records) {
		return nil
	}
	return s.write(kept)
}

func (s *FileStore) read() ([]Record, error) {
	b, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.name, err)
	}
	if len(b) == 0 {
		return []Record{}, nil
	}
	var records []Record
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.name, err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

func (s *FileStore) write(records []Record) error {
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.name, err)
	}
	tmp, err := afero.TempFile(s.fs, filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", s.name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return fmt.Errorf("write %s: %w", s.name, err)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("write %s: %w", s.name, err)
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", s.name, err)
	}
	return nil
}
