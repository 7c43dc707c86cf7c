package remote

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"pocketledger/internal/shared"
)

// Memory is an in-process BlobStore used in tests and for local development
// without a configured bucket.
type Memory struct {
	mu    sync.Mutex
	files map[string]*memoryFile
	now   func() time.Time

	// FailNext, when set, makes the next operation return the given error
	// once. Tests use it to simulate outages.
	FailNext error
}

type memoryFile struct {
	entry   FileEntry
	content []byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		files: make(map[string]*memoryFile),
		now:   time.Now,
	}
}

// NewMemoryWithClock returns an in-memory store stamping entries with now().
func NewMemoryWithClock(now func() time.Time) *Memory {
	m := NewMemory()
	m.now = now
	return m
}

func (m *Memory) failNext() error {
	err := m.FailNext
	m.FailNext = nil
	return err
}

func (m *Memory) List(ctx context.Context) ([]FileEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNext(); err != nil {
		return nil, err
	}
	result := make([]FileEntry, 0, len(m.files))
	for _, f := range m.files {
		result = append(result, f.entry)
	}
	return result, nil
}

func (m *Memory) Upload(ctx context.Context, in UploadInput) (FileEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNext(); err != nil {
		return FileEntry{}, err
	}
	now := m.now().UTC()
	entry := FileEntry{
		ID:         uuid.NewString(),
		Name:       in.Name,
		Size:       int64(len(in.Content)),
		CreatedAt:  now,
		ModifiedAt: now,
		Properties: in.Properties,
	}
	m.files[entry.ID] = &memoryFile{entry: entry, content: append([]byte(nil), in.Content...)}
	return entry, nil
}

func (m *Memory) Download(ctx context.Context, id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNext(); err != nil {
		return nil, err
	}
	f, ok := m.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: file %s", shared.ErrorNotFound, id)
	}
	return append([]byte(nil), f.content...), nil
}

func (m *Memory) Update(ctx context.Context, id string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNext(); err != nil {
		return err
	}
	f, ok := m.files[id]
	if !ok {
		return fmt.Errorf("%w: file %s", shared.ErrorNotFound, id)
	}
	f.content = append([]byte(nil), content...)
	f.entry.Size = int64(len(content))
	f.entry.ModifiedAt = m.now().UTC()
	return nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNext(); err != nil {
		return err
	}
	if _, ok := m.files[id]; !ok {
		return fmt.Errorf("%w: file %s", shared.ErrorNotFound, id)
	}
	delete(m.files, id)
	return nil
}
