package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cryptonewsbr/newsbot-deploy/internal/config"
	"github.com/cryptonewsbr/newsbot-deploy/internal/domain/deploy"
)

// Repository defines persistence operations for the deployment record.
type Repository interface {
	Load(ctx context.Context) (*deploy.Record, error)
	Save(ctx context.Context, record *deploy.Record) error
}

// FileRepository persists the last deployment record to a JSON file so an
// operator can inspect what the previous run did without rereading logs.
type FileRepository struct {
	// path is the filesystem location of the JSON record file.
	path string
	// mu protects concurrent access to the record file.
	mu sync.Mutex
}

// ErrNotFound is returned when no deployment has been recorded yet.
var ErrNotFound = errors.New("deployment record not found")

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the record from disk.
func (r *FileRepository) Load(_ context.Context) (*deploy.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read record file: %w", err)
	}

	var record deploy.Record
	if err = json.Unmarshal(contents, &record); err != nil {
		return nil, fmt.Errorf("decode record file: %w", err)
	}

	return &record, nil
}

// Save writes the record to disk using an indented JSON representation.
func (r *FileRepository) Save(_ context.Context, record *deploy.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write record file: %w", err)
	}

	return nil
}
