package storage

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Store defines the interface for video file storage backends.
// This allows swapping filesystem for S3 or other backends later.
type Store interface {
	Save(filename string, data io.Reader) (int64, error)
	GetPath(filename string) (string, error)
	Delete(filename string) error
	DiskUsage() (int64, error)
	List() ([]string, error)
	EnsureDir() error
}

// FileSystemStore stores uploaded videos on the local filesystem under a
// single flat directory. Filenames are generated by the caller and carry no
// relation to a video's external identity.
type FileSystemStore struct {
	basePath string
}

// NewFileSystemStore creates a new filesystem storage backend.
func NewFileSystemStore(basePath string) *FileSystemStore {
	return &FileSystemStore{basePath: basePath}
}

// EnsureDir creates the storage directory if it doesn't exist.
func (s *FileSystemStore) EnsureDir() error {
	if err := os.MkdirAll(s.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory %s: %w", s.basePath, err)
	}
	return nil
}

// Save writes data from a reader to the named file.
// Returns the number of bytes written.
func (s *FileSystemStore) Save(filename string, data io.Reader) (int64, error) {
	filePath := s.filePath(filename)

	file, err := os.Create(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to create file %s: %w", filePath, err)
	}
	defer file.Close()

	n, err := io.Copy(file, data)
	if err != nil {
		// Clean up partial file on error
		os.Remove(filePath)
		return 0, fmt.Errorf("failed to write file: %w", err)
	}

	return n, nil
}

// GetPath returns the absolute path to a stored file.
// Returns an error if the file does not exist.
func (s *FileSystemStore) GetPath(filename string) (string, error) {
	filePath := s.filePath(filename)

	if _, err := os.Stat(filePath); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", filename)
		}
		return "", fmt.Errorf("failed to stat file: %w", err)
	}

	return filePath, nil
}

// Delete removes a stored file. Deleting a file that is already gone is not
// an error.
func (s *FileSystemStore) Delete(filename string) error {
	filePath := s.filePath(filename)
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file %s: %w", filePath, err)
	}
	return nil
}

// DiskUsage returns the total size in bytes of all stored files.
func (s *FileSystemStore) DiskUsage() (int64, error) {
	var total int64
	err := filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to walk storage directory: %w", err)
	}
	return total, nil
}

// List returns the names of all stored files.
func (s *FileSystemStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func (s *FileSystemStore) filePath(filename string) string {
	// filepath.Base guards against path traversal in stored names.
	return filepath.Join(s.basePath, filepath.Base(filename))
}
