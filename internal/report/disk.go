package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DiskStore writes sweeps as JSON files to a directory. With an empty
// directory, a temp directory is created lazily on the first Save.
type DiskStore struct {
	mu  sync.Mutex
	dir string
}

// NewDiskStore creates a DiskStore rooted at dir. The directory is created
// on first use.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

// Dir returns the directory sweeps are written to, creating it if needed.
func (s *DiskStore) Dir() (string, error) {
	return s.ensureDir()
}

// Save writes a sweep as a JSON file to disk.
func (s *DiskStore) Save(sweep *Sweep) error {
	dir, err := s.ensureDir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(sweep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling sweep %s: %w", sweep.ID, err)
	}
	path := filepath.Join(dir, sweep.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing sweep %s: %w", sweep.ID, err)
	}
	return nil
}

// Load reads a sweep from disk.
func (s *DiskStore) Load(id string) (*Sweep, error) {
	if id == "" || filepath.Base(id) != id {
		return nil, fmt.Errorf("invalid sweep id %q", id)
	}
	dir, err := s.ensureDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, id+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sweep %s: %w", id, err)
	}
	var sweep Sweep
	if err := json.Unmarshal(data, &sweep); err != nil {
		return nil, fmt.Errorf("unmarshalling sweep %s: %w", id, err)
	}
	return &sweep, nil
}

func (s *DiskStore) ensureDir() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir == "" {
		dir, err := os.MkdirTemp("", "dfsbench-sweeps-*")
		if err != nil {
			return "", fmt.Errorf("creating result directory: %w", err)
		}
		s.dir = dir
		return dir, nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating result directory: %w", err)
	}
	return s.dir, nil
}
