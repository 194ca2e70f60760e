package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/lattisimo/posher-v/pkg/util"
)

// RotationConfig configures journal file rotation.
type RotationConfig struct {
	MaxSize    int64 // max file size in bytes before rotation
	MaxBackups int   // old files to retain
}

// FileStore appends records to a JSON-lines file.
type FileStore struct {
	path     string
	file     *os.File
	encoder  *json.Encoder
	mu       sync.RWMutex
	rotation RotationConfig
}

// DefaultJournalPath returns the default journal location.
func DefaultJournalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "poshv_journal.log"
	}
	return filepath.Join(home, ".poshv", "journal.log")
}

// NewFileStore opens (creating if needed) a JSON-lines journal file.
func NewFileStore(path string, rotation RotationConfig) (*FileStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	return &FileStore{
		path:     path,
		file:     file,
		encoder:  json.NewEncoder(file),
		rotation: rotation,
	}, nil
}

// Append implements Store.
func (s *FileStore) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rotation.MaxSize > 0 {
		if info, err := s.file.Stat(); err == nil && info.Size() >= s.rotation.MaxSize {
			if err := s.rotate(); err != nil {
				return fmt.Errorf("rotating journal: %w", err)
			}
		}
	}
	return s.encoder.Encode(rec)
}

// Query implements Store.
func (s *FileStore) Query(filter Filter) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			util.Warnf("journal: skipping malformed entry at line %d: %v", line, err)
			continue
		}
		if matches(&rec, filter) {
			records = append(records, rec)
		}
	}
	if filter.Limit > 0 && len(records) > filter.Limit {
		records = records[len(records)-filter.Limit:]
	}
	return records, scanner.Err()
}

// Close implements Store.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// rotate shifts journal.log -> journal.log.1 -> journal.log.2 ... dropping
// the oldest beyond MaxBackups, then reopens a fresh file.
func (s *FileStore) rotate() error {
	if err := s.file.Close(); err != nil {
		return err
	}

	maxBackups := s.rotation.MaxBackups
	if maxBackups < 1 {
		maxBackups = 1
	}
	oldest := fmt.Sprintf("%s.%d", s.path, maxBackups)
	os.Remove(oldest)
	for i := maxBackups - 1; i >= 1; i-- {
		from := fmt.Sprintf("%s.%d", s.path, i)
		to := fmt.Sprintf("%s.%d", s.path, i+1)
		os.Rename(from, to)
	}
	os.Rename(s.path, s.path+".1")

	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	s.file = file
	s.encoder = json.NewEncoder(file)
	return nil
}
