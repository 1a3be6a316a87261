package jobstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"subburn/internal/fileutil"
)

// ErrTerminal is returned when an update targets a record that already
// reached done, failed, or cancelled.
var ErrTerminal = errors.New("job already in a terminal state")

// Store persists per-job status records under the data directory. One record
// per job id, written atomically so pollers never observe a torn document.
type Store struct {
	dataDir string
}

// New creates a store rooted at dataDir.
func New(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

// DataDir returns the root the store writes under.
func (s *Store) DataDir() string {
	return s.dataDir
}

// Paths returns the directory layout for a job id.
func (s *Store) Paths(id string) Paths {
	return JobPaths(s.dataDir, id)
}

// Create materializes the job directory and writes the initial queued record.
func (s *Store) Create(id, message string) error {
	paths := s.Paths(id)
	if err := os.MkdirAll(paths.Dir, 0o755); err != nil {
		return fmt.Errorf("create job directory: %w", err)
	}
	return s.write(id, Record{Status: StatusQueued, Log: message})
}

// Update overwrites the job record. Updates against a terminal record return
// ErrTerminal so a late writer cannot revive a finished job.
func (s *Store) Update(id string, record Record) error {
	current, err := s.Read(id)
	if err == nil && current.Status.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrTerminal, current.Status)
	}
	return s.write(id, record)
}

// Read returns the current record for a job id. Unknown ids yield a default
// queued record, covering the window between submission and the worker's
// first write. A record that fails to parse is reported as StatusError so
// clients can tell "the job failed" from "its state is unreadable".
func (s *Store) Read(id string) (Record, error) {
	data, err := os.ReadFile(s.Paths(id).Status())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Record{Status: StatusQueued, Log: "Waiting for worker"}, nil
		}
		return Record{}, fmt.Errorf("read status record: %w", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{Status: StatusError, Log: "Status record is corrupt"}, nil
	}
	if _, ok := ParseStatus(string(record.Status)); !ok {
		return Record{Status: StatusError, Log: "Status record is corrupt"}, nil
	}
	return record, nil
}

// Exists reports whether a job directory is present for the id.
func (s *Store) Exists(id string) bool {
	info, err := os.Stat(s.Paths(id).Dir)
	return err == nil && info.IsDir()
}

// Remove deletes a job directory and everything in it.
func (s *Store) Remove(id string) error {
	return os.RemoveAll(s.Paths(id).Dir)
}

func (s *Store) write(id string, record Record) error {
	record.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status record: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.Paths(id).Status(), data, 0o644); err != nil {
		return fmt.Errorf("persist status record: %w", err)
	}
	return nil
}
