package history

import (
	"bufio"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/slidectl/slidectl/pkg/errors"
)

// FileStore appends records to a JSON Lines file, one record per line.
// Appends are serialized with a mutex so concurrent controllers in one
// process never interleave lines.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a file-backed archive at the given path. Parent
// directories are created on first append.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Append writes the record as one JSON line at the end of the file.
func (s *FileStore) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to create history directory")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to encode history record")
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to open history file")
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to append history record")
	}
	return nil
}

// List reads every line and keeps those matching the run ID. An empty
// runID returns all records.
func (s *FileStore) List(ctx context.Context, runID string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to open history file")
	}
	defer f.Close()

	var records []Record
	reader := bufio.NewReader(f)
	line := 0
	for {
		raw, err := reader.ReadBytes('\n')
		if len(raw) > 0 {
			line++
			var rec Record
			if uerr := json.Unmarshal(raw, &rec); uerr != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidState, uerr,
					"malformed history record at line %d", line)
			}
			if runID == "" || rec.RunID == runID {
				records = append(records, rec)
			}
		}
		if err != nil {
			if stderrors.Is(err, io.EOF) {
				break
			}
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to read history file")
		}
	}
	return records, nil
}

// Latest returns the last record for the run, scanning the whole file.
func (s *FileStore) Latest(ctx context.Context, runID string) (Record, bool, error) {
	records, err := s.List(ctx, runID)
	if err != nil || len(records) == 0 {
		return Record{}, false, err
	}
	return records[len(records)-1], true, nil
}

// Close does nothing; the file is opened per append.
func (s *FileStore) Close(ctx context.Context) error { return nil }

// Ensure FileStore implements Store.
var _ Store = (*FileStore)(nil)
