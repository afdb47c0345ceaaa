package patch

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/slidectl/slidectl/pkg/errors"
)

// Write serializes the patch set as indented JSON.
func Write(w io.Writer, ps *PatchSet) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ps); err != nil {
		return fmt.Errorf("encode patch set: %w", err)
	}
	return nil
}

// Save writes the patch set to path atomically (write-temp-then-rename),
// so the regeneration collaborator never observes a half-written file.
func Save(path string, ps *PatchSet) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := Write(f, ps); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads a patch set from a file path.
func Load(path string) (*PatchSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "patch set %s", path)
		}
		return nil, err
	}
	var ps PatchSet
	if err := json.Unmarshal(data, &ps); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse patch set %s", path)
	}
	return &ps, nil
}
