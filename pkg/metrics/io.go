package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/slidectl/slidectl/pkg/errors"
)

// measureDocument is the JSON shape the measurement collaborator writes:
// one geometry record per rendered slide.
type measureDocument struct {
	Version string          `json:"version"`
	Slides  []SlideGeometry `json:"slides"`
}

// ReadSlides parses slide geometry from r.
// Slide IDs must be unique and path-safe; duplicates are rejected because
// slide identity has to be stable across iterations.
func ReadSlides(r io.Reader) ([]SlideGeometry, error) {
	var doc measureDocument
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse measurement JSON")
	}

	seen := make(map[string]bool, len(doc.Slides))
	for _, s := range doc.Slides {
		if err := errors.ValidateSlideID(s.SlideID); err != nil {
			return nil, err
		}
		if seen[s.SlideID] {
			return nil, errors.New(errors.ErrCodeInvalidInput, "duplicate slide ID %q", s.SlideID)
		}
		seen[s.SlideID] = true
	}
	return doc.Slides, nil
}

// LoadSlides reads slide geometry from a file path.
func LoadSlides(path string) ([]SlideGeometry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "measurement file %s", path)
		}
		return nil, err
	}
	defer f.Close()
	return ReadSlides(f)
}

// WriteScorecard serializes the scorecard as indented JSON.
func WriteScorecard(w io.Writer, card *Scorecard) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(card); err != nil {
		return fmt.Errorf("encode scorecard: %w", err)
	}
	return nil
}

// SaveScorecard writes the scorecard to path atomically
// (write-temp-then-rename).
func SaveScorecard(path string, card *Scorecard) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := WriteScorecard(f, card); err != nil {
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

// LoadScorecard reads a scorecard from a file path.
func LoadScorecard(path string) (*Scorecard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "scorecard %s", path)
		}
		return nil, err
	}
	var card Scorecard
	if err := json.Unmarshal(data, &card); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse scorecard %s", path)
	}
	return &card, nil
}
