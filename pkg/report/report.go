// Package report turns archived scorecards into human-facing artifacts:
// a CSV table with one row per slide per iteration, and a Graphviz
// convergence graph showing how each slide moved through the run.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/slidectl/slidectl/pkg/errors"
	"github.com/slidectl/slidectl/pkg/history"
)

// csvHeader lists the report columns in order.
var csvHeader = []string{
	"iteration", "slide_id", "page_index",
	"density", "whitespace_ratio", "overlaps", "warnings", "status",
}

// WriteCSV writes one row per slide per iteration, oldest iteration first.
func WriteCSV(w io.Writer, records []history.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write report header")
	}

	for _, rec := range records {
		if rec.Scorecard == nil {
			continue
		}
		for _, m := range rec.Scorecard.Slides {
			status := "ok"
			if m.NG() {
				status = "ng"
			}
			row := []string{
				strconv.Itoa(rec.Iteration),
				m.SlideID,
				strconv.Itoa(m.PageIndex),
				formatMetric(m.Density),
				formatMetric(m.WhitespaceRatio),
				strconv.Itoa(m.Overlaps),
				strings.Join(m.Warnings, ";"),
				status,
			}
			if err := cw.Write(row); err != nil {
				return errors.Wrap(errors.ErrCodeInternal, err, "write report row for %s", m.SlideID)
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "flush report")
	}
	return nil
}

// SaveCSV writes the report to path atomically (write-temp-then-rename).
func SaveCSV(path string, records []history.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create report directory")
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, records); err != nil {
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

// formatMetric keeps metric columns compact and stable across runs.
func formatMetric(v float64) string {
	return fmt.Sprintf("%.4f", v)
}
