// Package history archives scorecards across iterations and runs.
//
// The convergence controller appends a record after every decision, so the
// archive holds the full trajectory of a run: which slides failed, with
// what metrics, at every iteration. Reports and the convergence graph are
// built from this trail.
//
// Backends:
//   - [FileStore]: JSON Lines under the workspace report directory; the
//     default for CLI runs.
//   - [MongoStore]: shared archive for fleets where many runs should land
//     in one queryable collection.
package history

import (
	"context"
	"time"

	"github.com/slidectl/slidectl/pkg/metrics"
)

// Record is one archived scorecard with run identification.
type Record struct {
	RunID      string             `json:"run_id" bson:"run_id"`
	Workspace  string             `json:"workspace" bson:"workspace"`
	Iteration  int                `json:"iteration" bson:"iteration"`
	RecordedAt time.Time          `json:"recorded_at" bson:"recorded_at"`
	Scorecard  *metrics.Scorecard `json:"scorecard" bson:"scorecard"`
}

// Store is the interface for archive backends.
type Store interface {
	// Append adds one record to the archive.
	Append(ctx context.Context, rec Record) error

	// List returns all records for the given run, oldest first.
	List(ctx context.Context, runID string) ([]Record, error)

	// Latest returns the most recent record for the given run.
	// The second return is false when the run has no records.
	Latest(ctx context.Context, runID string) (Record, bool, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}

// NullStore discards every record. Used when archiving is disabled.
type NullStore struct{}

// NewNullStore creates a store that archives nothing.
func NewNullStore() Store { return &NullStore{} }

// Append discards the record.
func (s *NullStore) Append(ctx context.Context, rec Record) error { return nil }

// List always returns no records.
func (s *NullStore) List(ctx context.Context, runID string) ([]Record, error) { return nil, nil }

// Latest always reports no records.
func (s *NullStore) Latest(ctx context.Context, runID string) (Record, bool, error) {
	return Record{}, false, nil
}

// Close does nothing.
func (s *NullStore) Close(ctx context.Context) error { return nil }

// Ensure NullStore implements Store.
var _ Store = (*NullStore)(nil)
