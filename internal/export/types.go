// Package export records credentialing update lists produced from a snapshot.
// Stored runs are an output artifact; nothing here is read back into a
// snapshot.
package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/domain"
	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/query"
)

// Run is one saved export. It holds either provider rows or group summary
// rows, never both.
type Run struct {
	ID         string                   `json:"id"`
	SnapshotID string                   `json:"snapshot_id"`
	Report     string                   `json:"report"`
	RowCount   int                      `json:"row_count"`
	CreatedAt  time.Time                `json:"created_at"`
	Rows       []domain.AugmentedRecord `json:"rows,omitempty"`
	Groups     []query.GroupSummary     `json:"groups,omitempty"`
}

// NewRun builds an unsaved run from a routed report result. Only record
// lists and state or specialty summaries can be stored.
func NewRun(result *query.Result) (*Run, error) {
	run := &Run{SnapshotID: result.SnapshotID, Report: result.Intent}
	switch data := result.Data.(type) {
	case []domain.AugmentedRecord:
		run.Rows = data
	case []query.GroupSummary:
		run.Groups = data
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotTabular, result.Intent)
	}
	return run, nil
}

// Data returns the stored rows in their report shape.
func (r *Run) Data() any {
	if len(r.Groups) > 0 {
		return r.Groups
	}
	if r.Rows == nil {
		return []domain.AugmentedRecord{}
	}
	return r.Rows
}

// Summary returns a copy of the run without its rows.
func (r *Run) Summary() *Run {
	out := *r
	out.Rows = nil
	out.Groups = nil
	return &out
}

// RunExport is the document written by ExportJSON.
type RunExport struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Run        *Run      `json:"run"`
}

// Store defines the interface for export run storage.
type Store interface {
	// Save stores a new run and assigns its ID and creation time.
	Save(ctx context.Context, run *Run) error

	// Get returns a run with its rows, or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*Run, error)

	// List returns run summaries, newest first, without rows.
	List(ctx context.Context, limit, offset int) ([]*Run, error)

	// Count returns the number of stored runs.
	Count(ctx context.Context) (int64, error)

	// Delete removes a run by ID.
	Delete(ctx context.Context, id string) error

	// ExportJSON writes one run, rows included, as an indented JSON document.
	ExportJSON(ctx context.Context, id string, writer io.Writer) error

	// ExportCSV writes the rows of one run as CSV.
	ExportCSV(ctx context.Context, id string, writer io.Writer) error

	// Close releases resources.
	Close() error
}
