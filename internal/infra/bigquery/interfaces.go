package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// SnapshotRepository provides snapshot table operations.
type SnapshotRepository interface {
	// InsertSnapshotRows inserts a batch of rows belonging to one snapshot.
	InsertSnapshotRows(ctx context.Context, rows []*SnapshotRow) error

	// ListSnapshots returns up to limit snapshot summaries, newest first.
	ListSnapshots(ctx context.Context, limit int) ([]*SnapshotSummary, error)

	// Table returns the fully qualified table name.
	Table() string
}

// BigQuerySnapshotRepository is the concrete implementation of SnapshotRepository
// that interacts with BigQuery. It holds a shared BigQuery client to avoid
// creating a new connection for each operation.
type BigQuerySnapshotRepository struct {
	client *bigquery.Client
	ref    TableRef
}

// NewBigQuerySnapshotRepository creates a repository writing to ref.
func NewBigQuerySnapshotRepository(ctx context.Context, ref TableRef) (*BigQuerySnapshotRepository, error) {
	client, err := bigquery.NewClient(ctx, ref.Project)
	if err != nil {
		return nil, fmt.Errorf("NewBigQuerySnapshotRepository: creating client: %w", err)
	}
	return &BigQuerySnapshotRepository{
		client: client,
		ref:    ref,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQuerySnapshotRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// InsertSnapshotRows delegates to InsertSnapshotRowsWithClient with the shared client.
func (r *BigQuerySnapshotRepository) InsertSnapshotRows(ctx context.Context, rows []*SnapshotRow) error {
	return InsertSnapshotRowsWithClient(ctx, r.client, r.ref, rows)
}

// ListSnapshots delegates to ListSnapshotsWithClient with the shared client.
func (r *BigQuerySnapshotRepository) ListSnapshots(ctx context.Context, limit int) ([]*SnapshotSummary, error) {
	return ListSnapshotsWithClient(ctx, r.client, r.ref, limit)
}

// Table implements SnapshotRepository.
func (r *BigQuerySnapshotRepository) Table() string {
	return fmt.Sprintf("%s.%s.%s", r.ref.Project, r.ref.Dataset, r.ref.Table)
}

var _ SnapshotRepository = (*BigQuerySnapshotRepository)(nil)
