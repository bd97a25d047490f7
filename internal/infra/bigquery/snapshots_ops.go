package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// InsertSnapshotRowsWithClient streams rows into the snapshots table.
func InsertSnapshotRowsWithClient(ctx context.Context, client *bigquery.Client, ref TableRef, rows []*SnapshotRow) error {
	if len(rows) == 0 {
		return nil
	}

	// Use fully qualified table name to avoid project ID issues
	table := client.DatasetInProject(ref.Project, ref.Dataset).Table(ref.Table)
	if err := table.Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertSnapshotRows: inserting rows: %w", err)
	}
	return nil
}

// ListSnapshotsWithClient returns the most recent snapshots, newest first.
func ListSnapshotsWithClient(ctx context.Context, client *bigquery.Client, ref TableRef, limit int) ([]*SnapshotSummary, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			snapshot_id,
			MAX(taken_at) AS taken_at,
			COUNT(*) AS record_count
		FROM `+"`%s.%s.%s`"+`
		GROUP BY snapshot_id
		ORDER BY taken_at DESC
		LIMIT @limit
	`, ref.Project, ref.Dataset, ref.Table))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: limit},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListSnapshots: query read: %w", err)
	}

	var out []*SnapshotSummary
	for {
		var s SnapshotSummary
		err := it.Next(&s)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListSnapshots: iter next: %w", err)
		}
		out = append(out, &s)
	}
	return out, nil
}
