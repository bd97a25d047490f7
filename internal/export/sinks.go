package export

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/dvloznov/sheets-ledger/internal/gcsuploader"
	bqinfra "github.com/dvloznov/sheets-ledger/internal/infra/bigquery"
	"github.com/dvloznov/sheets-ledger/internal/ledger"
	"github.com/dvloznov/sheets-ledger/internal/notionsync"
)

// GCSSink writes the snapshot's records as a JSON array object.
type GCSSink struct {
	storage gcsuploader.StorageService
	bucket  string
	newID   func() string
}

// NewGCSSink creates a sink writing into bucket.
func NewGCSSink(storage gcsuploader.StorageService, bucket string) *GCSSink {
	return &GCSSink{storage: storage, bucket: bucket, newID: uuid.NewString}
}

// Name implements Sink.
func (s *GCSSink) Name() string { return TargetGCS }

// Write implements Sink.
func (s *GCSSink) Write(ctx context.Context, snap *ledger.Snapshot) (string, error) {
	data, err := json.Marshal(snap.Records)
	if err != nil {
		return "", fmt.Errorf("GCSSink: marshal records: %w", err)
	}

	object := gcsuploader.ExportObjectName(snap.TakenAt, s.newID())
	uri, err := s.storage.UploadBytes(ctx, s.bucket, object, "application/json", data)
	if err != nil {
		return "", fmt.Errorf("GCSSink: %w", err)
	}
	return uri, nil
}

// BigQuerySink inserts one row per record, tagged with a fresh snapshot id.
type BigQuerySink struct {
	repo  bqinfra.SnapshotRepository
	newID func() string
}

// NewBigQuerySink creates a sink inserting through repo.
func NewBigQuerySink(repo bqinfra.SnapshotRepository) *BigQuerySink {
	return &BigQuerySink{repo: repo, newID: uuid.NewString}
}

// Name implements Sink.
func (s *BigQuerySink) Name() string { return TargetBigQuery }

// Write implements Sink.
func (s *BigQuerySink) Write(ctx context.Context, snap *ledger.Snapshot) (string, error) {
	snapshotID := s.newID()
	if err := s.repo.InsertSnapshotRows(ctx, bqinfra.NewSnapshotRows(snapshotID, snap)); err != nil {
		return "", fmt.Errorf("BigQuerySink: %w", err)
	}
	return fmt.Sprintf("%s/%s", s.repo.Table(), snapshotID), nil
}

// NotionSink mirrors the snapshot into a Notion database.
type NotionSink struct {
	client     notionsync.NotionService
	databaseID string
}

// NewNotionSink creates a sink syncing into databaseID.
func NewNotionSink(client notionsync.NotionService, databaseID string) *NotionSink {
	return &NotionSink{client: client, databaseID: databaseID}
}

// Name implements Sink.
func (s *NotionSink) Name() string { return TargetNotion }

// Write implements Sink.
func (s *NotionSink) Write(ctx context.Context, snap *ledger.Snapshot) (string, error) {
	if _, err := notionsync.SyncSnapshot(ctx, s.client, s.databaseID, snap, false); err != nil {
		return "", fmt.Errorf("NotionSink: %w", err)
	}
	return "notion://" + s.databaseID, nil
}
