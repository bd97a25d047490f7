package export

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/sheets-ledger/internal/config"
	"github.com/dvloznov/sheets-ledger/internal/gcsuploader"
	bqinfra "github.com/dvloznov/sheets-ledger/internal/infra/bigquery"
	"github.com/dvloznov/sheets-ledger/internal/notionsync"
)

// SinksFromConfig builds a sink for every configured target. The returned
// close function releases clients opened for them.
func SinksFromConfig(ctx context.Context, cfg config.ExportConfig, log zerolog.Logger) ([]Sink, func() error, error) {
	var sinks []Sink
	closers := []func() error{}
	closeAll := func() error {
		var first error
		for _, c := range closers {
			if err := c(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	if cfg.Bucket != "" {
		sinks = append(sinks, NewGCSSink(gcsuploader.NewGCSStorageService(), cfg.Bucket))
		log.Info().Str("bucket", cfg.Bucket).Msg("GCS export enabled")
	}

	if cfg.BigQueryEnabled() {
		repo, err := bqinfra.NewBigQuerySnapshotRepository(ctx, bqinfra.TableRef{
			Project: cfg.BigQueryProject,
			Dataset: cfg.BigQueryDataset,
			Table:   cfg.BigQueryTable,
		})
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("SinksFromConfig: %w", err)
		}
		closers = append(closers, repo.Close)
		sinks = append(sinks, NewBigQuerySink(repo))
		log.Info().Str("table", repo.Table()).Msg("BigQuery export enabled")
	}

	if cfg.NotionEnabled() {
		sinks = append(sinks, NewNotionSink(notionsync.NewNotionClient(cfg.NotionToken), cfg.NotionDatabaseID))
		log.Info().Str("database_id", cfg.NotionDatabaseID).Msg("Notion export enabled")
	}

	return sinks, closeAll, nil
}
