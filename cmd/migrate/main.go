package main

import (
	"context"
	"flag"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/sheets-ledger/internal/config"
	bqinfra "github.com/dvloznov/sheets-ledger/internal/infra/bigquery"
	"github.com/dvloznov/sheets-ledger/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	var (
		projectID = flag.String("project", cfg.Export.BigQueryProject, "GCP project ID (or set BIGQUERY_PROJECT env)")
		datasetID = flag.String("dataset", cfg.Export.BigQueryDataset, "BigQuery dataset ID")
		tableID   = flag.String("table", cfg.Export.BigQueryTable, "Snapshots table name")
		appliedBy = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
		dryRun    = flag.Bool("dry-run", false, "List migrations without applying them")
	)
	flag.Parse()

	log := logger.NewWithLevel(cfg.LogLevel)

	if *projectID == "" {
		log.Fatal().Msg("Error: -project flag is required. Please specify your GCP project ID.")
	}

	ref := bqinfra.TableRef{Project: *projectID, Dataset: *datasetID, Table: *tableID}

	migrations, err := bqinfra.ReadMigrations(bqinfra.Migrations(), ref, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read migrations")
	}

	if *dryRun {
		for _, m := range migrations {
			log.Info().Int("version", m.Version).Str("name", m.Name).Str("checksum", m.Checksum[:12]).Msg("[DRY RUN] Migration")
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	client, err := bigquery.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer client.Close()

	log.Info().Str("project", *projectID).Str("dataset", *datasetID).Msg("Connected to BigQuery")

	applied, err := bqinfra.ApplyMigrationsWithClient(ctx, client, ref, migrations, *appliedBy, log)
	if err != nil {
		log.Fatal().Err(err).Int("applied", applied).Msg("Migration failed")
	}

	if applied == 0 {
		log.Info().Msg("No new migrations to apply. Database is up to date.")
	} else {
		log.Info().Int("applied", applied).Msg("Successfully applied migrations")
	}
}
