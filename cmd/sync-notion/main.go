package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dvloznov/sheets-ledger/internal/config"
	"github.com/dvloznov/sheets-ledger/internal/ledger"
	"github.com/dvloznov/sheets-ledger/internal/logger"
	"github.com/dvloznov/sheets-ledger/internal/notionsync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Initialize structured logger
	log := logger.NewWithLevel(cfg.LogLevel)

	// Parse CLI flags
	notionToken := flag.String("notion-token", cfg.Export.NotionToken, "Notion API token (or set NOTION_TOKEN env)")
	notionDBID := flag.String("notion-db-id", cfg.Export.NotionDatabaseID, "Notion database ID (or set NOTION_DATABASE_ID env)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	// Validate required flags
	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id is required")
	}
	if cfg.TableBackend == config.BackendMemory {
		log.Fatal().Msg("Error: syncing needs TABLE_BACKEND=sheets")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	l, err := ledger.FromConfig(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create ledger")
	}

	snap, err := l.Snapshot(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read ledger")
	}

	notionClient := notionsync.NewNotionClient(*notionToken)

	result, err := notionsync.SyncSnapshot(ctx, notionClient, *notionDBID, snap, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	if *dryRun {
		fmt.Printf("Would create %d, update %d, archive %d pages.\n", result.Created, result.Updated, result.Archived)
		return
	}
	fmt.Printf("Sync completed: %d created, %d updated, %d archived.\n", result.Created, result.Updated, result.Archived)
}
