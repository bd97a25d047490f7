// Package notionsync mirrors ledger records into a Notion database.
package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/sheets-ledger/internal/ledger"
	"github.com/dvloznov/sheets-ledger/internal/logger"
)

// PageSize is the number of pages requested per database query.
const PageSize = 100

// SyncResult counts the page operations performed by SyncSnapshot.
type SyncResult struct {
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Archived int `json:"archived"`
	Failed   int `json:"failed"`
}

// Total returns the number of records written to Notion.
func (r SyncResult) Total() int {
	return r.Created + r.Updated
}

// SyncSnapshot makes the Notion database mirror snap. Pages are keyed by the
// Record ID title: matching pages are updated, missing ones created, and
// pages whose key is absent from snap (or duplicated) are archived.
func SyncSnapshot(ctx context.Context, notionClient NotionService, databaseID string, snap *ledger.Snapshot, dryRun bool) (SyncResult, error) {
	log := logger.FromContext(ctx)
	var result SyncResult

	log.Info().
		Int("record_count", len(snap.Records)).
		Bool("dry_run", dryRun).
		Msg("Starting ledger sync to Notion")

	pages, err := queryAllNotionPages(ctx, notionClient, databaseID)
	if err != nil {
		return result, fmt.Errorf("SyncSnapshot: query pages: %w", err)
	}
	log.Info().Int("notion_page_count", len(pages)).Msg("Retrieved existing Notion pages")

	wanted := make(map[string]bool, len(snap.Records))
	for _, rec := range snap.Records {
		wanted[RecordKey(rec)] = true
	}

	existing := make(map[string]string, len(pages))
	for _, page := range pages {
		key := extractRecordID(page)
		pageID := string(page.ID)

		_, dup := existing[key]
		if key != "" && wanted[key] && !dup {
			existing[key] = pageID
			continue
		}

		if dryRun {
			log.Info().Str("record_id", key).Str("page_id", pageID).Msg("[DRY RUN] Would archive stale Notion page")
			result.Archived++
			continue
		}
		if err := notionClient.ArchivePage(ctx, pageID); err != nil {
			log.Warn().Err(err).Str("record_id", key).Str("page_id", pageID).Msg("Failed to archive stale Notion page")
			result.Failed++
			continue
		}
		result.Archived++
	}

	for _, rec := range snap.Records {
		key := RecordKey(rec)
		props := RecordToNotionProperties(rec)
		pageID, found := existing[key]

		if dryRun {
			if found {
				result.Updated++
			} else {
				result.Created++
			}
			continue
		}

		if found {
			if _, err := notionClient.UpdatePage(ctx, pageID, props); err != nil {
				log.Error().Err(err).Str("record_id", key).Str("page_id", pageID).Msg("Failed to update Notion page")
				result.Failed++
				continue
			}
			result.Updated++
			continue
		}

		if _, err := notionClient.CreatePage(ctx, databaseID, props); err != nil {
			log.Error().Err(err).Str("record_id", key).Msg("Failed to create Notion page")
			result.Failed++
			continue
		}
		result.Created++
	}

	log.Info().
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("archived", result.Archived).
		Int("failed", result.Failed).
		Msg("Ledger sync to Notion completed")

	if result.Failed > 0 {
		return result, fmt.Errorf("SyncSnapshot: %d page operations failed", result.Failed)
	}
	return result, nil
}

// queryAllNotionPages follows the query cursor until every page is read.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: PageSize,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("query database: %w", err)
		}

		all = append(all, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return all, nil
}
