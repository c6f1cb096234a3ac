// Package notionsync mirrors the ledger into a Notion database so the
// bookkeeping can be browsed and annotated outside the dashboard.
package notionsync

import (
	"context"
	"fmt"

	"github.com/dvloznov/bizledger/internal/domain"
	"github.com/dvloznov/bizledger/internal/logger"
	"github.com/jomei/notionapi"
)

// PageSize is the number of pages requested per database query.
const PageSize = 100

// Result counts what a sync did (or would do in dry-run mode).
type Result struct {
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Archived int `json:"archived"`
	Failed   int `json:"failed"`
}

// SyncTransactions makes the Notion database mirror txs:
//  1. every existing page is keyed by its Transaction ID property
//  2. pages without an ID, with an unknown ID, or duplicating an ID are archived
//  3. entries with a page get it updated, the rest get a new page
//
// Per-page failures are logged and counted; only the initial query aborts.
func SyncTransactions(ctx context.Context, notionClient NotionService, notionDBID string, txs []domain.Transaction, dryRun bool) (Result, error) {
	log := logger.FromContext(ctx)
	var res Result

	log.Info().
		Int("transaction_count", len(txs)).
		Bool("dry_run", dryRun).
		Msg("Starting ledger sync to Notion")

	pages, err := queryAllNotionPages(ctx, notionClient, notionDBID)
	if err != nil {
		return res, fmt.Errorf("SyncTransactions: querying pages: %w", err)
	}
	log.Info().Int("notion_page_count", len(pages)).Msg("Retrieved existing Notion pages")

	wanted := make(map[string]bool, len(txs))
	for _, tx := range txs {
		wanted[tx.ID] = true
	}

	pageByTx := make(map[string]string)
	for _, page := range pages {
		txID := extractTransactionID(page)
		pageID := string(page.ID)
		if txID != "" && wanted[txID] && pageByTx[txID] == "" {
			pageByTx[txID] = pageID
			continue
		}

		if dryRun {
			log.Info().Str("transaction_id", txID).Str("page_id", pageID).Msg("[DRY RUN] Would archive stale Notion page")
			res.Archived++
			continue
		}
		if err := notionClient.DeletePage(ctx, pageID); err != nil {
			log.Warn().Err(err).Str("transaction_id", txID).Str("page_id", pageID).Msg("Failed to archive stale Notion page")
			res.Failed++
			continue
		}
		res.Archived++
	}

	for _, tx := range txs {
		pageID, exists := pageByTx[tx.ID]

		if dryRun {
			if exists {
				res.Updated++
			} else {
				res.Created++
			}
			continue
		}

		props := TransactionToNotionProperties(tx)
		if exists {
			if _, err := notionClient.UpdatePage(ctx, pageID, props); err != nil {
				log.Warn().Err(err).Str("transaction_id", tx.ID).Str("page_id", pageID).Msg("Failed to update Notion page")
				res.Failed++
				continue
			}
			res.Updated++
			continue
		}

		page, err := notionClient.CreatePage(ctx, notionDBID, props)
		if err != nil {
			log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Failed to create Notion page")
			res.Failed++
			continue
		}
		log.Debug().Str("transaction_id", tx.ID).Str("page_id", string(page.ID)).Msg("Created Notion page")
		res.Created++
	}

	log.Info().
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("archived", res.Archived).
		Int("failed", res.Failed).
		Bool("dry_run", dryRun).
		Msg("Ledger sync completed")

	return res, nil
}

// queryAllNotionPages follows the query cursor until the database is exhausted.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: PageSize}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}
		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
