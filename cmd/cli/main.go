package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/sheets-ledger/internal/config"
	"github.com/dvloznov/sheets-ledger/internal/export"
	bqinfra "github.com/dvloznov/sheets-ledger/internal/infra/bigquery"
	"github.com/dvloznov/sheets-ledger/internal/ledger"
	"github.com/dvloznov/sheets-ledger/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log := logger.NewWithLevel(cfg.LogLevel)

	switch os.Args[1] {
	case "list":
		runList(cfg, log)
	case "add":
		runAdd(cfg, log)
	case "delete":
		runDelete(cfg, log)
	case "init-header":
		runInitHeader(cfg, log)
	case "export":
		runExport(cfg, log)
	case "snapshots":
		runSnapshots(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Sheets Ledger CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  list         Print every transaction")
	fmt.Println("  add          Append a transaction")
	fmt.Println("  delete       Delete a transaction by id")
	fmt.Println("  init-header  Write the header row into an empty sheet")
	fmt.Println("  export       Export a snapshot to gcs, bigquery or notion")
	fmt.Println("  snapshots    List snapshots stored in BigQuery")
	fmt.Println("  help         Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func openLedger(cfg *config.Config, log zerolog.Logger) *ledger.Ledger {
	if cfg.TableBackend == config.BackendMemory {
		log.Fatal().Msg("The CLI needs TABLE_BACKEND=sheets")
	}
	l, err := ledger.FromConfig(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create ledger")
	}
	return l
}

func commandContext(log zerolog.Logger, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	return logger.WithContext(ctx, log), cancel
}

func runList(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print records as a JSON array")
	fs.Parse(os.Args[2:])

	ctx, cancel := commandContext(log, time.Minute)
	defer cancel()

	records, err := openLedger(cfg, log).List(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list transactions")
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			log.Fatal().Err(err).Msg("Failed to encode transactions")
		}
		return
	}

	fmt.Printf("\n=== Transactions (%d) ===\n", len(records))
	for _, rec := range records {
		fmt.Printf("\n#%s  %s  %s  %s\n",
			rec.String(ledger.ColumnID),
			rec.String(ledger.ColumnDate),
			rec.String(ledger.ColumnType),
			rec.String(ledger.ColumnAmount))
		if c := rec.String(ledger.ColumnCategory); c != "" {
			fmt.Printf("   Category: %s\n", c)
		}
		if p := strings.TrimSpace(rec.String(ledger.ColumnPatientName) + " " + rec.String(ledger.ColumnPatientID)); p != "" {
			fmt.Printf("   Patient:  %s\n", p)
		}
		if p := rec.String(ledger.ColumnPayment); p != "" {
			fmt.Printf("   Payment:  %s\n", p)
		}
		if n := rec.String(ledger.ColumnNotes); n != "" {
			fmt.Printf("   Notes:    %s\n", n)
		}
	}
	fmt.Println()
}

func runAdd(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	fields := map[string]*string{
		ledger.ColumnType:        fs.String("type", "", "income or expense (required)"),
		ledger.ColumnCategory:    fs.String("category", "", "Category"),
		ledger.ColumnDate:        fs.String("date", "", "Date YYYY-MM-DD (default today)"),
		ledger.ColumnPatientName: fs.String("patient-name", "", "Patient name"),
		ledger.ColumnPatientID:   fs.String("patient-id", "", "Patient id"),
		ledger.ColumnPhone:       fs.String("phone", "", "Phone number"),
		ledger.ColumnPayment:     fs.String("payment", "", "Payment method"),
		ledger.ColumnNotes:       fs.String("notes", "", "Free text notes"),
	}
	amount := fs.Float64("amount", 0, "Amount (required)")
	fs.Parse(os.Args[2:])

	if *fields[ledger.ColumnType] == "" {
		log.Fatal().Msg("Error: --type is required")
	}
	if d := *fields[ledger.ColumnDate]; d != "" {
		if _, err := time.Parse(ledger.DateLayout, d); err != nil {
			log.Fatal().Str("date", d).Msg("Error: --date must be YYYY-MM-DD")
		}
	}

	payload := map[string]any{ledger.ColumnAmount: *amount}
	for key, v := range fields {
		if *v != "" {
			payload[key] = *v
		}
	}

	ctx, cancel := commandContext(log, time.Minute)
	defer cancel()

	id, err := openLedger(cfg, log).Create(ctx, payload)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to add transaction")
	}

	fmt.Printf("Transaction added with id %d\n", id)
}

func runDelete(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.Int("id", 0, "Transaction id (required)")
	fs.Parse(os.Args[2:])

	if *id <= 0 {
		log.Fatal().Msg("Error: --id must be a positive integer")
	}

	ctx, cancel := commandContext(log, time.Minute)
	defer cancel()

	if err := openLedger(cfg, log).Delete(ctx, *id); err != nil {
		log.Fatal().Err(err).Int("id", *id).Msg("Failed to delete transaction")
	}

	fmt.Printf("Deleted transaction %d\n", *id)
}

func runInitHeader(cfg *config.Config, log zerolog.Logger) {
	ctx, cancel := commandContext(log, time.Minute)
	defer cancel()

	wrote, err := openLedger(cfg, log).EnsureHeader(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to write header")
	}

	if wrote {
		fmt.Println("Header row written.")
	} else {
		fmt.Println("Sheet already has rows; header left unchanged.")
	}
}

func runExport(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	target := fs.String("target", "", "Export target: gcs, bigquery or notion (required)")
	fs.Parse(os.Args[2:])

	if *target == "" {
		log.Fatal().Msg("Error: --target is required")
	}

	ctx, cancel := commandContext(log, 10*time.Minute)
	defer cancel()

	l := openLedger(cfg, log)
	sinks, closeSinks, err := export.SinksFromConfig(ctx, cfg.Export, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure export targets")
	}
	defer closeSinks()

	svc := export.NewService(l, log, sinks...)
	if !svc.Has(*target) {
		log.Fatal().Str("target", *target).Strs("configured", svc.Targets()).Msg("Export target is not configured")
	}

	result, err := svc.Run(ctx, *target)
	if err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}

	fmt.Printf("Exported %d records to %s\n", result.RecordCount, result.Location)
}

func runSnapshots(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("snapshots", flag.ExitOnError)
	limit := fs.Int("limit", 10, "Number of snapshots to show")
	fs.Parse(os.Args[2:])

	if !cfg.Export.BigQueryEnabled() {
		log.Fatal().Msg("Error: BIGQUERY_PROJECT is not set")
	}

	ctx, cancel := commandContext(log, 2*time.Minute)
	defer cancel()

	repo, err := bqinfra.NewBigQuerySnapshotRepository(ctx, bqinfra.TableRef{
		Project: cfg.Export.BigQueryProject,
		Dataset: cfg.Export.BigQueryDataset,
		Table:   cfg.Export.BigQueryTable,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create repository")
	}
	defer repo.Close()

	snapshots, err := repo.ListSnapshots(ctx, *limit)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list snapshots")
	}

	fmt.Printf("\n=== Snapshots in %s (%d) ===\n", repo.Table(), len(snapshots))
	for _, s := range snapshots {
		fmt.Printf("%s  %s  %d records\n", s.TakenAt.Format(time.RFC3339), s.SnapshotID, s.RecordCount)
	}
	fmt.Println()
}
