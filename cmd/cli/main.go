package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dvloznov/bizledger/internal/app"
	"github.com/dvloznov/bizledger/internal/config"
	"github.com/dvloznov/bizledger/internal/domain"
	"github.com/dvloznov/bizledger/internal/logger"
	"github.com/dvloznov/bizledger/internal/report"
	"github.com/dvloznov/bizledger/internal/summary"
	"github.com/dvloznov/bizledger/internal/validator"
	"github.com/rs/zerolog"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "summary":
		runSummary()
	case "income":
		runIncome()
	case "import-bank":
		runImportBank()
	case "add":
		runAdd()
	case "export":
		runExport()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Business Ledger CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  summary      Import income and bank expenses, then print the summary")
	fmt.Println("  income       Print net sales for a date range")
	fmt.Println("  import-bank  Print the eligible bank expenses")
	fmt.Println("  add          Record a manual expense in the configured store")
	fmt.Println("  export       Upload the summary report to the export bucket")
	fmt.Println("  help         Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// session is the state shared by every command.
type session struct {
	app    *app.App
	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *session) close() {
	if err := s.app.Close(); err != nil {
		s.log.Error().Err(err).Msg("Failed to close expense store")
	}
	s.cancel()
}

// rangeFlags registers -start and -end on fs.
func rangeFlags(fs *flag.FlagSet) (start, end *string) {
	start = fs.String("start", "", "Start date YYYY-MM-DD (default: first day of current month)")
	end = fs.String("end", "", "End date YYYY-MM-DD, inclusive (default: last day of current month)")
	return start, end
}

func open(fs *flag.FlagSet) *session {
	envFile := fs.String("env-file", ".env", "Optional .env file")
	fs.Parse(os.Args[2:])

	cfg, err := config.Load(*envFile)
	if err != nil {
		fallback := logger.New()
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.NewWithLevel(cfg.LogLevel)

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	ctx = logger.WithContext(ctx, log)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize dashboard")
	}
	return &session{app: a, log: log, ctx: ctx, cancel: cancel}
}

// applyRange sets the dashboard range from the flags and waits for the
// income refresh it triggers.
func (s *session) applyRange(start, end string) {
	rng := s.app.Coordinator.DateRange()
	if start != "" {
		t, err := time.Parse("2006-01-02", start)
		if err != nil {
			s.log.Fatal().Err(err).Str("start", start).Msg("Error: invalid start date, expected YYYY-MM-DD")
		}
		rng.Start = t
	}
	if end != "" {
		t, err := time.Parse("2006-01-02", end)
		if err != nil {
			s.log.Fatal().Err(err).Str("end", end).Msg("Error: invalid end date, expected YYYY-MM-DD")
		}
		rng.End = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	if err := s.app.Coordinator.SetDateRange(rng); err != nil {
		s.log.Fatal().Err(err).Msg("Invalid date range")
	}
	s.app.Coordinator.Wait()
}

func runSummary() {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	start, end := rangeFlags(fs)
	skipBank := fs.Bool("skip-bank", false, "Do not import bank expenses")
	s := open(fs)
	defer s.close()

	if !*skipBank {
		if err := s.app.Coordinator.FetchBankExpenses(s.ctx); err != nil {
			s.log.Warn().Err(err).Msg("Bank import failed, showing manual entries only")
		}
	}
	s.applyRange(*start, *end)
	if msg := s.app.Coordinator.Status().Error; msg != "" {
		s.log.Warn().Str("error", msg).Msg("Income refresh failed")
	}

	snap := s.app.Coordinator.Snapshot()
	sum := snap.Summary
	money := s.app.Money
	rng := snap.DateRange

	fmt.Printf("\n=== Summary %s to %s ===\n", rng.Start.Format("2006-01-02"), rng.End.Format("2006-01-02"))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "Total income\t%s\t\n", money.Format(sum.TotalIncome))
	fmt.Fprintf(w, "Total expenses\t%s\t\n", money.Format(sum.TotalExpenses))
	fmt.Fprintf(w, "Services tax\t%s\t\n", money.Format(sum.ServicesTax))
	fmt.Fprintf(w, "Income tax\t%s\t\n", money.Format(sum.IncomeTax))
	fmt.Fprintf(w, "Mandatory training\t%s\t\n", money.Format(sum.MandatoryTraining))
	fmt.Fprintf(w, "VAT\t%s\t\n", money.Format(sum.TotalVAT))
	fmt.Fprintf(w, "Total taxes\t%s\t\n", money.Format(summary.TotalTaxes(sum)))
	fmt.Fprintf(w, "Net income\t%s\t\n", money.Format(sum.NetIncome))
	w.Flush()

	breakdown := snap.Breakdown
	if len(breakdown.ByCategory) > 0 {
		fmt.Println("\n=== Expenses by category ===")
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, g := range breakdown.ByCategory {
			fmt.Fprintf(w, "%s\t%d\t%s\n", g.Key, g.Count, money.Format(g.Total))
		}
		w.Flush()
	}
	fmt.Println()
}

func runIncome() {
	fs := flag.NewFlagSet("income", flag.ExitOnError)
	start, end := rangeFlags(fs)
	s := open(fs)
	defer s.close()

	s.applyRange(*start, *end)
	if msg := s.app.Coordinator.Status().Error; msg != "" {
		s.log.Fatal().Str("error", msg).Msg("Income refresh failed")
	}
	fmt.Printf("Net sales: %s\n", s.app.Money.Format(s.app.Coordinator.Summary().TotalIncome))
}

func runImportBank() {
	fs := flag.NewFlagSet("import-bank", flag.ExitOnError)
	s := open(fs)
	defer s.close()

	if err := s.app.Coordinator.FetchBankExpenses(s.ctx); err != nil {
		s.log.Fatal().Err(err).Msg("Bank import failed")
	}

	var imported []domain.Transaction
	for _, tx := range s.app.Coordinator.Transactions() {
		if tx.Source == domain.SourceBank {
			imported = append(imported, tx)
		}
	}

	fmt.Printf("\n=== Eligible bank expenses (%d) ===\n", len(imported))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, tx := range imported {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", tx.Date.Format("2006-01-02"), tx.Description, tx.PaymentOrigin, s.app.Money.Format(tx.Amount))
	}
	w.Flush()
	fmt.Println()
}

func runAdd() {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	var in validator.ExpenseInput
	fs.StringVar(&in.Date, "date", time.Now().Format("2006-01-02"), "Expense date YYYY-MM-DD")
	fs.StringVar(&in.Amount, "amount", "", "Amount in major units, e.g. 12.50 (required)")
	fs.StringVar(&in.Description, "description", "", "Description (required)")
	fs.StringVar(&in.Category, "category", string(domain.CategoryTools), "Category: tools, other subscriptions or freelance")
	fs.StringVar(&in.PaymentOrigin, "payment-origin", "", "Payment origin, e.g. card name (required)")
	s := open(fs)
	defer s.close()

	if s.app.Config.StoreBackend == config.StoreMemory {
		s.log.Warn().Msg("STORE_BACKEND is memory - the expense will not be kept")
	}

	tx, err := in.ToTransaction(time.UTC)
	if err != nil {
		s.log.Fatal().Err(err).Msg("Invalid expense")
	}
	created, err := s.app.Coordinator.AddTransaction(s.ctx, tx)
	if err != nil {
		s.log.Fatal().Err(err).Msg("Failed to add expense")
	}
	fmt.Printf("Added expense %s (%s)\n", created.ID, s.app.Money.Format(created.Amount))
}

func runExport() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	start, end := rangeFlags(fs)
	bucket := fs.String("bucket", "", "GCS bucket (overrides EXPORT_BUCKET)")
	s := open(fs)
	defer s.close()

	if *bucket == "" {
		*bucket = s.app.Config.ExportBucket
	}

	if err := s.app.Coordinator.FetchBankExpenses(s.ctx); err != nil {
		s.log.Warn().Err(err).Msg("Bank import failed, exporting manual entries only")
	}
	s.applyRange(*start, *end)

	rep := report.Build(s.app.Coordinator, s.app.Money, time.Now())
	uri, err := report.Export(s.ctx, s.app.Storage, *bucket, rep)
	if err != nil {
		s.log.Fatal().Err(err).Msg("Export failed")
	}
	fmt.Printf("Exported summary to %s\n", uri)
}
