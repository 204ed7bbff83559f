// Command stmtiq runs one unit of pipeline work from the shell: parse a bank
// statement export, extract fields from an invoice PDF, or match an invoice
// against stored transactions.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Dmoment/StmtIQ-sub005/internal/domain/extraction"
	"github.com/Dmoment/StmtIQ-sub005/internal/domain/matching"
	"github.com/Dmoment/StmtIQ-sub005/internal/domain/statement"
	"github.com/Dmoment/StmtIQ-sub005/pkg/config"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "parse":
		err = runParse(cfg, logger, os.Args[2:])
	case "extract":
		err = runExtract(ctx, cfg, logger, os.Args[2:])
	case "match":
		err = runMatch(ctx, cfg, logger, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  stmtiq parse   -file statement.csv -bank hdfc -account savings
  stmtiq extract -file invoice.pdf
  stmtiq match   -vendor NAME -amount 450 -date 2024-03-01 -owner UUID`)
}

func runParse(cfg *config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	file := fs.String("file", "", "statement export to parse")
	bank := fs.String("bank", "", "bank code, e.g. hdfc")
	account := fs.String("account", "savings", "account type: savings, current or credit_card")
	fs.Parse(args)

	if *file == "" || *bank == "" {
		return fmt.Errorf("parse requires -file and -bank")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("reading statement: %w", err)
	}

	profile, ok := statement.Profiles()[*bank+"/"+*account]
	if !ok {
		return fmt.Errorf("no format profile for %s/%s", *bank, *account)
	}

	result := statement.NewParser(logger).Parse(data, profile)
	if result.Failed() {
		return fmt.Errorf("statement unparseable: %s", result.Diagnostics[0].Message)
	}

	logger.Info("statement parsed",
		"total_rows", result.TotalRows,
		"parsed", result.ParsedRows,
		"skipped", result.SkippedRows,
		"warnings", len(result.Diagnostics))
	return printJSON(result.Transactions)
}

func runExtract(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	file := fs.String("file", "", "invoice PDF to extract")
	fs.Parse(args)

	if *file == "" {
		return fmt.Errorf("extract requires -file")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("reading invoice: %w", err)
	}

	res := extraction.NewOrchestrator(cfg, logger).Process(ctx, extraction.Document{
		Filename:     *file,
		DeclaredType: "application/pdf",
		Data:         data,
	})
	if res.Status == extraction.StatusFailed {
		return fmt.Errorf("extraction failed: %s", res.Failure)
	}
	return printJSON(res.Fields)
}

func runMatch(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("match", flag.ExitOnError)
	vendor := fs.String("vendor", "", "invoice vendor name")
	amount := fs.String("amount", "", "invoice total amount")
	date := fs.String("date", "", "invoice date, YYYY-MM-DD")
	owner := fs.String("owner", "", "owner UUID")
	fs.Parse(args)

	if *amount == "" || *owner == "" {
		return fmt.Errorf("match requires -amount and -owner")
	}
	if cfg.Database.DSN == "" {
		return fmt.Errorf("DATABASE_DSN is not configured")
	}

	total, err := decimal.NewFromString(*amount)
	if err != nil {
		return fmt.Errorf("parsing amount: %w", err)
	}
	ownerID, err := uuid.Parse(*owner)
	if err != nil {
		return fmt.Errorf("parsing owner id: %w", err)
	}

	inv := &matching.Invoice{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		VendorName:  *vendor,
		TotalAmount: total,
	}
	if *date != "" {
		d, err := time.Parse("2006-01-02", *date)
		if err != nil {
			return fmt.Errorf("parsing date: %w", err)
		}
		inv.InvoiceDate = &d
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	engine := matching.NewEngine(matching.NewPostgresStore(pool), nil, cfg.Matching, logger)
	res, err := engine.Match(ctx, inv)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
