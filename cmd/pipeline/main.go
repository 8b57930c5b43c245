// Command pipeline runs one scrape-and-publish pass over the configured
// watchlists and exits. A scheduler (cron, CI) is expected to invoke it once
// per trigger; there is no long-running mode.
//
// Exit code 0: workbook written, possibly with skipped watchlists/companies.
// Exit code 1: configuration or authentication failure, or no data at all.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"watchtrack/pkg/core/config"
	"watchtrack/pkg/core/excel"
	"watchtrack/pkg/core/pipeline"
	"watchtrack/pkg/core/scrape"
	"watchtrack/pkg/core/sheets"
	"watchtrack/pkg/core/slogx"
	"watchtrack/pkg/core/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		// .env is a convenience for local runs; CI sets real env vars.
		slog.Debug("no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log := slogx.New(cfg.LogLevel)
	slog.SetDefault(log)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("run failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	client, err := scrape.NewClient(scrape.Options{BaseURL: cfg.BaseURL})
	if err != nil {
		return fmt.Errorf("create scrape client: %w", err)
	}

	publishers, cleanup, err := buildPublishers(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	orch := pipeline.New(cfg, client, &excel.Builder{OutputDir: cfg.OutputDir}, publishers, log)
	result, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Println("======================================================================")
	fmt.Println("RUN SUMMARY")
	fmt.Println("======================================================================")
	fmt.Printf("Companies scraped:   %d\n", result.Records)
	fmt.Printf("Workbook:            %s\n", result.WorkbookPath)
	if result.ReportPath != "" {
		fmt.Printf("Report:              %s\n", result.ReportPath)
	}
	fmt.Printf("Skipped watchlists:  %d\n", len(result.SkippedWatchlists))
	fmt.Printf("Skipped companies:   %d\n", len(result.SkippedCompanies))
	fmt.Printf("Publish failures:    %d\n", len(result.PublishFailures))
	return nil
}

// buildPublishers assembles the optional backup publishers from config. A
// publisher that cannot even be constructed is dropped with a warning; the
// primary artifact must not depend on backup availability.
func buildPublishers(ctx context.Context, cfg *config.Config, log *slog.Logger) ([]pipeline.SnapshotPublisher, func(), error) {
	var publishers []pipeline.SnapshotPublisher
	cleanup := func() {}

	if cfg.PublishToSheets() {
		pub, err := sheets.NewPublisher(cfg.SheetID, cfg.CredentialsBase64)
		if err != nil {
			log.Warn("google sheets backup disabled", "err", err)
		} else {
			publishers = append(publishers, pub)
		}
	}

	if cfg.DatabaseURL != "" {
		repo, err := store.NewSnapshotRepo(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Warn("postgres snapshot history disabled", "err", err)
		} else {
			publishers = append(publishers, repo)
			cleanup = repo.Close
		}
	}

	return publishers, cleanup, nil
}
