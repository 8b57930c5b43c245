// Package pipeline wires the run together: authenticate, fetch watchlists,
// extract company records, build the workbook, publish best-effort backups.
// Strictly sequential; per-unit failures are contained and reported, only
// authentication failure or a fully empty result aborts the run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"watchtrack/pkg/core/config"
	"watchtrack/pkg/models"
)

// WatchlistClient is the authenticated scraping session.
type WatchlistClient interface {
	Login(ctx context.Context, username, password string) error
	FetchWatchlist(ctx context.Context, name, url string) ([]models.CompanyRef, error)
	FetchCompany(ctx context.Context, ref models.CompanyRef) (*models.CompanyRecord, error)
}

// WorkbookBuilder writes the primary spreadsheet artifact.
type WorkbookBuilder interface {
	Build(snap *models.RunSnapshot) (string, error)
}

// SnapshotPublisher mirrors the run snapshot to a remote store. Publishers
// are best-effort: a failure is logged and recorded, never fatal.
type SnapshotPublisher interface {
	Name() string
	Publish(ctx context.Context, snap *models.RunSnapshot) error
}

// PublishError wraps a publisher failure with its destination name.
type PublishError struct {
	Publisher string
	Err       error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish to %s: %v", e.Publisher, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// SkippedWatchlist records one watchlist dropped from the run and why.
type SkippedWatchlist struct {
	Name   string
	Reason string
}

// SkippedCompany records one company dropped from the run and why.
type SkippedCompany struct {
	Name      string
	Watchlist string
	Reason    string
}

// RunResult summarizes one pipeline run. Nothing is dropped silently: every
// skipped watchlist, company, duplicate and publish failure is listed here
// and in the run report.
type RunResult struct {
	RunID        uuid.UUID
	StartedAt    time.Time
	FinishedAt   time.Time
	WorkbookPath string
	ReportPath   string

	Records           int
	SkippedWatchlists []SkippedWatchlist
	SkippedCompanies  []SkippedCompany
	Duplicates        []string
	PublishFailures   []string
}

// Orchestrator runs the pipeline end to end.
type Orchestrator struct {
	cfg        *config.Config
	client     WatchlistClient
	builder    WorkbookBuilder
	publishers []SnapshotPublisher
	log        *slog.Logger

	// swapped out in tests
	now   func() time.Time
	sleep func(time.Duration)
}

// New creates an orchestrator. publishers may be empty.
func New(cfg *config.Config, client WatchlistClient, builder WorkbookBuilder, publishers []SnapshotPublisher, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		cfg:        cfg,
		client:     client,
		builder:    builder,
		publishers: publishers,
		log:        log,
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

// Run executes one full pipeline pass. The returned error is non-nil only
// for fatal conditions: authentication failure, no data at all, or a
// workbook write failure.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{
		RunID:     uuid.New(),
		StartedAt: o.now(),
	}
	o.log.Info("starting run", "run_id", result.RunID, "watchlists", len(o.cfg.Watchlists))

	if err := o.client.Login(ctx, o.cfg.Username, o.cfg.Password); err != nil {
		return nil, err
	}
	o.log.Info("login successful")

	refs := o.collectRefs(ctx, result)
	records := o.extractRecords(ctx, refs, result)

	if len(records) == 0 {
		return nil, fmt.Errorf("no company data could be obtained (%d watchlists skipped, %d companies skipped)",
			len(result.SkippedWatchlists), len(result.SkippedCompanies))
	}
	result.Records = len(records)

	snap := &models.RunSnapshot{
		RunID:     result.RunID,
		StartedAt: result.StartedAt,
		Records:   records,
	}

	path, err := o.builder.Build(snap)
	if err != nil {
		return nil, fmt.Errorf("build workbook: %w", err)
	}
	result.WorkbookPath = path
	o.log.Info("workbook written", "path", path, "records", len(records))

	o.publish(ctx, snap, result)

	result.FinishedAt = o.now()
	if reportPath, err := writeReport(result, o.cfg.OutputDir); err != nil {
		o.log.Warn("could not write run report", "err", err)
	} else {
		result.ReportPath = reportPath
	}
	return result, nil
}

// collectRefs fetches every configured watchlist, merging members with a
// first-seen-wins dedup in configuration order. A failed watchlist is
// skipped with a warning; the others still contribute.
func (o *Orchestrator) collectRefs(ctx context.Context, result *RunResult) []models.CompanyRef {
	seen := make(map[string]bool)
	var refs []models.CompanyRef

	for _, wl := range o.cfg.Watchlists {
		members, err := o.client.FetchWatchlist(ctx, wl.Name, wl.URL)
		if err != nil {
			o.log.Warn("skipping watchlist", "watchlist", wl.Name, "err", err)
			result.SkippedWatchlists = append(result.SkippedWatchlists, SkippedWatchlist{Name: wl.Name, Reason: err.Error()})
			continue
		}
		o.log.Info("watchlist fetched", "watchlist", wl.Name, "companies", len(members))

		for _, ref := range members {
			if seen[ref.Name] {
				result.Duplicates = append(result.Duplicates, ref.Name)
				continue
			}
			seen[ref.Name] = true
			refs = append(refs, ref)
		}
	}
	return refs
}

// extractRecords scrapes each company's detail page, skipping companies
// whose page cannot be extracted, with a polite delay between fetches.
func (o *Orchestrator) extractRecords(ctx context.Context, refs []models.CompanyRef, result *RunResult) []models.CompanyRecord {
	var records []models.CompanyRecord
	for i, ref := range refs {
		if i > 0 && o.cfg.FetchDelay > 0 {
			o.sleep(o.cfg.FetchDelay)
		}
		o.log.Debug("scraping company", "company", ref.Name, "progress", fmt.Sprintf("%d/%d", i+1, len(refs)))

		rec, err := o.client.FetchCompany(ctx, ref)
		if err != nil {
			o.log.Warn("skipping company", "company", ref.Name, "err", err)
			result.SkippedCompanies = append(result.SkippedCompanies, SkippedCompany{
				Name:      ref.Name,
				Watchlist: ref.Watchlist,
				Reason:    err.Error(),
			})
			continue
		}
		records = append(records, *rec)
	}
	return records
}

// publish mirrors the snapshot to every configured publisher. Failures are
// wrapped in *PublishError and recorded, never propagated: the workbook is
// already on disk.
func (o *Orchestrator) publish(ctx context.Context, snap *models.RunSnapshot, result *RunResult) {
	for _, pub := range o.publishers {
		if err := pub.Publish(ctx, snap); err != nil {
			perr := &PublishError{Publisher: pub.Name(), Err: err}
			o.log.Warn("backup publish failed", "publisher", pub.Name(), "err", err)
			result.PublishFailures = append(result.PublishFailures, perr.Error())
			continue
		}
		o.log.Info("snapshot published", "publisher", pub.Name())
	}
}
