// Package app wires configuration into a ready hot-jobs service and runs
// the daily digest.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"job-digest/internal/config"
	"job-digest/internal/crawler"
	"job-digest/internal/hotjobs"
	"job-digest/internal/logger"
	"job-digest/internal/reporter"
	"job-digest/internal/store"
	"job-digest/internal/tracker"
)

type App struct {
	Config  *config.Config
	Service *hotjobs.Service
	// Workbook is nil when no tracker file is configured.
	Workbook *tracker.Workbook

	backend store.Backend
	now     func() time.Time
	log     zerolog.Logger
}

// New opens the configured store and builds the manager over the shared
// rate-limited crawler. Close releases the store.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.Get()

	backend, err := store.Open(ctx, cfg.State)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	jc := crawler.NewJobCrawler(crawler.NewRateLimitedClient(cfg.RequestsPerSecond))
	m, err := hotjobs.NewManager(cfg.HotJobs(), jc, hotjobs.WithLogger(log))
	if err != nil {
		backend.Close()
		return nil, err
	}

	a := &App{Config: cfg, backend: backend, now: time.Now, log: log}
	var tr hotjobs.Tracker
	if cfg.TrackerFile != "" {
		a.Workbook = tracker.NewWorkbook(cfg.TrackerFile)
		tr = a.Workbook
	} else {
		log.Warn().Msg("No tracker file configured, no company counts as tracked")
	}
	a.Service = hotjobs.NewService(m, backend, tr)
	return a, nil
}

func (a *App) Close() error {
	return a.backend.Close()
}

// Digest lays out res for the report. An unreadable tracker only drops the
// tracker sections.
func (a *App) Digest(ctx context.Context, res hotjobs.Result) reporter.Digest {
	var tr *tracker.Tracker
	if a.Workbook != nil {
		t, err := a.Workbook.Load(ctx)
		if err != nil {
			a.log.Warn().Err(err).Msg("Could not read tracker for the digest")
		} else {
			tr = t
		}
	}
	return reporter.NewDigest(a.now(), res, a.Service.Manager().Tiers(), tr, a.Config.Roles)
}

// Print writes the shortlists in res as text.
func (a *App) Print(ctx context.Context, w io.Writer, res hotjobs.Result) error {
	return reporter.WriteText(w, a.Digest(ctx, res))
}

// RunDigest refreshes every category, prints the shortlists to out when it
// is not nil and emails the digest when send is set.
func (a *App) RunDigest(ctx context.Context, send bool, out io.Writer) error {
	res, err := a.Service.RefreshAll(ctx)
	if err != nil {
		return err
	}
	for name, ferr := range res.Failed {
		a.log.Warn().Str("category", name).Err(ferr).Msg("Category kept its previous shortlist")
	}

	d := a.Digest(ctx, res)
	if out != nil {
		if err := reporter.WriteText(out, d); err != nil {
			return err
		}
	}
	if !send {
		return nil
	}
	if !a.Config.Email.Enabled() {
		a.log.Warn().Msg("Email not configured, digest not sent")
		return nil
	}
	if err := reporter.SendDigest(a.Config.Email, d); err != nil {
		return err
	}
	a.log.Info().Str("run_id", res.RunID).Int("listings", d.Total()).Msg("Digest sent")
	return nil
}
