// Package scheduler registers periodic crawl jobs on top of robfig/cron.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/lien-Gu/bookrank/internal/catalog"
	"github.com/lien-Gu/bookrank/internal/model"
)

// Runner executes one crawl for a page. *crawl.Runner satisfies it.
type Runner interface {
	Run(ctx context.Context, page catalog.Page, trigger model.TaskTrigger) (model.CrawlTask, error)
}

// Scheduler owns the cron instance and the page-to-job registrations.
type Scheduler struct {
	cron    *cron.Cron
	cat     *catalog.Catalog
	runner  Runner
	logger  *zap.Logger
	entries map[string]cron.EntryID
}

// New builds a Scheduler. Jobs run one at a time per page: a tick that
// fires while the previous run is still going is skipped, not queued.
func New(cat *catalog.Catalog, runner Runner, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := &cronLogger{logger: logger}
	c := cron.New(
		cron.WithParser(catalog.CronParser),
		cron.WithChain(
			cron.SkipIfStillRunning(cl),
			cron.Recover(cl),
		),
	)
	return &Scheduler{
		cron:    c,
		cat:     cat,
		runner:  runner,
		logger:  logger,
		entries: make(map[string]cron.EntryID),
	}
}

// Register adds one cron job per catalog page. The catalog validated every
// spec at load time with the same parser, so errors here mean the catalog
// was bypassed.
func (s *Scheduler) Register(ctx context.Context) error {
	for _, page := range s.cat.Pages {
		page := page
		id, err := s.cron.AddFunc(page.CronSpec(), func() {
			if _, err := s.runner.Run(ctx, page, model.TriggerSchedule); err != nil {
				s.logger.Error("scheduled crawl failed",
					zap.String("page_id", page.ID), zap.Error(err))
			}
		})
		if err != nil {
			return fmt.Errorf("register page %s (%q): %w", page.ID, page.Schedule, err)
		}
		s.entries[page.ID] = id
		s.logger.Info("registered crawl job",
			zap.String("page_id", page.ID),
			zap.String("schedule", page.CronSpec()),
		)
	}
	return nil
}

// JobCount returns the number of registered jobs.
func (s *Scheduler) JobCount() int {
	return len(s.entries)
}

// TriggerNow runs the page's crawl immediately, outside its cron cadence.
func (s *Scheduler) TriggerNow(ctx context.Context, pageID string) (model.CrawlTask, error) {
	page, ok := s.cat.Page(pageID)
	if !ok {
		return model.CrawlTask{}, fmt.Errorf("unknown page %q", pageID)
	}
	return s.runner.Run(ctx, page, model.TriggerManual)
}

// Start begins scheduling in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for in-flight jobs, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler drain: %w", ctx.Err())
	}
}

// cronLogger adapts zap to the cron.Logger interface.
type cronLogger struct {
	logger *zap.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, zap.Any("details", keysAndValues))
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, zap.Error(err), zap.Any("details", keysAndValues))
}
