// Package crawl implements the fetch, parse, persist pipeline executed for
// each crawl task.
package crawl

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lien-Gu/bookrank/internal/archive"
	"github.com/lien-Gu/bookrank/internal/catalog"
	"github.com/lien-Gu/bookrank/internal/events"
	"github.com/lien-Gu/bookrank/internal/fetch"
	"github.com/lien-Gu/bookrank/internal/metrics"
	"github.com/lien-Gu/bookrank/internal/model"
	"github.com/lien-Gu/bookrank/internal/parse"
	"github.com/lien-Gu/bookrank/internal/store"
)

// Fetcher fetches one URL. *fetch.Client satisfies it.
type Fetcher interface {
	Get(ctx context.Context, url string) (fetch.Payload, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces task and snapshot IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Runner executes the crawl pipeline for catalog pages.
type Runner struct {
	fetcher   Fetcher
	stores    store.Provider
	archive   archive.Store
	publisher events.Publisher
	clock     Clock
	idGen     IDGenerator
	logger    *zap.Logger
}

// NewRunner constructs a Runner.
func NewRunner(
	fetcher Fetcher,
	stores store.Provider,
	arch archive.Store,
	publisher events.Publisher,
	clock Clock,
	idGen IDGenerator,
	logger *zap.Logger,
) *Runner {
	if arch == nil {
		arch = archive.NoOp{}
	}
	if publisher == nil {
		publisher = events.NoOp{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		fetcher:   fetcher,
		stores:    stores,
		archive:   arch,
		publisher: publisher,
		clock:     clock,
		idGen:     idGen,
		logger:    logger,
	}
}

// Run executes one crawl task for the page and returns its final state.
// The task row records the outcome even when an error is returned.
func (r *Runner) Run(ctx context.Context, page catalog.Page, trigger model.TaskTrigger) (model.CrawlTask, error) {
	taskID, err := r.idGen.NewID()
	if err != nil {
		return model.CrawlTask{}, fmt.Errorf("generate task id: %w", err)
	}
	task := model.CrawlTask{
		ID:        taskID,
		PageID:    page.ID,
		Trigger:   trigger,
		Status:    model.TaskStatusQueued,
		Submitted: r.clock.Now(),
	}
	if err := r.stores.Tasks().CreateTask(ctx, task); err != nil {
		return model.CrawlTask{}, fmt.Errorf("create task: %w", err)
	}
	if err := r.stores.Tasks().StartTask(ctx, taskID); err != nil {
		return task, fmt.Errorf("start task: %w", err)
	}
	task.Status = model.TaskStatusRunning

	counters, runErr := r.execute(ctx, page, &task)
	task.Counters = counters

	status := model.TaskStatusSucceeded
	errText := ""
	if runErr != nil {
		status = model.TaskStatusFailed
		errText = runErr.Error()
	}
	task.Status = status
	task.ErrorText = errText

	if err := r.stores.Tasks().CompleteTask(ctx, taskID, status, errText, counters); err != nil {
		r.logger.Error("complete task failed",
			zap.String("task_id", taskID), zap.Error(err))
	}
	metrics.ObserveTask(page.ID, string(status))

	finishedAt := r.clock.Now()
	if _, err := r.publisher.Publish(ctx, model.TaskEvent{
		TaskID:     taskID,
		PageID:     page.ID,
		Status:     status,
		Counters:   counters,
		FinishedAt: finishedAt,
	}); err != nil {
		r.logger.Warn("publish task event failed",
			zap.String("task_id", taskID), zap.Error(err))
	}

	if runErr != nil {
		return task, fmt.Errorf("crawl page %s: %w", page.ID, runErr)
	}
	r.logger.Info("crawl task finished",
		zap.String("task_id", taskID),
		zap.String("page_id", page.ID),
		zap.Int("items", counters.ItemsTotal),
		zap.Int("items_failed", counters.ItemsFailed),
	)
	return task, nil
}

func (r *Runner) execute(ctx context.Context, page catalog.Page, task *model.CrawlTask) (model.TaskCounters, error) {
	var counters model.TaskCounters

	payload, err := r.fetcher.Get(ctx, page.URL)
	if err != nil {
		return counters, err
	}
	counters.BytesFetched = int64(len(payload.Body))

	// Archive before parsing so broken payloads can be replayed later.
	if uri, err := r.archive.Put(ctx, archive.Key(page.ID, payload.Body), payload.Body); err != nil {
		r.logger.Warn("archive payload failed",
			zap.String("page_id", page.ID), zap.Error(err))
	} else if uri != "" {
		r.logger.Debug("payload archived", zap.String("uri", uri))
	}

	var result parse.Result
	switch page.Kind {
	case catalog.KindHTML:
		result, err = parse.ParseRankingHTML(page.ID, payload.Body)
	default:
		result, err = parse.ParseRankingJSON(page.ID, payload.Body)
	}
	if err != nil {
		return counters, err
	}
	counters.ItemsTotal = len(result.Entries)
	counters.ItemsFailed = result.Failed
	metrics.ObserveParsedItems(page.ID, len(result.Entries), result.Failed)

	if err := r.persist(ctx, page, task.ID, result); err != nil {
		return counters, err
	}
	return counters, nil
}

func (r *Runner) persist(ctx context.Context, page catalog.Page, taskID string, result parse.Result) error {
	now := r.clock.Now()

	name := result.RankingName
	if name == "" {
		name = page.Name
	}
	if err := r.stores.Rankings().UpsertRanking(ctx, model.Ranking{
		ID:        page.ID,
		Name:      name,
		Channel:   page.Channel,
		UpdatedAt: now,
	}); err != nil {
		return err
	}

	for _, book := range result.Books {
		book.FirstSeen = now
		book.UpdatedAt = now
		if err := r.stores.Books().UpsertBook(ctx, book); err != nil {
			return err
		}
	}
	for _, snap := range result.Snapshots {
		snap.CapturedAt = now
		if err := r.stores.Books().InsertBookSnapshot(ctx, snap); err != nil {
			return err
		}
	}

	snapID, err := r.idGen.NewID()
	if err != nil {
		return fmt.Errorf("generate snapshot id: %w", err)
	}
	return r.stores.Rankings().InsertSnapshot(ctx, model.RankingSnapshot{
		ID:         snapID,
		RankingID:  page.ID,
		TaskID:     taskID,
		CapturedAt: now,
		Entries:    result.Entries,
		EntryCount: len(result.Entries),
	})
}
