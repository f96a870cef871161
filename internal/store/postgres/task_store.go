package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lien-Gu/bookrank/internal/model"
	"github.com/lien-Gu/bookrank/internal/store"
)

const (
	defaultTaskLimit = 50
	maxTaskLimit     = 200
)

// TaskStore persists crawl task state in Postgres.
type TaskStore struct {
	db DB
}

// CreateTask records a queued task.
func (s *TaskStore) CreateTask(ctx context.Context, task model.CrawlTask) error {
	if task.ID == "" {
		return fmt.Errorf("task id is required")
	}
	_, err := s.db.Exec(ctx, `
INSERT INTO crawl_tasks (id, page_id, trigger_by, status, submitted_at)
VALUES ($1, $2, $3, $4, $5)`,
		task.ID, task.PageID, task.Trigger, task.Status, task.Submitted,
	)
	if err != nil {
		return fmt.Errorf("create task %s: %w", task.ID, err)
	}
	return nil
}

// StartTask marks the task running.
func (s *TaskStore) StartTask(ctx context.Context, taskID string) error {
	tag, err := s.db.Exec(ctx, `
UPDATE crawl_tasks SET status = $1, started_at = $2 WHERE id = $3`,
		model.TaskStatusRunning, time.Now().UTC(), taskID,
	)
	if err != nil {
		return fmt.Errorf("start task %s: %w", taskID, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// CompleteTask records the final status, error text, and counters.
func (s *TaskStore) CompleteTask(
	ctx context.Context,
	taskID string,
	status model.TaskStatus,
	errText string,
	counters model.TaskCounters,
) error {
	tag, err := s.db.Exec(ctx, `
UPDATE crawl_tasks
SET status = $1, error_text = $2, finished_at = $3,
	items_total = $4, items_failed = $5, bytes_fetched = $6
WHERE id = $7`,
		status, errText, time.Now().UTC(),
		counters.ItemsTotal, counters.ItemsFailed, counters.BytesFetched, taskID,
	)
	if err != nil {
		return fmt.Errorf("complete task %s: %w", taskID, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const taskColumns = `id, page_id, trigger_by, status, submitted_at, started_at, finished_at,
	error_text, items_total, items_failed, bytes_fetched`

func scanTask(row pgx.Row) (model.CrawlTask, error) {
	var t model.CrawlTask
	err := row.Scan(&t.ID, &t.PageID, &t.Trigger, &t.Status, &t.Submitted,
		&t.Started, &t.Finished, &t.ErrorText,
		&t.Counters.ItemsTotal, &t.Counters.ItemsFailed, &t.Counters.BytesFetched)
	return t, err
}

// GetTask loads one task or returns store.ErrNotFound.
func (s *TaskStore) GetTask(ctx context.Context, taskID string) (model.CrawlTask, error) {
	row := s.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM crawl_tasks WHERE id = $1`, taskID)
	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.CrawlTask{}, store.ErrNotFound
	}
	if err != nil {
		return model.CrawlTask{}, fmt.Errorf("get task %s: %w", taskID, err)
	}
	return t, nil
}

// ListTasks returns tasks newest first, optionally filtered by status.
func (s *TaskStore) ListTasks(
	ctx context.Context,
	status *model.TaskStatus,
	limit, offset int,
) ([]model.CrawlTask, error) {
	limit = clampLimit(limit, defaultTaskLimit, maxTaskLimit)
	if offset < 0 {
		offset = 0
	}

	var (
		rows pgx.Rows
		err  error
	)
	if status != nil {
		rows, err = s.db.Query(ctx, `
SELECT `+taskColumns+`
FROM crawl_tasks
WHERE status = $1
ORDER BY submitted_at DESC
LIMIT $2 OFFSET $3`, *status, limit, offset)
	} else {
		rows, err = s.db.Query(ctx, `
SELECT `+taskColumns+`
FROM crawl_tasks
ORDER BY submitted_at DESC
LIMIT $1 OFFSET $2`, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.CrawlTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}
