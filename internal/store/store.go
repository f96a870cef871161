// Package store declares persistence interfaces for books, rankings, and
// crawl tasks.
package store

import (
	"context"
	"errors"

	"github.com/lien-Gu/bookrank/internal/model"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// BookStore persists books and their snapshots.
type BookStore interface {
	// UpsertBook inserts the book or refreshes its mutable metadata.
	UpsertBook(ctx context.Context, book model.Book) error
	// GetBook loads one book or returns ErrNotFound.
	GetBook(ctx context.Context, id string) (model.Book, error)
	// GetBooks loads books by id; missing ids are omitted from the result.
	GetBooks(ctx context.Context, ids []string) ([]model.Book, error)
	// SearchBooks matches title or author substrings, paginated.
	SearchBooks(ctx context.Context, query string, limit, offset int) ([]model.Book, error)
	// InsertBookSnapshot appends one counter capture.
	InsertBookSnapshot(ctx context.Context, snap model.BookSnapshot) error
	// LatestBookSnapshot returns the most recent capture or ErrNotFound.
	LatestBookSnapshot(ctx context.Context, bookID string) (model.BookSnapshot, error)
	// BookTrend returns captures from the last N days, oldest first.
	BookTrend(ctx context.Context, bookID string, days int) ([]model.BookSnapshot, error)
}

// RankingStore persists rankings and their snapshots.
type RankingStore interface {
	// UpsertRanking inserts the ranking or refreshes its name/channel.
	UpsertRanking(ctx context.Context, ranking model.Ranking) error
	// GetRanking loads one ranking or returns ErrNotFound.
	GetRanking(ctx context.Context, id string) (model.Ranking, error)
	// ListRankings returns rankings ordered by id, paginated.
	ListRankings(ctx context.Context, limit, offset int) ([]model.Ranking, error)
	// InsertSnapshot stores the snapshot header and its entries atomically.
	InsertSnapshot(ctx context.Context, snap model.RankingSnapshot) error
	// LatestEntries returns the entries of the most recent snapshot.
	LatestEntries(ctx context.Context, rankingID string) (model.RankingSnapshot, error)
	// SnapshotHistory returns snapshot headers from the last N days, newest first.
	SnapshotHistory(ctx context.Context, rankingID string, days int) ([]model.RankingSnapshot, error)
}

// TaskStore persists crawl task state.
type TaskStore interface {
	// CreateTask records a queued task.
	CreateTask(ctx context.Context, task model.CrawlTask) error
	// StartTask marks the task running.
	StartTask(ctx context.Context, taskID string) error
	// CompleteTask records the final status, error text, and counters.
	CompleteTask(ctx context.Context, taskID string, status model.TaskStatus, errText string, counters model.TaskCounters) error
	// GetTask loads one task or returns ErrNotFound.
	GetTask(ctx context.Context, taskID string) (model.CrawlTask, error)
	// ListTasks returns tasks newest first, optionally filtered by status.
	ListTasks(ctx context.Context, status *model.TaskStatus, limit, offset int) ([]model.CrawlTask, error)
}

// Provider bundles the stores behind one connection handle.
type Provider interface {
	Books() BookStore
	Rankings() RankingStore
	Tasks() TaskStore
	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
	Close()
}
