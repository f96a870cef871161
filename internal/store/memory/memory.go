// Package memory provides in-memory store implementations for tests and
// for running the service without a database.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lien-Gu/bookrank/internal/model"
	"github.com/lien-Gu/bookrank/internal/store"
)

// Result-window caps, matching the postgres stores.
const (
	maxListLimit = 100
	maxWindowDay = 365
)

// Provider implements store.Provider with map-backed stores.
type Provider struct {
	books    *BookStore
	rankings *RankingStore
	tasks    *TaskStore
}

// NewProvider creates an empty in-memory provider.
func NewProvider() *Provider {
	return &Provider{
		books:    &BookStore{books: map[string]model.Book{}, snaps: map[string][]model.BookSnapshot{}},
		rankings: &RankingStore{rankings: map[string]model.Ranking{}, snaps: map[string][]model.RankingSnapshot{}},
		tasks:    &TaskStore{tasks: map[string]model.CrawlTask{}},
	}
}

// Books returns the book store.
func (p *Provider) Books() store.BookStore { return p.books }

// Rankings returns the ranking store.
func (p *Provider) Rankings() store.RankingStore { return p.rankings }

// Tasks returns the task store.
func (p *Provider) Tasks() store.TaskStore { return p.tasks }

// Ping always succeeds.
func (p *Provider) Ping(context.Context) error { return nil }

// Close is a no-op.
func (p *Provider) Close() {}

// BookStore is the in-memory store.BookStore.
type BookStore struct {
	mu    sync.RWMutex
	books map[string]model.Book
	snaps map[string][]model.BookSnapshot
}

func (s *BookStore) UpsertBook(_ context.Context, book model.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.books[book.ID]; ok {
		book.FirstSeen = existing.FirstSeen
	}
	s.books[book.ID] = book
	return nil
}

func (s *BookStore) GetBook(_ context.Context, id string) (model.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[id]
	if !ok {
		return model.Book{}, store.ErrNotFound
	}
	return b, nil
}

func (s *BookStore) GetBooks(_ context.Context, ids []string) ([]model.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var books []model.Book
	for _, id := range ids {
		if b, ok := s.books[id]; ok {
			books = append(books, b)
		}
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books, nil
}

func (s *BookStore) SearchBooks(_ context.Context, query string, limit, offset int) ([]model.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := strings.ToLower(query)
	var matched []model.Book
	for _, b := range s.books {
		if strings.Contains(strings.ToLower(b.Title), q) ||
			strings.Contains(strings.ToLower(b.Author), q) {
			matched = append(matched, b)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})
	return paginate(matched, limit, offset, 20), nil
}

func (s *BookStore) InsertBookSnapshot(_ context.Context, snap model.BookSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[snap.BookID] = append(s.snaps[snap.BookID], snap)
	return nil
}

func (s *BookStore) LatestBookSnapshot(_ context.Context, bookID string) (model.BookSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snaps := s.snaps[bookID]
	if len(snaps) == 0 {
		return model.BookSnapshot{}, store.ErrNotFound
	}
	latest := snaps[0]
	for _, sn := range snaps[1:] {
		if sn.CapturedAt.After(latest.CapturedAt) {
			latest = sn
		}
	}
	return latest, nil
}

func (s *BookStore) BookTrend(_ context.Context, bookID string, days int) ([]model.BookSnapshot, error) {
	if days <= 0 {
		days = 7
	}
	if days > maxWindowDay {
		days = maxWindowDay
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.BookSnapshot
	for _, sn := range s.snaps[bookID] {
		if !sn.CapturedAt.Before(cutoff) {
			out = append(out, sn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CapturedAt.Before(out[j].CapturedAt) })
	return out, nil
}

// RankingStore is the in-memory store.RankingStore.
type RankingStore struct {
	mu       sync.RWMutex
	rankings map[string]model.Ranking
	snaps    map[string][]model.RankingSnapshot
}

func (s *RankingStore) UpsertRanking(_ context.Context, ranking model.Ranking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rankings[ranking.ID] = ranking
	return nil
}

func (s *RankingStore) GetRanking(_ context.Context, id string) (model.Ranking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rankings[id]
	if !ok {
		return model.Ranking{}, store.ErrNotFound
	}
	return r, nil
}

func (s *RankingStore) ListRankings(_ context.Context, limit, offset int) ([]model.Ranking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rankings := make([]model.Ranking, 0, len(s.rankings))
	for _, r := range s.rankings {
		rankings = append(rankings, r)
	}
	sort.Slice(rankings, func(i, j int) bool { return rankings[i].ID < rankings[j].ID })
	return paginate(rankings, limit, offset, 50), nil
}

func (s *RankingStore) InsertSnapshot(_ context.Context, snap model.RankingSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap.EntryCount = len(snap.Entries)
	s.snaps[snap.RankingID] = append(s.snaps[snap.RankingID], snap)
	return nil
}

func (s *RankingStore) LatestEntries(_ context.Context, rankingID string) (model.RankingSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snaps := s.snaps[rankingID]
	if len(snaps) == 0 {
		return model.RankingSnapshot{}, store.ErrNotFound
	}
	latest := snaps[0]
	for _, sn := range snaps[1:] {
		if sn.CapturedAt.After(latest.CapturedAt) {
			latest = sn
		}
	}
	return latest, nil
}

func (s *RankingStore) SnapshotHistory(_ context.Context, rankingID string, days int) ([]model.RankingSnapshot, error) {
	if days <= 0 {
		days = 7
	}
	if days > maxWindowDay {
		days = maxWindowDay
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.RankingSnapshot
	for _, sn := range s.snaps[rankingID] {
		if !sn.CapturedAt.Before(cutoff) {
			header := sn
			header.Entries = nil
			out = append(out, header)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CapturedAt.After(out[j].CapturedAt) })
	return out, nil
}

// TaskStore is the in-memory store.TaskStore.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]model.CrawlTask
}

func (s *TaskStore) CreateTask(_ context.Context, task model.CrawlTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task
	return nil
}

func (s *TaskStore) StartTask(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return store.ErrNotFound
	}
	now := time.Now().UTC()
	task.Status = model.TaskStatusRunning
	task.Started = &now
	s.tasks[taskID] = task
	return nil
}

func (s *TaskStore) CompleteTask(
	_ context.Context,
	taskID string,
	status model.TaskStatus,
	errText string,
	counters model.TaskCounters,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return store.ErrNotFound
	}
	now := time.Now().UTC()
	task.Status = status
	task.ErrorText = errText
	task.Counters = counters
	task.Finished = &now
	s.tasks[taskID] = task
	return nil
}

func (s *TaskStore) GetTask(_ context.Context, taskID string) (model.CrawlTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return model.CrawlTask{}, store.ErrNotFound
	}
	return task, nil
}

func (s *TaskStore) ListTasks(
	_ context.Context,
	status *model.TaskStatus,
	limit, offset int,
) ([]model.CrawlTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var tasks []model.CrawlTask
	for _, t := range s.tasks {
		if status != nil && t.Status != *status {
			continue
		}
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].Submitted.After(tasks[j].Submitted)
	})
	return paginate(tasks, limit, offset, 50), nil
}

func paginate[T any](items []T, limit, offset, def int) []T {
	if limit <= 0 {
		limit = def
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
