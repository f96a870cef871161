// Package model defines core types shared across subsystems.
package model

import (
	"time"
)

// Book is the canonical record for a book on the source site. Mutable
// metadata lives here; counters that change over time go into BookSnapshot.
type Book struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Category  string    `json:"category,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Finished  bool      `json:"finished"`
	FirstSeen time.Time `json:"first_seen"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BookSnapshot is a timestamped capture of a book's counters, used for
// trend queries.
type BookSnapshot struct {
	BookID     string    `json:"book_id"`
	Clicks     int64     `json:"clicks"`
	Favorites  int64     `json:"favorites"`
	Comments   int64     `json:"comments"`
	Chapters   int       `json:"chapters"`
	WordCount  int64     `json:"word_count"`
	CapturedAt time.Time `json:"captured_at"`
}

// Ranking describes a named board on the source site.
type Ranking struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Channel   string    `json:"channel,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RankingSnapshot is one timestamped capture of a ranking's ordered entries.
type RankingSnapshot struct {
	ID         string         `json:"id"`
	RankingID  string         `json:"ranking_id"`
	TaskID     string         `json:"task_id,omitempty"`
	CapturedAt time.Time      `json:"captured_at"`
	Entries    []RankingEntry `json:"entries,omitempty"`
	EntryCount int            `json:"entry_count"`
}

// RankingEntry is one position in a ranking snapshot.
type RankingEntry struct {
	Position int    `json:"position"`
	BookID   string `json:"book_id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	// Score is the site-reported ranking score, zero when the site
	// does not expose one.
	Score int64 `json:"score,omitempty"`
}

// TaskStatus represents the lifecycle state of a crawl task.
type TaskStatus string

// Task status values persisted in the task store.
const (
	TaskStatusQueued    TaskStatus = "queued"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
)

// TaskTrigger records what started a crawl task.
type TaskTrigger string

// Trigger values.
const (
	TriggerSchedule TaskTrigger = "schedule"
	TriggerManual   TaskTrigger = "manual"
)

// TaskCounters tracks per-task item stats.
type TaskCounters struct {
	ItemsTotal   int   `json:"items_total"`
	ItemsFailed  int   `json:"items_failed"`
	BytesFetched int64 `json:"bytes_fetched"`
}

// CrawlTask is one execution instance of a scheduled or manually triggered
// fetch job.
type CrawlTask struct {
	ID        string       `json:"id"`
	PageID    string       `json:"page_id"`
	Trigger   TaskTrigger  `json:"trigger"`
	Status    TaskStatus   `json:"status"`
	Submitted time.Time    `json:"submitted_at"`
	Started   *time.Time   `json:"started_at,omitempty"`
	Finished  *time.Time   `json:"finished_at,omitempty"`
	ErrorText string       `json:"error_text,omitempty"`
	Counters  TaskCounters `json:"counters"`
}

// TaskEvent is published when a crawl task finishes.
type TaskEvent struct {
	TaskID     string       `json:"task_id"`
	PageID     string       `json:"page_id"`
	Status     TaskStatus   `json:"status"`
	Counters   TaskCounters `json:"counters"`
	FinishedAt time.Time    `json:"finished_at"`
}
