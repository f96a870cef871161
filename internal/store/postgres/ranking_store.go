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
	defaultRankingLimit = 50
	maxRankingLimit     = 100
	maxHistoryDays      = 365
)

// RankingStore persists rankings and ranking snapshots in Postgres.
type RankingStore struct {
	db DB
}

// UpsertRanking inserts the ranking or refreshes its name and channel.
func (s *RankingStore) UpsertRanking(ctx context.Context, ranking model.Ranking) error {
	if ranking.ID == "" {
		return fmt.Errorf("ranking id is required")
	}
	_, err := s.db.Exec(ctx, `
INSERT INTO rankings (id, name, channel, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	channel = EXCLUDED.channel,
	updated_at = EXCLUDED.updated_at`,
		ranking.ID, ranking.Name, ranking.Channel, ranking.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert ranking %s: %w", ranking.ID, err)
	}
	return nil
}

// GetRanking loads one ranking or returns store.ErrNotFound.
func (s *RankingStore) GetRanking(ctx context.Context, id string) (model.Ranking, error) {
	var r model.Ranking
	err := s.db.QueryRow(ctx,
		`SELECT id, name, channel, updated_at FROM rankings WHERE id = $1`, id).
		Scan(&r.ID, &r.Name, &r.Channel, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Ranking{}, store.ErrNotFound
	}
	if err != nil {
		return model.Ranking{}, fmt.Errorf("get ranking %s: %w", id, err)
	}
	return r, nil
}

// ListRankings returns rankings ordered by id.
func (s *RankingStore) ListRankings(ctx context.Context, limit, offset int) ([]model.Ranking, error) {
	limit = clampLimit(limit, defaultRankingLimit, maxRankingLimit)
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.Query(ctx, `
SELECT id, name, channel, updated_at
FROM rankings
ORDER BY id
LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list rankings: %w", err)
	}
	defer rows.Close()

	var rankings []model.Ranking
	for rows.Next() {
		var r model.Ranking
		if err := rows.Scan(&r.ID, &r.Name, &r.Channel, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan ranking: %w", err)
		}
		rankings = append(rankings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rankings: %w", err)
	}
	return rankings, nil
}

// InsertSnapshot stores the snapshot header and its entries in one
// transaction so a ranking snapshot is never visible half-written.
func (s *RankingStore) InsertSnapshot(ctx context.Context, snap model.RankingSnapshot) error {
	if snap.ID == "" || snap.RankingID == "" {
		return fmt.Errorf("snapshot id and ranking id are required")
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	_, err = tx.Exec(ctx, `
INSERT INTO ranking_snapshots (id, ranking_id, task_id, captured_at, entry_count)
VALUES ($1, $2, $3, $4, $5)`,
		snap.ID, snap.RankingID, snap.TaskID, snap.CapturedAt, len(snap.Entries),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot header: %w", err)
	}
	for _, e := range snap.Entries {
		_, err = tx.Exec(ctx, `
INSERT INTO ranking_entries (snapshot_id, position, book_id, title, author, score)
VALUES ($1, $2, $3, $4, $5, $6)`,
			snap.ID, e.Position, e.BookID, e.Title, e.Author, e.Score,
		)
		if err != nil {
			return fmt.Errorf("insert entry %d: %w", e.Position, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshot tx: %w", err)
	}
	return nil
}

// LatestEntries returns the most recent snapshot with its entries.
func (s *RankingStore) LatestEntries(ctx context.Context, rankingID string) (model.RankingSnapshot, error) {
	var snap model.RankingSnapshot
	err := s.db.QueryRow(ctx, `
SELECT id, ranking_id, task_id, captured_at, entry_count
FROM ranking_snapshots
WHERE ranking_id = $1
ORDER BY captured_at DESC
LIMIT 1`, rankingID).
		Scan(&snap.ID, &snap.RankingID, &snap.TaskID, &snap.CapturedAt, &snap.EntryCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.RankingSnapshot{}, store.ErrNotFound
	}
	if err != nil {
		return model.RankingSnapshot{}, fmt.Errorf("latest snapshot %s: %w", rankingID, err)
	}

	rows, err := s.db.Query(ctx, `
SELECT position, book_id, title, author, score
FROM ranking_entries
WHERE snapshot_id = $1
ORDER BY position`, snap.ID)
	if err != nil {
		return model.RankingSnapshot{}, fmt.Errorf("load entries %s: %w", snap.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var e model.RankingEntry
		if err := rows.Scan(&e.Position, &e.BookID, &e.Title, &e.Author, &e.Score); err != nil {
			return model.RankingSnapshot{}, fmt.Errorf("scan entry: %w", err)
		}
		snap.Entries = append(snap.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return model.RankingSnapshot{}, fmt.Errorf("iterate entries: %w", err)
	}
	return snap, nil
}

// SnapshotHistory returns snapshot headers from the last N days, newest first.
func (s *RankingStore) SnapshotHistory(ctx context.Context, rankingID string, days int) ([]model.RankingSnapshot, error) {
	if days <= 0 {
		days = 7
	}
	if days > maxHistoryDays {
		days = maxHistoryDays
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.db.Query(ctx, `
SELECT id, ranking_id, task_id, captured_at, entry_count
FROM ranking_snapshots
WHERE ranking_id = $1 AND captured_at >= $2
ORDER BY captured_at DESC`, rankingID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("snapshot history %s: %w", rankingID, err)
	}
	defer rows.Close()

	var snaps []model.RankingSnapshot
	for rows.Next() {
		var snap model.RankingSnapshot
		if err := rows.Scan(&snap.ID, &snap.RankingID, &snap.TaskID, &snap.CapturedAt, &snap.EntryCount); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snaps, nil
}
