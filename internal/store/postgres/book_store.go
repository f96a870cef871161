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
	defaultBookLimit = 20
	maxBookLimit     = 100
	maxTrendDays     = 365
)

// BookStore persists books and book snapshots in Postgres.
type BookStore struct {
	db DB
}

// UpsertBook inserts the book or refreshes its mutable metadata. first_seen
// is only written on insert.
func (s *BookStore) UpsertBook(ctx context.Context, book model.Book) error {
	if book.ID == "" {
		return fmt.Errorf("book id is required")
	}
	query := `
INSERT INTO books (id, title, author, category, tags, finished, first_seen, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
	title = EXCLUDED.title,
	author = EXCLUDED.author,
	category = EXCLUDED.category,
	tags = EXCLUDED.tags,
	finished = EXCLUDED.finished,
	updated_at = EXCLUDED.updated_at`
	_, err := s.db.Exec(ctx, query,
		book.ID, book.Title, book.Author, book.Category, tagsOrEmpty(book.Tags),
		book.Finished, book.FirstSeen, book.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert book %s: %w", book.ID, err)
	}
	return nil
}

const bookColumns = `id, title, author, category, tags, finished, first_seen, updated_at`

func scanBook(row pgx.Row) (model.Book, error) {
	var b model.Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Category, &b.Tags,
		&b.Finished, &b.FirstSeen, &b.UpdatedAt)
	return b, err
}

// GetBook loads one book or returns store.ErrNotFound.
func (s *BookStore) GetBook(ctx context.Context, id string) (model.Book, error) {
	row := s.db.QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id)
	b, err := scanBook(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Book{}, store.ErrNotFound
	}
	if err != nil {
		return model.Book{}, fmt.Errorf("get book %s: %w", id, err)
	}
	return b, nil
}

// GetBooks loads books by id; missing ids are omitted.
func (s *BookStore) GetBooks(ctx context.Context, ids []string) ([]model.Book, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("get books: %w", err)
	}
	defer rows.Close()
	return collectBooks(rows)
}

// SearchBooks matches title or author substrings.
func (s *BookStore) SearchBooks(ctx context.Context, query string, limit, offset int) ([]model.Book, error) {
	limit = clampLimit(limit, defaultBookLimit, maxBookLimit)
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.Query(ctx, `
SELECT `+bookColumns+`
FROM books
WHERE title ILIKE '%' || $1 || '%' OR author ILIKE '%' || $1 || '%'
ORDER BY updated_at DESC
LIMIT $2 OFFSET $3`, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	defer rows.Close()
	return collectBooks(rows)
}

func collectBooks(rows pgx.Rows) ([]model.Book, error) {
	var books []model.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return books, nil
}

// InsertBookSnapshot appends one counter capture.
func (s *BookStore) InsertBookSnapshot(ctx context.Context, snap model.BookSnapshot) error {
	if snap.BookID == "" {
		return fmt.Errorf("snapshot book id is required")
	}
	_, err := s.db.Exec(ctx, `
INSERT INTO book_snapshots (book_id, clicks, favorites, comments, chapters, word_count, captured_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		snap.BookID, snap.Clicks, snap.Favorites, snap.Comments,
		snap.Chapters, snap.WordCount, snap.CapturedAt,
	)
	if err != nil {
		return fmt.Errorf("insert book snapshot %s: %w", snap.BookID, err)
	}
	return nil
}

const snapshotColumns = `book_id, clicks, favorites, comments, chapters, word_count, captured_at`

func scanSnapshot(row pgx.Row) (model.BookSnapshot, error) {
	var sn model.BookSnapshot
	err := row.Scan(&sn.BookID, &sn.Clicks, &sn.Favorites, &sn.Comments,
		&sn.Chapters, &sn.WordCount, &sn.CapturedAt)
	return sn, err
}

// LatestBookSnapshot returns the most recent capture or store.ErrNotFound.
func (s *BookStore) LatestBookSnapshot(ctx context.Context, bookID string) (model.BookSnapshot, error) {
	row := s.db.QueryRow(ctx, `
SELECT `+snapshotColumns+`
FROM book_snapshots
WHERE book_id = $1
ORDER BY captured_at DESC
LIMIT 1`, bookID)
	sn, err := scanSnapshot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.BookSnapshot{}, store.ErrNotFound
	}
	if err != nil {
		return model.BookSnapshot{}, fmt.Errorf("latest snapshot %s: %w", bookID, err)
	}
	return sn, nil
}

// BookTrend returns captures from the last N days, oldest first.
func (s *BookStore) BookTrend(ctx context.Context, bookID string, days int) ([]model.BookSnapshot, error) {
	if days <= 0 {
		days = 7
	}
	if days > maxTrendDays {
		days = maxTrendDays
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.db.Query(ctx, `
SELECT `+snapshotColumns+`
FROM book_snapshots
WHERE book_id = $1 AND captured_at >= $2
ORDER BY captured_at ASC`, bookID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("book trend %s: %w", bookID, err)
	}
	defer rows.Close()

	var snaps []model.BookSnapshot
	for rows.Next() {
		sn, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, sn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snaps, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
