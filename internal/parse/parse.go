// Package parse maps site-specific JSON and HTML payloads into typed
// records. Parsers are pure: timestamps are stamped by the caller.
package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lien-Gu/bookrank/internal/model"
)

// ErrEmptyPayload signals a structurally valid payload with no usable entries.
var ErrEmptyPayload = errors.New("payload contains no entries")

// Result is the outcome of parsing one ranking payload. Books and Snapshots
// are keyed off the entries; Failed counts entries that were skipped.
type Result struct {
	RankingName string
	Entries     []model.RankingEntry
	Books       []model.Book
	Snapshots   []model.BookSnapshot
	Failed      int
}

// envelope is the JSON wrapper the site puts around every API response.
type envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// rankingData is the payload under "data" for ranking endpoints.
type rankingData struct {
	RankName string        `json:"rankName"`
	Items    []rankingItem `json:"items"`
	List     []rankingItem `json:"list"` // some boards use "list" instead of "items"
}

// rankingItem mirrors one entry. The site serializes most numbers as
// strings, so everything numeric goes through json.Number-tolerant fields.
type rankingItem struct {
	NovelID      flexInt    `json:"novelId"`
	NovelName    string     `json:"novelName"`
	AuthorName   string     `json:"authorName"`
	NovelClass   string     `json:"novelClass"`
	Tags         string     `json:"tags"`
	IsFinished   flexString `json:"isFinished"`
	Clicks       flexInt    `json:"clicks"`
	Favorites    flexInt    `json:"favorites"`
	Comments     flexInt    `json:"comments"`
	ChapterCount flexInt    `json:"chapterCount"`
	WordCount    flexInt    `json:"wordCount"`
	Score        flexInt    `json:"score"`
}

func decodeEnvelope(data []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Code != "" && env.Code != "200" {
		return envelope{}, fmt.Errorf("site error code %s: %s", env.Code, env.Message)
	}
	if len(env.Data) == 0 {
		return envelope{}, ErrEmptyPayload
	}
	return env, nil
}

// ParseRankingJSON parses a ranking board payload for the given page.
func ParseRankingJSON(pageID string, data []byte) (Result, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return Result{}, err
	}
	var rd rankingData
	if err := json.Unmarshal(env.Data, &rd); err != nil {
		return Result{}, fmt.Errorf("decode ranking data: %w", err)
	}
	items := rd.Items
	if len(items) == 0 {
		items = rd.List
	}
	if len(items) == 0 {
		return Result{}, ErrEmptyPayload
	}

	res := Result{RankingName: rd.RankName}
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		entry, book, snap, err := convertItem(item)
		if err != nil {
			res.Failed++
			continue
		}
		entry.Position = len(res.Entries) + 1
		res.Entries = append(res.Entries, entry)
		if _, dup := seen[book.ID]; !dup {
			seen[book.ID] = struct{}{}
			res.Books = append(res.Books, book)
			res.Snapshots = append(res.Snapshots, snap)
		}
	}
	if len(res.Entries) == 0 {
		return Result{}, ErrEmptyPayload
	}
	return res, nil
}

func convertItem(item rankingItem) (model.RankingEntry, model.Book, model.BookSnapshot, error) {
	id := item.NovelID.Int64()
	if id <= 0 || strings.TrimSpace(item.NovelName) == "" {
		return model.RankingEntry{}, model.Book{}, model.BookSnapshot{},
			fmt.Errorf("entry missing novel id or name")
	}
	bookID := fmt.Sprintf("%d", id)
	entry := model.RankingEntry{
		BookID: bookID,
		Title:  item.NovelName,
		Author: item.AuthorName,
		Score:  item.Score.Int64(),
	}
	book := model.Book{
		ID:       bookID,
		Title:    item.NovelName,
		Author:   item.AuthorName,
		Category: item.NovelClass,
		Tags:     splitTags(item.Tags),
		Finished: item.IsFinished.String() == "1" || strings.EqualFold(item.IsFinished.String(), "true"),
	}
	snap := model.BookSnapshot{
		BookID:    bookID,
		Clicks:    item.Clicks.Int64(),
		Favorites: item.Favorites.Int64(),
		Comments:  item.Comments.Int64(),
		Chapters:  int(item.ChapterCount.Int64()),
		WordCount: item.WordCount.Int64(),
	}
	return entry, book, snap, nil
}

// ParseBookJSON parses a book detail payload.
func ParseBookJSON(data []byte) (model.Book, model.BookSnapshot, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return model.Book{}, model.BookSnapshot{}, err
	}
	var item rankingItem
	if err := json.Unmarshal(env.Data, &item); err != nil {
		return model.Book{}, model.BookSnapshot{}, fmt.Errorf("decode book data: %w", err)
	}
	_, book, snap, err := convertItem(item)
	if err != nil {
		return model.Book{}, model.BookSnapshot{}, err
	}
	return book, snap, nil
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '，' || r == ' '
	})
	tags := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}
